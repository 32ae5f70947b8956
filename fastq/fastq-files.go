// elAlign: a high-performance tool for aligning long noisy reads to sequence graphs.
// Copyright (c) 2020-2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elalign/blob/master/LICENSE.txt>.

// Package fastq reads sequencing reads from FASTQ files, with
// transparent decompression of .gz and .zst inputs.
package fastq

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// A Read is one FASTQ record. Qualities are not kept: the aligner
// does not consume them.
type Read struct {
	Name     string
	Sequence string
}

// A Reader reads FASTQ records one at a time.
type Reader struct {
	file    *os.File
	zst     *zstd.Decoder
	gz      *gzip.Reader
	scanner *bufio.Scanner
	err     error
	line    int
}

// Open opens the named FASTQ file. Files ending in .gz or .zst are
// decompressed on the fly.
func Open(name string) (*Reader, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	fq := &Reader{file: file}
	var r io.Reader = file
	switch {
	case strings.HasSuffix(name, ".gz"):
		if fq.gz, err = gzip.NewReader(file); err != nil {
			_ = file.Close()
			return nil, err
		}
		r = fq.gz
	case strings.HasSuffix(name, ".zst"):
		if fq.zst, err = zstd.NewReader(file); err != nil {
			_ = file.Close()
			return nil, err
		}
		r = fq.zst
	}
	fq.scanner = bufio.NewScanner(r)
	fq.scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	return fq, nil
}

func (fq *Reader) scanLine() (string, bool) {
	if !fq.scanner.Scan() {
		if err := fq.scanner.Err(); err != nil {
			fq.err = err
		}
		return "", false
	}
	fq.line++
	return fq.scanner.Text(), true
}

// Next returns the next read, or ok == false at the end of the file.
func (fq *Reader) Next() (read Read, ok bool) {
	header, ok := fq.scanLine()
	if !ok {
		return Read{}, false
	}
	if len(header) == 0 || header[0] != '@' {
		fq.err = fmt.Errorf("malformed FASTQ record at line %v: header %q", fq.line, header)
		return Read{}, false
	}
	sequence, ok := fq.scanLine()
	if !ok {
		fq.err = fmt.Errorf("truncated FASTQ record at line %v", fq.line)
		return Read{}, false
	}
	plus, ok := fq.scanLine()
	if !ok || len(plus) == 0 || plus[0] != '+' {
		fq.err = fmt.Errorf("malformed FASTQ record at line %v: separator %q", fq.line, plus)
		return Read{}, false
	}
	if _, ok = fq.scanLine(); !ok {
		fq.err = fmt.Errorf("truncated FASTQ record at line %v", fq.line)
		return Read{}, false
	}
	name := header[1:]
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	return Read{Name: name, Sequence: sequence}, true
}

// Err returns the first error encountered while reading.
func (fq *Reader) Err() error { return fq.err }

// Close releases the underlying file and decompressors.
func (fq *Reader) Close() error {
	if fq.zst != nil {
		fq.zst.Close()
	}
	if fq.gz != nil {
		if err := fq.gz.Close(); err != nil {
			_ = fq.file.Close()
			return err
		}
	}
	return fq.file.Close()
}
