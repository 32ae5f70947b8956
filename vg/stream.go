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

package vg

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"log"
	"os"

	"github.com/exascience/elalign/internal"
)

// Graph and alignment files are streams of length-prefixed chunks:
// a little-endian uint32 byte count followed by one gob-encoded
// message. The prefix makes it possible to skip chunks without
// decoding them.

// ForEachMessage decodes every chunk in r into a fresh value produced
// by newMessage and hands it to f. It stops at the end of the stream.
func ForEachMessage(r io.Reader, newMessage func() interface{}, f func(interface{})) error {
	br := bufio.NewReader(r)
	var lengthBytes [4]byte
	for {
		if _, err := io.ReadFull(br, lengthBytes[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		length := binary.LittleEndian.Uint32(lengthBytes[:])
		chunk := make([]byte, length)
		if _, err := io.ReadFull(br, chunk); err != nil {
			return err
		}
		message := newMessage()
		if err := gob.NewDecoder(bytes.NewReader(chunk)).Decode(message); err != nil {
			return err
		}
		f(message)
	}
}

// LoadGraph reads all Graph chunks in the given file and merges them
// into a single graph.
func LoadGraph(r io.Reader) (*Graph, error) {
	result := &Graph{}
	err := ForEachMessage(r, func() interface{} { return &Graph{} }, func(message interface{}) {
		result.Merge(message.(*Graph))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// A Writer emits length-prefixed messages to a file.
type Writer struct {
	file *os.File
	w    *bufio.Writer
	buf  bytes.Buffer
}

// NewWriter creates the named file and returns a Writer for it.
func NewWriter(name string) *Writer {
	file := internal.FileCreate(name)
	return &Writer{file: file, w: bufio.NewWriter(file)}
}

// WriteMessage appends one gob-encoded chunk to the stream.
func (w *Writer) WriteMessage(message interface{}) {
	w.buf.Reset()
	if err := gob.NewEncoder(&w.buf).Encode(message); err != nil {
		log.Panic(err)
	}
	var lengthBytes [4]byte
	binary.LittleEndian.PutUint32(lengthBytes[:], uint32(w.buf.Len()))
	if _, err := w.w.Write(lengthBytes[:]); err != nil {
		log.Panic(err)
	}
	if _, err := w.w.Write(w.buf.Bytes()); err != nil {
		log.Panic(err)
	}
}

// Close flushes buffered chunks and closes the underlying file.
func (w *Writer) Close() {
	if err := w.w.Flush(); err != nil {
		log.Panic(err)
	}
	internal.Close(w.file)
}
