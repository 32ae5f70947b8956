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

package fastq

import (
	"compress/gzip"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

const sampleFastq = "@read1 some description\nACGTACGT\n+\nIIIIIIII\n@read2\nTTTT\n+read2\nFFFF\n"

func writeTempFile(t *testing.T, name, content string, compress bool) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "fastq-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if compress {
		gz := gzip.NewWriter(file)
		if _, err := gz.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}
	} else {
		if _, err := file.WriteString(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func checkSampleReads(t *testing.T, path string) {
	t.Helper()
	reader, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	read, ok := reader.Next()
	if !ok || read.Name != "read1" || read.Sequence != "ACGTACGT" {
		t.Errorf("first read wrong: %+v ok %v", read, ok)
	}
	read, ok = reader.Next()
	if !ok || read.Name != "read2" || read.Sequence != "TTTT" {
		t.Errorf("second read wrong: %+v ok %v", read, ok)
	}
	if _, ok = reader.Next(); ok {
		t.Error("unexpected third read")
	}
	if err := reader.Err(); err != nil {
		t.Errorf("unexpected reader error: %v", err)
	}
}

func TestReadPlainFastq(t *testing.T) {
	checkSampleReads(t, writeTempFile(t, "reads.fastq", sampleFastq, false))
}

func TestReadGzipFastq(t *testing.T) {
	checkSampleReads(t, writeTempFile(t, "reads.fastq.gz", sampleFastq, true))
}

func TestMalformedFastq(t *testing.T) {
	reader, err := Open(writeTempFile(t, "bad.fastq", "not a fastq\n", false))
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	if _, ok := reader.Next(); ok {
		t.Error("malformed record accepted")
	}
	if reader.Err() == nil {
		t.Error("malformed record reported no error")
	}
}
