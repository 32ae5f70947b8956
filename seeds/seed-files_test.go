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

package seeds

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSeeds(t *testing.T) {
	dir, err := ioutil.TempDir("", "seeds-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "seeds.tsv")
	content := "read1\t10\t75\t+\nread1\t12\t130\t-\nread2\t3\t0\t+\n"
	if err := ioutil.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	hits := Load(path)
	if len(hits) != 2 {
		t.Fatalf("expected 2 reads with hits, got %v", len(hits))
	}
	read1 := hits["read1"]
	if len(read1) != 2 {
		t.Fatalf("expected 2 hits for read1, got %v", len(read1))
	}
	if read1[0] != (Hit{NodeID: 10, ReadOffset: 75, Reverse: false}) {
		t.Errorf("first hit wrong: %+v", read1[0])
	}
	if read1[1] != (Hit{NodeID: 12, ReadOffset: 130, Reverse: true}) {
		t.Errorf("second hit wrong: %+v", read1[1])
	}
	if hits["read2"][0] != (Hit{NodeID: 3, ReadOffset: 0, Reverse: false}) {
		t.Errorf("read2 hit wrong: %+v", hits["read2"][0])
	}
}
