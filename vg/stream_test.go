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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestGraphStream(t *testing.T) {
	dir, err := ioutil.TempDir("", "vg-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "graph.dat")
	writer := NewWriter(path)
	writer.WriteMessage(&Graph{
		Node: []Node{{ID: 1, Sequence: "ACGT"}},
		Edge: []Edge{{From: 1, To: 2}},
	})
	writer.WriteMessage(&Graph{
		Node: []Node{{ID: 2, Sequence: "TT"}},
	})
	writer.Close()

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	merged, err := LoadGraph(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Node) != 2 || len(merged.Edge) != 1 {
		t.Fatalf("merged graph has %v nodes, %v edges", len(merged.Node), len(merged.Edge))
	}
	if merged.Node[1].Sequence != "TT" {
		t.Error("second chunk not merged")
	}
}

func TestAlignmentStream(t *testing.T) {
	dir, err := ioutil.TempDir("", "vg-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "alignments.gam")
	writer := NewWriter(path)
	alignment := &Alignment{
		Name:     "read1",
		Score:    3,
		Sequence: "ACGT",
		Path: Path{Mapping: []Mapping{{
			Position: Position{NodeID: 7, Offset: 1},
			Edit:     []Edit{{FromLength: 4, ToLength: 4}},
			Rank:     0,
		}}},
	}
	writer.WriteMessage(alignment)
	writer.Close()

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	var decoded []*Alignment
	err = ForEachMessage(file, func() interface{} { return &Alignment{} }, func(message interface{}) {
		decoded = append(decoded, message.(*Alignment))
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 alignment, got %v", len(decoded))
	}
	if decoded[0].Name != "read1" || decoded[0].Score != 3 ||
		decoded[0].Path.Mapping[0].Position.NodeID != 7 {
		t.Errorf("decoded alignment wrong: %+v", decoded[0])
	}
}
