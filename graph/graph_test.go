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

package graph

import (
	"testing"

	"github.com/exascience/elalign/vg"
)

func TestReverseComplement(t *testing.T) {
	cases := [][2]string{
		{"ACGT", "ACGT"},
		{"AAAA", "TTTT"},
		{"ACCGGGT", "ACCCGGT"},
		{"N", "N"},
		{"RYKM", "KMRY"},
		{"BDHV", "BDHV"},
		{"H", "D"},
		{"D", "H"},
	}
	for _, c := range cases {
		if got := ReverseComplement(c[0]); got != c[1] {
			t.Errorf("ReverseComplement(%v) failed: %v != %v", c[0], got, c[1])
		}
	}
}

func buildChain(t *testing.T) *Graph {
	t.Helper()
	source := &vg.Graph{
		Node: []vg.Node{
			{ID: 1, Sequence: "ACGT"},
			{ID: 2, Sequence: "GG"},
			{ID: 3, Sequence: "TTT"},
		},
		Edge: []vg.Edge{
			{From: 1, To: 2},
			{From: 2, To: 3},
		},
	}
	return New(source)
}

func TestGraphContract(t *testing.T) {
	g := buildChain(t)
	// 3 bio nodes on both strands plus 2 dummies
	if g.NodeSize() != 8 {
		t.Fatalf("expected 8 nodes, got %v", g.NodeSize())
	}
	if !g.Finalized() {
		t.Error("graph not finalized")
	}
	if g.SizeInBp() != 2*(4+2+3)+2 {
		t.Errorf("unexpected total size %v", g.SizeInBp())
	}
	for p := 0; p < g.SizeInBp(); p++ {
		v := g.IndexToNode(p)
		if p < g.NodeStart(v) || p >= g.NodeEnd(v) {
			t.Fatalf("IndexToNode(%v) = %v does not contain the position", p, v)
		}
	}
	for v := 1; v < g.NodeSize(); v++ {
		if g.NodeStart(v) <= g.NodeStart(v-1) {
			t.Error("node starts not monotone")
		}
	}
	v1 := g.Lookup(1 * 2)
	if v1 < 0 {
		t.Fatal("node 1 forward strand not found")
	}
	if got := string([]byte{g.NodeSequences(g.NodeStart(v1)), g.NodeSequences(g.NodeStart(v1) + 3)}); got != "AT" {
		t.Errorf("node 1 sequence boundaries wrong: %v", got)
	}
	v1r := g.Lookup(1*2 + 1)
	if !g.Reverse(v1r) || g.Reverse(v1) {
		t.Error("strand flags wrong")
	}
	if g.BioID(v1) != 1 || g.BioID(v1r) != 1 {
		t.Error("bio ids wrong")
	}
	// edges: forward chain and the complement chain
	v2 := g.Lookup(2 * 2)
	found := false
	for _, n := range g.OutNeighbors(v1) {
		if n == v2 {
			found = true
		}
	}
	if !found {
		t.Error("edge 1->2 missing on the forward strand")
	}
	v2r := g.Lookup(2*2 + 1)
	found = false
	for _, n := range g.OutNeighbors(v2r) {
		if n == v1r {
			found = true
		}
	}
	if !found {
		t.Error("complement edge 2'->1' missing")
	}
	// dummies bracket the chain
	found = false
	for _, n := range g.OutNeighbors(g.DummyNodeStart()) {
		if n == v1 {
			found = true
		}
	}
	if !found {
		t.Error("dummy source not connected to the chain head")
	}
}

func TestGetReversePosition(t *testing.T) {
	g := buildChain(t)
	v1 := g.Lookup(1 * 2)
	for offset := 0; offset < g.NodeLength(v1); offset++ {
		p := g.NodeStart(v1) + offset
		rp := g.GetReversePosition(p)
		rv := g.IndexToNode(rp)
		if g.BioID(rv) != g.BioID(v1) || g.Reverse(rv) == g.Reverse(v1) {
			t.Fatal("reverse position on the wrong node")
		}
		if rp-g.NodeStart(rv) != g.NodeLength(v1)-1-offset {
			t.Error("reverse position offset not mirrored")
		}
		if g.GetReversePosition(rp) != p {
			t.Error("reverse position not involutive")
		}
	}
}
