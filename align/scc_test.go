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

package align

import (
	"testing"

	"github.com/willf/bitset"
)

func TestStronglyConnectedComponents(t *testing.T) {
	// 1 -> 2 <-> 3 -> 4, plus a self-loop on 4
	g := buildTestGraph(map[int64]string{1: "A", 2: "C", 3: "G", 4: "T"},
		[2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 2}, [2]int64{3, 4}, [2]int64{4, 4})
	e := newEngine(g, Params{InitialBandwidth: 5}.withDefaults())
	var nodes []int
	band := bitset.New(uint(g.NodeSize()))
	for id := int64(1); id <= 4; id++ {
		v := g.Lookup(id * 2)
		nodes = append(nodes, v)
		band.Set(uint(v))
	}
	components := e.stronglyConnectedComponents(nodes, band)
	if len(components) != 3 {
		t.Fatalf("expected 3 components, got %v", len(components))
	}
	index := make(map[int]int)
	total := 0
	for i, component := range components {
		total += len(component)
		for _, node := range component {
			index[node] = i
		}
	}
	if total != 4 {
		t.Errorf("components cover %v nodes instead of 4", total)
	}
	if index[g.Lookup(2*2)] != index[g.Lookup(3*2)] {
		t.Error("cycle 2<->3 split into separate components")
	}
	// reverse topological order: every edge points to an earlier or
	// equal component
	for _, node := range nodes {
		for _, neighbor := range g.OutNeighbors(node) {
			if !band.Test(uint(neighbor)) {
				continue
			}
			if index[neighbor] > index[node] {
				t.Error("edge points to a later component")
			}
		}
	}
}
