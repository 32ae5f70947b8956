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

// Package graph turns a vg.Graph into the immutable alignment graph
// the DP engine runs on: every biological node appears twice, once
// per strand, all node sequences are concatenated into a single
// buffer, and a dummy source and sink bookend the paths.
package graph

import (
	"log"
	"sort"

	"github.com/exascience/elalign/vg"
)

// DummyChar is the placeholder base carried by the dummy source and
// sink. It matches no read character.
const DummyChar = '-'

// A Graph is a finalized alignment graph. All fields are fixed after
// New returns; aligner workers share one Graph without locking.
type Graph struct {
	nodeStart     []int
	nodeSequences []byte
	// nodeIDs[v] is the doubled biological id: bio id times two, plus
	// one for the reverse strand.
	nodeIDs      []int64
	reverse      []bool
	inNeighbors  [][]int
	outNeighbors [][]int
	nodeLookup   map[int64]int
	dbgOverlap   int
	dummyStart   int
	dummyEnd     int
	finalized    bool
}

// NodeSize returns the number of nodes, dummies included.
func (g *Graph) NodeSize() int { return len(g.nodeStart) }

// NodeStart returns the index of node v's first base in the
// concatenated sequence buffer.
func (g *Graph) NodeStart(v int) int { return g.nodeStart[v] }

// NodeEnd returns one past the index of node v's last base.
func (g *Graph) NodeEnd(v int) int {
	if v+1 < len(g.nodeStart) {
		return g.nodeStart[v+1]
	}
	return len(g.nodeSequences)
}

// NodeLength returns node v's length in base pairs.
func (g *Graph) NodeLength(v int) int { return g.NodeEnd(v) - g.NodeStart(v) }

// NodeSequences returns the base at concatenated position p.
func (g *Graph) NodeSequences(p int) byte { return g.nodeSequences[p] }

// IndexToNode maps a concatenated base position back to its node.
func (g *Graph) IndexToNode(p int) int {
	i := sort.Search(len(g.nodeStart), func(i int) bool { return g.nodeStart[i] > p })
	return i - 1
}

// InNeighbors returns the in-neighbor list of node v.
func (g *Graph) InNeighbors(v int) []int { return g.inNeighbors[v] }

// OutNeighbors returns the out-neighbor list of node v.
func (g *Graph) OutNeighbors(v int) []int { return g.outNeighbors[v] }

// NodeID returns the doubled biological id of node v.
func (g *Graph) NodeID(v int) int64 { return g.nodeIDs[v] }

// BioID returns the biological id of node v.
func (g *Graph) BioID(v int) int64 { return g.nodeIDs[v] / 2 }

// Reverse reports whether node v is the reverse strand of its
// biological node.
func (g *Graph) Reverse(v int) bool { return g.reverse[v] }

// Lookup maps a doubled biological id to the node index, or -1.
func (g *Graph) Lookup(doubledID int64) int {
	if v, ok := g.nodeLookup[doubledID]; ok {
		return v
	}
	return -1
}

// DBGOverlap is the overlap length between neighboring nodes in a
// de-Bruijn-style graph, zero for overlap-free graphs.
func (g *Graph) DBGOverlap() int { return g.dbgOverlap }

// DummyNodeStart returns the dummy source node.
func (g *Graph) DummyNodeStart() int { return g.dummyStart }

// DummyNodeEnd returns the dummy sink node.
func (g *Graph) DummyNodeEnd() int { return g.dummyEnd }

// SizeInBp returns the total length of the concatenated sequences.
func (g *Graph) SizeInBp() int { return len(g.nodeSequences) }

// Finalized reports whether the graph is ready for alignment.
func (g *Graph) Finalized() bool { return g.finalized }

// GetReversePosition maps a base position to the mirrored base on the
// opposite strand of the same biological node.
func (g *Graph) GetReversePosition(p int) int {
	v := g.IndexToNode(p)
	offset := p - g.NodeStart(v)
	pair := g.nodeLookup[g.nodeIDs[v]^1]
	return g.NodeStart(pair) + g.NodeLength(v) - 1 - offset
}

func (g *Graph) addNode(doubledID int64, sequence []byte) int {
	v := len(g.nodeStart)
	g.nodeStart = append(g.nodeStart, len(g.nodeSequences))
	g.nodeSequences = append(g.nodeSequences, sequence...)
	g.nodeIDs = append(g.nodeIDs, doubledID)
	g.reverse = append(g.reverse, doubledID%2 == 1)
	g.inNeighbors = append(g.inNeighbors, nil)
	g.outNeighbors = append(g.outNeighbors, nil)
	g.nodeLookup[doubledID] = v
	return v
}

func (g *Graph) addEdge(from, to int) {
	for _, v := range g.outNeighbors[from] {
		if v == to {
			return
		}
	}
	g.outNeighbors[from] = append(g.outNeighbors[from], to)
	g.inNeighbors[to] = append(g.inNeighbors[to], from)
}

// New builds a finalized alignment graph from a vg graph.
//
// Both strands of every biological node are materialized; a vg edge
// contributes one directed edge per strand. The dummy source gets an
// out-edge to every node without in-neighbors, and the dummy sink an
// in-edge from every node without out-neighbors.
func New(source *vg.Graph) *Graph {
	g := &Graph{nodeLookup: make(map[int64]int, 2*len(source.Node)+2)}
	g.dummyStart = g.addNode(-2, []byte{DummyChar})
	ids := make([]int64, 0, len(source.Node))
	sequences := make(map[int64]string, len(source.Node))
	for _, node := range source.Node {
		if _, ok := sequences[node.ID]; ok {
			log.Panicf("duplicate node id %v in graph", node.ID)
		}
		if len(node.Sequence) == 0 {
			log.Panicf("empty sequence for node %v", node.ID)
		}
		for i := 0; i < len(node.Sequence); i++ {
			switch node.Sequence[i] {
			case 'A', 'C', 'G', 'T':
			default:
				log.Panicf("node %v carries non-ACGT base %q", node.ID, node.Sequence[i])
			}
		}
		sequences[node.ID] = node.Sequence
		ids = append(ids, node.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sequence := sequences[id]
		g.addNode(id*2, []byte(sequence))
		g.addNode(id*2+1, []byte(ReverseComplement(sequence)))
	}
	for _, edge := range source.Edge {
		fromStrand := int64(0)
		if edge.FromStart {
			fromStrand = 1
		}
		toStrand := int64(0)
		if edge.ToEnd {
			toStrand = 1
		}
		from, ok := g.nodeLookup[edge.From*2+fromStrand]
		if !ok {
			log.Panicf("edge references unknown node %v", edge.From)
		}
		to, ok := g.nodeLookup[edge.To*2+toStrand]
		if !ok {
			log.Panicf("edge references unknown node %v", edge.To)
		}
		g.addEdge(from, to)
		// the complement traversal of the same attachment
		g.addEdge(g.nodeLookup[edge.To*2+(1-toStrand)], g.nodeLookup[edge.From*2+(1-fromStrand)])
		if int(edge.Overlap) > g.dbgOverlap {
			g.dbgOverlap = int(edge.Overlap)
		}
	}
	g.dummyEnd = g.addNode(-1, []byte{DummyChar})
	for v := g.dummyStart + 1; v < g.dummyEnd; v++ {
		if len(g.inNeighbors[v]) == 0 {
			g.addEdge(g.dummyStart, v)
		}
		if len(g.outNeighbors[v]) == 0 {
			g.addEdge(v, g.dummyEnd)
		}
	}
	g.finalized = true
	return g
}
