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

// Package vg defines the variation-graph message types that elalign
// exchanges with the outside world: graphs on the input side,
// alignments on the output side. The shapes follow the vg toolkit's
// conventions so that downstream tooling can consume them.
package vg

// A Node is one sequence-carrying vertex of a variation graph.
type Node struct {
	ID       int64
	Sequence string
	Name     string
}

// An Edge connects two nodes. FromStart and ToEnd express bidirected
// attachment: an edge can leave the start of a node or enter the end
// of one, which is how reverse-strand traversals are encoded.
type Edge struct {
	From      int64
	To        int64
	FromStart bool
	ToEnd     bool
	Overlap   int64
}

// A Graph is a collection of nodes and edges, optionally annotated
// with paths. Graph files contain a stream of Graph messages that are
// merged on load.
type Graph struct {
	Node []Node
	Edge []Edge
	Path []Path
	Name string
}

// Merge appends the nodes, edges and paths of part to g.
func (g *Graph) Merge(part *Graph) {
	g.Node = append(g.Node, part.Node...)
	g.Edge = append(g.Edge, part.Edge...)
	g.Path = append(g.Path, part.Path...)
}

// A Position names a single base in the graph: a node, a strand, and
// an offset from the start of that strand's sequence.
type Position struct {
	NodeID    int64
	Offset    int64
	IsReverse bool
}

// An Edit describes how a stretch of a mapping relates to the read:
// FromLength bases of graph sequence correspond to ToLength bases of
// read sequence; Sequence carries the read bases of the stretch (the
// aligner fills it for matches too).
type Edit struct {
	FromLength int64
	ToLength   int64
	Sequence   string
}

// A Mapping aligns a contiguous part of the read to one node.
type Mapping struct {
	Position Position
	Edit     []Edit
	Rank     int64
}

// A Path is an ordered walk through the graph.
type Path struct {
	Name    string
	Mapping []Mapping
}

// An Alignment is the outcome of aligning one read.
type Alignment struct {
	Name          string
	Sequence      string
	Path          Path
	Score         int64
	QueryPosition int64
}
