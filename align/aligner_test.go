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
	"math/rand"
	"strings"
	"testing"

	"github.com/exascience/elalign/graph"
	"github.com/exascience/elalign/seeds"
	"github.com/exascience/elalign/vg"
)

func buildTestGraph(nodes map[int64]string, edges ...[2]int64) *graph.Graph {
	source := &vg.Graph{}
	for id, sequence := range nodes {
		source.Node = append(source.Node, vg.Node{ID: id, Sequence: sequence})
	}
	for _, edge := range edges {
		source.Edge = append(source.Edge, vg.Edge{From: edge[0], To: edge[1]})
	}
	return graph.New(source)
}

func testParams(bandwidth int) Params {
	return Params{InitialBandwidth: bandwidth}
}

func countTraceTypes(trace []TraceItem) map[TraceType]int {
	result := make(map[TraceType]int)
	for _, item := range trace {
		result[item.Type]++
	}
	return result
}

func TestSingleVertexExactMatch(t *testing.T) {
	g := buildTestGraph(map[int64]string{1: "ACGTACGT"})
	aligner := NewAligner(g, testParams(8))
	result := aligner.AlignOneWay("read1", "ACGTACGT")
	if result.Failed {
		t.Fatal("exact match alignment failed")
	}
	if result.Alignment.Score != 0 {
		t.Errorf("exact match score %v, expected 0", result.Alignment.Score)
	}
	if len(result.Alignment.Path.Mapping) != 1 {
		t.Fatalf("expected 1 mapping, got %v", len(result.Alignment.Path.Mapping))
	}
	mapping := result.Alignment.Path.Mapping[0]
	// ACGTACGT is its own reverse complement, so either strand is a
	// valid answer
	if mapping.Position.NodeID != 1 || mapping.Position.Offset != 0 {
		t.Errorf("unexpected mapping position %+v", mapping.Position)
	}
	types := countTraceTypes(result.Trace)
	if types[TraceMatch] != 8 || len(result.Trace) != 8 {
		t.Errorf("expected 8 match items, got %v of %v items", types[TraceMatch], len(result.Trace))
	}
}

func TestSingleMismatch(t *testing.T) {
	g := buildTestGraph(map[int64]string{1: "ACGTACGT"})
	aligner := NewAligner(g, testParams(8))
	result := aligner.AlignOneWay("read1", "ACGAACGT")
	if result.Failed {
		t.Fatal("single mismatch alignment failed")
	}
	if result.Alignment.Score != 1 {
		t.Errorf("single mismatch score %v, expected 1", result.Alignment.Score)
	}
	mismatches := 0
	for _, item := range result.Trace {
		if item.Type == TraceMismatch {
			mismatches++
			if item.ReadPos != 3 {
				t.Errorf("mismatch at read position %v, expected 3", item.ReadPos)
			}
		}
	}
	if mismatches != 1 {
		t.Errorf("expected exactly 1 mismatch, got %v", mismatches)
	}
}

func tracePathIDs(trace []TraceItem) []int64 {
	var result []int64
	for _, item := range trace {
		if len(result) == 0 || result[len(result)-1] != item.NodeID {
			result = append(result, item.NodeID)
		}
	}
	return result
}

func TestBranchChoice(t *testing.T) {
	g := buildTestGraph(map[int64]string{1: "AAA", 2: "CC", 3: "GG"},
		[2]int64{1, 2}, [2]int64{1, 3})
	aligner := NewAligner(g, testParams(8))
	result := aligner.AlignOneWay("read1", "AAAGG")
	if result.Failed {
		t.Fatal("branch alignment failed")
	}
	if result.Alignment.Score != 0 {
		t.Errorf("branch score %v, expected 0", result.Alignment.Score)
	}
	ids := tracePathIDs(result.Trace)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("expected path 1,3, got %v", ids)
	}
}

func TestCycleTraversal(t *testing.T) {
	g := buildTestGraph(map[int64]string{1: "ACA"}, [2]int64{1, 1})
	aligner := NewAligner(g, testParams(8))
	result := aligner.AlignOneWay("read1", "ACAACA")
	if result.Failed {
		t.Fatal("cycle alignment failed")
	}
	if result.Alignment.Score != 0 {
		t.Errorf("cycle score %v, expected 0", result.Alignment.Score)
	}
	offsets := make([]int, 0, len(result.Trace))
	for _, item := range result.Trace {
		if item.NodeID != 1 {
			t.Errorf("trace left node 1: %v", item.NodeID)
		}
		offsets = append(offsets, item.Offset)
	}
	expected := []int{0, 1, 2, 0, 1, 2}
	if len(offsets) != len(expected) {
		t.Fatalf("expected %v trace items, got %v", len(expected), len(offsets))
	}
	for i := range expected {
		if offsets[i] != expected[i] {
			t.Errorf("offset %v is %v, expected %v (self-loop not used)", i, offsets[i], expected[i])
		}
	}
}

func TestInsertionAtBranch(t *testing.T) {
	g := buildTestGraph(map[int64]string{1: "AAA", 2: "CC", 3: "GG"},
		[2]int64{1, 2}, [2]int64{1, 3})
	aligner := NewAligner(g, testParams(8))
	result := aligner.AlignOneWay("read1", "AAATGG")
	if result.Failed {
		t.Fatal("insertion alignment failed")
	}
	if result.Alignment.Score != 1 {
		t.Errorf("insertion score %v, expected 1", result.Alignment.Score)
	}
	insertions := 0
	for _, item := range result.Trace {
		if item.Type == TraceInsertion {
			insertions++
			if item.ReadPos != 3 {
				t.Errorf("insertion at read position %v, expected 3", item.ReadPos)
			}
		}
	}
	if insertions != 1 {
		t.Errorf("expected exactly 1 insertion, got %v", insertions)
	}
	ids := tracePathIDs(result.Trace)
	if ids[len(ids)-1] != 3 {
		t.Errorf("expected the trace to end in node 3, got path %v", ids)
	}
}

func TestSeededTwoSidedAlignment(t *testing.T) {
	r := rand.New(rand.NewSource(8))
	nodes := make(map[int64]string, 20)
	var edges [][2]int64
	var full strings.Builder
	for id := int64(1); id <= 20; id++ {
		nodes[id] = randomSequence(r, 15)
		full.WriteString(nodes[id])
		if id > 1 {
			edges = append(edges, [2]int64{id - 1, id})
		}
	}
	g := buildTestGraph(nodes, edges...)
	aligner := NewAligner(g, testParams(8))
	read := full.String()
	// node 10 starts at read offset 135
	result := aligner.AlignOneWaySeeded("read1", read, []seeds.Hit{{NodeID: 10, ReadOffset: 135}})
	if result.Failed {
		t.Fatal("seeded alignment failed")
	}
	if result.Alignment.Score != 0 {
		t.Errorf("seeded score %v, expected 0", result.Alignment.Score)
	}
	covered := make(map[int64]bool)
	for _, mapping := range result.Alignment.Path.Mapping {
		covered[mapping.Position.NodeID] = true
	}
	for id := int64(5); id <= 15; id++ {
		if !covered[id] {
			t.Errorf("seeded path misses node %v", id)
		}
	}
}

func randomSequence(r *rand.Rand, length int) string {
	const bases = "ACGT"
	result := make([]byte, length)
	for i := range result {
		result[i] = bases[r.Intn(4)]
	}
	return string(result)
}

// randomCyclicGraph builds a random graph whose nodes all sit on a
// cycle, so that the N padding of short reads keeps matching and no
// block gets trimmed as wrongly aligned.
func randomCyclicGraph(r *rand.Rand) *graph.Graph {
	nodeCount := 3 + r.Intn(8)
	nodes := make(map[int64]string, nodeCount)
	var edges [][2]int64
	for id := int64(1); id <= int64(nodeCount); id++ {
		nodes[id] = randomSequence(r, 1+r.Intn(4))
		next := id + 1
		if next > int64(nodeCount) {
			next = 1
		}
		edges = append(edges, [2]int64{id, next})
	}
	for i := 0; i < r.Intn(2*nodeCount); i++ {
		edges = append(edges, [2]int64{int64(1 + r.Intn(nodeCount)), int64(1 + r.Intn(nodeCount))})
	}
	return buildTestGraph(nodes, edges...)
}

// randomWalkRead samples a read by walking the forward strand of the
// graph and mutating a few bases.
func randomWalkRead(r *rand.Rand, g *graph.Graph, length int, errorRate float64) string {
	const bases = "ACGT"
	start := g.DummyNodeStart() + 1 + r.Intn(g.DummyNodeEnd()-g.DummyNodeStart()-1)
	p := g.NodeStart(start)
	result := make([]byte, 0, length)
	for len(result) < length {
		c := g.NodeSequences(p)
		if r.Float64() < errorRate {
			c = bases[r.Intn(4)]
		}
		result = append(result, c)
		v := g.IndexToNode(p)
		if p+1 < g.NodeEnd(v) {
			p++
			continue
		}
		neighbors := g.OutNeighbors(v)
		var real []int
		for _, neighbor := range neighbors {
			if neighbor != g.DummyNodeEnd() {
				real = append(real, neighbor)
			}
		}
		if len(real) == 0 {
			break
		}
		p = g.NodeStart(real[r.Intn(len(real))])
	}
	return string(result)
}

func basePredecessors(g *graph.Graph, p int) []int {
	v := g.IndexToNode(p)
	if p == g.NodeStart(v) {
		var result []int
		for _, u := range g.InNeighbors(v) {
			result = append(result, g.NodeEnd(u)-1)
		}
		return result
	}
	return []int{p - 1}
}

// referencePaddedScore is a Bellman-Ford edit distance over the
// product of the graph and the padded read, with a free start at
// every base.
func referencePaddedScore(g *graph.Graph, read string) int {
	padded := padToWord(read)
	size := g.SizeInBp()
	prev := make([]int, size)
	cur := make([]int, size)
	for r := 0; r < len(padded); r++ {
		for p := 0; p < size; p++ {
			best := prev[p] + 1
			cost := 1
			if characterMatch(padded[r], g.NodeSequences(p)) {
				cost = 0
			}
			for _, q := range basePredecessors(g, p) {
				if prev[q]+cost < best {
					best = prev[q] + cost
				}
			}
			cur[p] = best
		}
		for changed := true; changed; {
			changed = false
			for p := 0; p < size; p++ {
				for _, q := range basePredecessors(g, p) {
					if cur[q]+1 < cur[p] {
						cur[p] = cur[q] + 1
						changed = true
					}
				}
			}
		}
		prev, cur = cur, prev
	}
	best := prev[0]
	for _, value := range prev {
		if value < best {
			best = value
		}
	}
	return best
}

func enginePaddedScore(g *graph.Graph, read string, params Params) int {
	e := newEngine(g, params.withDefaults())
	score, _, _ := e.getBacktraceFullStart(read)
	return score
}

func TestEngineAgainstReference(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	for round := 0; round < 50; round++ {
		g := randomCyclicGraph(r)
		read := randomWalkRead(r, g, 10+r.Intn(50), 0.1)
		expected := referencePaddedScore(g, read)
		got := enginePaddedScore(g, read, testParams(wordSize))
		if got != expected {
			t.Errorf("round %v: engine score %v, reference %v (read %v)", round, got, expected, read)
		}
	}
}

func TestEngineAgainstReferenceLongReads(t *testing.T) {
	r := rand.New(rand.NewSource(10))
	for round := 0; round < 20; round++ {
		g := randomCyclicGraph(r)
		read := randomWalkRead(r, g, 100+r.Intn(100), 0.1)
		expected := referencePaddedScore(g, read)
		got := enginePaddedScore(g, read, testParams(wordSize))
		if got != expected {
			t.Errorf("round %v: engine score %v, reference %v", round, got, expected)
		}
	}
}

func TestMethodAgreement(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for round := 0; round < 30; round++ {
		g := randomCyclicGraph(r)
		read := randomWalkRead(r, g, 20+r.Intn(120), 0.1)
		bitParallel := testParams(wordSize)
		bitParallel.AlternateMethodCutoff = 1 << 30
		alternate := testParams(wordSize)
		alternate.AlternateMethodCutoff = 1
		bitScore := enginePaddedScore(g, read, bitParallel)
		altScore := enginePaddedScore(g, read, alternate)
		if bitScore != altScore {
			t.Errorf("round %v: bit-parallel score %v, alternate score %v", round, bitScore, altScore)
		}
	}
}

func TestBandwidthMonotonicity(t *testing.T) {
	r := rand.New(rand.NewSource(12))
	for round := 0; round < 20; round++ {
		g := randomCyclicGraph(r)
		read := randomWalkRead(r, g, 80+r.Intn(80), 0.2)
		previous := infinity
		for _, bandwidth := range []int{2, 4, 8, 16, 64} {
			score := enginePaddedScore(g, read, testParams(bandwidth))
			if score > previous {
				t.Errorf("round %v: bandwidth %v scored %v, worse than narrower band %v", round, bandwidth, score, previous)
			}
			previous = score
		}
	}
}

func TestRampDoesNotChangeCleanAlignments(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	for round := 0; round < 10; round++ {
		g := randomCyclicGraph(r)
		read := randomWalkRead(r, g, 100+r.Intn(60), 0.05)
		plain := NewAligner(g, testParams(8)).AlignOneWay("read", read)
		ramped := NewAligner(g, Params{InitialBandwidth: 8, RampBandwidth: 16}).AlignOneWay("read", read)
		if plain.Failed != ramped.Failed {
			t.Fatalf("round %v: ramp changed failure status", round)
		}
		if plain.Failed {
			continue
		}
		if len(plain.Trace) != len(ramped.Trace) {
			t.Errorf("round %v: ramp changed the trace length", round)
			continue
		}
		for i := range plain.Trace {
			if plain.Trace[i] != ramped.Trace[i] {
				t.Errorf("round %v: ramp changed trace item %v", round, i)
				break
			}
		}
	}
}

func TestTraceCostMatchesScore(t *testing.T) {
	r := rand.New(rand.NewSource(14))
	for round := 0; round < 20; round++ {
		g := randomCyclicGraph(r)
		read := randomWalkRead(r, g, 30+r.Intn(100), 0.1)
		result := NewAligner(g, testParams(wordSize)).AlignOneWay("read", read)
		if result.Failed {
			t.Fatalf("round %v: alignment failed", round)
		}
		if int(result.Alignment.Score) != traceCost(result.Trace) {
			t.Errorf("round %v: score %v does not match trace cost %v", round, result.Alignment.Score, traceCost(result.Trace))
		}
		for i := 1; i < len(result.Trace); i++ {
			if result.Trace[i].ReadPos < result.Trace[i-1].ReadPos {
				t.Errorf("round %v: trace read positions decreased", round)
				break
			}
		}
	}
}

func TestIUPACReadCharacters(t *testing.T) {
	g := buildTestGraph(map[int64]string{1: "ACGTACGT"})
	aligner := NewAligner(g, testParams(8))
	// R covers A and G, N covers everything
	result := aligner.AlignOneWay("read1", "RCGTNCGT")
	if result.Failed {
		t.Fatal("IUPAC alignment failed")
	}
	if result.Alignment.Score != 0 {
		t.Errorf("IUPAC score %v, expected 0", result.Alignment.Score)
	}
}
