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

// Package align aligns reads against a sequence graph with a
// bit-parallel banded dynamic program: per 64-row read block it
// projects a band of graph nodes forward from the previous minimum,
// advances every in-band column with the Myers recurrence (iterating
// within strongly connected components), samples checkpoint slices,
// and backtraces through them to recover the edit path.
package align

import (
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/exascience/elalign/graph"
	"github.com/exascience/elalign/seeds"
	"github.com/exascience/elalign/vg"

	"github.com/willf/bitset"
)

const noComponent = -1

// Params configure the aligner.
type Params struct {
	// InitialBandwidth is the default score radius of the band.
	InitialBandwidth int
	// RampBandwidth, when nonzero, is the wider radius used to retry
	// a region where the correctness estimator lost the alignment.
	RampBandwidth int
	// AlternateMethodCutoff is the band size in base pairs at or
	// above which the cell-by-cell method replaces the bit-parallel one.
	AlternateMethodCutoff int
	// BacktraceOverrideCutoff is the band size in cells above which
	// per-cell predecessors are recorded instead of checkpoints.
	BacktraceOverrideCutoff int
	// DynamicRowStart is accepted for compatibility and not consumed
	// by the alignment entry points.
	DynamicRowStart int
}

const (
	// DefaultAlternateMethodCutoff is the default band size in base
	// pairs at or above which the cell-by-cell method is used.
	DefaultAlternateMethodCutoff = 10000
	// DefaultBacktraceOverrideCutoff is the default band size in
	// cells above which dense runs record per-cell predecessors.
	DefaultBacktraceOverrideCutoff = 200000
)

func (p Params) withDefaults() Params {
	if p.AlternateMethodCutoff == 0 {
		p.AlternateMethodCutoff = DefaultAlternateMethodCutoff
	}
	if p.BacktraceOverrideCutoff == 0 {
		p.BacktraceOverrideCutoff = DefaultBacktraceOverrideCutoff
	}
	return p
}

// A TraceType classifies one step of an alignment trace.
type TraceType int

// The trace step kinds.
const (
	TraceMatch TraceType = iota
	TraceMismatch
	TraceInsertion
	TraceDeletion
	TraceForwardBackwardSplit
)

// A TraceItem describes one step of the alignment path.
type TraceItem struct {
	NodeID    int64
	Reverse   bool
	Offset    int
	ReadPos   int
	Type      TraceType
	GraphChar byte
	ReadChar  byte
}

// An AlignmentResult is the outcome of aligning one read.
type AlignmentResult struct {
	Alignment           *vg.Alignment
	Failed              bool
	CellsProcessed      int
	ElapsedMilliseconds int64
	Trace               []TraceItem
	AlignmentStart      int
	AlignmentEnd        int
}

// An Aligner aligns reads against one finalized graph. It is safe
// for concurrent use; each alignment borrows a pooled per-worker
// engine holding the scratch state.
type Aligner struct {
	graph   *graph.Graph
	params  Params
	engines sync.Pool
}

// NewAligner creates an aligner for the given graph.
func NewAligner(g *graph.Graph, params Params) *Aligner {
	if !g.Finalized() {
		log.Panic("aligning against a graph that is not finalized")
	}
	params = params.withDefaults()
	a := &Aligner{graph: g, params: params}
	a.engines.New = func() interface{} { return newEngine(g, params) }
	return a
}

// An engine holds the per-worker scratch state: the dense node map
// backing live slices, the band bitsets, the component labels, and
// the work queues. Engines are never shared between goroutines.
type engine struct {
	graph           *graph.Graph
	params          Params
	vectorMap       []mapItem
	currentBand     *bitset.BitSet
	previousBand    *bitset.BitSet
	partOfComponent []int
	calculables     *uniqueQueue
	processed       *bitset.BitSet
}

func newEngine(g *graph.Graph, params Params) *engine {
	e := &engine{
		graph:           g,
		params:          params,
		vectorMap:       make([]mapItem, g.NodeSize()),
		currentBand:     bitset.New(uint(g.NodeSize())),
		previousBand:    bitset.New(uint(g.NodeSize())),
		partOfComponent: make([]int, g.NodeSize()),
		calculables:     newUniqueQueue(g.NodeSize()),
		processed:       bitset.New(uint(g.SizeInBp())),
	}
	for i := range e.partOfComponent {
		e.partOfComponent[i] = noComponent
	}
	return e
}

// releaseEngine returns an engine to the pool, except while a panic
// unwinds: an engine abandoned mid-alignment has dirty scratch state
// and must not be reused.
func (a *Aligner) releaseEngine(e *engine) {
	if r := recover(); r != nil {
		panic(r)
	}
	a.engines.Put(e)
}

func padToWord(sequence string) string {
	padding := (wordSize - len(sequence)%wordSize) % wordSize
	if padding == 0 {
		return sequence
	}
	return sequence + strings.Repeat("N", padding)
}

func (a *Aligner) emptyAlignment(elapsedMilliseconds int64, cellsProcessed int) AlignmentResult {
	return AlignmentResult{
		Alignment:           &vg.Alignment{Score: math.MaxInt64},
		Failed:              true,
		CellsProcessed:      cellsProcessed,
		ElapsedMilliseconds: elapsedMilliseconds,
	}
}

// AlignOneWay aligns a read without seeds, starting from every node
// of the graph.
func (a *Aligner) AlignOneWay(seqID, sequence string) AlignmentResult {
	e := a.engines.Get().(*engine)
	defer a.releaseEngine(e)
	timeStart := time.Now()
	score, trace, cellsProcessed := e.getBacktraceFullStart(sequence)
	elapsed := time.Since(timeStart).Milliseconds()
	// failed alignment, don't output
	if score == infinity || len(trace) == 0 {
		return a.emptyAlignment(elapsed, cellsProcessed)
	}
	result := e.traceToAlignment(seqID, sequence, score, trace, cellsProcessed)
	if result.Failed {
		result.ElapsedMilliseconds = elapsed
		return result
	}
	result.Trace = e.getTraceInfo(sequence, nil, trace)
	// the table minimum includes the padding rows; the cost of the
	// stripped trace is the score of the read actually aligned
	result.Alignment.Score = int64(traceCost(result.Trace))
	result.AlignmentStart = trace[0].row
	result.AlignmentEnd = trace[len(trace)-1].row
	result.ElapsedMilliseconds = time.Since(timeStart).Milliseconds()
	return result
}

// traceCost counts the edits in a trace: matches are free, and the
// split marker costs whatever the seed cell's character comparison
// says.
func traceCost(items []TraceItem) int {
	cost := 0
	for _, item := range items {
		switch item.Type {
		case TraceMatch:
		case TraceForwardBackwardSplit:
			if !characterMatch(item.ReadChar, item.GraphChar) {
				cost++
			}
		default:
			cost++
		}
	}
	return cost
}

type nodeSpan struct {
	startIndex int
	endIndex   int
	node       int
}

// AlignOneWaySeeded aligns a read anchored at seed hits: the read is
// split at each seed into a reverse-complement backward part and a
// forward part, both are aligned, and the best seed's traces are
// merged. Seeds whose node and read span were already covered by an
// earlier seed's trace are skipped.
func (a *Aligner) AlignOneWaySeeded(seqID, sequence string, seedHits []seeds.Hit) AlignmentResult {
	e := a.engines.Get().(*engine)
	defer a.releaseEngine(e)
	timeStart := time.Now()
	assert(len(seedHits) > 0, "seeded alignment without seeds")
	var bestCorrectlyAligned int
	var bestSeed seeds.Hit
	var tried []nodeSpan
	var bestForwardScore, bestBackwardScore int
	var bestForwardTrace, bestBackwardTrace []matrixPosition
	hasAlignment := false
	for i, seedHit := range seedHits {
		log.Printf("seed %v/%v %v%v,%v", i, len(seedHits), seedHit.NodeID, strandMark(seedHit.Reverse), seedHit.ReadOffset)
		nodeIndex := a.graph.Lookup(seedHit.NodeID * 2)
		if nodeIndex < 0 {
			log.Panicf("seed references unknown node %v", seedHit.NodeID)
		}
		covered := false
		for _, span := range tried {
			if span.startIndex <= seedHit.ReadOffset && span.endIndex >= seedHit.ReadOffset && span.node == nodeIndex {
				covered = true
				break
			}
		}
		if covered {
			log.Printf("seed %v already aligned", i)
			continue
		}
		split := e.getSplitAlignment(sequence, seedHit.NodeID, seedHit.Reverse, seedHit.ReadOffset)
		forwardScore, forwardTrace, backwardScore, backwardTrace := e.getPiecewiseTracesFromSplit(&split, sequence)
		tried = addAlignmentNodes(a.graph, tried, forwardTrace)
		tried = addAlignmentNodes(a.graph, tried, backwardTrace)
		if !hasAlignment || split.estimatedCorrectlyAligned() > bestCorrectlyAligned {
			bestForwardScore, bestForwardTrace = forwardScore, forwardTrace
			bestBackwardScore, bestBackwardTrace = backwardScore, backwardTrace
			bestSeed = seedHit
			bestCorrectlyAligned = split.estimatedCorrectlyAligned()
			hasAlignment = true
		}
	}
	elapsed := time.Since(timeStart).Milliseconds()
	// failed alignment, don't output
	if !hasAlignment {
		return a.emptyAlignment(elapsed, 0)
	}
	if bestForwardScore == infinity && bestBackwardScore == infinity {
		return a.emptyAlignment(elapsed, 0)
	}

	traceItems := e.getTraceInfo(sequence, bestBackwardTrace, bestForwardTrace)

	fwresult := e.traceToAlignment(seqID, sequence, bestForwardScore, bestForwardTrace, 0)
	bwresult := e.traceToAlignment(seqID, sequence, bestBackwardScore, bestBackwardTrace, 0)
	// failed alignment, don't output
	if fwresult.Failed && bwresult.Failed {
		return a.emptyAlignment(elapsed, 0)
	}
	result := a.mergeAlignments(bwresult, fwresult)
	result.Trace = traceItems
	result.Alignment.Score = int64(traceCost(traceItems))
	lastAligned := 0
	if len(bestBackwardTrace) > 0 {
		lastAligned = bestBackwardTrace[0].row
	} else {
		lastAligned = bestSeed.ReadOffset
		assert(len(bestForwardTrace) > 0, "best alignment without any trace")
	}
	result.Alignment.QueryPosition = int64(lastAligned)
	result.AlignmentStart = lastAligned
	result.AlignmentEnd = result.AlignmentStart + bestCorrectlyAligned
	result.ElapsedMilliseconds = time.Since(timeStart).Milliseconds()
	return result
}

func strandMark(reverse bool) string {
	if reverse {
		return "-"
	}
	return "+"
}

func addAlignmentNodes(g *graph.Graph, tried []nodeSpan, trace []matrixPosition) []nodeSpan {
	if len(trace) == 0 {
		return tried
	}
	oldNode := g.IndexToNode(trace[0].index)
	startIndex := trace[0].row
	endIndex := trace[0].row
	for i := 1; i < len(trace); i++ {
		node := g.IndexToNode(trace[i].index)
		index := trace[i].row
		if node != oldNode {
			tried = append(tried, nodeSpan{startIndex, endIndex, oldNode})
			startIndex = index
			oldNode = node
		}
		endIndex = index
	}
	return append(tried, nodeSpan{startIndex, endIndex, oldNode})
}

// A twoDirectionalSplit is a seeded alignment's pair of directional
// tables: backward over the reverse complement of the read up to the
// seed, forward from the seed on.
type twoDirectionalSplit struct {
	sequenceSplitIndex int
	forward            dpTable
	backward           dpTable
}

func (s *twoDirectionalSplit) estimatedCorrectlyAligned() int {
	return (len(s.forward.bandwidthPerSlice) + len(s.backward.bandwidthPerSlice)) * wordSize
}

func (e *engine) getSplitAlignment(sequence string, matchBigraphNodeID int64, matchBigraphNodeBackwards bool, matchSequencePosition int) twoDirectionalSplit {
	assert(matchSequencePosition >= 0, "seed before the read start")
	assert(matchSequencePosition < len(sequence), "seed past the read end")
	var forwardNode, backwardNode int
	var result twoDirectionalSplit
	result.sequenceSplitIndex = matchSequencePosition
	if matchBigraphNodeBackwards {
		forwardNode = e.graph.Lookup(matchBigraphNodeID*2 + 1)
		backwardNode = e.graph.Lookup(matchBigraphNodeID * 2)
	} else {
		forwardNode = e.graph.Lookup(matchBigraphNodeID * 2)
		backwardNode = e.graph.Lookup(matchBigraphNodeID*2 + 1)
	}
	if forwardNode < 0 || backwardNode < 0 {
		log.Panicf("seed references unknown node %v", matchBigraphNodeID)
	}
	assert(e.graph.NodeLength(forwardNode) == e.graph.NodeLength(backwardNode), "strand lengths differ")
	if matchSequencePosition > 0 {
		assert(len(sequence) >= matchSequencePosition+e.graph.DBGOverlap(), "seed overlap past the read end")
		backwardPart := padToWord(graph.ReverseComplement(sequence[:matchSequencePosition+e.graph.DBGOverlap()]))
		backwardInitial := e.initialSliceOneNode(backwardNode)
		samplingFrequency := getSamplingFrequency(len(backwardPart))
		backwardTable := e.getSqrtSlices(backwardPart, backwardInitial, len(backwardPart)/wordSize, samplingFrequency)
		removeWronglyAlignedEnd(&backwardTable)
		result.backward = backwardTable
	}
	if matchSequencePosition < len(sequence)-1 {
		forwardPart := padToWord(sequence[matchSequencePosition:])
		forwardInitial := e.initialSliceOneNode(forwardNode)
		samplingFrequency := getSamplingFrequency(len(forwardPart))
		forwardTable := e.getSqrtSlices(forwardPart, forwardInitial, len(forwardPart)/wordSize, samplingFrequency)
		removeWronglyAlignedEnd(&forwardTable)
		result.forward = forwardTable
	}
	return result
}

func (e *engine) reverseTrace(trace []matrixPosition, end int) []matrixPosition {
	if len(trace) == 0 {
		return trace
	}
	for i, j := 0, len(trace)-1; i < j; i, j = i+1, j-1 {
		trace[i], trace[j] = trace[j], trace[i]
	}
	for i := range trace {
		trace[i].index = e.graph.GetReversePosition(trace[i].index)
		assert(trace[i].row <= end, "trace row past the split")
		trace[i].row = end - trace[i].row
	}
	return trace
}

func (e *engine) getPiecewiseTracesFromSplit(split *twoDirectionalSplit, sequence string) (forwardScore int, forwardTrace []matrixPosition, backwardScore int, backwardTrace []matrixPosition) {
	if split.sequenceSplitIndex < len(sequence)-1 && len(split.forward.slices) > 0 {
		backtraceableSize := len(sequence) - split.sequenceSplitIndex - e.graph.DBGOverlap()
		backtraceSequence := padToWord(sequence[split.sequenceSplitIndex:])
		forwardScore, forwardTrace = e.getTraceFromTable(backtraceSequence, &split.forward)
		for len(forwardTrace) > 0 && forwardTrace[len(forwardTrace)-1].row >= backtraceableSize {
			forwardTrace = forwardTrace[:len(forwardTrace)-1]
		}
		for i := range forwardTrace {
			forwardTrace[i].row += split.sequenceSplitIndex
		}
	}
	if split.sequenceSplitIndex > 0 && len(split.backward.slices) > 0 {
		backtraceableSize := split.sequenceSplitIndex
		backwardSequence := padToWord(graph.ReverseComplement(sequence[:split.sequenceSplitIndex+e.graph.DBGOverlap()]))
		backwardScore, backwardTrace = e.getTraceFromTable(backwardSequence, &split.backward)
		for len(backwardTrace) > 0 && backwardTrace[len(backwardTrace)-1].row >= backtraceableSize {
			backwardTrace = backwardTrace[:len(backwardTrace)-1]
		}
		backwardTrace = e.reverseTrace(backwardTrace, split.sequenceSplitIndex-1)
	}
	return forwardScore, forwardTrace, backwardScore, backwardTrace
}

func (e *engine) getBacktraceFullStart(sequence string) (int, []matrixPosition, int) {
	padded := padToWord(sequence)
	startSlice := e.initialSliceAllNodes()
	samplingFrequency := getSamplingFrequency(len(padded))
	table := e.getSqrtSlices(padded, startSlice, len(padded)/wordSize, samplingFrequency)
	removeWronglyAlignedEnd(&table)
	// a seed-free alignment must carry the read to its last row; a
	// trimmed table means the end was never aligned
	if len(table.bandwidthPerSlice) < len(padded)/wordSize {
		return infinity, nil, 0
	}
	score, trace := e.getTraceFromTable(padded, &table)
	if score == infinity || len(trace) == 0 {
		return infinity, nil, 0
	}
	for len(trace) > 0 && trace[len(trace)-1].row >= len(sequence) {
		trace = trace[:len(trace)-1]
	}
	assert(len(trace) > 0 && trace[0].row == 0, "trace does not cover the read")
	assert(trace[len(trace)-1].row == len(sequence)-1, "trace does not reach the read end")
	return score, trace, 0
}

// getTraceInfo turns backward and forward matrix traces into one edit
// script, with a split marker between the two directions.
func (e *engine) getTraceInfo(sequence string, bwtrace, fwtrace []matrixPosition) []TraceItem {
	var result []TraceItem
	if len(bwtrace) > 0 {
		result = append(result, e.getTraceInfoInner(sequence, bwtrace, true)...)
	}
	if len(bwtrace) > 0 && len(fwtrace) > 0 {
		nodeid := e.graph.IndexToNode(fwtrace[0].index)
		result = append(result, TraceItem{
			Type:      TraceForwardBackwardSplit,
			NodeID:    e.graph.NodeID(nodeid) / 2,
			Reverse:   e.graph.Reverse(nodeid),
			Offset:    fwtrace[0].index - e.graph.NodeStart(nodeid),
			ReadPos:   fwtrace[0].row,
			GraphChar: e.graph.NodeSequences(fwtrace[0].index),
			ReadChar:  sequence[fwtrace[0].row],
		})
	}
	if len(fwtrace) > 0 {
		// the forward trace's first cell is already covered, either
		// by the backward trace's items or by the split marker
		result = append(result, e.getTraceInfoInner(sequence, fwtrace, len(bwtrace) == 0)...)
	}
	return result
}

func (e *engine) getTraceInfoInner(sequence string, trace []matrixPosition, includeFirst bool) []TraceItem {
	var result []TraceItem
	if includeFirst && len(trace) > 0 {
		nodeIndex := e.graph.IndexToNode(trace[0].index)
		item := TraceItem{
			NodeID:    e.graph.NodeID(nodeIndex) / 2,
			Reverse:   e.graph.NodeID(nodeIndex)%2 == 1,
			Offset:    trace[0].index - e.graph.NodeStart(nodeIndex),
			ReadPos:   trace[0].row,
			GraphChar: e.graph.NodeSequences(trace[0].index),
			ReadChar:  sequence[trace[0].row],
		}
		if characterMatch(sequence[trace[0].row], e.graph.NodeSequences(trace[0].index)) {
			item.Type = TraceMatch
		} else {
			item.Type = TraceMismatch
		}
		result = append(result, item)
	}
	for i := 1; i < len(trace); i++ {
		newpos := trace[i]
		oldpos := trace[i-1]
		assert(newpos.row == oldpos.row || newpos.row == oldpos.row+1, "trace skipped rows")
		assert(newpos.row != oldpos.row || newpos.index != oldpos.index, "trace repeated a position")
		newNodeIndex := e.graph.IndexToNode(newpos.index)
		diagonal := newpos.row == oldpos.row+1
		if newpos.index == oldpos.index {
			// a one-node self-loop traversal is a valid diagonal
			selfLoop := false
			if diagonal && e.graph.NodeLength(newNodeIndex) == 1 {
				for _, neighbor := range e.graph.OutNeighbors(newNodeIndex) {
					if neighbor == newNodeIndex {
						selfLoop = true
						break
					}
				}
			}
			if !selfLoop {
				diagonal = false
			}
		}
		item := TraceItem{
			NodeID:    e.graph.NodeID(newNodeIndex) / 2,
			Reverse:   e.graph.NodeID(newNodeIndex)%2 == 1,
			Offset:    newpos.index - e.graph.NodeStart(newNodeIndex),
			ReadPos:   newpos.row,
			GraphChar: e.graph.NodeSequences(newpos.index),
			ReadChar:  sequence[newpos.row],
		}
		switch {
		case newpos.row == oldpos.row:
			item.Type = TraceDeletion
		case newpos.index == oldpos.index && !diagonal:
			item.Type = TraceInsertion
		default:
			assert(diagonal, "trace step neither diagonal nor axial")
			if characterMatch(sequence[newpos.row], e.graph.NodeSequences(newpos.index)) {
				item.Type = TraceMatch
			} else {
				item.Type = TraceMismatch
			}
		}
		result = append(result, item)
	}
	return result
}

// traceToAlignment converts a matrix trace into a vg alignment: one
// mapping per visited node, with the dummy source prefix stripped and
// the path cut at the dummy sink.
func (e *engine) traceToAlignment(seqID, sequence string, score int, trace []matrixPosition, cellsProcessed int) AlignmentResult {
	alignment := &vg.Alignment{Name: seqID, Score: int64(score), Sequence: sequence}
	if len(trace) == 0 {
		return AlignmentResult{Alignment: alignment, Failed: true, CellsProcessed: cellsProcessed}
	}
	pos := 0
	oldNode := e.graph.IndexToNode(trace[0].index)
	for oldNode == e.graph.DummyNodeStart() {
		pos++
		if pos == len(trace) {
			return e.failedAlignment(cellsProcessed)
		}
		assert(trace[pos].row >= trace[pos-1].row, "trace rows decreased")
		oldNode = e.graph.IndexToNode(trace[pos].index)
	}
	if oldNode == e.graph.DummyNodeEnd() {
		return e.failedAlignment(cellsProcessed)
	}
	rank := int64(0)
	mapping := vg.Mapping{
		Position: vg.Position{
			NodeID:    e.graph.NodeID(oldNode) / 2,
			IsReverse: e.graph.Reverse(oldNode),
			Offset:    int64(trace[pos].index - e.graph.NodeStart(oldNode)),
		},
		Rank: rank,
	}
	btNodeStart := trace[pos]
	btNodeEnd := trace[pos]
	btBeforeNode := trace[pos]
	for ; pos < len(trace); pos++ {
		if e.graph.IndexToNode(trace[pos].index) == e.graph.DummyNodeEnd() {
			break
		}
		if e.graph.IndexToNode(trace[pos].index) == oldNode {
			btNodeEnd = trace[pos]
			continue
		}
		assert(trace[pos].row >= trace[pos-1].row, "trace rows decreased")
		mapping.Edit = append(mapping.Edit, vg.Edit{
			FromLength: int64(btNodeEnd.index - btNodeStart.index + 1),
			ToLength:   int64(btNodeEnd.row - btBeforeNode.row),
			Sequence:   sequence[btNodeStart.row : btNodeStart.row+btNodeEnd.row-btBeforeNode.row],
		})
		alignment.Path.Mapping = append(alignment.Path.Mapping, mapping)
		oldNode = e.graph.IndexToNode(trace[pos].index)
		btBeforeNode = btNodeEnd
		btNodeStart = trace[pos]
		btNodeEnd = trace[pos]
		rank++
		mapping = vg.Mapping{
			Position: vg.Position{
				NodeID:    e.graph.NodeID(oldNode) / 2,
				IsReverse: e.graph.Reverse(oldNode),
				Offset:    int64(trace[pos].index - e.graph.NodeStart(oldNode)),
			},
			Rank: rank,
		}
	}
	mapping.Edit = append(mapping.Edit, vg.Edit{
		FromLength: int64(btNodeEnd.index - btNodeStart.index + 1),
		ToLength:   int64(btNodeEnd.row - btBeforeNode.row),
		Sequence:   sequence[btNodeStart.row : btNodeStart.row+btNodeEnd.row-btBeforeNode.row],
	})
	alignment.Path.Mapping = append(alignment.Path.Mapping, mapping)
	return AlignmentResult{Alignment: alignment, Failed: false, CellsProcessed: cellsProcessed}
}

func (e *engine) failedAlignment(cellsProcessed int) AlignmentResult {
	return AlignmentResult{
		Alignment:      &vg.Alignment{Score: math.MaxInt64},
		Failed:         true,
		CellsProcessed: cellsProcessed,
	}
}

func posEqual(pos1, pos2 vg.Position) bool {
	return pos1.NodeID == pos2.NodeID && pos1.IsReverse == pos2.IsReverse
}

// mergeAlignments joins a backward and a forward piecewise alignment
// into one path.
func (a *Aligner) mergeAlignments(first, second AlignmentResult) AlignmentResult {
	assert(!first.Failed || !second.Failed, "merging two failed alignments")
	if first.Failed {
		return second
	}
	if second.Failed {
		return first
	}
	if len(first.Alignment.Path.Mapping) == 0 {
		return second
	}
	if len(second.Alignment.Path.Mapping) == 0 {
		return first
	}
	var final AlignmentResult
	final.Failed = false
	final.CellsProcessed = first.CellsProcessed + second.CellsProcessed
	final.ElapsedMilliseconds = first.ElapsedMilliseconds + second.ElapsedMilliseconds
	merged := *first.Alignment
	merged.Path.Mapping = append([]vg.Mapping(nil), first.Alignment.Path.Mapping...)
	merged.Score = first.Alignment.Score + second.Alignment.Score
	final.Alignment = &merged
	start := 0
	firstEndPos := first.Alignment.Path.Mapping[len(first.Alignment.Path.Mapping)-1].Position
	secondStartPos := second.Alignment.Path.Mapping[0].Position
	if posEqual(firstEndPos, secondStartPos) {
		start = 1
	} else {
		firstEndNode := a.graph.Lookup(firstEndPos.NodeID*2 + reverseBit(firstEndPos.IsReverse))
		secondStartNode := a.graph.Lookup(secondStartPos.NodeID*2 + reverseBit(secondStartPos.IsReverse))
		connected := false
		if firstEndNode >= 0 && secondStartNode >= 0 {
			for _, neighbor := range a.graph.OutNeighbors(firstEndNode) {
				if neighbor == secondStartNode {
					connected = true
					break
				}
			}
		}
		if !connected {
			log.Printf("piecewise alignments can't be merged! first end: %v %v second start: %v %v",
				firstEndPos.NodeID, strandMark(firstEndPos.IsReverse), secondStartPos.NodeID, strandMark(secondStartPos.IsReverse))
		}
	}
	merged.Path.Mapping = append(merged.Path.Mapping, second.Alignment.Path.Mapping[start:]...)
	return final
}

func reverseBit(reverse bool) int64 {
	if reverse {
		return 1
	}
	return 0
}
