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

import "log"

const infinity = int(^uint(0) >> 1)

// A mapItem locates one node's slice range inside a nodeSlice's
// backing storage. A zero sliceEnd marks an absent node.
type mapItem struct {
	sliceStart int
	sliceEnd   int
	minScore   int
}

const (
	tinyVP63 = 1 << iota
	tinyVN63
	tinyEndExists
)

// A tinySlice is the compact per-cell record kept in sqrt-sampled
// checkpoint slices: the end score, the end-exists flag, and the two
// top-row delta bits the next block's boundary diagonal consumes.
type tinySlice struct {
	scoreEnd int
	flags    uint8
}

// A nodeSlice associates in-band nodes with their word slices. Live
// slices borrow a caller-owned dense vector map so that lookups cost
// one index operation and no allocation; frozen slices own a small
// map instead and either full words or tiny end scores.
type nodeSlice struct {
	vectorMap []mapItem
	frozenMap map[int]mapItem
	nodes     []int
	words     []wordSlice
	tiny      []tinySlice
}

func newNodeSlice(vectorMap []mapItem) *nodeSlice {
	return &nodeSlice{vectorMap: vectorMap}
}

func (ns *nodeSlice) item(node int) mapItem {
	if ns.vectorMap != nil {
		return ns.vectorMap[node]
	}
	return ns.frozenMap[node]
}

func (ns *nodeSlice) hasNode(node int) bool {
	return ns.item(node).sliceEnd != 0
}

func (ns *nodeSlice) size() int { return len(ns.nodes) }

func (ns *nodeSlice) nodeLength(node int) int {
	item := ns.item(node)
	return item.sliceEnd - item.sliceStart
}

func (ns *nodeSlice) reserve(cells int) {
	if cap(ns.words) < cells {
		ns.words = make([]wordSlice, 0, cells)
	}
}

// addNode makes room for a node of the given length. Cells start out
// as zero-score slices with no confirmed rows.
func (ns *nodeSlice) addNode(node, length int) {
	assert(!ns.hasNode(node), "node added twice")
	start := len(ns.words)
	for i := 0; i < length; i++ {
		ns.words = append(ns.words, wordSlice{scoreEndExists: true})
	}
	item := mapItem{sliceStart: start, sliceEnd: start + length, minScore: infinity}
	if ns.vectorMap != nil {
		ns.vectorMap[node] = item
	} else {
		ns.frozenMap[node] = item
	}
	ns.nodes = append(ns.nodes, node)
}

// node returns the mutable word slices of a node. Only live and
// fully frozen slices carry them.
func (ns *nodeSlice) node(node int) []wordSlice {
	item := ns.item(node)
	assert(item.sliceEnd != 0, "node not present")
	if ns.words == nil {
		log.Panic("word slices requested from an end-scores-only slice")
	}
	return ns.words[item.sliceStart:item.sliceEnd]
}

// endSlice returns the word slice of one cell reduced to what the
// next block's recurrence consumes: the end score, the end-exists
// flag, and the top-row deltas.
func (ns *nodeSlice) endSlice(node, offset int) wordSlice {
	item := ns.item(node)
	if ns.words != nil {
		return ns.words[item.sliceStart+offset]
	}
	t := ns.tiny[item.sliceStart+offset]
	result := wordSlice{
		scoreEnd:       t.scoreEnd,
		confirmedRows:  rowConfirmation{wordSize, false},
		scoreEndExists: t.flags&tinyEndExists != 0,
	}
	const lastBitMask = uint64(1) << (wordSize - 1)
	if t.flags&tinyVP63 != 0 {
		result.VP = lastBitMask
	}
	if t.flags&tinyVN63 != 0 {
		result.VN = lastBitMask
	}
	result.scoreBeforeStart = result.scoreEnd - popcount(result.VP) + popcount(result.VN)
	return result
}

// value returns the score of one cell at the given row. End-scores-
// only slices keep just the last row.
func (ns *nodeSlice) value(node, offset, row int) int {
	item := ns.item(node)
	if ns.words != nil {
		return ns.words[item.sliceStart+offset].getValue(row)
	}
	assert(row == wordSize-1, "only the last row is kept in end-scores-only slices")
	return ns.tiny[item.sliceStart+offset].scoreEnd
}

func (ns *nodeSlice) endScore(node, offset int) int {
	item := ns.item(node)
	if ns.words != nil {
		return ns.words[item.sliceStart+offset].scoreEnd
	}
	return ns.tiny[item.sliceStart+offset].scoreEnd
}

func (ns *nodeSlice) endScoreExists(node, offset int) bool {
	item := ns.item(node)
	if ns.words != nil {
		return ns.words[item.sliceStart+offset].scoreEndExists
	}
	return ns.tiny[item.sliceStart+offset].flags&tinyEndExists != 0
}

func (ns *nodeSlice) minScore(node int) int {
	return ns.item(node).minScore
}

// setMinScore lowers the node's recorded minimum. A node can be
// recomputed several times within a block; each pass only covers the
// columns it confirmed, so the minimum accumulates.
func (ns *nodeSlice) setMinScore(node, score int) {
	if ns.vectorMap != nil {
		item := ns.vectorMap[node]
		if score < item.minScore {
			item.minScore = score
			ns.vectorMap[node] = item
		}
		return
	}
	item := ns.frozenMap[node]
	if score < item.minScore {
		item.minScore = score
		ns.frozenMap[node] = item
	}
}

// clearVectorMap resets the borrowed dense map so that the next slice
// can reuse it without reallocation.
func (ns *nodeSlice) clearVectorMap() {
	if ns.vectorMap == nil {
		return
	}
	for _, node := range ns.nodes {
		ns.vectorMap[node] = mapItem{}
	}
	ns.nodes = ns.nodes[:0]
	ns.words = ns.words[:0]
}

// frozenSqrt copies the slice into an owned end-scores-only form, the
// representation kept in sampled checkpoints.
func (ns *nodeSlice) frozenSqrt() *nodeSlice {
	result := &nodeSlice{
		frozenMap: make(map[int]mapItem, len(ns.nodes)),
		nodes:     append([]int(nil), ns.nodes...),
		tiny:      make([]tinySlice, 0, len(ns.words)+len(ns.tiny)),
	}
	const lastBitMask = uint64(1) << (wordSize - 1)
	for _, node := range ns.nodes {
		item := ns.item(node)
		start := len(result.tiny)
		if ns.words != nil {
			for _, w := range ns.words[item.sliceStart:item.sliceEnd] {
				t := tinySlice{scoreEnd: w.scoreEnd}
				if w.VP&lastBitMask != 0 {
					t.flags |= tinyVP63
				}
				if w.VN&lastBitMask != 0 {
					t.flags |= tinyVN63
				}
				if w.scoreEndExists {
					t.flags |= tinyEndExists
				}
				result.tiny = append(result.tiny, t)
			}
		} else {
			result.tiny = append(result.tiny, ns.tiny[item.sliceStart:item.sliceEnd]...)
		}
		result.frozenMap[node] = mapItem{sliceStart: start, sliceEnd: len(result.tiny), minScore: item.minScore}
	}
	return result
}

// frozenFull copies the slice into an owned full form, keeping every
// word. Used for the dense runs that feed backtrace overrides.
func (ns *nodeSlice) frozenFull() *nodeSlice {
	result := &nodeSlice{
		frozenMap: make(map[int]mapItem, len(ns.nodes)),
		nodes:     append([]int(nil), ns.nodes...),
		words:     make([]wordSlice, 0, len(ns.words)),
	}
	for _, node := range ns.nodes {
		item := ns.item(node)
		start := len(result.words)
		result.words = append(result.words, ns.words[item.sliceStart:item.sliceEnd]...)
		result.frozenMap[node] = mapItem{sliceStart: start, sliceEnd: len(result.words), minScore: item.minScore}
	}
	return result
}
