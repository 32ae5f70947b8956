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

// A backtraceOverride records, for a run of blocks whose band was too
// dense to recompute affordably, the predecessor of every cell that
// can be reached backwards from an end-exists cell of the run's last
// row. Storing the pointers eagerly trades memory for never having to
// recompute the dense slices.

type backtraceItem struct {
	end               bool
	previousInSameRow bool
	previousIndex     int
	pos               matrixPosition
}

type backtraceOverride struct {
	startj int
	endj   int
	items  [][]backtraceItem
}

func (e *engine) newBacktraceOverride(sequence string, previous *dpSlice, slices []*dpSlice) backtraceOverride {
	assert(len(slices) > 0, "override over no slices")
	result := backtraceOverride{
		startj: slices[0].j,
		endj:   slices[len(slices)-1].j,
		items:  make([][]backtraceItem, wordSize*len(slices)),
	}
	assert(result.endj == result.startj+(len(slices)-1)*wordSize, "override slices not contiguous")
	e.makeOverrideTrace(&result, sequence, previous, slices)
	return result
}

func (e *engine) addReachable(override *backtraceOverride, pos matrixPosition, row int, sequence string, previous *dpSlice, slices []*dpSlice, indexOfPos []map[int]int) {
	assert(row < len(indexOfPos), "row out of the override's range")
	if _, found := indexOfPos[row][pos.index]; found {
		return
	}
	indexOfPos[row][pos.index] = len(indexOfPos[row])
	if row > 0 && row%wordSize == wordSize-1 {
		sliceIndex := row / wordSize
		nodeIndex := e.graph.IndexToNode(pos.index)
		assert(slices[sliceIndex].scores.hasNode(nodeIndex), "reachable cell outside the band")
		offset := pos.index - e.graph.NodeStart(nodeIndex)
		if !slices[sliceIndex].scores.endScoreExists(nodeIndex, offset) {
			return
		}
	}
	assert(row == pos.row-slices[0].j, "row and position out of sync")
	sliceIndex := row / wordSize
	var predecessor matrixPosition
	if sliceIndex > 0 {
		predecessor = e.pickBacktracePredecessor(sequence, slices[sliceIndex], pos, slices[sliceIndex-1])
	} else {
		predecessor = e.pickBacktracePredecessor(sequence, slices[0], pos, previous)
	}
	assert(predecessor.row == pos.row || predecessor.row == pos.row-1, "predecessor skipped rows")
	if predecessor.row >= slices[0].j && predecessor.row != -1 {
		e.addReachable(override, predecessor, predecessor.row-slices[0].j, sequence, previous, slices, indexOfPos)
	}
}

func (e *engine) makeOverrideTrace(override *backtraceOverride, sequence string, previous *dpSlice, slices []*dpSlice) {
	indexOfPos := make([]map[int]int, len(override.items))
	for i := range indexOfPos {
		indexOfPos[i] = make(map[int]int)
	}
	endrow := len(override.items) - 1
	lastSlice := slices[len(slices)-1]
	endj := lastSlice.j + wordSize - 1
	for _, node := range lastSlice.scores.nodes {
		nodeStart := e.graph.NodeStart(node)
		length := lastSlice.scores.nodeLength(node)
		for i := 0; i < length; i++ {
			if lastSlice.scores.endScoreExists(node, i) {
				e.addReachable(override, matrixPosition{nodeStart + i, endj}, endrow, sequence, previous, slices, indexOfPos)
			}
		}
	}

	for row := len(override.items) - 1; row >= 0; row-- {
		override.items[row] = make([]backtraceItem, len(indexOfPos[row]))
		for w, index := range indexOfPos[row] {
			pos := matrixPosition{w, slices[0].j + row}
			override.items[row][index].pos = pos
			sliceIndex := row / wordSize
			if row%wordSize == wordSize-1 {
				nodeIndex := e.graph.IndexToNode(w)
				offset := w - e.graph.NodeStart(nodeIndex)
				assert(slices[sliceIndex].scores.hasNode(nodeIndex), "indexed cell outside the band")
				if !slices[sliceIndex].scores.endScoreExists(nodeIndex, offset) {
					override.items[row][index].end = true
					continue
				}
			}
			var predecessor matrixPosition
			if sliceIndex > 0 {
				predecessor = e.pickBacktracePredecessor(sequence, slices[sliceIndex], pos, slices[sliceIndex-1])
			} else {
				predecessor = e.pickBacktracePredecessor(sequence, slices[0], pos, previous)
			}
			if predecessor.row == pos.row {
				override.items[row][index].previousInSameRow = true
				override.items[row][index].previousIndex = indexOfPos[row][predecessor.index]
			} else {
				override.items[row][index].previousInSameRow = false
				if row != 0 {
					override.items[row][index].previousIndex = indexOfPos[row-1][predecessor.index]
				} else {
					override.items[row][index].previousIndex = predecessor.index
				}
			}
		}
	}
}

// getBacktrace returns the recorded trace backwards from start at the
// override's last row to one row above its first row.
func (o *backtraceOverride) getBacktrace(start matrixPosition) []matrixPosition {
	assert(len(o.items) > 0, "empty override")
	assert(len(o.items)%wordSize == 0, "override with partial blocks")
	last := o.items[len(o.items)-1]
	assert(len(last) > 0, "override without end cells")
	assert(last[0].pos.row == start.row, "backtrace start outside the override")
	currentIndex := -1
	currentRow := len(o.items) - 1
	var result []matrixPosition
	for i := range last {
		if last[i].pos == start {
			currentIndex = i
			break
		}
	}
	if currentIndex == -1 {
		log.Panic("backtrace start not recorded in override")
	}
	for {
		current := o.items[currentRow][currentIndex]
		assert(!current.end, "backtrace walked into an end cell")
		result = append(result, current.pos)
		if currentRow == 0 && !current.previousInSameRow {
			result = append(result, matrixPosition{current.previousIndex, current.pos.row - 1})
			break
		}
		currentIndex = current.previousIndex
		if !current.previousInSameRow {
			currentRow--
		}
	}
	return result
}
