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

func (e *engine) getValue(slice *dpSlice, row, w int) int {
	node := e.graph.IndexToNode(w)
	return slice.scores.value(node, w-e.graph.NodeStart(node), row)
}

func (e *engine) getValueOrMax(slice *dpSlice, row, w, max int) int {
	node := e.graph.IndexToNode(w)
	if !slice.scores.hasNode(node) {
		return max
	}
	return slice.scores.value(node, w-e.graph.NodeStart(node), row)
}

// pickBacktracePredecessor finds the DP predecessor of one cell by
// probing the candidates in a fixed order: the horizontal neighbor in
// the same row, the diagonal above it, and the vertical cell above.
// At a node's first base the neighbors come from every in-edge's last
// base. Finding no candidate means the table is inconsistent, which
// is fatal.
func (e *engine) pickBacktracePredecessor(sequence string, slice *dpSlice, pos matrixPosition, previousSlice *dpSlice) matrixPosition {
	assert(pos.row >= slice.j, "position above the slice")
	assert(pos.row < slice.j+wordSize, "position below the slice")
	nodeIndex := e.graph.IndexToNode(pos.index)
	assert(slice.scores.hasNode(nodeIndex), "position outside the slice's band")
	scoreHere := e.getValue(slice, pos.row-slice.j, pos.index)
	if pos.row == 0 && previousSlice.scores.hasNode(nodeIndex) && (scoreHere == 0 || scoreHere == 1) {
		return matrixPosition{pos.index, pos.row - 1}
	}
	match := characterMatch(sequence[pos.row], e.graph.NodeSequences(pos.index))
	probe := func(u int) (matrixPosition, bool) {
		horizontalScore := e.getValueOrMax(slice, pos.row-slice.j, u, len(sequence))
		if horizontalScore == scoreHere-1 {
			return matrixPosition{u, pos.row}, true
		}
		var diagonalScore int
		if pos.row == slice.j {
			diagonalScore = e.getValueOrMax(previousSlice, wordSize-1, u, len(sequence))
		} else {
			diagonalScore = e.getValueOrMax(slice, pos.row-1-slice.j, u, len(sequence))
		}
		if match {
			if diagonalScore == scoreHere {
				return matrixPosition{u, pos.row - 1}, true
			}
		} else {
			if diagonalScore == scoreHere-1 {
				return matrixPosition{u, pos.row - 1}, true
			}
		}
		return matrixPosition{}, false
	}
	if pos.index == e.graph.NodeStart(nodeIndex) {
		for _, neighbor := range e.graph.InNeighbors(nodeIndex) {
			if result, found := probe(e.graph.NodeEnd(neighbor) - 1); found {
				return result
			}
		}
	} else {
		if result, found := probe(pos.index - 1); found {
			return result
		}
	}
	var scoreUp int
	if pos.row == slice.j {
		assert(previousSlice.j+wordSize == slice.j, "previous slice out of order")
		scoreUp = e.getValueOrMax(previousSlice, wordSize-1, pos.index, len(sequence))
	} else {
		scoreUp = e.getValueOrMax(slice, pos.row-1-slice.j, pos.index, len(sequence))
	}
	if scoreUp == scoreHere-1 {
		return matrixPosition{pos.index, pos.row - 1}
	}
	log.Panic("no backtrace predecessor found")
	return pos
}

// getTraceFromSlice walks one slice upward from pos to the slice's
// first row. The trace comes out backwards.
func (e *engine) getTraceFromSlice(sequence string, slice *dpSlice, pos matrixPosition) []matrixPosition {
	assert(pos.row >= slice.j, "position above the slice")
	assert(pos.row < slice.j+wordSize, "position below the slice")
	var result []matrixPosition
	for pos.row != slice.j {
		assert(slice.scores.hasNode(e.graph.IndexToNode(pos.index)), "trace left the band")
		pos = e.pickBacktracePredecessor(sequence, slice, pos, slice)
		result = append(result, pos)
	}
	return result
}

// getSliceBoundaryTrace continues the trace across a slice boundary:
// from the first row of the later slice into the last row of the
// earlier one. The trace comes out backwards.
func (e *engine) getSliceBoundaryTrace(sequence string, after, before *dpSlice, afterColumn int) []matrixPosition {
	pos := matrixPosition{afterColumn, after.j}
	assert(after.j == before.j+wordSize, "boundary between non-adjacent slices")
	var result []matrixPosition
	for pos.row == after.j {
		assert(after.scores.hasNode(e.graph.IndexToNode(pos.index)), "trace left the band")
		pos = e.pickBacktracePredecessor(sequence, after, pos, before)
		result = append(result, pos)
	}
	return result
}

// getTraceFromTableInner walks a run of recomputed slices from pos up
// to the run's first row. The trace comes out backwards.
func (e *engine) getTraceFromTableInner(sequence string, table []*dpSlice, pos matrixPosition) []matrixPosition {
	assert(len(table) > 0, "empty recomputed run")
	assert(pos.row >= table[len(table)-1].j, "position above the run")
	assert(pos.row < table[len(table)-1].j+wordSize, "position below the run")
	result := []matrixPosition{pos}
	for slice := len(table) - 1; slice >= 0; slice-- {
		assert(table[slice].j <= result[len(result)-1].row, "trace out of order")
		partialTrace := e.getTraceFromSlice(sequence, table[slice], result[len(result)-1])
		result = append(result, partialTrace...)
		assert(result[len(result)-1].row == table[slice].j, "trace did not reach the slice top")
		if slice > 0 {
			boundaryTrace := e.getSliceBoundaryTrace(sequence, table[slice], table[slice-1], result[len(result)-1].index)
			result = append(result, boundaryTrace...)
		}
	}
	assert(result[len(result)-1].row == table[0].j, "trace did not reach the run top")
	return result
}

// getTraceFromTable walks the whole table backwards from the last
// block's minimum, recomputing the slices between checkpoints and
// splicing in the recorded predecessors over override runs.
func (e *engine) getTraceFromTable(sequence string, table *dpTable) (int, []matrixPosition) {
	assert(len(table.bandwidthPerSlice) == len(table.correctness), "table bookkeeping out of sync")
	assert(len(sequence)%wordSize == 0, "read not padded to whole blocks")
	if len(table.slices) == 0 {
		return infinity, nil
	}
	if len(table.bandwidthPerSlice) == 0 {
		return infinity, nil
	}
	assert(table.samplingFrequency > 1, "sampling frequency too small")
	score := 0
	var trace []matrixPosition
	backtraceOverrideIndex := len(table.backtraceOverrides) - 1
	lastBacktraceOverrideStartJ := infinity
	nextBacktraceOverrideEndJ := -1
	if len(table.backtraceOverrides) > 0 {
		nextBacktraceOverrideEndJ = table.backtraceOverrides[backtraceOverrideIndex].endj
	}
	for i := len(table.slices) - 1; i >= 0; i-- {
		if (table.slices[i].j+wordSize)/wordSize == len(table.bandwidthPerSlice) {
			assert(i == len(table.slices)-1, "final checkpoint not last")
			last := table.slices[len(table.slices)-1]
			score = last.minScore
			trace = append(trace, matrixPosition{last.minScoreIndex[len(last.minScoreIndex)-1], last.j + wordSize - 1})
			continue
		}
		partTable := e.getSlicesFromTable(sequence, lastBacktraceOverrideStartJ, table, i)
		assert(len(partTable) > 0, "empty recomputed table")
		if i == len(table.slices)-1 {
			last := partTable[len(partTable)-1]
			score = last.minScore
			assert(len(last.minScoreIndex) > 0, "final slice without minimum cells")
			trace = append(trace, matrixPosition{last.minScoreIndex[len(last.minScoreIndex)-1], last.j + wordSize - 1})
		}
		partTrace := e.getTraceFromTableInner(sequence, partTable, trace[len(trace)-1])
		assert(len(partTrace) > 1, "degenerate trace")
		// the starting position was already inserted earlier
		trace = append(trace, partTrace[1:]...)
		boundaryTrace := e.getSliceBoundaryTrace(sequence, partTable[0], table.slices[i], trace[len(trace)-1].index)
		trace = append(trace, boundaryTrace...)
		assert(len(boundaryTrace) > 0, "empty boundary trace")
		if table.slices[i].j == nextBacktraceOverrideEndJ {
			overrideTrace := table.backtraceOverrides[backtraceOverrideIndex].getBacktrace(trace[len(trace)-1])
			trace = append(trace, overrideTrace[1:]...)
			lastBacktraceOverrideStartJ = table.backtraceOverrides[backtraceOverrideIndex].startj
			backtraceOverrideIndex--
			if backtraceOverrideIndex >= 0 {
				nextBacktraceOverrideEndJ = table.backtraceOverrides[backtraceOverrideIndex].endj
			} else {
				nextBacktraceOverrideEndJ = -1
			}
		}
	}
	assert(trace[len(trace)-1].row == -1, "trace did not reach the read start")
	trace = trace[:len(trace)-1]
	assert(trace[len(trace)-1].row == 0, "trace does not start at row zero")
	for i, j := 0, len(trace)-1; i < j; i, j = i+1, j-1 {
		trace[i], trace[j] = trace[j], trace[i]
	}
	return score, trace
}
