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

import "math"

// A matrixPosition addresses one cell of the DP matrix: a base
// position in the concatenated graph sequence and a read row.
type matrixPosition struct {
	index int
	row   int
}

// A dpSlice is one computed 64-row block: the in-band scores, the
// block minimum and where it occurs, and the correctness estimate up
// to this block.
type dpSlice struct {
	j              int
	scores         *nodeSlice
	nodes          []int
	minScore       int
	minScoreIndex  []int
	correctness    correctnessState
	cellsProcessed int
	numCells       int
}

func (s *dpSlice) estimatedMemoryUsage() int {
	return s.numCells*9 + s.scores.size()*28
}

func (s *dpSlice) frozenSqrtEndScores() *dpSlice {
	result := *s
	result.scores = s.scores.frozenSqrt()
	result.nodes = result.scores.nodes
	result.minScoreIndex = append([]int(nil), s.minScoreIndex...)
	return &result
}

func (s *dpSlice) frozenScores() *dpSlice {
	result := *s
	result.scores = s.scores.frozenFull()
	result.nodes = result.scores.nodes
	result.minScoreIndex = append([]int(nil), s.minScoreIndex...)
	return &result
}

// A dpTable records one directional alignment: sampled checkpoint
// slices, per-block bandwidths and correctness states, and the dense
// runs recorded as backtrace overrides.
type dpTable struct {
	slices             []*dpSlice
	samplingFrequency  int
	bandwidthPerSlice  []int
	correctness        []correctnessState
	backtraceOverrides []backtraceOverride
}

func (e *engine) extendDPSlice(previous *dpSlice, bandwidth int) *dpSlice {
	result := &dpSlice{
		j:           previous.j + wordSize,
		correctness: previous.correctness,
		scores:      newNodeSlice(e.vectorMap),
	}
	result.nodes = e.projectForwardFromMinScore(previous.minScore, previous, bandwidth)
	assert(len(result.nodes) > 0, "empty band")
	return result
}

func (e *engine) fillDPSlice(sequence string, slice, previousSlice *dpSlice) {
	sliceResult := e.calculateSlice(sequence, slice.j, slice.scores, previousSlice.scores, slice.nodes)
	slice.cellsProcessed = sliceResult.cellsProcessed
	slice.minScoreIndex = sliceResult.minScoreIndex
	slice.minScore = sliceResult.minScore
	assert(slice.minScore >= previousSlice.minScore, "slice minimum decreased")
	slice.correctness = slice.correctness.NextState(slice.minScore-previousSlice.minScore, wordSize)
}

// pickMethodAndExtendFill computes the next block, choosing the
// bit-parallel method when the band stays under the cutoff and the
// cell-by-cell alternate method for bands that reach it.
func (e *engine) pickMethodAndExtendFill(sequence string, previous *dpSlice, bandwidth int) *dpSlice {
	bandTest := e.extendDPSlice(previous, bandwidth)
	assert(len(sequence) >= bandTest.j+wordSize, "block beyond the padded read")
	cells := 0
	for _, node := range bandTest.nodes {
		cells += e.graph.NodeLength(node)
	}
	if cells < e.params.AlternateMethodCutoff {
		bandTest.scores.reserve(cells)
		for _, node := range bandTest.nodes {
			bandTest.scores.addNode(node, e.graph.NodeLength(node))
			e.currentBand.Set(uint(node))
		}
		e.fillDPSlice(sequence, bandTest, previous)
		bandTest.numCells = cells
		return bandTest
	}

	result := &dpSlice{
		j:           previous.j + wordSize,
		correctness: previous.correctness,
		scores:      newNodeSlice(e.vectorMap),
	}
	result.scores.reserve(e.params.AlternateMethodCutoff)
	sliceResult := e.calculateSliceAlternate(sequence, result.j, result.scores, previous, bandwidth)
	result.cellsProcessed = sliceResult.cellsProcessed
	result.minScoreIndex = sliceResult.minScoreIndex
	result.minScore = sliceResult.minScore
	assert(result.minScore >= previous.minScore, "slice minimum decreased")
	result.correctness = result.correctness.NextState(result.minScore-previous.minScore, wordSize)
	e.finalizeAlternateSlice(result, len(sequence), bandwidth)
	return result
}

// removeWronglyAlignedEnd trims the blocks past the point where the
// correctness estimator lost the alignment.
func removeWronglyAlignedEnd(table *dpTable) {
	if len(table.correctness) == 0 {
		table.slices = nil
		return
	}
	if len(table.correctness) == 1 {
		// a single-block table is kept as is: with the padding rows
		// dominating the only block there is nothing better to trim to
		return
	}
	currentlyCorrect := table.correctness[len(table.correctness)-1].CurrentlyCorrect()
	for !currentlyCorrect {
		table.correctness = table.correctness[:len(table.correctness)-1]
		table.bandwidthPerSlice = table.bandwidthPerSlice[:len(table.bandwidthPerSlice)-1]
		if len(table.correctness) == 0 {
			break
		}
		currentlyCorrect = table.correctness[len(table.correctness)-1].FalseFromCorrect()
	}
	if len(table.correctness) == 0 {
		table.slices = nil
	}
	for len(table.slices) > 1 && table.slices[len(table.slices)-1].j >= len(table.correctness)*wordSize {
		table.slices = table.slices[:len(table.slices)-1]
	}
}

func getSamplingFrequency(sequenceLen int) int {
	return maxInt(2, int(math.Sqrt(float64(sequenceLen/wordSize))))
}

// getSqrtSlices drives the whole read: per block it projects the
// band forward, computes the block, updates the correctness
// estimator, retries once at the ramp bandwidth when correctness is
// lost, tracks dense runs as backtrace overrides, and keeps sqrt
// sampled checkpoint slices.
func (e *engine) getSqrtSlices(sequence string, initialSlice *dpSlice, numSlices, samplingFrequency int) dpTable {
	assert(initialSlice.j == -wordSize, "initial slice must sit above the first block")
	assert(initialSlice.j+numSlices*wordSize <= len(sequence), "more blocks than the read has rows")
	var result dpTable
	result.samplingFrequency = samplingFrequency
	e.previousBand.ClearAll()
	e.currentBand.ClearAll()
	for _, node := range initialSlice.nodes {
		e.previousBand.Set(uint(node))
	}
	lastSlice := initialSlice.frozenSqrtEndScores()
	storeSlice := lastSlice
	assert(lastSlice.correctness.CurrentlyCorrect(), "initial slice already incorrect")
	rampSlice := lastSlice
	rampRedoIndex := -1
	rampUntil := -1
	backtraceOverridePreslice := lastSlice
	var backtraceOverrideTemps []*dpSlice
	backtraceOverriding := false
	for slice := 0; slice < numSlices; slice++ {
		bandwidth := e.params.InitialBandwidth
		if rampUntil >= slice && e.params.RampBandwidth != 0 {
			bandwidth = e.params.RampBandwidth
		}
		newSlice := e.pickMethodAndExtendFill(sequence, lastSlice, bandwidth)

		if rampUntil == slice && newSlice.numCells >= e.params.BacktraceOverrideCutoff {
			rampUntil++
		}
		if (rampUntil == slice-1 || (rampUntil < slice && newSlice.correctness.CurrentlyCorrect() && newSlice.correctness.FalseFromCorrect())) &&
			lastSlice.numCells < e.params.BacktraceOverrideCutoff {
			rampSlice = lastSlice
			rampRedoIndex = slice - 1
		}
		assert(newSlice.j == lastSlice.j+wordSize, "slice advanced by more than one block")

		if !newSlice.correctness.CorrectFromCorrect() {
			newSlice.scores.clearVectorMap()
			break
		}
		if !newSlice.correctness.CurrentlyCorrect() && rampUntil < slice && e.params.RampBandwidth > e.params.InitialBandwidth {
			for _, node := range newSlice.nodes {
				e.currentBand.Clear(uint(node))
			}
			for _, node := range lastSlice.nodes {
				e.previousBand.Clear(uint(node))
			}
			newSlice.scores.clearVectorMap()
			rampUntil = slice
			slice, rampRedoIndex = rampRedoIndex, slice
			lastSlice, rampSlice = rampSlice, lastSlice
			for _, node := range lastSlice.nodes {
				e.previousBand.Set(uint(node))
			}
			for len(result.bandwidthPerSlice) > slice+1 {
				result.bandwidthPerSlice = result.bandwidthPerSlice[:len(result.bandwidthPerSlice)-1]
			}
			for len(result.correctness) > slice+1 {
				result.correctness = result.correctness[:len(result.correctness)-1]
			}
			for len(result.slices) > 1 && result.slices[len(result.slices)-1].j > slice*wordSize {
				result.slices = result.slices[:len(result.slices)-1]
			}
			if backtraceOverriding {
				if backtraceOverridePreslice.j > lastSlice.j {
					backtraceOverriding = false
					backtraceOverrideTemps = nil
				} else {
					for len(backtraceOverrideTemps) > 0 && backtraceOverrideTemps[len(backtraceOverrideTemps)-1].j > lastSlice.j {
						backtraceOverrideTemps = backtraceOverrideTemps[:len(backtraceOverrideTemps)-1]
					}
				}
			}
			for len(result.backtraceOverrides) > 0 && result.backtraceOverrides[len(result.backtraceOverrides)-1].endj > lastSlice.j {
				result.backtraceOverrides = result.backtraceOverrides[:len(result.backtraceOverrides)-1]
			}
			continue
		}

		if !backtraceOverriding && newSlice.numCells >= e.params.BacktraceOverrideCutoff && lastSlice.numCells < e.params.BacktraceOverrideCutoff {
			backtraceOverridePreslice = lastSlice
			backtraceOverriding = true
			backtraceOverrideTemps = append(backtraceOverrideTemps, newSlice.frozenScores())
		} else if backtraceOverriding {
			if newSlice.numCells < e.params.BacktraceOverrideCutoff {
				assert(lastSlice.j == backtraceOverrideTemps[len(backtraceOverrideTemps)-1].j, "override run out of sync")
				result.backtraceOverrides = append(result.backtraceOverrides, e.newBacktraceOverride(sequence, backtraceOverridePreslice, backtraceOverrideTemps))
				backtraceOverriding = false
				override := &result.backtraceOverrides[len(result.backtraceOverrides)-1]
				for len(result.slices) > 0 {
					j := result.slices[len(result.slices)-1].j
					if j < override.startj || j > override.endj {
						break
					}
					result.slices = result.slices[:len(result.slices)-1]
				}
				result.slices = append(result.slices, lastSlice)
				storeSlice = newSlice.frozenSqrtEndScores()
				backtraceOverrideTemps = nil
			} else {
				backtraceOverrideTemps = append(backtraceOverrideTemps, newSlice.frozenScores())
			}
		}

		assert(len(result.bandwidthPerSlice) == slice, "bandwidth bookkeeping out of sync")
		result.bandwidthPerSlice = append(result.bandwidthPerSlice, bandwidth)
		result.correctness = append(result.correctness, newSlice.correctness)
		if slice%samplingFrequency == 0 {
			if len(result.slices) == 0 || storeSlice.j != result.slices[len(result.slices)-1].j {
				result.slices = append(result.slices, storeSlice)
				storeSlice = newSlice.frozenSqrtEndScores()
			}
		}
		if newSlice.estimatedMemoryUsage() < storeSlice.estimatedMemoryUsage() {
			storeSlice = newSlice.frozenSqrtEndScores()
		}
		for _, node := range lastSlice.nodes {
			e.previousBand.Clear(uint(node))
		}
		assert(newSlice.minScore != infinity, "slice without a minimum")
		assert(newSlice.minScore >= lastSlice.minScore, "slice minimum decreased")
		lastSlice = newSlice.frozenSqrtEndScores()
		newSlice.scores.clearVectorMap()
		e.previousBand, e.currentBand = e.currentBand, e.previousBand
	}

	if backtraceOverriding {
		assert(len(backtraceOverrideTemps) > 0, "override run without slices")
		assert(lastSlice.j == backtraceOverrideTemps[len(backtraceOverrideTemps)-1].j, "override run out of sync")
		result.backtraceOverrides = append(result.backtraceOverrides, e.newBacktraceOverride(sequence, backtraceOverridePreslice, backtraceOverrideTemps))
		override := &result.backtraceOverrides[len(result.backtraceOverrides)-1]
		for len(result.slices) > 0 {
			j := result.slices[len(result.slices)-1].j
			if j < override.startj || j > override.endj {
				break
			}
			result.slices = result.slices[:len(result.slices)-1]
		}
	}
	e.previousBand.ClearAll()
	e.currentBand.ClearAll()
	return result
}

// getSlicesFromTable recomputes the dense slices between one
// checkpoint and the next, on the same band and with the same
// per-block bandwidths as the original pass.
func (e *engine) getSlicesFromTable(sequence string, overrideLastJ int, table *dpTable, startIndex int) []*dpSlice {
	assert(startIndex < len(table.slices), "checkpoint index out of range")
	startSlice := (table.slices[startIndex].j + wordSize) / wordSize
	assert(overrideLastJ > startSlice*wordSize, "override overlaps the requested checkpoint")
	var endSlice int
	if startIndex == len(table.slices)-1 {
		endSlice = len(table.bandwidthPerSlice)
	} else {
		endSlice = (table.slices[startIndex+1].j + wordSize) / wordSize
	}
	if endSlice*wordSize >= overrideLastJ {
		endSlice = overrideLastJ / wordSize
	}
	assert(endSlice > startSlice, "empty recompute range")
	assert(endSlice <= len(table.bandwidthPerSlice), "recompute range past the table")
	initialSlice := table.slices[startIndex]
	var result []*dpSlice
	e.previousBand.ClearAll()
	e.currentBand.ClearAll()
	for _, node := range initialSlice.nodes {
		e.previousBand.Set(uint(node))
	}
	lastSlice := initialSlice
	for slice := startSlice; slice < endSlice; slice++ {
		bandwidth := table.bandwidthPerSlice[slice]
		newSlice := e.pickMethodAndExtendFill(sequence, lastSlice, bandwidth)
		assert(len(result) == 0 || newSlice.j == result[len(result)-1].j+wordSize, "recomputed slice out of order")
		result = append(result, newSlice.frozenScores())
		for _, node := range lastSlice.nodes {
			e.previousBand.Clear(uint(node))
		}
		assert(newSlice.minScore != infinity, "slice without a minimum")
		assert(newSlice.minScore >= lastSlice.minScore, "slice minimum decreased")
		lastSlice = newSlice.frozenSqrtEndScores()
		newSlice.scores.clearVectorMap()
		e.previousBand, e.currentBand = e.currentBand, e.previousBand
	}
	e.previousBand.ClearAll()
	e.currentBand.ClearAll()
	return result
}

// initialSliceOneNode seeds a directional alignment at a single
// node, every offset at score zero.
func (e *engine) initialSliceOneNode(nodeIndex int) *dpSlice {
	result := &dpSlice{
		j:           -wordSize,
		scores:      &nodeSlice{frozenMap: make(map[int]mapItem, 1)},
		correctness: initialCorrectnessState(),
	}
	result.scores.addNode(nodeIndex, e.graph.NodeLength(nodeIndex))
	result.scores.setMinScore(nodeIndex, 0)
	result.minScore = 0
	result.minScoreIndex = append(result.minScoreIndex, e.graph.NodeEnd(nodeIndex)-1)
	result.nodes = result.scores.nodes
	cells := result.scores.node(nodeIndex)
	for i := range cells {
		cells[i] = wordSlice{
			confirmedRows:  rowConfirmation{wordSize, false},
			scoreEndExists: true,
		}
	}
	return result
}

// initialSliceAllNodes seeds a seed-free alignment: every node of the
// graph starts at score zero.
func (e *engine) initialSliceAllNodes() *dpSlice {
	result := &dpSlice{
		j:           -wordSize,
		scores:      &nodeSlice{frozenMap: make(map[int]mapItem, e.graph.NodeSize())},
		correctness: initialCorrectnessState(),
	}
	for i := 0; i < e.graph.NodeSize(); i++ {
		result.scores.addNode(i, e.graph.NodeLength(i))
		result.scores.setMinScore(i, 0)
		cells := result.scores.node(i)
		for ii := range cells {
			cells[ii] = wordSlice{
				confirmedRows:  rowConfirmation{wordSize, false},
				scoreEndExists: true,
			}
		}
	}
	result.minScore = 0
	result.nodes = result.scores.nodes
	return result
}
