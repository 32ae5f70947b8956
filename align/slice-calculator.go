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

// The bit-parallel slice calculator advances one 64-row read block
// over every in-band node. Cyclic propagation is handled per strongly
// connected component: a zero-row relaxation fixes the boundary
// scores across intra-component edges, after which nodes iterate on a
// unique queue until no leading row gains confirmation.

type nodeCalculationResult struct {
	minScore       int
	minScoreIndex  []int
	cellsProcessed int
}

func getSourceSliceWithoutBefore(row int) wordSlice {
	return wordSlice{
		VP:               allOnes &^ 1,
		VN:               allZeros,
		scoreEnd:         row + wordSize,
		scoreBeforeStart: row + 1,
		confirmedRows:    rowConfirmation{wordSize, false},
		scoreEndExists:   true,
	}
}

func getSourceSliceFromScore(previousScore int) wordSlice {
	return wordSlice{
		VP:               allOnes,
		VN:               allZeros,
		scoreEnd:         previousScore + wordSize,
		scoreBeforeStart: previousScore,
		confirmedRows:    rowConfirmation{wordSize, false},
		scoreEndExists:   true,
	}
}

func getSourceSliceFromStartMatch(sequenceChar, graphChar byte, previousScore int) wordSlice {
	firstVP := uint64(1)
	if characterMatch(sequenceChar, graphChar) {
		firstVP = 0
	}
	return wordSlice{
		VP:                allOnes&^1 | firstVP,
		VN:                allZeros,
		scoreEnd:          previousScore + wordSize - 1 + int(firstVP),
		scoreBeforeStart:  previousScore,
		confirmedRows:     rowConfirmation{wordSize, false},
		scoreBeforeExists: true,
		scoreEndExists:    true,
	}
}

func (e *engine) isSource(nodeIndex int) bool {
	for _, neighbor := range e.graph.InNeighbors(nodeIndex) {
		if e.currentBand.Test(uint(neighbor)) {
			return false
		}
		if e.previousBand.Test(uint(neighbor)) {
			return false
		}
	}
	return true
}

// getNextSlice advances a column's slice one column to the right
// given the equality mask. This is the Myers bit-parallel recurrence,
// extended with the boundary deltas of the cell above the block and
// with confirmed-row bookkeeping.
//
// Pages 405 and 408 of
// http://www.gersteinlab.org/courses/452/09-spring/pdf/Myers.pdf
func getNextSlice(eq uint64, slice wordSlice, upInsideBand, upleftInsideBand, diagonalInsideBand, previousEq bool, previous wordSlice) wordSlice {
	oldValue := slice.scoreBeforeStart
	confirmedMask := uint64(1) << uint(slice.confirmedRows.rows&63)
	prevConfirmedMask := uint64(1) << uint((slice.confirmedRows.rows-1)&63)
	confirmOneMore := false
	if !slice.scoreBeforeExists {
		eq &^= 1
	}
	slice.scoreBeforeExists = upInsideBand
	if !diagonalInsideBand {
		eq &^= 1
	}
	const lastBitMask = uint64(1) << (wordSize - 1)
	if !upleftInsideBand {
		slice.scoreBeforeStart++
	} else {
		upleft := previous.scoreEnd
		if previous.VP&lastBitMask != 0 {
			upleft--
		}
		if previous.VN&lastBitMask != 0 {
			upleft++
		}
		if !previousEq {
			upleft++
		}
		slice.scoreBeforeStart = minInt(slice.scoreBeforeStart+1, upleft)
	}
	hin := slice.scoreBeforeStart - oldValue

	xv := eq | slice.VN
	if hin < 0 {
		eq |= 1
	}
	xh := (((eq & slice.VP) + slice.VP) ^ slice.VP) | eq
	ph := slice.VN | ^(xh | slice.VP)
	mh := slice.VP & xh
	diagonalDiff := hin
	if slice.confirmedRows.rows > 0 {
		diagonalDiff = 0
		if ph&prevConfirmedMask != 0 {
			diagonalDiff = 1
		}
		if mh&prevConfirmedMask != 0 {
			diagonalDiff = -1
		}
	}
	if slice.confirmedRows.rows > 0 && mh&prevConfirmedMask != 0 {
		confirmOneMore = true
	} else if slice.confirmedRows.rows == 0 && hin == -1 {
		confirmOneMore = true
	}
	if ph&lastBitMask != 0 {
		slice.scoreEnd++
	} else if mh&lastBitMask != 0 {
		slice.scoreEnd--
	}
	if slice.confirmedRows.partial && ^ph&confirmedMask != 0 {
		confirmOneMore = true
	}
	ph <<= 1
	mh <<= 1
	if hin < 0 {
		mh |= 1
	} else if hin > 0 {
		ph |= 1
	}
	slice.VP = mh | ^(xv | ph)
	slice.VN = ph & xv
	if slice.VP&confirmedMask != 0 {
		diagonalDiff++
	}
	if slice.VN&confirmedMask != 0 {
		diagonalDiff--
	}
	if diagonalDiff <= 0 {
		confirmOneMore = true
	} else if slice.VN&confirmedMask != 0 {
		confirmOneMore = true
	}

	if confirmOneMore {
		if slice.confirmedRows.rows+1 <= wordSize {
			slice.confirmedRows.rows++
		}
		slice.confirmedRows.partial = false
	} else if !slice.confirmedRows.partial && slice.confirmedRows.rows < wordSize {
		slice.confirmedRows.partial = true
	}

	assert(slice.scoreEnd == slice.scoreBeforeStart+popcount(slice.VP)-popcount(slice.VN), "inconsistent scoreEnd after advance")

	return slice
}

// getNodeStartSlice computes a node's first column by merging the
// contributions of every in-band in-neighbor's last column.
func (e *engine) getNodeStartSlice(eq uint64, nodeIndex int, previousSlice, currentSlice *nodeSlice, previousEq bool) wordSlice {
	current := currentSlice.node(nodeIndex)[0]
	var result wordSlice
	foundOne := false
	for _, neighbor := range e.graph.InNeighbors(nodeIndex) {
		inCurrent := e.currentBand.Test(uint(neighbor))
		inPrevious := e.previousBand.Test(uint(neighbor))
		if !inCurrent && !inPrevious {
			continue
		}
		eqHere := eq
		var previous, previousUp wordSlice
		foundOneUp := false
		hasRealNeighbor := false
		if inPrevious {
			previousUp = previousSlice.endSlice(neighbor, previousSlice.nodeLength(neighbor)-1)
			foundOneUp = true
		}
		if inCurrent {
			neighborSlice := currentSlice.node(neighbor)
			previous = neighborSlice[len(neighborSlice)-1]
			hasRealNeighbor = true
		} else {
			previous = getSourceSliceFromScore(previousUp.scoreEnd)
			previous.scoreBeforeExists = true
		}
		if !hasRealNeighbor {
			eqHere &= 1
		}
		resultHere := getNextSlice(eqHere, previous, current.scoreBeforeExists, current.scoreBeforeExists && foundOneUp, foundOneUp, previousEq, previousUp)
		if !foundOne {
			result = resultHere
			foundOne = true
		} else {
			result = result.mergeWith(resultHere)
		}
	}
	assert(foundOne, "node start slice without any in-band neighbor")
	return result
}

func (result *nodeCalculationResult) update(scoreEnd, index int) {
	if scoreEnd < result.minScore {
		result.minScore = scoreEnd
		result.minScoreIndex = result.minScoreIndex[:0]
	}
	if scoreEnd == result.minScore {
		result.minScoreIndex = append(result.minScoreIndex, index)
	}
}

// calculateNode recomputes all columns of one node for the current
// block, chaining the recurrence down the node and merging the first
// column from the in-neighbors. It stops early as soon as a column
// gains no confirmation: later columns cannot improve then.
func (e *engine) calculateNode(i, j int, sequence string, eqV eqVector, currentSlice, previousSlice *nodeSlice) nodeCalculationResult {
	result := nodeCalculationResult{minScore: infinity}
	slice := currentSlice.node(i)
	nodeStart := e.graph.NodeStart(i)
	inPrevious := e.previousBand.Test(uint(i))

	oldConfirmation := slice[0].confirmedRows
	if oldConfirmation.rows == wordSize {
		return result
	}

	if e.isSource(i) {
		if j == 0 && inPrevious {
			slice[0] = getSourceSliceFromStartMatch(sequence[0], e.graph.NodeSequences(nodeStart), previousSlice.endScore(i, 0))
		} else if inPrevious {
			slice[0] = wordSlice{
				VP:                allOnes,
				VN:                allZeros,
				scoreEnd:          previousSlice.endScore(i, 0) + wordSize,
				scoreBeforeStart:  previousSlice.endScore(i, 0),
				confirmedRows:     rowConfirmation{wordSize, false},
				scoreBeforeExists: previousSlice.endScoreExists(i, 0),
				scoreEndExists:    true,
			}
		} else {
			slice[0] = getSourceSliceWithoutBefore(len(sequence))
		}
		if slice[0].confirmedRows.rows == wordSize {
			result.update(slice[0].scoreEnd, nodeStart)
		}
	} else {
		eq := eqV.getEq(e.graph.NodeSequences(nodeStart))
		previousEq := (j == 0 && inPrevious) || (j > 0 && e.graph.NodeSequences(nodeStart) == sequence[j-1])
		slice[0] = e.getNodeStartSlice(eq, i, previousSlice, currentSlice, previousEq)
		if inPrevious {
			if oldEnd := previousSlice.endScore(i, 0); slice[0].scoreBeforeStart > oldEnd {
				mergable := getSourceSliceFromScore(oldEnd)
				mergable.scoreBeforeExists = previousSlice.endScoreExists(i, 0)
				slice[0] = slice[0].mergeWith(mergable)
			}
		}
		if slice[0].confirmedRows.rows == wordSize {
			result.update(slice[0].scoreEnd, nodeStart)
		}
		// note: the start column's score minus the optimal in-neighbor
		// end score is not always within {-1,0,1} because of the band
	}

	assert(!slice[0].confirmedRows.lessThan(oldConfirmation), "confirmation shrank")
	if slice[0].confirmedRows == oldConfirmation {
		return result
	}

	nodeLength := e.graph.NodeLength(i)
	for w := 1; w < nodeLength; w++ {
		eq := eqV.getEq(e.graph.NodeSequences(nodeStart + w))

		oldConfirmation = slice[w].confirmedRows
		if oldConfirmation.rows == wordSize {
			return result
		}

		var oldUpLeft wordSlice
		if inPrevious {
			oldUpLeft = previousSlice.endSlice(i, w-1)
		}
		previousEq := (j == 0 && inPrevious) || (j > 0 && e.graph.NodeSequences(nodeStart+w) == sequence[j-1])
		slice[w] = getNextSlice(eq, slice[w-1], slice[w].scoreBeforeExists, slice[w].scoreBeforeExists, slice[w-1].scoreBeforeExists, previousEq, oldUpLeft)
		if inPrevious {
			if oldEnd := previousSlice.endScore(i, w); slice[w].scoreBeforeStart > oldEnd {
				mergable := getSourceSliceFromScore(oldEnd)
				mergable.scoreBeforeExists = previousSlice.endScoreExists(i, w)
				slice[w] = slice[w].mergeWith(mergable)
			}
		}

		if slice[w].confirmedRows.rows == wordSize {
			result.update(slice[w].scoreEnd, nodeStart+w)
		}

		if slice[w].confirmedRows == oldConfirmation {
			return result
		}
	}
	result.cellsProcessed = nodeLength * wordSize
	return result
}

// forceComponentZeroRow fixes every component member's boundary row:
// the score just above the block's first row, taken over the previous
// block's end and over already-finalized predecessors, and propagated
// through intra-component edges until no improvement remains. Each
// cell is then seeded as an all-increment placeholder with no
// confirmed rows.
func (e *engine) forceComponentZeroRow(currentSlice, previousSlice *nodeSlice, component []int, componentIndex int) {
	var queue nodePriorityQueue
	for _, node := range component {
		assert(e.currentBand.Test(uint(node)), "component node outside the band")
		newSlice := currentSlice.node(node)
		for i := range newSlice {
			newSlice[i].scoreBeforeStart = infinity
		}
		inPrevious := e.previousBand.Test(uint(node))
		if inPrevious {
			newSlice[0].scoreBeforeStart = previousSlice.endScore(node, 0)
		}
		for _, neighbor := range e.graph.InNeighbors(node) {
			if !e.currentBand.Test(uint(neighbor)) && !e.previousBand.Test(uint(neighbor)) {
				continue
			}
			if e.partOfComponent[neighbor] == componentIndex {
				continue
			}
			if e.currentBand.Test(uint(neighbor)) {
				neighborSlice := currentSlice.node(neighbor)
				assert(neighborSlice[len(neighborSlice)-1].confirmedRows.rows == wordSize, "predecessor component not finalized")
				newSlice[0].scoreBeforeStart = minInt(newSlice[0].scoreBeforeStart, neighborSlice[len(neighborSlice)-1].scoreBeforeStart+1)
			}
			if e.previousBand.Test(uint(neighbor)) {
				newSlice[0].scoreBeforeStart = minInt(newSlice[0].scoreBeforeStart, previousSlice.endScore(neighbor, previousSlice.nodeLength(neighbor)-1)+1)
			}
		}
		if newSlice[0].scoreBeforeStart == infinity {
			continue
		}
		for i := 1; i < len(newSlice); i++ {
			newSlice[i].scoreBeforeStart = newSlice[i-1].scoreBeforeStart + 1
			if inPrevious {
				newSlice[i].scoreBeforeStart = minInt(newSlice[i].scoreBeforeStart, previousSlice.endScore(node, i))
			}
		}
		for _, neighbor := range e.graph.OutNeighbors(node) {
			if e.partOfComponent[neighbor] != componentIndex {
				continue
			}
			queue.push(neighbor, newSlice[len(newSlice)-1].scoreBeforeStart+1)
		}
	}
	for queue.size() > 0 {
		nodeIndex, score := queue.pop()
		assert(e.partOfComponent[nodeIndex] == componentIndex, "relaxation left the component")
		endUpdated := true
		slice := currentSlice.node(nodeIndex)
		for i := range slice {
			if slice[i].scoreBeforeStart <= score {
				endUpdated = false
				break
			}
			slice[i].scoreBeforeStart = score
			score++
		}
		if endUpdated {
			for _, neighbor := range e.graph.OutNeighbors(nodeIndex) {
				if e.partOfComponent[neighbor] != componentIndex {
					continue
				}
				queue.push(neighbor, score)
			}
		}
	}
	for _, node := range component {
		slice := currentSlice.node(node)
		inPrevious := e.previousBand.Test(uint(node))
		for i := range slice {
			assert(slice[i].scoreBeforeStart != infinity, "unreachable cell in component")
			scoreBeforeExists := inPrevious &&
				previousSlice.endScore(node, i) == slice[i].scoreBeforeStart &&
				previousSlice.endScoreExists(node, i)
			slice[i] = wordSlice{
				VP:                allOnes,
				VN:                allZeros,
				scoreEnd:          slice[i].scoreBeforeStart + wordSize,
				scoreBeforeStart:  slice[i].scoreBeforeStart,
				scoreBeforeExists: scoreBeforeExists,
				scoreEndExists:    true,
			}
		}
	}
}

// calculateSlice computes one block with the bit-parallel method.
func (e *engine) calculateSlice(sequence string, j int, currentSlice, previousSlice *nodeSlice, bandOrder []int) nodeCalculationResult {
	result := nodeCalculationResult{minScore: infinity}

	eqV := makeEqVector(sequence, j)
	assert(eqV.BA|eqV.BC|eqV.BG|eqV.BT == allOnes, "read block not fully covered by equality masks")
	components := e.stronglyConnectedComponents(bandOrder, e.currentBand)
	for i, component := range components {
		for _, node := range component {
			e.partOfComponent[node] = i
		}
	}
	for component := len(components) - 1; component >= 0; component-- {
		e.forceComponentZeroRow(currentSlice, previousSlice, components[component], component)
		assert(e.calculables.size() == 0, "unique queue not drained")
		e.calculables.insertAll(components[component])
		for e.calculables.size() > 0 {
			i := e.calculables.pop()
			assert(e.currentBand.Test(uint(i)), "queued node outside the band")
			nodeSlices := currentSlice.node(i)
			oldEnd := nodeSlices[len(nodeSlices)-1]
			nodeCalc := e.calculateNode(i, j, sequence, eqV, currentSlice, previousSlice)
			currentSlice.setMinScore(i, nodeCalc.minScore)
			newEnd := nodeSlices[len(nodeSlices)-1]
			assert(newEnd.scoreBeforeStart == oldEnd.scoreBeforeStart, "boundary row changed during iteration")
			assert(!newEnd.confirmedRows.lessThan(oldEnd.confirmedRows), "confirmation shrank during iteration")
			if newEnd.scoreBeforeStart < len(sequence) && newEnd.confirmedRows.greaterThan(oldEnd.confirmedRows) {
				for _, neighbor := range e.graph.OutNeighbors(i) {
					if e.partOfComponent[neighbor] != component {
						continue
					}
					if currentSlice.node(neighbor)[0].confirmedRows.rows < wordSize {
						e.calculables.insert(neighbor)
					}
				}
			}
			if nodeCalc.minScore < result.minScore {
				result.minScore = nodeCalc.minScore
				result.minScoreIndex = result.minScoreIndex[:0]
			}
			if nodeCalc.minScore == result.minScore {
				result.minScoreIndex = append(result.minScoreIndex, nodeCalc.minScoreIndex...)
			}
			result.cellsProcessed += nodeCalc.cellsProcessed
		}
	}
	for i := range components {
		for _, node := range components[i] {
			e.partOfComponent[node] = noComponent
		}
	}

	return result
}
