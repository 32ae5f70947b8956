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

// The alternate slice calculator handles bands that reach the
// alternate method cutoff in base pairs: instead of
// advancing whole 64-row words per column, it sweeps the 64 rows one
// by one in score order, Dijkstra style. calculables[s] holds the
// cells reachable with score minScore+s in the current row; a cell
// spills into s+1 horizontally and into the next row at s or s+1
// depending on the character match.

type calculableCell struct {
	node  int
	index int
}

func (e *engine) setValueCell(slice *nodeSlice, node, index, row, value, uninitializedValue int) {
	if !slice.hasNode(node) {
		slice.addNode(node, e.graph.NodeLength(node))
		cells := slice.node(node)
		for i := range cells {
			cells[i] = wordSlice{
				scoreEnd:         uninitializedValue,
				scoreBeforeStart: uninitializedValue,
				scoreEndExists:   true,
			}
		}
	}
	cells := slice.node(node)
	cells[index].setValue(row, value)
}

func (e *engine) calculateSliceAlternate(sequence string, startj int, currentSlice *nodeSlice, previousSlice *dpSlice, bandwidth int) nodeCalculationResult {
	calculables := make([][]calculableCell, bandwidth+1)
	nextCalculables := make([][]calculableCell, bandwidth+1)

	prevScores := previousSlice.scores
	prevMin := previousSlice.minScore
	for _, node := range prevScores.nodes {
		start := e.graph.NodeStart(node)
		length := prevScores.nodeLength(node)
		if startj == 0 {
			for i := 0; i < length; i++ {
				if prevScores.endScore(node, i) < prevMin+bandwidth && prevScores.endScoreExists(node, i) {
					if characterMatch(sequence[startj], e.graph.NodeSequences(start+i)) {
						calculables[prevScores.endScore(node, i)-prevMin] = append(calculables[prevScores.endScore(node, i)-prevMin], calculableCell{node, start + i})
					} else {
						calculables[prevScores.endScore(node, i)-prevMin+1] = append(calculables[prevScores.endScore(node, i)-prevMin+1], calculableCell{node, start + i})
					}
				}
			}
			continue
		}
		for i := 0; i < length-1; i++ {
			if prevScores.endScore(node, i) < prevMin+bandwidth && prevScores.endScoreExists(node, i) {
				assert(prevScores.endScore(node, i) >= prevMin, "cell below the slice minimum")
				calculables[prevScores.endScore(node, i)-prevMin+1] = append(calculables[prevScores.endScore(node, i)-prevMin+1], calculableCell{node, start + i})
				if characterMatch(sequence[startj], e.graph.NodeSequences(start+i+1)) {
					calculables[prevScores.endScore(node, i)-prevMin] = append(calculables[prevScores.endScore(node, i)-prevMin], calculableCell{node, start + i + 1})
				} else {
					calculables[prevScores.endScore(node, i)-prevMin+1] = append(calculables[prevScores.endScore(node, i)-prevMin+1], calculableCell{node, start + i + 1})
				}
			}
		}
		if prevScores.endScore(node, length-1) < prevMin+bandwidth && prevScores.endScoreExists(node, length-1) {
			calculables[prevScores.endScore(node, length-1)-prevMin+1] = append(calculables[prevScores.endScore(node, length-1)-prevMin+1], calculableCell{node, start + length - 1})
			for _, neighbor := range e.graph.OutNeighbors(node) {
				u := e.graph.NodeStart(neighbor)
				if characterMatch(sequence[startj], e.graph.NodeSequences(u)) {
					calculables[prevScores.endScore(node, length-1)-prevMin] = append(calculables[prevScores.endScore(node, length-1)-prevMin], calculableCell{neighbor, u})
				} else {
					calculables[prevScores.endScore(node, length-1)-prevMin+1] = append(calculables[prevScores.endScore(node, length-1)-prevMin+1], calculableCell{neighbor, u})
				}
			}
		}
	}
	assert(len(calculables[0]) > 0 || len(calculables[1]) > 0, "nothing calculable in the alternate band")

	var processedList []int
	cellsProcessed := 0
	minScore := prevMin
	uninitialized := len(sequence)
	for j := 0; j < wordSize; j++ {
		scoreIndexPlus := 0
		if len(calculables[0]) == 0 {
			scoreIndexPlus = -1
		}
		for scoreplus := 0; scoreplus < bandwidth; scoreplus++ {
			for at := 0; at < len(calculables[scoreplus]); at++ {
				cell := calculables[scoreplus][at]
				if e.processed.Test(uint(cell.index)) {
					continue
				}
				cellsProcessed++
				e.processed.Set(uint(cell.index))
				processedList = append(processedList, cell.index)
				nodeStart := e.graph.NodeStart(cell.node)
				nodeEnd := e.graph.NodeEnd(cell.node)
				e.setValueCell(currentSlice, cell.node, cell.index-nodeStart, j, minScore+scoreplus, uninitialized)
				nextCalculables[scoreplus+1+scoreIndexPlus] = append(nextCalculables[scoreplus+1+scoreIndexPlus], cell)
				if cell.index+1 == nodeEnd {
					for _, neighbor := range e.graph.OutNeighbors(cell.node) {
						u := e.graph.NodeStart(neighbor)
						if !e.processed.Test(uint(u)) {
							calculables[scoreplus+1] = append(calculables[scoreplus+1], calculableCell{neighbor, u})
						}
						if j < wordSize-1 {
							if characterMatch(sequence[startj+j+1], e.graph.NodeSequences(u)) {
								nextCalculables[scoreplus+scoreIndexPlus] = append(nextCalculables[scoreplus+scoreIndexPlus], calculableCell{neighbor, u})
							} else {
								nextCalculables[scoreplus+scoreIndexPlus+1] = append(nextCalculables[scoreplus+scoreIndexPlus+1], calculableCell{neighbor, u})
							}
						}
					}
				} else {
					u := cell.index + 1
					if !e.processed.Test(uint(u)) {
						calculables[scoreplus+1] = append(calculables[scoreplus+1], calculableCell{cell.node, u})
					}
					if j < wordSize-1 {
						if characterMatch(sequence[startj+j+1], e.graph.NodeSequences(u)) {
							nextCalculables[scoreplus+scoreIndexPlus] = append(nextCalculables[scoreplus+scoreIndexPlus], calculableCell{cell.node, u})
						} else {
							nextCalculables[scoreplus+scoreIndexPlus+1] = append(nextCalculables[scoreplus+scoreIndexPlus+1], calculableCell{cell.node, u})
						}
					}
				}
			}
		}
		if len(calculables[0]) == 0 {
			minScore++
		}
		for _, cell := range processedList {
			e.processed.Clear(uint(cell))
		}
		processedList = processedList[:0]
		if j < wordSize-1 {
			calculables, nextCalculables = nextCalculables, calculables
			for i := range nextCalculables {
				nextCalculables[i] = nextCalculables[i][:0]
			}
		}
	}
	if len(calculables[0]) == 0 {
		calculables[0], calculables[1] = calculables[1], calculables[0]
	}
	assert(len(calculables[0]) > 0, "alternate slice ended with no minimum cells")
	result := nodeCalculationResult{minScore: minScore, cellsProcessed: cellsProcessed}
	for _, cell := range calculables[0] {
		result.minScoreIndex = append(result.minScoreIndex, cell.index)
	}
	return result
}

// finalizeAlternateSlice turns the cell-by-cell result into a regular
// slice: every present node joins the band, every cell counts as
// fully confirmed, and cells the sweep never reached get a sentinel
// score beyond anything the band can produce.
func (e *engine) finalizeAlternateSlice(slice *dpSlice, uninitializedValue, bandwidth int) {
	for _, node := range slice.scores.nodes {
		cells := slice.scores.node(node)
		slice.nodes = append(slice.nodes, node)
		assert(!e.currentBand.Test(uint(node)), "alternate node already in the band")
		e.currentBand.Set(uint(node))
		minScore := cells[0].scoreEnd
		for i := range cells {
			assert(cells[i].confirmedRows.rows <= wordSize-1, "alternate cell confirmed too far")
			cells[i].scoreEndExists = cells[i].confirmedRows.rows == wordSize-1
			cells[i].confirmedRows = rowConfirmation{wordSize, false}
			minScore = minInt(minScore, cells[i].scoreEnd)
		}
		for i := range cells {
			if cells[i].scoreEnd == uninitializedValue {
				cells[i].scoreEnd = minScore + len(cells) + bandwidth + 1
				cells[i].scoreBeforeStart = minScore + len(cells) + bandwidth + 1
			}
		}
		slice.numCells += len(cells)
		slice.scores.setMinScore(node, minScore)
	}
}
