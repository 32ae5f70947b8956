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

import "github.com/willf/bitset"

// Tarjan's strongly connected components, iterative so that deep
// graphs cannot overflow the goroutine stack. Components come out in
// reverse topological order: every edge of the induced subgraph goes
// from a later component to an earlier one (or stays inside one).

type sccFrame struct {
	node     int
	state    int
	neighbor int
}

func (e *engine) stronglyConnectedComponents(nodes []int, currentBand *bitset.BitSet) [][]int {
	index := make(map[int]int, len(nodes))
	lowLink := make(map[int]int, len(nodes))
	onStack := make(map[int]bool, len(nodes))
	var stack []int
	var result [][]int
	stackIndex := 0
	for _, start := range nodes {
		if _, found := index[start]; found {
			continue
		}
		callStack := []sccFrame{{node: start}}
		for len(callStack) > 0 {
			frame := callStack[len(callStack)-1]
			callStack = callStack[:len(callStack)-1]
			node := frame.node
			neighbors := e.graph.OutNeighbors(node)
			if frame.state == 0 {
				index[node] = stackIndex
				lowLink[node] = stackIndex
				stackIndex++
				stack = append(stack, node)
				onStack[node] = true
				frame.neighbor = 0
			} else {
				// handle the result of the recursive call
				neighbor := neighbors[frame.neighbor]
				if lowLink[neighbor] < lowLink[node] {
					lowLink[node] = lowLink[neighbor]
				}
				frame.neighbor++
			}
			recursed := false
			for ; frame.neighbor < len(neighbors); frame.neighbor++ {
				neighbor := neighbors[frame.neighbor]
				if !currentBand.Test(uint(neighbor)) {
					continue
				}
				if _, found := index[neighbor]; !found {
					callStack = append(callStack, sccFrame{node: node, state: 1, neighbor: frame.neighbor})
					callStack = append(callStack, sccFrame{node: neighbor})
					recursed = true
					break
				}
				if onStack[neighbor] {
					if index[neighbor] < lowLink[node] {
						lowLink[node] = index[neighbor]
					}
				}
			}
			if recursed {
				continue
			}
			if lowLink[node] == index[node] {
				var component []int
				for {
					back := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					delete(onStack, back)
					component = append(component, back)
					if back == node {
						break
					}
				}
				result = append(result, component)
			}
		}
	}
	assert(len(stack) == 0, "Tarjan left nodes on the stack")
	assert(len(index) == len(nodes), "Tarjan missed nodes")
	return result
}
