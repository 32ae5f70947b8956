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

// A nodePriorityQueue is a binary min-heap of nodes keyed on an
// integer priority.
type nodePriorityQueue struct {
	nodes      []int
	priorities []int
}

func (q *nodePriorityQueue) size() int { return len(q.nodes) }

func (q *nodePriorityQueue) push(node, priority int) {
	q.nodes = append(q.nodes, node)
	q.priorities = append(q.priorities, priority)
	i := len(q.nodes) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if q.priorities[parent] <= q.priorities[i] {
			break
		}
		q.nodes[parent], q.nodes[i] = q.nodes[i], q.nodes[parent]
		q.priorities[parent], q.priorities[i] = q.priorities[i], q.priorities[parent]
		i = parent
	}
}

func (q *nodePriorityQueue) topPriority() int { return q.priorities[0] }

func (q *nodePriorityQueue) pop() (node, priority int) {
	node = q.nodes[0]
	priority = q.priorities[0]
	last := len(q.nodes) - 1
	q.nodes[0] = q.nodes[last]
	q.priorities[0] = q.priorities[last]
	q.nodes = q.nodes[:last]
	q.priorities = q.priorities[:last]
	i := 0
	for {
		left := 2*i + 1
		if left >= last {
			break
		}
		smallest := left
		if right := left + 1; right < last && q.priorities[right] < q.priorities[left] {
			smallest = right
		}
		if q.priorities[i] <= q.priorities[smallest] {
			break
		}
		q.nodes[i], q.nodes[smallest] = q.nodes[smallest], q.nodes[i]
		q.priorities[i], q.priorities[smallest] = q.priorities[smallest], q.priorities[i]
		i = smallest
	}
	return node, priority
}

// projectForwardFromMinScore selects the next block's nodes: every
// node of the previous slice within bandwidth of its minimum, plus a
// uniform-cost expansion over out-edges up to bandwidth plus one
// block of rows. The expansion bails out once the included base count
// reaches the alternate method cutoff, because a band that large is
// computed by the alternate method, which does not use this node list.
func (e *engine) projectForwardFromMinScore(minScore int, previousSlice *dpSlice, bandwidth int) []int {
	expandWidth := bandwidth + wordSize
	distances := make(map[int]int)
	var result []int
	var queue nodePriorityQueue
	currentWidth := 0
	for _, node := range previousSlice.scores.nodes {
		if previousSlice.scores.minScore(node) > minScore+bandwidth {
			continue
		}
		distances[node] = 0
		result = append(result, node)
		currentWidth += e.graph.NodeLength(node)
		if currentWidth >= e.params.AlternateMethodCutoff {
			return result
		}
		endscore := previousSlice.scores.endScore(node, previousSlice.scores.nodeLength(node)-1)
		assert(endscore >= minScore, "node end below the slice minimum")
		if endscore > minScore+expandWidth {
			continue
		}
		for _, neighbor := range e.graph.OutNeighbors(node) {
			queue.push(neighbor, endscore-minScore+1)
		}
	}
	assert(len(distances) > 0, "empty band projection")
	for queue.size() > 0 {
		if queue.topPriority() > expandWidth {
			break
		}
		node, priority := queue.pop()
		if known, found := distances[node]; found && known <= priority {
			continue
		}
		currentWidth += e.graph.NodeLength(node)
		distances[node] = priority
		result = append(result, node)
		if currentWidth >= e.params.AlternateMethodCutoff {
			return result
		}
		size := e.graph.NodeLength(node)
		for _, neighbor := range e.graph.OutNeighbors(node) {
			queue.push(neighbor, priority+size)
		}
	}
	return result
}
