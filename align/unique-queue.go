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

// A uniqueQueue is a FIFO queue over node ids that silently ignores
// inserts of nodes already enqueued.
type uniqueQueue struct {
	queue   []int
	head    int
	present *bitset.BitSet
}

func newUniqueQueue(size int) *uniqueQueue {
	return &uniqueQueue{present: bitset.New(uint(size))}
}

func (q *uniqueQueue) insert(node int) {
	if q.present.Test(uint(node)) {
		return
	}
	q.present.Set(uint(node))
	q.queue = append(q.queue, node)
}

func (q *uniqueQueue) insertAll(nodes []int) {
	for _, node := range nodes {
		q.insert(node)
	}
}

func (q *uniqueQueue) size() int { return len(q.queue) - q.head }

func (q *uniqueQueue) pop() int {
	node := q.queue[q.head]
	q.head++
	q.present.Clear(uint(node))
	if q.head == len(q.queue) {
		q.queue = q.queue[:0]
		q.head = 0
	}
	return node
}
