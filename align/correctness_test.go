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

import "testing"

func TestCorrectnessStaysCorrect(t *testing.T) {
	state := initialCorrectnessState()
	if !state.CurrentlyCorrect() {
		t.Error("initial state not correct")
	}
	for i := 0; i < 100; i++ {
		state = state.NextState(3, wordSize)
		if !state.CurrentlyCorrect() {
			t.Errorf("clean block %v lost correctness", i)
		}
		if !state.CorrectFromCorrect() {
			t.Errorf("clean block %v not correct-from-correct", i)
		}
	}
}

func TestCorrectnessLostOnRandomBlocks(t *testing.T) {
	state := initialCorrectnessState()
	for i := 0; i < 10; i++ {
		state = state.NextState(2, wordSize)
	}
	flipped := -1
	for i := 0; i < 10; i++ {
		state = state.NextState(32, wordSize)
		if !state.CurrentlyCorrect() {
			flipped = i
			break
		}
	}
	if flipped < 0 {
		t.Fatal("random blocks never lost correctness")
	}
	if !state.FalseFromCorrect() {
		t.Error("first incorrect block not false-from-correct")
	}
	state = state.NextState(32, wordSize)
	if state.FalseFromCorrect() {
		t.Error("second incorrect block still false-from-correct")
	}
}
