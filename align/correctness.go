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

// The correctness estimator is a two-state Viterbi over the blocks of
// a read: either the alignment is still following the correct path
// (mismatch rate around the sequencing error rate) or it has wandered
// off into random sequence (mismatch rate around one half). Each
// block feeds its score increase as a mismatch count.

var (
	logCorrectMismatch = math.Log(0.15)
	logCorrectMatch    = math.Log(0.85)
	logFalseMismatch   = math.Log(0.50)
	logFalseMatch      = math.Log(0.50)

	logStayCorrect    = math.Log(1 - 0.0001)
	logCorrectToFalse = math.Log(0.0001)
	logFalseToCorrect = math.Log(0.00001)
	logStayFalse      = math.Log(1 - 0.00001)
)

type correctnessState struct {
	correctLogOdds          float64
	falseLogOdds            float64
	correctFromCorrectTrace bool
	falseFromCorrectTrace   bool
}

func initialCorrectnessState() correctnessState {
	return correctnessState{
		correctLogOdds:          math.Log(0.8),
		falseLogOdds:            math.Log(0.2),
		correctFromCorrectTrace: true,
	}
}

// CurrentlyCorrect reports whether the correct state is the more
// likely explanation of the blocks seen so far.
func (s correctnessState) CurrentlyCorrect() bool {
	return s.correctLogOdds > s.falseLogOdds
}

// CorrectFromCorrect reports whether the correct state's best
// predecessor is the correct state.
func (s correctnessState) CorrectFromCorrect() bool {
	return s.correctFromCorrectTrace
}

// FalseFromCorrect reports whether the false state's best predecessor
// is the correct state, i.e. whether correctness was lost just now.
func (s correctnessState) FalseFromCorrect() bool {
	return s.falseFromCorrectTrace
}

// NextState folds one block of newRows rows with newMismatches score
// increases into the estimate.
func (s correctnessState) NextState(newMismatches, newRows int) correctnessState {
	correctEmission := float64(newMismatches)*logCorrectMismatch + float64(newRows-newMismatches)*logCorrectMatch
	falseEmission := float64(newMismatches)*logFalseMismatch + float64(newRows-newMismatches)*logFalseMatch
	var result correctnessState
	correctFromCorrect := s.correctLogOdds + logStayCorrect
	correctFromFalse := s.falseLogOdds + logFalseToCorrect
	if correctFromCorrect >= correctFromFalse {
		result.correctLogOdds = correctFromCorrect + correctEmission
		result.correctFromCorrectTrace = true
	} else {
		result.correctLogOdds = correctFromFalse + correctEmission
	}
	falseFromCorrect := s.correctLogOdds + logCorrectToFalse
	falseFromFalse := s.falseLogOdds + logStayFalse
	if falseFromCorrect >= falseFromFalse {
		result.falseLogOdds = falseFromCorrect + falseEmission
		result.falseFromCorrectTrace = true
	} else {
		result.falseLogOdds = falseFromFalse + falseEmission
	}
	return result
}
