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

import (
	"log"

	"github.com/exascience/elalign/graph"
)

const (
	baseA = 1 << iota
	baseC
	baseG
	baseT
)

// iupacMasks maps a read character to the set of plain bases it
// stands for. Unknown characters map to zero.
var iupacMasks = [256]uint8{
	'A': baseA, 'a': baseA,
	'C': baseC, 'c': baseC,
	'G': baseG, 'g': baseG,
	'T': baseT, 't': baseT,
	'U': baseT, 'u': baseT,
	'R': baseA | baseG, 'r': baseA | baseG,
	'Y': baseC | baseT, 'y': baseC | baseT,
	'K': baseG | baseT, 'k': baseG | baseT,
	'M': baseA | baseC, 'm': baseA | baseC,
	'S': baseC | baseG, 's': baseC | baseG,
	'W': baseA | baseT, 'w': baseA | baseT,
	'B': baseC | baseG | baseT, 'b': baseC | baseG | baseT,
	'D': baseA | baseG | baseT, 'd': baseA | baseG | baseT,
	'H': baseA | baseC | baseT, 'h': baseA | baseC | baseT,
	'V': baseA | baseC | baseG, 'v': baseA | baseC | baseG,
	'N': baseA | baseC | baseG | baseT, 'n': baseA | baseC | baseG | baseT,
}

// characterMatch reports whether the read character covers the graph
// character under the IUPAC ambiguity codes. The graph alphabet is
// strictly ACGT, except for the dummy placeholder which matches
// nothing.
func characterMatch(readChar, graphChar byte) bool {
	mask := iupacMasks[readChar]
	if mask == 0 {
		log.Panicf("invalid read character %q", readChar)
	}
	switch graphChar {
	case 'A':
		return mask&baseA != 0
	case 'C':
		return mask&baseC != 0
	case 'G':
		return mask&baseG != 0
	case 'T':
		return mask&baseT != 0
	case graph.DummyChar:
		return false
	}
	log.Panicf("invalid graph character %q", graphChar)
	return false
}

// An eqVector holds the per-base equality masks of one 64-row read
// block: bit i of BA is set iff read row i covers an A, and so on.
type eqVector struct {
	BA, BC, BG, BT uint64
}

func makeEqVector(sequence string, j int) eqVector {
	var eq eqVector
	for i := 0; i < wordSize && j+i < len(sequence); i++ {
		mask := uint64(1) << uint(i)
		readChar := iupacMasks[sequence[j+i]]
		if readChar == 0 {
			log.Panicf("invalid read character %q", sequence[j+i])
		}
		if readChar&baseA != 0 {
			eq.BA |= mask
		}
		if readChar&baseC != 0 {
			eq.BC |= mask
		}
		if readChar&baseG != 0 {
			eq.BG |= mask
		}
		if readChar&baseT != 0 {
			eq.BT |= mask
		}
	}
	return eq
}

// getEq returns the equality mask for one graph character. The dummy
// placeholder matches no read row.
func (eq eqVector) getEq(graphChar byte) uint64 {
	switch graphChar {
	case 'A':
		return eq.BA
	case 'C':
		return eq.BC
	case 'G':
		return eq.BG
	case 'T':
		return eq.BT
	case graph.DummyChar:
		return 0
	}
	log.Panicf("invalid graph character %q", graphChar)
	return 0
}
