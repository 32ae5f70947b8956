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

package graph

import "log"

var complementTable = [256]byte{
	'A': 'T', 'a': 'T',
	'C': 'G', 'c': 'G',
	'G': 'C', 'g': 'C',
	'T': 'A', 't': 'A',
	'U': 'A', 'u': 'A',
	'N': 'N', 'n': 'N',
	'R': 'Y', 'r': 'Y',
	'Y': 'R', 'y': 'R',
	'K': 'M', 'k': 'M',
	'M': 'K', 'm': 'K',
	'S': 'S', 's': 'S',
	'W': 'W', 'w': 'W',
	'B': 'V', 'b': 'V',
	'V': 'B', 'v': 'B',
	'D': 'H', 'd': 'H',
	'H': 'D', 'h': 'D',
}

// ReverseComplement returns the reverse complement of a nucleotide
// string, IUPAC ambiguity codes included.
func ReverseComplement(s string) string {
	result := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := complementTable[s[len(s)-1-i]]
		if c == 0 {
			log.Panicf("cannot reverse complement character %q", s[len(s)-1-i])
		}
		result[i] = c
	}
	return string(result)
}
