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

// Package seeds parses seed-hit files. A seed hit anchors a read to a
// biological graph node: one tab-separated line per hit with the read
// name, the node id, the read offset, and the strand (+ or -).
package seeds

import (
	"bufio"
	"bytes"
	"log"

	"github.com/exascience/elalign/internal"
)

// A Hit anchors one read position to one strand of a graph node.
type Hit struct {
	NodeID     int64
	ReadOffset int
	Reverse    bool
}

// Load parses the named seed file into a map from read name to hits,
// keeping the hits of each read in file order.
func Load(filename string) map[string][]Hit {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	result := make(map[string][]Hit)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fields := bytes.Split(line, []byte("\t"))
		if len(fields) != 4 {
			log.Panicf("badly formatted seed file %v - invalid number of fields", filename)
		}
		var reverse bool
		switch string(fields[3]) {
		case "+":
		case "-":
			reverse = true
		default:
			log.Panicf("badly formatted seed file %v - strand %q", filename, fields[3])
		}
		name := string(fields[0])
		result[name] = append(result[name], Hit{
			NodeID:     internal.ParseInt(string(fields[1]), 10, 64),
			ReadOffset: int(internal.ParseInt(string(fields[2]), 10, 64)),
			Reverse:    reverse,
		})
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	return result
}
