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

import (
	"bytes"
	"log"

	"github.com/exascience/elalign/internal"
	"github.com/exascience/elalign/vg"

	"golang.org/x/sys/unix"
)

// Load memory-maps the named graph file, merges all graph chunks in
// it, and builds the finalized alignment graph.
func Load(filename string) *Graph {
	return New(LoadVG(filename))
}

// LoadVG memory-maps the named graph file and merges all graph
// chunks in it into one vg graph.
func LoadVG(filename string) *vg.Graph {
	file := internal.FileOpen(filename)
	defer internal.Close(file)
	stat, err := file.Stat()
	if err != nil {
		log.Panic(err)
	}
	if stat.Size() == 0 {
		log.Panicf("graph file %v is empty", filename)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		log.Panic(err)
	}
	defer func() {
		if err := unix.Munmap(data); err != nil {
			log.Panic(err)
		}
	}()
	source, err := vg.LoadGraph(bytes.NewReader(data))
	if err != nil {
		log.Panicf("%v, while parsing graph file %v", err, filename)
	}
	return source
}
