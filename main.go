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

// elAlign aligns long noisy reads against sequence graphs.
//
// Please see https://github.com/exascience/elalign for a
// documentation of the tool.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/elalign/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: align")
	fmt.Fprint(os.Stderr, "\n", cmd.AlignHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "align":
		err = cmd.Align()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		// flags without a command name run the aligner, the way the
		// original single-command tool did
		os.Args = append([]string{os.Args[0], "align"}, os.Args[1:]...)
		err = cmd.Align()
	}
	if err != nil {
		log.Fatal(err)
	}
}
