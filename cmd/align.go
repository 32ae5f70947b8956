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

// Package cmd implements the commands of the elalign binary.
package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/exascience/elalign/align"
	"github.com/exascience/elalign/fastq"
	"github.com/exascience/elalign/graph"
	"github.com/exascience/elalign/seeds"
	"github.com/exascience/elalign/utils"
	"github.com/exascience/elalign/vg"
)

// ProgramMessage is the first line the binary logs.
var ProgramMessage = fmt.Sprintf("%v version %v, see %v for more information.",
	utils.ProgramName, utils.ProgramVersion, utils.ProgramURL)

// AlignHelp is the help string for the align command.
const AlignHelp = `align parameters:
	elalign align -g graph -f reads.fastq -a alignments.gam -t threads -b bandwidth
		[-B ramp-bandwidth] [-s seed-hits] [-i] [-A augmented-graph] [-d dynamic-row-start]
`

// validationError prints a single diagnostic line to standard error
// and exits. The exit status is 0, matching the behavior the tool has
// always had; scripts test for the presence of output instead.
func validationError(message string) {
	fmt.Fprintln(os.Stderr, message)
	os.Exit(0)
}

// Align runs the align command.
func Align() (err error) {
	var flags flag.FlagSet
	graphFile := flags.String("g", "", "graph file")
	fastqFile := flags.String("f", "", "reads file (FASTQ; .gz and .zst are decompressed)")
	alignmentFile := flags.String("a", "", "alignment output file")
	auggraphFile := flags.String("A", "", "augmented graph output file (optional)")
	seedFile := flags.String("s", "", "seed hits file (optional)")
	initialFullBand := flags.Bool("i", false, "seed-free full-start alignment")
	numThreads := flags.Int("t", 0, "number of worker threads")
	initialBandwidth := flags.Int("b", 0, "initial bandwidth")
	rampBandwidth := flags.Int("B", 0, "ramp bandwidth (0 disables ramping)")
	dynamicRowStart := flags.Int("d", 64, "dynamic row start")

	if err := flags.Parse(os.Args[2:]); err != nil {
		fmt.Fprint(os.Stderr, AlignHelp)
		os.Exit(1)
	}

	if *dynamicRowStart%64 != 0 {
		validationError("dynamic row start has to be a multiple of 64")
	}
	if *numThreads < 1 {
		validationError("number of threads must be >= 1")
	}
	if *initialBandwidth < 2 {
		validationError("bandwidth must be >= 2")
	}
	if *rampBandwidth != 0 && *rampBandwidth <= *initialBandwidth {
		validationError("backup bandwidth must be higher than initial bandwidth")
	}
	if !*initialFullBand && *seedFile == "" {
		validationError("either initial full band or seed file must be set")
	}

	log.Printf("run %v", utils.RunID)
	log.Printf("loading graph from %v", *graphFile)
	source := graph.LoadVG(*graphFile)
	g := graph.New(source)
	log.Printf("graph has %v nodes, %v bp", g.NodeSize(), g.SizeInBp())

	var seedHits map[string][]seeds.Hit
	if *seedFile != "" {
		seedHits = seeds.Load(*seedFile)
		log.Printf("loaded seed hits for %v reads", len(seedHits))
	}

	reads, err := fastq.Open(*fastqFile)
	if err != nil {
		return err
	}
	defer func() {
		nerr := reads.Close()
		if err == nil {
			err = nerr
		}
	}()

	output := vg.NewWriter(*alignmentFile)
	aligner := align.NewAligner(g, align.Params{
		InitialBandwidth: *initialBandwidth,
		RampBandwidth:    *rampBandwidth,
		DynamicRowStart:  *dynamicRowStart,
	})
	paths, err := aligner.AlignReads(reads, output, align.PipelineOptions{
		Threads:      *numThreads,
		SeedHits:     seedHits,
		FullStart:    *initialFullBand,
		CollectPaths: *auggraphFile != "",
	})
	output.Close()
	if err != nil {
		return err
	}

	if *auggraphFile != "" {
		augmented := *source
		augmented.Path = append(append([]vg.Path(nil), augmented.Path...), paths...)
		augmented.Name = utils.RunID
		writer := vg.NewWriter(*auggraphFile)
		writer.WriteMessage(&augmented)
		writer.Close()
	}

	return err
}
