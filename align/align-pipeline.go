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
	"context"
	"log"

	"github.com/exascience/elalign/fastq"
	"github.com/exascience/elalign/seeds"
	"github.com/exascience/elalign/vg"

	"github.com/exascience/pargo/pipeline"
)

// PipelineOptions configure a read-alignment run.
type PipelineOptions struct {
	// Threads is the number of parallel alignment workers.
	Threads int
	// SeedHits maps read names to their seed hits.
	SeedHits map[string][]seeds.Hit
	// FullStart enables seed-free alignment for reads without hits.
	FullStart bool
	// CollectPaths keeps the aligned paths for augmented-graph output.
	CollectPaths bool
}

// fastqSource adapts a fastq.Reader to a pargo pipeline source.
type fastqSource struct {
	reader *fastq.Reader
	data   []fastq.Read
}

// Err implements the corresponding method of pipeline.Source
func (src *fastqSource) Err() error { return src.reader.Err() }

// Prepare implements the corresponding method of pipeline.Source
func (src *fastqSource) Prepare(_ context.Context) (size int) { return -1 }

// Fetch implements the corresponding method of pipeline.Source
func (src *fastqSource) Fetch(size int) (fetched int) {
	// a fresh batch every time: the previous one may still be in
	// flight further down the pipeline
	data := make([]fastq.Read, 0, size)
	for len(data) < size {
		read, ok := src.reader.Next()
		if !ok {
			break
		}
		data = append(data, read)
	}
	src.data = data
	return len(data)
}

// Data implements the corresponding method of pipeline.Source
func (src *fastqSource) Data() interface{} { return src.data }

func (a *Aligner) alignRead(read fastq.Read, hits []seeds.Hit, fullStart bool) (result AlignmentResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("alignment of read %v aborted: %v", read.Name, r)
			result = a.emptyAlignment(0, 0)
		}
	}()
	if len(hits) > 0 {
		return a.AlignOneWaySeeded(read.Name, read.Sequence, hits)
	}
	if fullStart {
		return a.AlignOneWay(read.Name, read.Sequence)
	}
	log.Printf("read %v has no seed hits", read.Name)
	return a.emptyAlignment(0, 0)
}

// AlignReads aligns every read in the input against the graph,
// writing one alignment message per successful read to the output in
// input order. Failed reads produce no record but do not stop the
// run. When requested, the aligned paths are returned for
// augmented-graph output.
func (a *Aligner) AlignReads(reads *fastq.Reader, output *vg.Writer, options PipelineOptions) ([]vg.Path, error) {
	var paths []vg.Path
	aligned, failed := 0, 0
	var p pipeline.Pipeline
	p.Source(&fastqSource{reader: reads})
	p.Add(
		pipeline.LimitedPar(options.Threads, pipeline.Receive(func(_ int, data interface{}) interface{} {
			batch := data.([]fastq.Read)
			results := make([]AlignmentResult, len(batch))
			for i, read := range batch {
				results[i] = a.alignRead(read, options.SeedHits[read.Name], options.FullStart)
			}
			return results
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			for _, result := range data.([]AlignmentResult) {
				if result.Failed {
					failed++
					continue
				}
				aligned++
				output.WriteMessage(result.Alignment)
				if options.CollectPaths {
					path := result.Alignment.Path
					path.Name = result.Alignment.Name
					paths = append(paths, path)
				}
			}
			return nil
		})),
	)
	p.Run()
	if err := p.Err(); err != nil {
		return nil, err
	}
	log.Printf("aligned %v reads, %v failed", aligned, failed)
	return paths, nil
}
