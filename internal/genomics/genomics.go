// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package genomics contains definitions related to Genomic data.
package genomics

import (
	"context"
	"fmt"

	"github.com/googlegenomics/bands/internal/status"
)

// ReferenceGenome identifies a reference assembly such as "hg19".
type ReferenceGenome string

// Contig is a named sequence of a reference genome.
type Contig struct {
	ID     string `json:"id"`
	Length uint64 `json:"length"`
}

// Coordinate is a position on a contig of a reference genome.  Coordinates
// are values: two coordinates are equal iff all fields are equal, and a
// Coordinate may be used as a map key.
type Coordinate struct {
	Genome ReferenceGenome `json:"genome"`
	Contig string          `json:"contig"`
	Offset uint64          `json:"offset"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s:%s:%d", c.Genome, c.Contig, c.Offset)
}

// ContigIndexer resolves the rank of a contig within its genome.
type ContigIndexer interface {
	// ContigIndex returns the position of contig in the ordered contig list of
	// genome.  It fails with UnknownReferenceGenome or UnknownContig.
	ContigIndex(ctx context.Context, genome ReferenceGenome, contig string) (int, error)
}

// ContigOrder provides the externally defined contig order of genomes.
type ContigOrder interface {
	ContigIndexer

	// Contigs returns the ordered contigs of genome.
	Contigs(ctx context.Context, genome ReferenceGenome) ([]Contig, error)
}

// Validate checks that c names a known contig and that its offset does not
// exceed the contig length.  An offset equal to the length is allowed since
// it is the exclusive end of the last position.
func Validate(ctx context.Context, order ContigOrder, c Coordinate) error {
	index, err := order.ContigIndex(ctx, c.Genome, c.Contig)
	if err != nil {
		return err
	}
	contigs, err := order.Contigs(ctx, c.Genome)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(contigs) {
		return status.Errorf(status.UnknownContig, "contig %q not in %s", c.Contig, c.Genome)
	}
	if length := contigs[index].Length; c.Offset > length {
		return status.Errorf(status.CoordinateOutOfBounds, "%s: offset beyond contig length %d", c, length)
	}
	return nil
}
