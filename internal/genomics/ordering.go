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

package genomics

import (
	"context"
	"sort"
	"strings"
)

// Ordering is the total order over coordinates.  Genomes are ordered by
// identifier, contigs by their position in the genome's contig list and
// offsets numerically.
//
// An Ordering is bound to the context used for contig lookups.  It is the
// only comparator used for sorting, searching and min/max of coordinates.
type Ordering struct {
	ctx     context.Context
	indexer ContigIndexer
}

// NewOrdering returns an Ordering that resolves contigs through indexer.
func NewOrdering(ctx context.Context, indexer ContigIndexer) Ordering {
	return Ordering{ctx, indexer}
}

// Validate checks that the contig of c is known.
func (o Ordering) Validate(c Coordinate) error {
	_, err := o.indexer.ContigIndex(o.ctx, c.Genome, c.Contig)
	return err
}

// Compare returns -1, 0 or 1 if a is before, equal to or after b.  Both
// coordinates are validated before any decision is made, even if a == b.
func (o Ordering) Compare(a, b Coordinate) (int, error) {
	ai, err := o.indexer.ContigIndex(o.ctx, a.Genome, a.Contig)
	if err != nil {
		return 0, err
	}
	bi, err := o.indexer.ContigIndex(o.ctx, b.Genome, b.Contig)
	if err != nil {
		return 0, err
	}

	if a.Genome != b.Genome {
		return strings.Compare(string(a.Genome), string(b.Genome)), nil
	}
	if a.Contig != b.Contig {
		return sign(int64(ai) - int64(bi)), nil
	}
	switch {
	case a.Offset < b.Offset:
		return -1, nil
	case a.Offset > b.Offset:
		return 1, nil
	}
	return 0, nil
}

// Sort sorts coords in place.  It returns the first comparison error, in
// which case the order of coords is unspecified.
func (o Ordering) Sort(coords []Coordinate) error {
	var failed error
	sort.SliceStable(coords, func(i, j int) bool {
		if failed != nil {
			return false
		}
		c, err := o.Compare(coords[i], coords[j])
		if err != nil {
			failed = err
			return false
		}
		return c < 0
	})
	return failed
}

// Unique returns the coordinates of coords sorted and without duplicate
// values.  coords is not modified.
func (o Ordering) Unique(coords []Coordinate) ([]Coordinate, error) {
	seen := make(map[Coordinate]bool, len(coords))
	unique := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	if err := o.Sort(unique); err != nil {
		return nil, err
	}
	return unique, nil
}

// Search returns the index of the first element of sorted that is not
// before anchor (the insertion point of anchor).
func (o Ordering) Search(sorted []Coordinate, anchor Coordinate) (int, error) {
	return o.search(sorted, anchor, func(c int) bool { return c >= 0 })
}

// SearchAfter returns the index of the first element of sorted that is after
// anchor.
func (o Ordering) SearchAfter(sorted []Coordinate, anchor Coordinate) (int, error) {
	return o.search(sorted, anchor, func(c int) bool { return c > 0 })
}

func (o Ordering) search(sorted []Coordinate, anchor Coordinate, accept func(int) bool) (int, error) {
	// The anchor must be validated even when no comparison takes place.
	if err := o.Validate(anchor); err != nil {
		return 0, err
	}
	var failed error
	i := sort.Search(len(sorted), func(i int) bool {
		if failed != nil {
			return true
		}
		c, err := o.Compare(sorted[i], anchor)
		if err != nil {
			failed = err
			return true
		}
		return accept(c)
	})
	if failed != nil {
		return 0, failed
	}
	return i, nil
}

func sign(n int64) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
