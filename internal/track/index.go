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

package track

import (
	"context"
	"fmt"
	"sort"

	"github.com/cznic/mathutil"

	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/status"
)

// Index is an immutable in-memory track.  It is safe for concurrent use.
type Index struct {
	name   string
	genome genomics.ReferenceGenome
	order  genomics.ContigIndexer

	// coords is the ascending, duplicate-free sequence of band borders.
	coords    []genomics.Coordinate
	generants map[genomics.Coordinate][]*Band
	contigs   map[string]*contigBands
	size      int
}

// contigBands holds the bands of one contig sorted by start offset.
// maxEnd[i] is the largest end offset of bands[0..i].
type contigBands struct {
	bands  []*Band
	maxEnd []uint64
}

// Build validates records against the contig order of genome and indexes
// them as the track called name.  Records that produce equal bands are
// stored once.
func Build(ctx context.Context, name string, genome genomics.ReferenceGenome, order genomics.ContigOrder, records []Record) (*Index, error) {
	bands := make(Set, len(records))
	for i, r := range records {
		start := genomics.Coordinate{Genome: genome, Contig: r.Contig, Offset: r.Start}
		end := genomics.Coordinate{Genome: genome, Contig: r.Contig, Offset: r.End}
		if err := genomics.Validate(ctx, order, start); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := genomics.Validate(ctx, order, end); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if r.Start > r.End {
			return nil, status.Errorf(status.InvalidGenomicCoordinate, "record %d: start %d after end %d", i, r.Start, r.End)
		}
		bands.Add(&Band{
			Track:      name,
			Start:      start,
			End:        end,
			Name:       r.Name,
			Properties: r.Properties,
		})
	}

	idx := &Index{
		name:      name,
		genome:    genome,
		order:     order,
		generants: make(map[genomics.Coordinate][]*Band),
		contigs:   make(map[string]*contigBands),
		size:      len(bands),
	}
	var borders []genomics.Coordinate
	for _, b := range bands.Sorted() {
		idx.generants[b.Start] = append(idx.generants[b.Start], b)
		if b.End != b.Start {
			idx.generants[b.End] = append(idx.generants[b.End], b)
		}
		borders = append(borders, b.Start, b.End)

		cb, ok := idx.contigs[b.Start.Contig]
		if !ok {
			cb = &contigBands{}
			idx.contigs[b.Start.Contig] = cb
		}
		cb.bands = append(cb.bands, b)
	}

	coords, err := genomics.NewOrdering(ctx, order).Unique(borders)
	if err != nil {
		return nil, fmt.Errorf("sorting borders: %w", err)
	}
	idx.coords = coords

	for _, cb := range idx.contigs {
		sort.SliceStable(cb.bands, func(i, j int) bool {
			return cb.bands[i].Start.Offset < cb.bands[j].Start.Offset
		})
		cb.maxEnd = make([]uint64, len(cb.bands))
		var max uint64
		for i, b := range cb.bands {
			if b.End.Offset > max {
				max = b.End.Offset
			}
			cb.maxEnd[i] = max
		}
	}
	return idx, nil
}

// Name returns the track name.
func (idx *Index) Name() string {
	return idx.name
}

// Genome returns the reference genome the bands are placed on.
func (idx *Index) Genome() genomics.ReferenceGenome {
	return idx.genome
}

// Len returns the number of distinct bands.
func (idx *Index) Len() int {
	return idx.size
}

// Borders returns a copy of the sorted border sequence.
func (idx *Index) Borders() []genomics.Coordinate {
	return append([]genomics.Coordinate(nil), idx.coords...)
}

// LeftBorders returns, in ascending order, up to count borders at or before
// anchor.
func (idx *Index) LeftBorders(ctx context.Context, count int, anchor genomics.Coordinate) ([]genomics.Coordinate, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	p, err := genomics.NewOrdering(ctx, idx.order).SearchAfter(idx.coords, anchor)
	if err != nil {
		return nil, err
	}
	return idx.window(mathutil.Max(0, p-count), p), nil
}

// RightBorders returns, in ascending order, up to count borders at or after
// anchor.
func (idx *Index) RightBorders(ctx context.Context, count int, anchor genomics.Coordinate) ([]genomics.Coordinate, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	p, err := genomics.NewOrdering(ctx, idx.order).Search(idx.coords, anchor)
	if err != nil {
		return nil, err
	}
	return idx.window(p, mathutil.Min(len(idx.coords), p+count)), nil
}

func (idx *Index) window(from, to int) []genomics.Coordinate {
	if from >= to {
		return nil
	}
	return append([]genomics.Coordinate(nil), idx.coords[from:to]...)
}

func checkCount(count int) error {
	if count < 0 {
		return status.Errorf(status.IllegalWindowSize, "negative window size %d", count)
	}
	return nil
}

// BorderGenerants returns the bands matching f that start or end at coord.
func (idx *Index) BorderGenerants(coord genomics.Coordinate, f *filter.Filter) []*Band {
	var bands []*Band
	for _, b := range idx.generants[coord] {
		if f.Match(b.Properties) {
			bands = append(bands, b)
		}
	}
	return bands
}

// Coverage returns the bands matching f that contain anchor, ordered by
// start offset.
func (idx *Index) Coverage(ctx context.Context, anchor genomics.Coordinate, f *filter.Filter) ([]*Band, error) {
	if err := genomics.NewOrdering(ctx, idx.order).Validate(anchor); err != nil {
		return nil, err
	}
	if anchor.Genome != idx.genome {
		return nil, nil
	}
	cb, ok := idx.contigs[anchor.Contig]
	if !ok {
		return nil, nil
	}

	// Bands at or after i start after the anchor.
	i := sort.Search(len(cb.bands), func(i int) bool {
		return cb.bands[i].Start.Offset > anchor.Offset
	})
	var covering []*Band
	for j := i - 1; j >= 0 && cb.maxEnd[j] > anchor.Offset; j-- {
		b := cb.bands[j]
		if b.End.Offset > anchor.Offset && f.Match(b.Properties) {
			covering = append(covering, b)
		}
	}
	for l, r := 0, len(covering)-1; l < r; l, r = l+1, r-1 {
		covering[l], covering[r] = covering[r], covering[l]
	}
	return covering, nil
}
