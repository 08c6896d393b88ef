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

// Package query answers window queries over several tracks.
//
// A query names an anchor coordinate, the number of borders to collect on
// each side of it and the tracks to search, each with an optional filter.
// The result holds the bands covering the anchor and the bands generating
// the nearest borders, ordered by walking outwards from the anchor.
package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/registry"
	"github.com/googlegenomics/bands/internal/status"
	"github.com/googlegenomics/bands/internal/track"
)

// Request is a window query.
type Request struct {
	Anchor genomics.Coordinate
	// Left and Right are the number of borders collected before and after
	// the anchor in every track.
	Left, Right int
	// Tracks maps track names to filters.  A nil filter matches every band.
	Tracks map[string]*filter.Filter
}

// Result holds the bands found by a query in visitation order.
type Result struct {
	Bands []*track.Band `json:"bands"`
}

// Engine runs queries against the tracks of a registry.
type Engine struct {
	tracks *registry.Registry
	order  genomics.ContigOrder
	attrs  filter.Attributes
}

// NewEngine returns an engine that resolves tracks in tracks, contigs in
// order and filter attributes in attrs.
func NewEngine(tracks *registry.Registry, order genomics.ContigOrder, attrs filter.Attributes) *Engine {
	return &Engine{tracks, order, attrs}
}

// CompileFilter compiles q against the attributes known to the engine.
func (e *Engine) CompileFilter(q *filter.Query) (*filter.Filter, error) {
	return filter.Compile(q, e.attrs)
}

// Query runs req.  Any failure, in any track, fails the whole query.
func (e *Engine) Query(ctx context.Context, req *Request) (*Result, error) {
	if err := genomics.Validate(ctx, e.order, req.Anchor); err != nil {
		return nil, err
	}
	if req.Left < 0 || req.Right < 0 {
		return nil, status.Errorf(status.IllegalWindowSize, "window sizes must not be negative: left %d, right %d", req.Left, req.Right)
	}

	names := make([]string, 0, len(req.Tracks))
	for name := range req.Tracks {
		names = append(names, name)
	}
	sort.Strings(names)
	sources, err := e.tracks.Snapshot(names)
	if err != nil {
		return nil, err
	}

	bands := make(track.Set)
	var borders []genomics.Coordinate
	for _, name := range names {
		found, err := collect(ctx, sources[name], req, req.Tracks[name])
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", name, err)
		}
		for _, b := range found {
			borders = append(borders, b.Start, b.End)
		}
		bands.Union(found)
	}

	ordering := genomics.NewOrdering(ctx, e.order)
	sorted, err := ordering.Unique(borders)
	if err != nil {
		return nil, err
	}
	p, err := ordering.Search(sorted, req.Anchor)
	if err != nil {
		return nil, err
	}

	generants := make(map[genomics.Coordinate][]*track.Band)
	for _, b := range bands.Sorted() {
		generants[b.Start] = append(generants[b.Start], b)
		if b.End != b.Start {
			generants[b.End] = append(generants[b.End], b)
		}
	}
	for _, list := range generants {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Track < list[j].Track })
	}

	result := &Result{Bands: make([]*track.Band, 0, len(bands))}
	seen := make(map[track.Key]bool, len(bands))
	visit := func(c genomics.Coordinate) {
		for _, b := range generants[c] {
			if k := b.Key(); !seen[k] {
				seen[k] = true
				result.Bands = append(result.Bands, b)
			}
		}
	}
	for i := p; i < len(sorted); i++ {
		visit(sorted[i])
	}
	for i := p - 1; i >= 0; i-- {
		visit(sorted[i])
	}
	return result, nil
}

// collect returns the bands of src covering the anchor or generating one
// of the borders in the windows of req.
func collect(ctx context.Context, src track.Source, req *Request, f *filter.Filter) (track.Set, error) {
	covering, err := src.Coverage(ctx, req.Anchor, f)
	if err != nil {
		return nil, err
	}
	right, err := track.RightBordersGenerants(ctx, src, req.Right, req.Anchor, f)
	if err != nil {
		return nil, err
	}
	left, err := track.LeftBordersGenerants(ctx, src, req.Left, req.Anchor, f)
	if err != nil {
		return nil, err
	}

	found := make(track.Set, len(covering)+len(right)+len(left))
	found.Add(covering...)
	found.Union(right)
	found.Union(left)
	return found, nil
}
