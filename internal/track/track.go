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

// Package track contains bands and the index used to answer window queries
// over the bands of a single track.
package track

import (
	"context"

	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/genomics"
)

// Source is the read-only view of a track used by queries.  Implementations
// must be safe for concurrent use.
type Source interface {
	// LeftBorders returns, in ascending order, the count borders closest to
	// anchor that are not after it.
	LeftBorders(ctx context.Context, count int, anchor genomics.Coordinate) ([]genomics.Coordinate, error)
	// RightBorders returns, in ascending order, the count borders closest to
	// anchor that are not before it.
	RightBorders(ctx context.Context, count int, anchor genomics.Coordinate) ([]genomics.Coordinate, error)
	// BorderGenerants returns the bands matching f that start or end exactly
	// at coord.
	BorderGenerants(coord genomics.Coordinate, f *filter.Filter) []*Band
	// Coverage returns the bands matching f with start <= anchor < end.
	Coverage(ctx context.Context, anchor genomics.Coordinate, f *filter.Filter) ([]*Band, error)
}

// LeftBordersGenerants returns the bands matching f that generate the count
// borders left of anchor.
func LeftBordersGenerants(ctx context.Context, src Source, count int, anchor genomics.Coordinate, f *filter.Filter) (Set, error) {
	borders, err := src.LeftBorders(ctx, count, anchor)
	if err != nil {
		return nil, err
	}
	return generants(src, borders, f), nil
}

// RightBordersGenerants returns the bands matching f that generate the count
// borders right of anchor.
func RightBordersGenerants(ctx context.Context, src Source, count int, anchor genomics.Coordinate, f *filter.Filter) (Set, error) {
	borders, err := src.RightBorders(ctx, count, anchor)
	if err != nil {
		return nil, err
	}
	return generants(src, borders, f), nil
}

func generants(src Source, borders []genomics.Coordinate, f *filter.Filter) Set {
	set := make(Set)
	for _, c := range borders {
		set.Add(src.BorderGenerants(c, f)...)
	}
	return set
}
