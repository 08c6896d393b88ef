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

package query

import (
	"context"
	"reflect"
	"testing"

	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/reference"
	"github.com/googlegenomics/bands/internal/registry"
	"github.com/googlegenomics/bands/internal/status"
	"github.com/googlegenomics/bands/internal/track"
)

var testOrder = reference.NewOrder(reference.StaticService{
	"hg19": {
		{ID: "chr1", Length: 300},
		{ID: "chr2", Length: 150},
		{ID: "chr3", Length: 200},
		{ID: "chr4", Length: 300},
	},
})

var testAttributes = filter.NewRegistry(
	&filter.Attribute{ID: "stain", Type: filter.Enum, Values: []string{"gneg", "gpos"}},
)

func at(contig string, offset uint64) genomics.Coordinate {
	return genomics.Coordinate{Genome: "hg19", Contig: contig, Offset: offset}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	tracks := registry.New()
	for name, records := range map[string][]track.Record{
		"chromosomes": {
			{Contig: "chr1", Start: 0, End: 300, Name: "chr1"},
			{Contig: "chr2", Start: 0, End: 150, Name: "chr2"},
			{Contig: "chr4", Start: 0, End: 300, Name: "chr4"},
		},
		"regions": {
			{Contig: "chr4", Start: 0, End: 100, Name: "p", Properties: map[string]string{"stain": "gneg"}},
			{Contig: "chr4", Start: 120, End: 200, Name: "q", Properties: map[string]string{"stain": "gpos"}},
			{Contig: "chr4", Start: 150, End: 300, Name: "r"},
		},
	} {
		idx, err := track.Build(context.Background(), name, "hg19", testOrder, records)
		if err != nil {
			t.Fatalf("Build(%s) returned error: %v", name, err)
		}
		tracks.Add(name, idx)
	}
	return NewEngine(tracks, testOrder, testAttributes)
}

func both() map[string]*filter.Filter {
	return map[string]*filter.Filter{"chromosomes": nil, "regions": nil}
}

type band struct {
	track, name string
	start, end  genomics.Coordinate
}

func summarize(bands []*track.Band) []band {
	var summary []band
	for _, b := range bands {
		summary = append(summary, band{b.Track, b.Name, b.Start, b.End})
	}
	return summary
}

func TestQuery(t *testing.T) {
	engine := newTestEngine(t)
	testCases := []struct {
		name        string
		anchor      genomics.Coordinate
		left, right int
		want        []band
	}{
		{"no windows", at("chr3", 100), 0, 0, nil},
		{"one right", at("chr3", 100), 0, 1, []band{
			{"chromosomes", "chr4", at("chr4", 0), at("chr4", 300)},
			{"regions", "p", at("chr4", 0), at("chr4", 100)},
		}},
		{"one left", at("chr3", 100), 1, 0, []band{
			{"chromosomes", "chr2", at("chr2", 0), at("chr2", 150)},
		}},
		{"coverage", at("chr4", 160), 0, 0, []band{
			// Visited at chr4:200, then chr4:300, then chr4:150 and so on.
			{"regions", "q", at("chr4", 120), at("chr4", 200)},
			{"chromosomes", "chr4", at("chr4", 0), at("chr4", 300)},
			{"regions", "r", at("chr4", 150), at("chr4", 300)},
		}},
		{"both sides", at("chr4", 110), 1, 1, []band{
			{"regions", "q", at("chr4", 120), at("chr4", 200)},
			{"chromosomes", "chr4", at("chr4", 0), at("chr4", 300)},
			{"regions", "p", at("chr4", 0), at("chr4", 100)},
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := engine.Query(context.Background(), &Request{
				Anchor: tc.anchor,
				Left:   tc.left,
				Right:  tc.right,
				Tracks: both(),
			})
			if err != nil {
				t.Fatalf("Query() returned error: %v", err)
			}
			if got := summarize(result.Bands); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Wrong bands:\ngot  %v\nwant %v", got, tc.want)
			}
		})
	}
}

func TestQuery_Idempotent(t *testing.T) {
	engine := newTestEngine(t)
	req := &Request{Anchor: at("chr2", 75), Left: 3, Right: 3, Tracks: both()}
	first, err := engine.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query() returned error: %v", err)
	}
	second, err := engine.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query() returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Repeated query differs:\nfirst  %v\nsecond %v", summarize(first.Bands), summarize(second.Bands))
	}
	if len(first.Bands) == 0 {
		t.Errorf("Query returned no bands")
	}
}

func TestQuery_Filter(t *testing.T) {
	engine := newTestEngine(t)
	testCases := []struct {
		name         string
		includeNulls bool
		want         []string
	}{
		{"nulls excluded", false, []string{"q"}},
		{"nulls included", true, []string{"q", "r"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := engine.CompileFilter(&filter.Query{Filters: []filter.AttributeFilter{{
				ID:           "positive",
				Attribute:    "stain",
				Operator:     filter.Equal,
				Values:       []string{"gpos"},
				IncludeNulls: tc.includeNulls,
			}}})
			if err != nil {
				t.Fatalf("CompileFilter() returned error: %v", err)
			}
			result, err := engine.Query(context.Background(), &Request{
				Anchor: at("chr4", 160),
				Tracks: map[string]*filter.Filter{"regions": f},
			})
			if err != nil {
				t.Fatalf("Query() returned error: %v", err)
			}
			var names []string
			for _, b := range result.Bands {
				names = append(names, b.Name)
			}
			if !reflect.DeepEqual(names, tc.want) {
				t.Errorf("Wrong bands: got %v, want %v", names, tc.want)
			}
		})
	}
}

func TestQuery_Errors(t *testing.T) {
	engine := newTestEngine(t)
	testCases := []struct {
		name  string
		req   Request
		error string
	}{
		{"unknown genome", Request{Anchor: genomics.Coordinate{Genome: "hg38", Contig: "chr1"}, Tracks: both()}, status.UnknownReferenceGenome},
		{"unknown contig", Request{Anchor: at("chr9", 0), Right: 1, Tracks: both()}, status.UnknownContig},
		{"unknown contig without tracks", Request{Anchor: at("chr9", 0)}, status.UnknownContig},
		{"beyond contig", Request{Anchor: at("chr2", 151), Tracks: both()}, status.CoordinateOutOfBounds},
		{"negative window", Request{Anchor: at("chr2", 0), Left: -1, Tracks: both()}, status.IllegalWindowSize},
		{"missing track", Request{Anchor: at("chr2", 0), Tracks: map[string]*filter.Filter{"regions": nil, "genes": nil}}, status.TrackNotFound},
		// The anchor is checked before the tracks.
		{"unknown contig and missing track", Request{Anchor: at("chr9", 0), Tracks: map[string]*filter.Filter{"genes": nil}}, status.UnknownContig},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := engine.Query(context.Background(), &tc.req)
			if !status.Is(err, tc.error) {
				t.Errorf("Query() returned %v, want %s", err, tc.error)
			}
			if result != nil {
				t.Errorf("Query() returned bands with an error: %v", summarize(result.Bands))
			}
		})
	}
}

func TestQuery_SnapshotSurvivesReplacement(t *testing.T) {
	engine := newTestEngine(t)
	req := &Request{Anchor: at("chr3", 100), Right: 1, Tracks: map[string]*filter.Filter{"regions": nil}}

	idx, err := track.Build(context.Background(), "regions", "hg19", testOrder, []track.Record{{Contig: "chr4", Start: 10, End: 20, Name: "s"}})
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	engine.tracks.Add("regions", idx)

	result, err := engine.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query() returned error: %v", err)
	}
	if got, want := summarize(result.Bands), []band{{"regions", "s", at("chr4", 10), at("chr4", 20)}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong bands after replacement: got %v, want %v", got, want)
	}
}
