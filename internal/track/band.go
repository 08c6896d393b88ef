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
	"sort"
	"strconv"
	"strings"

	"github.com/googlegenomics/bands/internal/genomics"
)

// Band is an annotated half-open interval [Start, End) of a track.
type Band struct {
	Track      string              `json:"track"`
	Start      genomics.Coordinate `json:"start"`
	End        genomics.Coordinate `json:"end"`
	Name       string              `json:"name,omitempty"`
	Properties map[string]string   `json:"properties,omitempty"`
}

// Key identifies a band by value.
type Key string

// Key returns the identity of b.  Two bands have the same key iff their
// tracks, coordinates, names and properties are equal.
func (b *Band) Key() Key {
	var key strings.Builder
	key.WriteString(strconv.Quote(b.Track))
	for _, c := range []genomics.Coordinate{b.Start, b.End} {
		key.WriteByte(' ')
		key.WriteString(strconv.Quote(string(c.Genome)))
		key.WriteByte(':')
		key.WriteString(strconv.Quote(c.Contig))
		key.WriteByte(':')
		key.WriteString(strconv.FormatUint(c.Offset, 10))
	}
	key.WriteByte(' ')
	key.WriteString(strconv.Quote(b.Name))

	names := make([]string, 0, len(b.Properties))
	for name := range b.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key.WriteByte(' ')
		key.WriteString(strconv.Quote(name))
		key.WriteByte('=')
		key.WriteString(strconv.Quote(b.Properties[name]))
	}
	return Key(key.String())
}

// Set is a set of bands keyed by identity.
type Set map[Key]*Band

// Add inserts bands into s.
func (s Set) Add(bands ...*Band) {
	for _, b := range bands {
		s[b.Key()] = b
	}
}

// Union inserts every band of other into s.
func (s Set) Union(other Set) {
	for k, b := range other {
		s[k] = b
	}
}

// Sorted returns the bands of s ordered by key.
func (s Set) Sorted() []*Band {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	bands := make([]*Band, len(keys))
	for i, k := range keys {
		bands[i] = s[Key(k)]
	}
	return bands
}

// Record is a raw interval read from a data source before it is validated
// against a reference genome.
type Record struct {
	Contig     string
	Start, End uint64
	Name       string
	Properties map[string]string
}
