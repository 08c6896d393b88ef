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

package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/status"
)

// StaticService is a Service backed by a fixed map of contig lists.
type StaticService map[genomics.ReferenceGenome][]genomics.Contig

// ReadStaticService decodes a JSON object mapping genome identifiers to
// ordered contig lists, for example:
//
//	{"hg19": [{"id": "chr1", "length": 249250621}, ...]}
func ReadStaticService(r io.Reader) (StaticService, error) {
	var service StaticService
	if err := json.NewDecoder(r).Decode(&service); err != nil {
		return nil, fmt.Errorf("decoding contig lists: %v", err)
	}
	return service, nil
}

// ReferenceGenomes returns the genome identifiers in lexicographic order.
func (s StaticService) ReferenceGenomes(context.Context) ([]genomics.ReferenceGenome, error) {
	genomes := make([]genomics.ReferenceGenome, 0, len(s))
	for genome := range s {
		genomes = append(genomes, genome)
	}
	sort.Slice(genomes, func(i, j int) bool { return genomes[i] < genomes[j] })
	return genomes, nil
}

// Contigs returns the contig list of genome.
func (s StaticService) Contigs(_ context.Context, genome genomics.ReferenceGenome) ([]genomics.Contig, error) {
	contigs, ok := s[genome]
	if !ok {
		return nil, status.Errorf(status.UnknownReferenceGenome, "no reference genome %q", genome)
	}
	return contigs, nil
}
