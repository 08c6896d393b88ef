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
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/googlegenomics/bands/internal/blob"
	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/status"
)

const faiSuffix = ".fa.fai"

// FAIService is a Service that reads FASTA index files named
// {prefix}{genome}.fa.fai from a bucket.  The order of the index lines
// defines the contig order.
type FAIService struct {
	client blob.Client
	bucket string
	prefix string
}

// NewFAIService returns a service reading index files from bucket.
func NewFAIService(client blob.Client, bucket, prefix string) *FAIService {
	return &FAIService{client, bucket, prefix}
}

// ReferenceGenomes returns the genomes with an index file in the bucket.
func (s *FAIService) ReferenceGenomes(ctx context.Context) ([]genomics.ReferenceGenome, error) {
	names, err := s.client.List(ctx, s.bucket, s.prefix)
	if err != nil {
		return nil, err
	}
	var genomes []genomics.ReferenceGenome
	for _, name := range names {
		if strings.HasSuffix(name, faiSuffix) {
			genome := strings.TrimSuffix(strings.TrimPrefix(name, s.prefix), faiSuffix)
			genomes = append(genomes, genomics.ReferenceGenome(genome))
		}
	}
	sort.Slice(genomes, func(i, j int) bool { return genomes[i] < genomes[j] })
	return genomes, nil
}

// Contigs reads the index file of genome.
func (s *FAIService) Contigs(ctx context.Context, genome genomics.ReferenceGenome) ([]genomics.Contig, error) {
	r, err := blob.Open(ctx, s.client, s.bucket, s.prefix+string(genome)+faiSuffix)
	if status.Is(err, status.DataSourceNotFound) {
		return nil, status.Errorf(status.UnknownReferenceGenome, "no index for reference genome %q", genome)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	contigs, err := ReadFAI(r)
	if err != nil {
		return nil, fmt.Errorf("reading index of %s: %v", genome, err)
	}
	return contigs, nil
}

// ReadFAI parses a samtools FASTA index.  Only the name and length columns
// are used.
func ReadFAI(r io.Reader) ([]genomics.Contig, error) {
	var contigs []genomics.Contig
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: wrong number of columns.  Got: %d, want: at least 2", line, len(fields))
		}
		length, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing length: %v", line, err)
		}
		contigs = append(contigs, genomics.Contig{ID: fields[0], Length: length})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning index: %v", err)
	}
	return contigs, nil
}
