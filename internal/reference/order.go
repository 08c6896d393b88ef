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

// Package reference resolves the contig order of reference genomes.
//
// The order of contigs within a genome is defined by an external reference
// genome Service and is not alphabetical.  Order fetches each genome's contig
// list once and caches it for the lifetime of the process.
package reference

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/status"
)

// Service is the interface of a reference genome metadata service.
type Service interface {
	// ReferenceGenomes returns the genomes known to the service.
	ReferenceGenomes(ctx context.Context) ([]genomics.ReferenceGenome, error)
	// Contigs returns the ordered contig list of genome.  If the genome is not
	// known an UnknownReferenceGenome error is returned.
	Contigs(ctx context.Context, genome genomics.ReferenceGenome) ([]genomics.Contig, error)
}

type contigList struct {
	contigs []genomics.Contig
	index   map[string]int
}

// Order caches the contig lists returned by a Service.  It implements
// genomics.ContigOrder and is safe for concurrent use.  Must be created with
// NewOrder.
type Order struct {
	service Service
	group   singleflight.Group

	mu    sync.RWMutex
	lists map[genomics.ReferenceGenome]*contigList
}

// NewOrder returns an Order that fetches contig lists from service.
func NewOrder(service Service) *Order {
	return &Order{
		service: service,
		lists:   make(map[genomics.ReferenceGenome]*contigList),
	}
}

// Contigs returns the ordered contigs of genome.  The returned slice must
// not be modified.
func (o *Order) Contigs(ctx context.Context, genome genomics.ReferenceGenome) ([]genomics.Contig, error) {
	list, err := o.list(ctx, genome)
	if err != nil {
		return nil, err
	}
	return list.contigs, nil
}

// ContigIndex returns the position of contig within the contigs of genome.
func (o *Order) ContigIndex(ctx context.Context, genome genomics.ReferenceGenome, contig string) (int, error) {
	list, err := o.list(ctx, genome)
	if err != nil {
		return 0, err
	}
	i, ok := list.index[contig]
	if !ok {
		return 0, status.Errorf(status.UnknownContig, "no contig %q in reference genome %s", contig, genome)
	}
	return i, nil
}

// ReferenceGenomes returns the genomes known to the underlying service.
// The result is not cached.
func (o *Order) ReferenceGenomes(ctx context.Context) ([]genomics.ReferenceGenome, error) {
	return o.service.ReferenceGenomes(ctx)
}

// Invalidate drops the cached contig list of genome, if any.
func (o *Order) Invalidate(genome genomics.ReferenceGenome) {
	o.mu.Lock()
	delete(o.lists, genome)
	o.mu.Unlock()
}

func (o *Order) list(ctx context.Context, genome genomics.ReferenceGenome) (*contigList, error) {
	o.mu.RLock()
	list, ok := o.lists[genome]
	o.mu.RUnlock()
	if ok {
		return list, nil
	}

	// Concurrent callers for the same genome share a single fetch.  Errors
	// are returned to every waiter but never cached.  A waiter whose own
	// context is live retries a fetch that failed only because the caller
	// that issued it gave up.
	for {
		var issued bool
		v, err, _ := o.group.Do(string(genome), func() (interface{}, error) {
			issued = true
			o.mu.RLock()
			list, ok := o.lists[genome]
			o.mu.RUnlock()
			if ok {
				return list, nil
			}

			contigs, err := o.service.Contigs(ctx, genome)
			if err != nil {
				return nil, err
			}
			list = newContigList(contigs)

			o.mu.Lock()
			o.lists[genome] = list
			o.mu.Unlock()
			return list, nil
		})
		if err != nil && !issued && ctx.Err() == nil && isContextError(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return v.(*contigList), nil
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func newContigList(contigs []genomics.Contig) *contigList {
	list := &contigList{
		contigs: append([]genomics.Contig(nil), contigs...),
		index:   make(map[string]int, len(contigs)),
	}
	for i, c := range list.contigs {
		// The first occurrence wins if a service reports a contig twice.
		if _, ok := list.index[c.ID]; !ok {
			list.index[c.ID] = i
		}
	}
	return list
}
