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
	"errors"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/status"
)

var hg19 = []genomics.Contig{{ID: "chr2", Length: 200}, {ID: "chr10", Length: 100}, {ID: "chr1", Length: 300}}

// countingService counts fetches and optionally blocks them until release
// is closed.
type countingService struct {
	Service
	fetches int32
	release chan struct{}
	fail    error
}

func (s *countingService) Contigs(ctx context.Context, genome genomics.ReferenceGenome) ([]genomics.Contig, error) {
	atomic.AddInt32(&s.fetches, 1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail != nil {
		return nil, s.fail
	}
	return s.Service.Contigs(ctx, genome)
}

func TestOrder_ContigIndex(t *testing.T) {
	order := NewOrder(StaticService{"hg19": hg19})
	ctx := context.Background()

	testCases := []struct {
		contig string
		index  int
	}{
		{"chr2", 0},
		{"chr10", 1},
		{"chr1", 2},
	}
	for _, tc := range testCases {
		t.Run(tc.contig, func(t *testing.T) {
			got, err := order.ContigIndex(ctx, "hg19", tc.contig)
			if err != nil {
				t.Fatalf("ContigIndex() returned error: %v", err)
			}
			if got != tc.index {
				t.Errorf("Wrong index: got %d, want %d", got, tc.index)
			}
		})
	}

	if _, err := order.ContigIndex(ctx, "hg19", "chrM"); !status.Is(err, status.UnknownContig) {
		t.Errorf("ContigIndex(chrM) returned %v, want %s", err, status.UnknownContig)
	}
	if _, err := order.ContigIndex(ctx, "hg38", "chr1"); !status.Is(err, status.UnknownReferenceGenome) {
		t.Errorf("ContigIndex(hg38) returned %v, want %s", err, status.UnknownReferenceGenome)
	}
}

func TestOrder_Caches(t *testing.T) {
	service := &countingService{Service: StaticService{"hg19": hg19}}
	order := NewOrder(service)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		contigs, err := order.Contigs(ctx, "hg19")
		if err != nil {
			t.Fatalf("Contigs() returned error: %v", err)
		}
		if !reflect.DeepEqual(contigs, hg19) {
			t.Errorf("Wrong contigs: got %v, want %v", contigs, hg19)
		}
	}
	if got, want := atomic.LoadInt32(&service.fetches), int32(1); got != want {
		t.Errorf("Wrong number of fetches: got %d, want %d", got, want)
	}

	order.Invalidate("hg19")
	if _, err := order.ContigIndex(ctx, "hg19", "chr1"); err != nil {
		t.Fatalf("ContigIndex() returned error: %v", err)
	}
	if got, want := atomic.LoadInt32(&service.fetches), int32(2); got != want {
		t.Errorf("Wrong number of fetches after Invalidate: got %d, want %d", got, want)
	}
}

func TestOrder_FailedFetchIsNotCached(t *testing.T) {
	service := &countingService{
		Service: StaticService{"hg19": hg19},
		fail:    errors.New("service unavailable"),
	}
	order := NewOrder(service)
	ctx := context.Background()

	if _, err := order.Contigs(ctx, "hg19"); err == nil {
		t.Fatalf("Contigs() succeeded with a failing service")
	}

	service.fail = nil
	contigs, err := order.Contigs(ctx, "hg19")
	if err != nil {
		t.Fatalf("Contigs() returned error after recovery: %v", err)
	}
	if !reflect.DeepEqual(contigs, hg19) {
		t.Errorf("Wrong contigs: got %v, want %v", contigs, hg19)
	}
	if got, want := atomic.LoadInt32(&service.fetches), int32(2); got != want {
		t.Errorf("Wrong number of fetches: got %d, want %d", got, want)
	}
}

func TestOrder_SingleFlight(t *testing.T) {
	service := &countingService{
		Service: StaticService{"hg19": hg19},
		release: make(chan struct{}),
	}
	order := NewOrder(service)

	const callers = 8
	var started, done sync.WaitGroup
	errs := make(chan error, callers)
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			_, err := order.ContigIndex(context.Background(), "hg19", "chr10")
			errs <- err
		}()
	}
	started.Wait()
	// Wait for the first fetch to start before releasing it.
	for atomic.LoadInt32(&service.fetches) == 0 {
		runtime.Gosched()
	}
	close(service.release)
	done.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("ContigIndex() returned error: %v", err)
		}
	}
	// Callers that arrive after the shared fetch finished hit the cache, so
	// exactly one fetch is ever issued.
	if got, want := atomic.LoadInt32(&service.fetches), int32(1); got != want {
		t.Errorf("Wrong number of fetches: got %d, want %d", got, want)
	}
}

func TestOrder_CancelledFetchDoesNotFailWaiters(t *testing.T) {
	service := &countingService{
		Service: StaticService{"hg19": hg19},
		release: make(chan struct{}),
	}
	order := NewOrder(service)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := order.Contigs(ctx, "hg19")
		first <- err
	}()
	for atomic.LoadInt32(&service.fetches) == 0 {
		runtime.Gosched()
	}

	second := make(chan error, 1)
	go func() {
		_, err := order.ContigIndex(context.Background(), "hg19", "chr1")
		second <- err
	}()
	// Give the second caller time to join the pending fetch.
	time.Sleep(10 * time.Millisecond)

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("Cancelled Contigs() returned %v, want %v", err, context.Canceled)
	}
	close(service.release)
	if err := <-second; err != nil {
		t.Errorf("ContigIndex() returned error: %v", err)
	}
	if got, want := atomic.LoadInt32(&service.fetches), int32(2); got != want {
		t.Errorf("Wrong number of fetches: got %d, want %d", got, want)
	}
}
