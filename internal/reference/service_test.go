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
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/googlegenomics/bands/internal/blob"
	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/status"
)

func TestReadStaticService(t *testing.T) {
	service, err := ReadStaticService(strings.NewReader(`{
		"hg19": [{"id": "chr2", "length": 200}, {"id": "chr10", "length": 100}, {"id": "chr1", "length": 300}],
		"dm6": []
	}`))
	if err != nil {
		t.Fatalf("ReadStaticService() returned error: %v", err)
	}
	genomes, err := service.ReferenceGenomes(context.Background())
	if err != nil {
		t.Fatalf("ReferenceGenomes() returned error: %v", err)
	}
	if want := []genomics.ReferenceGenome{"dm6", "hg19"}; !reflect.DeepEqual(genomes, want) {
		t.Errorf("Wrong genomes: got %v, want %v", genomes, want)
	}
	contigs, err := service.Contigs(context.Background(), "hg19")
	if err != nil {
		t.Fatalf("Contigs() returned error: %v", err)
	}
	if !reflect.DeepEqual(contigs, hg19) {
		t.Errorf("Wrong contigs: got %v, want %v", contigs, hg19)
	}
}

func TestReadFAI(t *testing.T) {
	contigs, err := ReadFAI(strings.NewReader("chr2\t200\t6\t60\t61\nchr10\t100\t210\t60\t61\n\nchr1\t300\t320\t60\t61\n"))
	if err != nil {
		t.Fatalf("ReadFAI() returned error: %v", err)
	}
	if !reflect.DeepEqual(contigs, hg19) {
		t.Errorf("Wrong contigs: got %v, want %v", contigs, hg19)
	}

	for _, input := range []string{"chr1\n", "chr1\tlong\t0\t60\t61\n"} {
		if _, err := ReadFAI(strings.NewReader(input)); err == nil {
			t.Errorf("ReadFAI(%q) succeeded, want error", input)
		}
	}
}

// fakeBlobs serves in-memory objects from a single bucket.
type fakeBlobs map[string]string

func (f fakeBlobs) NewObjectHandle(bucket, object string) blob.ObjectHandle {
	return fakeObject{f, object}
}

func (f fakeBlobs) List(_ context.Context, _, prefix string) ([]string, error) {
	var names []string
	for name := range f {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

type fakeObject struct {
	blobs fakeBlobs
	name  string
}

func (o fakeObject) NewRangeReader(context.Context, int64, int64) (io.ReadCloser, error) {
	content, ok := o.blobs[o.name]
	if !ok {
		return nil, blob.ErrObjectNotExist
	}
	return ioutil.NopCloser(strings.NewReader(content)), nil
}

func TestFAIService(t *testing.T) {
	service := NewFAIService(fakeBlobs{
		"refs/hg19.fa.fai": "chr2\t200\nchr10\t100\nchr1\t300\n",
		"refs/mm10.fa.fai": "chrX\t10\n",
		"refs/mm10.fa":     ">chrX\n",
	}, "bucket", "refs/")
	ctx := context.Background()

	genomes, err := service.ReferenceGenomes(ctx)
	if err != nil {
		t.Fatalf("ReferenceGenomes() returned error: %v", err)
	}
	if want := []genomics.ReferenceGenome{"hg19", "mm10"}; !reflect.DeepEqual(genomes, want) {
		t.Errorf("Wrong genomes: got %v, want %v", genomes, want)
	}

	contigs, err := service.Contigs(ctx, "hg19")
	if err != nil {
		t.Fatalf("Contigs() returned error: %v", err)
	}
	if !reflect.DeepEqual(contigs, hg19) {
		t.Errorf("Wrong contigs: got %v, want %v", contigs, hg19)
	}

	if _, err := service.Contigs(ctx, "hg38"); !status.Is(err, status.UnknownReferenceGenome) {
		t.Errorf("Contigs(hg38) returned %v, want %s", err, status.UnknownReferenceGenome)
	}
}

func TestHTTPService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/v1/genomes":
			json.NewEncoder(w).Encode([]string{"hg19"})
		case "/v1/genomes/hg19/contigs":
			json.NewEncoder(w).Encode(hg19)
		case "/v1/genomes/secret/contigs":
			w.WriteHeader(http.StatusForbidden)
		case "/v1/genomes/broken/contigs":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	service := NewHTTPService(server.URL+"/v1/", nil)
	ctx := context.Background()

	genomes, err := service.ReferenceGenomes(ctx)
	if err != nil {
		t.Fatalf("ReferenceGenomes() returned error: %v", err)
	}
	if want := []genomics.ReferenceGenome{"hg19"}; !reflect.DeepEqual(genomes, want) {
		t.Errorf("Wrong genomes: got %v, want %v", genomes, want)
	}

	contigs, err := service.Contigs(ctx, "hg19")
	if err != nil {
		t.Fatalf("Contigs() returned error: %v", err)
	}
	if !reflect.DeepEqual(contigs, hg19) {
		t.Errorf("Wrong contigs: got %v, want %v", contigs, hg19)
	}

	testCases := []struct {
		genome genomics.ReferenceGenome
		kind   status.Kind
	}{
		{"hg38", status.NotFound},
		{"secret", status.PermissionDenied},
		{"broken", status.Internal},
	}
	for _, tc := range testCases {
		t.Run(string(tc.genome), func(t *testing.T) {
			_, err := service.Contigs(ctx, tc.genome)
			if err == nil {
				t.Fatalf("Contigs() succeeded, want error")
			}
			if got := status.KindOf(err); got != tc.kind {
				t.Errorf("Wrong error kind for %v: got %v, want %v", err, got, tc.kind)
			}
		})
	}
}

// fakeCache is an in-memory Cache.
type fakeCache struct {
	values map[string]string
	err    error
}

func (c *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	if c.err != nil {
		return redis.NewStringResult("", c.err)
	}
	value, ok := c.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if c.err != nil {
		return redis.NewStatusResult("", c.err)
	}
	c.values[key] = fmt.Sprintf("%s", value)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	service := &countingService{Service: StaticService{"hg19": hg19}}
	cache := &fakeCache{values: make(map[string]string)}
	ctx := context.Background()

	// Two independent caches sharing redis fetch from the service once.
	for i := 0; i < 2; i++ {
		contigs, err := NewRedisCache(service, cache, time.Hour).Contigs(ctx, "hg19")
		if err != nil {
			t.Fatalf("Contigs() returned error: %v", err)
		}
		if !reflect.DeepEqual(contigs, hg19) {
			t.Errorf("Wrong contigs: got %v, want %v", contigs, hg19)
		}
	}
	if got, want := service.fetches, int32(1); got != want {
		t.Errorf("Wrong number of fetches: got %d, want %d", got, want)
	}

	if _, err := NewRedisCache(service, cache, 0).Contigs(ctx, "hg38"); !status.Is(err, status.UnknownReferenceGenome) {
		t.Errorf("Contigs(hg38) returned %v, want %s", err, status.UnknownReferenceGenome)
	}
	if _, ok := cache.values[redisKeyPrefix+"hg38"]; ok {
		t.Errorf("Unknown genome was cached")
	}
}

func TestRedisCache_FallsBackOnRedisErrors(t *testing.T) {
	service := &countingService{Service: StaticService{"hg19": hg19}}
	cache := &fakeCache{err: errors.New("connection refused")}

	contigs, err := NewRedisCache(service, cache, 0).Contigs(context.Background(), "hg19")
	if err != nil {
		t.Fatalf("Contigs() returned error: %v", err)
	}
	if !reflect.DeepEqual(contigs, hg19) {
		t.Errorf("Wrong contigs: got %v, want %v", contigs, hg19)
	}
}
