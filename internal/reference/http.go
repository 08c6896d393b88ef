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
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/status"
)

// HTTPService is a Service backed by a remote reference genome REST
// service exposing:
//
//	GET {base}/genomes                 -> ["hg19", ...]
//	GET {base}/genomes/{genome}/contigs -> [{"id": "chr1", "length": 249250621}, ...]
type HTTPService struct {
	base   string
	client *http.Client
}

// NewHTTPService returns a service that talks to the server at base using
// client.  If client is nil, http.DefaultClient is used.
func NewHTTPService(base string, client *http.Client) *HTTPService {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPService{strings.TrimSuffix(base, "/"), client}
}

// NewAuthorizedHTTPService returns a service whose requests are authorized
// with tokens from source.
func NewAuthorizedHTTPService(ctx context.Context, base string, source oauth2.TokenSource) *HTTPService {
	return NewHTTPService(base, oauth2.NewClient(ctx, source))
}

// ReferenceGenomes returns the genomes known to the remote service.
func (s *HTTPService) ReferenceGenomes(ctx context.Context) ([]genomics.ReferenceGenome, error) {
	var genomes []genomics.ReferenceGenome
	if err := s.get(ctx, "/genomes", &genomes); err != nil {
		return nil, fmt.Errorf("listing reference genomes: %w", err)
	}
	return genomes, nil
}

// Contigs returns the ordered contig list of genome.
func (s *HTTPService) Contigs(ctx context.Context, genome genomics.ReferenceGenome) ([]genomics.Contig, error) {
	var contigs []genomics.Contig
	err := s.get(ctx, "/genomes/"+url.PathEscape(string(genome))+"/contigs", &contigs)
	if err == errNotFound {
		return nil, status.Errorf(status.UnknownReferenceGenome, "no reference genome %q", genome)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching contigs of %s: %w", genome, err)
	}
	return contigs, nil
}

var errNotFound = errors.New("not found")

func (s *HTTPService) get(ctx context.Context, path string, v interface{}) error {
	request, err := http.NewRequest("GET", s.base+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %v", err)
	}
	response, err := s.client.Do(request.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending request: %v", err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return errNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return status.Errorf(status.AccessDenied, "%s: %v", path, response.Status)
	default:
		return fmt.Errorf("unexpected response status: %v", response.Status)
	}

	if err := json.NewDecoder(response.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %v", err)
	}
	return nil
}
