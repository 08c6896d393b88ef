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

// This binary runs band window queries against a band server using Google
// authentication and writes the result in BED format.
package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/googlegenomics/bands/api"
	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/query"
	"github.com/googlegenomics/bands/internal/track"
)

const (
	scope = "https://www.googleapis.com/auth/devstorage.read_only"
)

var (
	genome  = flag.String("g", "", "reference genome of the anchor")
	contig  = flag.String("c", "", "contig of the anchor")
	offset  = flag.Uint64("p", 0, "offset of the anchor")
	left    = flag.Int("l", 0, "number of borders before the anchor")
	right   = flag.Int("r", 0, "number of borders after the anchor")
	tracks  = flag.String("t", "", "comma-separated list of tracks to query")
	filters = flag.String("f", "", "JSON file mapping track names to filter queries")
	output  = flag.String("o", "", "output filename")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("Usage: %s [flags] server-url", os.Args[0])
	}

	w := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("Failed to open output file: %v", err)
		}
		defer f.Close()

		w = f
	}

	body, err := newQueryRequest()
	if err != nil {
		log.Fatalf("Failed to build query: %v", err)
	}

	ctx := context.Background()

	// For compatibility with other tools, read the standard cURL certificate
	// authority override from the environment.
	if bundle := os.Getenv("CURL_CA_BUNDLE"); bundle != "" {
		pem, err := ioutil.ReadFile(bundle)
		if err != nil {
			log.Fatalf("Failed to read CA override file %q: %v", bundle, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			log.Fatalf("Failed to initialize system certificate pool: %v", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			log.Fatalf("Failed to add certificates from bundle %q", bundle)
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs: pool,
				}},
		})
		log.Printf("Using CA override bundle from %q", bundle)
	}

	client, err := google.DefaultClient(ctx, scope)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	target := strings.TrimSuffix(flag.Arg(0), "/") + "/query"
	log.Printf("Querying %q around %v", target, body.Anchor)

	result, err := runQuery(client, target, body)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	log.Printf("Received %d bands", len(result.Bands))

	for _, band := range result.Bands {
		if _, err := io.WriteString(w, formatBED(band)); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
	}
}

func newQueryRequest() (*api.QueryRequest, error) {
	body := &api.QueryRequest{
		Anchor: genomics.Coordinate{
			Genome: genomics.ReferenceGenome(*genome),
			Contig: *contig,
			Offset: *offset,
		},
		Left:   *left,
		Right:  *right,
		Tracks: make(map[string]*filter.Query),
	}
	if *filters != "" {
		data, err := ioutil.ReadFile(*filters)
		if err != nil {
			return nil, fmt.Errorf("reading filters: %v", err)
		}
		if err := json.Unmarshal(data, &body.Tracks); err != nil {
			return nil, fmt.Errorf("decoding filters: %v", err)
		}
	}
	if *tracks != "" {
		for _, name := range strings.Split(*tracks, ",") {
			if _, ok := body.Tracks[name]; !ok {
				body.Tracks[name] = nil
			}
		}
	}
	if len(body.Tracks) == 0 {
		return nil, fmt.Errorf("no tracks specified")
	}
	return body, nil
}

func runQuery(client *http.Client, target string, body *api.QueryRequest) (*query.Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %v", err)
	}
	resp, err := client.Post(target, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sending request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var result query.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %v", err)
	}
	return &result, nil
}

// formatBED renders band as a BED4 line followed by the track name and the
// properties sorted by key.
func formatBED(band *track.Band) string {
	name := band.Name
	if name == "" {
		name = "."
	}
	keys := make([]string, 0, len(band.Properties))
	for key := range band.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	props := make([]string, len(keys))
	for i, key := range keys {
		props[i] = key + "=" + band.Properties[key]
	}
	extra := "."
	if len(props) > 0 {
		extra = strings.Join(props, ";")
	}
	return fmt.Sprintf("%s\t%d\t%d\t%s\t%s\t%s\n",
		band.Start.Contig, band.Start.Offset, band.End.Offset, name, band.Track, extra)
}

func errorFromResponse(resp *http.Response) error {
	var v struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil || v.Error == "" {
		return fmt.Errorf("unexpected response status: %q", resp.Status)
	}
	return fmt.Errorf("%s: %s", v.Error, v.Message)
}
