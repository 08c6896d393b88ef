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

// Package analytics reports usage of the band service to Google Analytics.
package analytics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultEndpoint  = "https://www.google-analytics.com/"
	defaultBatchSize = 20 // The maximum number supported by batch endpoint.
)

// Hit is a single analytics event.
type Hit map[string]string

// Event generates a new event typed hit.  The label may be empty and the
// value may be nil but category and action are required.
func Event(category, action, label string, value *int64) Hit {
	hit := Hit{
		"t":  "event",
		"ec": category,
		"ea": action,
	}
	if label != "" {
		hit["el"] = label
	}
	if value != nil {
		hit["ev"] = strconv.FormatInt(*value, 10)
	}
	return hit
}

// QueryEvent records a window query over tracks.  The value is the total
// window size.
func QueryEvent(tracks, left, right int) Hit {
	size := int64(left + right)
	return Event("query", "window", strconv.Itoa(tracks)+" tracks", &size)
}

// TrackEvent records a change of the track registry, such as "add" or
// "remove".  format may be empty.
func TrackEvent(action, format string) Hit {
	return Event("tracks", action, format, nil)
}

// Client uploads hits to Google Analytics.  Use NewClient to create one.
type Client struct {
	propertyID string
	clientID   string
	endpoint   string
	batchSize  int
	http       *http.Client
}

// NewClient returns a Client that sends hits with the provided IDs through
// httpClient, or http.DefaultClient if it is nil.
func NewClient(propertyID, clientID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{propertyID, clientID, defaultEndpoint, defaultBatchSize, httpClient}
}

// Send uploads hits in batches.
func (c *Client) Send(ctx context.Context, hits []Hit) error {
	if len(hits) > 0 {
		if err := c.upload(ctx, hits); err != nil {
			return fmt.Errorf("uploading hits: %v", err)
		}
	}
	return nil
}

func (c *Client) upload(ctx context.Context, hits []Hit) error {
	for start := 0; start < len(hits); start += c.batchSize {
		end := start + c.batchSize
		if end > len(hits) {
			end = len(hits)
		}

		var body bytes.Buffer
		for _, hit := range hits[start:end] {
			payload := url.Values{
				"v":   []string{"1"},
				"tid": []string{c.propertyID},
				"cid": []string{c.clientID},
			}
			for key, value := range hit {
				payload.Add(key, value)
			}
			body.WriteString(payload.Encode())
			body.WriteByte('\n')
		}

		request, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/batch", &body)
		if err != nil {
			return fmt.Errorf("creating request: %v", err)
		}
		response, err := c.http.Do(request)
		if err != nil {
			return fmt.Errorf("sending request: %v", err)
		}
		response.Body.Close()
		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected response status: %v", response.Status)
		}
	}
	return nil
}

type contextKey int

var hitsKey = contextKey(1)

// Middleware prepares the request context for use with TrackerFromContext.
// Once the remaining handlers complete, track is invoked with the hits they
// accumulated.
func Middleware(track func(*gin.Context, []Hit)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var hits []Hit
		ctx := context.WithValue(c.Request.Context(), hitsKey, &hits)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		track(c, hits)
	}
}

// TrackerFromContext returns a function that buffers hits for the track
// function given to Middleware.  Outside of Middleware the returned function
// discards hits.
func TrackerFromContext(ctx context.Context) func(Hit) {
	if hits, ok := ctx.Value(hitsKey).(*[]Hit); ok {
		return func(hit Hit) { *hits = append(*hits, hit) }
	}
	return func(Hit) {}
}
