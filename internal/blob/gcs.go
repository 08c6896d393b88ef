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

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/googlegenomics/bands/internal/status"
)

var errMissingOrInvalidToken = errors.New("missing or invalid token")

// GCSClient is Client for accessing Google Cloud Storage.
type GCSClient struct {
	*storage.Client
}

// NewObjectHandle returns a handle to a specified object in the
// storage engine.
func (c GCSClient) NewObjectHandle(bucket, object string) ObjectHandle {
	return gcsObjectHandle{c.Bucket(bucket).Object(object)}
}

// List returns the names of the objects in bucket that start with prefix.
func (c GCSClient) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var names []string
	it := c.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, Error("listing "+bucket, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

type gcsObjectHandle struct {
	*storage.ObjectHandle
}

func (h gcsObjectHandle) NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	r, err := h.ObjectHandle.NewRangeReader(ctx, offset, length)
	if err == storage.ErrObjectNotExist {
		return nil, ErrObjectNotExist
	}
	return r, err
}

// cachedClient creates a storage client on first use and shares it
// afterwards.
type cachedClient struct {
	once   sync.Once
	client *storage.Client
	err    error
}

func (c *cachedClient) get(opts ...option.ClientOption) (Client, error) {
	c.once.Do(func() {
		c.client, c.err = storage.NewClient(context.Background(), opts...)
	})
	if c.err != nil {
		return nil, fmt.Errorf("creating storage client: %v", c.err)
	}
	return GCSClient{c.client}, nil
}

var defaultClient, publicClient cachedClient

// NewDefaultClient returns a storage client that uses the application default
// credentials.  It caches the storage client for efficiency.
func NewDefaultClient() (Client, error) {
	return defaultClient.get()
}

// NewPublicClient returns a storage client that does not use any form of
// client authorization.  It can only be used to read publicly-readable
// objects. It caches the storage client for efficiency.
func NewPublicClient() (Client, error) {
	return publicClient.get(option.WithHTTPClient(http.DefaultClient))
}

// NewClientFromBearerToken constructs a storage client that uses the OAuth2
// bearer token found in req to make storage requests.
func NewClientFromBearerToken(req *http.Request) (Client, error) {
	fields := strings.Split(req.Header.Get("Authorization"), " ")
	if len(fields) != 2 || fields[0] != "Bearer" {
		return nil, status.New(status.AccessDenied, errMissingOrInvalidToken)
	}

	token := oauth2.Token{
		TokenType:   fields[0],
		AccessToken: fields[1],
	}
	client, err := storage.NewClient(req.Context(), option.WithTokenSource(oauth2.StaticTokenSource(&token)))
	if err != nil {
		return nil, fmt.Errorf("creating client with token source: %v", err)
	}
	return GCSClient{client}, nil
}

// Error maps storage errors onto the status taxonomy.
func Error(context string, err error) error {
	if err == ErrObjectNotExist || err == storage.ErrObjectNotExist || err == storage.ErrBucketNotExist {
		return status.Errorf(status.DataSourceNotFound, "%s: %v", context, err)
	}
	if err, ok := err.(*googleapi.Error); ok {
		switch err.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return status.Errorf(status.AccessDenied, "%s: %v", context, err)
		case http.StatusNotFound:
			return status.Errorf(status.DataSourceNotFound, "%s: %v", context, err)
		}
	}
	return fmt.Errorf("%s: %v", context, err)
}
