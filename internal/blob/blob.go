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

// Package blob provides access to the objects that back tracks and contig
// lists, either in Google Cloud Storage or in a local directory.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotExist is returned by readers when the requested object does
// not exist.
var ErrObjectNotExist = errors.New("object does not exist")

// Client is an interface to the storage engine.
type Client interface {
	// NewObjectHandle returns a handle to a specified object in
	// the storage engine.
	NewObjectHandle(bucket, object string) ObjectHandle

	// List returns the names of the objects in bucket that start with prefix.
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// ObjectHandle is an interface to the actual storage engine in use.
type ObjectHandle interface {
	// NewRangeReader returns a reader that reads from a specified
	// range. Length of -1 means to capture everything until the
	// end.
	NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error)
}

// Open returns a reader for the whole object.
func Open(ctx context.Context, client Client, bucket, object string) (io.ReadCloser, error) {
	r, err := client.NewObjectHandle(bucket, object).NewRangeReader(ctx, 0, -1)
	if err != nil {
		return nil, Error(bucket+"/"+object, err)
	}
	return r, nil
}
