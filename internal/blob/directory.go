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
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirectoryClient serves objects from a local directory.  Buckets are the
// subdirectories of Root.
type DirectoryClient struct {
	Root string
}

// NewObjectHandle returns a handle to the file Root/bucket/object.
func (c DirectoryClient) NewObjectHandle(bucket, object string) ObjectHandle {
	return fileObjectHandle{c.path(bucket, object)}
}

// List returns the names of the files in bucket that start with prefix.
func (c DirectoryClient) List(_ context.Context, bucket, prefix string) ([]string, error) {
	infos, err := ioutil.ReadDir(c.path(bucket, ""))
	if os.IsNotExist(err) {
		return nil, Error("listing "+bucket, ErrObjectNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %v", bucket, err)
	}
	var names []string
	for _, info := range infos {
		if !info.IsDir() && strings.HasPrefix(info.Name(), prefix) {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c DirectoryClient) path(bucket, object string) string {
	// Clean against a rooted path so that ".." cannot escape Root.
	return filepath.Join(c.Root, filepath.FromSlash(filepath.Clean("/"+bucket+"/"+object)))
}

type fileObjectHandle struct {
	path string
}

func (h fileObjectHandle) NewRangeReader(_ context.Context, offset, length int64) (io.ReadCloser, error) {
	f, err := os.Open(h.path)
	if os.IsNotExist(err) {
		return nil, ErrObjectNotExist
	}
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seeking to %d: %v", offset, err)
	}
	if length < 0 {
		return f, nil
	}
	return &sectionReader{io.LimitReader(f, length), f}, nil
}

type sectionReader struct {
	io.Reader
	io.Closer
}
