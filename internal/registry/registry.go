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

// Package registry provides the set of named tracks that queries run
// against.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/googlegenomics/bands/internal/status"
	"github.com/googlegenomics/bands/internal/track"
)

type tracks map[string]track.Source

// Registry maps track names to sources.  Readers never block: every change
// publishes a new copy of the map, so a snapshot taken by a query is never
// modified.
type Registry struct {
	mu      sync.Mutex
	current atomic.Value // tracks
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	r.current.Store(tracks{})
	return r
}

func (r *Registry) load() tracks {
	return r.current.Load().(tracks)
}

// update publishes a modified copy of the current map.  Callers hold r.mu.
func (r *Registry) update(change func(tracks)) {
	old := r.load()
	next := make(tracks, len(old)+1)
	for name, src := range old {
		next[name] = src
	}
	change(next)
	r.current.Store(next)
}

// Add registers src as name and reports whether it replaced an existing
// track.
func (r *Registry) Add(name string, src track.Source) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.update(func(t tracks) {
		_, replaced = t[name]
		t[name] = src
	})
	return replaced
}

// Remove unregisters name and returns its source.
func (r *Registry) Remove(name string) (track.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.load()[name]
	if !ok {
		return nil, status.Errorf(status.TrackNotFound, "no track %q", name)
	}
	r.update(func(t tracks) { delete(t, name) })
	return src, nil
}

// Get returns the source registered as name.
func (r *Registry) Get(name string) (track.Source, error) {
	src, ok := r.load()[name]
	if !ok {
		return nil, status.Errorf(status.TrackNotFound, "no track %q", name)
	}
	return src, nil
}

// List returns the sorted names of all tracks.
func (r *Registry) List() []string {
	current := r.load()
	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot resolves every name against a single version of the registry.
// It fails with TrackNotFound if any name is missing.
func (r *Registry) Snapshot(names []string) (map[string]track.Source, error) {
	current := r.load()
	snapshot := make(map[string]track.Source, len(names))
	for _, name := range names {
		src, ok := current[name]
		if !ok {
			return nil, status.Errorf(status.TrackNotFound, "no track %q", name)
		}
		snapshot[name] = src
	}
	return snapshot, nil
}
