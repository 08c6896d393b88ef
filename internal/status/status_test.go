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

package status

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"not found", Errorf(UnknownContig, "chr9"), NotFound},
		{"invalid input", Errorf(IllegalWindowSize, "-1"), InvalidInput},
		{"malformed", Errorf(IllegalBedFileEntry, "line 3"), MalformedData},
		{"wrapped", fmt.Errorf("loading: %w", Errorf(TrackNotFound, "x")), NotFound},
		{"plain", errors.New("boom"), Internal},
		{"unregistered name", Errorf("Mystery", "x"), Internal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got, want := KindOf(tc.err), tc.kind; got != want {
				t.Errorf("Wrong kind: got %v, want %v", got, want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("querying: %w", Errorf(UnknownContig, "contig %q", "chrZ"))
	if !Is(err, UnknownContig) {
		t.Errorf("Is(%v, %q) = false, want true", err, UnknownContig)
	}
	if Is(err, UnknownAttribute) {
		t.Errorf("Is(%v, %q) = true, want false", err, UnknownAttribute)
	}
	if Is(nil, UnknownContig) {
		t.Errorf("Is(nil) = true, want false")
	}
	if got, want := err.Error(), `querying: UnknownContig: contig "chrZ"`; got != want {
		t.Errorf("Wrong message: got %q, want %q", got, want)
	}
}
