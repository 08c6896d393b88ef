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

// Package status defines the named errors returned by the band query core.
//
// Every error carries a name (for example "UnknownContig") and a Kind which
// callers such as the HTTP layer use to pick a response code.
package status

import (
	"errors"
	"fmt"
)

// Kind classifies an error by who is at fault.
type Kind int

const (
	// Internal is the kind of every error not created by this package.
	Internal Kind = iota
	// NotFound means a referenced entity does not exist.
	NotFound
	// InvalidInput means the caller supplied a malformed or unsupported value.
	InvalidInput
	// MalformedData means a data source produced an unusable entry.
	MalformedData
	// PermissionDenied means a collaborator refused access.
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case InvalidInput:
		return "InvalidInput"
	case MalformedData:
		return "MalformedData"
	case PermissionDenied:
		return "PermissionDenied"
	}
	return "Internal"
}

// Error names.
const (
	UnknownReferenceGenome          = "UnknownReferenceGenome"
	UnknownContig                   = "UnknownContig"
	UnknownAttribute                = "UnknownAttribute"
	UnknownAttributeFilter          = "UnknownAttributeFilter"
	UnknownAttributeFilterAggregate = "UnknownAttributeFilterAggregate"
	TrackNotFound                   = "TrackNotFound"
	DataSourceNotFound              = "DataSourceNotFound"

	IllegalAttributeValue     = "IllegalAttributeValue"
	IllegalAggregateOperator  = "IllegalAggregateOperator"
	UnsupportedFilterOperator = "UnsupportedFilterOperator"
	IllegalFilterQuery        = "IllegalFilterQuery"
	InvalidGenomicCoordinate  = "InvalidGenomicCoordinate"
	CoordinateOutOfBounds     = "CoordinateOutOfBounds"
	IllegalWindowSize         = "IllegalWindowSize"
	UnsupportedFormat         = "UnsupportedFormat"
	ConflictingAttribute      = "ConflictingAttribute"

	IllegalBedFileEntry = "IllegalBedFileEntry"
	IllegalDataLine     = "IllegalDataLine"

	AccessDenied = "AccessDenied"
)

var kinds = map[string]Kind{
	UnknownReferenceGenome:          NotFound,
	UnknownContig:                   NotFound,
	UnknownAttribute:                NotFound,
	UnknownAttributeFilter:          NotFound,
	UnknownAttributeFilterAggregate: NotFound,
	TrackNotFound:                   NotFound,
	DataSourceNotFound:              NotFound,

	IllegalAttributeValue:     InvalidInput,
	IllegalAggregateOperator:  InvalidInput,
	UnsupportedFilterOperator: InvalidInput,
	IllegalFilterQuery:        InvalidInput,
	InvalidGenomicCoordinate:  InvalidInput,
	CoordinateOutOfBounds:     InvalidInput,
	IllegalWindowSize:         InvalidInput,
	UnsupportedFormat:         InvalidInput,
	ConflictingAttribute:      InvalidInput,

	IllegalBedFileEntry: MalformedData,
	IllegalDataLine:     MalformedData,

	AccessDenied: PermissionDenied,
}

// Error is a named error with a Kind.
type Error struct {
	Name  string
	Kind  Kind
	cause error
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s: %v", err.Name, err.cause)
}

// Unwrap returns the underlying cause.
func (err *Error) Unwrap() error {
	return err.cause
}

// New returns an error with the given name wrapping cause.  The kind is
// derived from the name; unregistered names are Internal.
func New(name string, cause error) error {
	return &Error{name, kinds[name], cause}
}

// Errorf is shorthand for New(name, fmt.Errorf(format, args...)).
func Errorf(name, format string, args ...interface{}) error {
	return New(name, fmt.Errorf(format, args...))
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// NameOf returns the name of the first *Error in err's chain, or "".
func NameOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Name
	}
	return ""
}

// Is reports whether err's chain contains an *Error called name.
func Is(err error, name string) bool {
	return err != nil && NameOf(err) == name
}
