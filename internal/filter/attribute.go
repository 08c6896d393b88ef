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

package filter

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/googlegenomics/bands/internal/status"
)

// Type is the value domain of an attribute.
type Type int

// Attribute types.
const (
	Integer Type = iota + 1
	Float
	String
	Enum
	Boolean
)

var typeNames = map[Type]string{
	Integer: "integer",
	Float:   "float",
	String:  "string",
	Enum:    "enum",
	Boolean: "boolean",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalText encodes t by name.
func (t Type) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, fmt.Errorf("unknown attribute type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *Type) UnmarshalText(text []byte) error {
	for typ, name := range typeNames {
		if strings.EqualFold(name, string(text)) {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown attribute type %q", text)
}

var operators = map[Type][]Operator{
	Integer: {Less, LessOrEqual, GreaterOrEqual, Greater, Equal, NotEqual, In},
	Float:   {Less, LessOrEqual, GreaterOrEqual, Greater, Equal, NotEqual, In},
	String:  {Equal, NotEqual, In, Like, ILike},
	Enum:    {Equal, NotEqual, In},
	Boolean: {Equal, NotEqual},
}

// Supports reports whether op may be applied to values of type t.
func (t Type) Supports(op Operator) bool {
	for _, supported := range operators[t] {
		if op == supported {
			return true
		}
	}
	return false
}

var errNotANumber = errors.New("NaN is not a comparable value")

// Attribute describes a band property that filters may refer to.
type Attribute struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`
	// Values lists the members of an Enum attribute.
	Values []string `json:"values,omitempty"`
}

// parse converts a literal into a value of the attribute's type.
func (a *Attribute) parse(s string) (interface{}, error) {
	switch a.Type {
	case Integer:
		return strconv.ParseInt(s, 10, 64)
	case Float:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		// NaN is unordered and would compare equal to every value.
		if math.IsNaN(v) {
			return nil, errNotANumber
		}
		return v, nil
	case Boolean:
		return strconv.ParseBool(s)
	case Enum:
		for _, v := range a.Values {
			if v == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %v", s, a.Values)
	}
	return s, nil
}

// Attributes resolves attributes by identifier.
type Attributes interface {
	// ResolveAttribute returns the attribute called id or an UnknownAttribute
	// error.
	ResolveAttribute(id string) (*Attribute, error)
}

// Registry is a concurrency-safe set of attributes.
type Registry struct {
	mu         sync.RWMutex
	attributes map[string]*Attribute
}

// NewRegistry returns a registry containing attributes.  Later attributes
// replace earlier ones with the same identifier.
func NewRegistry(attributes ...*Attribute) *Registry {
	r := &Registry{attributes: make(map[string]*Attribute)}
	for _, a := range attributes {
		r.attributes[a.ID] = a
	}
	return r
}

// Register adds attributes to the registry.  Registering an attribute again
// with the same type and values is a no-op.  If any attribute would change
// the type or values of a registered one, a ConflictingAttribute error is
// returned and nothing is registered.
func (r *Registry) Register(attributes ...*Attribute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range attributes {
		if existing, ok := r.attributes[a.ID]; ok && !existing.sameDomain(a) {
			return status.Errorf(status.ConflictingAttribute, "attribute %q is already registered as %s%v, not %s%v",
				a.ID, existing.Type, existing.Values, a.Type, a.Values)
		}
	}
	for _, a := range attributes {
		if _, ok := r.attributes[a.ID]; !ok {
			r.attributes[a.ID] = a
		}
	}
	return nil
}

func (a *Attribute) sameDomain(other *Attribute) bool {
	if a.Type != other.Type || len(a.Values) != len(other.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}

// ResolveAttribute returns the attribute called id.
func (r *Registry) ResolveAttribute(id string) (*Attribute, error) {
	r.mu.RLock()
	a, ok := r.attributes[id]
	r.mu.RUnlock()
	if !ok {
		return nil, status.Errorf(status.UnknownAttribute, "no attribute %q", id)
	}
	return a, nil
}

// List returns the registered attributes ordered by identifier.
func (r *Registry) List() []*Attribute {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Attribute, 0, len(r.attributes))
	for _, a := range r.attributes {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
