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

// Package filter compiles attribute filters into predicates over the
// property sets of bands.
//
// A Query holds typed attribute filters and AND/OR aggregates of them.
// Compile resolves every attribute, checks that each operator is supported
// by the attribute type and parses every literal, so that a compiled Filter
// cannot fail during evaluation.
package filter

import (
	"strings"

	"github.com/googlegenomics/bands/internal/status"
)

// AttributeFilter compares one attribute of a band with a set of values.
type AttributeFilter struct {
	ID        string   `json:"id"`
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Values    []string `json:"values"`
	// IncludeNulls decides the outcome for bands without the attribute.
	IncludeNulls bool `json:"includeNulls"`
}

// Aggregate combines filters and other aggregates, named by ID.
type Aggregate struct {
	ID       string            `json:"id"`
	Operator AggregateOperator `json:"operator"`
	Filters  []string          `json:"filters"`
}

// Query is the raw form of a filter.  Root names the filter or aggregate to
// evaluate; if it is empty every filter and aggregate not used by an
// aggregate must match.
type Query struct {
	Filters    []AttributeFilter `json:"filters,omitempty"`
	Aggregates []Aggregate       `json:"aggregates,omitempty"`
	Root       string            `json:"root,omitempty"`
}

// IsEmpty reports whether q has neither filters nor aggregates.
func (q *Query) IsEmpty() bool {
	return q == nil || (len(q.Filters) == 0 && len(q.Aggregates) == 0)
}

type predicate func(properties map[string]string) bool

// Filter is a compiled Query.  A nil *Filter matches every band.
type Filter struct {
	match predicate
}

// Match reports whether a band with the given properties passes the filter.
func (f *Filter) Match(properties map[string]string) bool {
	return f == nil || f.match(properties)
}

// Compile compiles q, resolving attributes through attrs.  An empty query
// compiles to a nil Filter.
func Compile(q *Query, attrs Attributes) (*Filter, error) {
	if q.IsEmpty() {
		if q != nil && q.Root != "" {
			return nil, status.Errorf(status.UnknownAttributeFilterAggregate, "no filter or aggregate %q", q.Root)
		}
		return nil, nil
	}

	c := &compiler{
		attrs:      attrs,
		filters:    make(map[string]*AttributeFilter),
		aggregates: make(map[string]*Aggregate),
		compiled:   make(map[string]predicate),
		visiting:   make(map[string]bool),
	}
	var ids []string
	for i := range q.Filters {
		f := &q.Filters[i]
		if err := c.declare(f.ID); err != nil {
			return nil, err
		}
		c.filters[f.ID] = f
		ids = append(ids, f.ID)
	}
	for i := range q.Aggregates {
		a := &q.Aggregates[i]
		if err := c.declare(a.ID); err != nil {
			return nil, err
		}
		c.aggregates[a.ID] = a
		ids = append(ids, a.ID)
	}

	// Compile everything so that errors surface even in unused filters.
	for _, id := range ids {
		if _, err := c.resolve(id); err != nil {
			return nil, err
		}
	}

	if q.Root != "" {
		if _, ok := c.compiled[q.Root]; !ok {
			return nil, status.Errorf(status.UnknownAttributeFilterAggregate, "no filter or aggregate %q", q.Root)
		}
		return &Filter{c.compiled[q.Root]}, nil
	}

	used := make(map[string]bool)
	for _, a := range q.Aggregates {
		for _, member := range a.Filters {
			used[member] = true
		}
	}
	var roots []predicate
	for _, id := range ids {
		if !used[id] {
			roots = append(roots, c.compiled[id])
		}
	}
	if len(roots) == 0 {
		// Every filter belongs to an aggregate cycle, which resolve rejects.
		return nil, status.Errorf(status.IllegalFilterQuery, "no root filter")
	}
	return &Filter{allOf(roots)}, nil
}

type compiler struct {
	attrs      Attributes
	filters    map[string]*AttributeFilter
	aggregates map[string]*Aggregate
	compiled   map[string]predicate
	visiting   map[string]bool
}

func (c *compiler) declare(id string) error {
	if id == "" {
		return status.Errorf(status.IllegalFilterQuery, "filter without an id")
	}
	if _, ok := c.filters[id]; ok {
		return status.Errorf(status.IllegalFilterQuery, "duplicate id %q", id)
	}
	if _, ok := c.aggregates[id]; ok {
		return status.Errorf(status.IllegalFilterQuery, "duplicate id %q", id)
	}
	return nil
}

func (c *compiler) resolve(id string) (predicate, error) {
	if p, ok := c.compiled[id]; ok {
		return p, nil
	}

	if f, ok := c.filters[id]; ok {
		p, err := f.compile(c.attrs)
		if err != nil {
			return nil, err
		}
		c.compiled[id] = p
		return p, nil
	}

	a, ok := c.aggregates[id]
	if !ok {
		return nil, status.Errorf(status.UnknownAttributeFilter, "no filter or aggregate %q", id)
	}
	if c.visiting[id] {
		return nil, status.Errorf(status.IllegalFilterQuery, "aggregate %q contains itself", id)
	}
	c.visiting[id] = true
	defer delete(c.visiting, id)

	var members []predicate
	for _, member := range a.Filters {
		p, err := c.resolve(member)
		if err != nil {
			return nil, err
		}
		members = append(members, p)
	}

	var p predicate
	switch AggregateOperator(strings.ToUpper(string(a.Operator))) {
	case And:
		p = allOf(members)
	case Or:
		p = anyOf(members)
	default:
		return nil, status.Errorf(status.IllegalAggregateOperator, "aggregate %q: operator %q", id, a.Operator)
	}
	c.compiled[id] = p
	return p, nil
}

func allOf(predicates []predicate) predicate {
	return func(properties map[string]string) bool {
		for _, p := range predicates {
			if !p(properties) {
				return false
			}
		}
		return true
	}
}

func anyOf(predicates []predicate) predicate {
	return func(properties map[string]string) bool {
		for _, p := range predicates {
			if p(properties) {
				return true
			}
		}
		return false
	}
}

func (f *AttributeFilter) compile(attrs Attributes) (predicate, error) {
	attr, err := attrs.ResolveAttribute(f.Attribute)
	if err != nil {
		return nil, err
	}

	op := Operator(strings.ToUpper(strings.TrimSpace(string(f.Operator))))
	if !attr.Type.Supports(op) {
		return nil, status.Errorf(status.UnsupportedFilterOperator, "filter %q: %s attribute %q does not support %q", f.ID, attr.Type, attr.ID, f.Operator)
	}
	if op == In && len(f.Values) == 0 {
		return nil, status.Errorf(status.IllegalAttributeValue, "filter %q: %s needs at least one value", f.ID, op)
	}
	if op != In && len(f.Values) != 1 {
		return nil, status.Errorf(status.IllegalAttributeValue, "filter %q: %s needs exactly one value, got %d", f.ID, op, len(f.Values))
	}

	includeNulls := f.IncludeNulls
	if op == Like || op == ILike {
		re, err := likePattern(f.Values[0], op == ILike)
		if err != nil {
			return nil, status.Errorf(status.IllegalAttributeValue, "filter %q: pattern %q: %v", f.ID, f.Values[0], err)
		}
		return func(properties map[string]string) bool {
			raw, ok := properties[attr.ID]
			if !ok {
				return includeNulls
			}
			return re.MatchString(raw)
		}, nil
	}

	values := make([]interface{}, len(f.Values))
	for i, literal := range f.Values {
		v, err := attr.parse(literal)
		if err != nil {
			return nil, status.Errorf(status.IllegalAttributeValue, "filter %q: %s attribute %q: %v", f.ID, attr.Type, attr.ID, err)
		}
		values[i] = v
	}

	var test func(interface{}) bool
	switch op {
	case Less:
		test = func(v interface{}) bool { return compare(v, values[0]) < 0 }
	case LessOrEqual:
		test = func(v interface{}) bool { return compare(v, values[0]) <= 0 }
	case GreaterOrEqual:
		test = func(v interface{}) bool { return compare(v, values[0]) >= 0 }
	case Greater:
		test = func(v interface{}) bool { return compare(v, values[0]) > 0 }
	case Equal:
		test = func(v interface{}) bool { return compare(v, values[0]) == 0 }
	case NotEqual:
		test = func(v interface{}) bool { return compare(v, values[0]) != 0 }
	case In:
		test = func(v interface{}) bool {
			for _, value := range values {
				if compare(v, value) == 0 {
					return true
				}
			}
			return false
		}
	}

	return func(properties map[string]string) bool {
		raw, ok := properties[attr.ID]
		if !ok {
			return includeNulls
		}
		// Values that do not parse as the attribute type count as missing.
		v, err := attr.parse(raw)
		if err != nil {
			return includeNulls
		}
		return test(v)
	}, nil
}
