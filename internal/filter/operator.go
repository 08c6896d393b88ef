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
	"regexp"
	"strings"
)

// Operator compares a band property with the values of a filter.
type Operator string

// Filter operators.
const (
	Less           Operator = "<"
	LessOrEqual    Operator = "<="
	GreaterOrEqual Operator = ">="
	Greater        Operator = ">"
	Like           Operator = "LIKE"
	ILike          Operator = "ILIKE"
	Equal          Operator = "="
	NotEqual       Operator = "!="
	In             Operator = "IN"
)

// AggregateOperator combines the predicates of an aggregate.
type AggregateOperator string

// Aggregate operators.
const (
	And AggregateOperator = "AND"
	Or  AggregateOperator = "OR"
)

// compare returns -1, 0 or 1.  Both values have the same dynamic type,
// produced by Attribute.parse.
func compare(a, b interface{}) int {
	switch a := a.(type) {
	case int64:
		b := b.(int64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	case float64:
		b := b.(float64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	case string:
		return strings.Compare(a, b.(string))
	case bool:
		if a != b.(bool) {
			if b.(bool) {
				return -1
			}
			return 1
		}
	}
	return 0
}

// likePattern translates an SQL LIKE pattern into an anchored regular
// expression.  '%' matches any run of characters and '_' exactly one.
func likePattern(pattern string, fold bool) (*regexp.Regexp, error) {
	var expr strings.Builder
	if fold {
		expr.WriteString("(?is)^")
	} else {
		expr.WriteString("(?s)^")
	}
	for _, r := range pattern {
		switch r {
		case '%':
			expr.WriteString(".*")
		case '_':
			expr.WriteString(".")
		default:
			expr.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	expr.WriteString("$")
	return regexp.Compile(expr.String())
}
