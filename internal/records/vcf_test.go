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

package records

import (
	"reflect"
	"strings"
	"testing"

	"github.com/googlegenomics/bands/internal/filter"
)

const testVCF = `##fileformat=VCFv4.1
##INFO=<ID=DP,Number=1,Type=Integer,Description="Total Depth">
##INFO=<ID=AF,Number=A,Type=Float,Description="Allele Frequency">
##INFO=<ID=MQ,Number=1,Type=Float,Description="Mapping Quality">
##INFO=<ID=DB,Number=0,Type=Flag,Description="dbSNP membership">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
20	14370	rs6054257	G	A	29	PASS	DP=14;MQ=60
20	17330	.	TTA	T	3	q10	DP=11
`

func TestReadVCF(t *testing.T) {
	records, attrs, err := ReadVCF(strings.NewReader(testVCF))
	if err != nil {
		t.Fatalf("ReadVCF() returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Wrong number of records: got %d, want 2", len(records))
	}

	testCases := []struct {
		contig     string
		start, end uint64
		name       string
		depth      string
	}{
		{"20", 14369, 14370, "rs6054257", "14"},
		{"20", 17329, 17332, "", "11"},
	}
	for i, tc := range testCases {
		r := records[i]
		if r.Contig != tc.contig || r.Start != tc.start || r.End != tc.end {
			t.Errorf("Record %d: got %s:[%d,%d), want %s:[%d,%d)", i, r.Contig, r.Start, r.End, tc.contig, tc.start, tc.end)
		}
		if r.Name != tc.name {
			t.Errorf("Record %d: wrong name: got %q, want %q", i, r.Name, tc.name)
		}
		if got := r.Properties["DP"]; got != tc.depth {
			t.Errorf("Record %d: wrong depth: got %q, want %q", i, got, tc.depth)
		}
	}

	want := []*filter.Attribute{
		{ID: "AF", Type: filter.String},
		{ID: "DB", Type: filter.Boolean},
		{ID: "DP", Type: filter.Integer},
		{ID: "MQ", Type: filter.Float},
	}
	if !reflect.DeepEqual(attrs, want) {
		t.Errorf("Wrong attributes: got %v, want %v", attrs, want)
	}
}

func TestFormatInfo(t *testing.T) {
	testCases := []struct {
		value interface{}
		want  string
	}{
		{14, "14"},
		{true, "true"},
		{"PASS", "PASS"},
		{[]float32{0.5, 0.25}, "0.5,0.25"},
		{[]interface{}{1, "x"}, "1,x"},
	}
	for _, tc := range testCases {
		if got := formatInfo(tc.value); got != tc.want {
			t.Errorf("formatInfo(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
