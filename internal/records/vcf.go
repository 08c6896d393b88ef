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
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/brentp/vcfgo"

	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/status"
	"github.com/googlegenomics/bands/internal/track"
)

// ReadVCF reads the variants of a VCF file as records spanning their
// reference alleles, with the INFO fields as properties.  It also returns
// an attribute for every INFO field declared in the header.
func ReadVCF(r io.Reader) ([]track.Record, []*filter.Attribute, error) {
	rdr, err := vcfgo.NewReader(r, true)
	if err != nil {
		return nil, nil, status.Errorf(status.IllegalDataLine, "reading VCF header: %v", err)
	}

	var records []track.Record
	for {
		v := rdr.Read()
		if v == nil {
			break
		}
		record := track.Record{
			Contig:     v.Chromosome,
			Start:      uint64(v.Start()),
			End:        uint64(v.End()),
			Properties: make(map[string]string),
		}
		if id := v.Id(); id != "." && id != "" {
			record.Name = id
		}
		info := v.Info()
		for _, key := range info.Keys() {
			value, err := info.Get(key)
			if err != nil {
				return nil, nil, status.Errorf(status.IllegalDataLine, "%s:%d: INFO field %s: %v", v.Chromosome, v.Pos, key, err)
			}
			record.Properties[key] = formatInfo(value)
		}
		records = append(records, record)
	}
	if err := rdr.Error(); err != nil {
		return nil, nil, status.Errorf(status.IllegalDataLine, "reading VCF: %v", err)
	}
	return records, VCFAttributes(rdr.Header), nil
}

// VCFAttributes maps the INFO header lines of h to attributes.  Fields with
// more than one value are exposed as strings of comma separated values.
func VCFAttributes(h *vcfgo.Header) []*filter.Attribute {
	var attrs []*filter.Attribute
	for id, info := range h.Infos {
		attr := &filter.Attribute{ID: id, Type: filter.String}
		switch {
		case info.Type == "Flag":
			attr.Type = filter.Boolean
		case info.Number != "1":
		case info.Type == "Integer":
			attr.Type = filter.Integer
		case info.Type == "Float":
			attr.Type = filter.Float
		}
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].ID < attrs[j].ID })
	return attrs
}

func formatInfo(value interface{}) string {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice {
		return fmt.Sprint(value)
	}
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fmt.Sprint(v.Index(i).Interface())
	}
	return strings.Join(parts, ",")
}
