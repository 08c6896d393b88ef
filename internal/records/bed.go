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
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/status"
	"github.com/googlegenomics/bands/internal/track"
)

// bedColumns names the optional BED columns after chromEnd and name.
var bedColumns = []string{
	"score",
	"strand",
	"thickStart",
	"thickEnd",
	"itemRgb",
	"blockCount",
	"blockSizes",
	"blockStarts",
}

// BEDAttributes returns the attributes of the optional BED columns.
func BEDAttributes() []*filter.Attribute {
	return []*filter.Attribute{
		{ID: "name", Type: filter.String},
		{ID: "score", Type: filter.Float},
		{ID: "strand", Type: filter.Enum, Values: []string{"+", "-"}},
		{ID: "thickStart", Type: filter.Integer},
		{ID: "thickEnd", Type: filter.Integer},
		{ID: "itemRgb", Type: filter.String},
		{ID: "blockCount", Type: filter.Integer},
	}
}

// ReadBED parses BED3 to BED12 rows.  Comments, "track" and "browser" lines
// are skipped and "." marks a missing value.  The name column is stored both
// as the band name and as the "name" property.
func ReadBED(r io.Reader) ([]track.Record, error) {
	var records []track.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1<<20)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), "\r")
		if skipBEDLine(text) {
			continue
		}

		var fields []string
		if strings.Contains(text, "\t") {
			fields = strings.Split(text, "\t")
		} else {
			fields = strings.Fields(text)
		}
		if len(fields) < 3 || len(fields) > 12 {
			return nil, status.Errorf(status.IllegalBedFileEntry, "line %d: got %d columns, want 3 to 12", line, len(fields))
		}

		start, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, status.Errorf(status.IllegalBedFileEntry, "line %d: parsing start: %v", line, err)
		}
		end, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, status.Errorf(status.IllegalBedFileEntry, "line %d: parsing end: %v", line, err)
		}
		if fields[0] == "" {
			return nil, status.Errorf(status.IllegalBedFileEntry, "line %d: missing chromosome", line)
		}

		record := track.Record{Contig: fields[0], Start: start, End: end}
		if len(fields) > 3 {
			record.Properties = make(map[string]string)
			if name := fields[3]; name != "." {
				record.Name = name
				record.Properties["name"] = name
			}
			for i, value := range fields[4:] {
				if value != "." && value != "" {
					record.Properties[bedColumns[i]] = value
				}
			}
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, status.Errorf(status.IllegalBedFileEntry, "reading BED: %v", err)
	}
	return records, nil
}

func skipBEDLine(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return true
	}
	return fields[0] == "track" || fields[0] == "browser"
}
