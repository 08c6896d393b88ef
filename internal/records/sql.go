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
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/googlegenomics/bands/internal/status"
	"github.com/googlegenomics/bands/internal/track"
)

// SQLSource reads records from a table with the columns
//   dataset, chrom, chrom_start, chrom_end, name, properties
// where properties holds a JSON object of strings.  name and properties
// may be NULL.
type SQLSource struct {
	statement *sql.Stmt
}

// NewSQLSource prepares the record query against table.
func NewSQLSource(ctx context.Context, db *sql.DB, table string) (*SQLSource, error) {
	statement, err := db.PrepareContext(ctx, fmt.Sprintf(
		"SELECT chrom, chrom_start, chrom_end, name, properties FROM %s WHERE dataset = ?", table))
	if err != nil {
		return nil, fmt.Errorf("preparing record query: %v", err)
	}
	return &SQLSource{statement}, nil
}

// Records returns the records of dataset.  An unknown dataset is a
// DataSourceNotFound error.
func (s *SQLSource) Records(ctx context.Context, dataset string) ([]track.Record, error) {
	rows, err := s.statement.QueryContext(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("querying records: %v", err)
	}
	defer rows.Close()

	var records []track.Record
	for rows.Next() {
		var (
			record     track.Record
			name       sql.NullString
			properties sql.NullString
		)
		if err := rows.Scan(&record.Contig, &record.Start, &record.End, &name, &properties); err != nil {
			return nil, status.Errorf(status.IllegalDataLine, "dataset %q row %d: %v", dataset, len(records)+1, err)
		}
		record.Name = name.String
		if properties.Valid && properties.String != "" {
			if err := json.Unmarshal([]byte(properties.String), &record.Properties); err != nil {
				return nil, status.Errorf(status.IllegalDataLine, "dataset %q row %d: properties: %v", dataset, len(records)+1, err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %v", err)
	}
	if len(records) == 0 {
		return nil, status.Errorf(status.DataSourceNotFound, "no records in dataset %q", dataset)
	}
	return records, nil
}

// Close releases the prepared statement.
func (s *SQLSource) Close() error {
	return s.statement.Close()
}
