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

// Package records reads the raw intervals that tracks are built from.
package records

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/googlegenomics/bands/internal/blob"
	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/status"
	"github.com/googlegenomics/bands/internal/track"
)

// Format is the encoding of a record source.
type Format string

// Supported formats.
const (
	BED Format = "bed"
	VCF Format = "vcf"
	SQL Format = "sql"
)

// FormatOf guesses the format of object from its extension.
func FormatOf(object string) (Format, error) {
	name := strings.ToLower(strings.TrimSuffix(object, ".gz"))
	switch {
	case strings.HasSuffix(name, ".bed"):
		return BED, nil
	case strings.HasSuffix(name, ".vcf"):
		return VCF, nil
	}
	return "", status.Errorf(status.UnsupportedFormat, "cannot tell the format of %q", object)
}

// Data holds the records read from a source and the attributes the source
// declares.
type Data struct {
	Records    []track.Record
	Attributes []*filter.Attribute
}

// Loader reads records from object storage or, for the SQL format, from a
// database.
type Loader struct {
	Blobs blob.Client
	// DB is optional.
	DB *SQLSource
}

// Load reads object from bucket.  For the SQL format object names the
// dataset and bucket is ignored.  If format is empty it is derived from the
// object name.
func (l *Loader) Load(ctx context.Context, bucket, object string, format Format) (*Data, error) {
	if format == "" {
		var err error
		if format, err = FormatOf(object); err != nil {
			return nil, err
		}
	}

	switch format {
	case SQL:
		if l.DB == nil {
			return nil, status.Errorf(status.UnsupportedFormat, "no database configured")
		}
		records, err := l.DB.Records(ctx, object)
		if err != nil {
			return nil, err
		}
		return &Data{Records: records, Attributes: BEDAttributes()}, nil
	case BED, VCF:
	default:
		return nil, status.Errorf(status.UnsupportedFormat, "format %q", format)
	}

	if l.Blobs == nil {
		return nil, status.Errorf(status.UnsupportedFormat, "no object storage configured")
	}
	r, err := blob.Open(ctx, l.Blobs, bucket, object)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	input, err := decompress(r)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", object, err)
	}

	if format == VCF {
		records, attrs, err := ReadVCF(input)
		if err != nil {
			return nil, err
		}
		return &Data{Records: records, Attributes: attrs}, nil
	}
	records, err := ReadBED(input)
	if err != nil {
		return nil, err
	}
	return &Data{Records: records, Attributes: BEDAttributes()}, nil
}

// decompress transparently ungzips r if it starts with the gzip magic.
func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, status.Errorf(status.IllegalDataLine, "ungzipping: %v", err)
		}
		return zr, nil
	}
	return br, nil
}
