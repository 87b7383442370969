//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoImport.
//
// GoImport is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoImport is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoImport. If not, see https://www.gnu.org/licenses/.

package readers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aaronlmathis/goimport/core"
)

// Supported input formats.
const (
	FormatCSV     = "csv"
	FormatJSONL   = "jsonl"
	FormatXLSX    = "xlsx"
	FormatParquet = "parquet"
)

// OpenOptions configures Open.
type OpenOptions struct {
	Format string // overrides detection by extension
	Sheet  string // xlsx sheet
	Comma  rune   // csv delimiter
	S3     []ReaderOptionS3
}

// OpenOption is a functional option for Open.
type OpenOption func(*OpenOptions)

func WithFormat(format string) OpenOption {
	return func(o *OpenOptions) { o.Format = strings.ToLower(format) }
}

func WithSheet(sheet string) OpenOption {
	return func(o *OpenOptions) { o.Sheet = sheet }
}

func WithComma(comma rune) OpenOption {
	return func(o *OpenOptions) { o.Comma = comma }
}

// WithS3Options passes options to the S3 reader used for s3:// locations.
func WithS3Options(opts ...ReaderOptionS3) OpenOption {
	return func(o *OpenOptions) { o.S3 = append(o.S3, opts...) }
}

// Open returns a DataSource for location: a local file whose format is
// picked by extension, or "s3://bucket/prefix".
func Open(ctx context.Context, location string, options ...OpenOption) (core.DataSource, error) {
	var opts OpenOptions
	for _, opt := range options {
		opt(&opts)
	}

	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		s3opts := append([]ReaderOptionS3{WithS3Bucket(bucket), WithS3Prefix(prefix)}, opts.S3...)
		return NewS3Reader(ctx, s3opts...)
	}

	format := opts.Format
	if format == "" {
		detected, ok := formatForPath(location)
		if !ok {
			return nil, fmt.Errorf("cannot detect input format of %q", location)
		}
		format = detected
	}

	if format == FormatParquet {
		return NewParquetReader(location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	switch format {
	case FormatCSV:
		csvOpts := []ReaderOptionCSV{}
		if opts.Comma != 0 {
			csvOpts = append(csvOpts, WithCSVComma(opts.Comma))
		}
		r, err := NewCSVReader(f, csvOpts...)
		if err != nil {
			f.Close()
			return nil, err
		}
		return r, nil
	case FormatJSONL, "json":
		return NewJSONReader(f), nil
	case FormatXLSX:
		return NewXLSXReader(f, WithXLSXSheet(opts.Sheet))
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
}
