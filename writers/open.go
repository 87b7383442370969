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

package writers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aaronlmathis/goimport/core"
)

// OutputFormat names a supported sink format.
type OutputFormat string

const (
	FormatCSV      OutputFormat = "csv"
	FormatJSON     OutputFormat = "jsonl"
	FormatParquet  OutputFormat = "parquet"
	FormatPostgres OutputFormat = "postgres"
)

// ParseFormat resolves a format name; "json" and "ndjson" mean JSON lines.
func ParseFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "json", "jsonl", "ndjson":
		return FormatJSON, nil
	case "parquet":
		return FormatParquet, nil
	case "postgres", "postgresql":
		return FormatPostgres, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// FormatForPath picks a format from a file extension.
func FormatForPath(path string) (OutputFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, true
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON, true
	case ".parquet":
		return FormatParquet, true
	default:
		return "", false
	}
}

// OutputLocation creates a ResultSink for a given format.
type OutputLocation interface {
	NewSink(format OutputFormat, schema *core.Schema) (core.ResultSink, error)
}

// FileLocation writes output to a local filesystem path.
type FileLocation struct {
	Path string
}

// NewSink instantiates a writer for the file location.
func (f FileLocation) NewSink(format OutputFormat, schema *core.Schema) (core.ResultSink, error) {
	if format == FormatParquet {
		return NewParquetWriter(f.Path, WithSchema(schema))
	}
	if dir := filepath.Dir(f.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	switch format {
	case FormatCSV:
		file, err := os.Create(f.Path)
		if err != nil {
			return nil, err
		}
		return NewCSVWriter(file)
	case FormatJSON:
		file, err := os.Create(f.Path)
		if err != nil {
			return nil, err
		}
		return NewJSONWriter(file), nil
	default:
		return nil, fmt.Errorf("unsupported format %q for file output", format)
	}
}

// S3Location writes one object to an S3 bucket when the sink is closed.
type S3Location struct {
	Bucket string
	Key    string
	Client *s3.Client
}

// s3WriteCloser buffers the object body and uploads it on Close.
type s3WriteCloser struct {
	buf    *bytes.Buffer
	client *s3.Client
	bucket string
	key    string
	done   bool
}

func newS3WriteCloser(client *s3.Client, bucket, key string) *s3WriteCloser {
	return &s3WriteCloser{
		buf:    &bytes.Buffer{},
		client: client,
		bucket: bucket,
		key:    key,
	}
}

func (s *s3WriteCloser) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *s3WriteCloser) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(s.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// NewSink creates a writer uploading to S3.
func (s S3Location) NewSink(format OutputFormat, schema *core.Schema) (core.ResultSink, error) {
	if s.Client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, err
		}
		s.Client = s3.NewFromConfig(cfg)
	}

	body := newS3WriteCloser(s.Client, s.Bucket, s.Key)
	switch format {
	case FormatCSV:
		return NewCSVWriter(body)
	case FormatJSON:
		return NewJSONWriter(body), nil
	case FormatParquet:
		return NewParquetWriterTo(body, WithSchema(schema))
	default:
		return nil, fmt.Errorf("unsupported format %q for s3 output", format)
	}
}

// PostgresLocation directs diagnostics to a PostgreSQL table.
type PostgresLocation struct {
	DSN   string
	Table string
}

// NewSink instantiates a PostgreSQL writer.
func (p PostgresLocation) NewSink(format OutputFormat, _ *core.Schema) (core.ResultSink, error) {
	if format != FormatPostgres {
		return nil, fmt.Errorf("unsupported format %q for postgres output", format)
	}
	return NewPostgresWriter(
		WithPostgresDSN(p.DSN),
		WithTableName(p.Table),
		WithCreateTable(true),
		WithTransactionMode(true),
	)
}

// Open returns a sink for location: "postgres://..." DSNs, "s3://bucket/key"
// or a local path. format may be empty, in which case it is taken from the
// extension.
func Open(location string, format string, schema *core.Schema) (core.ResultSink, error) {
	var (
		out OutputFormat
		err error
	)
	if format != "" {
		if out, err = ParseFormat(format); err != nil {
			return nil, err
		}
	}

	if strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://") {
		return PostgresLocation{DSN: location}.NewSink(FormatPostgres, schema)
	}

	if out == "" {
		detected, ok := FormatForPath(location)
		if !ok {
			return nil, fmt.Errorf("cannot detect output format of %q", location)
		}
		out = detected
	}

	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 location %q", location)
		}
		return S3Location{Bucket: bucket, Key: key}.NewSink(out, schema)
	}
	return FileLocation{Path: location}.NewSink(out, schema)
}
