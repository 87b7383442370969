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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/goimport/core"
)

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string // Operation that failed (e.g., "schema", "write_batch", "close_writer")
	Err error  // Underlying error
}

// Error returns the error string for ParquetWriterError.
func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetWriterError.
func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// WriterStats holds statistics about the Parquet writer's performance.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int64                // Number of records to buffer before writing
	Compression  compress.Compression // Compression algorithm
	RowGroupSize int64                // Maximum rows per row group
	Schema       *core.Schema         // Known up front; otherwise taken from the first record
	Metadata     map[string]string    // Key/value metadata stored in the Arrow schema
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the Parquet compression algorithm.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithRowGroupSize sets the row group size for the Parquet file.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithSchema fixes the output columns before any record is written, so an
// import without records still produces a readable file.
func WithSchema(schema *core.Schema) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Schema = schema
	}
}

// WithMetadata sets key/value metadata for the Parquet file.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

// withDefaults applies default values to ParquetWriterOptions.
func (opts *ParquetWriterOptions) withDefaults() *ParquetWriterOptions {
	result := &ParquetWriterOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.BatchSize <= 0 {
		result.BatchSize = 1000
	}
	if result.RowGroupSize <= 0 {
		result.RowGroupSize = 10000
	}
	if result.Compression == 0 {
		result.Compression = compress.Codecs.Snappy
	}
	return result
}

// ParquetWriter implements core.ResultSink for Parquet files. Every schema
// field becomes a nullable string column, followed by _row (int64), _valid
// (bool) and _diagnostics (JSON string).
type ParquetWriter struct {
	out          io.Writer
	closer       io.Closer
	writer       *pqarrow.FileWriter
	schema       *arrow.Schema
	fields       []string
	recordBuffer []*core.Record
	builders     []array.Builder
	allocator    memory.Allocator
	stats        WriterStats
	opts         *ParquetWriterOptions
	closed       bool
	errorState   bool
	mu           sync.Mutex
}

// NewParquetWriter creates a new Parquet writer for a file, creating parent
// directories as needed.
func NewParquetWriter(filename string, options ...WriterOption) (*ParquetWriter, error) {
	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &ParquetWriterError{
				Op:  "create_directory",
				Err: fmt.Errorf("failed to create directory %s: %w", dir, err),
			}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetWriterError{
			Op:  "open_file",
			Err: fmt.Errorf("failed to create parquet file %s: %w", filename, err),
		}
	}
	writer, err := NewParquetWriterTo(file, options...)
	if err != nil {
		file.Close()
		return nil, err
	}
	return writer, nil
}

// NewParquetWriterTo writes Parquet data to w, which is closed with the writer.
func NewParquetWriterTo(w io.WriteCloser, options ...WriterOption) (*ParquetWriter, error) {
	opts := &ParquetWriterOptions{}
	for _, option := range options {
		option(opts)
	}
	opts = opts.withDefaults()

	writer := &ParquetWriter{
		out:          w,
		closer:       w,
		recordBuffer: make([]*core.Record, 0, opts.BatchSize),
		stats:        WriterStats{NullValueCounts: make(map[string]int64)},
		allocator:    memory.NewGoAllocator(),
		opts:         opts,
	}
	if opts.Schema != nil {
		if err := writer.initialize(opts.Schema); err != nil {
			return nil, err
		}
	}
	return writer, nil
}

// Stats returns the current statistics of the Parquet writer.
func (p *ParquetWriter) Stats() WriterStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := p.stats
	stats.NullValueCounts = make(map[string]int64, len(p.stats.NullValueCounts))
	for k, v := range p.stats.NullValueCounts {
		stats.NullValueCounts[k] = v
	}
	return stats
}

// Schema returns the Arrow schema once it is known.
func (p *ParquetWriter) Schema() *arrow.Schema {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.schema
}

// Write implements the core.ResultSink interface.
// Buffers records and writes in batches.
func (p *ParquetWriter) Write(ctx context.Context, record *core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("parquet writer is closed")}
	}
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	if p.writer == nil {
		if err := p.initialize(record.Schema()); err != nil {
			p.errorState = true
			return err
		}
	}

	p.recordBuffer = append(p.recordBuffer, record)
	p.stats.RecordsWritten++

	if int64(len(p.recordBuffer)) >= p.opts.BatchSize {
		if err := p.flushBatch(); err != nil {
			p.errorState = true
			return &ParquetWriterError{Op: "flush_batch", Err: err}
		}
	}
	return nil
}

// Flush implements the core.ResultSink interface.
// Forces any buffered records to be written to the Parquet file.
func (p *ParquetWriter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushBatch()
}

// Close implements the core.ResultSink interface.
// Flushes and closes all resources.
func (p *ParquetWriter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if err := p.flushBatch(); err != nil {
		errs = append(errs, &ParquetWriterError{Op: "flush_remaining", Err: err})
	}

	for _, builder := range p.builders {
		builder.Release()
	}
	p.builders = nil

	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			errs = append(errs, &ParquetWriterError{Op: "close_writer", Err: err})
		}
		p.writer = nil
	}
	// the file writer usually closes its sink already
	if p.closer != nil {
		if err := p.closer.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, &ParquetWriterError{Op: "close_file", Err: err})
		}
		p.closer = nil
	}
	return errors.Join(errs...)
}

// initialize builds the Arrow schema for the record schema and opens the
// Parquet file writer.
func (p *ParquetWriter) initialize(schema *core.Schema) error {
	if schema == nil {
		return &ParquetWriterError{Op: "schema", Err: fmt.Errorf("record has no schema")}
	}

	p.fields = schema.Keys()
	fields := make([]arrow.Field, 0, len(p.fields)+3)
	for _, key := range p.fields {
		fields = append(fields, arrow.Field{Name: key, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	fields = append(fields,
		arrow.Field{Name: ColumnRow, Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: ColumnValid, Type: arrow.FixedWidthTypes.Boolean},
		arrow.Field{Name: ColumnDiagnostics, Type: arrow.BinaryTypes.String},
	)

	var md *arrow.Metadata
	if len(p.opts.Metadata) > 0 {
		keys := make([]string, 0, len(p.opts.Metadata))
		values := make([]string, 0, len(p.opts.Metadata))
		for k, v := range p.opts.Metadata {
			keys = append(keys, k)
			values = append(values, v)
		}
		m := arrow.NewMetadata(keys, values)
		md = &m
	}
	p.schema = arrow.NewSchema(fields, md)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(p.opts.Compression),
		parquet.WithMaxRowGroupLength(p.opts.RowGroupSize),
	)
	writer, err := pqarrow.NewFileWriter(p.schema, p.out, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return &ParquetWriterError{
			Op:  "create_writer",
			Err: fmt.Errorf("failed to create parquet file writer: %w", err),
		}
	}
	p.writer = writer

	p.builders = make([]array.Builder, len(fields))
	for i, f := range fields {
		p.builders[i] = array.NewBuilder(p.allocator, f.Type)
	}
	return nil
}

// flushBatch writes the current buffer to the Parquet file (must hold mutex).
func (p *ParquetWriter) flushBatch() error {
	if len(p.recordBuffer) == 0 || p.writer == nil {
		return nil
	}
	start := time.Now()

	record := p.createArrowRecord(p.recordBuffer)
	defer record.Release()

	if err := p.writer.Write(record); err != nil {
		return &ParquetWriterError{
			Op:  "write_batch",
			Err: fmt.Errorf("failed to write record batch: %w", err),
		}
	}

	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	p.recordBuffer = p.recordBuffer[:0]
	return nil
}

// createArrowRecord converts buffered records to an Arrow Record.
func (p *ParquetWriter) createArrowRecord(records []*core.Record) arrow.Record {
	n := len(p.fields)
	for _, rec := range records {
		for i, key := range p.fields {
			b := p.builders[i].(*array.StringBuilder)
			v := rec.Get(key)
			if v.IsNull() {
				b.AppendNull()
				p.stats.NullValueCounts[key]++
				continue
			}
			b.Append(v.String())
		}
		p.builders[n].(*array.Int64Builder).Append(int64(rec.Row()))
		p.builders[n+1].(*array.BooleanBuilder).Append(rec.Valid())
		p.builders[n+2].(*array.StringBuilder).Append(core.EncodeDiagnostics(rec.Diagnostics()))
	}

	arrays := make([]arrow.Array, len(p.builders))
	for i, builder := range p.builders {
		arrays[i] = builder.NewArray()
		defer arrays[i].Release()
	}
	return array.NewRecord(p.schema, arrays, int64(len(records)))
}
