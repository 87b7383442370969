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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/aaronlmathis/goimport/core"
)

// Package writers provides implementations of core.ResultSink that persist
// processed records together with their diagnostics.

// Metadata columns appended after the schema fields.
const (
	ColumnRow         = "_row"
	ColumnValid       = "_valid"
	ColumnDiagnostics = "_diagnostics"
)

// CSVWriterError wraps CSV-specific write errors with context.
type CSVWriterError struct {
	Op  string
	Err error
}

func (e *CSVWriterError) Error() string {
	return fmt.Sprintf("csv writer %s: %v", e.Op, e.Err)
}

func (e *CSVWriterError) Unwrap() error {
	return e.Err
}

// CSVWriterStats holds CSV write performance statistics.
type CSVWriterStats struct {
	RecordsWritten  int64
	InvalidWritten  int64
	FlushCount      int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// CSVWriterOptions configures CSV output.
type CSVWriterOptions struct {
	Comma       rune
	UseCRLF     bool
	WriteHeader bool
	Columns     []string // schema fields to write, defaults to all
	Metadata    bool     // append _row, _valid and _diagnostics
	BatchSize   int
}

// WriterOptionCSV is a functional option.
type WriterOptionCSV func(*CSVWriterOptions)

// WithColumns restricts and orders the schema fields written.
func WithColumns(columns ...string) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.Columns = append([]string(nil), columns...)
	}
}

func WithComma(delim rune) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.Comma = delim
	}
}

func WithWriteHeader(write bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.WriteHeader = write
	}
}

func WithCSVBatchSize(size int) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.BatchSize = size
	}
}

func WithUseCRLF(useCRLF bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.UseCRLF = useCRLF
	}
}

// WithMetadataColumns toggles the _row, _valid and _diagnostics columns.
func WithMetadataColumns(include bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.Metadata = include
	}
}

// CSVWriter implements core.ResultSink for CSV output with stats and batching.
type CSVWriter struct {
	writer      *csv.Writer
	closer      io.Closer
	options     CSVWriterOptions
	headers     []string
	fields      []string
	recordBuf   []*core.Record
	stats       CSVWriterStats
	wroteHeader bool
	errorState  bool
	closed      bool
	mu          sync.Mutex
}

// NewCSVWriter creates a new CSV writer with extended options.
func NewCSVWriter(w io.WriteCloser, opts ...WriterOptionCSV) (*CSVWriter, error) {
	options := CSVWriterOptions{
		Comma:       ',',
		WriteHeader: true,
		Metadata:    true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	cw := csv.NewWriter(w)
	cw.Comma = options.Comma
	cw.UseCRLF = options.UseCRLF

	return &CSVWriter{
		writer:    cw,
		closer:    w,
		options:   options,
		recordBuf: make([]*core.Record, 0, max(options.BatchSize, 1)),
		stats:     CSVWriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Write implements the core.ResultSink interface.
func (c *CSVWriter) Write(ctx context.Context, record *core.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errorState {
		return &CSVWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if c.closed {
		return &CSVWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}

	if c.fields == nil {
		c.fields = resolveColumns(record.Schema(), c.options.Columns)
		c.headers = append([]string(nil), c.fields...)
		if c.options.Metadata {
			c.headers = append(c.headers, ColumnRow, ColumnValid, ColumnDiagnostics)
		}
	}

	if !c.wroteHeader && c.options.WriteHeader {
		if err := c.writer.Write(c.headers); err != nil {
			c.errorState = true
			return &CSVWriterError{Op: "write_header", Err: err}
		}
		c.wroteHeader = true
	}

	c.recordBuf = append(c.recordBuf, record)
	c.stats.RecordsWritten++
	if !record.Valid() {
		c.stats.InvalidWritten++
	}

	if len(c.recordBuf) >= max(c.options.BatchSize, 1) {
		if err := c.flushBufferUnsafe(); err != nil {
			c.errorState = true
			return &CSVWriterError{Op: "flush_batch", Err: err}
		}
	}

	return nil
}

// Flush implements the core.ResultSink interface.
func (c *CSVWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	if err := c.flushBufferUnsafe(); err != nil {
		return &CSVWriterError{Op: "flush", Err: err}
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return &CSVWriterError{Op: "flush_writer", Err: err}
	}
	return nil
}

// Close implements the core.ResultSink interface. It is safe to call twice.
func (c *CSVWriter) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// flushBufferUnsafe writes buffered records to CSV (must hold mutex).
func (c *CSVWriter) flushBufferUnsafe() error {
	if len(c.recordBuf) == 0 {
		return nil
	}

	start := time.Now()

	for _, record := range c.recordBuf {
		row := make([]string, 0, len(c.headers))
		for _, key := range c.fields {
			v := record.Get(key)
			if v.IsNull() {
				c.stats.NullValueCounts[key]++
			}
			row = append(row, v.String())
		}
		if c.options.Metadata {
			row = append(row,
				strconv.Itoa(record.Row()),
				strconv.FormatBool(record.Valid()),
				core.EncodeDiagnostics(record.Diagnostics()),
			)
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", record.Row(), err)
		}
	}

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer flush error: %w", err)
	}

	c.stats.FlushCount++
	c.stats.LastFlushTime = time.Now()
	c.stats.FlushDuration += time.Since(start)
	c.recordBuf = c.recordBuf[:0]

	return nil
}

// Stats returns write statistics.
func (c *CSVWriter) Stats() CSVWriterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	statsCopy := c.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(c.stats.NullValueCounts))
	for k, v := range c.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// resolveColumns keeps the requested columns that the schema declares, in the
// requested order, or all schema keys when none are requested.
func resolveColumns(schema *core.Schema, requested []string) []string {
	if schema == nil {
		return []string{}
	}
	if len(requested) == 0 {
		return schema.Keys()
	}
	cols := make([]string, 0, len(requested))
	for _, key := range requested {
		if schema.Has(key) {
			cols = append(cols, key)
		}
	}
	return cols
}
