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
	"io"
	"os"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/goimport/core"
)

// ParquetReaderError provides structured error information for parquet reader operations
type ParquetReaderError struct {
	Op  string // Operation that failed (e.g., "read", "load_batch", "open_file", "schema")
	Err error  // Underlying error
}

func (e *ParquetReaderError) Error() string {
	return fmt.Sprintf("parquet reader %s: %v", e.Op, e.Err)
}

func (e *ParquetReaderError) Unwrap() error {
	return e.Err
}

// ParquetReaderStats holds statistics about the Parquet reader's performance
type ParquetReaderStats struct {
	RecordsRead     int64
	BatchesRead     int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
}

// ParquetReaderOptions configures the Parquet reader
// BatchSize: rows per Arrow batch
// Columns: optional list of column names to project
type ParquetReaderOptions struct {
	BatchSize int64
	Columns   []string
}

// ReaderOptionParquet represents a configuration function
type ReaderOptionParquet func(*ParquetReaderOptions)

func WithParquetBatchSize(size int64) ReaderOptionParquet {
	return func(opts *ParquetReaderOptions) {
		opts.BatchSize = size
	}
}

func WithParquetColumns(columns ...string) ReaderOptionParquet {
	return func(opts *ParquetReaderOptions) {
		opts.Columns = make([]string, len(columns))
		copy(opts.Columns, columns)
	}
}

func (opts *ParquetReaderOptions) withDefaults() *ParquetReaderOptions {
	result := &ParquetReaderOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.BatchSize <= 0 {
		result.BatchSize = 1000
	}
	return result
}

// ParquetReader implements DataSource for Parquet files
// Supports optional column projection and safe resource management
type ParquetReader struct {
	closer          io.Closer
	recordReader    pqarrow.RecordReader
	currentBatch    arrow.Record
	currentBatchIdx int
	schema          *arrow.Schema
	stats           ParquetReaderStats
}

// NewParquetReader opens a Parquet file and prepares an Arrow RecordReader
func NewParquetReader(filename string, options ...ReaderOptionParquet) (*ParquetReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &ParquetReaderError{Op: "open_file", Err: err}
	}
	reader, err := NewParquetReaderFrom(f, f, options...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return reader, nil
}

// NewParquetReaderFrom reads Parquet data from src. closer, when not nil, is
// closed with the reader.
func NewParquetReaderFrom(src parquet.ReaderAtSeeker, closer io.Closer, options ...ReaderOptionParquet) (*ParquetReader, error) {
	opts := &ParquetReaderOptions{}
	for _, option := range options {
		option(opts)
	}
	opts = opts.withDefaults()

	parquetReader, err := file.NewParquetReader(src)
	if err != nil {
		return nil, &ParquetReaderError{Op: "create_reader", Err: err}
	}

	arrowReader, err := pqarrow.NewFileReader(parquetReader, pqarrow.ArrowReadProperties{BatchSize: opts.BatchSize}, memory.NewGoAllocator())
	if err != nil {
		return nil, &ParquetReaderError{Op: "create_arrow_reader", Err: err}
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, &ParquetReaderError{Op: "get_schema", Err: err}
	}

	// Prepare column index projection if requested
	var colIndices []int
	for _, name := range opts.Columns {
		indices := schema.FieldIndices(name)
		if len(indices) == 0 {
			return nil, &ParquetReaderError{Op: "column_projection", Err: fmt.Errorf("column %q not found in schema", name)}
		}
		colIndices = append(colIndices, indices[0])
	}

	recordReader, err := arrowReader.GetRecordReader(context.Background(), colIndices, nil)
	if err != nil {
		return nil, &ParquetReaderError{Op: "create_record_reader", Err: err}
	}

	return &ParquetReader{
		closer:       closer,
		recordReader: recordReader,
		schema:       schema,
		stats:        ParquetReaderStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Read reads the next row from the Parquet file, returning core.Row or io.EOF
func (p *ParquetReader) Read(ctx context.Context) (core.Row, error) {
	startTime := time.Now()
	defer func() {
		p.stats.ReadDuration += time.Since(startTime)
		p.stats.LastReadTime = time.Now()
	}()

	select {
	case <-ctx.Done():
		return nil, &ParquetReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	for p.currentBatch == nil || p.currentBatchIdx >= int(p.currentBatch.NumRows()) {
		if err := p.loadNextBatch(); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, &ParquetReaderError{Op: "load_batch", Err: err}
		}
	}

	result := p.extractRow(p.currentBatch, p.currentBatchIdx)
	p.currentBatchIdx++
	p.stats.RecordsRead++
	return result, nil
}

// Close releases resources and closes the underlying file
func (p *ParquetReader) Close() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}
	if p.recordReader != nil {
		p.recordReader.Release()
		p.recordReader = nil
	}
	if p.closer != nil {
		err := p.closer.Close()
		p.closer = nil
		return err
	}
	return nil
}

// Schema returns the Arrow schema of the Parquet file
func (p *ParquetReader) Schema() *arrow.Schema {
	return p.schema
}

// Stats returns statistics about the Parquet reader's performance
func (p *ParquetReader) Stats() ParquetReaderStats {
	return p.stats
}

func (p *ParquetReader) loadNextBatch() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}

	rec, err := p.recordReader.Read()
	if err != nil {
		return err
	}
	if rec == nil {
		return io.EOF
	}
	rec.Retain()
	p.currentBatch = rec
	p.currentBatchIdx = 0
	p.stats.BatchesRead++
	return nil
}

// extractRow builds a core.Row from a row in an Arrow Record batch
func (p *ParquetReader) extractRow(record arrow.Record, pos int) core.Row {
	res := make(core.Row, record.NumCols())
	sch := record.Schema()
	for i := 0; i < int(record.NumCols()); i++ {
		name := sch.Field(i).Name
		res[name] = p.extractValue(record.Column(i), pos, name)
	}
	return res
}

func (p *ParquetReader) extractValue(col arrow.Array, rowIdx int, fieldName string) any {
	if col.IsNull(rowIdx) {
		p.stats.NullValueCounts[fieldName]++
		return nil
	}

	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(rowIdx)
	case *array.Int8:
		return arr.Value(rowIdx)
	case *array.Int16:
		return arr.Value(rowIdx)
	case *array.Int32:
		return arr.Value(rowIdx)
	case *array.Int64:
		return arr.Value(rowIdx)
	case *array.Uint8:
		return arr.Value(rowIdx)
	case *array.Uint16:
		return arr.Value(rowIdx)
	case *array.Uint32:
		return arr.Value(rowIdx)
	case *array.Uint64:
		return arr.Value(rowIdx)
	case *array.Float32:
		return arr.Value(rowIdx)
	case *array.Float64:
		return arr.Value(rowIdx)
	case *array.String:
		return arr.Value(rowIdx)
	case *array.Binary:
		return string(arr.Value(rowIdx))
	case *array.Timestamp:
		return arr.Value(rowIdx).ToTime(arr.DataType().(*arrow.TimestampType).Unit)
	case *array.Date32:
		return arr.Value(rowIdx).ToTime()
	case *array.Date64:
		return arr.Value(rowIdx).ToTime()
	default:
		// Fallback to string representation
		return fmt.Sprintf("%v", col.GetOneForMarshal(rowIdx))
	}
}
