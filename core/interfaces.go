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

package core

import (
	"context"
)

// Package core defines the data model and the interfaces of the GoImport
// library.
//
// GoImport validates and transforms tabular records during data import. Field
// rules and record rules run over every record of a batch, annotating it with
// Diagnostics instead of aborting.
//
// This file contains the interfaces for sources, sinks, record rules, batch
// loaders and filters.

// DataSource defines the interface for raw row extraction.
// Implementations stream rows from a source (e.g., CSV, XLSX, Parquet, S3).
type DataSource interface {
	// Read returns the next row or io.EOF when no more rows are available.
	Read(ctx context.Context) (Row, error)
	// Close releases any resources held by the data source.
	Close() error
}

// ResultSink receives processed records together with their diagnostics.
type ResultSink interface {
	// Write outputs a single processed record.
	Write(ctx context.Context, record *Record) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the sink.
	Close() error
}

// RecordRule is a named operation over a whole record. It may read and write
// several fields and append diagnostics. A returned error is converted into an
// error Diagnostic by the pipeline; it never aborts the batch.
type RecordRule interface {
	Name() string
	Apply(ctx context.Context, batch *BatchContext, record *Record) error
}

// FieldRecordRule is a RecordRule that names the fields it reads or writes.
// Pipelines reject such rules when a field is not in their schema.
type FieldRecordRule interface {
	RecordRule
	Fields() []string
}

// BatchLoader produces one shared BatchContext entry. Loaders run once per
// batch, before any record is processed.
type BatchLoader interface {
	Key() string
	Load(ctx context.Context) (any, error)
}

// Filter defines the interface for routing processed records to sinks.
type Filter interface {
	// ShouldInclude returns true if the record should be written.
	ShouldInclude(ctx context.Context, record *Record) (bool, error)
}
