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

package goimport

import "github.com/aaronlmathis/goimport/core"

// Package goimport defines the pipeline, the batch runner and the importer of
// the GoImport library.
//
// This file re-exports the core data model so callers can depend on the root
// package alone.

type (
	Value         = core.Value
	Kind          = core.Kind
	Record        = core.Record
	Row           = core.Row
	Schema        = core.Schema
	Field         = core.Field
	FieldRule     = core.FieldRule
	Diagnostic    = core.Diagnostic
	Severity      = core.Severity
	BatchContext  = core.BatchContext
	RecordRule    = core.RecordRule
	BatchLoader   = core.BatchLoader
	DataSource    = core.DataSource
	ResultSink    = core.ResultSink
	Filter        = core.Filter
	FilterFunc    = core.FilterFunc
	ErrorStrategy = core.ErrorStrategy
	ErrorHandler  = core.ErrorHandler
)

const (
	// FailFast stops processing on the first error encountered.
	FailFast = core.FailFast
	// SkipErrors continues processing, skipping failed rows.
	SkipErrors = core.SkipErrors
	// CollectErrors continues processing, collecting all errors for later inspection.
	CollectErrors = core.CollectErrors
)
