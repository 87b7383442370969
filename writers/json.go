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
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/aaronlmathis/goimport/core"
)

// jsonLine is the document written for every record.
type jsonLine struct {
	Row         int                   `json:"row"`
	Valid       bool                  `json:"valid"`
	Values      map[string]core.Value `json:"values"`
	Diagnostics []core.Diagnostic     `json:"diagnostics"`
}

// JSONWriter implements core.ResultSink for JSON lines files
type JSONWriter struct {
	writer  io.Writer
	closer  io.Closer
	written int64
	closed  bool
	mu      sync.Mutex
}

// NewJSONWriter creates a new JSON writer for line-delimited JSON output
func NewJSONWriter(w io.WriteCloser) *JSONWriter {
	return &JSONWriter{
		writer: w,
		closer: w,
	}
}

// Write implements the core.ResultSink interface
func (j *JSONWriter) Write(ctx context.Context, record *core.Record) error {
	diags := record.Diagnostics()
	if diags == nil {
		diags = []core.Diagnostic{}
	}
	data, err := json.Marshal(jsonLine{
		Row:         record.Row(),
		Valid:       record.Valid(),
		Values:      record.Values(),
		Diagnostics: diags,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return fmt.Errorf("json writer is closed")
	}
	if _, err := j.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON data: %w", err)
	}
	j.written++
	return nil
}

// Written returns the number of records written so far.
func (j *JSONWriter) Written() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written
}

// Flush implements the core.ResultSink interface
func (j *JSONWriter) Flush() error {
	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close implements the core.ResultSink interface
func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
