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

// Record is one imported row. It owns its values and its diagnostics; a
// record is processed by one goroutine at a time.
type Record struct {
	schema      *Schema
	row         int
	values      map[string]Value
	diagnostics []Diagnostic
}

// NewRecord builds a record over schema. Every key in values must be
// declared; missing keys start as Null.
func NewRecord(schema *Schema, row int, values map[string]Value) (*Record, error) {
	r := &Record{
		schema: schema,
		row:    row,
		values: make(map[string]Value, schema.Len()),
	}
	for key, v := range values {
		if !schema.Has(key) {
			return nil, &UnknownFieldError{Field: key, Row: row}
		}
		r.values[key] = v
	}
	return r, nil
}

// Schema returns the schema the record was built over.
func (r *Record) Schema() *Schema { return r.schema }

// Row returns the 1-based source row number, or 0 when unknown.
func (r *Record) Row() int { return r.row }

// Get returns the value of key. Undeclared keys read as Null.
func (r *Record) Get(key string) Value {
	return r.values[key]
}

// Set replaces the value of a declared field.
func (r *Record) Set(key string, v Value) error {
	if !r.schema.Has(key) {
		return &UnknownFieldError{Field: key, Row: r.row}
	}
	r.values[key] = v
	return nil
}

// Values returns a copy of all declared values, Null included.
func (r *Record) Values() map[string]Value {
	out := make(map[string]Value, r.schema.Len())
	for _, key := range r.schema.Keys() {
		out[key] = r.values[key]
	}
	return out
}

// AddDiagnostic appends d. Existing diagnostics are never replaced.
func (r *Record) AddDiagnostic(d Diagnostic) {
	d.Fields = append([]string(nil), d.Fields...)
	r.diagnostics = append(r.diagnostics, d)
}

// AddInfo appends an informational diagnostic (a "comment").
func (r *Record) AddInfo(message string, fields ...string) {
	r.AddDiagnostic(Info(message, fields...))
}

// AddWarning appends a warning diagnostic.
func (r *Record) AddWarning(message string, fields ...string) {
	r.AddDiagnostic(Warn(message, fields...))
}

// AddError appends an error diagnostic; the record becomes invalid.
func (r *Record) AddError(message string, fields ...string) {
	r.AddDiagnostic(Error(message, fields...))
}

// Diagnostics returns a copy of the accumulated diagnostics in emission
// order.
func (r *Record) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.diagnostics))
	for i, d := range r.diagnostics {
		d.Fields = append([]string(nil), d.Fields...)
		out[i] = d
	}
	return out
}

// Count returns how many diagnostics of the given severity were emitted.
func (r *Record) Count(severity Severity) int {
	n := 0
	for _, d := range r.diagnostics {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// Valid reports whether no error diagnostic was emitted.
func (r *Record) Valid() bool {
	return r.Count(SeverityError) == 0
}

// Clone returns a deep copy sharing only the immutable schema.
func (r *Record) Clone() *Record {
	c := &Record{
		schema: r.schema,
		row:    r.row,
		values: make(map[string]Value, len(r.values)),
	}
	for k, v := range r.values {
		c.values[k] = v
	}
	c.diagnostics = r.Diagnostics()
	return c
}
