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
	"fmt"
	"strings"
)

// ComputeFunc replaces a field value. It must be total: when it cannot
// transform its input it returns the input unchanged.
type ComputeFunc func(Value) Value

// ValidateFunc inspects a field value and returns zero or more diagnostics.
// Diagnostics without fields are scoped to the validated field.
type ValidateFunc func(Value) []Diagnostic

// FieldRule attaches a compute and/or a validator to one field.
type FieldRule struct {
	Key      string
	Compute  ComputeFunc
	Validate ValidateFunc
}

// Field declares one column of the import schema.
type Field struct {
	Key      string
	Label    string
	Kind     Kind
	Required bool
	Compute  ComputeFunc
	Validate ValidateFunc
}

// Rule returns the FieldRule carried by the declaration itself.
func (f Field) Rule() FieldRule {
	return FieldRule{Key: f.Key, Compute: f.Compute, Validate: f.Validate}
}

// Schema is the fixed, ordered set of fields a Record may hold. It is
// immutable once built.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields in declaration order. Keys must be
// non-empty and unique.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			return nil, fmt.Errorf("field %d: key is required", i)
		}
		if _, dup := s.index[key]; dup {
			return nil, fmt.Errorf("field %q declared twice", key)
		}
		f.Key = key
		if f.Label == "" {
			f.Label = key
		}
		if f.Kind == KindNull {
			f.Kind = KindText
		}
		s.index[key] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema for static declarations; it panics on error.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the declarations in order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Keys returns the field keys in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.Key
	}
	return keys
}

// Field looks up a declaration by key.
func (s *Schema) Field(key string) (Field, bool) {
	i, ok := s.index[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether key is declared.
func (s *Schema) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Label returns the display label of key, or key itself when undeclared.
func (s *Schema) Label(key string) string {
	if f, ok := s.Field(key); ok {
		return f.Label
	}
	return key
}

// Len returns the number of declared fields.
func (s *Schema) Len() int { return len(s.fields) }
