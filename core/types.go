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

import "context"

// This file contains the raw row type and the function adapters.

// Row is one undecoded source row: column name to raw value.
type Row map[string]any

// RecordRuleFunc is the function form of a record rule.
type RecordRuleFunc func(ctx context.Context, batch *BatchContext, record *Record) error

type namedRule struct {
	name string
	fn   RecordRuleFunc
}

func (r namedRule) Name() string { return r.name }

func (r namedRule) Apply(ctx context.Context, batch *BatchContext, record *Record) error {
	return r.fn(ctx, batch, record)
}

// NewRecordRule wraps fn as a RecordRule called name.
func NewRecordRule(name string, fn RecordRuleFunc) RecordRule {
	return namedRule{name: name, fn: fn}
}

type fieldRule struct {
	namedRule
	fields []string
}

func (r fieldRule) Fields() []string { return append([]string(nil), r.fields...) }

// NewFieldRecordRule wraps fn as a FieldRecordRule called name that touches
// fields.
func NewFieldRecordRule(name string, fields []string, fn RecordRuleFunc) FieldRecordRule {
	return fieldRule{namedRule: namedRule{name: name, fn: fn}, fields: append([]string(nil), fields...)}
}

// BatchLoaderFunc is the function form of a batch loader.
type BatchLoaderFunc func(ctx context.Context) (any, error)

type keyedLoader struct {
	key string
	fn  BatchLoaderFunc
}

func (l keyedLoader) Key() string { return l.key }

func (l keyedLoader) Load(ctx context.Context) (any, error) { return l.fn(ctx) }

// NewBatchLoader wraps fn as a BatchLoader storing its result under key.
func NewBatchLoader(key string, fn BatchLoaderFunc) BatchLoader {
	return keyedLoader{key: key, fn: fn}
}

// FilterFunc is a function adapter for the Filter interface.
// Allows ordinary functions to be used as Filters.
type FilterFunc func(ctx context.Context, record *Record) (bool, error)

// ShouldInclude implements the Filter interface for FilterFunc.
func (f FilterFunc) ShouldInclude(ctx context.Context, record *Record) (bool, error) {
	return f(ctx, record)
}
