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

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goimport/core"
)

func testSchema(t *testing.T) *core.Schema {
	t.Helper()
	s, err := core.NewSchema(
		core.Field{Key: "name", Label: "Name", Required: true},
		core.Field{Key: "qty", Label: "Quantity", Kind: core.KindNumber},
		core.Field{Key: "note"},
	)
	require.NoError(t, err)
	return s
}

func newRecord(t *testing.T, schema *core.Schema, row int, raw core.Row) *core.Record {
	t.Helper()
	rec, err := core.Decode(schema, row, raw)
	require.NoError(t, err)
	return rec
}

func upper(v core.Value) core.Value {
	if s, ok := v.Text(); ok {
		return core.Text(strings.ToUpper(s))
	}
	return v
}

func positive(v core.Value) []core.Diagnostic {
	if n, ok := v.Number(); ok && n < 0 {
		return []core.Diagnostic{core.Error("Value must be positive").WithRule("positive")}
	}
	return nil
}

func TestPipeline_FieldRules(t *testing.T) {
	s := testSchema(t)
	p, err := NewPipeline(s).
		Compute("name", upper).
		Validate("qty", positive).
		Build()
	require.NoError(t, err)

	rec := p.Process(context.Background(), nil, newRecord(t, s, 1, core.Row{"name": "widget", "qty": "-2"}))
	assert.Equal(t, "WIDGET", rec.Get("name").String())

	diags := rec.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, []string{"qty"}, diags[0].Fields)
	assert.Equal(t, "positive", diags[0].Rule)
	assert.False(t, rec.Valid())
}

func TestPipeline_NullShortCircuit(t *testing.T) {
	s := testSchema(t)
	called := false
	p, err := NewPipeline(s).
		Validate("note", func(core.Value) []core.Diagnostic {
			called = true
			return []core.Diagnostic{core.Error("never")}
		}).
		Build()
	require.NoError(t, err)

	rec := p.Process(context.Background(), nil, newRecord(t, s, 1, core.Row{"name": " "}))
	assert.False(t, called)

	diags := rec.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "Name is required", diags[0].Message)
	assert.Equal(t, []string{"name"}, diags[0].Fields)
}

func TestPipeline_Ordering(t *testing.T) {
	s := testSchema(t)
	var order []string
	trace := func(name string) core.RecordRuleFunc {
		return func(ctx context.Context, batch *core.BatchContext, rec *core.Record) error {
			order = append(order, name)
			return nil
		}
	}
	p, err := NewPipeline(s).
		RuleFunc("second", trace("second")).
		Compute("qty", func(v core.Value) core.Value {
			order = append(order, "compute")
			return v
		}).
		RuleFunc("third", trace("third")).
		Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, p.RuleNames())

	p.Process(context.Background(), nil, newRecord(t, s, 1, core.Row{"name": "a"}))
	assert.Equal(t, []string{"compute", "second", "third"}, order)
}

func TestPipeline_FailureContainment(t *testing.T) {
	s := testSchema(t)
	p, err := NewPipeline(s).
		Compute("name", func(core.Value) core.Value { panic("compute exploded") }).
		Validate("qty", func(core.Value) []core.Diagnostic { panic("validate exploded") }).
		RuleFunc("errs", func(context.Context, *core.BatchContext, *core.Record) error {
			return errors.New("lookup missing")
		}).
		RuleFunc("after", func(ctx context.Context, batch *core.BatchContext, rec *core.Record) error {
			rec.AddInfo("still ran")
			return nil
		}).
		Build()
	require.NoError(t, err)

	rec := p.Process(context.Background(), nil, newRecord(t, s, 1, core.Row{"name": "keep", "qty": "1"}))
	assert.Equal(t, "keep", rec.Get("name").String())

	diags := rec.Diagnostics()
	require.Len(t, diags, 4)
	assert.Equal(t, "compute", diags[0].Rule)
	assert.Equal(t, []string{"name"}, diags[0].Fields)
	assert.Equal(t, "validate", diags[1].Rule)
	assert.Equal(t, "errs", diags[2].Rule)
	assert.Equal(t, "rule execution failed: lookup missing", diags[2].Message)
	assert.Equal(t, "still ran", diags[3].Message)
}

func TestPipeline_Idempotent(t *testing.T) {
	s := testSchema(t)
	p, err := NewPipeline(s).Compute("name", upper).Validate("qty", positive).Build()
	require.NoError(t, err)

	rec := newRecord(t, s, 1, core.Row{"name": "x", "qty": "-1"})
	a := p.Process(context.Background(), nil, rec.Clone())
	b := p.Process(context.Background(), nil, rec.Clone())
	assert.Equal(t, a.Values(), b.Values())
	assert.Equal(t, a.Diagnostics(), b.Diagnostics())
	assert.Empty(t, rec.Diagnostics())
}

func TestPipelineBuilder_Errors(t *testing.T) {
	_, err := NewPipeline(nil).Build()
	assert.Error(t, err)

	_, err = NewPipeline(testSchema(t)).Compute("missing", upper).Build()
	var unknown *core.UnknownFieldError
	assert.ErrorAs(t, err, &unknown)

	_, err = NewPipeline(testSchema(t)).Rule(nil).Build()
	assert.Error(t, err)

	noop := func(context.Context, *core.BatchContext, *core.Record) error { return nil }
	_, err = NewPipeline(testSchema(t)).
		Rule(core.NewFieldRecordRule("one_of_present", []string{"name", "nam"}, noop)).
		Build()
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nam", unknown.Field)
	assert.Contains(t, err.Error(), `record rule "one_of_present"`)

	_, err = NewPipeline(testSchema(t)).
		Rule(core.NewFieldRecordRule("one_of_present", []string{"name", "note"}, noop)).
		Build()
	assert.NoError(t, err)
}

func TestPipeline_SchemaDeclaredRules(t *testing.T) {
	s, err := core.NewSchema(core.Field{Key: "code", Compute: upper})
	require.NoError(t, err)
	p, err := NewPipeline(s).Build()
	require.NoError(t, err)

	rec := p.Process(context.Background(), nil, newRecord(t, s, 1, core.Row{"code": "ab"}))
	assert.Equal(t, "AB", rec.Get("code").String())
}
