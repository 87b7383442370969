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

package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goimport/core"
)

func newRecord(t *testing.T, values map[string]core.Value, diags ...core.Diagnostic) *core.Record {
	t.Helper()
	schema := core.MustSchema(
		core.Field{Key: "name"},
		core.Field{Key: "qty", Kind: core.KindNumber},
		core.Field{Key: "active", Kind: core.KindBool},
	)
	rec, err := core.NewRecord(schema, 1, values)
	require.NoError(t, err)
	for _, d := range diags {
		rec.AddDiagnostic(d)
	}
	return rec
}

func include(t *testing.T, f core.Filter, rec *core.Record) bool {
	t.Helper()
	ok, err := f.ShouldInclude(context.Background(), rec)
	require.NoError(t, err)
	return ok
}

func TestValidityFilters(t *testing.T) {
	clean := newRecord(t, nil)
	warned := newRecord(t, nil, core.Warn("check", "qty"))
	broken := newRecord(t, nil, core.Error("bad", "name"))

	assert.True(t, include(t, Valid(), clean))
	assert.True(t, include(t, Valid(), warned))
	assert.False(t, include(t, Valid(), broken))

	assert.False(t, include(t, Invalid(), clean))
	assert.True(t, include(t, Invalid(), broken))

	assert.True(t, include(t, HasSeverity(core.SeverityWarn), warned))
	assert.False(t, include(t, HasSeverity(core.SeverityWarn), broken))

	assert.False(t, include(t, HasDiagnostics(), clean))
	assert.True(t, include(t, HasDiagnostics(), warned))

	assert.True(t, include(t, FieldHasDiagnostic("name"), broken))
	assert.False(t, include(t, FieldHasDiagnostic("qty"), broken))
}

func TestValueFilters(t *testing.T) {
	rec := newRecord(t, map[string]core.Value{
		"name":   core.Text("Widget Pro"),
		"qty":    core.Number(5),
		"active": core.Bool(true),
	})
	empty := newRecord(t, map[string]core.Value{"name": core.Text("  ")})

	assert.True(t, include(t, FieldEquals("qty", 5), rec))
	assert.True(t, include(t, FieldEquals("qty", "5"), rec))
	assert.True(t, include(t, FieldEquals("active", "yes"), rec))
	assert.False(t, include(t, FieldEquals("qty", "five"), rec))
	assert.True(t, include(t, FieldEquals("name", "Widget Pro"), rec))

	assert.True(t, include(t, NotNull("name"), rec))
	assert.False(t, include(t, NotNull("name"), empty))
	assert.False(t, include(t, NotNull("qty"), empty))

	assert.True(t, include(t, Contains("name", "get"), rec))
	assert.True(t, include(t, StartsWith("name", "Wid"), rec))
	assert.True(t, include(t, MatchesRegex("name", `Pro$`), rec))
	assert.False(t, include(t, Contains("qty", "x"), empty))

	assert.True(t, include(t, Between("qty", 1, 5), rec))
	assert.False(t, include(t, Between("qty", 6, 9), rec))
	assert.False(t, include(t, Between("name", 0, 9), rec))

	assert.True(t, include(t, In("name", "Widget Pro", "Gadget"), rec))
	assert.False(t, include(t, In("qty", "4"), rec))
}

func TestCombinators(t *testing.T) {
	rec := newRecord(t, map[string]core.Value{"qty": core.Number(2)})

	assert.True(t, include(t, And(Valid(), Between("qty", 0, 3)), rec))
	assert.False(t, include(t, And(Valid(), Invalid()), rec))
	assert.True(t, include(t, Or(Invalid(), Valid()), rec))
	assert.False(t, include(t, Or(), rec))
	assert.False(t, include(t, Not(All()), rec))
	assert.True(t, include(t, Custom(func(r *core.Record) bool { return r.Row() == 1 }), rec))
}

func TestByName(t *testing.T) {
	broken := newRecord(t, nil, core.Error("bad"))
	for name, want := range map[string]bool{
		"all":         true,
		"valid":       false,
		"invalid":     true,
		"warnings":    false,
		"diagnostics": true,
	} {
		f, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, want, include(t, f, broken), name)
	}
	_, ok := ByName("sometimes")
	assert.False(t, ok)
}
