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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Accessors(t *testing.T) {
	v := Text("abc")
	s, ok := v.Text()
	assert.True(t, ok)
	assert.Equal(t, "abc", s)
	_, ok = v.Number()
	assert.False(t, ok)

	n, ok := Number(2.5).Number()
	assert.True(t, ok)
	assert.Equal(t, 2.5, n)

	ref, ok := Reference("US").Reference()
	assert.True(t, ok)
	assert.Equal(t, "US", ref)
	_, ok = Reference("US").Text()
	assert.False(t, ok)

	assert.True(t, Null().IsNull())
	assert.Equal(t, KindNull, Value{}.Kind())
}

func TestValue_IsBlank(t *testing.T) {
	assert.True(t, Null().IsBlank())
	assert.True(t, Text("  ").IsBlank())
	assert.True(t, Reference("").IsBlank())
	assert.False(t, Text("x").IsBlank())
	assert.False(t, Number(0).IsBlank())
	assert.False(t, Bool(false).IsBlank())
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), ""},
		{"text", Text("hi"), "hi"},
		{"integer", Number(42), "42"},
		{"fraction", Number(0.25), "0.25"},
		{"bool", Bool(true), "true"},
		{"calendar date", Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), "2024-03-01"},
		{"timestamp", Date(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)), "2024-03-01T10:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Null().Equal(Null()))
	assert.True(t, Text("a").Equal(Text("a")))
	assert.False(t, Text("a").Equal(Reference("a")))
	assert.False(t, Number(1).Equal(Number(2)))

	a := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b := a.In(time.FixedZone("x", 3600))
	assert.True(t, Date(a).Equal(Date(b)))
}

func TestValue_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Value{
		"n": Number(3),
		"s": Text("x"),
		"z": Null(),
		"d": Date(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":3,"s":"x","z":null,"d":"2024-02-29"}`, string(data))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Enum")
	require.NoError(t, err)
	assert.Equal(t, KindReference, k)

	k, err = ParseKind("int")
	require.NoError(t, err)
	assert.Equal(t, KindNumber, k)

	_, err = ParseKind("blob")
	assert.Error(t, err)
}

func TestSeverity_Text(t *testing.T) {
	s, err := ParseSeverity("comment")
	require.NoError(t, err)
	assert.Equal(t, SeverityInfo, s)

	d := Error("bad", "a").WithRule("r")
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"severity":"error","fields":["a"],"message":"bad","rule":"r"}`, string(data))

	var back Diagnostic
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)

	assert.Equal(t, "[]", EncodeDiagnostics(nil))
	assert.Equal(t, "warn [a,b]: careful", Warn("careful", "a", "b").String())
}
