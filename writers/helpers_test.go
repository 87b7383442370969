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
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goimport/core"
)

// mockWriteCloser records output in memory.
type mockWriteCloser struct {
	*strings.Builder
	closed    bool
	failWrite bool
	failClose bool
	mu        sync.Mutex
}

func (m *mockWriteCloser) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return 0, io.ErrUnexpectedEOF
	}
	return m.Builder.Write(p)
}

func (m *mockWriteCloser) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.failClose {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (m *mockWriteCloser) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Builder.String()
}

func (m *mockWriteCloser) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func newMockWriteCloser() *mockWriteCloser {
	return &mockWriteCloser{Builder: &strings.Builder{}}
}

func testSchema(t testing.TB) *core.Schema {
	t.Helper()
	schema, err := core.NewSchema(
		core.Field{Key: "name", Label: "Name", Kind: core.KindText},
		core.Field{Key: "qty", Label: "Quantity", Kind: core.KindNumber},
		core.Field{Key: "country", Label: "Country", Kind: core.KindReference},
	)
	require.NoError(t, err)
	return schema
}

// sampleRecords returns a valid record and one carrying an error.
func sampleRecords(t testing.TB) []*core.Record {
	t.Helper()
	schema := testSchema(t)

	good, err := core.NewRecord(schema, 1, map[string]core.Value{
		"name":    core.Text("Widget"),
		"qty":     core.Number(3),
		"country": core.Reference("US"),
	})
	require.NoError(t, err)
	good.AddInfo("Zipcode was padded with zeroes", "qty")

	bad, err := core.NewRecord(schema, 2, map[string]core.Value{
		"name": core.Text("Gadget, large"),
		"qty":  core.Number(-1),
	})
	require.NoError(t, err)
	bad.AddDiagnostic(core.Error("Value must be positive", "qty").WithRule("positive"))

	return []*core.Record{good, bad}
}
