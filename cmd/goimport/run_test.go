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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goimport/config"
)

const testSchema = `
name: products
fields:
  - key: name
    label: Name
    required: true
    compute: [trim]
  - key: qty
    label: Quantity
    type: number
    validate: [positive]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Log:    config.LogConfig{Level: "info", Format: "console"},
		Schema: writeFile(t, dir, "schema.yaml", testSchema),
		Input: config.InputConfig{
			Path:      writeFile(t, dir, "in.csv", "name,qty\n  Widget ,3\nGadget,-1\n,4\n"),
			Delimiter: ",",
		},
		Batch:  config.BatchConfig{Size: 2},
		Errors: config.ErrorsConfig{Strategy: "fail_fast"},
	}
	return cfg, dir
}

func TestParseOutputFlag(t *testing.T) {
	assert.Equal(t, config.OutputConfig{Path: "out.csv"}, parseOutputFlag("out.csv"))
	assert.Equal(t, config.OutputConfig{Path: "bad.jsonl", Filter: "invalid"}, parseOutputFlag("bad.jsonl=invalid"))
}

func TestRunImport(t *testing.T) {
	cfg, dir := testConfig(t)
	valid := filepath.Join(dir, "out", "valid.jsonl")
	invalid := filepath.Join(dir, "out", "invalid.csv")
	cfg.Outputs = []config.OutputConfig{
		{Path: valid, Filter: "valid"},
		{Path: invalid, Filter: "invalid"},
	}
	cfg.Report.GroupBy = []string{"_valid"}

	var out bytes.Buffer
	report, err := runImport(context.Background(), cfg, &out)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Rows)
	assert.Len(t, report.Batches, 2)
	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Valid)
	assert.Equal(t, 2, report.Summary.Invalid)

	data, err := os.ReadFile(valid)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"name":"Widget"`)

	data, err = os.ReadFile(invalid)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Value must be positive")
	assert.Contains(t, text, "Name is required")

	seen, affected := report.tally.Records()
	assert.Equal(t, 3, seen)
	assert.Equal(t, 2, affected)

	groups := report.groups.Results()
	require.Len(t, groups, 2)
	assert.Equal(t, "false", groups[0].Keys["_valid"])
	assert.Equal(t, 2, groups[0].Values["records"])
	assert.Equal(t, 2, groups[0].Values["invalid"])
	assert.Equal(t, 1, groups[1].Values["records"])

	printReport(&out, report, 5)
	text = out.String()
	assert.Contains(t, text, "invalid")
	assert.Contains(t, text, "Value must be positive")
	assert.Contains(t, text, "_VALID")
}

func TestRunImportUnknownFilter(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Outputs = []config.OutputConfig{
		{Path: filepath.Join(dir, "a.csv")},
		{Path: filepath.Join(dir, "b.csv"), Filter: "bogus"},
	}

	_, err := runImport(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestInspect(t *testing.T) {
	cfg, _ := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, inspect(context.Background(), cfg, 2, &out))
	text := out.String()
	assert.Contains(t, text, "Widget")
	assert.Contains(t, text, "Value must be positive")
	assert.NotContains(t, text, "Name is required")
}

func TestCheckSchema(t *testing.T) {
	path := writeFile(t, t.TempDir(), "schema.yaml", testSchema)

	var out bytes.Buffer
	require.NoError(t, checkSchema(path, &out))
	text := out.String()
	assert.Contains(t, text, `schema "products": 2 fields`)
	assert.Contains(t, text, "Quantity")

	err := checkSchema(writeFile(t, t.TempDir(), "bad.yaml", "fields:\n  - key: a\n    type: blob\n"), &out)
	assert.Error(t, err)
}
