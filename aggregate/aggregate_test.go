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

package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goimport/core"
)

func testSchema(t *testing.T) *core.Schema {
	t.Helper()
	s, err := core.NewSchema(
		core.Field{Key: "region", Label: "Region"},
		core.Field{Key: "amount", Label: "Amount", Kind: core.KindNumber},
		core.Field{Key: "day", Label: "Day", Kind: core.KindDate},
	)
	require.NoError(t, err)
	return s
}

func record(t *testing.T, s *core.Schema, row int, region string, amount core.Value) *core.Record {
	t.Helper()
	rec, err := core.NewRecord(s, row, map[string]core.Value{
		"region": core.Text(region),
		"amount": amount,
	})
	require.NoError(t, err)
	return rec
}

func TestGroupBy(t *testing.T) {
	s := testSchema(t)
	g := NewGroupBy("region").
		Count("count").
		Sum("amount", "total").
		Avg("amount", "avg").
		Min("amount", "min").
		Max("amount", "max")

	ctx := context.Background()
	for i, r := range []struct {
		region string
		amount core.Value
	}{
		{"west", core.Number(10)},
		{"east", core.Number(5)},
		{"west", core.Number(30)},
		{"west", core.Null()},
	} {
		require.NoError(t, g.Write(ctx, record(t, s, i+1, r.region, r.amount)))
	}
	require.NoError(t, g.Flush())
	require.NoError(t, g.Close())

	results := g.Results()
	require.Len(t, results, 2)

	east, west := results[0], results[1]
	assert.Equal(t, "east", east.Keys["region"])
	assert.Equal(t, 1, east.Values["count"])
	assert.Equal(t, 5.0, east.Values["total"])

	assert.Equal(t, "west", west.Keys["region"])
	assert.Equal(t, 3, west.Values["count"])
	assert.Equal(t, 40.0, west.Values["total"])
	assert.Equal(t, 20.0, west.Values["avg"])
	assert.Equal(t, 10.0, west.Values["min"])
	assert.Equal(t, 30.0, west.Values["max"])

	assert.Equal(t, []string{"region"}, g.Fields())
	assert.Equal(t, []string{"count", "total", "avg", "min", "max"}, g.Outputs())
}

func TestGroupBy_Validity(t *testing.T) {
	s := testSchema(t)
	g := NewGroupBy(ValidField, "region").Count("records").Invalid("invalid")

	ctx := context.Background()
	bad := record(t, s, 1, "west", core.Number(1))
	bad.AddError("Amount is too small", "amount")
	warned := record(t, s, 2, "west", core.Number(2))
	warned.AddWarning("Check amount", "amount")

	require.NoError(t, g.Write(ctx, bad))
	require.NoError(t, g.Write(ctx, warned))
	require.NoError(t, g.Write(ctx, record(t, s, 3, "east", core.Number(3))))

	results := g.Results()
	require.Len(t, results, 3)
	assert.Equal(t, map[string]string{ValidField: "false", "region": "west"}, results[0].Keys)
	assert.Equal(t, 1, results[0].Values["invalid"])
	assert.Equal(t, map[string]string{ValidField: "true", "region": "east"}, results[1].Keys)
	assert.Equal(t, 0, results[1].Values["invalid"])
	assert.Equal(t, 1, results[2].Values["records"])
}

func TestGroupBy_KeysDoNotCollide(t *testing.T) {
	s, err := core.NewSchema(core.Field{Key: "a"}, core.Field{Key: "b"})
	require.NoError(t, err)
	g := NewGroupBy("a", "b").Count("n")

	ctx := context.Background()
	for _, vals := range [][2]string{{"x_y", "z"}, {"x", "y_z"}} {
		rec, err := core.NewRecord(s, 1, map[string]core.Value{
			"a": core.Text(vals[0]),
			"b": core.Text(vals[1]),
		})
		require.NoError(t, err)
		require.NoError(t, g.Write(ctx, rec))
	}
	assert.Len(t, g.Results(), 2)
}

func TestAggregators(t *testing.T) {
	s := testSchema(t)
	ctx := context.Background()

	early := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	minDay := &MinAggregator{Field: "day"}
	maxDay := &MaxAggregator{Field: "day"}
	for _, d := range []time.Time{late, early} {
		rec, err := core.NewRecord(s, 1, map[string]core.Value{"day": core.Date(d)})
		require.NoError(t, err)
		require.NoError(t, minDay.Add(ctx, rec))
		require.NoError(t, maxDay.Add(ctx, rec))
	}
	assert.Equal(t, early, minDay.Result())
	assert.Equal(t, late, maxDay.Result())

	minDay.Reset()
	assert.Nil(t, minDay.Result())

	avg := &AvgAggregator{Field: "amount"}
	assert.Equal(t, 0.0, avg.Result())
	require.NoError(t, avg.Add(ctx, record(t, s, 1, "x", core.Number(4))))
	clone := avg.Clone()
	assert.Equal(t, 0.0, clone.Result())
	assert.Equal(t, 4.0, avg.Result())
}

func TestDiagnosticTally(t *testing.T) {
	s := testSchema(t)
	tally := NewDiagnosticTally(core.SeverityWarn)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec := record(t, s, i, "west", core.Number(float64(i)))
		if i < 3 {
			rec.AddError("Amount is too small", "amount")
		}
		rec.AddWarning("Region is unusual", "region")
		rec.AddInfo("Normalized region", "region")
		require.NoError(t, tally.Write(ctx, rec))
	}
	clean := record(t, s, 4, "east", core.Number(9))
	clean.AddInfo("Normalized region", "region")
	require.NoError(t, tally.Write(ctx, clean))

	seen, affected := tally.Records()
	assert.Equal(t, 4, seen)
	assert.Equal(t, 3, affected)

	top := tally.Top(0)
	require.Len(t, top, 2)
	assert.Equal(t, DiagnosticCount{
		Severity: core.SeverityWarn,
		Fields:   "region",
		Message:  "Region is unusual",
		Count:    3,
	}, top[0])
	assert.Equal(t, core.SeverityError, top[1].Severity)
	assert.Equal(t, 2, top[1].Count)

	assert.Len(t, tally.Top(1), 1)
}
