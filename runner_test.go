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
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goimport/core"
)

func records(t *testing.T, s *core.Schema, n int) []*core.Record {
	t.Helper()
	out := make([]*core.Record, n)
	for i := range out {
		out[i] = newRecord(t, s, i+1, core.Row{"name": fmt.Sprintf("r%d", i+1), "qty": i})
	}
	return out
}

func TestBatchRunner_LoadersRunOnce(t *testing.T) {
	s := testSchema(t)
	var loads atomic.Int32
	loader := core.NewBatchLoader("prefix", func(ctx context.Context) (any, error) {
		loads.Add(1)
		return "item-", nil
	})

	p, err := NewPipeline(s).
		RuleFunc("prefix_note", func(ctx context.Context, batch *core.BatchContext, rec *core.Record) error {
			prefix, _ := batch.String("prefix")
			return rec.Set("note", core.Text(prefix+rec.Get("name").String()))
		}).
		Build()
	require.NoError(t, err)

	runner := NewBatchRunner(p, WithBatchLoader(loader), WithWorkers(4))
	result, err := runner.Run(context.Background(), records(t, s, 50))
	require.NoError(t, err)

	assert.Equal(t, int32(1), loads.Load())
	require.Len(t, result.Records, 50)
	for i, rec := range result.Records {
		assert.Equal(t, i+1, rec.Row(), "input order is preserved")
		assert.Equal(t, fmt.Sprintf("item-r%d", i+1), rec.Get("note").String())
	}
	assert.Equal(t, result.Batch.ID(), result.BatchID)
	assert.Equal(t, Summary{Total: 50, Valid: 50}, result.Summary)
}

func TestBatchRunner_LoaderFailure(t *testing.T) {
	s := testSchema(t)
	p, err := NewPipeline(s).Build()
	require.NoError(t, err)

	cause := errors.New("service down")
	runner := NewBatchRunner(p, WithBatchLoader(
		core.NewBatchLoader("ok", func(ctx context.Context) (any, error) { return 1, nil }),
		core.NewBatchLoader("countries", func(ctx context.Context) (any, error) { return nil, cause }),
	))

	recs := records(t, s, 3)
	result, err := runner.Run(context.Background(), recs)
	assert.Nil(t, result)

	var batchErr *core.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, "countries", batchErr.Loader)
	assert.ErrorIs(t, err, cause)
	for _, rec := range recs {
		assert.Empty(t, rec.Diagnostics())
	}
}

func TestBatchRunner_DuplicateLoaderKey(t *testing.T) {
	p, err := NewPipeline(testSchema(t)).Build()
	require.NoError(t, err)

	l := core.NewBatchLoader("k", func(ctx context.Context) (any, error) { return nil, nil })
	_, err = NewBatchRunner(p, WithBatchLoader(l, l)).Prepare(context.Background())
	var batchErr *core.BatchError
	assert.ErrorAs(t, err, &batchErr)
}

func TestBatchRunner_Summary(t *testing.T) {
	s := testSchema(t)
	p, err := NewPipeline(s).Validate("qty", positive).
		RuleFunc("warn_even", func(ctx context.Context, batch *core.BatchContext, rec *core.Record) error {
			if n, _ := rec.Get("qty").Number(); int(n)%2 == 0 {
				rec.AddWarning("even", "qty")
			}
			return nil
		}).
		Build()
	require.NoError(t, err)

	recs := []*core.Record{
		newRecord(t, s, 1, core.Row{"name": "a", "qty": "1"}),
		newRecord(t, s, 2, core.Row{"name": "b", "qty": "-3"}),
		newRecord(t, s, 3, core.Row{"name": "c", "qty": "2"}),
	}
	result, err := NewBatchRunner(p, WithWorkers(1)).Run(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Valid: 2, Invalid: 1, Warnings: 1, Errors: 1}, result.Summary)

	var total Summary
	total.Add(result.Summary)
	total.Add(result.Summary)
	assert.Equal(t, 6, total.Total)
}

func TestBatchRunner_Cancelled(t *testing.T) {
	s := testSchema(t)
	p, err := NewPipeline(s).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := NewBatchRunner(p).Run(ctx, records(t, s, 10))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchRunner_ContextCarriesBatch(t *testing.T) {
	s := testSchema(t)
	var seen atomic.Pointer[core.BatchContext]
	p, err := NewPipeline(s).
		RuleFunc("capture", func(ctx context.Context, batch *core.BatchContext, rec *core.Record) error {
			if core.BatchFromContext(ctx) != batch {
				return errors.New("batch mismatch")
			}
			seen.Store(batch)
			return nil
		}).
		Build()
	require.NoError(t, err)

	result, err := NewBatchRunner(p).Run(context.Background(), records(t, s, 2))
	require.NoError(t, err)
	assert.Same(t, result.Batch, seen.Load())
	assert.Equal(t, 2, result.Summary.Valid)
}

func TestBatchRunner_FaultIsolation(t *testing.T) {
	s := testSchema(t)
	p, err := NewPipeline(s).
		Compute("name", func(v core.Value) core.Value {
			if v.String() == "b" {
				panic("bad name")
			}
			return upper(v)
		}).
		Build()
	require.NoError(t, err)

	a := newRecord(t, s, 1, core.Row{"name": "a"})
	b := newRecord(t, s, 2, core.Row{"name": "b"})
	c := newRecord(t, s, 3, core.Row{"name": "c"})
	runner := NewBatchRunner(p, WithWorkers(3))
	result, err := runner.Run(context.Background(), []*core.Record{a, b, c})
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	baseline, err := runner.Run(context.Background(), []*core.Record{
		newRecord(t, s, 1, core.Row{"name": "a"}),
		newRecord(t, s, 3, core.Row{"name": "c"}),
	})
	require.NoError(t, err)
	require.Len(t, baseline.Records, 2)

	for i, want := range map[int]*core.Record{0: baseline.Records[0], 2: baseline.Records[1]} {
		got := result.Records[i]
		assert.Equal(t, want.Row(), got.Row())
		assert.Equal(t, want.Get("name"), got.Get("name"))
		assert.Equal(t, want.Diagnostics(), got.Diagnostics())
		assert.Empty(t, got.Diagnostics())
	}
	assert.Equal(t, "A", result.Records[0].Get("name").String())
	assert.Equal(t, "C", result.Records[2].Get("name").String())

	bad := result.Records[1]
	assert.Equal(t, 2, bad.Row())
	require.Len(t, bad.Diagnostics(), 1)
	d := bad.Diagnostics()[0]
	assert.Equal(t, core.SeverityError, d.Severity)
	assert.Equal(t, "compute", d.Rule)
	assert.Equal(t, []string{"name"}, d.Fields)
	assert.Contains(t, d.Message, "bad name")
	assert.Equal(t, Summary{Total: 3, Valid: 2, Invalid: 1, Errors: 1}, result.Summary)
}
