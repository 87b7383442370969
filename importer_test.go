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
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goimport/core"
)

// sliceSource replays rows; a non-nil entry in errs is returned for that row.
type sliceSource struct {
	rows   []core.Row
	errs   map[int]error
	pos    int
	closed bool
}

func (s *sliceSource) Read(ctx context.Context) (core.Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	i := s.pos
	s.pos++
	if err := s.errs[i]; err != nil {
		return nil, err
	}
	return s.rows[i], nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type memorySink struct {
	mu      sync.Mutex
	records []*core.Record
	batches []*core.BatchContext
	failRow int
	closed  bool
}

func (m *memorySink) Write(ctx context.Context, rec *core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Row() == m.failRow {
		return errors.New("disk full")
	}
	m.records = append(m.records, rec)
	m.batches = append(m.batches, core.BatchFromContext(ctx))
	return nil
}

func (m *memorySink) Flush() error { return nil }

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func (m *memorySink) rows() []int {
	out := make([]int, len(m.records))
	for i, r := range m.records {
		out[i] = r.Row()
	}
	return out
}

func testRunner(t *testing.T) *BatchRunner {
	t.Helper()
	p, err := NewPipeline(testSchema(t)).Validate("qty", positive).Build()
	require.NoError(t, err)
	return NewBatchRunner(p, WithWorkers(2))
}

func TestImporter_RoutesByFilter(t *testing.T) {
	source := &sliceSource{rows: []core.Row{
		{"name": "a", "qty": "1"},
		{"name": "b", "qty": "-1"},
		{},
		{"name": "c", "qty": "2"},
	}}
	all, invalid := &memorySink{}, &memorySink{}
	onlyInvalid := core.FilterFunc(func(ctx context.Context, rec *core.Record) (bool, error) {
		return !rec.Valid(), nil
	})

	im, err := NewImporter(source, testRunner(t),
		WithSink(all),
		WithSink(invalid, onlyInvalid),
		WithBatchSize(2),
	)
	require.NoError(t, err)

	report, err := im.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, report.Batches, 2)
	assert.Equal(t, Summary{Total: 3, Valid: 2, Invalid: 1, Errors: 1}, report.Summary)

	assert.Equal(t, []int{1, 2, 4}, all.rows())
	assert.Equal(t, []int{2}, invalid.rows())
	assert.True(t, source.closed)
	assert.True(t, all.closed)
	assert.True(t, invalid.closed)

	// sinks see the batch the record was processed in
	assert.Equal(t, report.Batches[0], all.batches[0].ID())
	assert.Equal(t, report.Batches[1], all.batches[2].ID())
}

func TestImporter_ErrorStrategies(t *testing.T) {
	rows := []core.Row{
		{"name": "a"},
		{"name": "b", "bogus": "x"},
		{"name": "c"},
	}
	readErr := errors.New("malformed line")

	t.Run("fail fast", func(t *testing.T) {
		source := &sliceSource{rows: rows}
		sink := &memorySink{}
		im, err := NewImporter(source, testRunner(t), WithSink(sink))
		require.NoError(t, err)

		_, err = im.Execute(context.Background())
		var unknown *core.UnknownFieldError
		require.ErrorAs(t, err, &unknown)
		assert.Empty(t, sink.records)
		assert.True(t, source.closed)
	})

	t.Run("skip", func(t *testing.T) {
		source := &sliceSource{rows: rows, errs: map[int]error{2: readErr}}
		sink := &memorySink{}
		im, err := NewImporter(source, testRunner(t), WithSink(sink), WithErrorStrategy(SkipErrors))
		require.NoError(t, err)

		report, err := im.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, report.Rows)
		assert.Equal(t, 2, report.Skipped)
		assert.Empty(t, report.Errors)
		assert.Equal(t, []int{1}, sink.rows())
	})

	t.Run("collect", func(t *testing.T) {
		source := &sliceSource{rows: rows}
		sink := &memorySink{failRow: 3}
		var handled []int
		im, err := NewImporter(source, testRunner(t),
			WithSink(sink),
			WithErrorStrategy(CollectErrors),
			WithErrorHandler(core.ErrorHandlerFunc(func(ctx context.Context, row int, raw core.Row, err error) error {
				handled = append(handled, row)
				return nil
			})),
		)
		require.NoError(t, err)

		report, err := im.Execute(context.Background())
		require.NoError(t, err)
		require.Len(t, report.Errors, 2)
		assert.Contains(t, report.Errors[0].Error(), "row 2")
		assert.Contains(t, report.Errors[1].Error(), "disk full")
		assert.Equal(t, []int{2, 3}, handled)
		assert.Equal(t, []int{1}, sink.rows())
	})

	t.Run("handler stops import", func(t *testing.T) {
		source := &sliceSource{rows: rows, errs: map[int]error{0: readErr}}
		stop := errors.New("stop")
		im, err := NewImporter(source, testRunner(t),
			WithErrorStrategy(SkipErrors),
			WithErrorHandler(core.ErrorHandlerFunc(func(context.Context, int, core.Row, error) error {
				return stop
			})),
		)
		require.NoError(t, err)

		_, err = im.Execute(context.Background())
		assert.ErrorIs(t, err, stop)
	})
}

func TestImporter_LoaderFailureStops(t *testing.T) {
	p, err := NewPipeline(testSchema(t)).Build()
	require.NoError(t, err)
	runner := NewBatchRunner(p, WithBatchLoader(core.NewBatchLoader("x", func(ctx context.Context) (any, error) {
		return nil, errors.New("unreachable")
	})))

	sink := &memorySink{}
	im, err := NewImporter(&sliceSource{rows: []core.Row{{"name": "a"}}}, runner,
		WithSink(sink), WithErrorStrategy(CollectErrors))
	require.NoError(t, err)

	_, err = im.Execute(context.Background())
	var batchErr *core.BatchError
	assert.ErrorAs(t, err, &batchErr)
	assert.Empty(t, sink.records)
	assert.True(t, sink.closed)
}

func TestNewImporter_Validation(t *testing.T) {
	_, err := NewImporter(nil, testRunner(t))
	assert.Error(t, err)
	_, err = NewImporter(&sliceSource{}, nil)
	assert.Error(t, err)
}
