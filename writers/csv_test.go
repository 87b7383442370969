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
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goimport/core"
)

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriter_BasicFunctionality(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock)
	require.NoError(t, err)

	ctx := context.Background()
	for _, rec := range sampleRecords(t) {
		require.NoError(t, writer.Write(ctx, rec))
	}
	require.NoError(t, writer.Close())

	rows := readCSV(t, mock.String())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "qty", "country", "_row", "_valid", "_diagnostics"}, rows[0])
	assert.Equal(t, []string{"Widget", "3", "US", "1", "true"}, rows[1][:5])
	assert.Equal(t, []string{"Gadget, large", "-1", "", "2", "false"}, rows[2][:5])

	var diags []core.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(rows[2][5]), &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, core.SeverityError, diags[0].Severity)
	assert.Equal(t, "positive", diags[0].Rule)

	assert.True(t, mock.IsClosed())
}

func TestCSVWriter_Options(t *testing.T) {
	t.Run("columns and no metadata", func(t *testing.T) {
		mock := newMockWriteCloser()
		writer, err := NewCSVWriter(mock, WithColumns("qty", "missing", "name"), WithMetadataColumns(false))
		require.NoError(t, err)
		require.NoError(t, writer.Write(context.Background(), sampleRecords(t)[0]))
		require.NoError(t, writer.Close())

		rows := readCSV(t, mock.String())
		assert.Equal(t, [][]string{{"qty", "name"}, {"3", "Widget"}}, rows)
	})

	t.Run("delimiter", func(t *testing.T) {
		mock := newMockWriteCloser()
		writer, err := NewCSVWriter(mock, WithComma(';'), WithMetadataColumns(false))
		require.NoError(t, err)
		require.NoError(t, writer.Write(context.Background(), sampleRecords(t)[0]))
		require.NoError(t, writer.Close())
		assert.Contains(t, mock.String(), "name;qty;country")
	})

	t.Run("no header", func(t *testing.T) {
		mock := newMockWriteCloser()
		writer, err := NewCSVWriter(mock, WithWriteHeader(false), WithMetadataColumns(false))
		require.NoError(t, err)
		require.NoError(t, writer.Write(context.Background(), sampleRecords(t)[0]))
		require.NoError(t, writer.Close())
		assert.Equal(t, "Widget,3,US\n", mock.String())
	})
}

func TestCSVWriter_BatchedWrites(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, WithCSVBatchSize(2))
	require.NoError(t, err)

	ctx := context.Background()
	recs := sampleRecords(t)
	require.NoError(t, writer.Write(ctx, recs[0]))
	assert.Equal(t, int64(0), writer.Stats().FlushCount)

	require.NoError(t, writer.Write(ctx, recs[1]))
	stats := writer.Stats()
	assert.Equal(t, int64(1), stats.FlushCount)
	assert.Equal(t, int64(2), stats.RecordsWritten)
	assert.Equal(t, int64(1), stats.InvalidWritten)
	assert.Equal(t, int64(1), stats.NullValueCounts["country"])

	require.NoError(t, writer.Close())
}

func TestCSVWriter_ErrorHandling(t *testing.T) {
	t.Run("write failure puts writer in error state", func(t *testing.T) {
		mock := newMockWriteCloser()
		mock.failWrite = true
		writer, err := NewCSVWriter(mock)
		require.NoError(t, err)

		ctx := context.Background()
		err = writer.Write(ctx, sampleRecords(t)[0])
		require.Error(t, err)
		var cerr *CSVWriterError
		assert.ErrorAs(t, err, &cerr)

		err = writer.Write(ctx, sampleRecords(t)[0])
		assert.ErrorContains(t, err, "error state")
	})

	t.Run("close failure", func(t *testing.T) {
		mock := newMockWriteCloser()
		mock.failClose = true
		writer, err := NewCSVWriter(mock)
		require.NoError(t, err)
		assert.Error(t, writer.Close())
	})

	t.Run("write after close", func(t *testing.T) {
		mock := newMockWriteCloser()
		writer, err := NewCSVWriter(mock)
		require.NoError(t, err)
		require.NoError(t, writer.Close())
		require.NoError(t, writer.Close())
		assert.Error(t, writer.Write(context.Background(), sampleRecords(t)[0]))
	})
}

func TestCSVWriter_ConcurrentSafety(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, WithMetadataColumns(false))
	require.NoError(t, err)

	recs := sampleRecords(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, writer.Write(context.Background(), recs[i%2]))
		}()
	}
	wg.Wait()
	require.NoError(t, writer.Close())

	rows := readCSV(t, mock.String())
	assert.Len(t, rows, 51)
}
