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
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aaronlmathis/goimport/core"
)

func openDiagnosticsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE diagnostics (
		batch_id TEXT NOT NULL,
		row_number INTEGER NOT NULL,
		severity TEXT NOT NULL,
		fields TEXT NOT NULL,
		message TEXT NOT NULL,
		rule TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	require.NoError(t, err)
	return db
}

func TestPostgresWriter_WritesOneRowPerDiagnostic(t *testing.T) {
	db := openDiagnosticsDB(t)
	writer, err := NewPostgresWriter(WithPostgresDB(db), WithTableName("diagnostics"), WithTransactionMode(true))
	require.NoError(t, err)

	batch := core.NewBatchContext(nil)
	ctx := core.ContextWithBatch(context.Background(), batch)

	recs := sampleRecords(t)
	recs[1].AddWarning("Check quantity", "qty")
	for _, rec := range recs {
		require.NoError(t, writer.Write(ctx, rec))
	}
	require.NoError(t, writer.Close())

	stats := writer.Stats()
	assert.Equal(t, int64(2), stats.RecordsSeen)
	assert.Equal(t, int64(3), stats.RowsWritten)
	assert.Equal(t, int64(1), stats.TransactionCount)

	rows, err := db.Query(`SELECT batch_id, row_number, severity, fields, message, COALESCE(rule, '') FROM diagnostics ORDER BY row_number, severity`)
	require.NoError(t, err)
	defer rows.Close()

	type stored struct {
		batch, severity, fields, message, rule string
		row                                    int
	}
	var got []stored
	for rows.Next() {
		var s stored
		require.NoError(t, rows.Scan(&s.batch, &s.row, &s.severity, &s.fields, &s.message, &s.rule))
		got = append(got, s)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 3)

	for _, s := range got {
		assert.Equal(t, batch.ID().String(), s.batch)
	}
	assert.Equal(t, 1, got[0].row)
	assert.Equal(t, "info", got[0].severity)
	assert.Equal(t, "error", got[1].severity)
	assert.Equal(t, "positive", got[1].rule)
	assert.Contains(t, got[1].fields, "qty")
	assert.Equal(t, "warn", got[2].severity)
}

func TestPostgresWriter_Validation(t *testing.T) {
	_, err := NewPostgresWriter()
	var perr *PostgresWriterError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "validate", perr.Op)

	_, err = NewPostgresWriter(WithPostgresDSN("postgres://localhost/db"), WithTableName("bad name; drop"))
	assert.ErrorContains(t, err, "invalid table name")
}

func TestPostgresWriter_RecordsWithoutDiagnostics(t *testing.T) {
	db := openDiagnosticsDB(t)
	writer, err := NewPostgresWriter(WithPostgresDB(db), WithTableName("diagnostics"))
	require.NoError(t, err)

	rec, err := core.NewRecord(testSchema(t), 7, nil)
	require.NoError(t, err)
	require.NoError(t, writer.Write(context.Background(), rec))
	require.NoError(t, writer.Close())

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM diagnostics`).Scan(&n))
	assert.Equal(t, 0, n)
	assert.Equal(t, "diagnostics", writer.Table())
}
