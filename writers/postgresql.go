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
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/aaronlmathis/goimport/core"
)

// PostgresWriterError wraps PostgreSQL-specific write errors with context about the operation.
type PostgresWriterError struct {
	Op  string // The operation being performed (e.g., "write", "connect")
	Err error  // The underlying error
}

// Error returns the error string for PostgresWriterError.
func (e *PostgresWriterError) Error() string {
	return fmt.Sprintf("postgres writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for PostgresWriterError.
func (e *PostgresWriterError) Unwrap() error {
	return e.Err
}

// PostgresWriterStats holds PostgreSQL write performance statistics.
type PostgresWriterStats struct {
	RecordsSeen      int64         // Records passed to Write
	RowsWritten      int64         // Diagnostic rows inserted
	BatchesWritten   int64         // Number of flushes that inserted rows
	TransactionCount int64         // Number of transactions committed
	LastWriteTime    time.Time     // Time of last write
	WriteDuration    time.Duration // Total time spent writing
	ConnectionTime   time.Duration // Time spent establishing connection
}

// PostgresWriterOptions configures the PostgreSQL writer.
type PostgresWriterOptions struct {
	DSN             string        // PostgreSQL connection string
	TableName       string        // Target table name
	BatchSize       int           // Number of diagnostic rows per flush
	CreateTable     bool          // Create table if not exists
	TransactionMode bool          // Wrap batches in transactions
	ConnMaxLifetime time.Duration // Max connection lifetime
	ConnMaxIdleTime time.Duration // Max idle connection time
	MaxOpenConns    int           // Max open connections
	MaxIdleConns    int           // Max idle connections
	QueryTimeout    time.Duration // Timeout for queries
	DB              *sql.DB       // Existing handle; DSN is ignored and the handle is not closed
}

// PostgresWriterOption represents a configuration function for PostgresWriterOptions.
type PostgresWriterOption func(*PostgresWriterOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DSN = dsn
	}
}

// WithTableName sets the target table name.
func WithTableName(tableName string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TableName = tableName
	}
}

// WithPostgresBatchSize sets the batch size for writes.
func WithPostgresBatchSize(size int) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCreateTable enables or disables table creation.
func WithCreateTable(create bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.CreateTable = create
	}
}

// WithTransactionMode enables or disables transaction wrapping for batches.
func WithTransactionMode(enabled bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TransactionMode = enabled
	}
}

// WithPostgresConnectionPool configures the connection pool.
func WithPostgresConnectionPool(maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.MaxOpenConns = maxOpen
		opts.MaxIdleConns = maxIdle
		opts.ConnMaxLifetime = maxLifetime
		opts.ConnMaxIdleTime = maxIdleTime
	}
}

// WithPostgresQueryTimeout sets the query timeout.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.QueryTimeout = timeout
	}
}

// WithPostgresDB writes through an existing database handle.
func WithPostgresDB(db *sql.DB) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DB = db
	}
}

// diagnosticRow is one pending INSERT.
type diagnosticRow struct {
	batchID  string
	row      int64
	severity string
	fields   []string
	message  string
	rule     string
	created  time.Time
}

// PostgresWriter implements core.ResultSink by storing every diagnostic as a
// row of a diagnostics table, tagged with the batch that produced it. Records
// without diagnostics write nothing.
type PostgresWriter struct {
	db          *sql.DB
	ownsDB      bool
	options     PostgresWriterOptions
	rowBuf      []diagnosticRow
	stats       PostgresWriterStats
	prepared    *sql.Stmt
	initialized bool
	errorState  bool
	closed      bool
	mu          sync.Mutex
}

// NewPostgresWriter creates a new PostgreSQL writer with the given options.
func NewPostgresWriter(opts ...PostgresWriterOption) (*PostgresWriter, error) {
	options := &PostgresWriterOptions{}
	for _, opt := range opts {
		opt(options)
	}
	options = options.withDefaults()

	if err := validateOptions(options); err != nil {
		return nil, &PostgresWriterError{Op: "validate", Err: err}
	}

	writer := &PostgresWriter{
		options: *options,
		rowBuf:  make([]diagnosticRow, 0, options.BatchSize),
	}

	if options.DB != nil {
		writer.db = options.DB
		return writer, nil
	}
	if err := writer.connect(); err != nil {
		return nil, &PostgresWriterError{Op: "connect", Err: err}
	}
	return writer, nil
}

// Stats returns a copy of the current write statistics.
func (w *PostgresWriter) Stats() PostgresWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Write implements the core.ResultSink interface. The batch id is taken from
// the context set by the importer.
func (w *PostgresWriter) Write(ctx context.Context, record *core.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.errorState {
		return &PostgresWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if w.closed {
		return &PostgresWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}

	if !w.initialized {
		if err := w.initializeUnsafe(ctx); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "initialize", Err: err}
		}
	}

	w.stats.RecordsSeen++
	batch := core.BatchFromContext(ctx)
	created := batch.Created()
	if created.IsZero() {
		created = time.Now().UTC()
	}
	for _, d := range record.Diagnostics() {
		w.rowBuf = append(w.rowBuf, diagnosticRow{
			batchID:  batch.ID().String(),
			row:      int64(record.Row()),
			severity: d.Severity.String(),
			fields:   append([]string{}, d.Fields...),
			message:  d.Message,
			rule:     d.Rule,
			created:  created,
		})
	}

	if len(w.rowBuf) >= w.options.BatchSize {
		if err := w.flushBufferUnsafe(ctx); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "flush_batch", Err: err}
		}
	}
	return nil
}

// Flush implements the core.ResultSink interface.
func (w *PostgresWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.rowBuf) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()

	if !w.initialized {
		if err := w.initializeUnsafe(ctx); err != nil {
			return &PostgresWriterError{Op: "initialize", Err: err}
		}
	}
	if err := w.flushBufferUnsafe(ctx); err != nil {
		return &PostgresWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close implements the core.ResultSink interface.
// Flushes and closes all resources.
func (w *PostgresWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.prepared != nil {
		w.prepared.Close()
	}
	if w.db != nil && w.ownsDB {
		return w.db.Close()
	}
	return nil
}

// withDefaults applies default values to PostgresWriterOptions.
func (opts *PostgresWriterOptions) withDefaults() *PostgresWriterOptions {
	if opts.TableName == "" {
		opts.TableName = "import_diagnostics"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.QueryTimeout == 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = 5 * time.Minute
	}
	if opts.ConnMaxIdleTime == 0 {
		opts.ConnMaxIdleTime = 1 * time.Minute
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	return opts
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// validateOptions validates the PostgreSQL writer options.
func validateOptions(opts *PostgresWriterOptions) error {
	if opts.DSN == "" && opts.DB == nil {
		return fmt.Errorf("dsn is required")
	}
	if !tableNamePattern.MatchString(opts.TableName) {
		return fmt.Errorf("invalid table name %q", opts.TableName)
	}
	return nil
}

// connect establishes the database connection and configures the connection pool.
func (w *PostgresWriter) connect() error {
	start := time.Now()

	db, err := sql.Open("postgres", w.options.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(w.options.MaxOpenConns)
	db.SetMaxIdleConns(w.options.MaxIdleConns)
	db.SetConnMaxLifetime(w.options.ConnMaxLifetime)
	db.SetConnMaxIdleTime(w.options.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	w.db = db
	w.ownsDB = true
	w.stats.ConnectionTime = time.Since(start)
	return nil
}

// initializeUnsafe performs one-time initialization (must hold mutex).
func (w *PostgresWriter) initializeUnsafe(ctx context.Context) error {
	if w.options.CreateTable {
		query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	batch_id UUID NOT NULL,
	row_number BIGINT NOT NULL,
	severity TEXT NOT NULL,
	fields TEXT[] NOT NULL,
	message TEXT NOT NULL,
	rule TEXT,
	created_at TIMESTAMPTZ NOT NULL
)`, w.options.TableName)
		if _, err := w.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (batch_id, row_number, severity, fields, message, rule, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		w.options.TableName)
	stmt, err := w.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	w.prepared = stmt
	w.initialized = true
	return nil
}

// flushBufferUnsafe writes buffered rows to PostgreSQL (must hold mutex).
func (w *PostgresWriter) flushBufferUnsafe(ctx context.Context) (err error) {
	if len(w.rowBuf) == 0 {
		return nil
	}

	start := time.Now()

	stmt := w.prepared
	var tx *sql.Tx
	if w.options.TransactionMode {
		tx, err = w.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if err != nil {
				tx.Rollback()
			}
		}()
		stmt = tx.StmtContext(ctx, w.prepared)
		defer stmt.Close()
	}

	for _, r := range w.rowBuf {
		var rule any
		if r.rule != "" {
			rule = r.rule
		}
		if _, err = stmt.ExecContext(ctx, r.batchID, r.row, r.severity, pq.Array(r.fields), r.message, rule, r.created); err != nil {
			return fmt.Errorf("failed to insert diagnostic for row %d: %w", r.row, err)
		}
	}

	if tx != nil {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		w.stats.TransactionCount++
	}

	w.stats.RowsWritten += int64(len(w.rowBuf))
	w.stats.BatchesWritten++
	w.stats.LastWriteTime = time.Now()
	w.stats.WriteDuration += time.Since(start)
	w.rowBuf = w.rowBuf[:0]
	return nil
}

// Table returns the table diagnostics are written to.
func (w *PostgresWriter) Table() string {
	return w.options.TableName
}
