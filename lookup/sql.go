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

package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLLoaderError wraps structured error information for the SQL loader.
type SQLLoaderError struct {
	Op  string
	Err error
}

func (e *SQLLoaderError) Error() string {
	return fmt.Sprintf("sql loader %s: %v", e.Op, e.Err)
}

func (e *SQLLoaderError) Unwrap() error {
	return e.Err
}

// SQLLoaderOptions configures the SQL table loader.
type SQLLoaderOptions struct {
	Driver          string // "postgres", "sqlite" or "mysql"
	DSN             string
	Query           string // must select exactly (key, value)
	Args            []any
	QueryTimeout    time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	DB              *sql.DB // used instead of opening Driver/DSN
	Logger          zerolog.Logger
}

// LoaderOptionSQL allows functional customization of SQLTableLoader.
type LoaderOptionSQL func(*SQLLoaderOptions)

func WithSQLDriver(driver, dsn string) LoaderOptionSQL {
	return func(o *SQLLoaderOptions) {
		o.Driver = driver
		o.DSN = dsn
	}
}

func WithSQLQuery(query string, args ...any) LoaderOptionSQL {
	return func(o *SQLLoaderOptions) {
		o.Query = query
		o.Args = args
	}
}

func WithSQLTimeout(timeout time.Duration) LoaderOptionSQL {
	return func(o *SQLLoaderOptions) { o.QueryTimeout = timeout }
}

// WithSQLDB reuses an open database handle. The loader does not close it.
func WithSQLDB(db *sql.DB) LoaderOptionSQL {
	return func(o *SQLLoaderOptions) { o.DB = db }
}

func WithSQLLogger(logger zerolog.Logger) LoaderOptionSQL {
	return func(o *SQLLoaderOptions) { o.Logger = logger }
}

// SQLTableLoader implements core.BatchLoader by running one query that
// returns (key, value) rows and grouping them into a *Table.
type SQLTableLoader struct {
	key  string
	opts SQLLoaderOptions
}

// NewSQLTableLoader validates options and creates the loader. The database
// is opened lazily on each Load.
func NewSQLTableLoader(key string, options ...LoaderOptionSQL) (*SQLTableLoader, error) {
	opts := SQLLoaderOptions{
		Driver:          "postgres",
		QueryTimeout:    30 * time.Second,
		MaxOpenConns:    2,
		ConnMaxLifetime: 10 * time.Minute,
		Logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		opt(&opts)
	}

	if key == "" {
		return nil, &SQLLoaderError{Op: "validate", Err: fmt.Errorf("key is required")}
	}
	if opts.Query == "" {
		return nil, &SQLLoaderError{Op: "validate", Err: fmt.Errorf("query is required")}
	}
	if opts.DB == nil {
		switch opts.Driver {
		case "postgres", "sqlite", "mysql":
		default:
			return nil, &SQLLoaderError{Op: "validate", Err: fmt.Errorf("unsupported driver %q", opts.Driver)}
		}
		if opts.DSN == "" {
			return nil, &SQLLoaderError{Op: "validate", Err: fmt.Errorf("dsn is required")}
		}
	}
	return &SQLTableLoader{key: key, opts: opts}, nil
}

// Key implements core.BatchLoader.
func (l *SQLTableLoader) Key() string { return l.key }

// Load implements core.BatchLoader.
func (l *SQLTableLoader) Load(ctx context.Context) (any, error) {
	db := l.opts.DB
	if db == nil {
		opened, err := sql.Open(l.opts.Driver, l.opts.DSN)
		if err != nil {
			return nil, &SQLLoaderError{Op: "open", Err: err}
		}
		defer opened.Close()
		opened.SetMaxOpenConns(l.opts.MaxOpenConns)
		opened.SetConnMaxLifetime(l.opts.ConnMaxLifetime)
		db = opened
	}

	if l.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.QueryTimeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, l.opts.Query, l.opts.Args...)
	if err != nil {
		return nil, &SQLLoaderError{Op: "query", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &SQLLoaderError{Op: "columns", Err: err}
	}
	if len(cols) != 2 {
		return nil, &SQLLoaderError{Op: "columns", Err: fmt.Errorf("query must return 2 columns, got %d", len(cols))}
	}

	var pairs [][2]string
	for rows.Next() {
		var k, v any
		if err := rows.Scan(&k, &v); err != nil {
			return nil, &SQLLoaderError{Op: "scan", Err: err}
		}
		if k == nil || v == nil {
			continue
		}
		pairs = append(pairs, [2]string{scalarString(k), scalarString(v)})
	}
	if err := rows.Err(); err != nil {
		return nil, &SQLLoaderError{Op: "rows", Err: err}
	}

	table := TableFromPairs(pairs)
	l.opts.Logger.Debug().Str("loader", l.key).Str("driver", l.opts.Driver).Int("keys", table.Len()).Msg("sql lookup loaded")
	return table, nil
}

func scalarString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
