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
	"context"
	"fmt"
)

// This file contains error handling interfaces, strategies, and error types.

// ErrorHandler defines how source and decode errors are handled during an
// import. Rule failures never reach it; they become Diagnostics.
type ErrorHandler interface {
	// HandleError processes an error for the given raw row.
	// Returning a non-nil error will stop the import; returning nil will continue.
	HandleError(ctx context.Context, row int, raw Row, err error) error
}

// ErrorStrategy defines how to handle row-level infrastructure errors.
type ErrorStrategy int

const (
	// FailFast stops processing on the first error encountered.
	FailFast ErrorStrategy = iota
	// SkipErrors continues processing, skipping failed rows.
	SkipErrors
	// CollectErrors continues processing, collecting all errors for later inspection.
	CollectErrors
)

// String returns the configuration name of the strategy.
func (s ErrorStrategy) String() string {
	switch s {
	case FailFast:
		return "fail_fast"
	case SkipErrors:
		return "skip"
	case CollectErrors:
		return "collect"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseErrorStrategy resolves a configuration name.
func ParseErrorStrategy(name string) (ErrorStrategy, error) {
	switch name {
	case "", "fail_fast", "failfast":
		return FailFast, nil
	case "skip", "skip_errors":
		return SkipErrors, nil
	case "collect", "collect_errors":
		return CollectErrors, nil
	default:
		return FailFast, fmt.Errorf("unknown error strategy %q", name)
	}
}

// ErrorHandlerFunc is a function adapter for the ErrorHandler interface.
// Allows ordinary functions to be used as error handlers.
type ErrorHandlerFunc func(ctx context.Context, row int, raw Row, err error) error

// HandleError implements the ErrorHandler interface for ErrorHandlerFunc.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, row int, raw Row, err error) error {
	return f(ctx, row, raw, err)
}

// BatchError is a fatal batch-level failure. No record of the batch is
// returned when it occurs.
type BatchError struct {
	Op     string
	Loader string
	Err    error
}

func (e *BatchError) Error() string {
	if e.Loader != "" {
		return fmt.Sprintf("batch %s (loader %s): %v", e.Op, e.Loader, e.Err)
	}
	return fmt.Sprintf("batch %s: %v", e.Op, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// UnknownFieldError reports a key that is not part of the schema.
type UnknownFieldError struct {
	Field string
	Row   int
}

func (e *UnknownFieldError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: unknown field %q", e.Row, e.Field)
	}
	return fmt.Sprintf("unknown field %q", e.Field)
}
