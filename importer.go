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
	"io"
	"time"

	"github.com/aaronlmathis/goimport/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Report summarizes a whole import.
type Report struct {
	Batches  []uuid.UUID
	Rows     int
	Skipped  int
	Summary  Summary
	Errors   []error
	Duration time.Duration
}

type route struct {
	sink    core.ResultSink
	filters []core.Filter
}

// Importer streams rows from a DataSource, decodes them against the runner's
// schema, processes them batch by batch and routes the results to sinks.
type Importer struct {
	source       core.DataSource
	runner       *BatchRunner
	routes       []route
	batchSize    int
	strategy     core.ErrorStrategy
	errorHandler core.ErrorHandler
	logger       zerolog.Logger
}

// ImporterOption configures an Importer
type ImporterOption func(*Importer)

// WithSink routes every record accepted by all filters to sink.
func WithSink(sink core.ResultSink, filters ...core.Filter) ImporterOption {
	return func(im *Importer) {
		im.routes = append(im.routes, route{sink: sink, filters: filters})
	}
}

// WithBatchSize sets how many records are processed per batch.
func WithBatchSize(size int) ImporterOption {
	return func(im *Importer) {
		if size > 0 {
			im.batchSize = size
		}
	}
}

// WithErrorStrategy sets how row-level source and sink errors are handled.
func WithErrorStrategy(strategy core.ErrorStrategy) ImporterOption {
	return func(im *Importer) {
		im.strategy = strategy
	}
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler core.ErrorHandler) ImporterOption {
	return func(im *Importer) {
		im.errorHandler = handler
	}
}

// WithImporterLogger sets the importer's logger.
func WithImporterLogger(logger zerolog.Logger) ImporterOption {
	return func(im *Importer) {
		im.logger = logger
	}
}

// NewImporter creates an importer reading from source and processing with
// runner.
func NewImporter(source core.DataSource, runner *BatchRunner, opts ...ImporterOption) (*Importer, error) {
	if source == nil {
		return nil, fmt.Errorf("importer requires a data source")
	}
	if runner == nil || runner.Pipeline() == nil {
		return nil, fmt.Errorf("importer requires a batch runner")
	}
	im := &Importer{
		source:    source,
		runner:    runner,
		batchSize: 1000,
		strategy:  core.FailFast,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im, nil
}

// Execute runs the import to completion. The source and all sinks are closed
// when it returns. A batch error stops the import and is returned.
func (im *Importer) Execute(ctx context.Context) (report *Report, err error) {
	start := time.Now()
	report = &Report{}

	defer func() {
		if cerr := im.source.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close source: %w", cerr)
		}
		for _, r := range im.routes {
			if ferr := r.sink.Flush(); ferr != nil && err == nil {
				err = fmt.Errorf("flush sink: %w", ferr)
			}
			if cerr := r.sink.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close sink: %w", cerr)
			}
		}
		report.Duration = time.Since(start)
	}()

	schema := im.runner.Pipeline().Schema()
	pending := make([]*core.Record, 0, im.batchSize)
	row := 0

	for {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		raw, rerr := im.source.Read(ctx)
		if errors.Is(rerr, io.EOF) {
			break
		}
		row++
		report.Rows++
		if rerr != nil {
			if herr := im.handleError(ctx, report, row, raw, rerr); herr != nil {
				return report, herr
			}
			continue
		}
		if len(raw) == 0 {
			report.Skipped++
			continue
		}

		rec, derr := core.Decode(schema, row, raw)
		if derr != nil {
			if herr := im.handleError(ctx, report, row, raw, derr); herr != nil {
				return report, herr
			}
			continue
		}

		pending = append(pending, rec)
		if len(pending) >= im.batchSize {
			if err := im.flushBatch(ctx, report, pending); err != nil {
				return report, err
			}
			pending = make([]*core.Record, 0, im.batchSize)
		}
	}

	if len(pending) > 0 {
		if err := im.flushBatch(ctx, report, pending); err != nil {
			return report, err
		}
	}

	im.logger.Info().
		Int("rows", report.Rows).
		Int("batches", len(report.Batches)).
		Int("invalid", report.Summary.Invalid).
		Int("skipped", report.Skipped).
		Msg("import finished")
	return report, nil
}

func (im *Importer) flushBatch(ctx context.Context, report *Report, records []*core.Record) error {
	result, err := im.runner.Run(ctx, records)
	if err != nil {
		return err
	}
	report.Batches = append(report.Batches, result.BatchID)
	report.Summary.Add(result.Summary)

	ctx = core.ContextWithBatch(ctx, result.Batch)
	for _, rec := range result.Records {
		for _, r := range im.routes {
			include, ferr := applyFilters(ctx, r.filters, rec)
			if ferr == nil && include {
				ferr = r.sink.Write(ctx, rec)
			}
			if ferr != nil {
				if herr := im.handleError(ctx, report, rec.Row(), nil, ferr); herr != nil {
					return herr
				}
			}
		}
	}
	return nil
}

// applyFilters reports whether every filter accepts record.
func applyFilters(ctx context.Context, filters []core.Filter, record *core.Record) (bool, error) {
	for _, filter := range filters {
		include, err := filter.ShouldInclude(ctx, record)
		if err != nil {
			return false, err
		}
		if !include {
			return false, nil
		}
	}
	return true, nil
}

// handleError handles errors according to the importer's error strategy and handler.
// Returns an error if processing should stop, or nil to continue.
func (im *Importer) handleError(ctx context.Context, report *Report, row int, raw core.Row, err error) error {
	im.logger.Warn().Int("row", row).Err(err).Str("strategy", im.strategy.String()).Msg("row failed")
	switch im.strategy {
	case core.FailFast:
		return fmt.Errorf("row %d: %w", row, err)
	case core.SkipErrors:
		report.Skipped++
	case core.CollectErrors:
		report.Skipped++
		report.Errors = append(report.Errors, fmt.Errorf("row %d: %w", row, err))
	default:
		return err
	}
	if im.errorHandler != nil {
		return im.errorHandler.HandleError(ctx, row, raw, err)
	}
	return nil
}
