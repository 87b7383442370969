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
	"fmt"
	"runtime"
	"time"

	"github.com/aaronlmathis/goimport/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Summary counts the outcome of one batch.
type Summary struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Invalid  int `json:"invalid"`
	Infos    int `json:"infos"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// Add folds o into s.
func (s *Summary) Add(o Summary) {
	s.Total += o.Total
	s.Valid += o.Valid
	s.Invalid += o.Invalid
	s.Infos += o.Infos
	s.Warnings += o.Warnings
	s.Errors += o.Errors
}

func (s *Summary) count(rec *core.Record) {
	s.Total++
	if rec.Valid() {
		s.Valid++
	} else {
		s.Invalid++
	}
	s.Infos += rec.Count(core.SeverityInfo)
	s.Warnings += rec.Count(core.SeverityWarn)
	s.Errors += rec.Count(core.SeverityError)
}

// BatchResult holds the processed records of a batch in input order.
type BatchResult struct {
	BatchID  uuid.UUID
	Batch    *core.BatchContext
	Records  []*core.Record
	Summary  Summary
	Duration time.Duration
}

// BatchRunner applies a Pipeline to every record of a batch after computing
// the shared BatchContext once.
type BatchRunner struct {
	pipeline *Pipeline
	workers  int
	loaders  []core.BatchLoader
	logger   zerolog.Logger
}

// BatchRunnerOption configures a BatchRunner
type BatchRunnerOption func(*BatchRunner)

// WithWorkers sets the maximum number of records processed concurrently
func WithWorkers(workers int) BatchRunnerOption {
	return func(br *BatchRunner) {
		if workers > 0 {
			br.workers = workers
		}
	}
}

// WithBatchLoader registers loaders for the batch pre-pass
func WithBatchLoader(loaders ...core.BatchLoader) BatchRunnerOption {
	return func(br *BatchRunner) {
		br.loaders = append(br.loaders, loaders...)
	}
}

// WithRunnerLogger sets the logger handed to rules through the context
func WithRunnerLogger(logger zerolog.Logger) BatchRunnerOption {
	return func(br *BatchRunner) {
		br.logger = logger
	}
}

// NewBatchRunner creates a runner for pipeline.
func NewBatchRunner(pipeline *Pipeline, opts ...BatchRunnerOption) *BatchRunner {
	br := &BatchRunner{
		pipeline: pipeline,
		workers:  runtime.NumCPU(), // Default
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(br)
	}
	return br
}

// Pipeline returns the pipeline the runner applies.
func (br *BatchRunner) Pipeline() *Pipeline { return br.pipeline }

// Prepare runs every batch loader once, concurrently, and returns the
// resulting context. Any loader failure is a *core.BatchError.
func (br *BatchRunner) Prepare(ctx context.Context) (*core.BatchContext, error) {
	seen := make(map[string]bool, len(br.loaders))
	for _, l := range br.loaders {
		if seen[l.Key()] {
			return nil, &core.BatchError{Op: "prepare", Loader: l.Key(), Err: fmt.Errorf("duplicate loader key")}
		}
		seen[l.Key()] = true
	}

	results := make([]any, len(br.loaders))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range br.loaders {
		g.Go(func() error {
			start := time.Now()
			v, err := l.Load(gctx)
			if err != nil {
				return &core.BatchError{Op: "load", Loader: l.Key(), Err: err}
			}
			results[i] = v
			br.logger.Debug().Str("loader", l.Key()).Dur("took", time.Since(start)).Msg("batch loader finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	values := make(map[string]any, len(br.loaders))
	for i, l := range br.loaders {
		values[l.Key()] = results[i]
	}
	return core.NewBatchContext(values), nil
}

// Run prepares the batch context and processes records with a bounded worker
// pool. Records are mutated in place and returned in input order. A batch
// error or a cancelled context returns no records.
func (br *BatchRunner) Run(ctx context.Context, records []*core.Record) (*BatchResult, error) {
	start := time.Now()

	batch, err := br.Prepare(ctx)
	if err != nil {
		br.logger.Error().Err(err).Int("records", len(records)).Msg("batch aborted")
		return nil, err
	}

	logger := br.logger.With().Str("batch", batch.ID().String()).Logger()
	ctx = core.ContextWithBatch(logger.WithContext(ctx), batch)

	if err := br.process(ctx, batch, records); err != nil {
		return nil, err
	}

	result := &BatchResult{
		BatchID:  batch.ID(),
		Batch:    batch,
		Records:  records,
		Duration: time.Since(start),
	}
	for _, rec := range records {
		result.Summary.count(rec)
	}

	logger.Info().
		Int("total", result.Summary.Total).
		Int("invalid", result.Summary.Invalid).
		Int("warnings", result.Summary.Warnings).
		Dur("took", result.Duration).
		Msg("batch processed")
	return result, nil
}

// RunWith processes records against an already prepared batch context.
func (br *BatchRunner) RunWith(ctx context.Context, batch *core.BatchContext, records []*core.Record) error {
	return br.process(ctx, batch, records)
}

func (br *BatchRunner) process(ctx context.Context, batch *core.BatchContext, records []*core.Record) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(br.workers)
	for _, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			br.pipeline.Process(gctx, batch, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
