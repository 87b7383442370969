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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aaronlmathis/goimport"
	"github.com/aaronlmathis/goimport/aggregate"
	"github.com/aaronlmathis/goimport/config"
	"github.com/aaronlmathis/goimport/core"
	"github.com/aaronlmathis/goimport/filter"
	"github.com/aaronlmathis/goimport/readers"
	"github.com/aaronlmathis/goimport/rules"
	"github.com/aaronlmathis/goimport/schema"
	"github.com/aaronlmathis/goimport/writers"
)

// parseOutputFlag splits "path=filter".
func parseOutputFlag(value string) config.OutputConfig {
	path, filterName, _ := strings.Cut(value, "=")
	return config.OutputConfig{Path: path, Filter: filterName}
}

// buildRunner loads the schema file and wires the batch loaders.
func buildRunner(cfg *config.Config, logger zerolog.Logger) (*goimport.BatchRunner, error) {
	if cfg.Schema == "" {
		return nil, errors.New("no schema file configured")
	}
	def, err := schema.LoadFile(cfg.Schema, rules.DefaultRegistry())
	if err != nil {
		return nil, err
	}
	pipeline, err := def.Pipeline().Build()
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	loaders, err := cfg.Loaders(logger)
	if err != nil {
		return nil, err
	}

	opts := []goimport.BatchRunnerOption{
		goimport.WithBatchLoader(loaders...),
		goimport.WithRunnerLogger(logger),
	}
	if cfg.Batch.Workers > 0 {
		opts = append(opts, goimport.WithWorkers(cfg.Batch.Workers))
	}
	return goimport.NewBatchRunner(pipeline, opts...), nil
}

func openSource(ctx context.Context, cfg *config.Config) (core.DataSource, error) {
	if cfg.Input.Path == "" {
		return nil, errors.New("no input configured")
	}
	var opts []readers.OpenOption
	if cfg.Input.Format != "" {
		opts = append(opts, readers.WithFormat(cfg.Input.Format))
	}
	if cfg.Input.Sheet != "" {
		opts = append(opts, readers.WithSheet(cfg.Input.Sheet))
	}
	if c := cfg.Comma(); c != 0 {
		opts = append(opts, readers.WithComma(c))
	}

	s3 := cfg.Input.S3
	var s3opts []readers.ReaderOptionS3
	if s3.Region != "" {
		s3opts = append(s3opts, readers.WithS3Region(s3.Region))
	}
	if s3.Profile != "" {
		s3opts = append(s3opts, readers.WithS3Profile(s3.Profile))
	}
	if s3.Endpoint != "" {
		s3opts = append(s3opts, readers.WithS3Endpoint(s3.Endpoint))
	}
	if s3.PathStyle {
		s3opts = append(s3opts, readers.WithS3PathStyle(true))
	}
	if len(s3opts) > 0 {
		opts = append(opts, readers.WithS3Options(s3opts...))
	}
	return readers.Open(ctx, cfg.Input.Path, opts...)
}

// openSinks opens every configured output. On failure the sinks opened so
// far are closed.
func openSinks(cfg *config.Config, sch *core.Schema) ([]goimport.ImporterOption, error) {
	var (
		opts   []goimport.ImporterOption
		opened []core.ResultSink
	)
	fail := func(err error) ([]goimport.ImporterOption, error) {
		for _, s := range opened {
			s.Close()
		}
		return nil, err
	}

	for i, o := range cfg.Outputs {
		f, ok := filter.ByName(o.Filter)
		if !ok {
			return fail(fmt.Errorf("outputs[%d]: unknown filter %q", i, o.Filter))
		}
		sink, err := writers.Open(o.Path, o.Format, sch)
		if err != nil {
			return fail(fmt.Errorf("outputs[%d]: %w", i, err))
		}
		opened = append(opened, sink)
		opts = append(opts, goimport.WithSink(sink, f))
	}
	return opts, nil
}

// runResult is a finished run: the importer's report plus the aggregates
// collected alongside the configured outputs.
type runResult struct {
	*goimport.Report
	tally  *aggregate.DiagnosticTally
	groups *aggregate.GroupBy
}

// runImport performs a complete import as configured.
func runImport(ctx context.Context, cfg *config.Config, out io.Writer) (*runResult, error) {
	logger := log.Logger

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}

	source, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts, err := openSinks(cfg, runner.Pipeline().Schema())
	if err != nil {
		source.Close()
		return nil, err
	}
	if len(opts) == 0 {
		logger.Warn().Msg("no outputs configured, results are only summarized")
	}

	res := &runResult{tally: aggregate.NewDiagnosticTally(core.SeverityWarn)}
	opts = append(opts, goimport.WithSink(res.tally))
	if len(cfg.Report.GroupBy) > 0 {
		res.groups = aggregate.NewGroupBy(cfg.Report.GroupBy...).Count("records").Invalid("invalid")
		opts = append(opts, goimport.WithSink(res.groups))
	}

	opts = append(opts,
		goimport.WithBatchSize(cfg.Batch.Size),
		goimport.WithErrorStrategy(strategy),
		goimport.WithImporterLogger(logger),
	)
	im, err := goimport.NewImporter(source, runner, opts...)
	if err != nil {
		source.Close()
		return nil, err
	}
	res.Report, err = im.Execute(ctx)
	if res.Report == nil {
		return nil, err
	}
	return res, err
}

func printReport(out io.Writer, res *runResult, top int) {
	report := res.Report
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "rows\t%d\n", report.Rows)
	fmt.Fprintf(tw, "batches\t%d\n", len(report.Batches))
	fmt.Fprintf(tw, "records\t%d\n", report.Summary.Total)
	fmt.Fprintf(tw, "valid\t%d\n", report.Summary.Valid)
	fmt.Fprintf(tw, "invalid\t%d\n", report.Summary.Invalid)
	fmt.Fprintf(tw, "skipped\t%d\n", report.Skipped)
	fmt.Fprintf(tw, "diagnostics\t%d info, %d warn, %d error\n",
		report.Summary.Infos, report.Summary.Warnings, report.Summary.Errors)
	fmt.Fprintf(tw, "duration\t%s\n", report.Duration)
	tw.Flush()

	for _, err := range report.Errors {
		fmt.Fprintf(out, "  %v\n", err)
	}

	if res.tally != nil && top > 0 {
		if counts := res.tally.Top(top); len(counts) > 0 {
			fmt.Fprintln(out)
			tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "COUNT\tSEVERITY\tFIELDS\tMESSAGE")
			for _, c := range counts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.Count, c.Severity, c.Fields, c.Message)
			}
			tw.Flush()
		}
	}

	if res.groups != nil {
		fields := res.groups.Fields()
		outputs := res.groups.Outputs()
		fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(append(fields, outputs...), "\t")))
		for _, g := range res.groups.Results() {
			cols := make([]string, 0, len(fields)+len(outputs))
			for _, f := range fields {
				cols = append(cols, g.Keys[f])
			}
			for _, o := range outputs {
				cols = append(cols, fmt.Sprint(g.Values[o]))
			}
			fmt.Fprintln(tw, strings.Join(cols, "\t"))
		}
		tw.Flush()
	}
}

// recordView is the dump shape of a processed record.
type recordView struct {
	Row         int
	Valid       bool
	Values      map[string]any
	Diagnostics []string
}

// inspect processes the first limit rows as one batch and dumps them.
func inspect(ctx context.Context, cfg *config.Config, limit int, out io.Writer) error {
	runner, err := buildRunner(cfg, log.Logger)
	if err != nil {
		return err
	}
	source, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	sch := runner.Pipeline().Schema()
	var records []*core.Record
	for row := 1; limit <= 0 || row <= limit; row++ {
		raw, err := source.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(out, "row %d: %v\n", row, err)
			continue
		}
		rec, err := core.Decode(sch, row, raw)
		if err != nil {
			fmt.Fprintf(out, "row %d: %v\n", row, err)
			continue
		}
		records = append(records, rec)
	}

	result, err := runner.Run(ctx, records)
	if err != nil {
		return err
	}

	dumper := spew.ConfigState{
		Indent:                  "  ",
		SortKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	for _, rec := range result.Records {
		view := recordView{
			Row:    rec.Row(),
			Valid:  rec.Valid(),
			Values: make(map[string]any, sch.Len()),
		}
		for key, v := range rec.Values() {
			view.Values[key] = v.Interface()
		}
		for _, d := range rec.Diagnostics() {
			view.Diagnostics = append(view.Diagnostics, d.String())
		}
		dumper.Fdump(out, view)
	}
	return nil
}

func checkSchema(path string, out io.Writer) error {
	if path == "" {
		return errors.New("no schema file given")
	}
	def, err := schema.LoadFile(path, rules.DefaultRegistry())
	if err != nil {
		return err
	}
	pipeline, err := def.Pipeline().Build()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "schema %q: %d fields, %d field rules, %d record rules\n",
		def.Name, def.Schema.Len(), len(def.FieldRules), len(def.RecordRules))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tTYPE\tREQUIRED")
	for _, f := range def.Schema.Fields() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", f.Key, f.Label, f.Kind, f.Required)
	}
	tw.Flush()
	for _, name := range pipeline.RuleNames() {
		fmt.Fprintf(out, "record rule: %s\n", name)
	}
	return nil
}
