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
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aaronlmathis/goimport/config"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// overrides of the configuration file
	schemaPath string
	inputPath  string
	outputs    []string
	batchSize  int
	workers    int
	strategy   string
	groupBy    []string

	inspectLimit int
)

var rootCmd = &cobra.Command{
	Use:           "goimport",
	Short:         "Validate and transform tabular data during import",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Import a file and write the results with their diagnostics",
	Long: `The run command reads the input, applies the schema's field and record
rules batch by batch and writes every record, with its diagnostics, to the
configured outputs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		res, err := runImport(cmd.Context(), cfg, cmd.OutOrStdout())
		if res != nil {
			printReport(cmd.OutOrStdout(), res, cfg.Report.Top)
		}
		return err
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Process the first rows of the input and dump the records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return inspect(cmd.Context(), cfg, inspectLimit, cmd.OutOrStdout())
	},
}

var checkSchemaCmd = &cobra.Command{
	Use:   "check-schema [file]",
	Short: "Load a schema file and list its fields and rules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := schemaPath
		if len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path = cfg.Schema
		}
		return checkSchema(path, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default ./goimport.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", "", "schema file")

	for _, c := range []*cobra.Command{runCmd, inspectCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "input file or s3://bucket/prefix")
		c.Flags().IntVar(&batchSize, "batch-size", 0, "records per batch")
		c.Flags().IntVar(&workers, "workers", 0, "records processed concurrently")
	}
	runCmd.Flags().StringArrayVarP(&outputs, "output", "o", nil, "output as path[=filter], filter is all, valid, invalid, warnings or diagnostics")
	runCmd.Flags().StringVar(&strategy, "on-error", "", "row error strategy: fail_fast, skip or collect")
	runCmd.Flags().StringSliceVar(&groupBy, "group-by", nil, "fields to count records by in the report, _valid groups by validity")
	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 10, "number of rows to process")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(checkSchemaCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("goimport failed")
	}
	return err
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("schema") {
		cfg.Schema = schemaPath
	}
	if flags.Changed("input") {
		cfg.Input.Path = inputPath
	}
	if flags.Changed("batch-size") {
		cfg.Batch.Size = batchSize
	}
	if flags.Changed("workers") {
		cfg.Batch.Workers = workers
	}
	if flags.Changed("on-error") {
		cfg.Errors.Strategy = strategy
	}
	if flags.Changed("group-by") {
		cfg.Report.GroupBy = groupBy
	}
	if flags.Changed("output") {
		cfg.Outputs = cfg.Outputs[:0]
		for _, o := range outputs {
			cfg.Outputs = append(cfg.Outputs, parseOutputFlag(o))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setupLogging(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	return cfg, nil
}

// setupLogging configures structured logging
func setupLogging(level, format string, out io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	})
}
