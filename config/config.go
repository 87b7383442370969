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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/aaronlmathis/goimport/core"
	"github.com/aaronlmathis/goimport/lookup"
)

// Package config loads the settings of an import run from a YAML file,
// GOIMPORT_* environment variables and built-in defaults, in increasing order
// of precedence: defaults < file < environment.

// EnvPrefix is the prefix of environment overrides, e.g. GOIMPORT_BATCH_SIZE.
const EnvPrefix = "GOIMPORT"

// Config is the complete configuration of an import run.
type Config struct {
	Log     LogConfig      `mapstructure:"log"`
	Schema  string         `mapstructure:"schema"`
	Input   InputConfig    `mapstructure:"input"`
	Outputs []OutputConfig `mapstructure:"outputs"`
	Batch   BatchConfig    `mapstructure:"batch"`
	Errors  ErrorsConfig   `mapstructure:"errors"`
	Lookups []LookupConfig `mapstructure:"lookups"`
	Report  ReportConfig   `mapstructure:"report"`
}

// LogConfig selects the log level and output format ("console" or "json").
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InputConfig locates the rows to import.
type InputConfig struct {
	Path      string   `mapstructure:"path"`
	Format    string   `mapstructure:"format"`
	Sheet     string   `mapstructure:"sheet"`
	Delimiter string   `mapstructure:"delimiter"`
	S3        S3Config `mapstructure:"s3"`
}

// S3Config configures access to s3:// inputs.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Profile   string `mapstructure:"profile"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// OutputConfig describes one sink and the records routed to it.
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
	Filter string `mapstructure:"filter"`
}

// BatchConfig sizes batches and the record worker pool.
type BatchConfig struct {
	Size    int `mapstructure:"size"`
	Workers int `mapstructure:"workers"`
}

// ReportConfig shapes the summary printed after a run. Top limits the list
// of most frequent diagnostics; GroupBy adds per-group record counts.
type ReportConfig struct {
	Top     int      `mapstructure:"top"`
	GroupBy []string `mapstructure:"group_by"`
}

// ErrorsConfig selects how row-level read, decode and write errors are handled.
type ErrorsConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// LookupConfig declares one batch loader. Type is "http", "sql", "mongo" or
// "static".
type LookupConfig struct {
	Key     string        `mapstructure:"key"`
	Type    string        `mapstructure:"type"`
	Timeout time.Duration `mapstructure:"timeout"`

	// http
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	BearerToken string            `mapstructure:"bearer_token"`
	DataPath    string            `mapstructure:"data_path"`
	Retries     int               `mapstructure:"retries"`

	// sql
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Query  string `mapstructure:"query"`

	// mongo
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	KeyField   string `mapstructure:"key_field"`
	ValueField string `mapstructure:"value_field"`

	// static; a list rather than a map because viper lowercases map keys
	Entries []TableEntry `mapstructure:"entries"`
}

// TableEntry is one key of a static lookup table.
type TableEntry struct {
	Key    string   `mapstructure:"key"`
	Values []string `mapstructure:"values"`
}

// setDefaults registers the default of every scalar key, which also makes
// the keys visible to AutomaticEnv.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("schema", "")
	v.SetDefault("input.path", "")
	v.SetDefault("input.format", "")
	v.SetDefault("input.sheet", "")
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("input.s3.region", "")
	v.SetDefault("input.s3.profile", "")
	v.SetDefault("input.s3.endpoint", "")
	v.SetDefault("input.s3.path_style", false)
	v.SetDefault("batch.size", 1000)
	v.SetDefault("batch.workers", 0)
	v.SetDefault("errors.strategy", "fail_fast")
	v.SetDefault("report.top", 5)
}

// Load reads the configuration. An empty path looks for goimport.yaml in the
// working directory and is not an error when none exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("goimport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if _, err := c.Strategy(); err != nil {
		errs = append(errs, fmt.Errorf("errors.strategy: %w", err))
	}
	if c.Report.Top < 0 {
		errs = append(errs, fmt.Errorf("report.top: must not be negative"))
	}
	if c.Batch.Size < 0 {
		errs = append(errs, fmt.Errorf("batch.size: must not be negative"))
	}
	if len([]rune(c.Input.Delimiter)) > 1 {
		errs = append(errs, fmt.Errorf("input.delimiter: must be a single character"))
	}
	seen := make(map[string]bool, len(c.Lookups))
	for i, l := range c.Lookups {
		if l.Key == "" {
			errs = append(errs, fmt.Errorf("lookups[%d]: key is required", i))
		} else if seen[l.Key] {
			errs = append(errs, fmt.Errorf("lookups[%d]: duplicate key %q", i, l.Key))
		}
		seen[l.Key] = true
	}
	for i, o := range c.Outputs {
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("outputs[%d]: path is required", i))
		}
	}
	return errors.Join(errs...)
}

// Strategy returns the configured error strategy.
func (c *Config) Strategy() (core.ErrorStrategy, error) {
	return core.ParseErrorStrategy(c.Errors.Strategy)
}

// Comma returns the CSV delimiter, or 0 for the reader's default.
func (c *Config) Comma() rune {
	for _, r := range c.Input.Delimiter {
		return r
	}
	return 0
}

// Loaders builds the configured batch loaders.
func (c *Config) Loaders(logger zerolog.Logger) ([]core.BatchLoader, error) {
	loaders := make([]core.BatchLoader, 0, len(c.Lookups))
	for i, l := range c.Lookups {
		loader, err := l.Build(logger)
		if err != nil {
			return nil, fmt.Errorf("lookups[%d] (%s): %w", i, l.Key, err)
		}
		loaders = append(loaders, loader)
	}
	return loaders, nil
}

// Build creates the loader described by l.
func (l LookupConfig) Build(logger zerolog.Logger) (core.BatchLoader, error) {
	switch strings.ToLower(l.Type) {
	case "http":
		opts := []lookup.LoaderOptionHTTP{
			lookup.WithHTTPTable(),
			lookup.WithHTTPLogger(logger),
			lookup.WithHTTPDataPath(l.DataPath),
		}
		if l.Method != "" {
			opts = append(opts, lookup.WithHTTPMethod(l.Method))
		}
		if len(l.Headers) > 0 {
			opts = append(opts, lookup.WithHTTPHeaders(l.Headers))
		}
		if l.BearerToken != "" {
			opts = append(opts, lookup.WithHTTPBearerToken(os.ExpandEnv(l.BearerToken)))
		}
		if l.Timeout > 0 {
			opts = append(opts, lookup.WithHTTPTimeout(l.Timeout))
		}
		if l.Retries > 0 {
			opts = append(opts, lookup.WithHTTPRetries(l.Retries, time.Second))
		}
		return lookup.NewHTTPLoader(l.Key, l.URL, opts...)
	case "sql":
		driver := l.Driver
		if driver == "" {
			driver = "postgres"
		}
		opts := []lookup.LoaderOptionSQL{
			lookup.WithSQLDriver(driver, os.ExpandEnv(l.DSN)),
			lookup.WithSQLQuery(l.Query),
			lookup.WithSQLLogger(logger),
		}
		if l.Timeout > 0 {
			opts = append(opts, lookup.WithSQLTimeout(l.Timeout))
		}
		return lookup.NewSQLTableLoader(l.Key, opts...)
	case "mongo", "mongodb":
		opts := []lookup.LoaderOptionMongo{
			lookup.WithMongoURI(os.ExpandEnv(l.URI)),
			lookup.WithMongoCollection(l.Database, l.Collection),
			lookup.WithMongoFields(l.KeyField, l.ValueField),
			lookup.WithMongoLogger(logger),
		}
		if l.Timeout > 0 {
			opts = append(opts, lookup.WithMongoTimeout(l.Timeout))
		}
		return lookup.NewMongoTableLoader(l.Key, opts...)
	case "static":
		entries := make(map[string][]string, len(l.Entries))
		for _, e := range l.Entries {
			entries[e.Key] = append(entries[e.Key], e.Values...)
		}
		table := lookup.NewTable(entries)
		return core.NewBatchLoader(l.Key, func(ctx context.Context) (any, error) {
			return table, nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown lookup type %q", l.Type)
	}
}
