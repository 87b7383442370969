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

	"github.com/aaronlmathis/goimport/core"
	"github.com/rs/zerolog"
)

// Package goimport validates and transforms tabular records during data import.
//
// Core Concepts:
//   - FieldRule: compute and/or validate functions bound to one field.
//   - RecordRule: a named operation over a whole record (cross-field checks).
//   - Diagnostic: info, warn or error messages attached to a record.
//   - Pipeline: field rules in declaration order, then record rules in
//     registration order.
//   - BatchRunner: runs batch loaders once, then the Pipeline on every record.
//   - Importer: streams rows from a DataSource through a BatchRunner into sinks.
//
// Example usage:
//
//   pipeline, err := goimport.NewPipeline(schema).
//       Field(core.FieldRule{Key: "email", Compute: rules.Lower()}).
//       Rule(rules.SplitFullName("firstName", "lastName")).
//       Build()
//   if err != nil { log.Fatal(err) }
//   result, err := goimport.NewBatchRunner(pipeline).Run(ctx, records)
//
// A rule failure never aborts a batch; it becomes an error Diagnostic on the
// record that triggered it.

// PipelineBuilder provides a fluent API for constructing a Pipeline.
// Use NewPipeline() to create a new builder, then chain Field and Rule.
type PipelineBuilder struct {
	schema     *core.Schema
	computes   map[string][]core.ComputeFunc
	validators map[string][]core.ValidateFunc
	rules      []core.RecordRule
	err        error
}

// NewPipeline creates a builder over schema. The compute and validate
// functions declared on the schema's fields are registered first.
func NewPipeline(schema *core.Schema) *PipelineBuilder {
	pb := &PipelineBuilder{
		schema:     schema,
		computes:   make(map[string][]core.ComputeFunc),
		validators: make(map[string][]core.ValidateFunc),
	}
	if schema == nil {
		pb.err = fmt.Errorf("pipeline requires a schema")
		return pb
	}
	for _, f := range schema.Fields() {
		pb.Field(f.Rule())
	}
	return pb
}

// Field registers a field rule. Its key must be declared by the schema.
func (pb *PipelineBuilder) Field(rule core.FieldRule) *PipelineBuilder {
	if pb.err != nil {
		return pb
	}
	if !pb.schema.Has(rule.Key) {
		pb.err = fmt.Errorf("field rule: %w", &core.UnknownFieldError{Field: rule.Key})
		return pb
	}
	if rule.Compute != nil {
		pb.computes[rule.Key] = append(pb.computes[rule.Key], rule.Compute)
	}
	if rule.Validate != nil {
		pb.validators[rule.Key] = append(pb.validators[rule.Key], rule.Validate)
	}
	return pb
}

// Compute registers a compute function for key.
func (pb *PipelineBuilder) Compute(key string, fn core.ComputeFunc) *PipelineBuilder {
	return pb.Field(core.FieldRule{Key: key, Compute: fn})
}

// Validate registers a validator for key.
func (pb *PipelineBuilder) Validate(key string, fn core.ValidateFunc) *PipelineBuilder {
	return pb.Field(core.FieldRule{Key: key, Validate: fn})
}

// Rule appends a record rule. Record rules run in registration order.
func (pb *PipelineBuilder) Rule(rule core.RecordRule) *PipelineBuilder {
	if pb.err != nil {
		return pb
	}
	if rule == nil {
		pb.err = fmt.Errorf("record rule %d is nil", len(pb.rules))
		return pb
	}
	pb.rules = append(pb.rules, rule)
	return pb
}

// RuleFunc appends fn as a record rule called name.
func (pb *PipelineBuilder) RuleFunc(name string, fn core.RecordRuleFunc) *PipelineBuilder {
	return pb.Rule(core.NewRecordRule(name, fn))
}

// Build validates and constructs the Pipeline from the builder.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	if pb.err != nil {
		return nil, pb.err
	}
	for _, rule := range pb.rules {
		fr, ok := rule.(core.FieldRecordRule)
		if !ok {
			continue
		}
		for _, f := range fr.Fields() {
			if !pb.schema.Has(f) {
				return nil, fmt.Errorf("record rule %q: %w", rule.Name(), &core.UnknownFieldError{Field: f})
			}
		}
	}
	p := &Pipeline{
		schema:     pb.schema,
		computes:   make(map[string][]core.ComputeFunc, len(pb.computes)),
		validators: make(map[string][]core.ValidateFunc, len(pb.validators)),
		rules:      append([]core.RecordRule(nil), pb.rules...),
	}
	for k, v := range pb.computes {
		p.computes[k] = append([]core.ComputeFunc(nil), v...)
	}
	for k, v := range pb.validators {
		p.validators[k] = append([]core.ValidateFunc(nil), v...)
	}
	return p, nil
}

// Pipeline applies field rules and then record rules to one record at a time.
// A built Pipeline is immutable and safe for concurrent use on distinct
// records.
type Pipeline struct {
	schema     *core.Schema
	computes   map[string][]core.ComputeFunc
	validators map[string][]core.ValidateFunc
	rules      []core.RecordRule
}

// Schema returns the schema the pipeline was built for.
func (p *Pipeline) Schema() *core.Schema { return p.schema }

// RuleNames lists the record rules in execution order.
func (p *Pipeline) RuleNames() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name()
	}
	return names
}

// Process runs every rule against record and returns it. Failures are
// recorded as Diagnostics on the record; Process never fails.
func (p *Pipeline) Process(ctx context.Context, batch *core.BatchContext, record *core.Record) *core.Record {
	logger := zerolog.Ctx(ctx)

	for _, field := range p.schema.Fields() {
		p.applyField(ctx, field, record)
	}

	for _, rule := range p.rules {
		if core.Invoke(ctx, batch, rule, record) {
			logger.Debug().Int("row", record.Row()).Str("rule", rule.Name()).Msg("record rule failed")
		}
	}
	return record
}

func (p *Pipeline) applyField(ctx context.Context, field core.Field, record *core.Record) {
	key := field.Key
	for _, compute := range p.computes[key] {
		next, err := safeCompute(compute, record.Get(key))
		if err != nil {
			record.AddDiagnostic(core.Error(fmt.Sprintf("rule execution failed: %v", err), key).WithRule("compute"))
			zerolog.Ctx(ctx).Debug().Int("row", record.Row()).Str("field", key).Err(err).Msg("compute failed")
			continue
		}
		// the key is declared, so Set cannot fail
		_ = record.Set(key, next)
	}

	value := record.Get(key)
	if value.IsBlank() {
		if field.Required {
			record.AddDiagnostic(core.Error(fmt.Sprintf("%s is required", field.Label), key).WithRule("required"))
		}
		return
	}

	for _, validate := range p.validators[key] {
		diags, err := safeValidate(validate, value)
		if err != nil {
			record.AddDiagnostic(core.Error(fmt.Sprintf("rule execution failed: %v", err), key).WithRule("validate"))
			continue
		}
		for _, d := range diags {
			if len(d.Fields) == 0 {
				d.Fields = []string{key}
			}
			record.AddDiagnostic(d)
		}
	}
}

func safeCompute(fn core.ComputeFunc, in core.Value) (out core.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = in, fmt.Errorf("%v", r)
		}
	}()
	return fn(in), nil
}

func safeValidate(fn core.ValidateFunc, in core.Value) (diags []core.Diagnostic, err error) {
	defer func() {
		if r := recover(); r != nil {
			diags, err = nil, fmt.Errorf("%v", r)
		}
	}()
	return fn(in), nil
}
