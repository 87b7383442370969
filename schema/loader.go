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

package schema

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aaronlmathis/goimport"
	"github.com/aaronlmathis/goimport/core"
	"github.com/aaronlmathis/goimport/rules"
	"gopkg.in/yaml.v3"
)

// Package schema loads import schemas and their rules from YAML files.

// RuleSpec references a registered rule: either a bare name or a single-key
// map of name to arguments.
type RuleSpec struct {
	Name string
	Args rules.Args
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RuleSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.Name = node.Value
		r.Args = rules.Args{}
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: rule must have exactly one name", node.Line)
		}
		r.Name = node.Content[0].Value
		r.Args = rules.Args{}
		if node.Content[1].Kind == yaml.ScalarNode && node.Content[1].Tag == "!!null" {
			return nil
		}
		if err := node.Content[1].Decode(&r.Args); err != nil {
			return fmt.Errorf("line %d: rule %q: %w", node.Line, r.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("line %d: rule must be a name or a single-key map", node.Line)
	}
}

// FieldSpec is one field of a schema file.
type FieldSpec struct {
	Key      string     `yaml:"key"`
	Label    string     `yaml:"label"`
	Type     string     `yaml:"type"`
	Required bool       `yaml:"required"`
	Compute  []RuleSpec `yaml:"compute"`
	Validate []RuleSpec `yaml:"validate"`
}

// File is the raw document of a schema file.
type File struct {
	Name    string      `yaml:"name"`
	Fields  []FieldSpec `yaml:"fields"`
	Records []RuleSpec  `yaml:"records"`
}

// Definition is a resolved schema file: the schema plus the rules it names.
type Definition struct {
	Name        string
	Schema      *core.Schema
	FieldRules  []core.FieldRule
	RecordRules []core.RecordRule
}

// Pipeline returns a builder preloaded with every rule of the definition.
func (d *Definition) Pipeline() *goimport.PipelineBuilder {
	pb := goimport.NewPipeline(d.Schema)
	for _, fr := range d.FieldRules {
		pb.Field(fr)
	}
	for _, rr := range d.RecordRules {
		pb.Rule(rr)
	}
	return pb
}

// LoadFile reads and resolves the schema file at path.
func LoadFile(path string, reg *rules.Registry) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	def, err := Load(f, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Load decodes a schema document from r and resolves its rules against reg.
// A nil registry means rules.DefaultRegistry().
func Load(r io.Reader, reg *rules.Registry) (*Definition, error) {
	if reg == nil {
		reg = rules.DefaultRegistry()
	}
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return file.Resolve(reg)
}

// Resolve builds the schema and instantiates every rule.
func (f *File) Resolve(reg *rules.Registry) (*Definition, error) {
	if len(f.Fields) == 0 {
		return nil, fmt.Errorf("schema %q declares no fields", f.Name)
	}

	fields := make([]core.Field, 0, len(f.Fields))
	var fieldRules []core.FieldRule
	for i, fs := range f.Fields {
		fs.Key = strings.TrimSpace(fs.Key)
		path := fmt.Sprintf("fields[%d]", i)
		kind := core.KindText
		if fs.Type != "" {
			k, err := core.ParseKind(fs.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.type: %w", path, err)
			}
			kind = k
		}
		fields = append(fields, core.Field{
			Key:      fs.Key,
			Label:    fs.Label,
			Kind:     kind,
			Required: fs.Required,
		})
		for j, rs := range fs.Compute {
			fn, err := reg.Compute(rs.Name, rs.Args)
			if err != nil {
				return nil, fmt.Errorf("%s.compute[%d]: %w", path, j, err)
			}
			fieldRules = append(fieldRules, core.FieldRule{Key: fs.Key, Compute: fn})
		}
		for j, rs := range fs.Validate {
			fn, err := reg.Validator(rs.Name, rs.Args)
			if err != nil {
				return nil, fmt.Errorf("%s.validate[%d]: %w", path, j, err)
			}
			fieldRules = append(fieldRules, core.FieldRule{Key: fs.Key, Validate: fn})
		}
	}

	s, err := core.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}

	records := make([]core.RecordRule, 0, len(f.Records))
	for i, rs := range f.Records {
		rule, err := reg.Record(rs.Name, rs.Args)
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		if fr, ok := rule.(core.FieldRecordRule); ok {
			for _, key := range fr.Fields() {
				if !s.Has(key) {
					return nil, fmt.Errorf("records[%d] %s: %w", i, rs.Name, &core.UnknownFieldError{Field: key})
				}
			}
		}
		records = append(records, rule)
	}

	return &Definition{
		Name:        f.Name,
		Schema:      s,
		FieldRules:  fieldRules,
		RecordRules: records,
	}, nil
}
