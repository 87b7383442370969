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

package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aaronlmathis/goimport/core"
)

// ValidField is a pseudo field grouping records by validity ("true"/"false").
const ValidField = "_valid"

type namedAggregator struct {
	output string
	agg    Aggregator
}

// Group is one row of a GroupBy result.
type Group struct {
	Keys   map[string]string
	Values map[string]any
}

type groupState struct {
	keys        []string
	aggregators []Aggregator
}

// GroupBy groups processed records by field values and aggregates each group.
// It implements core.ResultSink.
type GroupBy struct {
	groupFields []string
	aggregators []namedAggregator
	groups      map[string]*groupState
	mu          sync.Mutex
}

// NewGroupBy creates a new GroupBy over groupFields. ValidField may be used
// as a field.
func NewGroupBy(groupFields ...string) *GroupBy {
	return &GroupBy{
		groupFields: groupFields,
		groups:      make(map[string]*groupState),
	}
}

// Count adds a count aggregator for the specified output field
func (g *GroupBy) Count(outputField string) *GroupBy {
	return g.With(outputField, &CountAggregator{})
}

// Invalid counts the records with at least one error diagnostic
func (g *GroupBy) Invalid(outputField string) *GroupBy {
	return g.With(outputField, &CountAggregator{OnlyInvalid: true})
}

// Sum adds a sum aggregator for the specified field
func (g *GroupBy) Sum(field, outputField string) *GroupBy {
	return g.With(outputField, &SumAggregator{Field: field})
}

// Avg adds an average aggregator for the specified field
func (g *GroupBy) Avg(field, outputField string) *GroupBy {
	return g.With(outputField, &AvgAggregator{Field: field})
}

// Min adds a minimum aggregator for the specified field
func (g *GroupBy) Min(field, outputField string) *GroupBy {
	return g.With(outputField, &MinAggregator{Field: field})
}

// Max adds a maximum aggregator for the specified field
func (g *GroupBy) Max(field, outputField string) *GroupBy {
	return g.With(outputField, &MaxAggregator{Field: field})
}

// With adds a custom aggregator under outputField.
func (g *GroupBy) With(outputField string, agg Aggregator) *GroupBy {
	g.aggregators = append(g.aggregators, namedAggregator{output: outputField, agg: agg})
	return g
}

// Write implements core.ResultSink.
func (g *GroupBy) Write(ctx context.Context, record *core.Record) error {
	keys := g.groupValues(record)
	id := strings.Join(keys, "\x1f")

	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.groups[id]
	if !ok {
		state = &groupState{keys: keys}
		for _, na := range g.aggregators {
			state.aggregators = append(state.aggregators, na.agg.Clone())
		}
		g.groups[id] = state
	}
	for i, agg := range state.aggregators {
		if err := agg.Add(ctx, record); err != nil {
			return fmt.Errorf("aggregation error for field %s: %w", g.aggregators[i].output, err)
		}
	}
	return nil
}

// Flush implements core.ResultSink.
func (g *GroupBy) Flush() error { return nil }

// Close implements core.ResultSink. Results stay readable after Close.
func (g *GroupBy) Close() error { return nil }

// Results returns one Group per distinct key, sorted by key values.
func (g *GroupBy) Results() []Group {
	g.mu.Lock()
	defer g.mu.Unlock()

	states := make([]*groupState, 0, len(g.groups))
	for _, s := range g.groups {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool {
		a, b := states[i].keys, states[j].keys
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})

	out := make([]Group, 0, len(states))
	for _, s := range states {
		grp := Group{
			Keys:   make(map[string]string, len(g.groupFields)),
			Values: make(map[string]any, len(s.aggregators)),
		}
		for i, f := range g.groupFields {
			grp.Keys[f] = s.keys[i]
		}
		for i, agg := range s.aggregators {
			grp.Values[g.aggregators[i].output] = agg.Result()
		}
		out = append(out, grp)
	}
	return out
}

// Fields returns the grouping fields.
func (g *GroupBy) Fields() []string { return append([]string(nil), g.groupFields...) }

// Outputs returns the aggregate output names in registration order.
func (g *GroupBy) Outputs() []string {
	names := make([]string, len(g.aggregators))
	for i, na := range g.aggregators {
		names[i] = na.output
	}
	return names
}

func (g *GroupBy) groupValues(record *core.Record) []string {
	parts := make([]string, len(g.groupFields))
	for i, field := range g.groupFields {
		if field == ValidField {
			parts[i] = fmt.Sprint(record.Valid())
			continue
		}
		parts[i] = record.Get(field).String()
	}
	return parts
}

// CountAggregator counts the number of records
type CountAggregator struct {
	OnlyInvalid bool
	count       int
}

func (c *CountAggregator) Add(ctx context.Context, record *core.Record) error {
	if c.OnlyInvalid && record.Valid() {
		return nil
	}
	c.count++
	return nil
}

func (c *CountAggregator) Result() any { return c.count }

func (c *CountAggregator) Reset() { c.count = 0 }

func (c *CountAggregator) Clone() Aggregator { return &CountAggregator{OnlyInvalid: c.OnlyInvalid} }

// SumAggregator sums numeric values
type SumAggregator struct {
	Field string
	sum   float64
}

func (s *SumAggregator) Add(ctx context.Context, record *core.Record) error {
	if num, ok := record.Get(s.Field).Number(); ok {
		s.sum += num
	}
	return nil
}

func (s *SumAggregator) Result() any { return s.sum }

func (s *SumAggregator) Reset() { s.sum = 0 }

func (s *SumAggregator) Clone() Aggregator { return &SumAggregator{Field: s.Field} }

// AvgAggregator calculates average of numeric values
type AvgAggregator struct {
	Field string
	sum   float64
	count int
}

func (a *AvgAggregator) Add(ctx context.Context, record *core.Record) error {
	if num, ok := record.Get(a.Field).Number(); ok {
		a.sum += num
		a.count++
	}
	return nil
}

func (a *AvgAggregator) Result() any {
	if a.count == 0 {
		return 0.0
	}
	return a.sum / float64(a.count)
}

func (a *AvgAggregator) Reset() {
	a.sum = 0
	a.count = 0
}

func (a *AvgAggregator) Clone() Aggregator { return &AvgAggregator{Field: a.Field} }

// MinAggregator finds minimum value. Nulls are ignored; values of different
// kinds compare by their text form.
type MinAggregator struct {
	Field string
	min   core.Value
}

func (m *MinAggregator) Add(ctx context.Context, record *core.Record) error {
	v := record.Get(m.Field)
	if v.IsNull() {
		return nil
	}
	if m.min.IsNull() || compareValues(v, m.min) < 0 {
		m.min = v
	}
	return nil
}

func (m *MinAggregator) Result() any { return m.min.Interface() }

func (m *MinAggregator) Reset() { m.min = core.Null() }

func (m *MinAggregator) Clone() Aggregator { return &MinAggregator{Field: m.Field} }

// MaxAggregator finds maximum value
type MaxAggregator struct {
	Field string
	max   core.Value
}

func (m *MaxAggregator) Add(ctx context.Context, record *core.Record) error {
	v := record.Get(m.Field)
	if v.IsNull() {
		return nil
	}
	if m.max.IsNull() || compareValues(v, m.max) > 0 {
		m.max = v
	}
	return nil
}

func (m *MaxAggregator) Result() any { return m.max.Interface() }

func (m *MaxAggregator) Reset() { m.max = core.Null() }

func (m *MaxAggregator) Clone() Aggregator { return &MaxAggregator{Field: m.Field} }

func compareValues(a, b core.Value) int {
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case core.KindNumber:
			x, _ := a.Number()
			y, _ := b.Number()
			return cmpOrdered(x, y)
		case core.KindDate:
			x, _ := a.Date()
			y, _ := b.Date()
			return x.Compare(y)
		}
	}
	return strings.Compare(a.String(), b.String())
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
