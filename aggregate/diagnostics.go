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
	"sort"
	"strings"
	"sync"

	"github.com/aaronlmathis/goimport/core"
)

// DiagnosticCount is one distinct diagnostic and how many records raised it.
type DiagnosticCount struct {
	Severity core.Severity
	Rule     string
	Fields   string
	Message  string
	Count    int
}

type diagnosticKey struct {
	severity core.Severity
	rule     string
	fields   string
	message  string
}

// DiagnosticTally counts distinct diagnostics across every record written to
// it. It implements core.ResultSink.
type DiagnosticTally struct {
	mu       sync.Mutex
	counts   map[diagnosticKey]int
	min      core.Severity
	records  int
	affected int
}

// NewDiagnosticTally counts diagnostics of at least the given severity.
func NewDiagnosticTally(min core.Severity) *DiagnosticTally {
	return &DiagnosticTally{counts: make(map[diagnosticKey]int), min: min}
}

// Write implements core.ResultSink.
func (t *DiagnosticTally) Write(ctx context.Context, record *core.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records++
	hit := false
	for _, d := range record.Diagnostics() {
		if d.Severity < t.min {
			continue
		}
		hit = true
		t.counts[diagnosticKey{
			severity: d.Severity,
			rule:     d.Rule,
			fields:   strings.Join(d.Fields, ","),
			message:  d.Message,
		}]++
	}
	if hit {
		t.affected++
	}
	return nil
}

func (t *DiagnosticTally) Flush() error { return nil }

func (t *DiagnosticTally) Close() error { return nil }

// Records returns how many records were seen and how many had at least one
// counted diagnostic.
func (t *DiagnosticTally) Records() (seen, affected int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records, t.affected
}

// Top returns the n most frequent diagnostics, most severe first on ties.
// n <= 0 returns all of them.
func (t *DiagnosticTally) Top(n int) []DiagnosticCount {
	t.mu.Lock()
	out := make([]DiagnosticCount, 0, len(t.counts))
	for k, c := range t.counts {
		out = append(out, DiagnosticCount{
			Severity: k.severity,
			Rule:     k.rule,
			Fields:   k.fields,
			Message:  k.message,
			Count:    c,
		})
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Fields != b.Fields {
			return a.Fields < b.Fields
		}
		return a.Message < b.Message
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
