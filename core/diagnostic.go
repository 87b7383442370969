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
	"encoding/json"
	"fmt"
	"strings"
)

// Severity grades a Diagnostic. Only SeverityError makes a record invalid.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

// String returns the wire name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// ParseSeverity resolves a wire name; "comment" and "warning" are accepted.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info", "comment":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Diagnostic is a structured message produced by a rule. Diagnostics are
// side-channel output and never alter control flow.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Fields   []string `json:"fields"`
	Message  string   `json:"message"`
	Rule     string   `json:"rule,omitempty"`
}

// NewDiagnostic builds a Diagnostic scoped to fields. The field slice is
// copied.
func NewDiagnostic(severity Severity, message string, fields ...string) Diagnostic {
	return Diagnostic{
		Severity: severity,
		Fields:   append([]string(nil), fields...),
		Message:  message,
	}
}

// Info is shorthand for an informational diagnostic.
func Info(message string, fields ...string) Diagnostic {
	return NewDiagnostic(SeverityInfo, message, fields...)
}

// Warn is shorthand for a warning diagnostic.
func Warn(message string, fields ...string) Diagnostic {
	return NewDiagnostic(SeverityWarn, message, fields...)
}

// Error is shorthand for an error diagnostic.
func Error(message string, fields ...string) Diagnostic {
	return NewDiagnostic(SeverityError, message, fields...)
}

// WithRule returns a copy of d attributed to the named rule.
func (d Diagnostic) WithRule(rule string) Diagnostic {
	d.Fields = append([]string(nil), d.Fields...)
	d.Rule = rule
	return d
}

// String renders d as "severity [fields]: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s]: %s", d.Severity, strings.Join(d.Fields, ","), d.Message)
}

// EncodeDiagnostics renders a list as a compact JSON array. Sinks that store
// diagnostics in a single column use it.
func EncodeDiagnostics(diags []Diagnostic) string {
	if len(diags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(diags)
	if err != nil {
		return "[]"
	}
	return string(data)
}
