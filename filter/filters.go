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

package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/aaronlmathis/goimport/core"
)

// Package filter provides reusable, composable filters that route processed
// records to sinks.
//
// Filters look at a record after the pipeline ran, so they can select on its
// validity and diagnostics as well as on field values. All functions return
// core.Filter implementations.

// Valid includes records without error diagnostics.
func Valid() core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		return record.Valid(), nil
	})
}

// Invalid includes records with at least one error diagnostic.
func Invalid() core.Filter {
	return Not(Valid())
}

// HasSeverity includes records carrying at least one diagnostic of severity.
func HasSeverity(severity core.Severity) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		return record.Count(severity) > 0, nil
	})
}

// HasDiagnostics includes records carrying any diagnostic.
func HasDiagnostics() core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		return len(record.Diagnostics()) > 0, nil
	})
}

// FieldHasDiagnostic includes records with a diagnostic scoped to field.
func FieldHasDiagnostic(field string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		for _, d := range record.Diagnostics() {
			for _, f := range d.Fields {
				if f == field {
					return true, nil
				}
			}
		}
		return false, nil
	})
}

// NotNull excludes records where the field is null or blank text
func NotNull(field string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		return !record.Get(field).IsBlank(), nil
	})
}

// FieldEquals includes records whose field equals value. Plain Go values are
// coerced to the field's kind before comparing.
func FieldEquals(field string, value any) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		kind := core.KindText
		if f, ok := record.Schema().Field(field); ok {
			kind = f.Kind
		}
		want, ok := core.Coerce(kind, value)
		if !ok {
			return false, nil
		}
		return record.Get(field).Equal(want), nil
	})
}

// Contains includes records where the field's text contains substring
func Contains(field, substring string) core.Filter {
	return textFilter(field, func(s string) bool { return strings.Contains(s, substring) })
}

// StartsWith includes records where the field's text starts with prefix
func StartsWith(field, prefix string) core.Filter {
	return textFilter(field, func(s string) bool { return strings.HasPrefix(s, prefix) })
}

// MatchesRegex includes records where the field's text matches pattern
func MatchesRegex(field, pattern string) core.Filter {
	regex := regexp.MustCompile(pattern)
	return textFilter(field, regex.MatchString)
}

// Between includes records where the numeric field is between min and max (inclusive)
func Between(field string, min, max float64) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		n, ok := record.Get(field).Number()
		if !ok {
			return false, nil
		}
		return n >= min && n <= max, nil
	})
}

// In includes records where the field's text is one of values
func In(field string, values ...string) core.Filter {
	valueSet := make(map[string]bool, len(values))
	for _, v := range values {
		valueSet[v] = true
	}
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		v := record.Get(field)
		if v.IsNull() {
			return false, nil
		}
		return valueSet[v.String()], nil
	})
}

// And creates a filter that requires all provided filters to pass
func And(filters ...core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
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
	})
}

// Or creates a filter that requires at least one of the provided filters to pass
func Or(filters ...core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		for _, filter := range filters {
			include, err := filter.ShouldInclude(ctx, record)
			if err != nil {
				return false, err
			}
			if include {
				return true, nil
			}
		}
		return false, nil
	})
}

// Not creates a filter that negates the provided filter
func Not(filter core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		include, err := filter.ShouldInclude(ctx, record)
		if err != nil {
			return false, err
		}
		return !include, nil
	})
}

// All includes every record.
func All() core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		return true, nil
	})
}

// Custom creates a filter using a user-provided predicate function
func Custom(predicate func(*core.Record) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		return predicate(record), nil
	})
}

// ByName resolves the filter names used in configuration files: "all",
// "valid", "invalid", "warnings" and "diagnostics".
func ByName(name string) (core.Filter, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return All(), true
	case "valid":
		return Valid(), true
	case "invalid":
		return Invalid(), true
	case "warnings", "warn":
		return HasSeverity(core.SeverityWarn), true
	case "diagnostics":
		return HasDiagnostics(), true
	default:
		return nil, false
	}
}

func textFilter(field string, match func(string) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record *core.Record) (bool, error) {
		v := record.Get(field)
		if v.IsNull() {
			return false, nil
		}
		return match(v.String()), nil
	})
}
