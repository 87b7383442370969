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

package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aaronlmathis/goimport/core"
)

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// RangeInclusive reports an error when a number lies outside [min, max].
// Non-numeric values are not applicable.
func RangeInclusive(min, max float64) core.ValidateFunc {
	return func(v core.Value) []core.Diagnostic {
		n, ok := v.Number()
		if !ok || (n >= min && n <= max) {
			return nil
		}
		msg := fmt.Sprintf("Value must be between %s and %s", formatNumber(min), formatNumber(max))
		return []core.Diagnostic{core.Error(msg).WithRule("range")}
	}
}

// Positive reports an error for negative numbers. Zero is accepted.
func Positive() core.ValidateFunc {
	return func(v core.Value) []core.Diagnostic {
		n, ok := v.Number()
		if !ok || n >= 0 {
			return nil
		}
		return []core.Diagnostic{core.Error("Value must be positive").WithRule("positive")}
	}
}

// MatchPattern reports message as an error when the value's text form does
// not match re.
func MatchPattern(re *regexp.Regexp, message string) core.ValidateFunc {
	if message == "" {
		message = fmt.Sprintf("Value must match %s", re.String())
	}
	return func(v core.Value) []core.Diagnostic {
		if re.MatchString(v.String()) {
			return nil
		}
		return []core.Diagnostic{core.Error(message).WithRule("pattern")}
	}
}

// MaxLength reports an error when text is longer than n runes.
func MaxLength(n int) core.ValidateFunc {
	return func(v core.Value) []core.Diagnostic {
		s, ok := v.Text()
		if !ok || len([]rune(s)) <= n {
			return nil
		}
		msg := fmt.Sprintf("Value must be at most %d characters", n)
		return []core.Diagnostic{core.Error(msg).WithRule("max_length")}
	}
}

// OneOf reports an error when the value's text form is not one of values.
func OneOf(values ...string) core.ValidateFunc {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	return func(v core.Value) []core.Diagnostic {
		if allowed[v.String()] {
			return nil
		}
		msg := fmt.Sprintf("Was expecting one of: %s", strings.Join(values, ", "))
		return []core.Diagnostic{core.Error(msg).WithRule("one_of")}
	}
}

// All runs every validator and concatenates their diagnostics.
func All(validators ...core.ValidateFunc) core.ValidateFunc {
	return func(v core.Value) []core.Diagnostic {
		var out []core.Diagnostic
		for _, fn := range validators {
			out = append(out, fn(v)...)
		}
		return out
	}
}
