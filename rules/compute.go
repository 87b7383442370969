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
	"regexp"
	"strings"
	"unicode"

	"github.com/aaronlmathis/goimport/core"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package rules provides reusable field computes, field validators and record
// rules for common import clean-up tasks.
//
// Computes are total: when the input is not something they know how to
// transform, they return it unchanged.

// DefaultSymbols is the set removed by StripSymbols when none is given.
const DefaultSymbols = `*;/{}[]"_#'^><|`

var multiSpace = regexp.MustCompile(`\s{2,}`)

// mapText applies fn to text and reference values, keeping their kind, and
// passes every other value through.
func mapText(fn func(string) string) core.ComputeFunc {
	return func(v core.Value) core.Value {
		if s, ok := v.Text(); ok {
			return core.Text(fn(s))
		}
		if key, ok := v.Reference(); ok {
			return core.Reference(fn(key))
		}
		return v
	}
}

// Constant replaces any input with v.
func Constant(v core.Value) core.ComputeFunc {
	return func(core.Value) core.Value { return v }
}

// Trim removes leading and trailing whitespace.
func Trim() core.ComputeFunc {
	return mapText(strings.TrimSpace)
}

// Upper converts text to upper case.
func Upper() core.ComputeFunc {
	return mapText(strings.ToUpper)
}

// Lower converts text to lower case.
func Lower() core.ComputeFunc {
	return mapText(strings.ToLower)
}

// CollapseSpaces replaces runs of two or more whitespace characters with a
// single space.
func CollapseSpaces() core.ComputeFunc {
	return mapText(func(s string) string {
		return multiSpace.ReplaceAllString(s, " ")
	})
}

// StripSymbols removes every rune of set from text. An empty set means
// DefaultSymbols.
func StripSymbols(set string) core.ComputeFunc {
	if set == "" {
		set = DefaultSymbols
	}
	return mapText(func(s string) string {
		return strings.Map(func(r rune) rune {
			if strings.ContainsRune(set, r) {
				return -1
			}
			return r
		}, s)
	})
}

// FoldDiacritics strips combining marks so that "ç" becomes "c".
func FoldDiacritics() core.ComputeFunc {
	return mapText(func(s string) string {
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		out, _, err := transform.String(t, s)
		if err != nil {
			return s
		}
		return out
	})
}

// FormatDate renders dates, and text that parses as a date, with layout.
// Anything else is returned unchanged.
func FormatDate(layout string) core.ComputeFunc {
	return func(v core.Value) core.Value {
		if t, ok := v.Date(); ok {
			return core.Text(t.Format(layout))
		}
		s, ok := v.Text()
		if !ok {
			return v
		}
		t, ok := core.ParseDate(s)
		if !ok {
			return v
		}
		return core.Text(t.Format(layout))
	}
}

// PadLeft left-pads text and numbers with pad up to width runes.
func PadLeft(width int, pad rune) core.ComputeFunc {
	return func(v core.Value) core.Value {
		switch v.Kind() {
		case core.KindText, core.KindNumber:
			return core.Text(padLeft(v.String(), width, pad))
		default:
			return v
		}
	}
}

func padLeft(s string, width int, pad rune) string {
	n := width - len([]rune(s))
	if n <= 0 {
		return s
	}
	return strings.Repeat(string(pad), n) + s
}

// Chain runs computes left to right.
func Chain(computes ...core.ComputeFunc) core.ComputeFunc {
	return func(v core.Value) core.Value {
		for _, c := range computes {
			v = c(v)
		}
		return v
	}
}
