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
	"sort"
	"strconv"

	"github.com/aaronlmathis/goimport/core"
)

// Args are the named arguments of a rule reference in a schema file.
type Args map[string]any

// String returns the string argument key.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int, int64, float64, bool:
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("argument %q: expected string, got %T", key, v)
	}
}

// StringOr returns the string argument key or def when absent.
func (a Args) StringOr(key, def string) (string, error) {
	if _, ok := a[key]; !ok {
		return def, nil
	}
	return a.String(key)
}

// Float returns the numeric argument key.
func (a Args) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument %q: expected number, got %T", key, v)
	}
}

// Int returns the integer argument key.
func (a Args) Int(key string) (int, error) {
	f, err := a.Float(key)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("argument %q: expected integer, got %v", key, f)
	}
	return int(f), nil
}

// IntOr returns the integer argument key or def when absent.
func (a Args) IntOr(key string, def int) (int, error) {
	if _, ok := a[key]; !ok {
		return def, nil
	}
	return a.Int(key)
}

// Strings returns the list argument key.
func (a Args) Strings(key string) ([]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", key)
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, item := range list {
			out[i] = fmt.Sprint(item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %q: expected list, got %T", key, v)
	}
}

// ComputeFactory builds a compute from arguments.
type ComputeFactory func(Args) (core.ComputeFunc, error)

// ValidateFactory builds a validator from arguments.
type ValidateFactory func(Args) (core.ValidateFunc, error)

// RecordFactory builds a record rule from arguments.
type RecordFactory func(Args) (core.RecordRule, error)

// Registry resolves rule names used in schema files.
type Registry struct {
	computes   map[string]ComputeFactory
	validators map[string]ValidateFactory
	records    map[string]RecordFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		computes:   make(map[string]ComputeFactory),
		validators: make(map[string]ValidateFactory),
		records:    make(map[string]RecordFactory),
	}
}

// RegisterCompute adds or replaces a compute factory.
func (r *Registry) RegisterCompute(name string, f ComputeFactory) { r.computes[name] = f }

// RegisterValidator adds or replaces a validator factory.
func (r *Registry) RegisterValidator(name string, f ValidateFactory) { r.validators[name] = f }

// RegisterRecord adds or replaces a record rule factory.
func (r *Registry) RegisterRecord(name string, f RecordFactory) { r.records[name] = f }

// Compute builds the named compute.
func (r *Registry) Compute(name string, args Args) (core.ComputeFunc, error) {
	f, ok := r.computes[name]
	if !ok {
		return nil, fmt.Errorf("unknown compute %q", name)
	}
	return f(args)
}

// Validator builds the named validator.
func (r *Registry) Validator(name string, args Args) (core.ValidateFunc, error) {
	f, ok := r.validators[name]
	if !ok {
		return nil, fmt.Errorf("unknown validator %q", name)
	}
	return f(args)
}

// Record builds the named record rule.
func (r *Registry) Record(name string, args Args) (core.RecordRule, error) {
	f, ok := r.records[name]
	if !ok {
		return nil, fmt.Errorf("unknown record rule %q", name)
	}
	return f(args)
}

// Names lists every registered name per category, sorted.
func (r *Registry) Names() (computes, validators, records []string) {
	for n := range r.computes {
		computes = append(computes, n)
	}
	for n := range r.validators {
		validators = append(validators, n)
	}
	for n := range r.records {
		records = append(records, n)
	}
	sort.Strings(computes)
	sort.Strings(validators)
	sort.Strings(records)
	return computes, validators, records
}

func fixed(fn core.ComputeFunc) ComputeFactory {
	return func(Args) (core.ComputeFunc, error) { return fn, nil }
}

// DefaultRegistry returns a registry holding every recipe of this package.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterCompute("trim", fixed(Trim()))
	r.RegisterCompute("upper", fixed(Upper()))
	r.RegisterCompute("lower", fixed(Lower()))
	r.RegisterCompute("collapse_spaces", fixed(CollapseSpaces()))
	r.RegisterCompute("fold_diacritics", fixed(FoldDiacritics()))
	r.RegisterCompute("strip_symbols", func(a Args) (core.ComputeFunc, error) {
		set, err := a.StringOr("set", DefaultSymbols)
		if err != nil {
			return nil, err
		}
		return StripSymbols(set), nil
	})
	r.RegisterCompute("constant", func(a Args) (core.ComputeFunc, error) {
		v, err := a.String("value")
		if err != nil {
			return nil, err
		}
		return Constant(core.Text(v)), nil
	})
	r.RegisterCompute("format_date", func(a Args) (core.ComputeFunc, error) {
		layout, err := a.String("layout")
		if err != nil {
			return nil, err
		}
		return FormatDate(layout), nil
	})
	r.RegisterCompute("pad_left", func(a Args) (core.ComputeFunc, error) {
		width, err := a.Int("width")
		if err != nil {
			return nil, err
		}
		pad, err := a.StringOr("pad", "0")
		if err != nil {
			return nil, err
		}
		if len([]rune(pad)) != 1 {
			return nil, fmt.Errorf("argument %q: expected a single character", "pad")
		}
		return PadLeft(width, []rune(pad)[0]), nil
	})

	r.RegisterValidator("range", func(a Args) (core.ValidateFunc, error) {
		min, err := a.Float("min")
		if err != nil {
			return nil, err
		}
		max, err := a.Float("max")
		if err != nil {
			return nil, err
		}
		if min > max {
			return nil, fmt.Errorf("range: min %v is greater than max %v", min, max)
		}
		return RangeInclusive(min, max), nil
	})
	r.RegisterValidator("positive", func(Args) (core.ValidateFunc, error) { return Positive(), nil })
	r.RegisterValidator("pattern", func(a Args) (core.ValidateFunc, error) {
		expr, err := a.String("regex")
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		msg, err := a.StringOr("message", "")
		if err != nil {
			return nil, err
		}
		return MatchPattern(re, msg), nil
	})
	r.RegisterValidator("max_length", func(a Args) (core.ValidateFunc, error) {
		n, err := a.Int("max")
		if err != nil {
			return nil, err
		}
		return MaxLength(n), nil
	})
	r.RegisterValidator("one_of", func(a Args) (core.ValidateFunc, error) {
		values, err := a.Strings("values")
		if err != nil {
			return nil, err
		}
		return OneOf(values...), nil
	})

	r.RegisterRecord("join_fields", func(a Args) (core.RecordRule, error) {
		target, err := a.String("target")
		if err != nil {
			return nil, err
		}
		sep, err := a.StringOr("sep", " ")
		if err != nil {
			return nil, err
		}
		fields, err := a.Strings("fields")
		if err != nil {
			return nil, err
		}
		return JoinFields(target, sep, fields...), nil
	})
	r.RegisterRecord("accepted_values", func(a Args) (core.RecordRule, error) {
		field, err := a.String("field")
		if err != nil {
			return nil, err
		}
		values, err := a.Strings("values")
		if err != nil {
			return nil, err
		}
		return AcceptedValues(field, values), nil
	})
	r.RegisterRecord("one_of_present", func(a Args) (core.RecordRule, error) {
		fa, err := a.String("a")
		if err != nil {
			return nil, err
		}
		fb, err := a.String("b")
		if err != nil {
			return nil, err
		}
		return OneOfPresent(fa, fb), nil
	})
	r.RegisterRecord("split_name", func(a Args) (core.RecordRule, error) {
		first, err := a.String("first")
		if err != nil {
			return nil, err
		}
		last, err := a.String("last")
		if err != nil {
			return nil, err
		}
		return SplitFullName(first, last), nil
	})
	r.RegisterRecord("pad_postal_code", func(a Args) (core.RecordRule, error) {
		countryField, err := a.StringOr("country_field", "country")
		if err != nil {
			return nil, err
		}
		country, err := a.StringOr("country", "US")
		if err != nil {
			return nil, err
		}
		field, err := a.StringOr("field", "postalCode")
		if err != nil {
			return nil, err
		}
		width, err := a.IntOr("width", 5)
		if err != nil {
			return nil, err
		}
		return PadPostalCode(countryField, country, field, width), nil
	})
	r.RegisterRecord("reformat_date", func(a Args) (core.RecordRule, error) {
		field, err := a.String("field")
		if err != nil {
			return nil, err
		}
		layout, err := a.StringOr("layout", "2006-01-02")
		if err != nil {
			return nil, err
		}
		return ReformatDate(field, layout), nil
	})
	r.RegisterRecord("sum_equals", func(a Args) (core.RecordRule, error) {
		total, err := a.Float("total")
		if err != nil {
			return nil, err
		}
		msg, err := a.StringOr("message", "")
		if err != nil {
			return nil, err
		}
		fields, err := a.Strings("fields")
		if err != nil {
			return nil, err
		}
		return SumEquals(total, msg, fields...), nil
	})
	r.RegisterRecord("reference_match", func(a Args) (core.RecordRule, error) {
		keyField, err := a.String("key_field")
		if err != nil {
			return nil, err
		}
		valueField, err := a.String("value_field")
		if err != nil {
			return nil, err
		}
		lookup, err := a.String("lookup")
		if err != nil {
			return nil, err
		}
		return ReferenceMatchFromBatch(keyField, valueField, lookup), nil
	})
	r.RegisterRecord("required_when", func(a Args) (core.RecordRule, error) {
		field, err := a.String("field")
		if err != nil {
			return nil, err
		}
		when, err := a.String("when")
		if err != nil {
			return nil, err
		}
		equals, err := a.String("equals")
		if err != nil {
			return nil, err
		}
		return RequiredWhen(field, when, equals), nil
	})
	r.RegisterRecord("set_from_batch", func(a Args) (core.RecordRule, error) {
		field, err := a.String("field")
		if err != nil {
			return nil, err
		}
		key, err := a.String("lookup")
		if err != nil {
			return nil, err
		}
		return SetFromBatch(field, key), nil
	})

	return r
}
