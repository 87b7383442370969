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
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aaronlmathis/goimport/core"
	"github.com/rs/zerolog"
)

// ReferenceTable maps a key to the values accepted alongside it.
type ReferenceTable interface {
	Lookup(key string) ([]string, bool)
}

// JoinFields sets target to the non-blank values of fields joined by sep.
// Target is left alone when every source field is blank.
func JoinFields(target, sep string, fields ...string) core.RecordRule {
	return core.NewFieldRecordRule("join_fields", append([]string{target}, fields...), func(_ context.Context, _ *core.BatchContext, rec *core.Record) error {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			if v := rec.Get(f); !v.IsBlank() {
				parts = append(parts, strings.TrimSpace(v.String()))
			}
		}
		if len(parts) == 0 {
			return nil
		}
		return rec.Set(target, core.Text(strings.Join(parts, sep)))
	})
}

// AcceptedValues canonicalises field to the matching entry of values,
// comparing case-insensitively. Unmatched values are errors.
func AcceptedValues(field string, values []string) core.RecordRule {
	canonical := make(map[string]string, len(values))
	for _, v := range values {
		canonical[strings.ToLower(v)] = v
	}
	return core.NewFieldRecordRule("accepted_values", []string{field}, func(ctx context.Context, _ *core.BatchContext, rec *core.Record) error {
		v := rec.Get(field)
		if v.IsBlank() {
			return nil
		}
		match, ok := canonical[strings.ToLower(strings.TrimSpace(v.String()))]
		if !ok {
			label := rec.Schema().Label(field)
			rec.AddDiagnostic(core.Error(fmt.Sprintf("This is not a valid %s", label), field).WithRule("accepted_values"))
			return nil
		}
		zerolog.Ctx(ctx).Debug().Int("row", rec.Row()).Str("field", field).Str("value", match).Msg("accepted value found")
		if v.Kind() == core.KindReference {
			return rec.Set(field, core.Reference(match))
		}
		return rec.Set(field, core.Text(match))
	})
}

// OneOfPresent requires at least one of a and b to be non-blank.
func OneOfPresent(a, b string) core.RecordRule {
	return core.NewFieldRecordRule("one_of_present", []string{a, b}, func(_ context.Context, _ *core.BatchContext, rec *core.Record) error {
		if !rec.Get(a).IsBlank() || !rec.Get(b).IsBlank() {
			return nil
		}
		schema := rec.Schema()
		msg := fmt.Sprintf("Must provide one of: %s or %s.", schema.Label(a), schema.Label(b))
		rec.AddDiagnostic(core.Error(msg, a, b).WithRule("one_of_present"))
		return nil
	})
}

// SplitFullName moves everything after the first space of first into last
// when last is blank.
func SplitFullName(first, last string) core.RecordRule {
	return core.NewFieldRecordRule("split_name", []string{first, last}, func(_ context.Context, _ *core.BatchContext, rec *core.Record) error {
		full, ok := rec.Get(first).Text()
		if !ok || !rec.Get(last).IsBlank() {
			return nil
		}
		full = strings.TrimSpace(full)
		head, tail, found := strings.Cut(full, " ")
		if !found {
			return nil
		}
		if err := rec.Set(first, core.Text(head)); err != nil {
			return err
		}
		if err := rec.Set(last, core.Text(strings.TrimSpace(tail))); err != nil {
			return err
		}
		rec.AddDiagnostic(core.Info("Full name was split", first).WithRule("split_name"))
		rec.AddDiagnostic(core.Info("Full name was split", last).WithRule("split_name"))
		return nil
	})
}

// PadPostalCode left-pads field with zeroes to width when countryField
// equals country.
func PadPostalCode(countryField, country, field string, width int) core.RecordRule {
	return core.NewFieldRecordRule("pad_postal_code", []string{countryField, field}, func(_ context.Context, _ *core.BatchContext, rec *core.Record) error {
		if rec.Get(countryField).String() != country {
			return nil
		}
		v := rec.Get(field)
		if v.IsBlank() {
			return nil
		}
		code := v.String()
		if len([]rune(code)) >= width {
			return nil
		}
		if err := rec.Set(field, core.Text(padLeft(code, width, '0'))); err != nil {
			return err
		}
		rec.AddDiagnostic(core.Info("Zipcode was padded with zeroes", field).WithRule("pad_postal_code"))
		return nil
	})
}

// ReformatDate rewrites field with layout. Values that are not dates are
// errors.
func ReformatDate(field, layout string) core.RecordRule {
	return core.NewFieldRecordRule("reformat_date", []string{field}, func(_ context.Context, _ *core.BatchContext, rec *core.Record) error {
		v := rec.Get(field)
		if v.IsBlank() {
			return nil
		}
		t, ok := v.Date()
		if !ok {
			t, ok = core.ParseDate(v.String())
		}
		if !ok {
			rec.AddDiagnostic(core.Error("Invalid Date", field).WithRule("reformat_date"))
			return nil
		}
		formatted := t.Format(layout)
		if _, err := time.Parse(layout, formatted); err != nil {
			rec.AddDiagnostic(core.Error("Invalid Date", field).WithRule("reformat_date"))
			return nil
		}
		if s, isText := v.Text(); isText && s == formatted {
			return nil
		}
		if err := rec.Set(field, core.Text(formatted)); err != nil {
			return err
		}
		rec.AddDiagnostic(core.Info("Automatically formatted", field).WithRule("reformat_date"))
		return nil
	})
}

// SumEquals warns on every field when their numbers do not add up to total.
// The rule only applies when all fields hold numbers.
func SumEquals(total float64, message string, fields ...string) core.RecordRule {
	if message == "" {
		message = fmt.Sprintf("Values must total %s.", formatNumber(total))
	}
	return core.NewFieldRecordRule("sum_equals", fields, func(_ context.Context, _ *core.BatchContext, rec *core.Record) error {
		sum := 0.0
		for _, f := range fields {
			n, ok := rec.Get(f).Number()
			if !ok {
				return nil
			}
			sum += n
		}
		if math.Abs(sum-total) > 1e-9 {
			rec.AddDiagnostic(core.Warn(message, fields...).WithRule("sum_equals"))
		}
		return nil
	})
}

// ReferenceMatch checks valueField against the entries table holds for
// keyField. Keys missing from the table are not checked.
func ReferenceMatch(keyField, valueField string, table ReferenceTable) core.RecordRule {
	return core.NewFieldRecordRule("reference_match", []string{keyField, valueField}, func(_ context.Context, _ *core.BatchContext, rec *core.Record) error {
		checkReference(rec, keyField, valueField, table)
		return nil
	})
}

// ReferenceMatchFromBatch is ReferenceMatch with the table loaded once per
// batch under batchKey.
func ReferenceMatchFromBatch(keyField, valueField, batchKey string) core.RecordRule {
	return core.NewFieldRecordRule("reference_match", []string{keyField, valueField}, func(_ context.Context, batch *core.BatchContext, rec *core.Record) error {
		v, ok := batch.Value(batchKey)
		if !ok {
			return fmt.Errorf("batch value %q not loaded", batchKey)
		}
		table, ok := v.(ReferenceTable)
		if !ok {
			return fmt.Errorf("batch value %q is %T, not a reference table", batchKey, v)
		}
		checkReference(rec, keyField, valueField, table)
		return nil
	})
}

func checkReference(rec *core.Record, keyField, valueField string, table ReferenceTable) {
	key, value := rec.Get(keyField), rec.Get(valueField)
	if key.IsBlank() || value.IsBlank() {
		return
	}
	accepted, ok := table.Lookup(key.String())
	if !ok {
		return
	}
	for _, a := range accepted {
		if a == value.String() {
			return
		}
	}
	msg := fmt.Sprintf("Was expecting one of: %s", strings.Join(accepted, ", "))
	rec.AddDiagnostic(core.Error(msg, valueField).WithRule("reference_match"))
}

// RequiredWhen requires field when whenField equals the given value.
func RequiredWhen(field, whenField, equals string) core.RecordRule {
	return core.NewFieldRecordRule("required_when", []string{field, whenField}, func(_ context.Context, _ *core.BatchContext, rec *core.Record) error {
		if rec.Get(whenField).String() != equals || !rec.Get(field).IsBlank() {
			return nil
		}
		msg := fmt.Sprintf("%s is required", rec.Schema().Label(field))
		rec.AddDiagnostic(core.Error(msg, field).WithRule("required_when"))
		return nil
	})
}

// SetFromBatch copies the batch value stored under batchKey into field,
// coerced to the field's kind. A value that does not coerce is kept as text
// with a type error.
func SetFromBatch(field, batchKey string) core.RecordRule {
	return core.NewFieldRecordRule("set_from_batch", []string{field}, func(_ context.Context, batch *core.BatchContext, rec *core.Record) error {
		v, ok := batch.Value(batchKey)
		if !ok {
			return fmt.Errorf("batch value %q not loaded", batchKey)
		}
		f, ok := rec.Schema().Field(field)
		if !ok {
			return &core.UnknownFieldError{Field: field, Row: rec.Row()}
		}
		coerced, ok := core.Coerce(f.Kind, v)
		if err := rec.Set(field, coerced); err != nil {
			return err
		}
		if !ok {
			msg := fmt.Sprintf("Value is not a valid %s", f.Kind)
			rec.AddDiagnostic(core.Error(msg, field).WithRule("type"))
		}
		return nil
	})
}

// Fold runs rules in order as a single named rule. Each inner rule is
// isolated; a failing rule does not stop the ones after it.
func Fold(name string, rules ...core.RecordRule) core.RecordRule {
	var fields []string
	for _, r := range rules {
		if fr, ok := r.(core.FieldRecordRule); ok {
			fields = append(fields, fr.Fields()...)
		}
	}
	return core.NewFieldRecordRule(name, fields, func(ctx context.Context, batch *core.BatchContext, rec *core.Record) error {
		for _, r := range rules {
			core.Invoke(ctx, batch, r, rec)
		}
		return nil
	})
}
