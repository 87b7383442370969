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
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayouts are the input layouts ParseDate understands, tried in order.
var DateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses s with the first matching layout of DateLayouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Decode converts a raw source row into a Record over schema. Every column
// must be declared by the schema. Values that cannot be coerced to their
// field's kind are kept as text and flagged with an error Diagnostic.
func Decode(schema *Schema, row int, raw Row) (*Record, error) {
	values := make(map[string]Value, len(raw))
	var failed []Field
	for key, in := range raw {
		field, ok := schema.Field(key)
		if !ok {
			return nil, &UnknownFieldError{Field: key, Row: row}
		}
		v, ok := Coerce(field.Kind, in)
		if !ok {
			failed = append(failed, field)
		}
		values[key] = v
	}
	rec, err := NewRecord(schema, row, values)
	if err != nil {
		return nil, err
	}
	// map iteration is random; report in declaration order
	for _, f := range schema.Fields() {
		for _, bad := range failed {
			if bad.Key == f.Key {
				rec.AddDiagnostic(Error(fmt.Sprintf("Value is not a valid %s", f.Kind), f.Key).WithRule("type"))
			}
		}
	}
	return rec, nil
}

// Coerce converts a raw value to kind. Blank strings and nil become Null.
// When coercion fails the value is returned as Text and ok is false.
func Coerce(kind Kind, in any) (Value, bool) {
	if in == nil {
		return Null(), true
	}
	if v, isValue := in.(Value); isValue {
		return v, true
	}
	if s, isString := in.(string); isString && strings.TrimSpace(s) == "" {
		return Null(), true
	}

	switch kind {
	case KindNumber:
		if n, ok := toFloat(in); ok {
			return Number(n), true
		}
	case KindBool:
		if b, ok := toBool(in); ok {
			return Bool(b), true
		}
	case KindDate:
		if t, ok := in.(time.Time); ok {
			return Date(t), true
		}
		if t, ok := ParseDate(toString(in)); ok {
			return Date(t), true
		}
	case KindReference:
		return Reference(toString(in)), true
	default:
		return Text(toString(in)), true
	}
	return Text(toString(in)), false
}

func toString(in any) string {
	switch v := in.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return v.Format(time.RFC3339)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(in any) (float64, bool) {
	switch v := in.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toBool(in any) (bool, bool) {
	switch v := in.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y":
			return true, true
		case "no", "n":
			return false, true
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	default:
		if n, ok := toFloat(in); ok {
			return n != 0, true
		}
		return false, false
	}
}
