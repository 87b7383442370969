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
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds. Field types in a Schema are
// expressed with the same Kind set.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindDate
	KindReference
)

var kindNames = map[Kind]string{
	KindNull:      "null",
	KindText:      "text",
	KindNumber:    "number",
	KindBool:      "boolean",
	KindDate:      "date",
	KindReference: "reference",
}

// String returns the schema-file name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a schema-file type name. "string", "bool", "enum" and
// "link" are accepted as aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "string":
		return KindText, nil
	case "number", "numeric", "float", "int":
		return KindNumber, nil
	case "boolean", "bool":
		return KindBool, nil
	case "date", "datetime":
		return KindDate, nil
	case "reference", "enum", "link":
		return KindReference, nil
	default:
		return KindNull, fmt.Errorf("unknown field type %q", name)
	}
}

// Value is a single field value. It is a closed sum type over the supported
// field kinds; the zero Value is Null. Values are immutable.
type Value struct {
	kind Kind
	str  string
	num  float64
	flag bool
	date time.Time
}

// Null returns the empty value.
func Null() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Date returns a date value.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Reference returns a linked value identified by key.
func Reference(key string) Value { return Value{kind: KindReference, str: key} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank reports whether v is null or whitespace-only text. Blank values are
// "not applicable" for validators.
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText, KindReference:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// Text returns the string of a text value.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.str, true
}

// Number returns the float of a numeric value.
func (v Value) Number() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Bool returns the flag of a boolean value.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

// Date returns the time of a date value.
func (v Value) Date() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.date, true
}

// Reference returns the key of a reference value.
func (v Value) Reference() (string, bool) {
	if v.kind != KindReference {
		return "", false
	}
	return v.str, true
}

// String renders v for display and for text-oriented outputs. Null renders
// as the empty string and dates as RFC 3339 calendar dates when they carry no
// clock component.
func (v Value) String() string {
	switch v.kind {
	case KindText, KindReference:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindDate:
		if v.date.Hour() == 0 && v.date.Minute() == 0 && v.date.Second() == 0 && v.date.Nanosecond() == 0 {
			return v.date.Format("2006-01-02")
		}
		return v.date.Format(time.RFC3339)
	default:
		return ""
	}
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText, KindReference:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
	case KindDate:
		return v.date.Equal(o.date)
	}
	return false
}

// Interface returns the payload as a plain Go value (nil, string, float64,
// bool or time.Time) for sinks that need one.
func (v Value) Interface() any {
	switch v.kind {
	case KindText, KindReference:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.flag
	case KindDate:
		return v.date
	default:
		return nil
	}
}

// MarshalJSON encodes v as its natural JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindDate:
		return json.Marshal(v.String())
	default:
		return json.Marshal(v.Interface())
	}
}
