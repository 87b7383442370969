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

package lookup

import (
	"fmt"
	"sort"
)

// Package lookup provides batch loaders that fetch reference data once per
// batch: HTTP documents, SQL tables and MongoDB collections.

// Table is an immutable reference table mapping a key to its accepted
// values, e.g. a bank name to its routing numbers.
type Table struct {
	entries map[string][]string
}

// NewTable copies entries into a Table.
func NewTable(entries map[string][]string) *Table {
	t := &Table{entries: make(map[string][]string, len(entries))}
	for k, v := range entries {
		t.entries[k] = append([]string(nil), v...)
	}
	return t
}

// TableFromPairs groups (key, value) pairs into a Table, keeping first-seen
// order per key and dropping repeated values.
func TableFromPairs(pairs [][2]string) *Table {
	t := &Table{entries: make(map[string][]string)}
	seen := make(map[[2]string]bool, len(pairs))
	for _, p := range pairs {
		if seen[p] {
			continue
		}
		seen[p] = true
		t.entries[p[0]] = append(t.entries[p[0]], p[1])
	}
	return t
}

// Lookup returns the accepted values of key.
func (t *Table) Lookup(key string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return append([]string(nil), v...), true
}

// Keys returns the table keys sorted.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// tableFromAny converts a decoded JSON object of key to value-or-list into a
// Table.
func tableFromAny(data any) (*Table, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", data)
	}
	entries := make(map[string][]string, len(obj))
	for k, v := range obj {
		switch list := v.(type) {
		case []any:
			for _, item := range list {
				entries[k] = append(entries[k], fmt.Sprint(item))
			}
		default:
			entries[k] = []string{fmt.Sprint(list)}
		}
	}
	return NewTable(entries), nil
}
