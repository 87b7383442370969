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
	"context"
	"time"

	"github.com/google/uuid"
)

// BatchContext is the shared, read-only state of one batch run. It is built
// once by the runner's pre-pass and then handed to every record rule.
type BatchContext struct {
	id      uuid.UUID
	created time.Time
	values  map[string]any
}

// NewBatchContext builds a context holding a copy of values.
func NewBatchContext(values map[string]any) *BatchContext {
	b := &BatchContext{
		id:      uuid.New(),
		created: time.Now().UTC(),
		values:  make(map[string]any, len(values)),
	}
	for k, v := range values {
		b.values[k] = v
	}
	return b
}

// ID returns the batch identifier, or uuid.Nil on a nil context.
func (b *BatchContext) ID() uuid.UUID {
	if b == nil {
		return uuid.Nil
	}
	return b.id
}

// Created returns when the batch started.
func (b *BatchContext) Created() time.Time {
	if b == nil {
		return time.Time{}
	}
	return b.created
}

// Value returns the entry stored under key.
func (b *BatchContext) Value(key string) (any, bool) {
	if b == nil {
		return nil, false
	}
	v, ok := b.values[key]
	return v, ok
}

// String returns the entry under key when it is a string.
func (b *BatchContext) String(key string) (string, bool) {
	v, ok := b.Value(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Keys lists the loaded entries.
func (b *BatchContext) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys
}

type batchKey struct{}

// ContextWithBatch returns a copy of ctx carrying batch.
func ContextWithBatch(ctx context.Context, batch *BatchContext) context.Context {
	return context.WithValue(ctx, batchKey{}, batch)
}

// BatchFromContext returns the batch stored by ContextWithBatch, or nil.
func BatchFromContext(ctx context.Context) *BatchContext {
	b, _ := ctx.Value(batchKey{}).(*BatchContext)
	return b
}
