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
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLoaderError provides structured error information for MongoDB loader operations
type MongoLoaderError struct {
	Op  string
	Err error
}

func (e *MongoLoaderError) Error() string {
	return fmt.Sprintf("mongo loader %s: %v", e.Op, e.Err)
}

func (e *MongoLoaderError) Unwrap() error {
	return e.Err
}

// MongoLoaderOptions configures the MongoDB table loader
type MongoLoaderOptions struct {
	URI        string
	Database   string
	Collection string
	KeyField   string
	ValueField string // scalar or array field
	Filter     bson.M
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// LoaderOptionMongo is a functional option for MongoLoaderOptions
type LoaderOptionMongo func(*MongoLoaderOptions)

func WithMongoURI(uri string) LoaderOptionMongo {
	return func(o *MongoLoaderOptions) { o.URI = uri }
}

func WithMongoCollection(database, collection string) LoaderOptionMongo {
	return func(o *MongoLoaderOptions) {
		o.Database = database
		o.Collection = collection
	}
}

// WithMongoFields names the document fields holding the key and its values.
func WithMongoFields(keyField, valueField string) LoaderOptionMongo {
	return func(o *MongoLoaderOptions) {
		o.KeyField = keyField
		o.ValueField = valueField
	}
}

func WithMongoFilter(filter bson.M) LoaderOptionMongo {
	return func(o *MongoLoaderOptions) { o.Filter = filter }
}

func WithMongoTimeout(timeout time.Duration) LoaderOptionMongo {
	return func(o *MongoLoaderOptions) { o.Timeout = timeout }
}

func WithMongoLogger(logger zerolog.Logger) LoaderOptionMongo {
	return func(o *MongoLoaderOptions) { o.Logger = logger }
}

// MongoTableLoader implements core.BatchLoader by reading a collection into
// a *Table.
type MongoTableLoader struct {
	key  string
	opts *MongoLoaderOptions
}

// NewMongoTableLoader validates options and creates the loader.
func NewMongoTableLoader(key string, options ...LoaderOptionMongo) (*MongoTableLoader, error) {
	opts := &MongoLoaderOptions{
		URI:     "mongodb://localhost:27017",
		Filter:  bson.M{},
		Timeout: 30 * time.Second,
		Logger:  zerolog.Nop(),
	}
	for _, option := range options {
		option(opts)
	}

	if key == "" {
		return nil, &MongoLoaderError{Op: "validate", Err: fmt.Errorf("key is required")}
	}
	if opts.Database == "" {
		return nil, &MongoLoaderError{Op: "validate", Err: fmt.Errorf("database name is required")}
	}
	if opts.Collection == "" {
		return nil, &MongoLoaderError{Op: "validate", Err: fmt.Errorf("collection name is required")}
	}
	if opts.KeyField == "" || opts.ValueField == "" {
		return nil, &MongoLoaderError{Op: "validate", Err: fmt.Errorf("key and value fields are required")}
	}
	return &MongoTableLoader{key: key, opts: opts}, nil
}

// Key implements core.BatchLoader.
func (l *MongoTableLoader) Key() string { return l.key }

// Load implements core.BatchLoader. It connects, reads every matching
// document and disconnects.
func (l *MongoTableLoader) Load(ctx context.Context) (result any, err error) {
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(l.opts.URI))
	if err != nil {
		return nil, &MongoLoaderError{Op: "connect", Err: err}
	}
	defer func() {
		if derr := client.Disconnect(context.Background()); derr != nil && err == nil {
			err = &MongoLoaderError{Op: "disconnect", Err: derr}
		}
	}()

	if err := client.Ping(ctx, nil); err != nil {
		return nil, &MongoLoaderError{Op: "ping", Err: err}
	}

	collection := client.Database(l.opts.Database).Collection(l.opts.Collection)
	projection := bson.M{l.opts.KeyField: 1, l.opts.ValueField: 1}
	cursor, err := collection.Find(ctx, l.opts.Filter, options.Find().SetProjection(projection))
	if err != nil {
		return nil, &MongoLoaderError{Op: "find", Err: err}
	}
	defer cursor.Close(ctx)

	var pairs [][2]string
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, &MongoLoaderError{Op: "decode", Err: err}
		}
		pairs = append(pairs, documentPairs(doc, l.opts.KeyField, l.opts.ValueField)...)
	}
	if err := cursor.Err(); err != nil {
		return nil, &MongoLoaderError{Op: "cursor", Err: err}
	}

	table := TableFromPairs(pairs)
	l.opts.Logger.Debug().Str("loader", l.key).Str("collection", l.opts.Collection).Int("keys", table.Len()).Msg("mongo lookup loaded")
	return table, nil
}

// documentPairs extracts (key, value) pairs from one document. Array values
// yield one pair per element.
func documentPairs(doc bson.M, keyField, valueField string) [][2]string {
	k, ok := doc[keyField]
	if !ok || k == nil {
		return nil
	}
	key := bsonString(k)
	switch v := doc[valueField].(type) {
	case nil:
		return nil
	case bson.A:
		pairs := make([][2]string, 0, len(v))
		for _, item := range v {
			pairs = append(pairs, [2]string{key, bsonString(item)})
		}
		return pairs
	default:
		return [][2]string{{key, bsonString(v)}}
	}
}

// bsonString converts BSON scalars to their display form
func bsonString(value any) string {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
