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
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTable(t *testing.T) {
	table := TableFromPairs([][2]string{
		{"Chase", "021000021"},
		{"Chase", "021000021"},
		{"Chase", "322271627"},
		{"Citi", "021000089"},
	})
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"Chase", "Citi"}, table.Keys())

	v, ok := table.Lookup("Chase")
	require.True(t, ok)
	assert.Equal(t, []string{"021000021", "322271627"}, v)

	v[0] = "changed"
	again, _ := table.Lookup("Chase")
	assert.Equal(t, "021000021", again[0])

	_, ok = table.Lookup("Wells")
	assert.False(t, ok)

	var nilTable *Table
	_, ok = nilTable.Lookup("x")
	assert.False(t, ok)
	assert.Zero(t, nilTable.Len())
}

func TestHTTPLoader(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"banks":{"Chase":["021000021","322271627"],"Citi":"021000089"}}}`))
	}))
	defer srv.Close()

	loader, err := NewHTTPLoader("banks", srv.URL,
		WithHTTPBearerToken("secret"),
		WithHTTPDataPath("data.banks"),
		WithHTTPTable(),
		WithHTTPRetries(2, time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, "banks", loader.Key())

	v, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	table, ok := v.(*Table)
	require.True(t, ok)
	routing, ok := table.Lookup("Citi")
	require.True(t, ok)
	assert.Equal(t, []string{"021000089"}, routing)
}

func TestHTTPLoader_Errors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte(`{"data":[1,2]}`))
		}
	}))
	defer srv.Close()

	loader, err := NewHTTPLoader("x", srv.URL+"/missing", WithHTTPRetries(3, time.Millisecond))
	require.NoError(t, err)
	_, err = loader.Load(context.Background())
	var httpErr *HTTPLoaderError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load(), "client errors are not retried")

	loader, err = NewHTTPLoader("x", srv.URL+"/list", WithHTTPDataPath("data"), WithHTTPTable())
	require.NoError(t, err)
	_, err = loader.Load(context.Background())
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "table", httpErr.Op)

	loader, err = NewHTTPLoader("x", srv.URL+"/list", WithHTTPDataPath("data.nested"))
	require.NoError(t, err)
	_, err = loader.Load(context.Background())
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "extract", httpErr.Op)

	_, err = NewHTTPLoader("", srv.URL)
	assert.Error(t, err)
}

func TestSQLTableLoader(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE states (country TEXT, code TEXT);
		INSERT INTO states VALUES ('US', 'CA'), ('US', 'NY'), ('CA', 'ON'), (NULL, 'XX');`)
	require.NoError(t, err)

	loader, err := NewSQLTableLoader("states",
		WithSQLDB(db),
		WithSQLQuery("SELECT country, code FROM states WHERE code <> ? ORDER BY code", "ZZ"),
	)
	require.NoError(t, err)

	v, err := loader.Load(context.Background())
	require.NoError(t, err)
	table := v.(*Table)
	assert.Equal(t, []string{"CA", "US"}, table.Keys())
	codes, _ := table.Lookup("US")
	assert.Equal(t, []string{"CA", "NY"}, codes)

	bad, err := NewSQLTableLoader("x", WithSQLDB(db), WithSQLQuery("SELECT code FROM states"))
	require.NoError(t, err)
	_, err = bad.Load(context.Background())
	var sqlErr *SQLLoaderError
	require.ErrorAs(t, err, &sqlErr)
	assert.Equal(t, "columns", sqlErr.Op)
}

func TestSQLTableLoader_Validation(t *testing.T) {
	_, err := NewSQLTableLoader("x", WithSQLDriver("oracle", "dsn"), WithSQLQuery("SELECT 1, 2"))
	assert.Error(t, err)
	_, err = NewSQLTableLoader("x", WithSQLDriver("postgres", ""), WithSQLQuery("SELECT 1, 2"))
	assert.Error(t, err)
	_, err = NewSQLTableLoader("x", WithSQLDriver("sqlite", ":memory:"))
	assert.Error(t, err)
	_, err = NewSQLTableLoader("", WithSQLDriver("mysql", "user@/db"), WithSQLQuery("SELECT 1, 2"))
	assert.Error(t, err)
}

func TestMongoTableLoader_Validation(t *testing.T) {
	_, err := NewMongoTableLoader("x", WithMongoFields("k", "v"))
	assert.Error(t, err)

	loader, err := NewMongoTableLoader("banks",
		WithMongoCollection("ref", "banks"),
		WithMongoFields("name", "routing"),
	)
	require.NoError(t, err)
	assert.Equal(t, "banks", loader.Key())
}

func TestDocumentPairs(t *testing.T) {
	id := primitive.NewObjectID()
	pairs := documentPairs(bson.M{"name": "Chase", "routing": bson.A{"1", int32(2)}}, "name", "routing")
	assert.Equal(t, [][2]string{{"Chase", "1"}, {"Chase", "2"}}, pairs)

	pairs = documentPairs(bson.M{"name": id, "routing": "x"}, "name", "routing")
	assert.Equal(t, [][2]string{{id.Hex(), "x"}}, pairs)

	assert.Nil(t, documentPairs(bson.M{"routing": "x"}, "name", "routing"))
	assert.Nil(t, documentPairs(bson.M{"name": "a"}, "name", "routing"))
}
