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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// This file implements a batch loader that fetches one JSON document over
// HTTP, with authentication, retries and a dotted data path.

// HTTPLoaderError provides structured error information for HTTP loader operations
type HTTPLoaderError struct {
	Op         string // Operation that failed (e.g., "request", "auth", "parse")
	StatusCode int    // HTTP status code if applicable
	URL        string // URL being accessed when error occurred
	Err        error  // Underlying error
}

func (e *HTTPLoaderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("http loader %s [%d] %s: %v", e.Op, e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("http loader %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *HTTPLoaderError) Unwrap() error {
	return e.Err
}

// AuthConfig defines authentication configuration
type AuthConfig struct {
	Type        string // "bearer", "basic", "apikey"
	Token       string // Bearer token
	Username    string // For basic auth
	Password    string // For basic auth
	HeaderName  string // Header name for API key
	HeaderValue string // API key value
	QueryParam  string // Query parameter name for API key
}

// HTTPLoaderOptions configures the HTTP loader
type HTTPLoaderOptions struct {
	Method           string            // HTTP method (default: GET)
	Headers          map[string]string // Additional headers
	Auth             *AuthConfig       // Authentication configuration
	Timeout          time.Duration     // Request timeout
	RetryAttempts    int               // Number of retry attempts
	RetryDelay       time.Duration     // Base delay between retries
	DataPath         string            // Dotted path of the value to keep
	AsTable          bool              // Convert the extracted object into a *Table
	MaxResponseSize  int64             // Maximum response size in bytes
	ValidStatusCodes []int             // Valid HTTP status codes
	UserAgent        string            // User agent string
	CustomClient     *http.Client      // Custom HTTP client
	Logger           zerolog.Logger
}

// LoaderOptionHTTP is a functional option for HTTPLoaderOptions
type LoaderOptionHTTP func(*HTTPLoaderOptions)

func WithHTTPMethod(method string) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) { opts.Method = method }
}

func WithHTTPHeaders(headers map[string]string) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) {
		for k, v := range headers {
			opts.Headers[k] = v
		}
	}
}

func WithHTTPBearerToken(token string) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) {
		opts.Auth = &AuthConfig{Type: "bearer", Token: token}
	}
}

func WithHTTPBasicAuth(username, password string) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) {
		opts.Auth = &AuthConfig{Type: "basic", Username: username, Password: password}
	}
}

func WithHTTPAPIKey(headerName, apiKey string) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) {
		opts.Auth = &AuthConfig{Type: "apikey", HeaderName: headerName, HeaderValue: apiKey}
	}
}

func WithHTTPTimeout(timeout time.Duration) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) { opts.Timeout = timeout }
}

func WithHTTPRetries(attempts int, delay time.Duration) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) {
		opts.RetryAttempts = attempts
		opts.RetryDelay = delay
	}
}

// WithHTTPDataPath keeps only the value at path, e.g. "info.postgres.status".
func WithHTTPDataPath(path string) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) { opts.DataPath = path }
}

// WithHTTPTable converts the extracted object into a *Table.
func WithHTTPTable() LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) { opts.AsTable = true }
}

func WithHTTPClient(client *http.Client) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) { opts.CustomClient = client }
}

func WithHTTPLogger(logger zerolog.Logger) LoaderOptionHTTP {
	return func(opts *HTTPLoaderOptions) { opts.Logger = logger }
}

// HTTPLoader implements core.BatchLoader for a JSON HTTP endpoint.
type HTTPLoader struct {
	key    string
	url    string
	client *http.Client
	opts   *HTTPLoaderOptions
}

// NewHTTPLoader creates a loader storing the fetched value under key.
func NewHTTPLoader(key, url string, options ...LoaderOptionHTTP) (*HTTPLoader, error) {
	if key == "" {
		return nil, fmt.Errorf("http loader requires a key")
	}
	if url == "" {
		return nil, fmt.Errorf("http loader %s requires a url", key)
	}
	opts := &HTTPLoaderOptions{
		Method:           http.MethodGet,
		Headers:          map[string]string{"Accept": "application/json"},
		Timeout:          30 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		MaxResponseSize:  10 * 1024 * 1024, // 10MB
		ValidStatusCodes: []int{200},
		UserAgent:        "GoImport-HTTPLoader/1.0",
		Logger:           zerolog.Nop(),
	}
	for _, option := range options {
		option(opts)
	}

	client := opts.CustomClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPLoader{key: key, url: url, client: client, opts: opts}, nil
}

// Key implements core.BatchLoader.
func (hl *HTTPLoader) Key() string { return hl.key }

// Load implements core.BatchLoader. It performs one request (plus retries).
func (hl *HTTPLoader) Load(ctx context.Context) (any, error) {
	start := time.Now()
	data, err := hl.executeRequestWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &HTTPLoaderError{Op: "parse", URL: hl.url, Err: err}
	}

	value, err := extractDataFromPath(doc, hl.opts.DataPath)
	if err != nil {
		return nil, &HTTPLoaderError{Op: "extract", URL: hl.url, Err: err}
	}

	hl.opts.Logger.Debug().
		Str("loader", hl.key).
		Str("url", hl.url).
		Int("bytes", len(data)).
		Dur("took", time.Since(start)).
		Msg("http lookup loaded")

	if hl.opts.AsTable {
		table, err := tableFromAny(value)
		if err != nil {
			return nil, &HTTPLoaderError{Op: "table", URL: hl.url, Err: err}
		}
		return table, nil
	}
	return value, nil
}

// executeRequestWithRetry executes HTTP request with retry logic
func (hl *HTTPLoader) executeRequestWithRetry(ctx context.Context) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= hl.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := hl.opts.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			hl.opts.Logger.Warn().Str("loader", hl.key).Int("attempt", attempt).Err(lastErr).Msg("retrying http lookup")
		}

		data, err := hl.executeRequest(ctx)
		if err == nil {
			return data, nil
		}

		lastErr = err

		// Only rate limits and server errors are retried
		if httpErr, ok := err.(*HTTPLoaderError); ok {
			if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500 {
				continue
			}
			break
		}
	}

	return nil, lastErr
}

// executeRequest executes a single HTTP request
func (hl *HTTPLoader) executeRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, hl.opts.Method, hl.url, nil)
	if err != nil {
		return nil, &HTTPLoaderError{Op: "create_request", URL: hl.url, Err: err}
	}

	req.Header.Set("User-Agent", hl.opts.UserAgent)
	for k, v := range hl.opts.Headers {
		req.Header.Set(k, v)
	}

	if err := addAuthentication(req, hl.opts.Auth); err != nil {
		return nil, &HTTPLoaderError{Op: "auth", URL: hl.url, Err: err}
	}

	resp, err := hl.client.Do(req)
	if err != nil {
		return nil, &HTTPLoaderError{Op: "request", URL: hl.url, Err: err}
	}
	defer resp.Body.Close()

	if !hl.isValidStatusCode(resp.StatusCode) {
		return nil, &HTTPLoaderError{
			Op:         "status_check",
			URL:        hl.url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, hl.opts.MaxResponseSize))
	if err != nil {
		return nil, &HTTPLoaderError{Op: "read_response", URL: hl.url, Err: err}
	}
	return data, nil
}

// addAuthentication adds authentication to the request
func addAuthentication(req *http.Request, auth *AuthConfig) error {
	if auth == nil {
		return nil
	}

	switch auth.Type {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case "basic":
		req.SetBasicAuth(auth.Username, auth.Password)
	case "apikey":
		if auth.HeaderName != "" {
			req.Header.Set(auth.HeaderName, auth.HeaderValue)
		}
		if auth.QueryParam != "" {
			q := req.URL.Query()
			q.Set(auth.QueryParam, auth.HeaderValue)
			req.URL.RawQuery = q.Encode()
		}
	default:
		return fmt.Errorf("unsupported auth type: %s", auth.Type)
	}

	return nil
}

// extractDataFromPath extracts data using a simple dotted path
func extractDataFromPath(data any, path string) (any, error) {
	current := data
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot traverse path %s: expected object", part)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("path element %s not found", part)
		}
	}
	return current, nil
}

// isValidStatusCode checks if the status code is considered valid
func (hl *HTTPLoader) isValidStatusCode(statusCode int) bool {
	for _, validCode := range hl.opts.ValidStatusCodes {
		if statusCode == validCode {
			return true
		}
	}
	return false
}
