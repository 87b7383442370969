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

package readers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aaronlmathis/goimport/core"
)

// S3ReaderError provides structured error information for S3 reader operations
type S3ReaderError struct {
	Op  string // Operation that failed (e.g., "list_objects", "get_object", "read")
	Key string // Object key, when known
	Err error  // Underlying error
}

func (e *S3ReaderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 reader %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3 reader %s: %v", e.Op, e.Err)
}

func (e *S3ReaderError) Unwrap() error {
	return e.Err
}

// S3ReaderStats holds statistics about the S3 reader's performance
type S3ReaderStats struct {
	ObjectsListed  int64         // Total objects discovered
	ObjectsRead    int64         // Total objects successfully opened
	RecordsRead    int64         // Total rows read across all objects
	ReadDuration   time.Duration // Total time spent reading
	ObjectErrors   int64         // Number of objects that failed to open
	ProcessedFiles []string      // Objects opened, in order
}

// S3ReaderOptions configures the S3 reader behavior
type S3ReaderOptions struct {
	Bucket          string          // S3 bucket name
	Prefix          string          // Key prefix filter
	Suffix          string          // Key suffix filter (e.g., ".csv")
	MaxKeys         int32           // Page size for listing
	Region          string          // AWS region
	Profile         string          // AWS profile to use
	Credentials     aws.Credentials // Explicit credentials
	EndpointURL     string          // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle  bool            // Use path-style addressing
	Recursive       bool            // Include keys below the prefix's sub-directories
	IncludeMetadata bool            // Add _s3_key to every row
	Client          *s3.Client      // Prebuilt client; skips AWS config loading
}

// ReaderOptionS3 represents a configuration function for S3Reader
type ReaderOptionS3 func(*S3ReaderOptions)

func WithS3Bucket(bucket string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.Bucket = bucket }
}

func WithS3Prefix(prefix string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.Prefix = prefix }
}

func WithS3Suffix(suffix string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.Suffix = suffix }
}

func WithS3Region(region string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.Region = region }
}

func WithS3Profile(profile string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.Profile = profile }
}

func WithS3Credentials(creds aws.Credentials) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.Credentials = creds }
}

func WithS3Endpoint(endpoint string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.EndpointURL = endpoint }
}

func WithS3PathStyle(pathStyle bool) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.ForcePathStyle = pathStyle }
}

func WithS3Recursive(recursive bool) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.Recursive = recursive }
}

func WithS3IncludeMetadata(include bool) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.IncludeMetadata = include }
}

func WithS3Client(client *s3.Client) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) { opts.Client = client }
}

// S3Object represents an S3 object with metadata
type S3Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// S3Reader implements core.DataSource over every object below a bucket
// prefix, read in key order. Each object is decoded by the reader matching
// its extension.
type S3Reader struct {
	client        *s3.Client
	objects       []S3Object
	currentIndex  int
	currentReader core.DataSource
	stats         S3ReaderStats
	opts          S3ReaderOptions
	mu            sync.Mutex
}

// NewS3Reader creates a new S3 reader and lists the matching objects.
func NewS3Reader(ctx context.Context, options ...ReaderOptionS3) (*S3Reader, error) {
	opts := S3ReaderOptions{
		MaxKeys:   1000,
		Recursive: true,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Bucket == "" {
		return nil, &S3ReaderError{Op: "validate_options", Err: fmt.Errorf("bucket is required")}
	}

	client := opts.Client
	if client == nil {
		cfg, err := createAWSConfig(ctx, opts)
		if err != nil {
			return nil, &S3ReaderError{Op: "create_aws_config", Err: err}
		}
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.EndpointURL != "" {
				o.BaseEndpoint = aws.String(opts.EndpointURL)
			}
			o.UsePathStyle = opts.ForcePathStyle
		})
	}

	reader := &S3Reader{
		client: client,
		opts:   opts,
	}
	if err := reader.listObjects(ctx); err != nil {
		return nil, &S3ReaderError{Op: "list_objects", Err: err}
	}
	return reader, nil
}

// Read implements the core.DataSource interface
func (s *S3Reader) Read(ctx context.Context) (core.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		s.stats.ReadDuration += time.Since(start)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, &S3ReaderError{Op: "read", Err: ctx.Err()}
		default:
		}

		if s.currentReader == nil {
			if s.currentIndex >= len(s.objects) {
				return nil, io.EOF
			}
			if err := s.openNextObject(ctx); err != nil {
				s.stats.ObjectErrors++
				s.currentIndex++
				return nil, err
			}
		}

		row, err := s.currentReader.Read(ctx)
		if err == io.EOF {
			if cerr := s.closeCurrentReader(); cerr != nil {
				return nil, &S3ReaderError{Op: "close_object", Err: cerr}
			}
			continue
		}
		if err != nil {
			return nil, &S3ReaderError{Op: "read_record", Key: s.objects[s.currentIndex].Key, Err: err}
		}

		if s.opts.IncludeMetadata {
			row["_s3_key"] = s.objects[s.currentIndex].Key
		}
		s.stats.RecordsRead++
		return row, nil
	}
}

// Close implements the core.DataSource interface
func (s *S3Reader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCurrentReader()
}

// Stats returns S3 reader performance statistics
func (s *S3Reader) Stats() S3ReaderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Objects returns the list of S3 objects that will be/have been processed
func (s *S3Reader) Objects() []S3Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]S3Object(nil), s.objects...)
}

// createAWSConfig creates AWS configuration from options
func createAWSConfig(ctx context.Context, opts S3ReaderOptions) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	// Override with explicit credentials if provided
	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}

	return cfg, nil
}

// listObjects retrieves and filters objects from S3
func (s *S3Reader) listObjects(ctx context.Context) error {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.opts.Bucket),
		MaxKeys: aws.Int32(s.opts.MaxKeys),
	}
	if s.opts.Prefix != "" {
		input.Prefix = aws.String(s.opts.Prefix)
	}

	var objects []S3Object
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !s.shouldIncludeObject(key) {
				continue
			}
			objects = append(objects, S3Object{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	s.objects = objects
	s.stats.ObjectsListed = int64(len(objects))
	return nil
}

// shouldIncludeObject determines if an object should be processed
func (s *S3Reader) shouldIncludeObject(key string) bool {
	if strings.HasSuffix(key, "/") {
		return false
	}
	if s.opts.Suffix != "" && !strings.HasSuffix(key, s.opts.Suffix) {
		return false
	}
	if !s.opts.Recursive && strings.Contains(strings.TrimPrefix(key, s.opts.Prefix), "/") {
		return false
	}
	_, ok := formatForPath(key)
	return ok
}

// openNextObject opens the next S3 object for reading
func (s *S3Reader) openNextObject(ctx context.Context) error {
	obj := s.objects[s.currentIndex]

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return &S3ReaderError{Op: "get_object", Key: obj.Key, Err: err}
	}

	reader, err := s.createReaderForObject(result.Body, obj.Key)
	if err != nil {
		result.Body.Close()
		return &S3ReaderError{Op: "open_object", Key: obj.Key, Err: err}
	}

	s.currentReader = reader
	s.stats.ObjectsRead++
	s.stats.ProcessedFiles = append(s.stats.ProcessedFiles, obj.Key)
	return nil
}

// createReaderForObject creates the appropriate reader based on file extension
func (s *S3Reader) createReaderForObject(body io.ReadCloser, key string) (core.DataSource, error) {
	format, _ := formatForPath(key)
	switch format {
	case FormatCSV:
		return NewCSVReader(body)
	case FormatXLSX:
		return NewXLSXReader(body)
	case FormatParquet:
		// parquet needs random access
		defer body.Close()
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		return NewParquetReaderFrom(bytes.NewReader(data), nil)
	default:
		return NewJSONReader(body), nil
	}
}

// closeCurrentReader closes the current file reader
func (s *S3Reader) closeCurrentReader() error {
	if s.currentReader != nil {
		err := s.currentReader.Close()
		s.currentReader = nil
		s.currentIndex++
		return err
	}
	return nil
}

// formatForPath maps a file extension to a reader format.
func formatForPath(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, true
	case ".json", ".jsonl", ".ndjson":
		return FormatJSONL, true
	case ".xlsx", ".xlsm":
		return FormatXLSX, true
	case ".parquet":
		return FormatParquet, true
	default:
		return "", false
	}
}
