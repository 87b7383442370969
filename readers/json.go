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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aaronlmathis/goimport/core"
)

// JSONReader implements DataSource for JSON lines files. Blank lines are
// skipped.
type JSONReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewJSONReader creates a new JSON reader for line-delimited JSON
func NewJSONReader(r io.ReadCloser) *JSONReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &JSONReader{
		scanner: scanner,
		closer:  r,
	}
}

// Read implements the DataSource interface
func (j *JSONReader) Read(ctx context.Context) (core.Row, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !j.scanner.Scan() {
			if err := j.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		j.line++

		line := j.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var row core.Row
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", j.line, err)
		}
		for k, v := range row {
			row[k] = normalizeJSON(v)
		}
		return row, nil
	}
}

// normalizeJSON turns json.Number into float64 and flattens nested values to
// their JSON text.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return x
	default:
		return x
	}
}

// Close implements the DataSource interface
func (j *JSONReader) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
