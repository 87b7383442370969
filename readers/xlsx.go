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
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aaronlmathis/goimport/core"
)

// XLSXReaderError wraps structured error information for the XLSX reader.
type XLSXReaderError struct {
	Op  string
	Err error
}

func (e *XLSXReaderError) Error() string {
	return fmt.Sprintf("xlsx reader %s: %v", e.Op, e.Err)
}

func (e *XLSXReaderError) Unwrap() error {
	return e.Err
}

// XLSXReaderOptions configures the XLSX reader.
type XLSXReaderOptions struct {
	Sheet string // defaults to the first sheet
}

// ReaderOptionXLSX allows functional customization of XLSXReader.
type ReaderOptionXLSX func(*XLSXReaderOptions)

func WithXLSXSheet(sheet string) ReaderOptionXLSX {
	return func(o *XLSXReaderOptions) { o.Sheet = sheet }
}

// XLSXReader implements DataSource for Excel workbooks. The first non-empty
// row of the sheet holds the column names; empty rows are skipped.
type XLSXReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	closer  io.Closer
	sheet   string
	headers []string
}

// NewXLSXReader opens the workbook read from r.
func NewXLSXReader(r io.ReadCloser, options ...ReaderOptionXLSX) (*XLSXReader, error) {
	var opts XLSXReaderOptions
	for _, opt := range options {
		opt(&opts)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		r.Close()
		return nil, &XLSXReaderError{Op: "open", Err: err}
	}

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			r.Close()
			return nil, &XLSXReaderError{Op: "open", Err: errors.New("workbook has no sheets")}
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		r.Close()
		return nil, &XLSXReaderError{Op: "rows", Err: err}
	}

	reader := &XLSXReader{file: f, rows: rows, closer: r, sheet: sheet}
	headers, err := reader.nextRow()
	if err != nil {
		reader.Close()
		if err == io.EOF {
			return nil, &XLSXReaderError{Op: "read_headers", Err: fmt.Errorf("sheet %q is empty", sheet)}
		}
		return nil, &XLSXReaderError{Op: "read_headers", Err: err}
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	reader.headers = headers
	return reader, nil
}

// nextRow returns the next row with at least one non-blank cell.
func (x *XLSXReader) nextRow() ([]string, error) {
	for x.rows.Next() {
		cols, err := x.rows.Columns()
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if strings.TrimSpace(c) != "" {
				return cols, nil
			}
		}
	}
	if err := x.rows.Error(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Read implements the DataSource interface.
func (x *XLSXReader) Read(ctx context.Context) (core.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, &XLSXReaderError{Op: "read", Err: err}
	}

	cols, err := x.nextRow()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &XLSXReaderError{Op: "read_row", Err: err}
	}

	res := make(core.Row, len(x.headers))
	for i, h := range x.headers {
		if h == "" {
			continue
		}
		res[h] = nil
		if i < len(cols) && strings.TrimSpace(cols[i]) != "" {
			res[h] = cols[i]
		}
	}
	for i := len(x.headers); i < len(cols); i++ {
		if strings.TrimSpace(cols[i]) != "" {
			res["col_"+strconv.Itoa(i)] = cols[i]
		}
	}
	return res, nil
}

// Sheet returns the name of the sheet being read.
func (x *XLSXReader) Sheet() string { return x.sheet }

// Close implements the DataSource interface.
func (x *XLSXReader) Close() error {
	var errs []error
	if x.rows != nil {
		errs = append(errs, x.rows.Close())
		x.rows = nil
	}
	if x.file != nil {
		errs = append(errs, x.file.Close())
		x.file = nil
	}
	if x.closer != nil {
		errs = append(errs, x.closer.Close())
		x.closer = nil
	}
	return errors.Join(errs...)
}
