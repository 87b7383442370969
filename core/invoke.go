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
	"fmt"
)

// Invoke runs one record rule against record. A panic or a returned error is
// turned into a single error Diagnostic attributed to the rule; Invoke itself
// never fails.
func Invoke(ctx context.Context, batch *BatchContext, rule RecordRule, record *Record) (failed bool) {
	defer func() {
		if r := recover(); r != nil {
			record.AddDiagnostic(Error(fmt.Sprintf("rule execution failed: %v", r)).WithRule(rule.Name()))
			failed = true
		}
	}()
	if err := rule.Apply(ctx, batch, record); err != nil {
		record.AddDiagnostic(Error(fmt.Sprintf("rule execution failed: %v", err)).WithRule(rule.Name()))
		return true
	}
	return false
}
