// Copyright 2026 The FCE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// BuiltinRules are the find_<X> AST rules shipped with the engine,
// grouped by the language they apply to. Each is pure: it issues
// parameterized SELECTs against the store and never writes.
func BuiltinRules() []Rule {
	return []Rule{
		{Name: "find_sql_string_concat", Language: "go", Fn: findSQLStringConcat},
		{Name: "find_sql_string_concat_py", Language: "python", Fn: findSQLStringConcatPython},
		{Name: "find_dangerous_eval", Language: "js", Fn: findDangerousEval},
		{Name: "find_shell_true", Language: "python", Fn: findShellInjectionRisk},
		{Name: "find_hardcoded_secret_assignment", Fn: findHardcodedSecretAssignment},
	}
}

func workSetPlaceholders(workset []string) (string, []any) {
	if len(workset) == 0 {
		return "", nil
	}
	ph := make([]string, len(workset))
	args := make([]any, len(workset))
	for i, f := range workset {
		ph[i] = "?"
		args[i] = f
	}
	return strings.Join(ph, ","), args
}

// findSQLStringConcat flags Go calls into database/sql-style query
// methods whose argument expression is built by string concatenation
// rather than passed as a bound parameter.
func findSQLStringConcat(ctx context.Context, s *store.Store, workset []string) ([]model.Finding, error) {
	return findByCalleeArgPattern(ctx, s, workset, []string{"Query", "QueryRow", "Exec", "QueryContext", "ExecContext"},
		"+", "sql-string-concat", "sql-injection", model.SeverityHigh)
}

func findSQLStringConcatPython(ctx context.Context, s *store.Store, workset []string) ([]model.Finding, error) {
	return findByCalleeArgPattern(ctx, s, workset, []string{"execute", "executemany", "raw"},
		"%", "sql-string-format", "sql-injection", model.SeverityHigh)
}

func findDangerousEval(ctx context.Context, s *store.Store, workset []string) ([]model.Finding, error) {
	return findByCallee(ctx, s, workset, []string{"eval", "Function", "setTimeout", "setInterval"},
		"dangerous-eval", "code-injection", model.SeverityMedium)
}

func findShellInjectionRisk(ctx context.Context, s *store.Store, workset []string) ([]model.Finding, error) {
	rows, err := queryCalls(ctx, s, workset, []string{"run", "call", "Popen", "system"})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []model.Finding
	for {
		c, ok, err := rows.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !strings.Contains(c.argExpr, "shell=True") {
			continue
		}
		out = append(out, model.Finding{
			File:      c.file,
			Line:      c.line,
			Rule:      "find_shell_true",
			Tool:      "pattern-detector",
			Message:   fmt.Sprintf("subprocess call to %s uses shell=True with a non-literal argument", c.callee),
			Severity:  model.SeverityHigh,
			Category:  "command-injection",
			Timestamp: now,
			Details:   map[string]any{"callee": c.callee},
		})
	}
	return out, nil
}

// findHardcodedSecretAssignment flags variable assignments whose target
// name looks like a credential and whose source expression is a string
// literal rather than an environment lookup or config reference.
func findHardcodedSecretAssignment(ctx context.Context, s *store.Store, workset []string) ([]model.Finding, error) {
	placeholders, args := workSetPlaceholders(workset)
	if placeholders == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT file, line, target_var, source_expr FROM assignments
		WHERE file IN (%s)
		AND (lower(target_var) LIKE '%%secret%%' OR lower(target_var) LIKE '%%password%%'
			OR lower(target_var) LIKE '%%api_key%%' OR lower(target_var) LIKE '%%apikey%%'
			OR lower(target_var) LIKE '%%token%%')`, placeholders)

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pattern: find_hardcoded_secret_assignment: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var out []model.Finding
	for rows.Next() {
		var file, target, expr string
		var line int
		if err := rows.Scan(&file, &line, &target, &expr); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(expr)
		if !looksLikeStringLiteral(trimmed) {
			continue
		}
		if strings.Contains(trimmed, "os.Getenv") || strings.Contains(trimmed, "os.environ") || strings.Contains(trimmed, "process.env") {
			continue
		}
		out = append(out, model.Finding{
			File:      file,
			Line:      line,
			Rule:      "find_hardcoded_secret_assignment",
			Tool:      "pattern-detector",
			Message:   fmt.Sprintf("%s is assigned a literal value, suggesting a hardcoded credential", target),
			Severity:  model.SeverityCritical,
			Category:  "hardcoded-secret",
			Timestamp: now,
			Details:   map[string]any{"target_var": target},
		})
	}
	return out, rows.Err()
}

func looksLikeStringLiteral(expr string) bool {
	return (strings.HasPrefix(expr, `"`) && strings.HasSuffix(expr, `"`)) ||
		(strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'")) ||
		(strings.HasPrefix(expr, "`") && strings.HasSuffix(expr, "`"))
}

// findByCalleeArgPattern flags call sites whose callee is in names and
// whose argument expression contains the given operator, suggesting the
// query string was built dynamically rather than parameterized.
func findByCalleeArgPattern(ctx context.Context, s *store.Store, workset, names []string, operator, rule, category string, sev model.Severity) ([]model.Finding, error) {
	rows, err := queryCalls(ctx, s, workset, names)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []model.Finding
	for {
		c, ok, err := rows.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !strings.Contains(c.argExpr, operator) {
			continue
		}
		out = append(out, model.Finding{
			File:      c.file,
			Line:      c.line,
			Rule:      rule,
			Tool:      "pattern-detector",
			Message:   fmt.Sprintf("call to %s builds its argument with %q instead of a bound parameter", c.callee, operator),
			Severity:  sev,
			Category:  category,
			Timestamp: now,
			Details:   map[string]any{"callee": c.callee},
		})
	}
	return out, nil
}

func findByCallee(ctx context.Context, s *store.Store, workset, names []string, rule, category string, sev model.Severity) ([]model.Finding, error) {
	rows, err := queryCalls(ctx, s, workset, names)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []model.Finding
	for {
		c, ok, err := rows.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, model.Finding{
			File:      c.file,
			Line:      c.line,
			Rule:      rule,
			Tool:      "pattern-detector",
			Message:   fmt.Sprintf("call to %s with a non-constant argument", c.callee),
			Severity:  sev,
			Category:  category,
			Timestamp: now,
			Details:   map[string]any{"callee": c.callee},
		})
	}
	return out, nil
}

type callRow struct {
	file    string
	line    int
	callee  string
	argExpr string
}

// callCursor wraps *sql.Rows so callers can iterate without repeating
// the Scan/Close/Err boilerplate at every call site above.
type callCursor struct {
	rows *sql.Rows
}

func (c *callCursor) next() (callRow, bool, error) {
	if c.rows == nil || !c.rows.Next() {
		if c.rows != nil {
			c.rows.Close()
		}
		if c.rows == nil {
			return callRow{}, false, nil
		}
		return callRow{}, false, c.rows.Err()
	}
	var r callRow
	if err := c.rows.Scan(&r.file, &r.line, &r.callee, &r.argExpr); err != nil {
		c.rows.Close()
		return callRow{}, false, err
	}
	return r, true, nil
}

func queryCalls(ctx context.Context, s *store.Store, workset, calleeNames []string) (*callCursor, error) {
	wsPlaceholders, wsArgs := workSetPlaceholders(workset)
	if wsPlaceholders == "" {
		return &callCursor{rows: nil}, nil
	}
	calleePlaceholders := make([]string, len(calleeNames))
	args := append([]any{}, wsArgs...)
	for i, n := range calleeNames {
		calleePlaceholders[i] = "?"
		args = append(args, n)
	}
	query := fmt.Sprintf(`SELECT caller_file, caller_line, callee_function, argument_expression FROM calls
		WHERE caller_file IN (%s) AND callee_function IN (%s)`, wsPlaceholders, strings.Join(calleePlaceholders, ","))

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pattern: query calls: %w", err)
	}
	return &callCursor{rows: rows}, nil
}
