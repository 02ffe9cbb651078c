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

// Package structural detects dead code by multi-table set difference over
// the indexed store, and computes the cheap per-file structural facts
// (fan-in/fan-out, reference cycles) that feed the STRUCTURAL vector.
package structural

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// Options configures dead-code detection.
type Options struct {
	PathFilter     string   // optional SQL LIKE pattern over file paths
	ExcludePaths   []string // substrings; any match excludes the file
	IncludeTests   bool
}

var defaultNameExclusions = map[string]bool{
	"main": true, "__init__": true, "__main__": true, "cli": true,
	"__repr__": true, "__str__": true,
}

// DetectAll runs every dead-code check and returns the combined findings,
// in (module, function, class) order.
func DetectAll(ctx context.Context, s *store.Store, opts Options) ([]model.DeadCodeFinding, error) {
	var out []model.DeadCodeFinding

	modules, err := detectIsolatedModules(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("structural: isolated modules: %w", err)
	}
	out = append(out, modules...)

	functions, err := detectDeadFunctions(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("structural: dead functions: %w", err)
	}
	out = append(out, functions...)

	classes, err := detectDeadClasses(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("structural: dead classes: %w", err)
	}
	out = append(out, classes...)

	return out, nil
}

func excluded(path string, opts Options) bool {
	if !opts.IncludeTests && strings.Contains(strings.ToLower(path), "test") {
		return true
	}
	for _, p := range opts.ExcludePaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// detectIsolatedModules finds files with symbols that are never
// referenced by an import, a string assignment, a call argument, or a
// JSX-style variable use of one of their own symbol names — the same
// multi-table set-difference the original deadcode detector performs,
// expressed as parameterized queries against the store's core tables.
func detectIsolatedModules(ctx context.Context, s *store.Store, opts Options) ([]model.DeadCodeFinding, error) {
	filesWithCode, err := filesWithSymbols(ctx, s, opts.PathFilter)
	if err != nil {
		return nil, err
	}
	if len(filesWithCode) == 0 {
		return nil, nil
	}

	referenced := make(map[string]bool)

	rows, err := s.Query(ctx, `SELECT DISTINCT value FROM refs WHERE kind IN ('from', 'import', 'dynamic_import')`)
	if err != nil {
		return nil, err
	}
	var refValues []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return nil, err
		}
		refValues = append(refValues, v)
	}
	rows.Close()
	for _, v := range refValues {
		markReferencedBySpecifier(referenced, filesWithCode, v)
	}

	markReferencedByExprColumn(ctx, s, referenced, filesWithCode,
		`SELECT DISTINCT source_expr FROM assignments WHERE source_expr LIKE '%.py%' OR source_expr LIKE '%.js%' OR source_expr LIKE '%/%'`)
	markReferencedByExprColumn(ctx, s, referenced, filesWithCode,
		`SELECT DISTINCT argument_expr FROM function_call_args WHERE argument_expr LIKE '%.py%' OR argument_expr LIKE '%.js%' OR argument_expr LIKE '%/%'`)

	if err := markReferencedByVariableUsage(ctx, s, referenced, filesWithCode); err != nil {
		return nil, err
	}

	var findings []model.DeadCodeFinding
	for file := range filesWithCode {
		if referenced[file] {
			continue
		}
		if excluded(file, opts) {
			continue
		}
		count, err := symbolCount(ctx, s, file)
		if err != nil {
			return nil, err
		}
		confidence, reason := classifyModule(file, count)
		findings = append(findings, model.DeadCodeFinding{
			Kind: model.DeadCodeModule, File: file, SymbolCount: count,
			Reason: reason, Confidence: confidence,
		})
	}
	return findings, nil
}

func filesWithSymbols(ctx context.Context, s *store.Store, pathFilter string) (map[string]bool, error) {
	query := "SELECT DISTINCT file FROM symbols"
	var args []any
	if pathFilter != "" {
		query += " WHERE file LIKE ?"
		args = append(args, pathFilter)
	}
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out[f] = true
	}
	return out, rows.Err()
}

// markReferencedBySpecifier applies the same heuristics as the original
// detector for turning an import specifier into a file-path match:
// path-alias stripping, dotted-module-to-path conversion, and substring
// containment as a last resort.
func markReferencedBySpecifier(referenced, files map[string]bool, specifier string) {
	for file := range files {
		if strings.Contains(specifier, "@/") {
			stripped := strings.ReplaceAll(specifier, "@/", "")
			if strings.Contains(file, stripped) {
				referenced[file] = true
			}
			continue
		}
		if strings.Contains(specifier, ".") && !strings.Contains(specifier, "/") {
			asPath := strings.ReplaceAll(specifier, ".", "/") + ".py"
			if asPath == file {
				referenced[file] = true
				continue
			}
		}
		if strings.Contains(file, specifier) {
			referenced[file] = true
		}
	}
}

func markReferencedByExprColumn(ctx context.Context, s *store.Store, referenced, files map[string]bool, query string) error {
	rows, err := s.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var expr string
		if err := rows.Scan(&expr); err != nil {
			return err
		}
		for file := range files {
			base := filepath.Base(file)
			if strings.Contains(expr, file) || strings.Contains(expr, base) {
				referenced[file] = true
			}
		}
	}
	return rows.Err()
}

// markReferencedByVariableUsage matches JSX-style component references
// (e.g. <POSHome />) back to the file defining a same-named symbol, so a
// component file isn't flagged dead just because nothing "calls" it in
// the ordinary function-call sense.
func markReferencedByVariableUsage(ctx context.Context, s *store.Store, referenced, files map[string]bool) error {
	rows, err := s.Query(ctx, `SELECT DISTINCT variable_name FROM variable_usage
		WHERE variable_name NOT LIKE '%.%' AND variable_name NOT LIKE '%(%'
		AND variable_name NOT IN ('React', 'useState', 'useEffect', 'children')`)
	if err != nil {
		return err
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return err
		}
		names = append(names, n)
	}
	rows.Close()
	if len(names) == 0 {
		return nil
	}

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		placeholders[i] = "?"
		args[i] = n
	}
	query := fmt.Sprintf(`SELECT DISTINCT file FROM symbols WHERE name IN (%s) AND type IN ('function', 'class', 'variable')`, strings.Join(placeholders, ","))
	rows2, err := s.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows2.Close()
	for rows2.Next() {
		var f string
		if err := rows2.Scan(&f); err != nil {
			return err
		}
		if files[f] {
			referenced[f] = true
		}
	}
	return rows2.Err()
}

func symbolCount(ctx context.Context, s *store.Store, file string) (int, error) {
	row := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols WHERE file = ?", file)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func classifyModule(file string, symbolCount int) (confidence, reason string) {
	lower := strings.ToLower(file)
	switch {
	case strings.HasSuffix(file, "__init__.py") && symbolCount == 0:
		return "low", "empty package marker"
	case strings.Contains(lower, "migration"):
		return "medium", "migration script, may be an external entry point"
	case strings.HasSuffix(file, "cli.py") || strings.HasSuffix(file, "__main__.py") || strings.HasSuffix(file, "main.py") || strings.HasSuffix(file, "main.go"):
		return "medium", "CLI/main entry point, may be invoked externally"
	default:
		return "high", "no references found anywhere"
	}
}

// detectDeadFunctions finds function/method symbols whose name never
// appears as a callee, a JSX-style variable use, or one of a small
// closed set of framework entry-point names.
func detectDeadFunctions(ctx context.Context, s *store.Store, opts Options) ([]model.DeadCodeFinding, error) {
	query := `SELECT s.file, s.name, s.line FROM symbols s
		WHERE s.type IN ('function', 'method')
		AND s.name NOT IN (SELECT DISTINCT callee_function FROM function_call_args)
		AND s.name NOT IN (
			SELECT DISTINCT variable_name FROM variable_usage
			WHERE variable_name NOT LIKE '%.%' AND variable_name NOT LIKE '%(%'
		)
		AND s.name NOT LIKE 'test\_%' ESCAPE '\'`
	var args []any
	if opts.PathFilter != "" {
		query += " AND s.file LIKE ?"
		args = append(args, opts.PathFilter)
	}

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []model.DeadCodeFinding
	for rows.Next() {
		var file, name string
		var line int
		if err := rows.Scan(&file, &name, &line); err != nil {
			return nil, err
		}
		if defaultNameExclusions[name] || excluded(file, opts) {
			continue
		}
		confidence, reason := classifyFunction(file, name)
		findings = append(findings, model.DeadCodeFinding{
			Kind: model.DeadCodeFunction, File: file, Name: name, Line: line,
			SymbolCount: 1, Reason: reason, Confidence: confidence,
		})
	}
	return findings, rows.Err()
}

func classifyFunction(file, name string) (confidence, reason string) {
	switch {
	case strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "__"):
		return "medium", "private function, may be an internal API"
	case strings.HasSuffix(file, "cli.py") || strings.HasSuffix(file, "main.py") || strings.HasSuffix(file, "__main__.py"):
		return "medium", "entry point file, may be invoked externally"
	default:
		return "high", "function defined but never called"
	}
}

// detectDeadClasses finds class symbols never instantiated (called as a
// function), referenced as a variable, imported, or assigned from.
// Base/Abstract-prefixed and Mixin/Exception/Error-suffixed names get no
// confidence reduction exemption here — they're excluded outright, since
// that naming convention means "not meant to be instantiated directly".
func detectDeadClasses(ctx context.Context, s *store.Store, opts Options) ([]model.DeadCodeFinding, error) {
	query := `SELECT s.file, s.name, s.line FROM symbols s
		WHERE s.type = 'class'
		AND s.name NOT IN (
			SELECT DISTINCT callee_function FROM function_call_args
			UNION SELECT DISTINCT variable_name FROM variable_usage
			UNION SELECT DISTINCT value FROM refs WHERE value NOT LIKE '%.%'
		)
		AND NOT EXISTS (SELECT 1 FROM assignments WHERE source_expr LIKE '%' || s.name || '%')
		AND s.name NOT LIKE 'Base%' AND s.name NOT LIKE 'Abstract%'
		AND s.name NOT LIKE '%Mixin' AND s.name NOT LIKE '%Exception' AND s.name NOT LIKE '%Error'`
	var args []any
	if opts.PathFilter != "" {
		query += " AND s.file LIKE ?"
		args = append(args, opts.PathFilter)
	}

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []model.DeadCodeFinding
	for rows.Next() {
		var file, name string
		var line int
		if err := rows.Scan(&file, &name, &line); err != nil {
			return nil, err
		}
		if excluded(file, opts) {
			continue
		}
		findings = append(findings, model.DeadCodeFinding{
			Kind: model.DeadCodeClass, File: file, Name: name, Line: line,
			SymbolCount: 1, Reason: "class defined but never instantiated", Confidence: "high",
		})
	}
	return findings, rows.Err()
}
