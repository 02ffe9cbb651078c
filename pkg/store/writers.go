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

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/faultline/fce/pkg/model"
)

// All writers below bind every value through a placeholder (?); none
// ever format a value into the SQL string. Table and column names come
// solely from the fixed schema in schema.go, never from request data.

func (s *Store) WriteFile(ctx context.Context, path, language, sha256 string, sizeBytes int64) error {
	m := s.lockTable("files")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO files (path, language, sha256, size_bytes, last_seen)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(path) DO UPDATE SET sha256 = excluded.sha256, size_bytes = excluded.size_bytes, last_seen = datetime('now')`,
		path, language, sha256, sizeBytes)
	return err
}

func (s *Store) WriteSymbol(ctx context.Context, sym model.Symbol) error {
	m := s.lockTable("symbols")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO symbols (file, line, end_line, type, name, signature, in_function, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.File, sym.Line, sym.EndLine, sym.Type, sym.Name, sym.Signature, sym.InFunction, sym.ContentHash)
	return err
}

// ReadSymbols returns every indexed symbol, ordered by file then line.
// The FCE correlator uses it to attach the nearest enclosing symbol to
// a hotspot (§4.8 step 2).
func (s *Store) ReadSymbols(ctx context.Context) ([]model.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, file, line, end_line, type, name, signature, in_function, content_hash
		FROM symbols ORDER BY file, line`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var sym model.Symbol
		var signature, inFunction, contentHash sql.NullString
		if err := rows.Scan(&sym.ID, &sym.File, &sym.Line, &sym.EndLine, &sym.Type, &sym.Name, &signature, &inFunction, &contentHash); err != nil {
			return nil, err
		}
		sym.Signature = signature.String
		sym.InFunction = inFunction.String
		sym.ContentHash = contentHash.String
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *Store) WriteRef(ctx context.Context, ref model.Ref) error {
	m := s.lockTable("refs")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO refs (src_file, kind, value, line) VALUES (?, ?, ?, ?)`,
		ref.SrcFile, ref.Kind, ref.Value, ref.Line)
	return err
}

func (s *Store) WriteCall(ctx context.Context, c model.Call) error {
	m := s.lockTable("calls")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO calls (caller_file, caller_function, caller_line, callee_function, argument_expression)
		VALUES (?, ?, ?, ?, ?)`,
		c.CallerFile, c.CallerFunc, c.CallerLine, c.Callee, c.ArgExpr)
	return err
}

func (s *Store) WriteAssignment(ctx context.Context, a model.Assignment) error {
	m := s.lockTable("assignments")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO assignments (file, line, target_var, source_expr, in_function, property_path)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.File, a.Line, a.Target, a.SourceExpr, a.InFunction, a.PropertyPath)
	return err
}

func (s *Store) WriteFinding(ctx context.Context, f model.Finding) error {
	if !f.Valid() {
		return fmt.Errorf("store: invalid finding (file/tool/rule must be set): %+v", f)
	}
	details, err := json.Marshal(f.Details)
	if err != nil {
		return fmt.Errorf("store: marshal finding details: %w", err)
	}
	m := s.lockTable("findings_consolidated")
	m.Lock()
	defer m.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT INTO findings_consolidated
		(file, line, end_line, rule, tool, message, severity, category, cwe, confidence, code_snippet, timestamp, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.File, f.Line, f.EndLine, f.Rule, f.Tool, f.Message, string(f.Severity), f.Category,
		f.CWE, f.Confidence, f.Snippet, f.Timestamp.Format(timeLayout), string(details))
	return err
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func (s *Store) WriteTaintFlow(ctx context.Context, t model.TaintFlow) error {
	steps, err := json.Marshal(t.IntermediateSteps)
	if err != nil {
		return fmt.Errorf("store: marshal taint steps: %w", err)
	}
	m := s.lockTable("taint_flows")
	m.Lock()
	defer m.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT INTO taint_flows
		(source_file, source_line, source_pattern, sink_file, sink_line, sink_pattern, vulnerability_type, confidence, steps_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SourceFile, t.SourceLine, t.SourcePattern, t.SinkFile, t.SinkLine, t.SinkPattern,
		t.VulnerabilityType, t.Confidence, string(steps))
	return err
}

func (s *Store) WriteFrameworkRecord(ctx context.Context, f model.FrameworkRecord) error {
	m := s.lockTable("framework_records")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO framework_records (framework_name, language, path, version, source, category)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.Name, f.Language, f.Path, f.Version, f.Source, f.Category)
	return err
}

func (s *Store) WriteConvergencePoint(ctx context.Context, c model.ConvergencePoint, factIDs []int64) error {
	ids, err := json.Marshal(factIDs)
	if err != nil {
		return fmt.Errorf("store: marshal fact ids: %w", err)
	}
	m := s.lockTable("convergence_points")
	m.Lock()
	defer m.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT INTO convergence_points (file, line_start, line_end, vector_code, vector_count, density, fact_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.File, c.LineStart, c.LineEnd, c.Signal.Code(), c.Signal.VectorCount, c.Signal.Density, string(ids))
	return err
}

func (s *Store) WriteCorrelationMatch(ctx context.Context, cl model.FactualCluster) error {
	m := s.lockTable("correlation_rule_matches")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO correlation_rule_matches (rule_name, file, description, confidence)
		VALUES (?, ?, ?, ?)`,
		cl.Name, cl.File, cl.Description, cl.Confidence)
	return err
}

func (s *Store) WriteToolRun(ctx context.Context, runID string, t model.ToolRun) error {
	m := s.lockTable("tool_runs")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO tool_runs (run_id, tool, status, findings_count, detail)
		VALUES (?, ?, ?, ?, ?)`,
		runID, t.Tool, t.Status, t.FindingsCount, t.Detail)
	return err
}

func (s *Store) WritePhaseResult(ctx context.Context, runID, name, status string, elapsedMS int64, exitCode, findingsCount int, stderr string) error {
	m := s.lockTable("phase_results")
	m.Lock()
	defer m.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO phase_results (run_id, name, status, elapsed_ms, exit_code, findings_count, stderr)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, name, status, elapsedMS, exitCode, findingsCount, stderr)
	return err
}

func (s *Store) WriteWorksetManifest(ctx context.Context, runID string, files []model.WorksetFile) error {
	m := s.lockTable("workset_manifest")
	m.Lock()
	defer m.Unlock()
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO workset_manifest (run_id, path, sha256) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range files {
			if _, err := stmt.ExecContext(ctx, runID, f.Path, f.SHA256); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteDetailRow inserts one row into any of the generic detail tables
// declared in schema.go (the ≥100 extraction/context tables beyond the
// hand-modeled core ones). cols must name only columns that exist on
// that table; unrecognized keys are rejected rather than silently
// dropped, since a typo there would otherwise vanish a fact. Column
// names are validated against the fixed schema before being spliced
// into the statement text — only then is it safe to treat them as
// trusted identifiers; every value is still bound as a placeholder.
func (s *Store) WriteDetailRow(ctx context.Context, table, file string, line int, cols map[string]string, attrs map[string]any) error {
	allowed, ok := detailColumns[table]
	if !ok {
		return fmt.Errorf("store: %q is not a registered detail table", table)
	}
	for k := range cols {
		if !allowed[k] {
			return fmt.Errorf("store: column %q is not defined on table %q", k, table)
		}
	}

	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("store: marshal attrs: %w", err)
	}

	names := make([]string, 0, len(cols)+3)
	placeholders := make([]string, 0, len(cols)+3)
	values := make([]any, 0, len(cols)+3)

	names = append(names, "file", "line", "attrs")
	placeholders = append(placeholders, "?", "?", "?")
	values = append(values, file, line, string(attrsJSON))

	// Deterministic column order keeps generated SQL (and therefore test
	// expectations) stable across runs.
	keys := make([]string, 0, len(cols))
	for k := range cols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		names = append(names, k)
		placeholders = append(placeholders, "?")
		values = append(values, cols[k])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	m := s.lockTable(table)
	m.Lock()
	defer m.Unlock()
	_, err = s.db.ExecContext(ctx, query, values...)
	return err
}

// detailColumns is built once at init from the same tableDef literals
// DDL() renders from, so WriteDetailRow's column whitelist can never
// drift out of sync with the schema.
var detailColumns = buildDetailColumns()

// IsDetailTable reports whether name is one of the generic (file, line,
// attrs, ...) detail tables ReadDetailRows/WriteDetailRow can operate on.
// Hand-modeled core tables in a different shape (e.g. framework_records,
// keyed by path rather than file+line) are not detail tables even when
// their TableGroup places them in a context set.
func IsDetailTable(name string) bool {
	_, ok := detailColumns[name]
	return ok
}

// ReadDetailRows returns every row of a registered detail table for the
// given file, as an ordered list of column->value maps (attrs already
// JSON-decoded into the map under the key "attrs" as a nested
// map[string]any). table is checked against the same whitelist
// WriteDetailRow uses before it is spliced into the query text, so only
// schema-declared table names ever reach raw SQL.
func (s *Store) ReadDetailRows(ctx context.Context, table, file string) ([]map[string]any, error) {
	if _, ok := detailColumns[table]; !ok {
		return nil, fmt.Errorf("store: %q is not a registered detail table", table)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE file = ? ORDER BY line", table), file)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if c == "attrs" {
				if s, ok := raw[i].(string); ok && s != "" {
					var decoded map[string]any
					if json.Unmarshal([]byte(s), &decoded) == nil {
						row["attrs"] = decoded
						continue
					}
				}
			}
			row[c] = raw[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func buildDetailColumns() map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, t := range detailGroupTables {
		cols := map[string]bool{}
		for _, part := range strings.Split(t.columns, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name := strings.Fields(part)[0]
			switch name {
			case "id", "file", "line", "created_at", "attrs":
				continue // always-present columns, not part of the caller-supplied set
			}
			cols[name] = true
		}
		out[t.name] = cols
	}
	return out
}
