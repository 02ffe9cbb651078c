// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/fce/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), Config{Path: filepath.Join(dir, "fce.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)
	var name string
	err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='findings_consolidated'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "findings_consolidated", name)
}

func TestTableCount_AtLeast100(t *testing.T) {
	assert.GreaterOrEqual(t, TableCount(), 100, "schema must declare at least 100 tables")
}

func TestReadDetailRows_RoundTripsColumnsAndAttrs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteDetailRow(ctx, "python_security_findings", "app.py", 42,
		map[string]string{"rule": "sql-injection", "severity": "high", "cwe": "CWE-89"},
		map[string]any{"extra": "detail"}))

	rows, err := s.ReadDetailRows(ctx, "python_security_findings", "app.py")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 42, rows[0]["line"])
	assert.Equal(t, "sql-injection", rows[0]["rule"])
	attrs, ok := rows[0]["attrs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "detail", attrs["extra"])
}

func TestReadDetailRows_RejectsUnknownTable(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadDetailRows(context.Background(), "not_a_table", "app.py")
	assert.Error(t, err)
}

func TestOpen_ReopenSameSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fce.db")
	ctx := context.Background()

	s1, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, s1.WriteFinding(ctx, model.Finding{
		File: "a.go", Line: 1, Rule: "r1", Tool: "gosec", Severity: model.SeverityHigh, Timestamp: time.Now(),
	}))
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	var count int
	require.NoError(t, s2.DB().QueryRow("SELECT COUNT(*) FROM findings_consolidated").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpen_SchemaStaleDetected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fce.db")
	ctx := context.Background()

	s1, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	_, err = s1.DB().Exec("UPDATE schema_meta SET version = ? WHERE id = 1", SchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	_, err = Open(ctx, Config{Path: path})
	assert.ErrorIs(t, err, ErrSchemaStale)
}

// TestWriteFinding_SQLInjectionSafe exercises the literal property named
// in the spec: supplying a path containing "'; DROP TABLE
// findings_consolidated; --" must be stored as ordinary data, never
// executed as SQL.
func TestWriteFinding_SQLInjectionSafe(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	malicious := "'; DROP TABLE findings_consolidated; --"
	require.NoError(t, s.WriteFinding(ctx, model.Finding{
		File: malicious, Line: 1, Rule: "r1", Tool: "gosec", Severity: model.SeverityHigh, Timestamp: time.Now(),
	}))

	var name string
	err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='findings_consolidated'").Scan(&name)
	require.NoError(t, err, "table must still exist after a malicious file value is written")

	var stored string
	require.NoError(t, s.DB().QueryRow("SELECT file FROM findings_consolidated WHERE line = 1").Scan(&stored))
	assert.Equal(t, malicious, stored)
}

func TestWriteFinding_RejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	err := s.WriteFinding(context.Background(), model.Finding{Line: 1})
	assert.Error(t, err)
}

func TestWriteDetailRow_RejectsUnknownTable(t *testing.T) {
	s := openTestStore(t)
	err := s.WriteDetailRow(context.Background(), "not_a_real_table", "a.go", 1, nil, nil)
	assert.Error(t, err)
}

func TestWriteDetailRow_RejectsUnknownColumn(t *testing.T) {
	s := openTestStore(t)
	err := s.WriteDetailRow(context.Background(), "python_classes", "a.py", 1, map[string]string{"not_a_column": "x"}, nil)
	assert.Error(t, err)
}

func TestWriteDetailRow_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.WriteDetailRow(ctx, "python_classes", "a.py", 3, map[string]string{"class_name": "Foo", "bases": "Base"}, map[string]any{"extra": true})
	require.NoError(t, err)

	var className, bases string
	require.NoError(t, s.DB().QueryRow("SELECT class_name, bases FROM python_classes WHERE file = ? AND line = ?", "a.py", 3).Scan(&className, &bases))
	assert.Equal(t, "Foo", className)
	assert.Equal(t, "Base", bases)
}

func TestSemanticTableRegistry_Disjoint(t *testing.T) {
	seen := map[string]bool{}
	all := []map[string]bool{RiskSources, ContextProcess, ContextStructural, ContextFramework, ContextSecurity, ContextLanguage}
	for _, set := range all {
		for name := range set {
			assert.False(t, seen[name], "table %s must belong to exactly one registry set", name)
			seen[name] = true
		}
	}
	assert.NotEmpty(t, RiskSources)
	assert.NotEmpty(t, ContextLanguage)
}

func TestContextTablesForExtension_PythonOnlyPython(t *testing.T) {
	tables := ContextTablesForExtension(".py")
	foundPython, foundGo := false, false
	for _, name := range tables {
		if name == "python_classes" {
			foundPython = true
		}
		if name == "go_structs" {
			foundGo = true
		}
	}
	assert.True(t, foundPython)
	assert.False(t, foundGo)
}

func TestContextTablesForExtension_TSXPullsMultipleFrameworks(t *testing.T) {
	tables := ContextTablesForExtension(".tsx")
	want := map[string]bool{"react_components": false, "vue_components": false, "graphql_schema": false, "orm_models": false}
	for _, name := range tables {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		assert.True(t, found, "expected %s in .tsx context bundle", name)
	}
}
