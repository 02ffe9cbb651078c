// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

func writePatternFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPatternDir_CompilesRegexOnce(t *testing.T) {
	dir := t.TempDir()
	writePatternFile(t, dir, "secrets.yml", `
patterns:
  - name: hardcoded-password
    description: "literal password assignment"
    severity: high
    category: hardcoded-secret
    regex: 'password\s*=\s*"[^"]+"'
    path_filter: "*.py"
`)
	compiled, err := LoadPatternDir(dir)
	require.NoError(t, err)
	require.Len(t, compiled, 1)
	assert.Equal(t, "hardcoded-password", compiled[0].Def.Name)
	assert.True(t, compiled[0].Regex.MatchString(`password = "hunter2"`))
}

func TestLoadPatternDir_RecursesIntoFrameworksSubdir(t *testing.T) {
	dir := t.TempDir()
	writePatternFile(t, dir, "core.yml", `
patterns:
  - {name: p1, description: d, severity: low, category: c, regex: 'x', path_filter: ""}
`)
	writePatternFile(t, dir, "frameworks/django.yml", `
patterns:
  - {name: p2, description: d, severity: low, category: c, regex: 'y', path_filter: ""}
`)
	compiled, err := LoadPatternDir(dir)
	require.NoError(t, err)
	assert.Len(t, compiled, 2)
}

func TestDefaultPatterns_LoadAndCompile(t *testing.T) {
	compiled, err := DefaultPatterns()
	require.NoError(t, err)
	assert.Greater(t, len(compiled), 0)
	names := map[string]bool{}
	for _, c := range compiled {
		names[c.Def.Name] = true
	}
	assert.True(t, names["hardcoded-aws-key"])
}

func TestMatchesPathFilter(t *testing.T) {
	assert.True(t, matchesPathFilter("a/b/settings.py", "settings.py"))
	assert.True(t, matchesPathFilter("a/b/c.py", "*.py"))
	assert.False(t, matchesPathFilter("a/b/c.js", "*.py"))
	assert.True(t, matchesPathFilter("anything", ""))
}

func TestEngine_RunPatterns_EmitsFindingWithLocation(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "app.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\npassword = \"hunter2\"\ny = 2\n"), 0o644))

	patterns := []CompiledPattern{
		{
			Def:        PatternDef{Name: "hardcoded-password", Description: "literal password", Severity: "high", Category: "hardcoded-secret", PathFilter: "*.py"},
			Regex:      regexp.MustCompile(`password\s*=\s*"[^"]+"`),
			SourceFile: "secrets.yml",
		},
	}
	engine := NewEngine(patterns, nil)
	findings, err := engine.RunPatterns(root, []string{"app.py"})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "app.py", findings[0].File)
	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, "pattern-detector", findings[0].Tool)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
}

func TestRulesForWorkset_FiltersByExtension(t *testing.T) {
	rules := BuiltinRules()
	goOnly := RulesForWorkset(rules, []string{"main.go"})
	for _, r := range goOnly {
		assert.NotEqual(t, "python", r.Language)
	}

	pyOnly := RulesForWorkset(rules, []string{"app.py"})
	foundPy := false
	for _, r := range pyOnly {
		if r.Language == "python" {
			foundPy = true
		}
		assert.NotEqual(t, "go", r.Language)
	}
	assert.True(t, foundPy)
}

func TestFindHardcodedSecretAssignment_SkipsEnvLookup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteAssignment(ctx, model.Assignment{File: "a.go", Line: 10, Target: "apiKey", SourceExpr: `"sk-live-abc123"`}))
	require.NoError(t, s.WriteAssignment(ctx, model.Assignment{File: "a.go", Line: 11, Target: "apiToken", SourceExpr: `os.Getenv("TOKEN")`}))

	findings, err := findHardcodedSecretAssignment(ctx, s, []string{"a.go"})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 10, findings[0].Line)
}

func TestFindSQLStringConcat_FlagsConcatenatedQuery(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteCall(ctx, model.Call{CallerFile: "db.go", CallerLine: 5, Callee: "Query", ArgExpr: `"SELECT * FROM users WHERE id = " + id`}))
	require.NoError(t, s.WriteCall(ctx, model.Call{CallerFile: "db.go", CallerLine: 9, Callee: "Query", ArgExpr: `"SELECT * FROM users WHERE id = ?", id`}))

	findings, err := findSQLStringConcat(ctx, s, []string{"db.go"})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 5, findings[0].Line)
}

func TestIntrospect_GroupsBySourceAndLanguage(t *testing.T) {
	patterns := []CompiledPattern{
		{Def: PatternDef{Name: "p1"}, SourceFile: "security.yml"},
		{Def: PatternDef{Name: "p2"}, SourceFile: "security.yml"},
	}
	rules := []Rule{{Name: "find_x", Language: "go"}, {Name: "find_y"}}

	report := Introspect(patterns, rules)
	assert.Equal(t, 2, report.TotalPatterns)
	assert.Equal(t, 2, report.TotalRules)
	assert.ElementsMatch(t, []string{"p1", "p2"}, report.PatternsBySourceFile["security.yml"])
	assert.ElementsMatch(t, []string{"find_x"}, report.RulesByLanguage["go"])
	assert.ElementsMatch(t, []string{"find_y"}, report.RulesByLanguage["generic"])
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
