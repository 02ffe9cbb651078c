// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package fce

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mkFinding(file string, line int, tool, rule string, sev model.Severity) model.Finding {
	return model.Finding{
		File: file, Line: line, Rule: rule, Tool: tool, Message: "x",
		Severity: sev, Timestamp: time.Unix(0, 0),
	}
}

// TestDetectHotspots_RequiresTwoDistinctTools is spec.md §8 scenario 1:
// a (file, line) touched by two different tools is a hotspot; the same
// line touched twice by one tool is not.
func TestDetectHotspots_RequiresTwoDistinctTools(t *testing.T) {
	findings := []model.Finding{
		mkFinding("a.py", 10, "bandit", "B608", model.SeverityHigh),
		mkFinding("a.py", 10, "semgrep", "sql-injection", model.SeverityHigh),
		mkFinding("b.py", 20, "bandit", "B105", model.SeverityLow),
		mkFinding("b.py", 20, "bandit", "B106", model.SeverityLow),
	}
	hotspots := DetectHotspots(findings, nil)
	require.Len(t, hotspots, 1)
	assert.Equal(t, "a.py", hotspots[0].File)
	assert.Equal(t, 10, hotspots[0].Line)
}

func TestDetectHotspots_AttachesNearestEnclosingSymbol(t *testing.T) {
	findings := []model.Finding{
		mkFinding("a.py", 15, "bandit", "B608", model.SeverityHigh),
		mkFinding("a.py", 15, "semgrep", "sql-injection", model.SeverityHigh),
	}
	symbols := []model.Symbol{
		{File: "a.py", Line: 1, Type: "function", Name: "helper"},
		{File: "a.py", Line: 12, Type: "function", Name: "handle_request"},
		{File: "a.py", Line: 40, Type: "function", Name: "teardown"},
	}
	hotspots := DetectHotspots(findings, symbols)
	require.Len(t, hotspots, 1)
	require.NotNil(t, hotspots[0].EnclosingSymbol)
	assert.Equal(t, "handle_request", hotspots[0].EnclosingSymbol.Name)
}

// TestDetermineVectorSignals_ComputesCodeAndDensity is spec.md §8
// scenario 2: a file with a static finding and a flow touching it
// carries both STATIC and FLOW.
func TestDetermineVectorSignals_ComputesCodeAndDensity(t *testing.T) {
	findings := []model.Finding{mkFinding("a.py", 1, "bandit", "B608", model.SeverityHigh)}
	flows := []model.TaintFlow{{SourceFile: "req.py", SourceLine: 1, SinkFile: "a.py", SinkLine: 1}}
	inputs := VectorInputs{StructuralFiles: map[string]bool{"a.py": true}}

	signals := DetermineVectorSignals(findings, flows, inputs)
	sig := signals["a.py"]
	assert.Equal(t, "SF-T", sig.Code())
	assert.Equal(t, 3, sig.VectorCount)
	assert.InDelta(t, 0.75, sig.Density, 0.0001)
}

// TestBuildConvergencePoints_FiltersByMinVectorsAndSortsByDensity is
// spec.md §8 scenario 3.
func TestBuildConvergencePoints_FiltersByMinVectorsAndSortsByDensity(t *testing.T) {
	findings := []model.Finding{
		mkFinding("a.py", 10, "bandit", "B608", model.SeverityHigh),
		mkFinding("a.py", 10, "taint-tracker", "sink", model.SeverityHigh),
		mkFinding("b.py", 5, "bandit", "B105", model.SeverityLow),
	}
	points, err := BuildConvergencePoints(findings, VectorInputs{}, 2)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "a.py", points[0].File)
	assert.Equal(t, 2, points[0].Signal.VectorCount)
}

func TestBuildConvergencePoints_RejectsOutOfRangeThreshold(t *testing.T) {
	_, err := BuildConvergencePoints(nil, VectorInputs{}, 0)
	assert.ErrorIs(t, err, ErrInvalidMinVectors)
	_, err = BuildConvergencePoints(nil, VectorInputs{}, 5)
	assert.ErrorIs(t, err, ErrInvalidMinVectors)
}

func TestBuildConvergencePoints_ClustersOverlappingLineRanges(t *testing.T) {
	findings := []model.Finding{
		{File: "a.py", Line: 10, EndLine: 15, Tool: "bandit", Rule: "r1"},
		{File: "a.py", Line: 14, EndLine: 14, Tool: "taint-tracker", Rule: "r2"},
		{File: "a.py", Line: 100, EndLine: 100, Tool: "semgrep", Rule: "r3"},
	}
	clusters := clusterByLineRange(findings)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 2)
	assert.Len(t, clusters[1], 1)
}

func TestMatchPredicate_SupportsEqualsContainsRegexAndDetailsEscape(t *testing.T) {
	f := model.Finding{
		File: "a.py", Tool: "bandit", Rule: "B608", Severity: model.SeverityHigh,
		Details: map[string]any{"cwe_id": "CWE-89"},
	}
	ok, err := MatchPredicate(f, model.FactPredicate{Field: "severity", Op: "equals", Value: "high"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchPredicate(f, model.FactPredicate{Field: "rule", Op: "contains", Value: "608"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchPredicate(f, model.FactPredicate{Field: "file", Op: "regex", Value: `^a\.`})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchPredicate(f, model.FactPredicate{Field: "details.cwe_id", Op: "equals", Value: "CWE-89"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchPredicate(f, model.FactPredicate{Field: "details.missing", Op: "equals", Value: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateCorrelationRules_RequiresEveryFactSatisfied(t *testing.T) {
	rule := model.CorrelationRule{
		Name:        "sql-injection-confirmed",
		Description: "static SQL warning plus a confirmed taint flow on the same file",
		Confidence:  0.9,
		Facts: []model.FactPredicate{
			{Field: "tool", Op: "equals", Value: "bandit"},
			{Field: "tool", Op: "equals", Value: "taint-tracker"},
		},
	}
	byFile := map[string][]model.Finding{
		"a.py": {mkFinding("a.py", 10, "bandit", "B608", model.SeverityHigh), mkFinding("a.py", 10, "taint-tracker", "sink", model.SeverityHigh)},
		"b.py": {mkFinding("b.py", 5, "bandit", "B105", model.SeverityLow)},
	}
	clusters, err := EvaluateCorrelationRules([]model.CorrelationRule{rule}, byFile)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "a.py", clusters[0].File)
}

func TestAggregate_NormalizesAndSortsAndIsIdempotent(t *testing.T) {
	now := time.Unix(0, 0)
	findings := []model.Finding{
		mkFinding("a.py", 1, "bandit", "r1", model.SeverityLow),
		mkFinding("b.py", 2, "semgrep", "r2", model.SeverityCritical),
	}
	flows := []model.TaintFlow{{SourceFile: "x.py", SourceLine: 1, SinkFile: "y.py", SinkLine: 2, Confidence: 0.95}}

	once := Aggregate(findings, flows, now)
	require.Len(t, once, 3)
	assert.Equal(t, model.SeverityCritical, once[0].Severity)

	twice := Aggregate(once, nil, now)
	assert.Equal(t, once, twice)
}

// TestCorrelate_EndToEndPersistsAndReportsConsistentCounts exercises the
// full seven-step algorithm against a real store.
func TestCorrelate_EndToEndPersistsAndReportsConsistentCounts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	findings := []model.Finding{
		mkFinding("a.py", 10, "bandit", "B608", model.SeverityHigh),
		mkFinding("a.py", 10, "semgrep", "sql-injection", model.SeverityHigh),
		mkFinding("b.py", 5, "bandit", "B105", model.SeverityLow),
	}
	flows := []model.TaintFlow{{SourceFile: "req.py", SourceLine: 1, SinkFile: "a.py", SinkLine: 10, Confidence: 0.8}}
	symbols := []model.Symbol{{File: "a.py", Line: 1, Type: "function", Name: "handler"}}

	rule := model.CorrelationRule{
		Name: "multi-tool-sql", Confidence: 0.85,
		Facts: []model.FactPredicate{{Field: "tool", Op: "equals", Value: "bandit"}},
	}

	report, err := Correlate(ctx, s, findings, flows, symbols, Options{
		Rules:      []model.CorrelationRule{rule},
		MinVectors: 2,
		Now:        time.Unix(0, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.TotalFindings) // 3 findings + 1 flow-as-finding
	assert.Len(t, report.Hotspots, 1)
	assert.NotEmpty(t, report.Convergence)
	assert.NotEmpty(t, report.Clusters)

	rows, err := s.Query(ctx, "SELECT COUNT(*) FROM findings_consolidated")
	require.NoError(t, err)
	var n int
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&n))
	rows.Close()
	assert.Equal(t, report.Summary.TotalFindings, n)
}

func TestCorrelate_DefaultsMinVectorsToTwo(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	findings := []model.Finding{mkFinding("a.py", 1, "bandit", "r1", model.SeverityLow)}
	report, err := Correlate(ctx, s, findings, nil, nil, Options{Now: time.Unix(0, 0)})
	require.NoError(t, err)
	assert.Empty(t, report.Convergence)
}

// TestBuildContextBundle_SkipsNonDetailCoreTables checks that a .py
// bundle carries a generic detail table's rows and no framework_records
// layer, since framework_records is a hand-modeled core table outside
// ReadDetailRows's whitelist (generic detail tables only).
func TestBuildContextBundle_SkipsNonDetailCoreTables(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteDetailRow(ctx, "python_imports_detail", "a.py", 3, map[string]string{"module": "os", "names": "path"}, nil))
	require.NoError(t, s.WriteFrameworkRecord(ctx, model.FrameworkRecord{Name: "django", Language: "python", Path: "a.py", Source: "imports"}))

	point := model.ConvergencePoint{File: "a.py", LineStart: 1, LineEnd: 5}
	bundle, err := BuildContextBundle(ctx, s, point)
	require.NoError(t, err)
	assert.Contains(t, bundle.ContextLayers, "python_imports_detail")
	assert.NotContains(t, bundle.ContextLayers, "framework_records")
}
