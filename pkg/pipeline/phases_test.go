// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/fce/pkg/fce"
	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/pattern"
	"github.com/faultline/fce/pkg/store"
	"github.com/faultline/fce/pkg/structural"
	"github.com/faultline/fce/pkg/taint"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAnalyzePhases_DeclareDisjointWritesAndRunConcurrently(t *testing.T) {
	s := openTestStore(t)
	holder := &WorksetHolder{}
	result := &AnalysisResultHolder{}
	var mu sync.Mutex

	engine := pattern.NewEngine(nil, nil)
	tracker := taint.NewTracker(nil, nil, nil, 5)

	patternPhase := NewPatternEnginePhase(s, engine, t.TempDir(), holder, result, &mu)
	taintPhase := NewTaintTrackerPhase(s, tracker, holder, result, &mu)

	groups := groupByConflict([]PhaseOperation{patternPhase, taintPhase})
	require.Len(t, groups, 1, "phases with no declared write-table overlap should share a scheduling group")
	assert.Len(t, groups[0], 2)
}

func TestStructuralAnalyzerPhase_PopulatesResultHolder(t *testing.T) {
	s := openTestStore(t)
	result := &StructuralResultHolder{}

	phase := NewStructuralAnalyzerPhase(s, structural.Options{}, result)
	assert.Equal(t, StageAnalyze, phase.Stage())
	assert.Equal(t, "structural_analyzer", phase.Name())

	count, err := phase.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 0)
	assert.NotNil(t, result.Structural)
}

func TestFCECorrelatePhase_ReadsSymbolsAndPopulatesReport(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.WriteSymbol(context.Background(), model.Symbol{File: "a.py", Line: 1, Type: "function", Name: "handler"}))

	analysis := &AnalysisResultHolder{
		Findings: []model.Finding{{File: "a.py", Line: 1, Rule: "r", Tool: "bandit", Severity: model.SeverityHigh}},
	}
	structuralResult := &StructuralResultHolder{Structural: map[string]bool{}}
	out := &CorrelateResultHolder{}

	phase := NewFCECorrelatePhase(s, nil, 2, analysis, structuralResult, out)
	count, err := phase.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NotNil(t, out.Report)
	assert.Len(t, out.Report.Findings, 1)
}

func TestReportChunkPhase_FailsWithoutACorrelatedReport(t *testing.T) {
	out := &CorrelateResultHolder{}
	phase := NewReportChunkPhase(t.TempDir(), 0, out)
	_, err := phase.Run(context.Background())
	assert.Error(t, err)
}

func TestReportChunkPhase_WritesChunksAfterCorrelate(t *testing.T) {
	out := &CorrelateResultHolder{Report: &fce.Report{}}
	dir := t.TempDir()
	phase := NewReportChunkPhase(dir, 0, out)
	count, err := phase.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count) // one summary chunk, no findings/convergence
}
