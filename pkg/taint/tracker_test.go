// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package taint

import (
	"context"
	"path/filepath"
	"testing"

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

// TestTrack_RequestParamToSQLExecute is spec.md §8 scenario 6: a request
// parameter read at line 10 is assigned into x, then passed to
// db.execute at line 15, and must record exactly one TaintFlow with a
// three-step path.
func TestTrack_RequestParamToSQLExecute(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteAssignment(ctx, model.Assignment{File: "api.py", Line: 10, Target: "req", SourceExpr: "request.GET.get('q')"}))
	require.NoError(t, s.WriteAssignment(ctx, model.Assignment{File: "api.py", Line: 12, Target: "x", SourceExpr: "req"}))
	require.NoError(t, s.WriteCall(ctx, model.Call{CallerFile: "api.py", CallerLine: 15, Callee: "execute", ArgExpr: "x"}))

	tracker := NewTracker(DefaultSourceRules(), DefaultSinkRules(), DefaultSanitizerRules(), DefaultMaxDepth)
	flows, err := tracker.Track(ctx, s, []string{"api.py"})
	require.NoError(t, err)
	require.Len(t, flows, 1)

	f := flows[0]
	assert.Equal(t, "api.py", f.SourceFile)
	assert.Equal(t, 10, f.SourceLine)
	assert.Equal(t, "api.py", f.SinkFile)
	assert.Equal(t, 15, f.SinkLine)
	assert.Equal(t, "sqli", f.VulnerabilityType)
	require.Len(t, f.IntermediateSteps, 3)
	assert.Equal(t, 10, f.IntermediateSteps[0].Line)
	assert.Equal(t, 12, f.IntermediateSteps[1].Line)
	assert.Equal(t, 15, f.IntermediateSteps[2].Line)
}

// TestTrack_SanitizerBreaksFlow verifies that a validator call between
// source and sink on the same path suppresses the flow entirely.
func TestTrack_SanitizerBreaksFlow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteAssignment(ctx, model.Assignment{File: "api.py", Line: 10, Target: "req", SourceExpr: "request.GET.get('q')"}))
	require.NoError(t, s.WriteAssignment(ctx, model.Assignment{File: "api.py", Line: 11, Target: "clean", SourceExpr: "req.validate()"}))
	require.NoError(t, s.WriteCall(ctx, model.Call{CallerFile: "api.py", CallerLine: 15, Callee: "execute", ArgExpr: "clean"}))

	tracker := NewTracker(DefaultSourceRules(), DefaultSinkRules(), DefaultSanitizerRules(), DefaultMaxDepth)
	flows, err := tracker.Track(ctx, s, []string{"api.py"})
	require.NoError(t, err)
	assert.Empty(t, flows)
}

// TestTrack_UnrelatedAssignmentsProduceNoFlow confirms untainted data
// flowing into a sink never generates a finding.
func TestTrack_UnrelatedAssignmentsProduceNoFlow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteAssignment(ctx, model.Assignment{File: "api.py", Line: 3, Target: "count", SourceExpr: "0"}))
	require.NoError(t, s.WriteCall(ctx, model.Call{CallerFile: "api.py", CallerLine: 4, Callee: "execute", ArgExpr: "count"}))

	tracker := NewTracker(DefaultSourceRules(), DefaultSinkRules(), DefaultSanitizerRules(), DefaultMaxDepth)
	flows, err := tracker.Track(ctx, s, []string{"api.py"})
	require.NoError(t, err)
	assert.Empty(t, flows)
}

// TestTrack_DepthBoundPrunesLongChains checks that propagation stops
// once a chain of assignments exceeds MaxDepth, rather than recursing
// without bound.
func TestTrack_DepthBoundPrunesLongChains(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteAssignment(ctx, model.Assignment{File: "chain.py", Line: 1, Target: "v0", SourceExpr: "request.GET.get('q')"}))
	for i := 1; i <= 6; i++ {
		require.NoError(t, s.WriteAssignment(ctx, model.Assignment{
			File: "chain.py", Line: i + 1, Target: varName(i), SourceExpr: varName(i - 1),
		}))
	}
	require.NoError(t, s.WriteCall(ctx, model.Call{CallerFile: "chain.py", CallerLine: 20, Callee: "execute", ArgExpr: varName(6)}))

	tracker := NewTracker(DefaultSourceRules(), DefaultSinkRules(), DefaultSanitizerRules(), 3)
	flows, err := tracker.Track(ctx, s, []string{"chain.py"})
	require.NoError(t, err)
	assert.Empty(t, flows, "chain exceeding MaxDepth must be pruned before reaching the sink")
}

func varName(i int) string {
	if i == 0 {
		return "v0"
	}
	return "v" + string(rune('0'+i))
}

func TestMerge_TaintedDominatesSanitizedDominatesUntainted(t *testing.T) {
	assert.Equal(t, Tainted, Merge(Untainted, Sanitized, Tainted))
	assert.Equal(t, Sanitized, Merge(Untainted, Sanitized))
	assert.Equal(t, Untainted, Merge(Untainted, Untainted))
}

func TestReferencesVar_WholeWordOnly(t *testing.T) {
	assert.True(t, referencesVar("x + 1", "x"))
	assert.False(t, referencesVar("xs + 1", "x"))
	assert.True(t, referencesVar("foo(x, y)", "y"))
}
