// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phase(name string, stage Stage, reads, writes []string, timeout time.Duration, run func(ctx context.Context) (int, error)) *BasicPhase {
	return &BasicPhase{PhaseName: name, PhaseStage: stage, ReadTables: reads, WriteTables: writes, PhaseTimeout: timeout, RunFunc: run}
}

func TestRunner_ExecutesStagesInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) func(ctx context.Context) (int, error) {
		return func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return 1, nil
		}
	}

	phases := []PhaseOperation{
		phase("index", StageIndexDetect, nil, []string{"files"}, time.Second, record("index")),
		phase("correlate", StageCorrelateReport, []string{"findings_consolidated"}, nil, time.Second, record("correlate")),
		phase("resolve", StageResolvePrepare, []string{"files"}, []string{"workset_manifest"}, time.Second, record("resolve")),
		phase("analyze", StageAnalyze, []string{"workset_manifest"}, []string{"findings_consolidated"}, time.Second, record("analyze")),
	}

	runner := NewRunner(phases, Options{})
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"index", "resolve", "analyze", "correlate"}, order)
	assert.Equal(t, 4, result.TotalFindings)
	assert.Empty(t, result.Failed)
	assert.Empty(t, result.Skipped)
}

func TestRunner_SkipsDownstreamPhaseAfterUpstreamFailure(t *testing.T) {
	failing := phase("lint", StageResolvePrepare, nil, []string{"findings_consolidated"}, time.Second,
		func(ctx context.Context) (int, error) { return 0, errors.New("linter crashed") })
	dependent := phase("fce", StageCorrelateReport, []string{"findings_consolidated"}, nil, time.Second,
		func(ctx context.Context) (int, error) { return 5, nil })
	independent := phase("report", StageCorrelateReport, []string{"convergence_points"}, nil, time.Second,
		func(ctx context.Context) (int, error) { return 2, nil })

	runner := NewRunner([]PhaseOperation{failing, dependent, independent}, Options{})
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, result.Failed, "lint")
	assert.Contains(t, result.Skipped, "fce")
	assert.Equal(t, 2, result.TotalFindings) // only "report" contributes
}

func TestRunner_PhaseExceedingTimeoutIsMarkedTimedOut(t *testing.T) {
	slow := phase("slow-phase", StageAnalyze, nil, []string{"taint_flows"}, 20*time.Millisecond,
		func(ctx context.Context) (int, error) {
			select {
			case <-time.After(time.Second):
				return 1, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		})

	runner := NewRunner([]PhaseOperation{slow}, Options{})
	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Phases, 1)
	assert.Equal(t, PhaseTimedOut, result.Phases[0].Status)
	assert.Equal(t, 124, result.Phases[0].ExitCode)
}

func TestGroupByConflict_DisjointWritesShareAGroupReadReadDoesNotConflict(t *testing.T) {
	a := phase("a", StageAnalyze, []string{"symbols"}, []string{"findings_consolidated"}, 0, nil)
	b := phase("b", StageAnalyze, []string{"symbols"}, []string{"taint_flows"}, 0, nil)
	c := phase("c", StageAnalyze, []string{"findings_consolidated"}, nil, 0, nil)

	groups := groupByConflict([]PhaseOperation{a, b, c})
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2) // a and b: disjoint writes, shared read of symbols is fine
	assert.Len(t, groups[1], 1) // c: reads what a writes, must serialize after
}

func TestGroupByConflict_WriteWriteOverlapSerializes(t *testing.T) {
	a := phase("a", StageAnalyze, nil, []string{"findings_consolidated"}, 0, nil)
	b := phase("b", StageAnalyze, nil, []string{"findings_consolidated"}, 0, nil)

	groups := groupByConflict([]PhaseOperation{a, b})
	require.Len(t, groups, 2)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "index_detect", StageIndexDetect.String())
	assert.Equal(t, "correlate_report", StageCorrelateReport.String())
}
