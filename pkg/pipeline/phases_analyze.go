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

package pipeline

import (
	"context"
	"sync"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/pattern"
	"github.com/faultline/fce/pkg/store"
	"github.com/faultline/fce/pkg/structural"
	"github.com/faultline/fce/pkg/taint"
)

// AnalysisResultHolder collects the raw findings and taint flows the
// analyze-stage phases produce. The correlate stage's FCE phase is the
// only thing that persists them (via Aggregate inside fce.Correlate),
// so the analyze phases declare no store writes here — each holds its
// results for the correlate phase to read back, rather than writing
// findings_consolidated/taint_flows twice.
type AnalysisResultHolder struct {
	Findings []model.Finding
	Flows    []model.TaintFlow
}

// NewPatternEnginePhase runs the YAML line-scanner plus the AST find_<X>
// rules over the resolved workset. It shares no write table with the
// taint-tracker phase, so the runner schedules both on parallel tracks
// within the analyze stage.
func NewPatternEnginePhase(s *store.Store, engine *pattern.Engine, root string, holder *WorksetHolder, result *AnalysisResultHolder, mu *sync.Mutex) PhaseOperation {
	return &BasicPhase{
		PhaseName:    "pattern_engine",
		PhaseStage:   StageAnalyze,
		ReadTables:   []string{"workset_manifest"},
		PhaseTimeout: DefaultLinterTimeout,
		RunFunc: func(ctx context.Context) (int, error) {
			paths := holder.Paths()
			findings, err := engine.RunPatterns(root, paths)
			if err != nil {
				return 0, err
			}
			ruleFindings, err := engine.RunRules(ctx, s, paths)
			if err != nil {
				return 0, err
			}
			findings = append(findings, ruleFindings...)
			mu.Lock()
			result.Findings = append(result.Findings, findings...)
			mu.Unlock()
			return len(findings), nil
		},
	}
}

// NewTaintTrackerPhase runs the taint tracker over the resolved workset
// and hands its flows to the correlate stage via result.
func NewTaintTrackerPhase(s *store.Store, tracker *taint.Tracker, holder *WorksetHolder, result *AnalysisResultHolder, mu *sync.Mutex) PhaseOperation {
	return &BasicPhase{
		PhaseName:    "taint_tracker",
		PhaseStage:   StageAnalyze,
		ReadTables:   []string{"workset_manifest"},
		PhaseTimeout: DefaultLinterTimeout,
		RunFunc: func(ctx context.Context) (int, error) {
			flows, err := tracker.Track(ctx, s, holder.Paths())
			if err != nil {
				return 0, err
			}
			mu.Lock()
			result.Flows = append(result.Flows, flows...)
			mu.Unlock()
			return len(flows), nil
		},
	}
}

// StructuralResultHolder carries the structural analyzer's facts into
// the correlate stage, mirroring WorksetHolder's pattern: structural
// facts feed the STRUCTURAL vector rather than a declared store table.
type StructuralResultHolder struct {
	DeadCode   []model.DeadCodeFinding
	Structural map[string]bool
}

// NewStructuralAnalyzerPhase runs dead-code detection and the
// fan-in/fan-out/cycle metrics, storing the structural file set for the
// correlate stage's vector-signal computation.
func NewStructuralAnalyzerPhase(s *store.Store, opts structural.Options, result *StructuralResultHolder) PhaseOperation {
	return &BasicPhase{
		PhaseName:    "structural_analyzer",
		PhaseStage:   StageAnalyze,
		ReadTables:   []string{"symbols", "refs", "assignments", "function_call_args", "variable_usage"},
		WriteTables:  nil,
		PhaseTimeout: DefaultLinterTimeout,
		RunFunc: func(ctx context.Context) (int, error) {
			deadCode, err := structural.DetectAll(ctx, s, opts)
			if err != nil {
				return 0, err
			}
			complexity, err := structural.ComputeComplexity(ctx, s)
			if err != nil {
				return 0, err
			}
			cycles, err := structural.DetectCycles(ctx, s)
			if err != nil {
				return 0, err
			}
			result.DeadCode = append(result.DeadCode, deadCode...)
			result.Structural = structural.StructuralFiles(complexity, cycles)
			return len(deadCode), nil
		},
	}
}
