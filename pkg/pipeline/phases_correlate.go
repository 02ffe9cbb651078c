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
	"fmt"

	"github.com/faultline/fce/pkg/fce"
	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/report"
	"github.com/faultline/fce/pkg/store"
)

// CorrelateResultHolder carries the finished report out of the
// correlate-stage phase for the CLI layer to render or chunk, mirroring
// WorksetHolder and StructuralResultHolder's pattern of threading
// non-table-shaped results between phases.
type CorrelateResultHolder struct {
	Report *fce.Report
}

// NewFCECorrelatePhase runs the seven-step correlation algorithm over
// the analyze stage's accumulated findings and flows, reading symbols
// back from the store for hotspot attachment and taking STRUCTURAL
// vector membership from the structural analyzer's file set. No PROCESS
// facts are supplied, so no file carries the PROCESS vector. It writes
// findings_consolidated and convergence_points, so it must run after
// every analyze-stage phase that reads workset_manifest has completed —
// the stage boundary in the runner already guarantees that ordering.
func NewFCECorrelatePhase(s *store.Store, rules []model.CorrelationRule, minVectors int, analysis *AnalysisResultHolder, structuralResult *StructuralResultHolder, out *CorrelateResultHolder) PhaseOperation {
	return &BasicPhase{
		PhaseName:    "fce_correlate",
		PhaseStage:   StageCorrelateReport,
		ReadTables:   []string{"symbols"},
		WriteTables:  []string{"findings_consolidated", "convergence_points"},
		PhaseTimeout: DefaultFCETimeout,
		RunFunc: func(ctx context.Context) (int, error) {
			symbols, err := s.ReadSymbols(ctx)
			if err != nil {
				return 0, fmt.Errorf("fce_correlate: read symbols: %w", err)
			}

			opts := fce.Options{
				Rules:      rules,
				MinVectors: minVectors,
				Inputs: fce.VectorInputs{
					StructuralFiles: structuralResult.Structural,
				},
			}
			rep, err := fce.Correlate(ctx, s, analysis.Findings, analysis.Flows, symbols, opts)
			if err != nil {
				return 0, err
			}
			out.Report = rep
			return len(rep.Findings), nil
		},
	}
}

// NewReportChunkPhase splits the finished report into byte-budgeted
// chunks and writes them under outDir. Its real input is the in-memory
// report fce_correlate just produced, not a store query, but it
// declares the same tables fce_correlate writes as its own reads so the
// runner's groupByConflict serializes it after fce_correlate rather than
// scheduling both on the same parallel track.
func NewReportChunkPhase(outDir string, budgetBytes int, correlated *CorrelateResultHolder) PhaseOperation {
	return &BasicPhase{
		PhaseName:    "report_chunk",
		PhaseStage:   StageCorrelateReport,
		ReadTables:   []string{"findings_consolidated", "convergence_points"},
		PhaseTimeout: DefaultGenericTimeout,
		RunFunc: func(ctx context.Context) (int, error) {
			if correlated.Report == nil {
				return 0, fmt.Errorf("report_chunk: no correlated report available")
			}
			chunks, err := report.Chunk(correlated.Report, budgetBytes)
			if err != nil {
				return 0, err
			}
			if err := report.WriteChunks(outDir, chunks); err != nil {
				return 0, err
			}
			return len(chunks), nil
		},
	}
}
