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

package fce

import (
	"context"
	"fmt"
	"time"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// Summary is the roll-up of counts attached to a correlated report.
type Summary struct {
	TotalFindings     int            `json:"total_findings"`
	BySeverity        map[string]int `json:"by_severity"`
	HotspotCount      int            `json:"hotspot_count"`
	ConvergenceCount  int            `json:"convergence_point_count"`
	RuleMatchCount    int            `json:"rule_match_count"`
	FilesWithFindings int            `json:"files_with_findings"`
}

// Report is the single correlated document §4.8 produces: the aggregated,
// ordered finding list, hotspots with enclosing symbols, matched
// correlation rules, and a summary roll-up.
type Report struct {
	Findings    []model.Finding          `json:"findings"`
	Hotspots    []model.Hotspot          `json:"hotspots"`
	Convergence []model.ConvergencePoint `json:"convergence_points"`
	Clusters    []model.FactualCluster   `json:"factual_clusters"`
	Summary     Summary                  `json:"summary"`
}

// Options configures one Correlate run.
type Options struct {
	Rules      []model.CorrelationRule
	Inputs     VectorInputs
	MinVectors int // 0 defaults to 2, per §4.8 step 4's typical default.
	Now        time.Time
}

// Correlate runs the full seven-step FCE algorithm over a run's raw
// findings, taint flows, and symbols, persists the aggregated findings,
// convergence points, and rule matches to the store, and returns the
// assembled report. Persistence happens one table at a time; a failure
// partway through leaves already-written tables intact, since each
// WriteX call is its own statement against a narrow per-table writer.
func Correlate(ctx context.Context, s *store.Store, findings []model.Finding, flows []model.TaintFlow, symbols []model.Symbol, opts Options) (*Report, error) {
	minVectors := opts.MinVectors
	if minVectors == 0 {
		minVectors = 2
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	aggregated := Aggregate(findings, flows, now)
	for _, f := range aggregated {
		if err := s.WriteFinding(ctx, f); err != nil {
			return nil, fmt.Errorf("fce: persist finding %s:%d: %w", f.File, f.Line, err)
		}
	}

	hotspots := DetectHotspots(aggregated, symbols)

	points, err := BuildConvergencePoints(aggregated, opts.Inputs, minVectors)
	if err != nil {
		return nil, fmt.Errorf("fce: build convergence points: %w", err)
	}
	for _, p := range points {
		if err := s.WriteConvergencePoint(ctx, p, nil); err != nil {
			return nil, fmt.Errorf("fce: persist convergence point %s:%d: %w", p.File, p.LineStart, err)
		}
	}

	byFile := GroupFindingsByFile(aggregated)
	clusters, err := EvaluateCorrelationRules(opts.Rules, byFile)
	if err != nil {
		return nil, fmt.Errorf("fce: evaluate correlation rules: %w", err)
	}
	for _, c := range clusters {
		if err := s.WriteCorrelationMatch(ctx, c); err != nil {
			return nil, fmt.Errorf("fce: persist correlation match %s/%s: %w", c.Name, c.File, err)
		}
	}

	return &Report{
		Findings:    aggregated,
		Hotspots:    hotspots,
		Convergence: points,
		Clusters:    clusters,
		Summary:     buildSummary(aggregated, hotspots, points, clusters, byFile),
	}, nil
}

func buildSummary(findings []model.Finding, hotspots []model.Hotspot, points []model.ConvergencePoint, clusters []model.FactualCluster, byFile map[string][]model.Finding) Summary {
	bySeverity := make(map[string]int)
	for _, f := range findings {
		bySeverity[string(f.Severity)]++
	}
	return Summary{
		TotalFindings:     len(findings),
		BySeverity:        bySeverity,
		HotspotCount:      len(hotspots),
		ConvergenceCount:  len(points),
		RuleMatchCount:    len(clusters),
		FilesWithFindings: len(byFile),
	}
}
