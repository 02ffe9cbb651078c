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

// Package fce implements the Factual Correlation Engine: aggregation of
// heterogeneous findings into the universal shape, hotspot detection,
// vector-signal density, convergence-point clustering, correlation-rule
// evaluation, and on-demand context bundle assembly.
package fce

import (
	"time"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/severity"
)

// TaintFlowToFinding normalizes a materialized taint flow into the
// universal Finding shape, so it participates in aggregation, ordering,
// and vector-signal computation alongside lint/pattern findings.
func TaintFlowToFinding(t model.TaintFlow, now time.Time) model.Finding {
	// Rule must never be empty (model.Finding's invariant); a flow built
	// without a sink rule name falls back to "taint-flow".
	rule := t.SinkPattern
	if rule == "" {
		rule = "taint-flow"
	}
	return model.Finding{
		File:       t.SinkFile,
		Line:       t.SinkLine,
		Rule:       rule,
		Tool:       "taint-tracker",
		Message:    "tainted value from " + t.SourceFile + ":" + itoa(t.SourceLine) + " reaches this sink",
		Severity:   severity.Normalize(t.Confidence),
		Category:   t.VulnerabilityType,
		Confidence: t.Confidence,
		Timestamp:  now,
		Details: map[string]any{
			"source_file":        t.SourceFile,
			"source_line":        t.SourceLine,
			"source_pattern":     t.SourcePattern,
			"vulnerability_type": t.VulnerabilityType,
			"intermediate_steps": t.IntermediateSteps,
		},
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// Aggregate merges per-tool findings and materialized taint flows into
// one normalized, severity-ordered list. It does not write to the
// store; callers persist the returned list via store.WriteFinding.
func Aggregate(findings []model.Finding, flows []model.TaintFlow, now time.Time) []model.Finding {
	out := make([]model.Finding, 0, len(findings)+len(flows))
	for _, f := range findings {
		f.Severity = severity.Normalize(normalizedSeverityInput(f))
		out = append(out, f)
	}
	for _, t := range flows {
		out = append(out, TaintFlowToFinding(t, now))
	}
	severity.Sort(out)
	return out
}

// normalizedSeverityInput re-normalizes a finding's own severity field so
// Aggregate is idempotent even when handed already-normalized findings
// (severity.Normalize's string branch passes closed-set members through
// unchanged).
func normalizedSeverityInput(f model.Finding) any {
	if f.Severity == "" {
		return "unknown"
	}
	return string(f.Severity)
}
