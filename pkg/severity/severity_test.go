// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faultline/fce/pkg/model"
)

func TestNormalize_Float(t *testing.T) {
	tests := []struct {
		in   float64
		want model.Severity
	}{
		{0.95, model.SeverityCritical},
		{0.9, model.SeverityCritical},
		{0.8, model.SeverityHigh},
		{0.7, model.SeverityHigh},
		{0.5, model.SeverityMedium},
		{0.4, model.SeverityMedium},
		{0.1, model.SeverityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestNormalize_DockerInt(t *testing.T) {
	tests := []struct {
		in   int
		want model.Severity
	}{
		{0, model.SeverityInfo},
		{1, model.SeverityLow},
		{2, model.SeverityMedium},
		{3, model.SeverityHigh},
		{4, model.SeverityCritical},
		{99, model.SeverityCritical}, // clamps to top
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestNormalize_StringAliases(t *testing.T) {
	tests := []struct {
		in   string
		want model.Severity
	}{
		{"error", model.SeverityHigh},
		{"warn", model.SeverityMedium},
		{"warning", model.SeverityMedium},
		{"note", model.SeverityLow},
		{"debug", model.SeverityLow},
		{"fatal", model.SeverityCritical},
		{"blocker", model.SeverityCritical},
		{"major", model.SeverityHigh},
		{"minor", model.SeverityLow},
		{"something-weird", model.SeverityWarning},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestNormalize_Total(t *testing.T) {
	closed := map[model.Severity]bool{
		model.SeverityCritical: true, model.SeverityHigh: true,
		model.SeverityMedium: true, model.SeverityLow: true,
		model.SeverityInfo: true, model.SeverityWarning: true,
		model.SeverityStyle: true, model.SeverityUnknown: true,
	}
	inputs := []any{0.95, 3, "error", "bogus", nil, []int{1, 2}, "style", "unknown"}
	for _, in := range inputs {
		assert.True(t, closed[Normalize(in)], "normalize(%v) must land in closed set", in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []any{0.95, 3, "error", "bogus", "style", "critical"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(string(once))
		assert.Equal(t, once, twice, "normalize must be idempotent for %v", in)
	}
}

func TestSort_StableTotalOrder(t *testing.T) {
	findings := []model.Finding{
		{File: "b.go", Line: 2, Tool: "eslint", Severity: model.SeverityLow},
		{File: "a.go", Line: 1, Tool: "gosec", Severity: model.SeverityCritical},
		{File: "a.go", Line: 5, Tool: "bandit", Severity: model.SeverityCritical},
		{File: "a.go", Line: 1, Tool: "taint-tracker", Severity: model.SeverityCritical},
	}
	Sort(findings)

	assert.Equal(t, model.SeverityCritical, findings[0].Severity)
	// Among equal severity+file+line ties would be impossible here since
	// file/line differ, but tool-importance must break ties before file/line
	// for rows sharing severity: taint-tracker (rank 0) should end up before
	// gosec (rank 2) for the same file/line when both are critical.
	assert.Equal(t, "taint-tracker", findings[0].Tool)
	assert.Equal(t, model.SeverityLow, findings[len(findings)-1].Severity)
}
