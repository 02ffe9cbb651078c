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

// Package severity normalizes the heterogeneous severity encodings
// produced by different tools into the closed set defined by the spec
// (critical, high, medium, low, info, warning, style, unknown) and
// provides the total ordering used to sort findings.
package severity

import (
	"sort"
	"strconv"
	"strings"

	"github.com/faultline/fce/pkg/model"
)

// rank gives each normalized severity a sort position; lower sorts first
// (i.e. more severe first).
var rank = map[model.Severity]int{
	model.SeverityCritical: 0,
	model.SeverityHigh:     1,
	model.SeverityMedium:   2,
	model.SeverityLow:      3,
	model.SeverityInfo:     4,
	model.SeverityWarning:  5,
	model.SeverityStyle:    6,
	model.SeverityUnknown:  7,
}

// Rank returns the sort position of a normalized severity. Unknown inputs
// (which should not occur once Normalize has run) sort last.
func Rank(s model.Severity) int {
	if r, ok := rank[s]; ok {
		return r
	}
	return len(rank)
}

// toolImportance is a fixed closed ordering of tool names used purely as
// a tie-breaker after severity: security-oriented tools sort ahead of
// style/formatting tools. Tools not listed fall in the middle band.
var toolImportance = map[string]int{
	"taint-tracker":     0,
	"pattern-detector":  1,
	"semgrep":           1,
	"bandit":            2,
	"gosec":             2,
	"eslint-security":   2,
	"eslint":            5,
	"ruff":              5,
	"mypy":              5,
	"golangci-lint":     5,
	"docker-analyzer":   6,
	"structural":        7,
	"prettier":          9,
	"gofmt":             9,
}

const defaultToolImportance = 4

func toolRank(tool string) int {
	if r, ok := toolImportance[strings.ToLower(tool)]; ok {
		return r
	}
	return defaultToolImportance
}

// Normalize maps a heterogeneous severity encoding (a float in [0,1], an
// integer 0..4, or a string alias) into the closed Severity set. Total:
// every input produces a value in the closed set. Idempotent:
// Normalize(Normalize(x)) == Normalize(x) because the closed set's own
// string members round-trip through the string-alias branch unchanged.
func Normalize(raw any) model.Severity {
	switch v := raw.(type) {
	case float64:
		return normalizeFloat(v)
	case float32:
		return normalizeFloat(float64(v))
	case int:
		return normalizeInt(v)
	case int64:
		return normalizeInt(int(v))
	case string:
		return normalizeString(v)
	default:
		return model.SeverityUnknown
	}
}

func normalizeFloat(v float64) model.Severity {
	switch {
	case v >= 0.9:
		return model.SeverityCritical
	case v >= 0.7:
		return model.SeverityHigh
	case v >= 0.4:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// dockerSeverityScale maps Docker-style integer severities (0..4) to the
// closed set, info being the least severe.
var dockerSeverityScale = []model.Severity{
	model.SeverityInfo,
	model.SeverityLow,
	model.SeverityMedium,
	model.SeverityHigh,
	model.SeverityCritical,
}

func normalizeInt(v int) model.Severity {
	if v < 0 {
		v = 0
	}
	if v >= len(dockerSeverityScale) {
		v = len(dockerSeverityScale) - 1
	}
	return dockerSeverityScale[v]
}

func normalizeString(v string) model.Severity {
	s := strings.ToLower(strings.TrimSpace(v))

	// Already-normalized closed-set members pass through unchanged
	// (idempotence).
	for _, known := range []model.Severity{
		model.SeverityCritical, model.SeverityHigh, model.SeverityMedium,
		model.SeverityLow, model.SeverityInfo, model.SeverityWarning,
		model.SeverityStyle, model.SeverityUnknown,
	} {
		if s == string(known) {
			return known
		}
	}

	switch s {
	case "error":
		return model.SeverityHigh
	case "warn", "warning":
		return model.SeverityMedium
	case "note", "debug":
		return model.SeverityLow
	case "fatal", "blocker":
		return model.SeverityCritical
	case "major":
		return model.SeverityHigh
	case "minor":
		return model.SeverityLow
	}

	// Numeric string? Try float first (covers "0.95"), then int ("3").
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f >= 0 && f <= 1 {
			return normalizeFloat(f)
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return normalizeInt(n)
	}

	return model.SeverityWarning
}

// Less reports whether a sorts before b under the findings ordering:
// (severity rank, tool-importance rank, file path, line).
func Less(a, b model.Finding) bool {
	if ra, rb := Rank(a.Severity), Rank(b.Severity); ra != rb {
		return ra < rb
	}
	if ta, tb := toolRank(a.Tool), toolRank(b.Tool); ta != tb {
		return ta < tb
	}
	if a.File != b.File {
		return a.File < b.File
	}
	return a.Line < b.Line
}

// Sort orders findings in place per the total ordering defined by Less.
// The sort is stable, so equal-key findings preserve their relative
// input order and repeated runs over identical inputs produce
// byte-identical output.
func Sort(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return Less(findings[i], findings[j])
	})
}
