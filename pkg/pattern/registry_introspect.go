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

package pattern

import "sort"

// CapabilityReport is a no-analysis inventory of what patterns and rules
// are currently loaded, grouped the way the `rules` command presents
// them: YAML pattern files by source, AST rules by language.
type CapabilityReport struct {
	PatternsBySourceFile map[string][]string `json:"patterns_by_source_file"`
	RulesByLanguage      map[string][]string `json:"rules_by_language"`
	TotalPatterns        int                 `json:"total_patterns"`
	TotalRules           int                 `json:"total_rules"`
}

// Introspect walks the loaded patterns and rules and produces a
// capability report. It performs no matching or analysis.
func Introspect(patterns []CompiledPattern, rules []Rule) CapabilityReport {
	report := CapabilityReport{
		PatternsBySourceFile: make(map[string][]string),
		RulesByLanguage:      make(map[string][]string),
	}

	for _, p := range patterns {
		report.PatternsBySourceFile[p.SourceFile] = append(report.PatternsBySourceFile[p.SourceFile], p.Def.Name)
		report.TotalPatterns++
	}
	for _, r := range rules {
		lang := r.Language
		if lang == "" {
			lang = "generic"
		}
		report.RulesByLanguage[lang] = append(report.RulesByLanguage[lang], r.Name)
		report.TotalRules++
	}

	for _, names := range report.PatternsBySourceFile {
		sort.Strings(names)
	}
	for _, names := range report.RulesByLanguage {
		sort.Strings(names)
	}
	return report
}
