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

package store

import (
	"fmt"
	"strings"
)

// The Semantic Table Registry partitions every non-operational table in
// the schema into RISK_SOURCES (tables whose rows are themselves
// findings) and the five CONTEXT_* sets (tables the FCE reads to enrich
// a finding, never to generate one). The sets are pairwise disjoint —
// asserted in init() below — and extraction/operational tables belong
// to neither, since they are raw facts, not context.
var (
	RiskSources       = map[string]bool{}
	ContextProcess    = map[string]bool{}
	ContextStructural = map[string]bool{}
	ContextFramework  = map[string]bool{}
	ContextSecurity   = map[string]bool{}
	ContextLanguage   = map[string]bool{}
)

func init() {
	for _, t := range AllTables() {
		switch t.group {
		case GroupRisk:
			RiskSources[t.name] = true
		case GroupProcess:
			ContextProcess[t.name] = true
		case GroupStructural:
			ContextStructural[t.name] = true
		case GroupFramework:
			ContextFramework[t.name] = true
		case GroupSecurity:
			ContextSecurity[t.name] = true
		case GroupLanguage:
			ContextLanguage[t.name] = true
		}
	}
	assertDisjoint()
}

// assertDisjoint panics at package init if any table name appears in
// more than one of the registry's sets. This is a static schema
// invariant, not a runtime data condition, so a panic (rather than an
// error return) is the right failure mode: it can only fire from a
// programming mistake in schema.go's group assignment.
func assertDisjoint() {
	sets := map[string]map[string]bool{
		"RISK_SOURCES":        RiskSources,
		"CONTEXT_PROCESS":     ContextProcess,
		"CONTEXT_STRUCTURAL":  ContextStructural,
		"CONTEXT_FRAMEWORK":   ContextFramework,
		"CONTEXT_SECURITY":    ContextSecurity,
		"CONTEXT_LANGUAGE":    ContextLanguage,
	}
	seen := map[string]string{}
	for setName, tables := range sets {
		for name := range tables {
			if owner, ok := seen[name]; ok {
				panic(fmt.Sprintf("store: table %q assigned to both %s and %s", name, owner, setName))
			}
			seen[name] = setName
		}
	}
}

// extensionPrefixes maps a source file extension to the table-name
// prefixes relevant to that extension's context bundle. A table
// qualifies for an extension if its name has one of the listed
// prefixes, regardless of which CONTEXT_* set it lives in — a single
// extension (".tsx") legitimately pulls from several frontend-framework
// prefixes at once.
var extensionPrefixes = map[string][]string{
	".py":  {"python_"},
	".go":  {"go_"},
	".rs":  {"rust_"},
	".sh":  {"bash_"},
	".bash": {"bash_"},
	".vue": {"vue_"},
	".tsx": {"react_", "angular_", "vue_", "graphql_", "orm_"},
	".jsx": {"react_"},
	".ts":  {"angular_", "graphql_", "orm_"},
	".js":  {"react_", "graphql_", "orm_"},
}

// ContextTablesForExtension returns the names of every context table
// (across all CONTEXT_* sets) applicable to the given file extension:
// the extension's language-specific prefix set, plus every
// extension-independent context table (process, structural, and the
// generic security tables, which apply regardless of source language).
func ContextTablesForExtension(ext string) []string {
	ext = strings.ToLower(ext)
	var out []string
	for name := range ContextProcess {
		out = append(out, name)
	}
	for name := range ContextStructural {
		out = append(out, name)
	}
	for name := range ContextSecurity {
		out = append(out, name)
	}
	prefixes := extensionPrefixes[ext]
	for _, name := range allSetNames(ContextFramework, ContextLanguage) {
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func allSetNames(sets ...map[string]bool) []string {
	var out []string
	for _, s := range sets {
		for name := range s {
			out = append(out, name)
		}
	}
	return out
}

// IsRiskTable reports whether rows in the named table are findings
// (RISK_SOURCES membership).
func IsRiskTable(name string) bool { return RiskSources[name] }
