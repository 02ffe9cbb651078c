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

// SchemaVersion is pinned and compared against schema_meta.version at open
// time. A mismatch is a schema_stale condition: the store refuses to read
// and the caller must rebuild it.
const SchemaVersion = 1

// TableGroup is the semantic bucket a table belongs to, used by the
// Semantic Table Registry (registry.go) to decide which tables the FCE
// pulls when assembling a context bundle for a file.
type TableGroup string

const (
	GroupExtraction TableGroup = "extraction"
	GroupRisk       TableGroup = "risk" // RISK_SOURCES: tables whose rows are findings
	GroupProcess    TableGroup = "process"
	GroupStructural TableGroup = "structural"
	GroupFramework  TableGroup = "framework"
	GroupSecurity   TableGroup = "security"
	GroupLanguage   TableGroup = "language"
	GroupOperational TableGroup = "operational" // not part of the semantic registry
)

// tableDef is one table in the fixed schema: its name, semantic group,
// and column DDL (everything after "CREATE TABLE name (").
type tableDef struct {
	name    string
	group   TableGroup
	columns string
}

const commonMeta = `id INTEGER PRIMARY KEY AUTOINCREMENT, file TEXT NOT NULL, line INTEGER NOT NULL DEFAULT 0, created_at TEXT NOT NULL DEFAULT (datetime('now'))`

// detailTable returns a tableDef for a generic "detail" table: a
// (file, line) fact plus a small number of named text columns and an
// opaque JSON attrs blob for anything else. This is how the ≥100
// context/extraction detail tables are declared without hand-writing a
// bespoke struct and writer for each one — every one of them is still
// written exclusively through store.WriteDetailRow's parameterized
// INSERT (writers.go), never string-interpolated.
func detailTable(name string, group TableGroup, extraCols ...string) tableDef {
	cols := commonMeta
	for _, c := range extraCols {
		cols += ", " + c + " TEXT"
	}
	cols += ", attrs TEXT"
	return tableDef{name: name, group: group, columns: cols}
}

// coreTables are the hand-modeled, heavily-used tables with first-class
// Go types and dedicated writer methods.
var coreTables = []tableDef{
	{
		name:  "files",
		group: GroupExtraction,
		columns: `path TEXT PRIMARY KEY, language TEXT, sha256 TEXT NOT NULL, size_bytes INTEGER NOT NULL DEFAULT 0,
			first_seen TEXT NOT NULL DEFAULT (datetime('now')), last_seen TEXT NOT NULL DEFAULT (datetime('now'))`,
	},
	{
		name:  "symbols",
		group: GroupExtraction,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, file TEXT NOT NULL, line INTEGER NOT NULL, end_line INTEGER NOT NULL DEFAULT 0,
			type TEXT NOT NULL, name TEXT NOT NULL, signature TEXT, in_function TEXT, content_hash TEXT`,
	},
	{
		name:  "refs",
		group: GroupExtraction,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, src_file TEXT NOT NULL, kind TEXT NOT NULL, value TEXT NOT NULL, line INTEGER NOT NULL DEFAULT 0`,
	},
	{
		name:  "calls",
		group: GroupExtraction,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, caller_file TEXT NOT NULL, caller_function TEXT, caller_line INTEGER NOT NULL,
			callee_function TEXT NOT NULL, argument_expression TEXT`,
	},
	{
		name:  "assignments",
		group: GroupExtraction,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, file TEXT NOT NULL, line INTEGER NOT NULL, target_var TEXT NOT NULL,
			source_expr TEXT NOT NULL, in_function TEXT, property_path TEXT`,
	},
	{
		name:  "function_call_args",
		group: GroupExtraction,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, file TEXT NOT NULL, line INTEGER NOT NULL, callee_function TEXT NOT NULL,
			arg_index INTEGER NOT NULL DEFAULT 0, argument_expr TEXT`,
	},
	{
		name:  "variable_usage",
		group: GroupExtraction,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, file TEXT NOT NULL, line INTEGER NOT NULL, variable_name TEXT NOT NULL, usage_kind TEXT`,
	},
	{
		name:  "findings_consolidated",
		group: GroupRisk,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, file TEXT NOT NULL, line INTEGER NOT NULL DEFAULT 0, end_line INTEGER NOT NULL DEFAULT 0,
			rule TEXT NOT NULL, tool TEXT NOT NULL, message TEXT, severity TEXT NOT NULL, category TEXT,
			cwe TEXT, confidence REAL NOT NULL DEFAULT 0, code_snippet TEXT, timestamp TEXT NOT NULL, details TEXT`,
	},
	{
		name:  "taint_flows",
		group: GroupRisk,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, source_file TEXT NOT NULL, source_line INTEGER NOT NULL, source_pattern TEXT,
			sink_file TEXT NOT NULL, sink_line INTEGER NOT NULL, sink_pattern TEXT, vulnerability_type TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0, steps_json TEXT NOT NULL`,
	},
	{
		name:  "framework_records",
		group: GroupFramework,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, framework_name TEXT NOT NULL, language TEXT NOT NULL, path TEXT NOT NULL,
			version TEXT NOT NULL DEFAULT 'unknown', source TEXT NOT NULL, category TEXT`,
	},
	{
		name:  "convergence_points",
		group: GroupOperational,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, file TEXT NOT NULL, line_start INTEGER NOT NULL, line_end INTEGER NOT NULL,
			vector_code TEXT NOT NULL, vector_count INTEGER NOT NULL, density REAL NOT NULL, fact_ids TEXT NOT NULL`,
	},
	{
		name:  "correlation_rule_matches",
		group: GroupOperational,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, rule_name TEXT NOT NULL, file TEXT NOT NULL, description TEXT, confidence REAL NOT NULL DEFAULT 0`,
	},
	{
		name:  "tool_runs",
		group: GroupOperational,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, run_id TEXT NOT NULL, tool TEXT NOT NULL, status TEXT NOT NULL,
			findings_count INTEGER NOT NULL DEFAULT 0, detail TEXT`,
	},
	{
		name:  "phase_results",
		group: GroupOperational,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, run_id TEXT NOT NULL, name TEXT NOT NULL, status TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL DEFAULT 0, exit_code INTEGER NOT NULL DEFAULT 0, findings_count INTEGER NOT NULL DEFAULT 0, stderr TEXT`,
	},
	{
		name:    "workset_manifest",
		group:   GroupOperational,
		columns: `id INTEGER PRIMARY KEY AUTOINCREMENT, run_id TEXT NOT NULL, path TEXT NOT NULL, sha256 TEXT NOT NULL`,
	},
	{
		name:    "schema_meta",
		group:   GroupOperational,
		columns: `id INTEGER PRIMARY KEY CHECK (id = 1), version INTEGER NOT NULL`,
	},
}

// detailGroupTables enumerates the remaining extraction, finding, and
// context tables (the bulk of the ≥100-table schema) as generic detail
// tables. Every column list is a deliberate, named set of fields
// reflecting what that concern actually records; unnamed extras land in
// the shared "attrs" JSON column rather than growing the column list
// without bound.
var detailGroupTables = []tableDef{
	// -- extraction (beyond coreTables) --
	detailTable("imports", GroupExtraction, "module", "alias"),
	detailTable("exports", GroupExtraction, "name", "kind"),
	detailTable("type_defs", GroupExtraction, "name", "kind"),
	detailTable("interface_impls", GroupExtraction, "interface_name", "impl_type"),
	detailTable("struct_fields", GroupExtraction, "struct_name", "field_name", "field_type"),
	detailTable("enum_variants", GroupExtraction, "enum_name", "variant_name"),
	detailTable("const_defs", GroupExtraction, "name", "value"),
	detailTable("decorators", GroupExtraction, "target_name", "decorator_name"),
	detailTable("annotations", GroupExtraction, "target_name", "annotation_name"),
	detailTable("generics_usage", GroupExtraction, "symbol_name", "type_params"),
	detailTable("closures", GroupExtraction, "in_function", "captures"),
	detailTable("module_graph_edges", GroupExtraction, "from_module", "to_module"),
	detailTable("symbol_aliases", GroupExtraction, "original_name", "alias_name"),

	// -- findings (RISK_SOURCES, beyond coreTables) --
	detailTable("python_security_findings", GroupRisk, "rule", "severity", "cwe"),
	detailTable("js_security_findings", GroupRisk, "rule", "severity", "cwe"),
	detailTable("go_security_findings", GroupRisk, "rule", "severity", "cwe"),
	detailTable("rust_security_findings", GroupRisk, "rule", "severity", "cwe"),
	detailTable("cdk_findings", GroupRisk, "rule", "severity", "resource"),
	detailTable("terraform_findings", GroupRisk, "rule", "severity", "resource"),
	detailTable("graphql_findings_cache", GroupRisk, "rule", "severity", "operation"),
	detailTable("framework_taint_patterns", GroupRisk, "framework", "pattern_kind", "pattern"),
	detailTable("docker_findings", GroupRisk, "rule", "severity", "image"),
	detailTable("boundary_findings", GroupRisk, "rule", "from_layer", "to_layer"),
	detailTable("pattern_findings", GroupRisk, "pattern_name", "severity"),
	detailTable("dependency_findings", GroupRisk, "manager", "dependency", "issue"),
	detailTable("license_findings", GroupRisk, "dependency", "license", "issue"),

	// -- process (CONTEXT_PROCESS) --
	detailTable("git_commits", GroupProcess, "hash", "author", "message"),
	detailTable("git_file_churn", GroupProcess, "changes_30d", "changes_90d"),
	detailTable("git_blame_hotspots", GroupProcess, "author", "age_days"),
	detailTable("git_co_change", GroupProcess, "other_file", "co_change_count"),
	detailTable("git_authors", GroupProcess, "author", "commit_count"),
	detailTable("git_branches", GroupProcess, "branch", "head_hash"),
	detailTable("release_tags", GroupProcess, "tag", "hash"),
	detailTable("deploy_events", GroupProcess, "environment", "status"),

	// -- structural (CONTEXT_STRUCTURAL) --
	detailTable("cfg_nodes", GroupStructural, "function_name", "node_kind"),
	detailTable("cfg_edges", GroupStructural, "function_name", "from_node", "to_node"),
	detailTable("complexity_metrics", GroupStructural, "function_name", "cyclomatic"),
	detailTable("centrality_scores", GroupStructural, "symbol_name", "score"),
	detailTable("call_graph_cycles", GroupStructural, "cycle_members"),
	detailTable("dead_code_modules", GroupStructural, "module", "confidence"),
	detailTable("dead_code_functions", GroupStructural, "function_name", "confidence"),
	detailTable("dead_code_classes", GroupStructural, "class_name", "confidence"),
	detailTable("fanin_fanout", GroupStructural, "symbol_name", "fan_in", "fan_out"),
	detailTable("cohesion_metrics", GroupStructural, "module", "lcom"),
	detailTable("loc_metrics", GroupStructural, "loc", "comment_lines"),
	detailTable("duplicate_blocks", GroupStructural, "other_file", "other_line", "token_count"),

	// -- framework (CONTEXT_FRAMEWORK, incl. .tsx/.vue extension targets) --
	detailTable("test_framework_commands", GroupFramework, "framework_name", "command"),
	detailTable("ci_pipelines", GroupFramework, "provider", "pipeline_name"),
	detailTable("build_targets", GroupFramework, "target_name", "tool"),
	detailTable("container_images", GroupFramework, "image", "tag"),
	detailTable("package_scripts", GroupFramework, "script_name", "command"),
	detailTable("middleware_chains", GroupFramework, "route", "middleware_name", "position"),
	detailTable("react_components", GroupFramework, "component_name", "props"),
	detailTable("react_hooks_usage", GroupFramework, "component_name", "hook_name"),
	detailTable("angular_components", GroupFramework, "component_name", "selector"),
	detailTable("angular_modules", GroupFramework, "module_name", "declarations"),
	detailTable("vue_components", GroupFramework, "component_name", "props"),
	detailTable("vue_templates", GroupFramework, "component_name", "template_hash"),
	detailTable("vue_props", GroupFramework, "component_name", "prop_name", "prop_type"),
	detailTable("vue_emits", GroupFramework, "component_name", "event_name"),
	detailTable("vue_slots", GroupFramework, "component_name", "slot_name"),
	detailTable("vue_directives", GroupFramework, "component_name", "directive_name"),
	detailTable("graphql_schema", GroupFramework, "type_name", "kind"),
	detailTable("graphql_resolvers", GroupFramework, "type_name", "field_name"),
	detailTable("graphql_types", GroupFramework, "type_name", "kind"),
	detailTable("graphql_directives", GroupFramework, "directive_name", "target"),
	detailTable("orm_models", GroupFramework, "model_name", "table_name"),
	detailTable("orm_migrations", GroupFramework, "migration_name", "applied"),
	detailTable("orm_relations", GroupFramework, "model_name", "related_model", "kind"),

	// -- security (CONTEXT_SECURITY) --
	detailTable("validators", GroupSecurity, "framework", "function_name"),
	detailTable("sanitizers", GroupSecurity, "framework", "function_name"),
	detailTable("security_headers", GroupSecurity, "header_name", "value"),
	detailTable("secrets_scan", GroupSecurity, "secret_kind", "redacted_value"),
	detailTable("cors_policies", GroupSecurity, "route", "allowed_origins"),
	detailTable("auth_guards", GroupSecurity, "route", "guard_name"),
	detailTable("csrf_tokens", GroupSecurity, "route", "token_strategy"),
	detailTable("rate_limit_rules", GroupSecurity, "route", "limit"),
	detailTable("crypto_usages", GroupSecurity, "algorithm", "function_name"),
	detailTable("input_validators", GroupSecurity, "route", "validator_name"),

	// -- language: python_* (CONTEXT_LANGUAGE, .py) --
	detailTable("python_classes", GroupLanguage, "class_name", "bases"),
	detailTable("python_functions_meta", GroupLanguage, "function_name", "is_async"),
	detailTable("python_decorators_detail", GroupLanguage, "target_name", "decorator_name"),
	detailTable("python_imports_detail", GroupLanguage, "module", "names"),
	detailTable("python_fstrings", GroupLanguage, "expr"),
	detailTable("python_comprehensions", GroupLanguage, "kind"),
	detailTable("python_context_managers", GroupLanguage, "manager_expr"),
	detailTable("python_type_hints", GroupLanguage, "symbol_name", "type_hint"),
	detailTable("python_dataclasses", GroupLanguage, "class_name"),
	detailTable("python_async_defs", GroupLanguage, "function_name"),

	// -- language: go_* (.go) --
	detailTable("go_structs", GroupLanguage, "struct_name"),
	detailTable("go_interfaces", GroupLanguage, "interface_name", "method_set"),
	detailTable("go_goroutines", GroupLanguage, "in_function", "target_func"),
	detailTable("go_channels", GroupLanguage, "channel_name", "elem_type"),
	detailTable("go_defer_calls", GroupLanguage, "in_function", "deferred_expr"),
	detailTable("go_error_wraps", GroupLanguage, "in_function", "wrapped_expr"),
	detailTable("go_generics", GroupLanguage, "symbol_name", "type_params"),
	detailTable("go_build_tags", GroupLanguage, "tag_expr"),
	detailTable("go_module_deps", GroupLanguage, "module_path", "version"),
	detailTable("go_embed_directives", GroupLanguage, "pattern"),

	// -- language: rust_* (.rs) --
	detailTable("rust_traits", GroupLanguage, "trait_name"),
	detailTable("rust_impls", GroupLanguage, "type_name", "trait_name"),
	detailTable("rust_macros", GroupLanguage, "macro_name"),
	detailTable("rust_unsafe_blocks", GroupLanguage, "in_function"),
	detailTable("rust_lifetimes", GroupLanguage, "symbol_name", "lifetime"),
	detailTable("rust_crates", GroupLanguage, "crate_name", "version"),
	detailTable("rust_derive_attrs", GroupLanguage, "type_name", "derive_name"),
	detailTable("rust_modules", GroupLanguage, "module_path"),

	// -- language: bash_* (.sh) --
	detailTable("bash_commands", GroupLanguage, "command_name", "args"),
	detailTable("bash_variables", GroupLanguage, "variable_name", "value_expr"),
	detailTable("bash_functions", GroupLanguage, "function_name"),
	detailTable("bash_pipelines", GroupLanguage, "stage_commands"),
	detailTable("bash_heredocs", GroupLanguage, "delimiter"),
	detailTable("bash_sourced_files", GroupLanguage, "sourced_path"),
}

// AllTables returns every table definition in the schema.
func AllTables() []tableDef {
	all := make([]tableDef, 0, len(coreTables)+len(detailGroupTables))
	all = append(all, coreTables...)
	all = append(all, detailGroupTables...)
	return all
}

// DDL renders the full CREATE TABLE IF NOT EXISTS script for the schema.
// Column lists come entirely from the fixed tableDef literals above, never
// from user input, so this is the one place in the package where SQL is
// composed by string concatenation rather than bound parameters.
func DDL() string {
	var b strings.Builder
	for _, t := range AllTables() {
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (%s);\n", t.name, t.columns)
	}
	// Helpful indexes for the hot query paths (hotspot grouping, taint
	// flow lookups, file-scoped context assembly).
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_findings_file_line ON findings_consolidated(file, line);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_findings_tool ON findings_consolidated(tool);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_symbols_file_line ON symbols(file, line);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_taint_flows_files ON taint_flows(source_file, sink_file);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_calls_callee ON calls(callee_function);\n")
	return b.String()
}

// TableCount returns the number of tables declared by the schema,
// schema_meta included. Used by tests to assert the ≥100-table
// requirement.
func TableCount() int {
	return len(AllTables())
}
