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

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/severity"
	"github.com/faultline/fce/pkg/store"
)

// Rule is an AST rule named by the find_<X> convention (the built-in set
// is listed in BuiltinRules): a pure function over the indexed store that returns findings for the given
// workset. Rules must never mutate the store.
type Rule struct {
	Name     string
	Language string
	Fn       func(ctx context.Context, s *store.Store, workset []string) ([]model.Finding, error)
}

// Engine runs compiled YAML patterns and AST rules over a workset and
// normalizes their output into model.Finding rows.
type Engine struct {
	patterns []CompiledPattern
	rules    []Rule
}

// NewEngine builds an engine from pre-loaded patterns and rules.
func NewEngine(patterns []CompiledPattern, rules []Rule) *Engine {
	return &Engine{patterns: patterns, rules: rules}
}

// RunPatterns walks the workset's files line-by-line against every
// compiled pattern whose path_filter matches, emitting one finding per
// match. root is joined with each workset-relative path to read file
// contents.
func (e *Engine) RunPatterns(root string, workset []string) ([]model.Finding, error) {
	var findings []model.Finding
	now := time.Now()

	for _, file := range workset {
		applicable := make([]CompiledPattern, 0, len(e.patterns))
		for _, p := range e.patterns {
			if matchesPathFilter(file, p.Def.PathFilter) {
				applicable = append(applicable, p)
			}
		}
		if len(applicable) == 0 {
			continue
		}

		matches, err := scanFile(filepath.Join(root, file), file, applicable, now)
		if err != nil {
			return nil, err
		}
		findings = append(findings, matches...)
	}
	return findings, nil
}

func scanFile(fullPath, relPath string, patterns []CompiledPattern, now time.Time) ([]model.Finding, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pattern: open %s: %w", fullPath, err)
	}
	defer f.Close()

	var out []model.Finding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		for _, p := range patterns {
			if !p.Regex.MatchString(text) {
				continue
			}
			out = append(out, model.Finding{
				File:      relPath,
				Line:      line,
				Rule:      p.Def.Name,
				Tool:      "pattern-detector",
				Message:   p.Def.Description,
				Severity:  severity.Normalize(p.Def.Severity),
				Category:  p.Def.Category,
				Snippet:   text,
				Timestamp: now,
				Details:   map[string]any{"source_file": p.SourceFile},
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pattern: scan %s: %w", fullPath, err)
	}
	return out, nil
}

// RunRules executes the loaded AST rules that RulesForWorkset selects
// for the workset (rules whose language has a file in it, plus
// language-agnostic rules) and collects their findings.
func (e *Engine) RunRules(ctx context.Context, s *store.Store, workset []string) ([]model.Finding, error) {
	var findings []model.Finding
	for _, r := range RulesForWorkset(e.rules, workset) {
		found, err := r.Fn(ctx, s, workset)
		if err != nil {
			return nil, fmt.Errorf("pattern: rule %s: %w", r.Name, err)
		}
		findings = append(findings, found...)
	}
	return findings, nil
}

// RulesForWorkset returns the subset of rules whose Language matches at
// least one file extension present in workset, plus any language-agnostic
// rules (Language == "").
func RulesForWorkset(rules []Rule, workset []string) []Rule {
	present := make(map[string]bool)
	for _, f := range workset {
		present[filepath.Ext(f)] = true
	}
	langExts := map[string][]string{
		"go":     {".go"},
		"python": {".py"},
		"js":     {".js", ".jsx", ".ts", ".tsx"},
	}

	var out []Rule
	for _, r := range rules {
		if r.Language == "" {
			out = append(out, r)
			continue
		}
		for _, ext := range langExts[r.Language] {
			if present[ext] {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
