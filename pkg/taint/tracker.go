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

package taint

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// DefaultMaxDepth bounds how many assignment hops taint propagates from
// its source. Taint moves only through assignments within one file; a
// call is checked as a sink and does not carry taint into the callee's
// parameters.
const DefaultMaxDepth = 5

// Tracker runs the source/sanitizer/sink state machine over a workset's
// assignment and call facts.
type Tracker struct {
	Sources    []SourceRule
	Sinks      []SinkRule
	Sanitizers []SanitizerRule
	MaxDepth   int
}

// NewTracker builds a Tracker from rule sets, defaulting MaxDepth when
// non-positive.
func NewTracker(sources []SourceRule, sinks []SinkRule, sanitizers []SanitizerRule, maxDepth int) *Tracker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Tracker{Sources: sources, Sinks: sinks, Sanitizers: sanitizers, MaxDepth: maxDepth}
}

// varState is the taint-tracking record for one assignment target: its
// current state, the path that produced it, and the metadata needed to
// materialize a TaintFlow if the path reaches a sink.
type varState struct {
	state      State
	path       []model.TaintStep
	confidence float64
	vulnType   string
	sourceName string
	depth      int
}

// event is one (file, line) fact in scan order: either an assignment or
// a call, never both.
type event struct {
	file       string
	line       int
	isCall     bool
	target     string // assignment target var
	sourceExpr string // assignment source expression
	callee     string // call callee function name
	argExpr    string // call argument expression
}

// Track loads the workset's assignments and calls from the store and
// runs the taint state machine over them, returning every materialized
// TaintFlow. Unresolvable references and paths beyond MaxDepth are
// silently pruned rather than treated as errors, per the tracker's
// failure semantics.
func (t *Tracker) Track(ctx context.Context, s *store.Store, workset []string) ([]model.TaintFlow, error) {
	if len(workset) == 0 {
		return nil, nil
	}
	assignments, err := loadAssignments(ctx, s, workset)
	if err != nil {
		return nil, err
	}
	calls, err := loadCalls(ctx, s, workset)
	if err != nil {
		return nil, err
	}

	byFile := groupEvents(assignments, calls)

	var flows []model.TaintFlow
	for _, file := range sortedKeys(byFile) {
		flows = append(flows, t.trackFile(file, byFile[file])...)
	}
	return flows, nil
}

func (t *Tracker) trackFile(file string, events []event) []model.TaintFlow {
	vars := make(map[string]varState)
	var flows []model.TaintFlow

	for _, ev := range events {
		if !ev.isCall {
			vars[ev.target] = t.evalAssignment(file, ev, vars)
			continue
		}
		if flow, ok := t.evalCall(file, ev, vars); ok {
			flows = append(flows, flow)
		}
	}
	return flows
}

func (t *Tracker) evalAssignment(file string, ev event, vars map[string]varState) varState {
	step := model.TaintStep{File: file, Line: ev.line, Expr: ev.sourceExpr}

	if rule := matchSource(t.Sources, ev.sourceExpr); rule != nil {
		vs := varState{
			state:      Tainted,
			path:       []model.TaintStep{step},
			confidence: rule.Confidence,
			vulnType:   rule.VulnerabilityType,
			sourceName: rule.Name,
		}
		if matchSanitizer(t.Sanitizers, ev.sourceExpr) != nil {
			vs.state = Sanitized
		}
		return vs
	}

	dep, ok := strongestDependency(ev.sourceExpr, vars)
	if !ok {
		return varState{state: Untainted}
	}
	if dep.depth >= t.MaxDepth {
		return varState{state: Untainted} // bounded: prune propagation past the depth cap
	}
	if containsStep(dep.path, file, ev.line) {
		return varState{state: Untainted} // (file, line) already on this path: cycle, prune; the variable name is not compared
	}

	vs := varState{
		state:      dep.state,
		path:       append(append([]model.TaintStep{}, dep.path...), step),
		confidence: dep.confidence,
		vulnType:   dep.vulnType,
		sourceName: dep.sourceName,
		depth:      dep.depth + 1,
	}
	if matchSanitizer(t.Sanitizers, ev.sourceExpr) != nil {
		vs.state = Sanitized
	}
	return vs
}

func (t *Tracker) evalCall(file string, ev event, vars map[string]varState) (model.TaintFlow, bool) {
	dep, ok := strongestDependency(ev.argExpr, vars)
	if !ok || dep.state != Tainted {
		return model.TaintFlow{}, false
	}
	sink := matchSink(t.Sinks, ev.callee)
	if sink == nil {
		return model.TaintFlow{}, false
	}
	if len(dep.path) == 0 {
		return model.TaintFlow{}, false
	}

	step := model.TaintStep{File: file, Line: ev.line, Expr: fmt.Sprintf("%s(%s)", ev.callee, ev.argExpr)}
	path := append(append([]model.TaintStep{}, dep.path...), step)
	origin := dep.path[0]

	return model.TaintFlow{
		SourceFile:        origin.File,
		SourceLine:        origin.Line,
		SourcePattern:     dep.sourceName,
		SinkFile:          file,
		SinkLine:          ev.line,
		SinkPattern:       sink.Name,
		VulnerabilityType: sink.VulnerabilityType,
		Confidence:        dep.confidence,
		IntermediateSteps: path,
	}, true
}

func matchSource(rules []SourceRule, expr string) *SourceRule {
	for i := range rules {
		if rules[i].Pattern.MatchString(expr) {
			return &rules[i]
		}
	}
	return nil
}

func matchSink(rules []SinkRule, callee string) *SinkRule {
	for i := range rules {
		if rules[i].Pattern.MatchString(callee) {
			return &rules[i]
		}
	}
	return nil
}

func matchSanitizer(rules []SanitizerRule, expr string) *SanitizerRule {
	for i := range rules {
		if rules[i].Pattern.MatchString(expr) {
			return &rules[i]
		}
	}
	return nil
}

// strongestDependency finds the variable referenced in expr (as a whole
// word) with the highest-precedence state, so an expression built from
// several inputs inherits the most dangerous one.
func strongestDependency(expr string, vars map[string]varState) (varState, bool) {
	var best varState
	found := false
	for name, vs := range vars {
		if vs.state == Untainted {
			continue
		}
		if !referencesVar(expr, name) {
			continue
		}
		if !found || precedence[vs.state] > precedence[best.state] {
			best = vs
			found = true
		}
	}
	return best, found
}

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func referencesVar(expr, name string) bool {
	for _, m := range identPattern.FindAllString(expr, -1) {
		if m == name {
			return true
		}
	}
	return false
}

func containsStep(path []model.TaintStep, file string, line int) bool {
	for _, s := range path {
		if s.File == file && s.Line == line {
			return true
		}
	}
	return false
}

func loadAssignments(ctx context.Context, s *store.Store, workset []string) ([]model.Assignment, error) {
	placeholders, args := inPlaceholders(workset)
	query := fmt.Sprintf(`SELECT file, line, target_var, source_expr FROM assignments WHERE file IN (%s) ORDER BY file, line`, placeholders)
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taint: load assignments: %w", err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.File, &a.Line, &a.Target, &a.SourceExpr); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func loadCalls(ctx context.Context, s *store.Store, workset []string) ([]model.Call, error) {
	placeholders, args := inPlaceholders(workset)
	query := fmt.Sprintf(`SELECT caller_file, caller_line, callee_function, argument_expression FROM calls WHERE caller_file IN (%s) ORDER BY caller_file, caller_line`, placeholders)
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taint: load calls: %w", err)
	}
	defer rows.Close()

	var out []model.Call
	for rows.Next() {
		var c model.Call
		if err := rows.Scan(&c.CallerFile, &c.CallerLine, &c.Callee, &c.ArgExpr); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func inPlaceholders(workset []string) (string, []any) {
	ph := make([]string, len(workset))
	args := make([]any, len(workset))
	for i, f := range workset {
		ph[i] = "?"
		args[i] = f
	}
	return strings.Join(ph, ","), args
}

func groupEvents(assignments []model.Assignment, calls []model.Call) map[string][]event {
	byFile := make(map[string][]event)
	for _, a := range assignments {
		byFile[a.File] = append(byFile[a.File], event{file: a.File, line: a.Line, target: a.Target, sourceExpr: a.SourceExpr})
	}
	for _, c := range calls {
		byFile[c.CallerFile] = append(byFile[c.CallerFile], event{file: c.CallerFile, line: c.CallerLine, isCall: true, callee: c.Callee, argExpr: c.ArgExpr})
	}
	for file := range byFile {
		evs := byFile[file]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].line < evs[j].line })
		byFile[file] = evs
	}
	return byFile
}

func sortedKeys(byFile map[string][]event) []string {
	keys := make([]string, 0, len(byFile))
	for k := range byFile {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
