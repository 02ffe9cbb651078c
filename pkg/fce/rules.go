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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/faultline/fce/pkg/model"
)

// fieldValue extracts a FactPredicate's named field from a finding. This
// is the fixed predicate grammar's field vocabulary: file, tool, rule,
// message, severity, category, cwe and line, plus a dotted
// "details.<key>" escape into its opaque attrs map. Any other field name
// matches no finding.
func fieldValue(f model.Finding, field string) (string, bool) {
	switch field {
	case "file":
		return f.File, true
	case "tool":
		return f.Tool, true
	case "rule":
		return f.Rule, true
	case "message":
		return f.Message, true
	case "severity":
		return string(f.Severity), true
	case "category":
		return f.Category, true
	case "cwe":
		return f.CWE, true
	case "line":
		return strconv.Itoa(f.Line), true
	}
	if strings.HasPrefix(field, "details.") {
		key := strings.TrimPrefix(field, "details.")
		if v, ok := f.Details[key]; ok {
			return fmt.Sprintf("%v", v), true
		}
		return "", false
	}
	return "", false
}

// predicateRegexCache avoids recompiling the same rule's regex for every
// finding it's evaluated against within a run.
var predicateRegexCache sync.Map // map[string]*regexp.Regexp

func compiledPredicateRegex(pattern string) (*regexp.Regexp, error) {
	if v, ok := predicateRegexCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	predicateRegexCache.Store(pattern, re)
	return re, nil
}

// MatchPredicate evaluates one FactPredicate against one finding, per the
// fixed grammar {field, op: equals|contains|regex, value}.
func MatchPredicate(f model.Finding, p model.FactPredicate) (bool, error) {
	actual, ok := fieldValue(f, p.Field)
	if !ok {
		return false, nil
	}
	switch p.Op {
	case "equals":
		return actual == p.Value, nil
	case "contains":
		return strings.Contains(actual, p.Value), nil
	case "regex":
		re, err := compiledPredicateRegex(p.Value)
		if err != nil {
			return false, fmt.Errorf("fce: rule predicate field %q: %w", p.Field, err)
		}
		return re.MatchString(actual), nil
	default:
		return false, fmt.Errorf("fce: unknown predicate op %q", p.Op)
	}
}

// EvaluateCorrelationRules checks every rule against every file with
// findings: a rule matches a file iff, for each of its facts, at least
// one finding on that file satisfies the predicate. A rule with no facts
// matches no file.
func EvaluateCorrelationRules(rules []model.CorrelationRule, findingsByFile map[string][]model.Finding) ([]model.FactualCluster, error) {
	var out []model.FactualCluster
	for _, rule := range rules {
		for file, findings := range findingsByFile {
			matched, err := ruleMatchesFile(rule, findings)
			if err != nil {
				return nil, err
			}
			if matched {
				out = append(out, model.FactualCluster{
					Name:        rule.Name,
					File:        file,
					Description: rule.Description,
					Confidence:  rule.Confidence,
				})
			}
		}
	}
	return out, nil
}

func ruleMatchesFile(rule model.CorrelationRule, findings []model.Finding) (bool, error) {
	for _, fact := range rule.Facts {
		satisfied := false
		for _, f := range findings {
			ok, err := MatchPredicate(f, fact)
			if err != nil {
				return false, err
			}
			if ok {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false, nil
		}
	}
	return len(rule.Facts) > 0, nil
}

// GroupFindingsByFile is a small convenience used by Correlate and by
// callers building context bundles outside the main pipeline.
func GroupFindingsByFile(findings []model.Finding) map[string][]model.Finding {
	out := make(map[string][]model.Finding)
	for _, f := range findings {
		out[f.File] = append(out[f.File], f)
	}
	return out
}
