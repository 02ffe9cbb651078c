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

import "github.com/faultline/fce/pkg/model"

// DefaultWorkflowRules are the built-in CorrelationRules for common
// workflow risks: a file carrying a dangerous-sink finding (string-built
// SQL or dynamic eval), and a file where an exposed secret and a missing
// input-validation boundary co-occur. The predicate grammar has no
// negation, so the sink rule matches on the sink finding alone; it does
// not check for the absence of validation or authorization findings.
// They use the same rule grammar as the rules in .fce/project.yaml.
func DefaultWorkflowRules() []model.CorrelationRule {
	return []model.CorrelationRule{
		{
			Name:        "unvalidated-handler-to-sink",
			Description: "a dangerous-sink finding (string-built SQL or dynamic eval) on this file; validation findings are not consulted",
			Confidence:  0.6,
			Facts: []model.FactPredicate{
				{Field: "rule", Op: "regex", Value: "^(sql-string-concat|sql-string-format|dangerous-eval)$"},
			},
		},
		{
			Name:        "secret-in-unvalidated-boundary",
			Description: "an exposed secret co-occurs with a missing input-validation boundary on the same file",
			Confidence:  0.5,
			Facts: []model.FactPredicate{
				{Field: "rule", Op: "equals", Value: "docker-exposed-secret"},
				{Field: "rule", Op: "equals", Value: "boundary-missing"},
			},
		},
	}
}
