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

// VectorInputs are the per-file fact sets that determine vector
// membership beyond what findings/flows directly carry: PROCESS
// (churn/history-derived facts) and STRUCTURAL (complexity/graph-derived
// facts) come from analyzers this package doesn't itself run, so their
// file sets are supplied by the caller.
type VectorInputs struct {
	ProcessFiles    map[string]bool
	StructuralFiles map[string]bool
}

// DetermineVectorSignals computes each file's VectorSignal per §3's
// membership rules: STATIC from any non-structural-tool finding, FLOW
// from taint flow source/sink files, PROCESS and STRUCTURAL from the
// supplied fact sets.
func DetermineVectorSignals(findings []model.Finding, flows []model.TaintFlow, inputs VectorInputs) map[string]model.VectorSignal {
	present := make(map[string]map[model.Vector]bool)

	ensure := func(file string) map[model.Vector]bool {
		if present[file] == nil {
			present[file] = make(map[model.Vector]bool)
		}
		return present[file]
	}

	for _, f := range findings {
		if f.Tool == "structural" {
			continue
		}
		ensure(f.File)[model.VectorStatic] = true
	}
	for _, t := range flows {
		ensure(t.SourceFile)[model.VectorFlow] = true
		ensure(t.SinkFile)[model.VectorFlow] = true
	}
	for file := range inputs.ProcessFiles {
		ensure(file)[model.VectorProcess] = true
	}
	for file := range inputs.StructuralFiles {
		ensure(file)[model.VectorStructural] = true
	}

	out := make(map[string]model.VectorSignal, len(present))
	for file, vectors := range present {
		out[file] = model.NewVectorSignal(vectors)
	}
	return out
}
