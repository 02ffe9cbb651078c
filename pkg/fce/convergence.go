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
	"errors"
	"sort"

	"github.com/faultline/fce/pkg/model"
)

// ErrInvalidMinVectors is returned when GetConvergencePoints is asked to
// filter by a threshold outside the valid 1..len(model.AllVectors) range.
var ErrInvalidMinVectors = errors.New("fce: min_vectors must be between 1 and 4")

// vectorForFinding maps a finding's tool to the vector it represents.
// Taint-tracker findings (materialized by TaintFlowToFinding) are FLOW;
// the structural analyzer's own findings are STRUCTURAL; everything else
// (linters, the pattern engine) is STATIC. PROCESS has no per-finding
// tool of its own — it is a file-level fact supplied via VectorInputs.
func vectorForFinding(f model.Finding) model.Vector {
	switch f.Tool {
	case "taint-tracker":
		return model.VectorFlow
	case "structural":
		return model.VectorStructural
	default:
		return model.VectorStatic
	}
}

// BuildConvergencePoints clusters findings on the same file with
// overlapping line ranges and emits a ConvergencePoint per
// cluster whose vector_count >= minVectors. Points are sorted by density
// descending, then by file path, per §4.8 step 4.
func BuildConvergencePoints(findings []model.Finding, inputs VectorInputs, minVectors int) ([]model.ConvergencePoint, error) {
	if minVectors < 1 || minVectors > len(model.AllVectors) {
		return nil, ErrInvalidMinVectors
	}

	byFile := make(map[string][]model.Finding)
	for _, f := range findings {
		byFile[f.File] = append(byFile[f.File], f)
	}

	var points []model.ConvergencePoint
	for file, fs := range byFile {
		for _, cluster := range clusterByLineRange(fs) {
			present := make(map[model.Vector]bool)
			for _, f := range cluster {
				present[vectorForFinding(f)] = true
			}
			if inputs.ProcessFiles[file] {
				present[model.VectorProcess] = true
			}
			if inputs.StructuralFiles[file] {
				present[model.VectorStructural] = true
			}

			signal := model.NewVectorSignal(present)
			if signal.VectorCount < minVectors {
				continue
			}

			start, end := lineRange(cluster)
			points = append(points, model.ConvergencePoint{
				File:      file,
				LineStart: start,
				LineEnd:   end,
				Signal:    signal,
				Facts:     cluster,
			})
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Signal.Density != points[j].Signal.Density {
			return points[i].Signal.Density > points[j].Signal.Density
		}
		return points[i].File < points[j].File
	})
	return points, nil
}

// clusterByLineRange groups a single file's findings into clusters of
// overlapping line ranges. Each finding's range is
// [Line, max(Line, EndLine)]; a finding joins the current cluster when
// its start line is at or before the cluster's end line, so ranges that
// share a line merge and merely adjacent ranges (end 15, start 16) do
// not.
func clusterByLineRange(findings []model.Finding) [][]model.Finding {
	sorted := append([]model.Finding{}, findings...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Line < sorted[j].Line })

	var clusters [][]model.Finding
	var current []model.Finding
	currentEnd := -1

	for _, f := range sorted {
		end := f.Line
		if f.EndLine > end {
			end = f.EndLine
		}
		if len(current) == 0 || f.Line <= currentEnd {
			current = append(current, f)
			if end > currentEnd {
				currentEnd = end
			}
			continue
		}
		clusters = append(clusters, current)
		current = []model.Finding{f}
		currentEnd = end
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters
}

func lineRange(findings []model.Finding) (int, int) {
	start, end := findings[0].Line, findings[0].Line
	for _, f := range findings {
		if f.Line < start {
			start = f.Line
		}
		e := f.Line
		if f.EndLine > e {
			e = f.EndLine
		}
		if e > end {
			end = e
		}
	}
	return start, end
}
