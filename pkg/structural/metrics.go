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

package structural

import (
	"context"
	"sort"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// ComputeComplexity derives a per-file fan-in/fan-out fact from the refs
// graph: fan-out is the number of distinct files a file imports, fan-in
// is the number of distinct files that import it. This is a cheap
// centrality proxy, not a real call-graph walk — a file with unusually
// high fan-in is a structural hotspot candidate even without a full CFG.
func ComputeComplexity(ctx context.Context, s *store.Store) ([]model.ComplexityFact, error) {
	rows, err := s.Query(ctx, `SELECT src_file, value FROM refs WHERE kind IN ('import', 'from', 'dynamic_import')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fanOut := make(map[string]map[string]bool)
	fanIn := make(map[string]map[string]bool)
	for rows.Next() {
		var src, value string
		if err := rows.Scan(&src, &value); err != nil {
			return nil, err
		}
		if fanOut[src] == nil {
			fanOut[src] = make(map[string]bool)
		}
		fanOut[src][value] = true
		if fanIn[value] == nil {
			fanIn[value] = make(map[string]bool)
		}
		fanIn[value][src] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts, err := symbolCounts(ctx, s)
	if err != nil {
		return nil, err
	}

	files := make(map[string]bool)
	for f := range fanOut {
		files[f] = true
	}
	for f := range fanIn {
		files[f] = true
	}
	for f := range counts {
		files[f] = true
	}

	var out []model.ComplexityFact
	for f := range files {
		out = append(out, model.ComplexityFact{
			File: f, FanOut: len(fanOut[f]), FanIn: len(fanIn[f]), SymbolLOC: counts[f],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

func symbolCounts(ctx context.Context, s *store.Store) (map[string]int, error) {
	rows, err := s.Query(ctx, "SELECT file, COUNT(*) FROM symbols GROUP BY file")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var f string
		var n int
		if err := rows.Scan(&f, &n); err != nil {
			return nil, err
		}
		out[f] = n
	}
	return out, rows.Err()
}

// DetectCycles finds elementary cycles in the file-level reference graph
// via DFS with a path stack, reporting each distinct cycle once
// regardless of which node it was discovered from.
func DetectCycles(ctx context.Context, s *store.Store) ([]model.Cycle, error) {
	rows, err := s.Query(ctx, `SELECT src_file, value FROM refs WHERE kind IN ('import', 'from', 'dynamic_import')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	graph := make(map[string][]string)
	for rows.Next() {
		var src, dst string
		if err := rows.Scan(&src, &dst); err != nil {
			return nil, err
		}
		graph[src] = append(graph[src], dst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var nodes []string
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	seen := make(map[string]bool)
	var cycles []model.Cycle
	for _, start := range nodes {
		visiting := make(map[string]bool)
		var path []string
		walkCycles(start, graph, visiting, &path, seen, &cycles)
	}
	return cycles, nil
}

func walkCycles(node string, graph map[string][]string, visiting map[string]bool, path *[]string, seen map[string]bool, cycles *[]model.Cycle) {
	if visiting[node] {
		idx := indexOf(*path, node)
		if idx < 0 {
			return
		}
		cycleNodes := append([]string{}, (*path)[idx:]...)
		key := cycleKey(cycleNodes)
		if seen[key] {
			return
		}
		seen[key] = true
		edges := make([]model.CycleEdge, 0, len(cycleNodes))
		for i := range cycleNodes {
			next := cycleNodes[(i+1)%len(cycleNodes)]
			edges = append(edges, model.CycleEdge{From: cycleNodes[i], To: next})
		}
		*cycles = append(*cycles, model.Cycle{Files: cycleNodes, Edges: edges})
		return
	}
	visiting[node] = true
	*path = append(*path, node)
	for _, next := range graph[node] {
		walkCycles(next, graph, visiting, path, seen, cycles)
	}
	*path = (*path)[:len(*path)-1]
	visiting[node] = false
}

func indexOf(path []string, node string) int {
	for i, p := range path {
		if p == node {
			return i
		}
	}
	return -1
}

// cycleKey builds a rotation-invariant key so the same cycle discovered
// from two different start nodes is only reported once.
func cycleKey(nodes []string) string {
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	rotated := append(append([]string{}, nodes[minIdx:]...), nodes[:minIdx]...)
	key := ""
	for _, n := range rotated {
		key += n + "|"
	}
	return key
}

// StructuralFiles reports every file touched by a complexity fact or a
// cycle, for use as fce.VectorInputs.StructuralFiles.
func StructuralFiles(facts []model.ComplexityFact, cycles []model.Cycle) map[string]bool {
	out := make(map[string]bool)
	for _, f := range facts {
		if f.FanIn > 0 || f.FanOut > 0 {
			out[f.File] = true
		}
	}
	for _, c := range cycles {
		for _, f := range c.Files {
			out[f] = true
		}
	}
	return out
}
