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
	"sort"

	"github.com/faultline/fce/pkg/model"
)

type fileLine struct {
	file string
	line int
}

// DetectHotspots groups findings by (file, line) for line > 0 and keeps
// groups touched by findings from at least two distinct tools. Each
// hotspot is enriched with the nearest enclosing function or class
// symbol: the symbol on that file with the greatest Line <= hotspot
// line.
func DetectHotspots(findings []model.Finding, symbols []model.Symbol) []model.Hotspot {
	groups := make(map[fileLine][]model.Finding)
	var order []fileLine
	for _, f := range findings {
		if f.Line <= 0 {
			continue
		}
		key := fileLine{f.File, f.Line}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], f)
	}

	symbolsByFile := make(map[string][]model.Symbol)
	for _, s := range symbols {
		if s.Type == "function" || s.Type == "class" || s.Type == "method" {
			symbolsByFile[s.File] = append(symbolsByFile[s.File], s)
		}
	}
	for file := range symbolsByFile {
		sort.Slice(symbolsByFile[file], func(i, j int) bool {
			return symbolsByFile[file][i].Line < symbolsByFile[file][j].Line
		})
	}

	var out []model.Hotspot
	for _, key := range order {
		fs := groups[key]
		if distinctToolCount(fs) < 2 {
			continue
		}
		h := model.Hotspot{File: key.file, Line: key.line, Findings: fs}
		if sym := nearestEnclosingSymbol(symbolsByFile[key.file], key.line); sym != nil {
			h.EnclosingSymbol = sym
		}
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

func distinctToolCount(findings []model.Finding) int {
	tools := make(map[string]bool)
	for _, f := range findings {
		tools[f.Tool] = true
	}
	return len(tools)
}

// nearestEnclosingSymbol returns the symbol with the greatest Line <=
// line, from a slice already sorted ascending by Line, or nil if none
// qualifies.
func nearestEnclosingSymbol(sorted []model.Symbol, line int) *model.Symbol {
	var best *model.Symbol
	for i := range sorted {
		if sorted[i].Line > line {
			break
		}
		best = &sorted[i]
	}
	return best
}
