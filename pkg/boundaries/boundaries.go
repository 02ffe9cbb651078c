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

// Package boundaries reports the distance, in call-graph hops, between
// an entry point that ingests external data and the nearest function
// that validates, authenticates, or sanitizes it. It is a thin query
// layer over pkg/store: a truth courier that reports the facts it finds
// without prescribing a fix.
package boundaries

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// Quality is the closed set of boundary classifications.
type Quality string

const (
	QualityClear      Quality = "clear"      // a single control at distance 0
	QualityAcceptable Quality = "acceptable" // a single control at distance 1-2
	QualityFuzzy      Quality = "fuzzy"       // multiple controls, or distance 3+
	QualityMissing    Quality = "missing"     // no control reached
)

const maxSearchDepth = 6

var (
	entryNameRe   = regexp.MustCompile(`(?i)^(handle|serve|route).*|.*(handler|endpoint)$`)
	controlNameRe = regexp.MustCompile(`(?i)(validate|sanitize|authenticate|authorize|escape|check(perm|auth|access)|requireauth|ensuretenant)`)
)

func classify(controlsHit int, distance int) Quality {
	switch {
	case controlsHit == 0:
		return QualityMissing
	case controlsHit > 1:
		return QualityFuzzy
	case distance == 0:
		return QualityClear
	case distance <= 2:
		return QualityAcceptable
	default:
		return QualityFuzzy
	}
}

func severityFor(q Quality) model.Severity {
	switch q {
	case QualityMissing:
		return model.SeverityHigh
	case QualityFuzzy:
		return model.SeverityMedium
	case QualityAcceptable:
		return model.SeverityLow
	default:
		return model.SeverityInfo
	}
}

// Analyze builds the caller/callee graph from the store's calls table,
// identifies entry-point functions by name, and BFS-searches forward
// from each one for the nearest control-point function. It returns one
// Finding per entry point, classifying how far external data travels
// before it's checked.
func Analyze(ctx context.Context, s *store.Store, now time.Time) ([]model.Finding, error) {
	rows, err := s.Query(ctx, `SELECT DISTINCT caller_function, callee_function, caller_file FROM calls WHERE caller_function IS NOT NULL AND caller_function != ''`)
	if err != nil {
		return nil, fmt.Errorf("boundaries: read calls: %w", err)
	}
	defer rows.Close()

	graph := make(map[string][]string)
	fileOf := make(map[string]string)
	for rows.Next() {
		var caller, callee, file string
		if err := rows.Scan(&caller, &callee, &file); err != nil {
			return nil, err
		}
		graph[caller] = append(graph[caller], callee)
		if _, ok := fileOf[caller]; !ok {
			fileOf[caller] = file
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var entries []string
	for caller := range graph {
		if entryNameRe.MatchString(caller) {
			entries = append(entries, caller)
		}
	}

	var findings []model.Finding
	for _, entry := range entries {
		distance, hits := nearestControls(graph, entry)
		q := classify(hits, distance)
		findings = append(findings, model.Finding{
			File:      fileOf[entry],
			Rule:      "boundary-" + string(q),
			Tool:      "boundary-analyzer",
			Message:   fmt.Sprintf("entry point %q reaches a control point at distance %d (%s)", entry, distance, q),
			Severity:  severityFor(q),
			Category:  "input-validation",
			Timestamp: now,
			Details: map[string]any{
				"entry":    entry,
				"distance": distance,
				"controls": hits,
				"quality":  string(q),
			},
		})
	}
	return findings, nil
}

// nearestControls BFS-walks the call graph from entry, returning the
// hop distance to the first control-point function reached and the
// total count of distinct control points found within maxSearchDepth.
func nearestControls(graph map[string][]string, entry string) (int, int) {
	type node struct {
		name  string
		depth int
	}
	visited := map[string]bool{entry: true}
	queue := []node{{entry, 0}}
	nearest := -1
	hits := 0

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > maxSearchDepth {
			continue
		}
		if controlNameRe.MatchString(cur.name) {
			hits++
			if nearest == -1 {
				nearest = cur.depth
			}
			continue // a control point's own callees aren't walked further
		}
		for _, next := range graph[cur.name] {
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, node{next, cur.depth + 1})
		}
	}
	if nearest == -1 {
		return 0, 0
	}
	return nearest, hits
}
