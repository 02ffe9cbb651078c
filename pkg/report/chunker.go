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

// Package report decomposes a correlated FCE report into self-contained
// JSON chunks bounded by a byte budget, so large reports can be handed
// to consumers with a fixed context window without ever splitting a
// single finding or convergence point across chunk boundaries.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/faultline/fce/pkg/fce"
	"github.com/faultline/fce/pkg/model"
)

// DefaultBudgetBytes is the byte budget applied when a caller passes 0.
const DefaultBudgetBytes = 60 * 1024

const (
	ContentFindings    = "findings"
	ContentConvergence = "convergence_points"
	ContentSummary     = "summary"
)

// Chunk is one self-contained unit of a chunked report. TotalChunks is
// left at 0 until chunking completes, then back-filled on every chunk
// produced by Chunk, matching §4.11's "total_chunks is set on every
// chunk after chunking completes."
type Chunk struct {
	ChunkNumber int                      `json:"chunk_number"`
	TotalChunks int                      `json:"total_chunks"`
	ContentType string                   `json:"content_type"`
	Findings    []model.Finding          `json:"findings,omitempty"`
	Convergence []model.ConvergencePoint `json:"convergence_points,omitempty"`
	Hotspots    []model.Hotspot          `json:"hotspots,omitempty"`
	Clusters    []model.FactualCluster   `json:"factual_clusters,omitempty"`
	Summary     *fce.Summary             `json:"summary,omitempty"`
}

// Chunk splits rep into a sequence of chunks whose items' individual
// compact JSON encodings total no more than budgetBytes (a single
// oversized item still gets its own chunk rather than being split, since
// no unit may ever be divided). The chunk's own metadata fields, the
// separators between items, and the indentation WriteChunks adds are not
// counted, so a chunk's encoded size can exceed budgetBytes. Findings are
// packed first, in their incoming order, followed by convergence
// points, followed by one trailing chunk carrying hotspots, factual
// clusters, and the summary — those three are assumed small enough to
// never warrant their own budget-bound packing.
func Chunk(rep *fce.Report, budgetBytes int) ([]Chunk, error) {
	if rep == nil {
		return nil, fmt.Errorf("report: cannot chunk a nil report")
	}
	if budgetBytes <= 0 {
		budgetBytes = DefaultBudgetBytes
	}

	var chunks []Chunk

	findingChunks, err := packFindings(rep.Findings, budgetBytes)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, findingChunks...)

	convergenceChunks, err := packConvergence(rep.Convergence, budgetBytes)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, convergenceChunks...)

	chunks = append(chunks, Chunk{
		ContentType: ContentSummary,
		Hotspots:    rep.Hotspots,
		Clusters:    rep.Clusters,
		Summary:     &rep.Summary,
	})

	for i := range chunks {
		chunks[i].ChunkNumber = i + 1
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks, nil
}

func packFindings(findings []model.Finding, budgetBytes int) ([]Chunk, error) {
	if len(findings) == 0 {
		return nil, nil
	}
	var chunks []Chunk
	var current []model.Finding
	size := 0
	for _, f := range findings {
		itemSize, err := jsonSize(f)
		if err != nil {
			return nil, err
		}
		if len(current) > 0 && size+itemSize > budgetBytes {
			chunks = append(chunks, Chunk{ContentType: ContentFindings, Findings: current})
			current = nil
			size = 0
		}
		current = append(current, f)
		size += itemSize
	}
	if len(current) > 0 {
		chunks = append(chunks, Chunk{ContentType: ContentFindings, Findings: current})
	}
	return chunks, nil
}

func packConvergence(points []model.ConvergencePoint, budgetBytes int) ([]Chunk, error) {
	if len(points) == 0 {
		return nil, nil
	}
	var chunks []Chunk
	var current []model.ConvergencePoint
	size := 0
	for _, p := range points {
		itemSize, err := jsonSize(p)
		if err != nil {
			return nil, err
		}
		if len(current) > 0 && size+itemSize > budgetBytes {
			chunks = append(chunks, Chunk{ContentType: ContentConvergence, Convergence: current})
			current = nil
			size = 0
		}
		current = append(current, p)
		size += itemSize
	}
	if len(current) > 0 {
		chunks = append(chunks, Chunk{ContentType: ContentConvergence, Convergence: current})
	}
	return chunks, nil
}

func jsonSize(v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("report: measure chunk item size: %w", err)
	}
	return len(b), nil
}

// WriteChunks writes each chunk to outDir as chunk-<n>-of-<total>.json.
func WriteChunks(outDir string, chunks []Chunk) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}
	for _, c := range chunks {
		name := fmt.Sprintf("chunk-%03d-of-%03d.json", c.ChunkNumber, c.TotalChunks)
		b, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("report: marshal chunk %d: %w", c.ChunkNumber, err)
		}
		if err := os.WriteFile(filepath.Join(outDir, name), b, 0o644); err != nil {
			return fmt.Errorf("report: write chunk %d: %w", c.ChunkNumber, err)
		}
	}
	return nil
}
