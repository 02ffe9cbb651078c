// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/fce/pkg/fce"
	"github.com/faultline/fce/pkg/model"
)

func mkFindings(n int) []model.Finding {
	out := make([]model.Finding, n)
	for i := 0; i < n; i++ {
		out[i] = model.Finding{
			File:     fmt.Sprintf("pkg/file%d.go", i),
			Line:     i + 1,
			Rule:     "some-rule",
			Tool:     "pattern",
			Message:  "a moderately long message to give each finding realistic weight in the byte budget",
			Severity: model.SeverityMedium,
		}
	}
	return out
}

func TestChunk_RoundTripPreservesFindingOrder(t *testing.T) {
	findings := mkFindings(50)
	rep := &fce.Report{Findings: findings}

	chunks, err := Chunk(rep, 512) // small budget forces many chunks
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	var reassembled []model.Finding
	for _, c := range chunks {
		if c.ContentType == ContentFindings {
			reassembled = append(reassembled, c.Findings...)
		}
	}
	assert.Equal(t, findings, reassembled)
}

func TestChunk_TotalChunksSetOnEveryChunk(t *testing.T) {
	rep := &fce.Report{Findings: mkFindings(10)}
	chunks, err := Chunk(rep, 256)
	require.NoError(t, err)
	for i, c := range chunks {
		assert.Equal(t, i+1, c.ChunkNumber)
		assert.Equal(t, len(chunks), c.TotalChunks)
	}
}

func TestChunk_NeverSplitsASingleFindingAcrossChunks(t *testing.T) {
	findings := mkFindings(3)
	rep := &fce.Report{Findings: findings}

	// A budget smaller than a single finding's marshaled size still
	// yields one finding per chunk rather than a truncated finding.
	chunks, err := Chunk(rep, 1)
	require.NoError(t, err)

	var total int
	for _, c := range chunks {
		if c.ContentType == ContentFindings {
			assert.LessOrEqual(t, len(c.Findings), 1)
			total += len(c.Findings)
		}
	}
	assert.Equal(t, len(findings), total)
}

func TestChunk_ConvergencePointsPackedSeparatelyFromFindings(t *testing.T) {
	rep := &fce.Report{
		Findings:    mkFindings(5),
		Convergence: []model.ConvergencePoint{{File: "a.go", LineStart: 1, LineEnd: 10}},
	}
	chunks, err := Chunk(rep, DefaultBudgetBytes)
	require.NoError(t, err)

	var sawConvergence bool
	for _, c := range chunks {
		if c.ContentType == ContentConvergence {
			sawConvergence = true
			assert.Empty(t, c.Findings)
		}
	}
	assert.True(t, sawConvergence)
}

func TestChunk_EmptyReportStillProducesSummaryChunk(t *testing.T) {
	rep := &fce.Report{}
	chunks, err := Chunk(rep, DefaultBudgetBytes)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, ContentSummary, chunks[0].ContentType)
	assert.Equal(t, 1, chunks[0].TotalChunks)
}

func TestChunk_NilReportErrors(t *testing.T) {
	_, err := Chunk(nil, DefaultBudgetBytes)
	assert.Error(t, err)
}

func TestWriteChunks_WritesOneFilePerChunk(t *testing.T) {
	rep := &fce.Report{Findings: mkFindings(20)}
	chunks, err := Chunk(rep, 512)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteChunks(dir, chunks))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(chunks))

	first := filepath.Join(dir, fmt.Sprintf("chunk-%03d-of-%03d.json", 1, len(chunks)))
	_, err = os.Stat(first)
	assert.NoError(t, err)
}
