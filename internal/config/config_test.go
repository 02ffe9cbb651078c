// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	opts, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default().MinVectors, opts.MinVectors)
	assert.Equal(t, dir, opts.Root)
}

func TestLoad_ParsesProjectYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".fce"), 0o755))
	content := "min_vectors: 3\noffline: true\nrules:\n  - name: custom\n    description: test rule\n    confidence: 0.9\n    facts:\n      - field: tool\n        op: equals\n        value: docker-analyzer\n"
	require.NoError(t, os.WriteFile(Path(dir), []byte(content), 0o644))

	opts, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.MinVectors)
	assert.True(t, opts.Offline)
	require.Len(t, opts.Rules, 1)
	assert.Equal(t, "custom", opts.Rules[0].Name)
}
