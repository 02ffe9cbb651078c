// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package dockerlint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDockerfile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLint_FlagsRootContainer(t *testing.T) {
	path := writeDockerfile(t, "FROM golang:1.24\nCOPY . .\nRUN go build -o app\n")
	findings, err := Lint([]string{path}, time.Now())
	require.NoError(t, err)

	var gotRoot bool
	for _, f := range findings {
		if f.Rule == "docker-root-container" {
			gotRoot = true
		}
	}
	assert.True(t, gotRoot, "expected a docker-root-container finding")
}

func TestLint_NonRootUserClearsRootCheck(t *testing.T) {
	path := writeDockerfile(t, "FROM golang:1.24\nUSER appuser\n")
	findings, err := Lint([]string{path}, time.Now())
	require.NoError(t, err)

	for _, f := range findings {
		assert.NotEqual(t, "docker-root-container", f.Rule)
	}
}

func TestLint_FlagsUnpinnedBaseImage(t *testing.T) {
	path := writeDockerfile(t, "FROM golang:latest\nUSER appuser\nHEALTHCHECK CMD true\n")
	findings, err := Lint([]string{path}, time.Now())
	require.NoError(t, err)

	var got bool
	for _, f := range findings {
		if f.Rule == "docker-unpinned-base-image" {
			got = true
		}
	}
	assert.True(t, got)
}

func TestLint_FlagsExposedSecretByName(t *testing.T) {
	path := writeDockerfile(t, "FROM golang:1.24\nUSER appuser\nHEALTHCHECK CMD true\nENV API_KEY=hunter2placeholder\n")
	findings, err := Lint([]string{path}, time.Now())
	require.NoError(t, err)

	var got bool
	for _, f := range findings {
		if f.Rule == "docker-exposed-secret" {
			got = true
		}
	}
	assert.True(t, got)
}

func TestIsHighEntropy_SkipsShortAndSpacedValues(t *testing.T) {
	assert.False(t, isHighEntropy("short"))
	assert.False(t, isHighEntropy("has a space in it"))
	assert.True(t, isHighEntropy("aZ9f!qT2mK8pL0xR7vN3wE1s"))
}

func TestParseImageRef_HandlesDigestAndBareName(t *testing.T) {
	img := parseImageRef("golang@sha256:abcdef")
	assert.Equal(t, "golang", img.name)
	assert.Equal(t, "sha256:abcdef", img.tag)

	img = parseImageRef("golang")
	assert.Equal(t, "latest", img.tag)
}
