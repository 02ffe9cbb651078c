// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package framework

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadRegistry(t *testing.T) {
	r, err := LoadRegistry()
	require.NoError(t, err)
	assert.NotEmpty(t, r.All())
	assert.NotEmpty(t, r.DefsForManifest("package.json"))
}

func TestDetect_NpmPackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"dependencies": {"express": "^4.18.2"}}`)

	d, err := NewDetector()
	require.NoError(t, err)
	records, err := d.Detect(dir)
	require.NoError(t, err)

	found := false
	for _, r := range records {
		if r.Name == "express" {
			found = true
			assert.Equal(t, "4.18.2", r.Version)
			assert.Equal(t, "javascript", r.Language)
		}
	}
	assert.True(t, found, "expected express to be detected")
}

func TestDetect_PythonRequirementsLineSearch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "requirements.txt"), "django==4.2.1\nrequests==2.31.0\n")

	d, err := NewDetector()
	require.NoError(t, err)
	records, err := d.Detect(dir)
	require.NoError(t, err)

	found := false
	for _, r := range records {
		if r.Name == "django" {
			found = true
			assert.Equal(t, "4.2.1", r.Version)
		}
	}
	assert.True(t, found)
}

func TestDetect_ExcludesVendorDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "node_modules", "somepkg", "package.json"), `{"dependencies": {"express": "1.0.0"}}`)

	d, err := NewDetector()
	require.NoError(t, err)
	records, err := d.Detect(dir)
	require.NoError(t, err)
	assert.Empty(t, records, "node_modules must not be walked")
}

func TestDetect_ComposeFileDetectedByExistence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), "services:\n  web:\n    image: nginx\n")

	d, err := NewDetector()
	require.NoError(t, err)
	records, err := d.Detect(dir)
	require.NoError(t, err)

	found := false
	for _, r := range records {
		if r.Name == "docker-compose" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDescend_WildcardExpansion(t *testing.T) {
	doc := map[string]any{
		"tool": map[string]any{
			"poetry": map[string]any{
				"group": map[string]any{
					"dev":  map[string]any{"dependencies": map[string]any{"pytest": "^7.0"}},
					"test": map[string]any{"dependencies": map[string]any{"mock": "^5.0"}},
				},
			},
		},
	}
	results := descend(doc, []string{"tool", "poetry", "group", "*", "dependencies"})
	assert.Len(t, results, 2)
}

func TestCargoWorkspaceVersionResolution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Cargo.toml"), "[workspace]\nmembers = [\"crateA\"]\n\n[workspace.dependencies]\naxum = \"0.7.4\"\n")
	writeFile(t, filepath.Join(dir, "crateA", "Cargo.toml"), "[dependencies]\naxum = { workspace = true }\n")

	d, err := NewDetector()
	require.NoError(t, err)
	v := d.resolveCargoWorkspaceVersion(filepath.Join(dir, "crateA", "Cargo.toml"), "Cargo.toml", "axum", "workspace")
	assert.Equal(t, "0.7.4", v)
}
