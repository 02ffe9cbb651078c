// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package workset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/fce/pkg/model"
)

func testManifest() ([]model.WorksetFile, map[string]string) {
	manifest := []model.WorksetFile{
		{Path: "a.ts", SHA256: "a"},
		{Path: "b.ts", SHA256: "b"},
		{Path: "c.ts", SHA256: "c"},
		{Path: "d.ts", SHA256: "d"},
	}
	byPath := map[string]string{}
	for _, m := range manifest {
		byPath[m.Path] = m.SHA256
	}
	return manifest, byPath
}

// a -> b -> c -> d (a chain), each via a relative import.
func chainRefs() []model.Ref {
	return []model.Ref{
		{SrcFile: "a.ts", Kind: "import", Value: "./b"},
		{SrcFile: "b.ts", Kind: "import", Value: "./c"},
		{SrcFile: "c.ts", Kind: "import", Value: "./d"},
	}
}

func TestResolve_SeedAll(t *testing.T) {
	manifest, _ := testManifest()
	ws, err := Resolve(context.Background(), Options{Root: ".", Mode: SeedAll}, manifest, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, ws.Expanded)
}

func TestResolve_SeedFiles_FiltersAgainstManifest(t *testing.T) {
	manifest, _ := testManifest()
	opts := Options{Root: ".", Mode: SeedFiles, Files: []string{"a.ts", "nonexistent.ts"}}
	ws, err := Resolve(context.Background(), opts, manifest, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ws.SeedCount)
}

func TestExpansion_Monotonic(t *testing.T) {
	_, byPath := testManifest()
	refs := chainRefs()

	prev := map[string]bool{}
	for depth := 0; depth <= 3; depth++ {
		result := expand([]string{"a.ts"}, refs, byPath, depth)
		set := map[string]bool{}
		for _, p := range result {
			set[p] = true
		}
		for p := range prev {
			assert.True(t, set[p], "paths(depth=%d) must be a superset of paths(depth=%d), missing %s", depth, depth-1, p)
		}
		prev = set
	}
}

func TestExpansion_ReachesFullChainAtSufficientDepth(t *testing.T) {
	_, byPath := testManifest()
	refs := chainRefs()
	result := expand([]string{"a.ts"}, refs, byPath, 3)
	assert.Len(t, result, 4)
}

func TestResolveSpecifier_TriesExtensionsAndIndex(t *testing.T) {
	manifest := map[string]string{"pkg/index.ts": "x"}
	resolved, ok := resolveSpecifier("pkg/main.ts", "./index", manifest)
	assert.True(t, ok)
	assert.Equal(t, "pkg/index.ts", resolved)
}

func TestFilterGlobs_ExcludeWinsOverInclude(t *testing.T) {
	paths := []string{"src/a.ts", "src/a.test.ts", "vendor/b.ts"}
	out := filterGlobs(paths, []string{"src/*", "vendor/*"}, []string{"*.test.ts", "vendor/*"})
	assert.Equal(t, []string{"src/a.ts"}, out)
}
