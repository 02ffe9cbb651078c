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

// Package workset resolves the subset of repository files an analysis
// run should operate on: the full manifest, a git-diff seed, or an
// explicit file list, optionally expanded along the reference graph.
package workset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// SeedMode is the mutually-exclusive way a workset is seeded.
type SeedMode string

const (
	SeedAll   SeedMode = "all"
	SeedDiff  SeedMode = "diff"
	SeedFiles SeedMode = "files"
)

// Options controls how a Workset is built.
type Options struct {
	Root        string
	Mode        SeedMode
	DiffSpec    string   // used when Mode == SeedDiff, e.g. "HEAD~1"
	Files       []string // used when Mode == SeedFiles
	MaxDepth    int
	IncludeGlob []string
	ExcludeGlob []string
}

// manifestEntry is one (path, sha256) row read from the on-disk
// manifest the workset resolves against.
type manifestEntry struct {
	Path   string
	SHA256 string
}

// Resolve builds a Workset per opts. manifest is the ordered,
// content-hashed file list produced by the indexing phase; seeds and
// expansion results are filtered against it so deleted/renamed files
// never appear in the output.
func Resolve(ctx context.Context, opts Options, manifest []model.WorksetFile, refs []model.Ref) (model.Workset, error) {
	manifestByPath := make(map[string]string, len(manifest))
	var manifestPaths []string
	for _, m := range manifest {
		manifestByPath[m.Path] = m.SHA256
		manifestPaths = append(manifestPaths, m.Path)
	}

	seed, seedValue, err := seedFiles(ctx, opts, manifestByPath)
	if err != nil {
		return model.Workset{}, err
	}

	expanded := expand(seed, refs, manifestByPath, opts.MaxDepth)
	expanded = filterGlobs(expanded, opts.IncludeGlob, opts.ExcludeGlob)

	sort.Strings(expanded)
	files := make([]model.WorksetFile, 0, len(expanded))
	for _, p := range expanded {
		files = append(files, model.WorksetFile{Path: p, SHA256: manifestByPath[p]})
	}

	return model.Workset{
		GeneratedAt: time.Now(),
		Root:        opts.Root,
		Seed:        model.WorksetSeed{Mode: string(opts.Mode), Value: seedValue},
		MaxDepth:    opts.MaxDepth,
		SeedCount:   len(seed),
		Expanded:    len(files),
		Paths:       files,
	}, nil
}

func seedFiles(ctx context.Context, opts Options, manifest map[string]string) ([]string, string, error) {
	switch opts.Mode {
	case SeedAll:
		var out []string
		for p := range manifest {
			out = append(out, p)
		}
		sort.Strings(out)
		return out, "", nil

	case SeedFiles:
		var out []string
		for _, p := range opts.Files {
			if _, ok := manifest[p]; ok {
				out = append(out, p)
			}
		}
		sort.Strings(out)
		return out, strings.Join(opts.Files, ","), nil

	case SeedDiff:
		changed, err := gitDiffNames(ctx, opts.Root, opts.DiffSpec)
		if err != nil {
			return nil, "", err
		}
		var out []string
		for _, p := range changed {
			if _, ok := manifest[p]; ok {
				out = append(out, p)
			}
		}
		sort.Strings(out)
		return out, opts.DiffSpec, nil

	default:
		return nil, "", fmt.Errorf("workset: unknown seed mode %q", opts.Mode)
	}
}

func gitDiffNames(ctx context.Context, root, spec string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", spec)
	cmd.Dir = root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("workset: git diff --name-only %s: %w", spec, err)
	}
	var out []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// candidateExtensions are tried, in order, when a relative specifier has
// none of its own.
var candidateExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".py", ".go"}

// resolveSpecifier turns a relative import specifier seen in fromFile
// into a manifest path, trying the specifier as given, then each
// candidate extension, then an "/index" variant of each.
func resolveSpecifier(fromFile, specifier string, manifest map[string]string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return "", false // not a relative specifier; nothing to resolve
	}
	base := filepath.Clean(filepath.Join(filepath.Dir(fromFile), specifier))
	candidates := []string{base}
	for _, ext := range candidateExtensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range candidateExtensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}
	for _, c := range candidates {
		c = filepath.ToSlash(c)
		if _, ok := manifest[c]; ok {
			return c, true
		}
	}
	return "", false
}

// expand walks the reference graph up to maxDepth, starting from seed.
// Each level applies both forward (file -> things it references) and
// reverse (file -> things that reference it) edges from the current
// frontier before advancing — a file that changed should pull in both
// what it depends on and what depends on it at every hop, not only on
// alternating hops, so that expansion is guaranteed monotonic and a
// straight dependency chain is fully reachable at a depth equal to its
// length.
func expand(seed []string, refs []model.Ref, manifest map[string]string, maxDepth int) []string {
	forward := make(map[string][]string) // file -> resolved referenced files
	reverse := make(map[string][]string) // file -> files that reference it

	for _, r := range refs {
		if target, ok := resolveSpecifier(r.SrcFile, r.Value, manifest); ok {
			forward[r.SrcFile] = append(forward[r.SrcFile], target)
			reverse[target] = append(reverse[target], r.SrcFile)
		}
	}

	visited := make(map[string]bool, len(seed))
	frontier := make([]string, 0, len(seed))
	for _, s := range seed {
		if !visited[s] {
			visited[s] = true
			frontier = append(frontier, s)
		}
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, f := range frontier {
			for _, n := range append(append([]string{}, forward[f]...), reverse[f]...) {
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited))
	for p := range visited {
		out = append(out, p)
	}
	return out
}

// ContentHash computes the sha256 of a file's contents for manifest
// generation.
func ContentHash(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("workset: read %s: %w", path, err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Persist writes the workset's manifest rows to the store under runID.
func Persist(ctx context.Context, s *store.Store, runID string, ws model.Workset) error {
	return s.WriteWorksetManifest(ctx, runID, ws.Paths)
}
