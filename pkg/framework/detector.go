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

package framework

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/faultline/fce/pkg/model"
)

// excludedDirs are never descended into, matching the directories every
// ecosystem agrees are generated/vendored rather than authored.
var excludedDirs = map[string]bool{
	"node_modules": true, ".venv": true, "venv": true, "vendor": true,
	"dist": true, "build": true, "target": true, ".git": true,
	".hg": true, ".svn": true, "__pycache__": true, ".tox": true,
}

// Detector walks a repository and applies Registry entries to every
// manifest file it finds.
type Detector struct {
	registry *Registry

	mu              sync.Mutex
	workspaceVerCache map[string]map[string]string // workspace root -> dep name -> version
}

// NewDetector builds a Detector over the embedded catalog.
func NewDetector() (*Detector, error) {
	r, err := LoadRegistry()
	if err != nil {
		return nil, err
	}
	return &Detector{registry: r, workspaceVerCache: make(map[string]map[string]string)}, nil
}

// Detect walks root and returns one FrameworkRecord per (framework,
// language, directory) combination found. When more than one source
// detects the same framework in the same directory, a record carrying a
// concrete version wins over one with version "unknown".
func (d *Detector) Detect(root string) ([]model.FrameworkRecord, error) {
	type key struct{ name, dir string }
	found := make(map[key]model.FrameworkRecord)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() != "." && excludedDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		base := filepath.Base(path)
		defs := d.registry.DefsForManifest(base)
		if len(defs) == 0 {
			return nil
		}
		dir := filepath.Dir(path)
		records, derr := d.applyManifest(path, base, defs)
		if derr != nil {
			return nil // a single malformed manifest must not abort the whole walk
		}
		for _, rec := range records {
			rec.Path = dir
			k := key{rec.Name, dir}
			existing, ok := found[k]
			if !ok || (existing.Version == "unknown" && rec.Version != "unknown") {
				found[k] = rec
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("framework: walk %s: %w", root, err)
	}

	out := make([]model.FrameworkRecord, 0, len(found))
	for _, rec := range found {
		out = append(out, rec)
	}
	return out, nil
}

func (d *Detector) applyManifest(path, base string, defs []Def) ([]model.FrameworkRecord, error) {
	var doc map[string]any
	var lines []string
	var raw string

	switch {
	case strings.HasSuffix(base, ".json"):
		doc, _ = parseJSON(path)
	case strings.HasSuffix(base, ".toml"):
		doc, _ = parseTOML(path)
	case strings.HasSuffix(base, ".yml"), strings.HasSuffix(base, ".yaml"):
		doc, _ = parseYAML(path)
	default:
		b, err := os.ReadFile(path)
		if err == nil {
			raw = string(b)
			lines = strings.Split(raw, "\n")
		}
	}

	var out []model.FrameworkRecord
	for _, def := range defs {
		for _, src := range def.DetectionSources {
			if src.Manifest != base {
				continue
			}
			switch src.Kind {
			case SourceExists:
				out = append(out, model.FrameworkRecord{Name: def.Name, Language: def.Language, Version: "unknown", Source: "manifest", Category: def.Category})
			case SourceKeyPath:
				if doc == nil {
					continue
				}
				if version, ok := matchKeyPaths(doc, src.KeyPaths, def.MatchName()); ok {
					version = d.resolveCargoWorkspaceVersion(path, base, def.MatchName(), version)
					out = append(out, model.FrameworkRecord{Name: def.Name, Language: def.Language, Version: version, Source: "manifest", Category: def.Category})
				}
			case SourceContentSearch:
				if raw == "" {
					continue
				}
				if version, ok := contentSearch(raw, def.MatchName()); ok {
					out = append(out, model.FrameworkRecord{Name: def.Name, Language: def.Language, Version: version, Source: "manifest", Category: def.Category})
				}
			case SourceLineSearch:
				if version, ok := lineSearch(lines, def.MatchName()); ok {
					out = append(out, model.FrameworkRecord{Name: def.Name, Language: def.Language, Version: version, Source: "manifest", Category: def.Category})
				}
			}
		}
	}
	return out, nil
}

func parseJSON(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseTOML(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseYAML(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// matchKeyPaths descends doc along each candidate path (wildcards expand
// to every key at that level) and checks whether name appears among the
// leaf dependency entries, which are either a list of "name<op>version"
// strings or a map of name -> version. Returns the first concrete
// version found, or ("unknown", true) if name matched with no parsable
// version.
func matchKeyPaths(doc map[string]any, paths [][]string, name string) (string, bool) {
	for _, path := range paths {
		for _, leaf := range descend(doc, path) {
			if version, ok := leafVersion(leaf, name); ok {
				return version, true
			}
		}
	}
	return "", false
}

// descend walks a nested map along path, expanding "*" into every key
// present at that level, and returns every value reached at the path's
// end.
func descend(node any, path []string) []any {
	if len(path) == 0 {
		return []any{node}
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	head, rest := path[0], path[1:]
	if head == "*" {
		var out []any
		for _, v := range m {
			out = append(out, descend(v, rest)...)
		}
		return out
	}
	v, ok := m[head]
	if !ok {
		return nil
	}
	return descend(v, rest)
}

var versionSpecifierRe = regexp.MustCompile(`[0-9][0-9A-Za-z.\-]*`)

func leafVersion(leaf any, name string) (string, bool) {
	lower := strings.ToLower(name)
	switch v := leaf.(type) {
	case []any:
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			if strings.HasPrefix(strings.ToLower(s), lower) {
				if m := versionSpecifierRe.FindString(s); m != "" {
					return m, true
				}
				return "unknown", true
			}
		}
	case map[string]any:
		for k, val := range v {
			if strings.EqualFold(k, name) {
				switch s := val.(type) {
				case string:
					if s == "workspace" {
						return "workspace", true
					}
					if m := versionSpecifierRe.FindString(s); m != "" {
						return m, true
					}
				case map[string]any:
					if ws, ok := s["workspace"].(bool); ok && ws {
						return "workspace", true
					}
					if vs, ok := s["version"].(string); ok {
						if m := versionSpecifierRe.FindString(vs); m != "" {
							return m, true
						}
					}
				}
				return "unknown", true
			}
		}
	}
	return "", false
}

func contentSearch(raw, name string) (string, bool) {
	if !strings.Contains(strings.ToLower(raw), strings.ToLower(name)) {
		return "", false
	}
	re := regexp.MustCompile(regexp.QuoteMeta(name) + `[^\n]{0,20}?([0-9]+\.[0-9][0-9A-Za-z.\-]*)`)
	if m := re.FindStringSubmatch(raw); len(m) == 2 {
		return m[1], true
	}
	return "unknown", true
}

func lineSearch(lines []string, name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(trimmed), lower) {
			if m := versionSpecifierRe.FindString(trimmed[len(name):]); m != "" {
				return m, true
			}
			return "unknown", true
		}
	}
	return "", false
}

// resolveCargoWorkspaceVersion resolves Cargo's `version = "workspace"`
// marker by finding the nearest ancestor Cargo.toml that declares
// [workspace.dependencies] and looking up name there. The result is
// memoized per workspace root since many crates in the same workspace
// repeat the lookup.
func (d *Detector) resolveCargoWorkspaceVersion(manifestPath, base, name, version string) string {
	if base != "Cargo.toml" || version != "workspace" {
		return version
	}
	root := findCargoWorkspaceRoot(manifestPath)
	if root == "" {
		return "unknown"
	}

	d.mu.Lock()
	deps, ok := d.workspaceVerCache[root]
	d.mu.Unlock()
	if !ok {
		deps = loadCargoWorkspaceDeps(root)
		d.mu.Lock()
		d.workspaceVerCache[root] = deps
		d.mu.Unlock()
	}
	if v, ok := deps[name]; ok {
		return v
	}
	return "unknown"
}

func findCargoWorkspaceRoot(manifestPath string) string {
	dir := filepath.Dir(manifestPath)
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		candidate := filepath.Join(parent, "Cargo.toml")
		if doc, err := parseTOML(candidate); err == nil {
			if _, ok := doc["workspace"]; ok {
				return candidate
			}
		}
		dir = parent
	}
}

func loadCargoWorkspaceDeps(workspaceManifest string) map[string]string {
	out := make(map[string]string)
	doc, err := parseTOML(workspaceManifest)
	if err != nil {
		return out
	}
	ws, ok := doc["workspace"].(map[string]any)
	if !ok {
		return out
	}
	deps, ok := ws["dependencies"].(map[string]any)
	if !ok {
		return out
	}
	for name, v := range deps {
		switch val := v.(type) {
		case string:
			out[name] = val
		case map[string]any:
			if vs, ok := val["version"].(string); ok {
				out[name] = vs
			}
		}
	}
	return out
}
