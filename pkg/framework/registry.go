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

// Package framework detects which web/test/ORM/frontend frameworks a
// repository uses, by walking its directory tree and matching manifest
// files and import statements against a constant detection registry.
package framework

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// SourceKind is one of the four ways a manifest can signal a framework
// is in use.
type SourceKind string

const (
	SourceKeyPath      SourceKind = "keypath"
	SourceContentSearch SourceKind = "content_search"
	SourceLineSearch   SourceKind = "line_search"
	SourceExists       SourceKind = "exists"
)

// DetectionSource names one manifest file and how to search it.
type DetectionSource struct {
	Manifest string     `yaml:"manifest"`
	Kind     SourceKind `yaml:"kind"`
	// KeyPaths is used when Kind == SourceKeyPath. Each path is a
	// sequence of dotted keys; "*" at any position means "descend into
	// every key at that level" (e.g. Poetry's per-group dependency
	// tables).
	KeyPaths [][]string `yaml:"key_paths"`
}

// Def is one framework's registry entry.
type Def struct {
	Name             string            `yaml:"name"`
	Language         string            `yaml:"language"`
	Category         string            `yaml:"category"`
	PackagePattern   string            `yaml:"package_pattern"`
	ImportPatterns   []string          `yaml:"import_patterns"`
	FileMarkers      []string          `yaml:"file_markers"`
	DetectionSources []DetectionSource `yaml:"detection_sources"`
}

// MatchName returns the substring this Def expects to find in a
// manifest entry or import statement: PackagePattern if set, else Name.
func (d Def) MatchName() string {
	if d.PackagePattern != "" {
		return d.PackagePattern
	}
	return d.Name
}

type catalog struct {
	Frameworks []Def `yaml:"frameworks"`
}

// Registry is the constant, in-memory framework detection catalog.
type Registry struct {
	defs []Def
	// byManifest indexes defs by the manifest base name they care about,
	// so the detector doesn't have to scan the full registry per file.
	byManifest map[string][]int
}

// LoadRegistry parses the embedded catalog. It only fails if the
// embedded YAML itself is malformed, which would be a build-time defect
// caught by the package's own tests, never a runtime condition.
func LoadRegistry() (*Registry, error) {
	var c catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("framework: parse catalog: %w", err)
	}
	r := &Registry{defs: c.Frameworks, byManifest: make(map[string][]int)}
	for i, d := range c.Frameworks {
		for _, s := range d.DetectionSources {
			r.byManifest[s.Manifest] = append(r.byManifest[s.Manifest], i)
		}
	}
	return r, nil
}

// DefsForManifest returns every Def that declares a detection source
// for the given manifest base name.
func (r *Registry) DefsForManifest(name string) []Def {
	idxs := r.byManifest[name]
	out := make([]Def, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, r.defs[i])
	}
	return out
}

// All returns every registered Def.
func (r *Registry) All() []Def { return r.defs }
