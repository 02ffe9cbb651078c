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

// Package deps extracts third-party dependencies from every ecosystem
// manifest a repository might carry, resolves their latest published
// versions against the real package registries (rate-limited, with
// backoff and a time-based cache), and can rewrite a manifest in place
// to upgrade them.
package deps

import (
	"context"
	"net/http"
	"path/filepath"
)

// Dependency is one (name, version, manager, source_file) record
// extracted from a manifest.
type Dependency struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Manager    string `json:"manager"`
	SourceFile string `json:"source_file"`
	Dev        bool   `json:"dev,omitempty"`
}

// LatestInfo is the result of a registry lookup for one dependency.
type LatestInfo struct {
	Name          string `json:"name"`
	LatestVersion string `json:"latest_version"`
	Prerelease    bool   `json:"prerelease"`
}

// PackageManager abstracts one ecosystem's manifest format and registry.
// Implementations: npm, Python, Docker, Cargo, Go.
type PackageManager interface {
	ManagerName() string
	FilePatterns() []string
	ParseManifest(path string) ([]Dependency, error)
	FetchLatest(ctx context.Context, client *http.Client, dep Dependency) (*LatestInfo, error)
	// UpgradeFile rewrites path in place to use latest.LatestVersion for
	// every dependency named in deps, after writing a versioned backup,
	// and returns the number of version strings actually changed.
	UpgradeFile(path string, latest map[string]LatestInfo, deps []Dependency) (int, error)
}

// ManagerRegistry selects a PackageManager implementation by manifest
// file name (glob match against FilePatterns).
type ManagerRegistry struct {
	managers []PackageManager
}

// NewManagerRegistry builds the registry with every known ecosystem.
func NewManagerRegistry() *ManagerRegistry {
	return &ManagerRegistry{managers: []PackageManager{
		NewNpmManager(),
		NewPythonManager(),
		NewDockerManager(),
		NewCargoManager(),
		NewGoManager(),
	}}
}

// For returns the PackageManager whose FilePatterns match baseName, or
// nil if none does.
func (r *ManagerRegistry) For(baseName string) PackageManager {
	for _, m := range r.managers {
		for _, pat := range m.FilePatterns() {
			if ok, _ := filepath.Match(pat, baseName); ok {
				return m
			}
		}
	}
	return nil
}

// All returns every registered PackageManager.
func (r *ManagerRegistry) All() []PackageManager { return r.managers }
