// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

type npmManager struct{}

func NewNpmManager() PackageManager { return npmManager{} }

func (npmManager) ManagerName() string     { return "npm" }
func (npmManager) FilePatterns() []string  { return []string{"package.json"} }

type npmPackageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

var semverOperatorRe = regexp.MustCompile(`^[\^~>=<]+`)

func stripSemverOperators(v string) string {
	return strings.TrimSpace(semverOperatorRe.ReplaceAllString(v, ""))
}

func (npmManager) ParseManifest(path string) ([]Dependency, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deps/npm: read %s: %w", path, err)
	}
	var pkg npmPackageJSON
	if err := json.Unmarshal(b, &pkg); err != nil {
		return nil, fmt.Errorf("deps/npm: parse %s: %w", path, err)
	}

	var out []Dependency
	for name, v := range pkg.Dependencies {
		out = append(out, Dependency{Name: name, Version: stripSemverOperators(v), Manager: "npm", SourceFile: path})
	}
	for name, v := range pkg.DevDependencies {
		out = append(out, Dependency{Name: name, Version: stripSemverOperators(v), Manager: "npm", SourceFile: path, Dev: true})
	}
	return out, nil
}

func (npmManager) FetchLatest(ctx context.Context, client *http.Client, dep Dependency) (*LatestInfo, error) {
	url := fmt.Sprintf("https://registry.npmjs.org/%s/latest", dep.Name)
	return fetchJSONVersion(ctx, client, url, func(body []byte) (string, error) {
		var resp struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		return resp.Version, nil
	})
}

func (npmManager) UpgradeFile(path string, latest map[string]LatestInfo, deps []Dependency) (int, error) {
	return upgradeJSONVersions(path, latest, deps, []string{"dependencies", "devDependencies"})
}
