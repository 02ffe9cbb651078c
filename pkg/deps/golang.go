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
	"strings"
	"time"

	"golang.org/x/mod/modfile"
)

type goManager struct{}

func NewGoManager() PackageManager { return goManager{} }

func (goManager) ManagerName() string    { return "go" }
func (goManager) FilePatterns() []string { return []string{"go.mod"} }

func (goManager) ParseManifest(path string) ([]Dependency, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deps/go: read %s: %w", path, err)
	}
	f, err := modfile.Parse(path, b, nil)
	if err != nil {
		return nil, fmt.Errorf("deps/go: parse %s: %w", path, err)
	}

	var out []Dependency
	for _, req := range f.Require {
		out = append(out, Dependency{
			Name:       req.Mod.Path,
			Version:    req.Mod.Version,
			Manager:    "go",
			SourceFile: path,
			Dev:        req.Indirect,
		})
	}
	return out, nil
}

// encodeGoModulePath applies the Go module proxy's case-encoding rule:
// every uppercase letter becomes "!" followed by its lowercase form, so
// the proxy's case-insensitive filesystem backends don't collide module
// paths that differ only in case.
func encodeGoModulePath(module string) string {
	var b strings.Builder
	for _, r := range module {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('!')
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (goManager) FetchLatest(ctx context.Context, client *http.Client, dep Dependency) (*LatestInfo, error) {
	url := fmt.Sprintf("https://proxy.golang.org/%s/@latest", encodeGoModulePath(dep.Name))
	return fetchJSONVersion(ctx, client, url, func(body []byte) (string, error) {
		var resp struct {
			Version string `json:"Version"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		return resp.Version, nil
	})
}

func (goManager) UpgradeFile(path string, latest map[string]LatestInfo, deps []Dependency) (int, error) {
	if err := backupFile(path, time.Now()); err != nil {
		return 0, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	f, err := modfile.Parse(path, b, nil)
	if err != nil {
		return 0, fmt.Errorf("deps/go: parse %s: %w", path, err)
	}

	changed := 0
	for _, dep := range deps {
		info, ok := latest[dep.Name]
		if !ok || info.LatestVersion == "" || info.LatestVersion == dep.Version {
			continue
		}
		if err := f.AddRequire(dep.Name, info.LatestVersion); err != nil {
			continue
		}
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	f.Cleanup()
	out, err := f.Format()
	if err != nil {
		return 0, fmt.Errorf("deps/go: format %s: %w", path, err)
	}
	return changed, os.WriteFile(path, out, 0o644)
}
