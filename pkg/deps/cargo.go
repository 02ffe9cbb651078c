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
	"time"

	"github.com/pelletier/go-toml/v2"
)

type cargoManager struct{}

func NewCargoManager() PackageManager { return cargoManager{} }

func (cargoManager) ManagerName() string    { return "cargo" }
func (cargoManager) FilePatterns() []string { return []string{"Cargo.toml"} }

func (cargoManager) ParseManifest(path string) ([]Dependency, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deps/cargo: read %s: %w", path, err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("deps/cargo: parse %s: %w", path, err)
	}

	var out []Dependency
	for _, section := range []string{"dependencies", "dev-dependencies", "build-dependencies"} {
		deps, ok := doc[section].(map[string]any)
		if !ok {
			continue
		}
		for name, v := range deps {
			dep := Dependency{Name: name, Manager: "cargo", SourceFile: path, Dev: section != "dependencies"}
			switch val := v.(type) {
			case string:
				dep.Version = val
			case map[string]any:
				if ws, ok := val["workspace"].(bool); ok && ws {
					dep.Version = "workspace"
				} else if vs, ok := val["version"].(string); ok {
					dep.Version = vs
				}
			}
			out = append(out, dep)
		}
	}
	return out, nil
}

func (cargoManager) FetchLatest(ctx context.Context, client *http.Client, dep Dependency) (*LatestInfo, error) {
	url := fmt.Sprintf("https://crates.io/api/v1/crates/%s", dep.Name)
	return fetchJSONVersion(ctx, client, url, func(body []byte) (string, error) {
		var resp struct {
			Crate struct {
				MaxStableVersion string `json:"max_stable_version"`
			} `json:"crate"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		return resp.Crate.MaxStableVersion, nil
	})
}

func (cargoManager) UpgradeFile(path string, latest map[string]LatestInfo, deps []Dependency) (int, error) {
	if err := backupFile(path, time.Now()); err != nil {
		return 0, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		return 0, fmt.Errorf("deps/cargo: parse %s: %w", path, err)
	}

	changed := 0
	for _, section := range []string{"dependencies", "dev-dependencies", "build-dependencies"} {
		secAny, ok := doc[section]
		if !ok {
			continue
		}
		sec, ok := secAny.(map[string]any)
		if !ok {
			continue
		}
		for _, dep := range deps {
			info, ok := latest[dep.Name]
			if !ok || info.LatestVersion == "" || dep.Version == "workspace" {
				continue
			}
			switch v := sec[dep.Name].(type) {
			case string:
				if v != info.LatestVersion {
					sec[dep.Name] = info.LatestVersion
					changed++
				}
			case map[string]any:
				if existing, _ := v["version"].(string); existing != "" && existing != info.LatestVersion {
					v["version"] = info.LatestVersion
					changed++
				}
			}
		}
	}
	if changed == 0 {
		return 0, nil
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("deps/cargo: encode %s: %w", path, err)
	}
	return changed, os.WriteFile(path, out, 0o644)
}
