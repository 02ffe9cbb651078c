// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package deps

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type pythonManager struct{}

func NewPythonManager() PackageManager { return pythonManager{} }

func (pythonManager) ManagerName() string { return "python" }
func (pythonManager) FilePatterns() []string {
	return []string{"pyproject.toml", "requirements*.txt", "setup.cfg"}
}

var pyRequirementRe = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(==|>=|<=|~=|>|<)?\s*([A-Za-z0-9.\-]*)`)

func (pythonManager) ParseManifest(path string) ([]Dependency, error) {
	if strings.HasSuffix(path, "pyproject.toml") {
		return parsePyprojectToml(path)
	}
	// requirements*.txt and setup.cfg's install_requires are both
	// line-oriented specifier lists in practice.
	return parseRequirementsFile(path)
}

func parsePyprojectToml(path string) ([]Dependency, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deps/python: read %s: %w", path, err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("deps/python: parse %s: %w", path, err)
	}

	var out []Dependency
	// PEP 621 layout: [project] dependencies = ["name>=1.0", ...]
	if project, ok := doc["project"].(map[string]any); ok {
		if list, ok := project["dependencies"].([]any); ok {
			out = append(out, specListToDeps(list, path)...)
		}
	}
	// Poetry layout: [tool.poetry.dependencies] name = "version"
	if tool, ok := doc["tool"].(map[string]any); ok {
		if poetry, ok := tool["poetry"].(map[string]any); ok {
			if m, ok := poetry["dependencies"].(map[string]any); ok {
				out = append(out, specMapToDeps(m, path)...)
			}
		}
		if pdm, ok := tool["pdm"].(map[string]any); ok {
			if m, ok := pdm["dependencies"].(map[string]any); ok {
				out = append(out, specMapToDeps(m, path)...)
			}
		}
	}
	return out, nil
}

func specListToDeps(list []any, path string) []Dependency {
	var out []Dependency
	for _, entry := range list {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		m := pyRequirementRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		out = append(out, Dependency{Name: m[1], Version: m[3], Manager: "python", SourceFile: path})
	}
	return out
}

func specMapToDeps(m map[string]any, path string) []Dependency {
	var out []Dependency
	for name, v := range m {
		if name == "python" {
			continue // the interpreter constraint itself, not a dependency
		}
		version, _ := v.(string)
		out = append(out, Dependency{Name: name, Version: stripSemverOperators(version), Manager: "python", SourceFile: path})
	}
	return out
}

func parseRequirementsFile(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("deps/python: open %s: %w", path, err)
	}
	defer f.Close()

	var out []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		m := pyRequirementRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Dependency{Name: m[1], Version: m[3], Manager: "python", SourceFile: path})
	}
	return out, scanner.Err()
}

func (pythonManager) FetchLatest(ctx context.Context, client *http.Client, dep Dependency) (*LatestInfo, error) {
	url := fmt.Sprintf("https://pypi.org/pypi/%s/json", dep.Name)
	return fetchJSONVersion(ctx, client, url, func(body []byte) (string, error) {
		var resp struct {
			Info struct {
				Version string `json:"version"`
			} `json:"info"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		return resp.Info.Version, nil
	})
}

// UpgradeFile rewrites quoted version specifiers in place. Per §4.3,
// pyproject.toml uses regex replacement scoped to quoted version
// specifiers so the surrounding TOML formatting (comments, key order,
// indentation) survives untouched; a full parse-mutate-reserialize round
// trip through go-toml would lose that formatting. Only specifiers of
// the form "name>=1.0" (name and version inside one pair of double
// quotes) are rewritten; unquoted requirements*.txt lines and Poetry-
// style `name = "^1.0"` keys are left unchanged.
func (pythonManager) UpgradeFile(path string, latest map[string]LatestInfo, deps []Dependency) (int, error) {
	if err := backupFile(path, time.Now()); err != nil {
		return 0, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content := string(raw)
	changed := 0
	for _, dep := range deps {
		info, ok := latest[dep.Name]
		if !ok || info.LatestVersion == "" {
			continue
		}
		re := regexp.MustCompile(`("` + regexp.QuoteMeta(dep.Name) + `[>=~^<]*)[0-9][0-9A-Za-z.\-]*(")`)
		next := re.ReplaceAllString(content, "${1}"+info.LatestVersion+"${2}")
		if next != content {
			changed++
			content = next
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, os.WriteFile(path, []byte(content), 0o644)
}
