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
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type dockerManager struct{}

func NewDockerManager() PackageManager { return dockerManager{} }

func (dockerManager) ManagerName() string { return "docker" }
func (dockerManager) FilePatterns() []string {
	return []string{"docker-compose*.yml", "docker-compose*.yaml", "Dockerfile*"}
}

var fromInstructionRe = regexp.MustCompile(`(?im)^\s*FROM\s+([^\s]+)(?:\s+AS\s+\S+)?\s*$`)

func (dockerManager) ParseManifest(path string) ([]Dependency, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deps/docker: read %s: %w", path, err)
	}

	if strings.Contains(strings.ToLower(path), "dockerfile") {
		return parseDockerfileImages(string(b), path), nil
	}
	return parseComposeImages(b, path)
}

func parseDockerfileImages(content, path string) []Dependency {
	var out []Dependency
	for _, m := range fromInstructionRe.FindAllStringSubmatch(content, -1) {
		name, tag := splitImageRef(m[1])
		out = append(out, Dependency{Name: name, Version: tag, Manager: "docker", SourceFile: path})
	}
	return out
}

type composeFile struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

func parseComposeImages(b []byte, path string) ([]Dependency, error) {
	var doc composeFile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("deps/docker: parse %s: %w", path, err)
	}
	var out []Dependency
	for _, svc := range doc.Services {
		if svc.Image == "" {
			continue
		}
		name, tag := splitImageRef(svc.Image)
		out = append(out, Dependency{Name: name, Version: tag, Manager: "docker", SourceFile: path})
	}
	return out, nil
}

// splitImageRef strips a registry prefix (a leading host component
// containing "." or ":", or "localhost"), returning (repository, tag).
// A missing tag defaults to "latest". A multi-stage AS alias never
// reaches here: fromInstructionRe already drops it.
func splitImageRef(ref string) (string, string) {
	ref = strings.TrimSpace(ref)
	name, tag := ref, "latest"
	if i := strings.LastIndex(ref, ":"); i > strings.LastIndex(ref, "/") {
		name, tag = ref[:i], ref[i+1:]
	}
	if i := strings.Index(name, "/"); i > 0 {
		if host := name[:i]; strings.ContainsAny(host, ".:") || host == "localhost" {
			name = name[i+1:]
		}
	}
	return name, tag
}

// DockerTag is the decomposed, comparable form of a Docker image tag.
type DockerTag struct {
	Raw        string
	Major      int
	Minor      int
	Patch      int
	HasVersion bool
	Stability  string // stable | alpha | beta | rc | dev
	Variant    string // alpine | slim | bookworm | trixie | windowsservercore | ""
}

var tagVersionRe = regexp.MustCompile(`^([0-9]+)(?:\.([0-9]+))?(?:\.([0-9]+))?`)
var stabilityMarkers = []string{"alpha", "beta", "rc", "dev"}
var variantMarkers = []string{"alpine", "slim", "bookworm", "bullseye", "trixie", "buster", "windowsservercore"}

// ParseDockerTag decomposes a tag per §4.3's semantic model.
func ParseDockerTag(tag string) DockerTag {
	t := DockerTag{Raw: tag, Stability: "stable"}
	lower := strings.ToLower(tag)

	if m := tagVersionRe.FindStringSubmatch(tag); m != nil {
		t.HasVersion = true
		t.Major, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			t.Minor, _ = strconv.Atoi(m[2])
		}
		if m[3] != "" {
			t.Patch, _ = strconv.Atoi(m[3])
		}
	}
	for _, marker := range stabilityMarkers {
		if strings.Contains(lower, marker) {
			t.Stability = marker
			break
		}
	}
	for _, marker := range variantMarkers {
		if strings.Contains(lower, marker) {
			t.Variant = marker
			break
		}
	}
	return t
}

// IsUpgrade reports whether candidate is a valid upgrade over current:
// a strictly greater numeric triple, the same variant (or both empty),
// and — unless allowPrerelease is set — a stable candidate.
func IsUpgrade(current, candidate DockerTag, allowPrerelease bool) bool {
	if !current.HasVersion || !candidate.HasVersion {
		return false
	}
	if candidate.Variant != current.Variant {
		return false
	}
	if !allowPrerelease && candidate.Stability != "stable" {
		return false
	}
	cv := [3]int{current.Major, current.Minor, current.Patch}
	nv := [3]int{candidate.Major, candidate.Minor, candidate.Patch}
	for i := range cv {
		if nv[i] != cv[i] {
			return nv[i] > cv[i]
		}
	}
	return false
}

func (dockerManager) FetchLatest(ctx context.Context, client *http.Client, dep Dependency) (*LatestInfo, error) {
	repo := dep.Name
	if !strings.Contains(repo, "/") {
		repo = "library/" + repo
	}
	url := fmt.Sprintf("https://registry.hub.docker.com/v2/repositories/%s/tags?page_size=100", repo)
	body, err := doWithRetry(ctx, client, url, "registry-1.docker.io")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("deps/docker: parse tag list: %w", err)
	}

	current := ParseDockerTag(dep.Version)
	var best *DockerTag
	for _, r := range resp.Results {
		cand := ParseDockerTag(r.Name)
		if !IsUpgrade(current, cand, false) {
			continue
		}
		if best == nil || cand.Major > best.Major ||
			(cand.Major == best.Major && cand.Minor > best.Minor) ||
			(cand.Major == best.Major && cand.Minor == best.Minor && cand.Patch > best.Patch) {
			c := cand
			best = &c
		}
	}
	if best == nil {
		return &LatestInfo{LatestVersion: dep.Version}, nil
	}
	return &LatestInfo{LatestVersion: best.Raw, Prerelease: best.Stability != "stable"}, nil
}

func (dockerManager) UpgradeFile(path string, latest map[string]LatestInfo, deps []Dependency) (int, error) {
	if err := backupFile(path, time.Now()); err != nil {
		return 0, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	changed := 0
	var out strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	for scanner.Scan() {
		line := scanner.Text()
		next := line
		for _, dep := range deps {
			info, ok := latest[dep.Name]
			if !ok || info.LatestVersion == "" {
				continue
			}
			oldRef := dep.Name + ":" + dep.Version
			newRef := dep.Name + ":" + info.LatestVersion
			if strings.Contains(next, oldRef) {
				next = strings.ReplaceAll(next, oldRef, newRef)
			}
		}
		if next != line {
			changed++
		}
		out.WriteString(next)
		out.WriteString("\n")
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, os.WriteFile(path, []byte(out.String()), 0o644)
}
