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

// Package dockerlint finds structural and secret-handling defects in
// Dockerfiles: containers that run as root, unpinned base images,
// missing health checks, and ENV/ARG values that look like leaked
// credentials. Compose files are not linted.
package dockerlint

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/faultline/fce/pkg/model"
)

const tool = "docker-analyzer"

// image is the decomposed FROM target of one Dockerfile.
type image struct {
	name string
	tag  string
}

// parsed is one Dockerfile's extracted facts, mirroring the docker_images
// table the original analyzer reads from.
type parsed struct {
	path      string
	base      image
	hasUser   bool
	userIsRoot bool
	hasHealth bool
	envVars   map[string]string
	buildArgs map[string]string
}

var (
	sensitiveNameRe = regexp.MustCompile(`(?i)(password|secret|api[_-]?key|token|auth|credential|private[_-]?key|access[_-]?key)`)

	// secretPatterns match well-known vendor token formats, grounded on
	// docker_analyzer.py's _find_exposed_secrets regex table.
	secretPatterns = []*regexp.Regexp{
		regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
		regexp.MustCompile(`ghs_[A-Za-z0-9]{36}`),
		regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`),
		regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	}
)

// Lint runs every path whose name contains "dockerfile" (any case)
// through the structural and secret checks, returning one Finding per
// violation. Any other path, a compose file included, is skipped.
func Lint(paths []string, now time.Time) ([]model.Finding, error) {
	var findings []model.Finding
	for _, path := range paths {
		if !strings.Contains(strings.ToLower(path), "dockerfile") {
			continue // compose files carry no USER/HEALTHCHECK/ARG semantics to lint
		}
		p, err := parseDockerfile(path)
		if err != nil {
			return nil, err
		}
		findings = append(findings, checkRootUser(p, now)...)
		findings = append(findings, checkUnpinnedBase(p, now)...)
		findings = append(findings, checkMissingHealthcheck(p, now)...)
		findings = append(findings, checkExposedSecrets(p, now)...)
	}
	return findings, nil
}

func parseDockerfile(path string) (parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return parsed{}, fmt.Errorf("dockerlint: open %s: %w", path, err)
	}
	defer f.Close()

	p := parsed{path: path, envVars: map[string]string{}, buildArgs: map[string]string{}}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		instruction := strings.ToUpper(fields[0])
		rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		switch instruction {
		case "FROM":
			p.base = parseImageRef(strings.Fields(rest)[0])
			p.hasUser = false // a later stage resets root-user tracking
		case "USER":
			p.hasUser = true
			user := strings.Fields(rest)
			if len(user) > 0 {
				u := strings.TrimSuffix(user[0], ":root")
				p.userIsRoot = u == "root" || u == "0"
			}
		case "HEALTHCHECK":
			p.hasHealth = true
		case "ENV":
			for k, v := range parseKeyValuePairs(rest) {
				p.envVars[k] = v
			}
		case "ARG":
			for k, v := range parseKeyValuePairs(rest) {
				p.buildArgs[k] = v
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return parsed{}, fmt.Errorf("dockerlint: scan %s: %w", path, err)
	}
	return p, nil
}

// parseImageRef splits a FROM target (name:tag, name@sha256:digest, or
// bare name) the way docker_analyzer.py's _prepare_base_image_scan does.
func parseImageRef(ref string) image {
	if i := strings.Index(ref, "@"); i >= 0 {
		return image{name: ref[:i], tag: ref[i+1:]}
	}
	if i := strings.LastIndex(ref, ":"); i > strings.LastIndex(ref, "/") {
		return image{name: ref[:i], tag: ref[i+1:]}
	}
	return image{name: ref, tag: "latest"}
}

// parseKeyValuePairs handles both ENV/ARG forms: "KEY=value KEY2=value2"
// and the legacy single-pair "KEY value".
func parseKeyValuePairs(rest string) map[string]string {
	out := map[string]string{}
	if rest == "" {
		return out
	}
	if !strings.Contains(rest, "=") {
		fields := strings.SplitN(rest, " ", 2)
		if len(fields) == 2 {
			out[fields[0]] = strings.Trim(fields[1], `"'`)
		}
		return out
	}
	for _, pair := range splitAssignments(rest) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = strings.Trim(kv[1], `"'`)
	}
	return out
}

// splitAssignments splits "A=1 B=2" into ["A=1", "B=2"], respecting
// quoted values that may themselves contain spaces.
func splitAssignments(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
			cur.WriteByte(c)
		case c == ' ':
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func checkRootUser(p parsed, now time.Time) []model.Finding {
	if p.hasUser && !p.userIsRoot {
		return nil
	}
	return []model.Finding{{
		File:      p.path,
		Rule:      "docker-root-container",
		Tool:      tool,
		Message:   "container runs as root: add a non-root USER instruction",
		Severity:  model.SeverityHigh,
		Category:  "container-hardening",
		Timestamp: now,
	}}
}

func checkUnpinnedBase(p parsed, now time.Time) []model.Finding {
	if p.base.name == "" || (p.base.tag != "latest" && p.base.tag != "") {
		return nil
	}
	return []model.Finding{{
		File:      p.path,
		Rule:      "docker-unpinned-base-image",
		Tool:      tool,
		Message:   fmt.Sprintf("base image %q has no pinned version tag", p.base.name),
		Severity:  model.SeverityMedium,
		Category:  "container-hardening",
		Timestamp: now,
	}}
}

func checkMissingHealthcheck(p parsed, now time.Time) []model.Finding {
	if p.hasHealth {
		return nil
	}
	return []model.Finding{{
		File:      p.path,
		Rule:      "docker-missing-healthcheck",
		Tool:      tool,
		Message:   "image defines no HEALTHCHECK instruction",
		Severity:  model.SeverityLow,
		Category:  "container-hardening",
		Timestamp: now,
	}}
}

func checkExposedSecrets(p parsed, now time.Time) []model.Finding {
	var findings []model.Finding
	check := func(kind string, vars map[string]string) {
		for name, value := range vars {
			if isSensitiveSecret(name, value) {
				findings = append(findings, model.Finding{
					File:      p.path,
					Rule:      "docker-exposed-secret",
					Tool:      tool,
					Message:   fmt.Sprintf("%s %q looks like a secret baked into the image", kind, name),
					Severity:  model.SeverityCritical,
					Category:  "secrets",
					Confidence: 0.8,
					Timestamp: now,
				})
			}
		}
	}
	check("ENV", p.envVars)
	check("ARG", p.buildArgs)
	return findings
}

func isSensitiveSecret(name, value string) bool {
	if sensitiveNameRe.MatchString(name) {
		return true
	}
	for _, re := range secretPatterns {
		if re.MatchString(value) {
			return true
		}
	}
	return isHighEntropy(value)
}

// isHighEntropy reports whether value's Shannon entropy exceeds the
// threshold docker_analyzer.py uses to flag opaque token-like strings,
// skipping short values and anything containing whitespace (never a
// bare secret token).
func isHighEntropy(value string) bool {
	if len(value) < 10 || strings.ContainsAny(value, " \t") {
		return false
	}
	counts := make(map[rune]int)
	for _, r := range value {
		counts[r]++
	}
	var entropy float64
	n := float64(len(value))
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy > 4.0
}
