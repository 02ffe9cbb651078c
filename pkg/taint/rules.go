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

package taint

import "regexp"

// SourceRule recognizes an expression that introduces tainted, externally
// controlled data.
type SourceRule struct {
	Name              string
	Pattern           *regexp.Regexp
	VulnerabilityType string
	Confidence        float64
}

// SinkRule recognizes a call that, reached by tainted data, constitutes a
// vulnerability of VulnerabilityType.
type SinkRule struct {
	Name              string
	Pattern           *regexp.Regexp // matched against the callee function name
	VulnerabilityType string
}

// SanitizerRule recognizes a call that neutralizes tainted data: framework
// validators, parameterized-query builders, and HTML-escape helpers.
type SanitizerRule struct {
	Name    string
	Pattern *regexp.Regexp // matched against the source expression text
}

// DefaultSourceRules is the built-in set of taint sources: framework
// request-parameter reads, environment-variable reads, and command-line
// arguments.
func DefaultSourceRules() []SourceRule {
	return []SourceRule{
		{Name: "http-request-param", Pattern: regexp.MustCompile(`request\.(GET|POST|args|form|params|query|body)\b`), VulnerabilityType: "sqli", Confidence: 0.7},
		{Name: "express-request-param", Pattern: regexp.MustCompile(`req\.(query|body|params|headers)\b`), VulnerabilityType: "sqli", Confidence: 0.7},
		{Name: "os-environ", Pattern: regexp.MustCompile(`os\.(environ|Getenv)\b`), VulnerabilityType: "command_injection", Confidence: 0.4},
		{Name: "command-line-arg", Pattern: regexp.MustCompile(`(sys\.argv|os\.Args)\b`), VulnerabilityType: "command_injection", Confidence: 0.5},
	}
}

// DefaultSinkRules is the built-in set of sinks, one per vulnerability
// category the spec names: sqli, xss, command_injection, ssrf.
func DefaultSinkRules() []SinkRule {
	return []SinkRule{
		{Name: "sql-execute", Pattern: regexp.MustCompile(`^(execute|executemany|raw|Query|QueryRow|Exec)$`), VulnerabilityType: "sqli"},
		{Name: "html-render", Pattern: regexp.MustCompile(`^(render_template_string|innerHTML|dangerouslySetInnerHTML)$`), VulnerabilityType: "xss"},
		{Name: "shell-exec", Pattern: regexp.MustCompile(`^(system|Popen|exec\.Command|os\.system)$`), VulnerabilityType: "command_injection"},
		{Name: "outbound-http", Pattern: regexp.MustCompile(`^(requests\.get|requests\.post|http\.Get|fetch)$`), VulnerabilityType: "ssrf"},
	}
}

// DefaultSanitizerRules is the built-in set of sanitizers: parameterized
// query placeholders, HTML-escape helpers, and .validate/.is_valid/.clean
// method calls. It holds no validators taken from the framework
// registry, and the fce command passes this set alone to the tracker.
func DefaultSanitizerRules() []SanitizerRule {
	return []SanitizerRule{
		{Name: "parameterized-placeholder", Pattern: regexp.MustCompile(`\?|%s\s*,`)},
		{Name: "html-escape", Pattern: regexp.MustCompile(`(escape|html\.escape|markupsafe\.escape|DOMPurify\.sanitize)\(`)},
		{Name: "validator-call", Pattern: regexp.MustCompile(`\.(validate|is_valid|clean)\(`)},
	}
}
