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

// Package ferrors provides structured error handling for the FCE CLI.
//
// Error carries what went wrong, why, and how to fix it, plus a closed
// Kind that maps to the exit codes in §6: 0 success, 1 high-severity
// findings, 2 critical findings, 3 prerequisites missing, 10 schema
// drift. Kind values that aren't directly one of those four outcomes
// (phase_timeout, tool_unavailable, parse_error, rate_limited,
// security_error) still resolve to one of the four codes, since the CLI
// only ever exits with one of them.
package ferrors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes per §6.
const (
	ExitSuccess            = 0
	ExitHighSeverity       = 1
	ExitCriticalSeverity   = 2
	ExitPrerequisiteMissing = 3
	ExitSchemaDrift         = 10
)

// Kind is the closed set of error categories FCE can raise outside of
// ordinary finding severities.
type Kind string

const (
	KindPrerequisiteMissing Kind = "prerequisite_missing"
	KindPhaseTimeout        Kind = "phase_timeout"
	KindToolUnavailable     Kind = "tool_unavailable"
	KindParseError          Kind = "parse_error"
	KindSchemaStale         Kind = "schema_stale"
	KindRateLimited         Kind = "rate_limited"
	KindSecurityError       Kind = "security_error"
)

// ExitCode maps a Kind to one of the four exit codes in §6.
// prerequisite_missing, phase_timeout, tool_unavailable, and
// rate_limited all mean "the pipeline could not run to completion",
// which is the prerequisites-missing code. parse_error and
// security_error indicate a malformed or hostile input was rejected,
// which FCE treats as equivalent in severity to a critical finding.
// schema_stale has its own dedicated code.
func (k Kind) ExitCode() int {
	switch k {
	case KindSchemaStale:
		return ExitSchemaDrift
	case KindParseError, KindSecurityError:
		return ExitCriticalSeverity
	case KindPrerequisiteMissing, KindPhaseTimeout, KindToolUnavailable, KindRateLimited:
		return ExitPrerequisiteMissing
	default:
		return ExitPrerequisiteMissing
	}
}

// Error is a structured error with user-facing context.
type Error struct {
	Kind    Kind
	Message string
	Cause   string
	Fix     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the process exit code this error should produce.
func (e *Error) ExitCode() int { return e.Kind.ExitCode() }

func New(kind Kind, msg, cause, fix string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause, Fix: fix, Err: err}
}

func NewPrerequisiteMissing(msg, cause, fix string, err error) *Error {
	return New(KindPrerequisiteMissing, msg, cause, fix, err)
}

func NewPhaseTimeout(msg, cause, fix string, err error) *Error {
	return New(KindPhaseTimeout, msg, cause, fix, err)
}

func NewToolUnavailable(msg, cause, fix string) *Error {
	return New(KindToolUnavailable, msg, cause, fix, nil)
}

func NewParseError(msg, cause, fix string, err error) *Error {
	return New(KindParseError, msg, cause, fix, err)
}

func NewSchemaStale(msg, cause, fix string, err error) *Error {
	return New(KindSchemaStale, msg, cause, fix, err)
}

func NewRateLimited(msg, cause, fix string, err error) *Error {
	return New(KindRateLimited, msg, cause, fix, err)
}

func NewSecurityError(msg, cause, fix string) *Error {
	return New(KindSecurityError, msg, cause, fix, nil)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error for terminal display, honoring NO_COLOR and
// the explicit noColor argument. It temporarily mutates the package-level
// color.NoColor state and restores it afterward.
func (e *Error) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")
	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// JSON is the machine-readable rendering of an Error.
type JSON struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *Error) ToJSON() JSON {
	return JSON{Error: e.Message, Kind: string(e.Kind), Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode()}
}

// FatalError prints err (colored text or JSON, per jsonOutput) and exits
// with its exit code. Never returns. Non-*Error values exit with
// ExitPrerequisiteMissing and a plain message, since an un-typed error
// reaching the CLI boundary means a phase failed without classifying why.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}
	if fe, ok := err.(*Error); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(fe.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, fe.Format(false))
		}
		os.Exit(fe.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitPrerequisiteMissing)
}

// SeverityExitCode maps the highest finding severity observed in a
// completed (non-fatal) run to the §6 exit code: critical severities
// exit 2, high severities exit 1, everything else exits 0. Callers pass
// this instead of a Kind-derived code whenever the pipeline completed
// and the exit status should reflect findings rather than a forced
// abort.
func SeverityExitCode(hasCritical, hasHigh bool) int {
	switch {
	case hasCritical:
		return ExitCriticalSeverity
	case hasHigh:
		return ExitHighSeverity
	default:
		return ExitSuccess
	}
}
