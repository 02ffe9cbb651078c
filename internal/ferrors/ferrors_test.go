// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package ferrors

import (
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"with underlying error", &Error{Message: "cannot open store", Err: fmt.Errorf("file locked")}, "cannot open store: file locked"},
		{"without underlying error", &Error{Message: "invalid input"}, "invalid input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKind_ExitCode(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindSchemaStale, ExitSchemaDrift},
		{KindParseError, ExitCriticalSeverity},
		{KindSecurityError, ExitCriticalSeverity},
		{KindPrerequisiteMissing, ExitPrerequisiteMissing},
		{KindPhaseTimeout, ExitPrerequisiteMissing},
		{KindToolUnavailable, ExitPrerequisiteMissing},
		{KindRateLimited, ExitPrerequisiteMissing},
	}
	for _, tt := range tests {
		if got := tt.kind.ExitCode(); got != tt.want {
			t.Errorf("Kind(%s).ExitCode() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestSeverityExitCode(t *testing.T) {
	tests := []struct {
		critical, high bool
		want           int
	}{
		{true, true, ExitCriticalSeverity},
		{true, false, ExitCriticalSeverity},
		{false, true, ExitHighSeverity},
		{false, false, ExitSuccess},
	}
	for _, tt := range tests {
		if got := SeverityExitCode(tt.critical, tt.high); got != tt.want {
			t.Errorf("SeverityExitCode(%v, %v) = %d, want %d", tt.critical, tt.high, got, tt.want)
		}
	}
}

func TestError_ToJSON(t *testing.T) {
	e := NewPrerequisiteMissing("store not built", "no .pf/repo_index.db found", "run `fce index` first", nil)
	j := e.ToJSON()
	if j.ExitCode != ExitPrerequisiteMissing {
		t.Errorf("ExitCode = %d, want %d", j.ExitCode, ExitPrerequisiteMissing)
	}
	if j.Kind != string(KindPrerequisiteMissing) {
		t.Errorf("Kind = %q, want %q", j.Kind, KindPrerequisiteMissing)
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("disk full")
	e := NewPhaseTimeout("phase failed", "", "", inner)
	if e.Unwrap() != inner {
		t.Errorf("Unwrap() did not return the wrapped error")
	}
}
