// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestCommand_KnownFramework(t *testing.T) {
	cmd, ok := TestCommand("pytest")
	assert.True(t, ok)
	assert.Equal(t, "pytest", cmd)
}

func TestTestCommand_UnknownFramework(t *testing.T) {
	_, ok := TestCommand("some-unknown-framework")
	assert.False(t, ok)
}
