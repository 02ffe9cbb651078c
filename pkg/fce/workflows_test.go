// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package fce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWorkflowRules_AllHaveFacts(t *testing.T) {
	rules := DefaultWorkflowRules()
	assert.NotEmpty(t, rules)
	for _, r := range rules {
		assert.NotEmpty(t, r.Facts, "rule %q must declare at least one fact", r.Name)
	}
}
