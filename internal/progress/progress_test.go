// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_DisabledForJSONAndQuiet(t *testing.T) {
	cfg := NewConfig(true, false, false)
	assert.False(t, cfg.Enabled)

	cfg = NewConfig(false, true, false)
	assert.False(t, cfg.Enabled)
}

func TestNewBar_NilWhenDisabled(t *testing.T) {
	cfg := Config{Enabled: false}
	assert.Nil(t, NewBar(cfg, 10, "indexing"))
}

func TestNewSpinner_NilWhenDisabled(t *testing.T) {
	cfg := Config{Enabled: false}
	assert.Nil(t, NewSpinner(cfg, "correlating"))
}

func TestNewBar_ReturnsBarWhenEnabled(t *testing.T) {
	cfg := Config{Enabled: true, Writer: nilWriter{}}
	bar := NewBar(cfg, 10, "indexing")
	assert.NotNil(t, bar)
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }
