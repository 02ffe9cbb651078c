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

// Package config loads a project's .fce/project.yaml, the explicit
// option record a run's command-line flags layer on top of.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/faultline/fce/pkg/model"
)

// Options is the full recognized option record: root/offline/quiet/
// index_only/exclude_self/subprocess_taint/wipecache/max_graph_depth/
// linter_timeout_seconds/fce_timeout_seconds/min_vectors/
// chunk_byte_budget, plus the project's own correlation rules.
type Options struct {
	Root              string `yaml:"root"`
	Offline           bool   `yaml:"offline"`
	Quiet             bool   `yaml:"quiet"`
	IndexOnly         bool   `yaml:"index_only"`
	ExcludeSelf       bool   `yaml:"exclude_self"`
	SubprocessTaint   bool   `yaml:"subprocess_taint"`
	WipeCache         bool   `yaml:"wipecache"`
	MaxGraphDepth     int    `yaml:"max_graph_depth"`
	LinterTimeoutSecs int    `yaml:"linter_timeout_seconds"`
	FCETimeoutSecs    int    `yaml:"fce_timeout_seconds"`
	MinVectors        int    `yaml:"min_vectors"`
	ChunkByteBudget   int    `yaml:"chunk_byte_budget"`

	Rules []model.CorrelationRule `yaml:"rules"`
}

// Default returns the option record's documented defaults, used when no
// .fce/project.yaml is present.
func Default() Options {
	return Options{
		MaxGraphDepth:     5,
		LinterTimeoutSecs: 300,
		FCETimeoutSecs:    600,
		MinVectors:        2,
		ChunkByteBudget:   60_000,
	}
}

// Path returns root's project config file path.
func Path(root string) string {
	return filepath.Join(root, ".fce", "project.yaml")
}

// Load reads root's .fce/project.yaml over Default(), or returns
// Default() unchanged if the file doesn't exist — an absent config
// file is a valid, common state, not an error.
func Load(root string) (Options, error) {
	opts := Default()
	opts.Root = root

	path := Path(root)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return opts, fmt.Errorf("config: parse %s: %w", path, err)
	}
	opts.Root = root
	return opts, nil
}
