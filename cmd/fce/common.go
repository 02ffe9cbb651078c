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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faultline/fce/internal/bootstrap"
	"github.com/faultline/fce/internal/config"
	"github.com/faultline/fce/internal/ferrors"
	"github.com/faultline/fce/pkg/store"
)

// defaultLogger is the structured logger every subcommand hands to
// bootstrap and the pipeline runner, writing dotted event names to
// stderr so stdout stays clean for --json output.
func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// findDockerfiles walks root for Dockerfile-named paths, skipping the
// usual vendor/dependency directories.
func findDockerfiles(root string) []string {
	var out []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "vendor", "node_modules", ".git", "_examples":
				return filepath.SkipDir
			}
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), "dockerfile") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// projectID derives the bootstrap project identifier from a repo root:
// its absolute directory name, so repeated runs against the same clone
// reuse the same on-disk store.
func projectID(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return filepath.Base(abs), nil
}

// openOrInitStore opens root's project store, initializing it on first
// use. Every subcommand that touches the store goes through this so the
// data directory layout (~/.fce/data/<project_id>/repo_index.db) stays
// in one place.
func openOrInitStore(ctx context.Context, root string, logger *slog.Logger) (*store.Store, error) {
	id, err := projectID(root)
	if err != nil {
		return nil, ferrors.NewPrerequisiteMissing("cannot resolve project root", err.Error(), "pass an existing --root", err)
	}
	cfg := bootstrap.ProjectConfig{ProjectID: id}
	if _, err := bootstrap.InitProject(ctx, cfg, logger); err != nil {
		return nil, ferrors.NewPrerequisiteMissing("failed to initialize project store", err.Error(), "check filesystem permissions under ~/.fce/data", err)
	}
	return bootstrap.OpenProject(ctx, cfg, logger)
}

// runID generates a fresh identifier for one pipeline invocation, used
// to key the workset_manifest and tool_runs rows a run writes.
func runID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}

// loadOptions loads root's project config, returning ferrors.Error on a
// malformed .fce/project.yaml rather than a bare parse error.
func loadOptions(root string) (config.Options, error) {
	opts, err := config.Load(root)
	if err != nil {
		return opts, ferrors.NewParseError("failed to parse .fce/project.yaml", err.Error(), "fix the YAML syntax or delete the file to use defaults", err)
	}
	return opts, nil
}
