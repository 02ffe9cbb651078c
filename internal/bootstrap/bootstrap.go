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

// Package bootstrap owns a run's on-disk project lifecycle: where its
// store file lives, creating it on first use, and opening it again on
// later runs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/faultline/fce/pkg/store"
)

// ProjectConfig holds configuration for initializing a project.
type ProjectConfig struct {
	// ProjectID is the logical project identifier, usually the repo's
	// directory name.
	ProjectID string

	// DataDir is the directory holding the project's store file.
	// Defaults to ~/.fce/data/<project_id>.
	DataDir string
}

// ProjectInfo holds information about an initialized project.
type ProjectInfo struct {
	ProjectID string
	DataDir   string
	DBPath    string
}

func defaultDataDir(projectID string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".fce", "data", projectID), nil
}

func dbPath(dataDir string) string {
	return filepath.Join(dataDir, "repo_index.db")
}

// InitProject initializes a new FCE project: it creates the data
// directory (if absent) and opens the store, which creates the schema
// on first use. Idempotent — calling it against an existing project
// just confirms the schema is current.
func InitProject(ctx context.Context, config ProjectConfig, logger *slog.Logger) (*ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if config.DataDir == "" {
		dir, err := defaultDataDir(config.ProjectID)
		if err != nil {
			return nil, err
		}
		config.DataDir = dir
	}

	logger.Info("bootstrap.project.init.start", "project_id", config.ProjectID, "data_dir", config.DataDir)

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := dbPath(config.DataDir)
	s, err := store.Open(ctx, store.Config{Path: path, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	logger.Info("bootstrap.project.init.success", "project_id", config.ProjectID, "data_dir", config.DataDir)

	return &ProjectInfo{ProjectID: config.ProjectID, DataDir: config.DataDir, DBPath: path}, nil
}

// OpenProject opens an existing FCE project's store for a pipeline run
// or query command.
func OpenProject(ctx context.Context, config ProjectConfig, logger *slog.Logger) (*store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if config.DataDir == "" {
		dir, err := defaultDataDir(config.ProjectID)
		if err != nil {
			return nil, err
		}
		config.DataDir = dir
	}

	path := dbPath(config.DataDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("project not found: %s (run 'fce full' first)", path)
	}

	logger.Debug("bootstrap.project.open", "project_id", config.ProjectID, "data_dir", config.DataDir)

	return store.Open(ctx, store.Config{Path: path, Logger: logger})
}

// ListProjects returns the project IDs found in the default data
// directory.
func ListProjects() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".fce", "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	return projects, nil
}
