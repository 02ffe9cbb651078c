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
	"net/http"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/faultline/fce/internal/ferrors"
	"github.com/faultline/fce/internal/output"
	"github.com/faultline/fce/internal/ui"
	"github.com/faultline/fce/pkg/deps"
)

// runDeps walks root for every recognized manifest file, extracts its
// dependencies, and — with --upgrade — resolves and applies latest
// versions against each ecosystem's registry.
func runDeps(args []string, globals globalFlags) error {
	fs := flag.NewFlagSet("deps", flag.ExitOnError)
	upgrade := fs.Bool("upgrade", false, "Fetch latest versions and rewrite manifests in place")
	if err := fs.Parse(args); err != nil {
		return err
	}

	registry := deps.NewManagerRegistry()
	var found []deps.Dependency
	byManager := map[string][]deps.Dependency{}

	err := filepath.WalkDir(globals.Root, func(path string, d os.DirEntry, err error) error {
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
		mgr := registry.For(d.Name())
		if mgr == nil {
			return nil
		}
		parsed, perr := mgr.ParseManifest(path)
		if perr != nil {
			return nil // an unparsable manifest is skipped, not fatal to the whole walk
		}
		found = append(found, parsed...)
		byManager[mgr.ManagerName()] = append(byManager[mgr.ManagerName()], parsed...)
		return nil
	})
	if err != nil {
		return ferrors.NewPrerequisiteMissing("failed to walk repository for manifests", err.Error(), "check --root points at a readable directory", err)
	}

	if !*upgrade {
		if globals.JSON {
			return output.JSON(map[string]any{"dependencies": found})
		}
		ui.Header("fce deps")
		for _, d := range found {
			ui.Info(d.Manager + ": " + d.Name + "@" + d.Version + " (" + d.SourceFile + ")")
		}
		return nil
	}

	client := &http.Client{Timeout: 10 * time.Second}
	ctx := context.Background()
	upgraded := 0
	for _, ds := range byManager {
		if len(ds) == 0 {
			continue
		}
		mgr := registry.For(filepath.Base(ds[0].SourceFile))
		if mgr == nil {
			continue
		}
		latest := map[string]deps.LatestInfo{}
		for _, d := range ds {
			info, ferr := mgr.FetchLatest(ctx, client, d)
			if ferr != nil || info == nil {
				continue
			}
			latest[d.Name] = *info
		}
		bySource := map[string][]deps.Dependency{}
		for _, d := range ds {
			bySource[d.SourceFile] = append(bySource[d.SourceFile], d)
		}
		for file, fileDeps := range bySource {
			n, uerr := mgr.UpgradeFile(file, latest, fileDeps)
			if uerr != nil {
				ui.Warningf("upgrade %s: %v", file, uerr)
				continue
			}
			upgraded += n
		}
	}

	if globals.JSON {
		return output.JSON(map[string]any{"upgraded": upgraded})
	}
	ui.Successf("upgraded %d dependency versions", upgraded)
	return nil
}
