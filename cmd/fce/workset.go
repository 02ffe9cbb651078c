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

	flag "github.com/spf13/pflag"

	"github.com/faultline/fce/internal/output"
	"github.com/faultline/fce/internal/ui"
	"github.com/faultline/fce/pkg/indexer"
	"github.com/faultline/fce/pkg/workset"
)

// runWorkset indexes the repository (without persisting analysis
// findings) and resolves+prints the file set a "full"/"lint" run would
// operate on, for a user inspecting scope before a real run.
func runWorkset(args []string, globals globalFlags) error {
	fs := flag.NewFlagSet("workset", flag.ExitOnError)
	diff := fs.String("diff", "", "Seed the workset from a git diff spec")
	files := fs.StringSlice("files", nil, "Seed the workset from an explicit file list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := loadOptions(globals.Root)
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger := defaultLogger()
	s, err := openOrInitStore(ctx, globals.Root, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	idx, err := indexer.Index(ctx, s, globals.Root, logger)
	if err != nil {
		return err
	}

	mode := workset.SeedAll
	switch {
	case *diff != "":
		mode = workset.SeedDiff
	case len(*files) > 0:
		mode = workset.SeedFiles
	}
	ws, err := workset.Resolve(ctx, workset.Options{
		Root:     globals.Root,
		Mode:     mode,
		DiffSpec: *diff,
		Files:    *files,
		MaxDepth: opts.MaxGraphDepth,
	}, idx.Manifest, idx.Refs)
	if err != nil {
		return err
	}

	if globals.JSON {
		return output.JSON(ws)
	}
	ui.Header("fce workset")
	for _, f := range ws.Paths {
		ui.Info(f.Path)
	}
	ui.Successf("%d files resolved (seeded from %d)", len(ws.Paths), ws.SeedCount)
	return nil
}
