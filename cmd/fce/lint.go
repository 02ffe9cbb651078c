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
	"github.com/faultline/fce/pkg/pattern"
	"github.com/faultline/fce/pkg/severity"
	"github.com/faultline/fce/pkg/workset"
)

// runLint indexes the repository and runs only the pattern/rule engine
// (no taint tracker, no correlation) over the resolved workset —
// the fast path for a pre-commit hook or editor integration.
func runLint(args []string, globals globalFlags) error {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
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
	ws, err := workset.Resolve(ctx, workset.Options{Root: globals.Root, Mode: workset.SeedAll, MaxDepth: opts.MaxGraphDepth}, idx.Manifest, idx.Refs)
	if err != nil {
		return err
	}
	paths := make([]string, len(ws.Paths))
	for i, f := range ws.Paths {
		paths[i] = f.Path
	}

	patterns, err := pattern.DefaultPatterns()
	if err != nil {
		return err
	}
	engine := pattern.NewEngine(patterns, pattern.BuiltinRules())

	findings, err := engine.RunPatterns(globals.Root, paths)
	if err != nil {
		return err
	}
	ruleFindings, err := engine.RunRules(ctx, s, paths)
	if err != nil {
		return err
	}
	findings = append(findings, ruleFindings...)
	severity.Sort(findings)

	if globals.JSON {
		return output.JSON(map[string]any{"findings": findings})
	}
	ui.Header("fce lint")
	for _, f := range findings {
		ui.Warningf("%s:%d [%s] %s", f.File, f.Line, f.Rule, f.Message)
	}
	ui.Successf("%d findings", len(findings))
	return nil
}
