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
	"github.com/faultline/fce/pkg/structural"
)

// runDeadcode indexes the repository and runs only the structural
// analyzer: dead-code detection, complexity, and import cycles.
func runDeadcode(args []string, globals globalFlags) error {
	fs := flag.NewFlagSet("deadcode", flag.ExitOnError)
	includeTests := fs.Bool("include-tests", false, "Don't exclude _test.go files from dead-code candidates")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	logger := defaultLogger()
	s, err := openOrInitStore(ctx, globals.Root, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := indexer.Index(ctx, s, globals.Root, logger); err != nil {
		return err
	}

	deadCode, err := structural.DetectAll(ctx, s, structural.Options{IncludeTests: *includeTests})
	if err != nil {
		return err
	}
	complexity, err := structural.ComputeComplexity(ctx, s)
	if err != nil {
		return err
	}
	cycles, err := structural.DetectCycles(ctx, s)
	if err != nil {
		return err
	}

	if globals.JSON {
		return output.JSON(map[string]any{
			"dead_code":  deadCode,
			"complexity": complexity,
			"cycles":     cycles,
		})
	}

	ui.Header("fce deadcode")
	for _, d := range deadCode {
		ui.Warningf("%s:%d %s (%s, %s)", d.File, d.Line, d.Name, d.Kind, d.Confidence)
	}
	for _, c := range cycles {
		ui.Warningf("import cycle: %v", c.Files)
	}
	ui.Successf("%d dead-code findings, %d cycles", len(deadCode), len(cycles))
	return nil
}
