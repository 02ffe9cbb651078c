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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/faultline/fce/internal/output"
	"github.com/faultline/fce/internal/ui"
	"github.com/faultline/fce/pkg/boundaries"
	"github.com/faultline/fce/pkg/indexer"
)

// runBoundaries indexes the repository and reports, for each entry
// point that ingests external data, the call-graph distance to the
// nearest validation/authorization/sanitization control.
func runBoundaries(args []string, globals globalFlags) error {
	fs := flag.NewFlagSet("boundaries", flag.ExitOnError)
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

	findings, err := boundaries.Analyze(ctx, s, time.Now())
	if err != nil {
		return err
	}

	if globals.JSON {
		return output.JSON(map[string]any{"findings": findings})
	}
	ui.Header("fce boundaries")
	for _, f := range findings {
		ui.Warningf("%s:%d [%s] %s", f.File, f.Line, f.Rule, f.Message)
	}
	ui.Successf("%d boundary findings", len(findings))
	return nil
}
