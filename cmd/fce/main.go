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

// Package main implements the fce CLI, the thin dispatcher that wires
// project bootstrap, the pipeline runner, and the individual analyzers
// to a command line.
//
// Usage:
//
//	fce full [--root path] [--json]       Run the full four-stage pipeline
//	fce workset [--diff spec|--files ...] Resolve and print a workset
//	fce lint [--json]                     Run the pattern/rule engine only
//	fce fce [--json]                      Re-correlate from the last findings
//	fce deps [--upgrade] [--json]         Report or upgrade manifest dependencies
//	fce deadcode [--json]                 Run dead-code detection only
//	fce docker-analyze [--json]           Lint Dockerfiles
//	fce boundaries [--json]               Report entry-to-control distances
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/faultline/fce/internal/ferrors"
	"github.com/faultline/fce/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
)

// globalFlags are the options every subcommand inherits.
type globalFlags struct {
	Root    string
	JSON    bool
	Quiet   bool
	NoColor bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
	)
	globals := globalFlags{}
	flag.StringVar(&globals.Root, "root", ".", "Repository root to operate on")
	flag.BoolVar(&globals.JSON, "json", false, "Emit machine-readable JSON instead of colored text")
	flag.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	flag.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `fce - Factual Correlation Engine

Usage:
  fce <command> [options]

Commands:
  full           Run the full four-stage pipeline and write a chunked report
  workset        Resolve and print the files a run would analyze
  lint           Run the pattern/rule engine over the resolved workset
  fce            Re-run correlation over the store's existing findings
  deps           Report (or, with --upgrade, rewrite) manifest dependencies
  deadcode       Run dead-code and structural-cycle detection
  docker-analyze Lint Dockerfiles
  boundaries     Report call-graph distance from entry points to controls

Global Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  fce full --root .
  fce full --json > report.json
  fce lint --root ./service
  fce docker-analyze

Data Storage:
  Project facts are stored in ~/.fce/data/<project_id>/repo_index.db
`)
	}

	flag.Parse()
	ui.InitColors(globals.NoColor)

	if *showVersion {
		fmt.Printf("fce %s (%s)\n", version, commit)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "full":
		err = runFull(rest, globals)
	case "workset":
		err = runWorkset(rest, globals)
	case "lint":
		err = runLint(rest, globals)
	case "fce":
		err = runCorrelate(rest, globals)
	case "deps":
		err = runDeps(rest, globals)
	case "deadcode":
		err = runDeadcode(rest, globals)
	case "docker-analyze":
		err = runDockerAnalyze(rest, globals)
	case "boundaries":
		err = runBoundaries(rest, globals)
	default:
		fmt.Fprintf(os.Stderr, "fce: unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		ferrors.FatalError(err, globals.JSON)
	}
}
