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
	"os"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/faultline/fce/internal/output"
	"github.com/faultline/fce/internal/progress"
	"github.com/faultline/fce/internal/ui"
	"github.com/faultline/fce/pkg/dockerlint"
	"github.com/faultline/fce/pkg/fce"
	"github.com/faultline/fce/pkg/pattern"
	"github.com/faultline/fce/pkg/pipeline"
	"github.com/faultline/fce/pkg/structural"
	"github.com/faultline/fce/pkg/taint"
	"github.com/faultline/fce/pkg/workset"
)

// runFull executes the four-stage pipeline end to end: index & detect,
// resolve & prepare, analyze, correlate & report.
func runFull(args []string, globals globalFlags) error {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	diff := fs.String("diff", "", "Seed the workset from a git diff spec instead of the full repo")
	files := fs.StringSlice("files", nil, "Seed the workset from an explicit file list")
	outDir := fs.String("out", ".fce/report", "Directory to write the chunked report into")
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

	run := runID()

	patterns, err := pattern.DefaultPatterns()
	if err != nil {
		return err
	}
	engine := pattern.NewEngine(patterns, pattern.BuiltinRules())
	tracker := taint.NewTracker(taint.DefaultSourceRules(), taint.DefaultSinkRules(), taint.DefaultSanitizerRules(), opts.MaxGraphDepth)

	indexHolder := &pipeline.IndexResultHolder{}
	worksetHolder := &pipeline.WorksetHolder{}
	analysisResult := &pipeline.AnalysisResultHolder{}
	structuralResult := &pipeline.StructuralResultHolder{}
	correlateResult := &pipeline.CorrelateResultHolder{}
	var analyzeMu sync.Mutex

	wsMode := workset.SeedAll
	switch {
	case *diff != "":
		wsMode = workset.SeedDiff
	case len(*files) > 0:
		wsMode = workset.SeedFiles
	}
	wsOpts := workset.Options{
		Root:     globals.Root,
		Mode:     wsMode,
		DiffSpec: *diff,
		Files:    *files,
		MaxDepth: opts.MaxGraphDepth,
	}

	correlationRules := append(fce.DefaultWorkflowRules(), opts.Rules...)

	phases := []pipeline.PhaseOperation{
		pipeline.NewFrameworkDetectPhase(s, globals.Root),
		pipeline.NewIndexPhase(s, globals.Root, logger, indexHolder),
		pipeline.NewWorksetResolvePhase(s, wsOpts, indexHolder, run, worksetHolder),
		pipeline.NewPatternEnginePhase(s, engine, globals.Root, worksetHolder, analysisResult, &analyzeMu),
		pipeline.NewTaintTrackerPhase(s, tracker, worksetHolder, analysisResult, &analyzeMu),
		pipeline.NewStructuralAnalyzerPhase(s, structural.Options{}, structuralResult),
		pipeline.NewFCECorrelatePhase(s, correlationRules, opts.MinVectors, analysisResult, structuralResult, correlateResult),
		pipeline.NewReportChunkPhase(*outDir, opts.ChunkByteBudget, correlateResult),
	}

	dash := progress.NewDashboard(progress.NewConfig(globals.JSON, globals.Quiet, globals.NoColor))
	runner := pipeline.NewRunner(phases, pipeline.Options{Logger: logger, Observer: dash})

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	// Dockerfile linting is a distinct tool producing the same
	// Finding shape; it runs outside the runner's table-scheduling
	// since it has no store dependency. Only its count is merged into
	// the summary below; the chunked report on disk does not include
	// these findings.
	dockerFindings, _ := dockerlint.Lint(findDockerfiles(globals.Root), time.Now())

	if globals.JSON {
		return output.JSON(map[string]any{
			"run_id":          run,
			"phases":          result.Phases,
			"total_findings":  result.TotalFindings + len(dockerFindings),
			"failed_phases":   result.Failed,
			"skipped_phases":  result.Skipped,
			"elapsed_ms":      result.Elapsed.Milliseconds(),
			"docker_findings": len(dockerFindings),
		})
	}

	ui.Header("fce full")
	ui.Successf("completed in %s: %d findings (%d docker)", result.Elapsed, result.TotalFindings, len(dockerFindings))
	if len(result.Failed) > 0 {
		ui.Errorf("failed phases: %v", result.Failed)
	}
	if len(result.Skipped) > 0 {
		ui.Warningf("skipped phases: %v", result.Skipped)
	}
	fmt.Fprintf(os.Stderr, "report written to %s\n", *outDir)
	return nil
}
