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

package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures one Runner.
type Options struct {
	Logger   *slog.Logger
	Observer Observer
	// MaxParallelTracks bounds how many phases within a stage may run
	// concurrently; 0 or less means min(8, runtime.NumCPU()).
	MaxParallelTracks int
}

// Runner executes a fixed, ordered set of phases across the four §4.9
// stages, tracking which tables each completed-or-failed phase touched
// so a later phase whose reads overlap a failed phase's writes is
// skipped rather than run against stale or absent data.
type Runner struct {
	phases   []PhaseOperation
	logger   *slog.Logger
	observer Observer
	maxTrack int
}

// NewRunner builds a Runner over a fixed phase list. Phases are grouped
// by Stage() and, within each stage, ordered into parallel tracks by
// declared read/write overlap: two phases conflict (and must serialize)
// if either writes a table the other reads or writes.
func NewRunner(phases []PhaseOperation, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	maxTrack := opts.MaxParallelTracks
	if maxTrack <= 0 {
		maxTrack = min(8, runtime.NumCPU())
	}
	return &Runner{phases: phases, logger: logger, observer: observer, maxTrack: maxTrack}
}

// Result is the pipeline's overall outcome: the ordered list of
// PhaseResults (in declaration order, including skipped phases) plus a
// roll-up of totals.
type Result struct {
	Phases        []PhaseResult
	TotalFindings int
	Failed        []string
	Skipped       []string
	Elapsed       time.Duration
}

// Run executes every stage in order. Within a stage, phases are split
// into conflict-free groups and each group's phases run concurrently via
// errgroup; groups within a stage still run sequentially relative to
// each other, since a later group may read what an earlier group in the
// same stage wrote.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	byStage := make(map[Stage][]PhaseOperation)
	for _, p := range r.phases {
		byStage[p.Stage()] = append(byStage[p.Stage()], p)
	}

	failedOutputs := make(map[string]bool) // table name -> some phase that wrote it failed
	resultsByName := make(map[string]PhaseResult)

	stages := []Stage{StageIndexDetect, StageResolvePrepare, StageAnalyze, StageCorrelateReport}
	for _, stage := range stages {
		phases := byStage[stage]
		if len(phases) == 0 {
			continue
		}
		r.observer.OnStageStart(stage)

		groups := groupByConflict(phases)
		for _, group := range groups {
			names := make([]string, len(group))
			for i, p := range group {
				names[i] = p.Name()
			}
			r.observer.OnParallelTrackStart(stage, names)

			eg, egCtx := errgroup.WithContext(ctx)
			if r.maxTrack > 0 {
				eg.SetLimit(r.maxTrack)
			}
			var mu sync.Mutex
			for _, phase := range group {
				phase := phase
				eg.Go(func() error {
					res := r.runPhase(egCtx, phase, failedOutputs)
					mu.Lock()
					resultsByName[phase.Name()] = res
					mu.Unlock()
					return nil // phase failures are recorded, never aborted via errgroup's error path
				})
			}
			_ = eg.Wait()

			r.observer.OnParallelTrackComplete(stage)
		}

		r.observer.OnStageComplete(stage)
	}

	for _, p := range r.phases {
		res, ok := resultsByName[p.Name()]
		if !ok {
			res = PhaseResult{Name: p.Name(), Status: PhaseSkipped}
		}
		result.Phases = append(result.Phases, res)
		result.TotalFindings += res.FindingsCount
		switch res.Status {
		case PhaseFailed, PhaseTimedOut:
			result.Failed = append(result.Failed, p.Name())
		case PhaseSkipped:
			result.Skipped = append(result.Skipped, p.Name())
		}
	}
	result.Elapsed = time.Since(start)
	return result, nil
}

// runPhase executes a single phase, honoring its declared timeout and
// skipping it outright if any table it reads was written by a phase
// that already failed.
func (r *Runner) runPhase(ctx context.Context, phase PhaseOperation, failedOutputs map[string]bool) PhaseResult {
	for _, table := range phase.Reads() {
		if failedOutputs[table] {
			res := PhaseResult{Name: phase.Name(), Status: PhaseSkipped}
			r.logger.Warn("pipeline.phase.skipped", "phase", phase.Name(), "reason", "upstream_failure", "table", table)
			recordPhaseResult(res)
			return res
		}
	}

	recordPhaseStart()
	r.observer.OnPhaseStart(phase.Name())
	start := time.Now()

	timeout := phase.Timeout()
	if timeout <= 0 {
		timeout = DefaultGenericTimeout
	}
	phaseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type runOutcome struct {
		count int
		err   error
	}
	done := make(chan runOutcome, 1)
	go func() {
		count, err := phase.Run(phaseCtx)
		done <- runOutcome{count: count, err: err}
	}()

	var outcome runOutcome
	select {
	case outcome = <-done:
	case <-phaseCtx.Done():
		outcome = runOutcome{err: phaseCtx.Err()}
	}

	elapsed := time.Since(start)
	res := PhaseResult{Name: phase.Name(), Elapsed: elapsed, FindingsCount: outcome.count}

	switch {
	case outcome.err == context.DeadlineExceeded:
		res.Status = PhaseTimedOut
		res.ExitCode = 124
		res.Stderr = "phase exceeded its timeout"
		for _, table := range phase.Writes() {
			failedOutputs[table] = true
		}
		r.observer.OnPhaseFailed(res)
	case outcome.err != nil:
		res.Status = PhaseFailed
		res.ExitCode = 1
		res.Stderr = outcome.err.Error()
		for _, table := range phase.Writes() {
			failedOutputs[table] = true
		}
		r.observer.OnPhaseFailed(res)
	default:
		res.Status = PhaseOK
		r.observer.OnPhaseComplete(res)
	}
	recordPhaseResult(res)
	return res
}

// groupByConflict partitions a stage's phases into ordered groups where
// every phase within a group is conflict-free with every other phase in
// that group: two phases conflict only if one writes a table the other
// reads or writes. Two phases that merely read the same table are not a
// conflict and may share a group. Declaration order is preserved both
// across and within groups.
func groupByConflict(phases []PhaseOperation) [][]PhaseOperation {
	var groups [][]PhaseOperation
	var groupReads, groupWrites []map[string]bool

	for _, p := range phases {
		reads := toSet(p.Reads())
		writes := toSet(p.Writes())

		placed := false
		for i, group := range groups {
			if !conflicts(reads, writes, groupReads[i], groupWrites[i]) {
				groups[i] = append(group, p)
				for t := range reads {
					groupReads[i][t] = true
				}
				for t := range writes {
					groupWrites[i][t] = true
				}
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []PhaseOperation{p})
			groupReads = append(groupReads, reads)
			groupWrites = append(groupWrites, writes)
		}
	}
	return groups
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

// conflicts reports whether a phase's reads/writes overlap a group's
// writes (in either direction), or the phase's writes overlap the
// group's reads. Read/read overlap alone is not a conflict.
func conflicts(reads, writes, groupReads, groupWrites map[string]bool) bool {
	for t := range writes {
		if groupReads[t] || groupWrites[t] {
			return true
		}
	}
	for t := range reads {
		if groupWrites[t] {
			return true
		}
	}
	return false
}
