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

// Observer receives runner events. Stage and track events come from the
// goroutine running Runner.Run, but phase start/complete/failed events
// come from each phase's own goroutine, so phases on the same parallel
// track can call an Observer concurrently and an implementation guards
// its own state. It must not block for long, since it runs inline with
// phase scheduling.
type Observer interface {
	OnStageStart(stage Stage)
	OnStageComplete(stage Stage)
	OnPhaseStart(name string)
	OnPhaseComplete(result PhaseResult)
	OnPhaseFailed(result PhaseResult)
	OnParallelTrackStart(stage Stage, phaseNames []string)
	OnParallelTrackComplete(stage Stage)
	OnLog(level, message string)
}

// NopObserver implements Observer with no-ops, for callers that don't
// need progress reporting (tests, library embedding).
type NopObserver struct{}

func (NopObserver) OnStageStart(Stage)                        {}
func (NopObserver) OnStageComplete(Stage)                     {}
func (NopObserver) OnPhaseStart(string)                       {}
func (NopObserver) OnPhaseComplete(PhaseResult)                {}
func (NopObserver) OnPhaseFailed(PhaseResult)                  {}
func (NopObserver) OnParallelTrackStart(Stage, []string)       {}
func (NopObserver) OnParallelTrackComplete(Stage)              {}
func (NopObserver) OnLog(string, string)                       {}
