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

package progress

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/faultline/fce/internal/ui"
	"github.com/faultline/fce/pkg/pipeline"
)

// Dashboard is the pipeline's default Observer: one spinner per active
// parallel track, replaced by a colored summary line as each phase
// finishes. It generalizes cmd/cie/progress.go's single indexing
// spinner to the pipeline's four stages and their parallel tracks.
type Dashboard struct {
	cfg Config

	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

// NewDashboard builds a Dashboard bound to cfg. When cfg.Enabled is
// false every method is a safe no-op.
func NewDashboard(cfg Config) *Dashboard {
	return &Dashboard{cfg: cfg, bars: make(map[string]*progressbar.ProgressBar)}
}

func (d *Dashboard) OnStageStart(stage pipeline.Stage) {
	if !d.cfg.Enabled {
		return
	}
	ui.Header(fmt.Sprintf("stage: %s", stage))
}

func (d *Dashboard) OnStageComplete(pipeline.Stage) {}

func (d *Dashboard) OnPhaseStart(name string) {
	if !d.cfg.Enabled {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bars[name] = NewSpinner(d.cfg, name)
}

func (d *Dashboard) OnPhaseComplete(result pipeline.PhaseResult) {
	d.finishBar(result.Name)
	if !d.cfg.Enabled {
		return
	}
	ui.Successf("%s  %s (%d findings, %s)", ui.Label(result.Name), result.Status, result.FindingsCount, result.Elapsed)
}

func (d *Dashboard) OnPhaseFailed(result pipeline.PhaseResult) {
	d.finishBar(result.Name)
	if !d.cfg.Enabled {
		return
	}
	ui.Errorf("%s  %s: %s", ui.Label(result.Name), result.Status, result.Stderr)
}

func (d *Dashboard) finishBar(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if bar, ok := d.bars[name]; ok && bar != nil {
		_ = bar.Finish()
		delete(d.bars, name)
	}
}

func (d *Dashboard) OnParallelTrackStart(stage pipeline.Stage, phaseNames []string) {
	if !d.cfg.Enabled {
		return
	}
	ui.Info(fmt.Sprintf("%s: running %s", stage, ui.DimText(fmt.Sprint(phaseNames))))
}

func (d *Dashboard) OnParallelTrackComplete(pipeline.Stage) {}

func (d *Dashboard) OnLog(level, message string) {
	if !d.cfg.Enabled {
		return
	}
	switch level {
	case "warn", "warning":
		ui.Warning(message)
	case "error":
		ui.Error(message)
	default:
		ui.Info(message)
	}
}
