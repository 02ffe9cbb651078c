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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsPipeline holds the Prometheus metrics for phase execution.
type metricsPipeline struct {
	once sync.Once

	phasesStarted  prometheus.Counter
	phasesOK       prometheus.Counter
	phasesFailed   prometheus.Counter
	phasesTimedOut prometheus.Counter
	phasesSkipped  prometheus.Counter

	phaseDuration *prometheus.HistogramVec
}

var pipelineMetrics metricsPipeline

func (m *metricsPipeline) init() {
	m.once.Do(func() {
		m.phasesStarted = prometheus.NewCounter(prometheus.CounterOpts{Name: "fce_pipeline_phases_started_total", Help: "Phases started"})
		m.phasesOK = prometheus.NewCounter(prometheus.CounterOpts{Name: "fce_pipeline_phases_ok_total", Help: "Phases completed successfully"})
		m.phasesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "fce_pipeline_phases_failed_total", Help: "Phases that errored"})
		m.phasesTimedOut = prometheus.NewCounter(prometheus.CounterOpts{Name: "fce_pipeline_phases_timed_out_total", Help: "Phases killed for exceeding their timeout"})
		m.phasesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "fce_pipeline_phases_skipped_total", Help: "Phases skipped due to an upstream failure"})

		buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}
		m.phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "fce_pipeline_phase_duration_seconds", Help: "Phase execution duration", Buckets: buckets,
		}, []string{"phase"})

		prometheus.MustRegister(
			m.phasesStarted, m.phasesOK, m.phasesFailed, m.phasesTimedOut, m.phasesSkipped, m.phaseDuration,
		)
	})
}

func recordPhaseStart() {
	pipelineMetrics.init()
	pipelineMetrics.phasesStarted.Inc()
}

func recordPhaseResult(res PhaseResult) {
	pipelineMetrics.init()
	pipelineMetrics.phaseDuration.WithLabelValues(res.Name).Observe(res.Elapsed.Seconds())
	switch res.Status {
	case PhaseOK:
		pipelineMetrics.phasesOK.Inc()
	case PhaseFailed:
		pipelineMetrics.phasesFailed.Inc()
	case PhaseTimedOut:
		pipelineMetrics.phasesTimedOut.Inc()
	case PhaseSkipped:
		pipelineMetrics.phasesSkipped.Inc()
	}
}
