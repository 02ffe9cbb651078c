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

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
	"github.com/faultline/fce/pkg/workset"
)

// WorksetHolder lets the resolve phase hand its result to later
// analyze-stage phases without the runner needing a typed, cross-phase
// result channel: each analyze phase closes over the same holder and
// reads Paths() once the resolve phase has run.
type WorksetHolder struct {
	ws model.Workset
}

// Paths returns the resolved workset's file list, or an empty slice
// before the resolve phase has executed.
func (h *WorksetHolder) Paths() []string {
	out := make([]string, len(h.ws.Paths))
	for i, f := range h.ws.Paths {
		out[i] = f.Path
	}
	return out
}

// NewWorksetResolvePhase resolves the run's workset per opts and
// persists its manifest. It reads the index phase's manifest/refs back
// via indexed rather than a declared store table, since ReadTables
// still names "files"/"refs" for scheduling purposes. Downstream
// analyze-stage phases read the result back via holder, since the
// manifest's shape (an ordered path list) doesn't fit the generic
// detail-row model.
func NewWorksetResolvePhase(s *store.Store, opts workset.Options, indexed *IndexResultHolder, runID string, holder *WorksetHolder) PhaseOperation {
	return &BasicPhase{
		PhaseName:    "workset_resolve",
		PhaseStage:   StageResolvePrepare,
		ReadTables:   []string{"files", "refs"},
		WriteTables:  []string{"workset_manifest"},
		PhaseTimeout: DefaultGenericTimeout,
		RunFunc: func(ctx context.Context) (int, error) {
			ws, err := workset.Resolve(ctx, opts, indexed.Manifest, indexed.Refs)
			if err != nil {
				return 0, err
			}
			holder.ws = ws
			if err := workset.Persist(ctx, s, runID, ws); err != nil {
				return 0, err
			}
			return len(ws.Paths), nil
		},
	}
}
