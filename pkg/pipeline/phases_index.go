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

	"github.com/faultline/fce/pkg/framework"
	"github.com/faultline/fce/pkg/indexer"
	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// NewFrameworkDetectPhase wraps framework.Detector as stage-1 work: it
// writes framework_records, reading nothing from the store, so it never
// conflicts with the index build that runs alongside it.
func NewFrameworkDetectPhase(s *store.Store, root string) PhaseOperation {
	return &BasicPhase{
		PhaseName:    "framework_detect",
		PhaseStage:   StageIndexDetect,
		WriteTables:  []string{"framework_records"},
		PhaseTimeout: DefaultGenericTimeout,
		RunFunc: func(ctx context.Context) (int, error) {
			det, err := framework.NewDetector()
			if err != nil {
				return 0, err
			}
			records, err := det.Detect(root)
			if err != nil {
				return 0, err
			}
			for _, r := range records {
				if err := s.WriteFrameworkRecord(ctx, r); err != nil {
					return 0, err
				}
			}
			return len(records), nil
		},
	}
}

// IndexResultHolder carries the source index's file manifest and import
// refs into the resolve stage, mirroring WorksetHolder's pattern: the
// resolve phase needs the exact in-memory slices the index phase built,
// not a re-read of the files/refs tables.
type IndexResultHolder struct {
	Manifest []model.WorksetFile
	Refs     []model.Ref
}

// NewIndexPhase walks root's Go sources and writes files, symbols, refs,
// calls, and assignments. It has no declared reads, so it always runs
// in the same parallel track as framework_detect.
func NewIndexPhase(s *store.Store, root string, logger *slog.Logger, out *IndexResultHolder) PhaseOperation {
	return &BasicPhase{
		PhaseName:    "source_index",
		PhaseStage:   StageIndexDetect,
		WriteTables:  []string{"files", "symbols", "refs", "calls", "assignments"},
		PhaseTimeout: DefaultGenericTimeout,
		RunFunc: func(ctx context.Context) (int, error) {
			res, err := indexer.Index(ctx, s, root, logger)
			if err != nil {
				return 0, err
			}
			out.Manifest = res.Manifest
			out.Refs = res.Refs
			return res.Files, nil
		},
	}
}
