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

package fce

import (
	"context"
	"path/filepath"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// AIContextBundle is a convergence point enriched with its file's rows
// from every generic detail table among its context tables, grouped by
// table name. It is produced on
// demand — never persisted — so a machine consumer asking about one
// location doesn't have to replay the whole correlated report.
type AIContextBundle struct {
	Point         model.ConvergencePoint  `json:"point"`
	ContextLayers map[string][]map[string]any `json:"context_layers"`
}

// BuildContextBundle joins a convergence point with its file's rows from
// the context tables §4.1 selects for the point's file extension,
// skipping those that are not generic detail tables.
func BuildContextBundle(ctx context.Context, s *store.Store, point model.ConvergencePoint) (*AIContextBundle, error) {
	ext := filepath.Ext(point.File)
	tables := store.ContextTablesForExtension(ext)

	layers := make(map[string][]map[string]any, len(tables))
	for _, table := range tables {
		// Only generic detail tables are addressable through
		// ReadDetailRows. ContextTablesForExtension does not return the
		// hand-modeled framework_records table, and any other table that
		// is not a detail table is skipped here rather than joined.
		if !store.IsDetailTable(table) {
			continue
		}
		rows, err := s.ReadDetailRows(ctx, table, point.File)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			layers[table] = rows
		}
	}

	return &AIContextBundle{Point: point, ContextLayers: layers}, nil
}
