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
	"database/sql"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/faultline/fce/internal/output"
	"github.com/faultline/fce/internal/ui"
	"github.com/faultline/fce/pkg/fce"
	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// runCorrelate re-runs the FCE correlation algorithm over the store's
// existing findings_consolidated rows, without re-indexing or
// re-analyzing — for rebuilding a report after, say, editing
// .fce/project.yaml's correlation rules.
func runCorrelate(args []string, globals globalFlags) error {
	fs := flag.NewFlagSet("fce", flag.ExitOnError)
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

	findings, err := readConsolidatedFindings(ctx, s)
	if err != nil {
		return err
	}
	symbols, err := s.ReadSymbols(ctx)
	if err != nil {
		return err
	}

	correlationRules := append(fce.DefaultWorkflowRules(), opts.Rules...)
	rep, err := fce.Correlate(ctx, s, findings, nil, symbols, fce.Options{
		Rules:      correlationRules,
		MinVectors: opts.MinVectors,
	})
	if err != nil {
		return err
	}

	if globals.JSON {
		return output.JSON(rep)
	}
	ui.Header("fce fce")
	ui.Successf("%d findings, %d convergence points", len(rep.Findings), rep.Summary.ConvergenceCount)
	return nil
}

// readConsolidatedFindings reads findings_consolidated back as
// model.Finding rows with its own parameter-free SELECT through
// s.Query, since findings_consolidated is a core table with its own
// write path but no dedicated bulk reader.
func readConsolidatedFindings(ctx context.Context, s *store.Store) ([]model.Finding, error) {
	rows, err := s.Query(ctx, `SELECT file, line, end_line, rule, tool, message, severity, category, cwe, confidence FROM findings_consolidated`)
	if err != nil {
		return nil, fmt.Errorf("fce: read findings_consolidated: %w", err)
	}
	defer rows.Close()

	var out []model.Finding
	for rows.Next() {
		var (
			f                       model.Finding
			severityStr             string
			message, category, cwe sql.NullString
		)
		if err := rows.Scan(&f.File, &f.Line, &f.EndLine, &f.Rule, &f.Tool, &message, &severityStr, &category, &cwe, &f.Confidence); err != nil {
			return nil, err
		}
		f.Message = message.String
		f.Severity = model.Severity(severityStr)
		f.Category = category.String
		f.CWE = cwe.String
		out = append(out, f)
	}
	return out, rows.Err()
}
