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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/faultline/fce/internal/output"
	"github.com/faultline/fce/internal/ui"
	"github.com/faultline/fce/pkg/dockerlint"
)

// runDockerAnalyze lints every Dockerfile under root for root-user
// containers, unpinned base images, missing health checks, and
// ENV/ARG values that look like leaked secrets.
func runDockerAnalyze(args []string, globals globalFlags) error {
	fs := flag.NewFlagSet("docker-analyze", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	paths := findDockerfiles(globals.Root)
	findings, err := dockerlint.Lint(paths, time.Now())
	if err != nil {
		return err
	}

	if globals.JSON {
		return output.JSON(map[string]any{"findings": findings})
	}
	ui.Header("fce docker-analyze")
	for _, f := range findings {
		ui.Warningf("%s [%s] %s", f.File, f.Rule, f.Message)
	}
	ui.Successf("%d findings across %d Dockerfiles", len(findings), len(paths))
	return nil
}
