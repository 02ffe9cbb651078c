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

package framework

// testCommands maps a detected test-category framework name (as it
// appears in catalog.yaml) to the shell command that invokes it.
var testCommands = map[string]string{
	"pytest": "pytest",
	"jest":   "npx jest",
	"rspec":  "bundle exec rspec",
}

// TestCommand returns the invocation command for a detected
// test-category framework, for callers (e.g. a "workflows" command)
// that need to run a project's tests rather than just report on them.
func TestCommand(name string) (string, bool) {
	cmd, ok := testCommands[name]
	return cmd, ok
}
