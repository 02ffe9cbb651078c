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

package pattern

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed patterns
var defaultPatternsFS embed.FS

// DefaultPatterns compiles the patterns shipped in the binary itself
// (patterns/ plus patterns/frameworks/), independent of any on-disk
// project directory. A project's own patterns/ directory, loaded via
// LoadPatternDir, is additive to this set.
func DefaultPatterns() ([]CompiledPattern, error) {
	var out []CompiledPattern
	err := fs.WalkDir(defaultPatternsFS, "patterns", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		b, err := defaultPatternsFS.ReadFile(path)
		if err != nil {
			return err
		}
		var pf patternFile
		if err := yaml.Unmarshal(b, &pf); err != nil {
			return fmt.Errorf("pattern: embedded %s: %w", path, err)
		}
		for _, def := range pf.Patterns {
			re, err := regexp.Compile(def.Regex)
			if err != nil {
				return fmt.Errorf("pattern: embedded %s: pattern %q: %w", path, def.Name, err)
			}
			out = append(out, CompiledPattern{Def: def, Regex: re, SourceFile: path})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
