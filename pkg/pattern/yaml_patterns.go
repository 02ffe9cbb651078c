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

// Package pattern applies regex-based YAML patterns to workset files and
// language-grouped find_<X> rule functions to the indexed store, and
// returns the resulting findings; it writes nothing to the store.
package pattern

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PatternDef is one record in a YAML pattern file.
type PatternDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Severity    string `yaml:"severity"`
	Category    string `yaml:"category"`
	Regex       string `yaml:"regex"`
	PathFilter  string `yaml:"path_filter"`
}

type patternFile struct {
	Patterns []PatternDef `yaml:"patterns"`
}

// CompiledPattern pairs a PatternDef with its once-compiled regex.
type CompiledPattern struct {
	Def        PatternDef
	Regex      *regexp.Regexp
	SourceFile string
}

// LoadPatternDir reads every *.yml/*.yaml file under dir (recursively,
// so patterns/frameworks/*.yml is picked up alongside patterns/*.yml)
// and compiles each pattern's regex exactly once.
func LoadPatternDir(dir string) ([]CompiledPattern, error) {
	var out []CompiledPattern
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		compiled, ferr := loadPatternFile(path)
		if ferr != nil {
			return fmt.Errorf("pattern: %s: %w", path, ferr)
		}
		out = append(out, compiled...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadPatternFile(path string) ([]CompiledPattern, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf patternFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, err
	}
	out := make([]CompiledPattern, 0, len(pf.Patterns))
	for _, def := range pf.Patterns {
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", def.Name, err)
		}
		out = append(out, CompiledPattern{Def: def, Regex: re, SourceFile: path})
	}
	return out, nil
}

// matchesPathFilter reports whether file passes a pattern's glob filter.
// An empty filter matches everything.
func matchesPathFilter(file, filter string) bool {
	if filter == "" {
		return true
	}
	ok, err := filepath.Match(filter, file)
	if err != nil {
		return false
	}
	if ok {
		return true
	}
	ok, _ = filepath.Match(filter, filepath.Base(file))
	return ok
}
