// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package workset

import (
	"path/filepath"
	"sort"
)

// filterGlobs applies include/exclude glob lists to paths and returns a
// deduplicated, sorted result. An empty include list means "everything
// passes the include stage"; exclude always wins over include for a
// path matched by both.
func filterGlobs(paths []string, include, exclude []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if len(include) > 0 && !matchesAny(p, include) {
			continue
		}
		if matchesAny(p, exclude) {
			continue
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func matchesAny(path string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}
