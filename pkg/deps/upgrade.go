// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package deps

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// backupFile writes path's current contents to path.bak.<unix-timestamp>
// before any in-place mutation. Upgrade rewriting is destructive, so a
// restorable copy is made unconditionally, never opportunistically.
func backupFile(path string, now time.Time) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("deps: read %s for backup: %w", path, err)
	}
	backupPath := fmt.Sprintf("%s.bak.%d", path, now.Unix())
	if err := os.WriteFile(backupPath, b, 0o644); err != nil {
		return fmt.Errorf("deps: write backup %s: %w", backupPath, err)
	}
	return nil
}

// upgradeJSONVersions rewrites a package.json-shaped file's dependency
// sections in place, replacing each dep's stored version string with its
// latest resolved version. It preserves the JSON document's other
// fields by round-tripping through a generic map rather than a fixed
// struct, and reports how many entries actually changed.
func upgradeJSONVersions(path string, latest map[string]LatestInfo, deps []Dependency, sections []string) (int, error) {
	if err := backupFile(path, time.Now()); err != nil {
		return 0, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("deps: parse %s: %w", path, err)
	}

	depNames := make(map[string]bool, len(deps))
	for _, d := range deps {
		depNames[d.Name] = true
	}

	changed := 0
	for _, section := range sections {
		sec, ok := doc[section].(map[string]any)
		if !ok {
			continue
		}
		for name := range sec {
			if !depNames[name] {
				continue
			}
			info, ok := latest[name]
			if !ok || info.LatestVersion == "" {
				continue
			}
			existing, _ := sec[name].(string)
			prefix := semverOperatorRe.FindString(existing)
			next := prefix + info.LatestVersion
			if next != existing {
				sec[name] = next
				changed++
			}
		}
	}
	if changed == 0 {
		return 0, nil
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("deps: encode %s: %w", path, err)
	}
	out = append(out, '\n')
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return 0, fmt.Errorf("deps: write %s: %w", path, err)
	}
	return changed, nil
}
