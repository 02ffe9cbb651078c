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

// Package taint tracks tainted-value propagation from configured sources
// through assignments to sink calls within each file, materializing
// acyclic TaintFlow paths.
package taint

// State is a variable's taint status at a given point in the scan.
type State int

const (
	Untainted State = iota
	Sanitized
	Tainted
)

// precedence gives each state its merge rank: tainted beats sanitized
// beats untainted, so a variable assembled from several inputs inherits
// the most dangerous one.
var precedence = map[State]int{
	Untainted: 0,
	Sanitized: 1,
	Tainted:   2,
}

// Merge combines the states of several inputs feeding one assignment,
// taking the highest-precedence state.
func Merge(states ...State) State {
	out := Untainted
	for _, s := range states {
		if precedence[s] > precedence[out] {
			out = s
		}
	}
	return out
}

func (s State) String() string {
	switch s {
	case Tainted:
		return "tainted"
	case Sanitized:
		return "sanitized"
	default:
		return "untainted"
	}
}
