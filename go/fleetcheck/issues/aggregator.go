// Copyright 2026 Supabase, Inc.
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

// Package issues collects the issues raised during one run.
package issues

import (
	"slices"
	"sync"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

// Aggregator is an append-only, insertion-ordered issue list that is safe
// for concurrent use. One Aggregator lives for exactly one run.
type Aggregator struct {
	mu    sync.Mutex
	items []types.Issue
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Append records an issue.
func (a *Aggregator) Append(issue types.Issue) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, issue)
}

// Len returns the number of recorded issues, excluded types included.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Snapshot returns a copy of the issues in insertion order, leaving out
// any whose ResourceType is listed in exclude.
func (a *Aggregator) Snapshot(exclude ...string) []types.Issue {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.Issue, 0, len(a.items))
	for _, it := range a.items {
		if slices.Contains(exclude, it.ResourceType) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// CountByType returns how many issues each resource type raised.
func (a *Aggregator) CountByType() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make(map[string]int)
	for _, it := range a.items {
		counts[it.ResourceType]++
	}
	return counts
}
