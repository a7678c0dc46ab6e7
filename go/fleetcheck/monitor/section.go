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

// Package monitor holds the per-section health checks. Each section walks its
// configured resources, narrates what it sees, and appends an issue for every
// reading that is degraded or missing.
package monitor

import (
	"context"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/issues"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/report"
)

// Section is one group of checks run by the orchestrator.
type Section interface {
	// Name identifies the section in logs and metrics.
	Name() string
	// IssueType is the resource type used when the whole section fails.
	IssueType() string
	// Run performs every check of the section. A returned error means the
	// section could not complete; issues already appended are kept.
	Run(ctx context.Context, out *report.Narrative, agg *issues.Aggregator) error
}

// forEach runs check for every id with at most parallelism checks in flight.
// Each check writes to its own narrative block and issue list; both are merged
// into out and agg in the order of ids, so neither depends on scheduling. A
// panic in one check is logged and narrated without affecting the others.
func forEach(ctx context.Context, out *report.Narrative, agg *issues.Aggregator, logger *slog.Logger, parallelism int, ids []string,
	check func(ctx context.Context, block *report.Narrative, local *issues.Aggregator, id string),
) {
	blocks := make([]*report.Narrative, len(ids))
	locals := make([]*issues.Aggregator, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(max(1, parallelism))

	for i, id := range ids {
		blocks[i] = out.Block()
		locals[i] = issues.New()
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "resource check panicked",
						"resource_id", id, "panic", r, "stack", string(debug.Stack()))
					blocks[i].Printf("  ❌ check aborted for %s: %v", id, r)
				}
			}()
			check(ctx, blocks[i], locals[i], id)
			return nil
		})
	}
	_ = g.Wait()

	for i := range ids {
		out.Append(blocks[i])
		for _, it := range locals[i].Snapshot() {
			agg.Append(it)
		}
	}
}
