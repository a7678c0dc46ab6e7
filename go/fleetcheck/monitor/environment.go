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

package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/evaluate"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/issues"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/report"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

// EnvironmentIssueType is the report type for application environments.
const EnvironmentIssueType = "Elastic Beanstalk"

// HealthyLiteral is the only environment health value considered OK.
const HealthyLiteral = "Green"

// Environment is one application environment as listed by the platform.
type Environment struct {
	Name   string
	Status string
	Health string
}

// EnvironmentLister lists every application environment.
type EnvironmentLister interface {
	Environments(ctx context.Context) ([]Environment, error)
}

// EnvironmentSummary counts the environments that were evaluated.
type EnvironmentSummary struct {
	OK     int
	Issues int
}

// EnvironmentMonitor checks the health literal of every environment.
type EnvironmentMonitor struct {
	lister EnvironmentLister
	skip   []string
	logger *slog.Logger
}

// NewEnvironmentMonitor creates the environment section. Environments whose
// name exactly matches an entry of skip are not evaluated.
func NewEnvironmentMonitor(lister EnvironmentLister, skip []string, logger *slog.Logger) *EnvironmentMonitor {
	return &EnvironmentMonitor{lister: lister, skip: skip, logger: logger}
}

func (m *EnvironmentMonitor) Name() string      { return "environments" }
func (m *EnvironmentMonitor) IssueType() string { return EnvironmentIssueType }

// Run implements Section.
func (m *EnvironmentMonitor) Run(ctx context.Context, out *report.Narrative, agg *issues.Aggregator) error {
	_, err := m.Check(ctx, out, agg)
	return err
}

// Check evaluates every environment and returns the OK / issue counts.
func (m *EnvironmentMonitor) Check(ctx context.Context, out *report.Narrative, agg *issues.Aggregator) (EnvironmentSummary, error) {
	var sum EnvironmentSummary
	out.Heading("Elastic Beanstalk Environments")

	envs, err := m.lister.Environments(ctx)
	if err != nil {
		return sum, fmt.Errorf("listing environments: %w", err)
	}

	policy := types.ThresholdPolicy{MustEqual: HealthyLiteral}
	for _, env := range envs {
		if slices.Contains(m.skip, env.Name) {
			out.Printf("Skipping environment: %s", env.Name)
			continue
		}

		out.Printf("Environment: %s", env.Name)
		out.Printf("  Status: %s", env.Status)
		out.Printf("  Health: %s", env.Health)

		v := evaluate.Health(types.HealthReading(env.Health), policy)
		if v.OK() {
			sum.OK++
			continue
		}
		sum.Issues++
		out.Printf("  ❌ Health is %s", env.Health)
		agg.Append(types.NewIssue(EnvironmentIssueType, env.Name, v))
		m.logger.InfoContext(ctx, "environment degraded", "environment", env.Name, "health", env.Health)
	}

	out.Printf("Summary: %d environments OK, %d with issues", sum.OK, sum.Issues)
	return sum, nil
}
