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

// Package probe fetches metric series from the monitoring backend and
// reduces them to one number per resource.
package probe

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// Defaults for the CPU probe.
const (
	NamespaceEC2     = "AWS/EC2"
	MetricCPU        = "CPUUtilization"
	DimensionID      = "InstanceId"
	UnitPercent      = "Percent"
	DefaultWindow    = 12 * time.Hour
	DefaultPeriod    = 60 * time.Second
	DefaultStatistic = "Maximum"
)

// MetricQuery describes one metric series request.
type MetricQuery struct {
	Namespace      string
	MetricName     string
	DimensionName  string
	DimensionValue string
	Statistic      string
	Unit           string
	Period         time.Duration
	Start          time.Time
	End            time.Time
}

// MetricsBackend returns the datapoints of a series, newest first or in any order.
type MetricsBackend interface {
	MetricValues(ctx context.Context, q MetricQuery) ([]float64, error)
}

// Probe reads CPU utilisation for a resource. It never retries: one backend
// call per Fetch.
type Probe struct {
	backend MetricsBackend
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Probe.
type Option func(*Probe)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Probe) { p.now = now }
}

// New creates a Probe.
func New(backend MetricsBackend, logger *slog.Logger, opts ...Option) *Probe {
	p := &Probe{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch returns the largest datapoint of the resource's CPU series over
// [now-window, now] at the given granularity and statistic. The maximum is
// taken whatever the statistic, so "Average" yields the highest per-period
// average. The boolean is false when the series is empty or the backend
// failed; errors are logged, not returned.
func (p *Probe) Fetch(ctx context.Context, resourceID string, window, granularity time.Duration, statistic string) (float64, bool) {
	end := p.now().UTC()
	q := MetricQuery{
		Namespace:      NamespaceEC2,
		MetricName:     MetricCPU,
		DimensionName:  DimensionID,
		DimensionValue: resourceID,
		Statistic:      statistic,
		Unit:           UnitPercent,
		Period:         granularity,
		Start:          end.Add(-window),
		End:            end,
	}

	values, err := p.backend.MetricValues(ctx, q)
	if err != nil {
		p.logger.WarnContext(ctx, "metric query failed",
			"resource_id", resourceID,
			"metric", q.MetricName,
			"error", err)
		return 0, false
	}
	if len(values) == 0 {
		p.logger.DebugContext(ctx, "metric series empty", "resource_id", resourceID, "metric", q.MetricName)
		return 0, false
	}
	return slices.Max(values), true
}
