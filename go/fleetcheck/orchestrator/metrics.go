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

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the OpenTelemetry instruments for health-check runs.
// Wrapper types hide attribute key names from the instrumented code.
type Metrics struct {
	runDuration     metric.Float64Histogram
	sectionDuration SectionDuration
	issues          IssueCount
	deliveries      DeliveryCount
}

// SectionDuration records how long one report section took.
type SectionDuration struct {
	metric.Float64Histogram
}

// Record records a section duration. status is "success", "failure" or "panic".
func (m SectionDuration) Record(ctx context.Context, duration time.Duration, section string, status string) {
	m.Float64Histogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("section", section),
			attribute.String("status", status),
		))
}

// IssueCount counts issues found per resource type.
type IssueCount struct {
	metric.Int64Counter
}

// Add adds n issues of the given resource type.
func (m IssueCount) Add(ctx context.Context, n int, resourceType string) {
	m.Int64Counter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("resource_type", resourceType)))
}

// DeliveryCount counts report deliveries by outcome.
type DeliveryCount struct {
	metric.Int64Counter
}

// Add records one delivery. status is "success" or "failure".
func (m DeliveryCount) Add(ctx context.Context, status string) {
	m.Int64Counter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// NewMetrics initializes the run metrics.
// If meter is nil, returns noop implementations to avoid nil checks in instrumented code.
func NewMetrics(meter metric.Meter, logger *slog.Logger) (*Metrics, error) {
	m := &Metrics{}

	if meter == nil {
		m.runDuration = noop.Float64Histogram{}
		m.sectionDuration = SectionDuration{noop.Float64Histogram{}}
		m.issues = IssueCount{noop.Int64Counter{}}
		m.deliveries = DeliveryCount{noop.Int64Counter{}}
		return m, nil
	}

	var err error

	m.runDuration, err = meter.Float64Histogram(
		"fleetcheck.run.duration",
		metric.WithDescription("Duration of complete health-check runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Error("failed to create run.duration histogram", "error", err)
		return nil, err
	}

	sectionHistogram, err := meter.Float64Histogram(
		"fleetcheck.section.duration",
		metric.WithDescription("Duration of individual report sections"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Error("failed to create section.duration histogram", "error", err)
		return nil, err
	}
	m.sectionDuration = SectionDuration{sectionHistogram}

	issueCounter, err := meter.Int64Counter(
		"fleetcheck.issues",
		metric.WithDescription("Issues found by health-check runs"),
		metric.WithUnit("{issues}"),
	)
	if err != nil {
		logger.Error("failed to create issues counter", "error", err)
		return nil, err
	}
	m.issues = IssueCount{issueCounter}

	deliveryCounter, err := meter.Int64Counter(
		"fleetcheck.deliveries",
		metric.WithDescription("Report deliveries by outcome"),
		metric.WithUnit("{deliveries}"),
	)
	if err != nil {
		logger.Error("failed to create deliveries counter", "error", err)
		return nil, err
	}
	m.deliveries = DeliveryCount{deliveryCounter}

	return m, nil
}

// RecordRunDuration records the duration of a complete run.
func (m *Metrics) RecordRunDuration(ctx context.Context, duration time.Duration) {
	m.runDuration.Record(ctx, duration.Seconds())
}
