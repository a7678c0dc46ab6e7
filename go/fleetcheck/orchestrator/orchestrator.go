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

// Package orchestrator runs every report section in order, assembles the
// narrative and issue table into one report, and hands it to a deliverer.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/delivery"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/issues"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/monitor"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/report"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
	"github.com/fleetcheck/fleetcheck/go/tools/telemetry"
)

// DefaultSubject is the report subject when none is configured.
const DefaultSubject = "⚠ AWS Monitoring Report"

// DefaultDeliveryTimeout bounds delivery when Options.DeliveryTimeout is unset.
const DefaultDeliveryTimeout = 5 * time.Minute

// PanicError is returned for a section that panicked.
type PanicError struct {
	Section string
	Value   any
	Stack   []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("section %s panicked: %v", e.Section, e.Value)
}

// RunReport is the outcome of one run.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	// Narrative holds every check line in execution order.
	Narrative string
	// Table is the rendered issue table (or the all-healthy line).
	Table  string
	Issues []types.Issue
	// Body is Narrative followed by the summary heading and Table.
	Body string
}

// Options configures an Orchestrator.
type Options struct {
	Subject string
	// ExcludeTypes are resource types narrated but left out of the table.
	ExcludeTypes []string
	// DeliveryTimeout bounds delivery. Delivery does not inherit the run
	// deadline or cancellation, so a run that overran still sends its report.
	DeliveryTimeout time.Duration
	Logger          *slog.Logger
	Metrics         *Metrics
	Tracer          trace.Tracer
	Now             func() time.Time
	NewRunID        func() string
}

// Orchestrator runs the report sections.
type Orchestrator struct {
	sections        []monitor.Section
	deliverer       delivery.Deliverer
	subject         string
	excludeTypes    []string
	deliveryTimeout time.Duration
	logger          *slog.Logger
	metrics         *Metrics
	tracer          trace.Tracer
	now             func() time.Time
	newRunID        func() string
}

// New creates an Orchestrator. Sections run in the order given. A nil
// deliverer means the report is only returned.
func New(sections []monitor.Section, deliverer delivery.Deliverer, opts Options) *Orchestrator {
	o := &Orchestrator{
		sections:        sections,
		deliverer:       deliverer,
		subject:         opts.Subject,
		excludeTypes:    opts.ExcludeTypes,
		deliveryTimeout: opts.DeliveryTimeout,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		tracer:          opts.Tracer,
		now:             opts.Now,
		newRunID:        opts.NewRunID,
	}
	if o.subject == "" {
		o.subject = DefaultSubject
	}
	if o.deliveryTimeout <= 0 {
		o.deliveryTimeout = DefaultDeliveryTimeout
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics, _ = NewMetrics(nil, o.logger)
	}
	if o.tracer == nil {
		o.tracer = telemetry.Tracer()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	return o
}

// Run executes one health-check pass. Section failures never abort the run;
// the only error returned is a delivery failure, alongside the full report.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	rr := &RunReport{RunID: o.newRunID(), StartedAt: o.now()}
	logger := o.logger.With("run_id", rr.RunID)

	ctx, span := o.tracer.Start(ctx, "fleetcheck.run",
		trace.WithAttributes(attribute.String("fleetcheck.run_id", rr.RunID)))
	defer span.End()

	logger.InfoContext(ctx, "health check run starting", "sections", len(o.sections))

	out := report.NewNarrative(logger)
	agg := issues.New()
	for _, sec := range o.sections {
		o.runSection(ctx, logger, sec, out, agg)
	}

	rr.Narrative = out.String()
	rr.Issues = agg.Snapshot(o.excludeTypes...)
	rr.Table = report.Render(rr.Issues)

	out.Println("")
	out.Println(report.SummaryHeading)
	out.Println(strings.TrimSuffix(rr.Table, "\n"))
	rr.Body = out.String()

	for resourceType, n := range agg.CountByType() {
		o.metrics.issues.Add(ctx, n, resourceType)
	}
	span.SetAttributes(attribute.Int("fleetcheck.issues", len(rr.Issues)))

	rr.FinishedAt = o.now()
	o.metrics.RecordRunDuration(ctx, rr.FinishedAt.Sub(rr.StartedAt))
	logger.InfoContext(ctx, "health check run finished",
		"issues", len(rr.Issues), "duration", rr.FinishedAt.Sub(rr.StartedAt))

	if o.deliverer == nil {
		return rr, nil
	}
	msg := delivery.Message{
		RunID:       rr.RunID,
		Subject:     o.Subject(rr.RunID),
		Body:        rr.Body,
		GeneratedAt: rr.StartedAt,
	}
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deliveryTimeout)
	defer cancel()
	if err := o.deliverer.Deliver(deliverCtx, msg); err != nil {
		o.metrics.deliveries.Add(ctx, "failure")
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		logger.ErrorContext(ctx, "report delivery failed", "error", err)
		return rr, fmt.Errorf("delivering report %s: %w", rr.RunID, err)
	}
	o.metrics.deliveries.Add(ctx, "success")
	return rr, nil
}

// Subject returns the message subject for a run: the configured subject
// followed by the short run id.
func (o *Orchestrator) Subject(runID string) string {
	short, _, _ := strings.Cut(runID, "-")
	return fmt.Sprintf("%s [%s]", o.subject, short)
}

func (o *Orchestrator) runSection(ctx context.Context, logger *slog.Logger, sec monitor.Section, out *report.Narrative, agg *issues.Aggregator) {
	ctx, span := o.tracer.Start(ctx, "fleetcheck.section",
		trace.WithAttributes(attribute.String("fleetcheck.section", sec.Name())))
	defer span.End()

	start := o.now()
	err := safeRun(ctx, sec, out, agg)

	status := "success"
	if err != nil {
		status = "failure"
		if pe, ok := err.(*PanicError); ok {
			status = "panic"
			logger.ErrorContext(ctx, "section panicked", "section", sec.Name(), "panic", pe.Value, "stack", string(pe.Stack))
		} else {
			logger.ErrorContext(ctx, "section failed", "section", sec.Name(), "error", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, status)

		out.Printf("❌ %s check failed: %v", sec.Name(), err)
		agg.Append(types.Issue{
			ResourceType: sec.IssueType(),
			Name:         sec.Name(),
			Metric:       "Section",
			Status:       "Check failed: " + err.Error(),
		})
	}
	o.metrics.sectionDuration.Record(ctx, o.now().Sub(start), sec.Name(), status)
}

func safeRun(ctx context.Context, sec monitor.Section, out *report.Narrative, agg *issues.Aggregator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Section: sec.Name(), Value: r, Stack: debug.Stack()}
		}
	}()
	return sec.Run(ctx, out, agg)
}
