// Copyright 2025 Supabase, Inc.
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

// Package telemetry sets up OpenTelemetry traces, metrics and logs for
// fleetcheck commands.
//
// Exporters are chosen with the standard OTEL_* environment variables and
// default to "none". To send a run's spans to a local collector:
//
//	OTEL_TRACES_EXPORTER=otlp \
//	  OTEL_EXPORTER_OTLP_PROTOCOL="http/protobuf" \
//	  OTEL_EXPORTER_OTLP_ENDPOINT="http://localhost:4318" \
//	  fleetcheck run
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is the default service.name resource attribute.
const ServiceName = "fleetcheck"

const instrumentationName = "github.com/fleetcheck/fleetcheck"

var tracer = otel.Tracer(instrumentationName)

// Tracer returns the tracer used for fleetcheck spans.
func Tracer() trace.Tracer {
	return tracer
}

// NewHTTPClient returns a client whose requests are traced and measured with
// otelhttp. Create it after InitTelemetry so it picks up the providers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Telemetry holds OpenTelemetry configuration and state
type Telemetry struct {
	mu             sync.Mutex
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider
	initialized    bool

	// Test overrides (only used in tests)
	testSpanExporter sdktrace.SpanExporter
	testMetricReader sdkmetric.Reader
	testLogProcessor sdklog.Processor
}

// NewTelemetry creates a new Telemetry instance
func NewTelemetry() *Telemetry {
	return &Telemetry{}
}

// WithTestExporters makes InitTelemetry use the given exporters instead of
// autoexport. Any of them may be nil. Must be called before InitTelemetry.
func (t *Telemetry) WithTestExporters(spanExporter sdktrace.SpanExporter, metricReader sdkmetric.Reader, logProcessor sdklog.Processor) *Telemetry {
	t.testSpanExporter = spanExporter
	t.testMetricReader = metricReader
	t.testLogProcessor = logProcessor
	return t
}

// InitTelemetry initializes OpenTelemetry providers and exporters.
// OTEL_SERVICE_NAME overrides serviceName. Calling it again before
// ShutdownTelemetry is a no-op.
func (t *Telemetry) InitTelemetry(ctx context.Context, serviceName string, attrs ...attribute.KeyValue) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return nil
	}

	if envServiceName := os.Getenv("OTEL_SERVICE_NAME"); envServiceName != "" {
		serviceName = envServiceName
	}

	// Not merged with resource.Default() to avoid schema version conflicts.
	resourceAttrs := append([]attribute.KeyValue{semconv.ServiceName(serviceName)}, attrs...)
	res := resource.NewWithAttributes(semconv.SchemaURL, resourceAttrs...)

	if err := t.initTracing(ctx, res); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := t.initMetrics(ctx, res); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := t.initLogs(ctx, res); err != nil {
		return fmt.Errorf("failed to initialize logs: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.initialized = true
	slog.DebugContext(ctx, "OpenTelemetry initialized", "service", serviceName)
	return nil
}

// defaultExporterNone sets an OTEL_*_EXPORTER variable to "none" when unset,
// so nothing is exported unless telemetry is explicitly configured.
func defaultExporterNone(key string) {
	if os.Getenv(key) == "" {
		os.Setenv(key, "none")
	}
}

func (t *Telemetry) initTracing(ctx context.Context, res *resource.Resource) error {
	if t.testSpanExporter != nil {
		// Synchronous export keeps tests deterministic.
		t.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(t.testSpanExporter),
			sdktrace.WithResource(res),
		)
	} else {
		defaultExporterNone("OTEL_TRACES_EXPORTER")
		exporter, err := autoexport.NewSpanExporter(ctx)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		t.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
	}
	otel.SetTracerProvider(t.tracerProvider)
	return nil
}

func (t *Telemetry) initMetrics(ctx context.Context, res *resource.Resource) error {
	reader := t.testMetricReader
	if reader == nil {
		defaultExporterNone("OTEL_METRICS_EXPORTER")
		var err error
		reader, err = autoexport.NewMetricReader(ctx)
		if err != nil {
			return fmt.Errorf("failed to create metric reader: %w", err)
		}
	}

	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(t.meterProvider)
	return nil
}

func (t *Telemetry) initLogs(ctx context.Context, res *resource.Resource) error {
	if t.testLogProcessor != nil {
		t.loggerProvider = sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(t.testLogProcessor),
		)
		return nil
	}

	defaultExporterNone("OTEL_LOGS_EXPORTER")
	exporter, err := autoexport.NewLogExporter(ctx)
	if err != nil {
		return fmt.Errorf("failed to create log exporter: %w", err)
	}
	if autoexport.IsNoneLogExporter(exporter) {
		return nil
	}

	t.loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	return nil
}

// WithEnvTraceparent returns ctx parented on the W3C TRACEPARENT environment
// variable, if set. Schedulers use it to link a run to the job that started it.
func (t *Telemetry) WithEnvTraceparent(ctx context.Context) context.Context {
	traceparent := os.Getenv("TRACEPARENT")
	if traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": traceparent}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// InitForCommand initializes telemetry for a cobra command and optionally
// starts a span named after it. The command context is replaced.
func (t *Telemetry) InitForCommand(cmd *cobra.Command, serviceName string, startSpan bool) (trace.Span, error) {
	if err := t.InitTelemetry(cmd.Context(), serviceName); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	ctx := t.WithEnvTraceparent(cmd.Context())
	span := trace.SpanFromContext(ctx)
	if startSpan {
		ctx, span = tracer.Start(ctx, cmd.Name())
	}
	cmd.SetContext(ctx)
	return span, nil
}

// GetTracerProvider returns the configured TracerProvider.
func (t *Telemetry) GetTracerProvider() trace.TracerProvider {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tracerProvider == nil {
		return otel.GetTracerProvider()
	}
	return t.tracerProvider
}

// GetMeterProvider returns the configured MeterProvider.
func (t *Telemetry) GetMeterProvider() metric.MeterProvider {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.meterProvider == nil {
		return otel.GetMeterProvider()
	}
	return t.meterProvider
}

// Meter returns the fleetcheck meter from the configured MeterProvider.
func (t *Telemetry) Meter() metric.Meter {
	return t.GetMeterProvider().Meter(instrumentationName)
}

// ShutdownTelemetry flushes and stops every provider. It is a no-op before
// InitTelemetry.
func (t *Telemetry) ShutdownTelemetry(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return nil
	}
	slog.DebugContext(ctx, "Shutting down OpenTelemetry")

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if t.loggerProvider != nil {
		if err := t.loggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown logger provider: %w", err))
		}
	}
	t.initialized = false
	return errors.Join(errs...)
}

// WrapSlogHandler injects trace_id and span_id into every record logged with
// a span in its context and, when a log exporter is configured, also sends
// the records to OpenTelemetry through otelslog.
func (t *Telemetry) WrapSlogHandler(handler slog.Handler) slog.Handler {
	handlerWithTrace := &traceHandler{wrapped: handler}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loggerProvider != nil {
		return &compositeHandler{
			local: handlerWithTrace,
			otel:  otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(t.loggerProvider)),
		}
	}
	return handlerWithTrace
}

// compositeHandler sends log records to both local and OTel handlers
type compositeHandler struct {
	local slog.Handler
	otel  slog.Handler
}

func (h *compositeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.local.Enabled(ctx, level) || h.otel.Enabled(ctx, level)
}

// Handle writes to both handlers even if the first one fails.
func (h *compositeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.local.Enabled(ctx, r.Level) {
		if err := h.local.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("local handler: %w", err))
		}
	}
	if h.otel.Enabled(ctx, r.Level) {
		if err := h.otel.Handle(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("otel handler: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (h *compositeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &compositeHandler{
		local: h.local.WithAttrs(attrs),
		otel:  h.otel.WithAttrs(attrs),
	}
}

func (h *compositeHandler) WithGroup(name string) slog.Handler {
	return &compositeHandler{
		local: h.local.WithGroup(name),
		otel:  h.otel.WithGroup(name),
	}
}

// traceHandler wraps an slog.Handler to inject trace_id and span_id from context
type traceHandler struct {
	wrapped slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.wrapped.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.wrapped.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{wrapped: h.wrapped.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{wrapped: h.wrapped.WithGroup(name)}
}
