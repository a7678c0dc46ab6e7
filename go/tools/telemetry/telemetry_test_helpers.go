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

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestSetup holds in-memory telemetry for tests.
type TestSetup struct {
	Telemetry    *Telemetry
	SpanExporter *tracetest.InMemoryExporter
	MetricReader *metric.ManualReader
}

// ForceFlush flushes pending spans and metrics.
func (t *TestSetup) ForceFlush(ctx context.Context) error {
	if err := t.Telemetry.tracerProvider.ForceFlush(ctx); err != nil {
		return err
	}
	return t.Telemetry.meterProvider.ForceFlush(ctx)
}

// setupRestoreDefaultGlobals restores the otel globals after the test and
// its subtests complete.
func setupRestoreDefaultGlobals(t testing.TB) {
	t.Helper()
	originalTracerProvider := otel.GetTracerProvider()
	originalMeterProvider := otel.GetMeterProvider()
	originalTextMapPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(originalTracerProvider)
		otel.SetMeterProvider(originalMeterProvider)
		otel.SetTextMapPropagator(originalTextMapPropagator)
	})
}

// SetupTestTelemetry creates a telemetry instance with in-memory exporters.
// logProcessor may be nil.
func SetupTestTelemetry(t testing.TB, logProcessor sdklog.Processor) *TestSetup {
	t.Helper()
	setupRestoreDefaultGlobals(t)

	spanExporter := tracetest.NewInMemoryExporter()
	metricReader := metric.NewManualReader()
	telemetry := NewTelemetry().WithTestExporters(spanExporter, metricReader, logProcessor)

	return &TestSetup{
		Telemetry:    telemetry,
		SpanExporter: spanExporter,
		MetricReader: metricReader,
	}
}
