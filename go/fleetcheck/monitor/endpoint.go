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
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/evaluate"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/issues"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/report"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

// DefaultEndpointTimeout bounds one external API request.
const DefaultEndpointTimeout = 10 * time.Second

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 1 << 16

// Endpoint is an external API expected to answer 200 with a numeric body.
type Endpoint struct {
	// Label is the report type, e.g. "FOTA API".
	Label   string
	URL     string
	Timeout time.Duration
}

// Name is the host and path of the endpoint URL, as shown in the report.
func (e Endpoint) Name() string {
	u, err := url.Parse(e.URL)
	if err != nil || u.Host == "" {
		return e.URL
	}
	return u.Host + u.Path
}

// EndpointMonitor checks external APIs.
type EndpointMonitor struct {
	endpoints []Endpoint
	client    *http.Client
	logger    *slog.Logger
}

// NewEndpointMonitor creates the external API section. A nil client uses
// http.DefaultClient.
func NewEndpointMonitor(endpoints []Endpoint, client *http.Client, logger *slog.Logger) *EndpointMonitor {
	if client == nil {
		client = http.DefaultClient
	}
	return &EndpointMonitor{endpoints: endpoints, client: client, logger: logger}
}

func (m *EndpointMonitor) Name() string { return "external-api" }

func (m *EndpointMonitor) IssueType() string {
	if len(m.endpoints) > 0 && m.endpoints[0].Label != "" {
		return m.endpoints[0].Label
	}
	return "External API"
}

// Run implements Section.
func (m *EndpointMonitor) Run(ctx context.Context, out *report.Narrative, agg *issues.Aggregator) error {
	out.Heading("External API Checks")
	for _, e := range m.endpoints {
		out.Printf("Checking %s ...", e.URL)

		result := m.probe(ctx, e)
		v := evaluate.HTTP(result)
		if v.OK() {
			out.Printf("  ✅ OK: %s", trimBody(result.Body))
			continue
		}
		out.Printf("  ❌ %s: %s", v.Metric, v.Detail)
		agg.Append(types.NewIssue(e.Label, e.Name(), v))
	}
	return nil
}

func (m *EndpointMonitor) probe(ctx context.Context, e Endpoint) types.ProbeResult {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultEndpointTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		return types.Failed(types.ProbeHTTP, err.Error())
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.WarnContext(ctx, "external api request failed", "url", e.URL, "error", err)
		return types.Failed(types.ProbeHTTP, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return types.Failed(types.ProbeHTTP, err.Error())
	}
	return types.HTTPReading(resp.StatusCode, string(body))
}

func trimBody(b string) string {
	const limit = 64
	if len(b) > limit {
		return b[:limit] + "..."
	}
	return b
}
