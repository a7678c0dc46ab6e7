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
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/broker"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/issues"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/remotecmd"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/report"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fakes

type fakeLister struct {
	envs []Environment
	err  error
}

func (f fakeLister) Environments(context.Context) ([]Environment, error) { return f.envs, f.err }

type fakeNames map[string]string

func (f fakeNames) DisplayName(_ context.Context, id string) (string, error) {
	if n, ok := f[id]; ok {
		return n, nil
	}
	return "", errors.New("no Name tag")
}

type fakeCPU struct {
	mu     sync.Mutex
	values map[string]float64
	calls  []string
}

func (f *fakeCPU) Fetch(_ context.Context, id string, _, _ time.Duration, _ string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	v, ok := f.values[id]
	return v, ok
}

type fakeStorage struct {
	mu    sync.Mutex
	usage map[string]remotecmd.StorageUsage
	paths []string
}

func (f *fakeStorage) Storage(_ context.Context, id, path string) (remotecmd.StorageUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, id+":"+path)
	u, ok := f.usage[id]
	if !ok {
		return remotecmd.StorageUsage{}, errors.New("timed out")
	}
	return u, nil
}

type fakeScraper struct {
	nodes []broker.Node
	err   error
}

func (f fakeScraper) Nodes(context.Context) ([]broker.Node, error) { return f.nodes, f.err }

// Environments

func TestEnvironmentMonitor(t *testing.T) {
	m := NewEnvironmentMonitor(fakeLister{envs: []Environment{
		{Name: "api-env", Status: "Ready", Health: "Green"},
		{Name: "worker-env", Status: "Ready", Health: "Red"},
		{Name: "suspended-env", Status: "Ready", Health: "Grey"},
	}}, []string{"suspended-env"}, discardLogger())

	out := report.NewNarrative(nil)
	agg := issues.New()
	sum, err := m.Check(t.Context(), out, agg)
	require.NoError(t, err)

	assert.Equal(t, EnvironmentSummary{OK: 1, Issues: 1}, sum)
	assert.Equal(t, []types.Issue{{ResourceType: "Elastic Beanstalk", Name: "worker-env", Metric: "Health", Status: "Red"}}, agg.Snapshot())
	assert.Contains(t, out.String(), "Skipping environment: suspended-env")
	assert.Contains(t, out.String(), "Summary: 1 environments OK, 1 with issues")
}

func TestEnvironmentMonitorSkipIsExactMatch(t *testing.T) {
	m := NewEnvironmentMonitor(fakeLister{envs: []Environment{
		{Name: "suspended-env-2", Health: "Red"},
	}}, []string{"suspended-env"}, discardLogger())

	agg := issues.New()
	sum, err := m.Check(t.Context(), report.NewNarrative(nil), agg)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Issues)
}

func TestEnvironmentMonitorListingFails(t *testing.T) {
	m := NewEnvironmentMonitor(fakeLister{err: errors.New("AccessDenied")}, nil, discardLogger())
	err := m.Run(t.Context(), report.NewNarrative(nil), issues.New())
	assert.ErrorContains(t, err, "AccessDenied")
}

// Database hosts

var (
	loggerRole = Role{Name: "logger", Label: "EC2 Logger", Category: types.CategoryDBSecondaryRole, CPUWarnAbove: 65, StorageWarnAbove: 84}
	mainRole   = Role{Name: "main", Label: "EC2 Main Mongo", Category: types.CategoryDBPrimary, StoragePath: "/data", CPUWarnAbove: 65, StorageWarnAbove: 85}
)

func newHostMonitor(cpu *fakeCPU, st *fakeStorage, parallelism int, groups ...HostGroup) *HostMonitor {
	return NewHostMonitor(HostMonitorConfig{
		Groups:      groups,
		Names:       fakeNames{"i-m1": "mongo-main-1"},
		CPU:         cpu,
		Storage:     st,
		CPUSettings: CPUSettings{Window: 12 * time.Hour, Granularity: time.Minute, Statistic: "Maximum"},
		Parallelism: parallelism,
		Logger:      discardLogger(),
	})
}

func TestHostMonitorMainRole(t *testing.T) {
	cpu := &fakeCPU{values: map[string]float64{"i-m1": 70}}
	st := &fakeStorage{usage: map[string]remotecmd.StorageUsage{"i-m1": {PercentUsed: 91, Used: "45G", Total: "50G"}}}
	m := newHostMonitor(cpu, st, 1, HostGroup{Role: mainRole, Instances: []string{"i-m1"}})

	out := report.NewNarrative(nil)
	agg := issues.New()
	require.NoError(t, m.Run(t.Context(), out, agg))

	assert.Equal(t, []types.Issue{
		{ResourceType: "EC2 Main Mongo", Name: "mongo-main-1", Metric: "CPU", Status: "High (70.00%)"},
		{ResourceType: "EC2 Main Mongo", Name: "mongo-main-1", Metric: "Storage", Status: "High (91.00% used 45G/50G)"},
	}, agg.Snapshot())
	assert.Contains(t, out.String(), "❌ CPU High: 70.00% (max in last 12hrs)")
	assert.Equal(t, []string{"i-m1:/data"}, st.paths)
}

func TestHostMonitorLoggerRoleIsCPUOnly(t *testing.T) {
	cpu := &fakeCPU{values: map[string]float64{}}
	st := &fakeStorage{}
	m := newHostMonitor(cpu, st, 1, HostGroup{Role: loggerRole, Instances: []string{"i-l1"}})

	out := report.NewNarrative(nil)
	agg := issues.New()
	require.NoError(t, m.Run(t.Context(), out, agg))

	assert.Equal(t, []types.Issue{
		{ResourceType: "EC2 Logger", Name: "i-l1", Metric: "CPU", Status: "No data"},
	}, agg.Snapshot(), "name falls back to the id")
	assert.Empty(t, st.paths, "no storage command for a CPU-only role")
	assert.Contains(t, out.String(), "### EC2 Logger Instances (CPU only) ###")
}

func TestHostMonitorStorageFailureIsReported(t *testing.T) {
	cpu := &fakeCPU{values: map[string]float64{"i-m1": 10}}
	st := &fakeStorage{}
	m := newHostMonitor(cpu, st, 1, HostGroup{Role: mainRole, Instances: []string{"i-m1"}})

	agg := issues.New()
	require.NoError(t, m.Run(t.Context(), report.NewNarrative(nil), agg))
	assert.Equal(t, []types.Issue{
		{ResourceType: "EC2 Main Mongo", Name: "mongo-main-1", Metric: "Storage", Status: "Check failed"},
	}, agg.Snapshot())
}

func TestHostMonitorParallelKeepsOrder(t *testing.T) {
	ids := []string{"i-1", "i-2", "i-3", "i-4", "i-5", "i-6"}
	values := map[string]float64{}
	for _, id := range ids {
		values[id] = 99
	}

	run := func(parallelism int) (string, []types.Issue) {
		m := newHostMonitor(&fakeCPU{values: values}, &fakeStorage{}, parallelism,
			HostGroup{Role: loggerRole, Instances: ids})
		out := report.NewNarrative(nil)
		agg := issues.New()
		require.NoError(t, m.Run(t.Context(), out, agg))
		return out.String(), agg.Snapshot()
	}

	seqOut, seqIssues := run(1)
	parOut, parIssues := run(4)
	assert.Equal(t, seqOut, parOut)
	assert.Equal(t, seqIssues, parIssues)
	require.Len(t, parIssues, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, parIssues[i].Name)
	}
}

func TestForEachRecoversPanics(t *testing.T) {
	out := report.NewNarrative(nil)
	agg := issues.New()
	forEach(t.Context(), out, agg, discardLogger(), 2, []string{"a", "b"},
		func(_ context.Context, block *report.Narrative, local *issues.Aggregator, id string) {
			if id == "a" {
				panic("boom")
			}
			block.Println("checked " + id)
			local.Append(types.Issue{Name: id})
		})

	lines := out.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "check aborted for a: boom")
	assert.Equal(t, "checked b", lines[1])
	assert.Equal(t, 1, agg.Len())
}

// External API

func TestEndpointMonitor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/time", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("1761000000\n")) })
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	mux.HandleFunc("/html", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>")) })
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	m := NewEndpointMonitor([]Endpoint{
		{Label: "FOTA API", URL: srv.URL + "/time"},
		{Label: "FOTA API", URL: srv.URL + "/broken"},
		{Label: "FOTA API", URL: srv.URL + "/html"},
		{Label: "FOTA API", URL: srv.URL + "/slow", Timeout: 20 * time.Millisecond},
	}, srv.Client(), discardLogger())

	agg := issues.New()
	require.NoError(t, m.Run(t.Context(), report.NewNarrative(nil), agg))

	got := agg.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, types.Issue{ResourceType: "FOTA API", Name: host + "/broken", Metric: "HTTP", Status: "Error 502"}, got[0])
	assert.Equal(t, types.Issue{ResourceType: "FOTA API", Name: host + "/html", Metric: "Response", Status: "Invalid data"}, got[1])
	assert.Equal(t, "Exception", got[2].Metric)
	assert.Contains(t, got[2].Status, "deadline exceeded")
	assert.Equal(t, "FOTA API", m.IssueType())
}

func TestEndpointName(t *testing.T) {
	assert.Equal(t, "time.example.com/time", Endpoint{URL: "https://time.example.com/time"}.Name())
	assert.Equal(t, "not a url", Endpoint{URL: "not a url"}.Name())
}

// Broker nodes

func TestBrokerMonitor(t *testing.T) {
	m := NewBrokerMonitor("prod", fakeScraper{nodes: []broker.Node{
		{Name: "rabbit@a", Metrics: map[string]float64{"CPU": 10, "Disk": 90}},
		{Name: "rabbit@b", Metrics: map[string]float64{"CPU": 20}},
	}}, []BrokerMetric{{Name: "CPU", WarnAbove: 65}, {Name: "Disk", WarnAbove: 85}}, discardLogger())

	out := report.NewNarrative(nil)
	agg := issues.New()
	require.NoError(t, m.Run(t.Context(), out, agg))

	assert.Equal(t, []types.Issue{
		{ResourceType: "Broker Node", Name: "rabbit@a", Metric: "Disk", Status: "High (90.00%)"},
		{ResourceType: "Broker Node", Name: "rabbit@b", Metric: "Disk", Status: "No data"},
	}, agg.Snapshot())
	assert.Empty(t, agg.Snapshot(BrokerIssueType))
	assert.Contains(t, out.String(), "❌ Disk High: 90.00%")
}

func TestBrokerMonitorNoNodes(t *testing.T) {
	m := NewBrokerMonitor("prod", fakeScraper{}, nil, discardLogger())
	agg := issues.New()
	require.NoError(t, m.Run(t.Context(), report.NewNarrative(nil), agg))
	assert.Equal(t, 1, agg.Len())
}

func TestBrokerMonitorScrapeFails(t *testing.T) {
	m := NewBrokerMonitor("prod", fakeScraper{err: errors.New("connection refused")}, nil, discardLogger())
	err := m.Run(t.Context(), report.NewNarrative(nil), issues.New())
	assert.ErrorContains(t, err, "connection refused")
}
