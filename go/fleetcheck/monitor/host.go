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
	"time"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/evaluate"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/issues"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/remotecmd"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/report"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

// HostIssueType is used when the whole database section fails.
const HostIssueType = "EC2"

// NameResolver maps a resource id to its human-readable name.
type NameResolver interface {
	DisplayName(ctx context.Context, resourceID string) (string, error)
}

// CPUProber reads peak CPU utilisation. Implemented by *probe.Probe.
type CPUProber interface {
	Fetch(ctx context.Context, resourceID string, window, granularity time.Duration, statistic string) (float64, bool)
}

// StorageChecker reads filesystem usage on a host. Implemented by *remotecmd.Poller.
type StorageChecker interface {
	Storage(ctx context.Context, resourceID, fsPath string) (remotecmd.StorageUsage, error)
}

// Role is what distinguishes one database host group from another: the
// report label, the threshold category, and which filesystem (if any) is
// checked. Every role goes through the same check routine.
type Role struct {
	Name             string
	Label            string
	Category         types.Category
	StoragePath      string
	CPUWarnAbove     float64
	StorageWarnAbove float64
}

// CPUOnly reports whether the role skips the storage check.
func (r Role) CPUOnly() bool { return r.StoragePath == "" }

// HostGroup is a role and the hosts that play it.
type HostGroup struct {
	Role      Role
	Instances []string
}

// CPUSettings selects the metric window used for every host.
type CPUSettings struct {
	Window      time.Duration
	Granularity time.Duration
	Statistic   string
}

// HostMonitorConfig wires a HostMonitor.
type HostMonitorConfig struct {
	Groups      []HostGroup
	Names       NameResolver
	CPU         CPUProber
	Storage     StorageChecker
	CPUSettings CPUSettings
	Parallelism int
	Logger      *slog.Logger
}

// HostMonitor checks CPU, and storage where configured, for database hosts.
type HostMonitor struct {
	cfg HostMonitorConfig
}

// NewHostMonitor creates the database host section.
func NewHostMonitor(cfg HostMonitorConfig) *HostMonitor {
	return &HostMonitor{cfg: cfg}
}

func (m *HostMonitor) Name() string      { return "database-hosts" }
func (m *HostMonitor) IssueType() string { return HostIssueType }

// Run implements Section. Groups are checked in configuration order.
func (m *HostMonitor) Run(ctx context.Context, out *report.Narrative, agg *issues.Aggregator) error {
	for _, g := range m.cfg.Groups {
		title := g.Role.Label + " Instances"
		if g.Role.CPUOnly() {
			title += " (CPU only)"
		}
		out.Heading(title)

		forEach(ctx, out, agg, m.cfg.Logger, m.cfg.Parallelism, g.Instances,
			func(ctx context.Context, block *report.Narrative, local *issues.Aggregator, id string) {
				m.checkHost(ctx, block, local, g.Role, id)
			})
	}
	return nil
}

func (m *HostMonitor) checkHost(ctx context.Context, out *report.Narrative, agg *issues.Aggregator, role Role, id string) {
	ref := types.ResourceRef{ID: id, DisplayName: m.displayName(ctx, id), Category: role.Category}
	out.Printf("Instance: %s (%s)", ref.Label(), ref.ID)

	s := m.cfg.CPUSettings
	result := types.Failed(types.ProbeCPU, "no datapoints")
	if v, ok := m.cfg.CPU.Fetch(ctx, id, s.Window, s.Granularity, s.Statistic); ok {
		result = types.CPUReading(v)
	}
	verdict := evaluate.CPU(result, types.Above(role.CPUWarnAbove))
	switch verdict.Status {
	case types.VerdictOK:
		out.Printf("  ✅ CPU OK: %.2f%% (max in last %s)", result.Value, windowText(s.Window))
	case types.VerdictDegraded:
		out.Printf("  ❌ CPU High: %.2f%% (max in last %s)", result.Value, windowText(s.Window))
	default:
		out.Printf("  ⚠ CPU: no data in the last %s", windowText(s.Window))
	}
	if !verdict.OK() {
		agg.Append(types.NewIssue(role.Label, ref.Label(), verdict))
	}

	if role.CPUOnly() {
		return
	}

	var storage types.ProbeResult
	usage, err := m.cfg.Storage.Storage(ctx, id, role.StoragePath)
	if err != nil {
		m.cfg.Logger.WarnContext(ctx, "storage check failed",
			"resource_id", id, "path", role.StoragePath, "error", err)
		storage = types.Failed(types.ProbeStorage, err.Error())
	} else {
		storage = types.StorageReading(usage.PercentUsed, usage.Used, usage.Total)
	}

	verdict = evaluate.Storage(storage, types.Above(role.StorageWarnAbove))
	switch verdict.Status {
	case types.VerdictOK:
		out.Printf("  ✅ Storage OK: %.2f%% used (%s/%s) on %s", storage.Value, storage.Used, storage.Total, role.StoragePath)
	case types.VerdictDegraded:
		out.Printf("  ❌ Storage High: %.2f%% used (%s/%s) on %s", storage.Value, storage.Used, storage.Total, role.StoragePath)
	default:
		out.Printf("  ⚠ Storage check failed on %s", role.StoragePath)
	}
	if !verdict.OK() {
		agg.Append(types.NewIssue(role.Label, ref.Label(), verdict))
	}
}

func (m *HostMonitor) displayName(ctx context.Context, id string) string {
	if m.cfg.Names == nil {
		return id
	}
	name, err := m.cfg.Names.DisplayName(ctx, id)
	if err != nil {
		m.cfg.Logger.DebugContext(ctx, "name lookup failed", "resource_id", id, "error", err)
		return id
	}
	if name == "" {
		return id
	}
	return name
}

// windowText renders 12h as "12hrs" and shorter windows as time.Duration does.
func windowText(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%dhrs", d/time.Hour)
	}
	return d.String()
}
