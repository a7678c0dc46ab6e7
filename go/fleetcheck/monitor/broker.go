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

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/broker"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/evaluate"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/issues"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/report"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

// BrokerIssueType is the report type for broker nodes. By default these
// issues are narrated but left out of the table.
const BrokerIssueType = "Broker Node"

// NodeScraper lists broker nodes. Implemented by *broker.Scraper.
type NodeScraper interface {
	Nodes(ctx context.Context) ([]broker.Node, error)
}

// BrokerMetric is a per-node column and its limit.
type BrokerMetric struct {
	Name      string
	WarnAbove float64
}

// BrokerMonitor checks the resource usage of every broker node.
type BrokerMonitor struct {
	cluster string
	scraper NodeScraper
	metrics []BrokerMetric
	logger  *slog.Logger
}

// NewBrokerMonitor creates the broker section.
func NewBrokerMonitor(cluster string, scraper NodeScraper, metrics []BrokerMetric, logger *slog.Logger) *BrokerMonitor {
	return &BrokerMonitor{cluster: cluster, scraper: scraper, metrics: metrics, logger: logger}
}

func (m *BrokerMonitor) Name() string      { return "broker-nodes" }
func (m *BrokerMonitor) IssueType() string { return BrokerIssueType }

// Run implements Section.
func (m *BrokerMonitor) Run(ctx context.Context, out *report.Narrative, agg *issues.Aggregator) error {
	out.Heading(fmt.Sprintf("Broker Nodes (%s)", m.cluster))

	nodes, err := m.scraper.Nodes(ctx)
	if err != nil {
		return fmt.Errorf("scraping broker console: %w", err)
	}
	if len(nodes) == 0 {
		out.Println("  ⚠ no broker nodes listed")
		agg.Append(types.Issue{ResourceType: BrokerIssueType, Name: m.cluster, Metric: "Nodes", Status: evaluate.StatusNoData})
		return nil
	}

	for _, n := range nodes {
		out.Printf("Node: %s", n.Name)
		for _, bm := range m.metrics {
			result := types.Failed(types.ProbeCPU, "cell missing or not numeric")
			if v, ok := n.Metrics[bm.Name]; ok {
				result = types.CPUReading(v)
			}
			v := evaluate.Percent(bm.Name, result, types.Above(bm.WarnAbove))
			switch v.Status {
			case types.VerdictOK:
				out.Printf("  ✅ %s OK: %.2f%%", bm.Name, result.Value)
			case types.VerdictDegraded:
				out.Printf("  ❌ %s High: %.2f%%", bm.Name, result.Value)
			default:
				out.Printf("  ⚠ %s: no data", bm.Name)
			}
			if !v.OK() {
				agg.Append(types.NewIssue(BrokerIssueType, n.Name, v))
			}
		}
	}
	return nil
}
