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

// Package report renders what a run observed: the free-form narrative and the
// fixed-width issue table that closes it.
package report

import (
	"fmt"
	"strings"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

// AllHealthy is the whole table output when a run found no issues.
const AllHealthy = "✅ No issues detected. All systems healthy."

// SummaryHeading introduces the issue table in the narrative.
const SummaryHeading = "--- ⚠ Issues Summary ---"

// ColumnWidths are the minimum widths of Type, Name, Metric and Status.
var ColumnWidths = [4]int{20, 22, 18, 28}

var headers = [4]string{"Type", "Name/Instance ID", "Metric", "Status/Value"}

// Render formats issues as a bordered table, one row per issue, in order.
// Cells are left-aligned and padded to the column width; longer values are
// never truncated. An empty list renders as the single AllHealthy line.
func Render(issues []types.Issue) string {
	if len(issues) == 0 {
		return AllHealthy + "\n"
	}

	var b strings.Builder
	border := borderLine()

	b.WriteString(border)
	writeRow(&b, headers)
	b.WriteString(border)
	for _, it := range issues {
		writeRow(&b, [4]string{it.ResourceType, it.Name, it.Metric, it.Status})
	}
	b.WriteString(border)
	return b.String()
}

func borderLine() string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range ColumnWidths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func writeRow(b *strings.Builder, cells [4]string) {
	b.WriteByte('|')
	for i, c := range cells {
		fmt.Fprintf(b, " %-*s |", ColumnWidths[i], c)
	}
	b.WriteByte('\n')
}
