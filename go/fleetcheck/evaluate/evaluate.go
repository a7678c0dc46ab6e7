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

// Package evaluate turns probe results into verdicts. Every function here is
// pure: the same reading and policy always produce the same verdict.
package evaluate

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

// Status texts used in the report table.
const (
	StatusNoData      = "No data"
	StatusCheckFailed = "Check failed"
	StatusInvalidData = "Invalid data"
)

// Metric names used in the report table.
const (
	MetricCPU       = "CPU"
	MetricStorage   = "Storage"
	MetricHealth    = "Health"
	MetricHTTP      = "HTTP"
	MetricResponse  = "Response"
	MetricException = "Exception"
)

var ok = types.Verdict{Status: types.VerdictOK}

// Evaluate dispatches on the kind of the reading.
func Evaluate(r types.ProbeResult, p types.ThresholdPolicy) types.Verdict {
	switch r.Kind {
	case types.ProbeCPU:
		return CPU(r, p)
	case types.ProbeStorage:
		return Storage(r, p)
	case types.ProbeHealth:
		return Health(r, p)
	case types.ProbeHTTP:
		return HTTP(r)
	default:
		return types.Verdict{Status: types.VerdictMissing, Metric: string(r.Kind), Detail: StatusNoData}
	}
}

// CPU flags utilisation strictly above the limit.
func CPU(r types.ProbeResult, p types.ThresholdPolicy) types.Verdict {
	return Percent(MetricCPU, r, p)
}

// Percent evaluates any percentage reading under the given metric name.
func Percent(metric string, r types.ProbeResult, p types.ThresholdPolicy) types.Verdict {
	if !r.Succeeded {
		return types.Verdict{Status: types.VerdictMissing, Metric: metric, Detail: StatusNoData}
	}
	if exceeds(r.Value, p) {
		return types.Verdict{
			Status: types.VerdictDegraded,
			Metric: metric,
			Detail: fmt.Sprintf("High (%.2f%%)", r.Value),
		}
	}
	return ok
}

// Storage flags filesystem usage strictly above the limit.
func Storage(r types.ProbeResult, p types.ThresholdPolicy) types.Verdict {
	if !r.Succeeded {
		return types.Verdict{Status: types.VerdictMissing, Metric: MetricStorage, Detail: StatusCheckFailed}
	}
	if exceeds(r.Value, p) {
		return types.Verdict{
			Status: types.VerdictDegraded,
			Metric: MetricStorage,
			Detail: fmt.Sprintf("High (%.2f%% used %s/%s)", r.Value, r.Used, r.Total),
		}
	}
	return ok
}

// Health flags a literal that differs from the expected value.
func Health(r types.ProbeResult, p types.ThresholdPolicy) types.Verdict {
	if !r.Succeeded {
		return types.Verdict{Status: types.VerdictMissing, Metric: MetricHealth, Detail: StatusCheckFailed}
	}
	if p.MustEqual != "" && r.Literal != p.MustEqual {
		return types.Verdict{Status: types.VerdictDegraded, Metric: MetricHealth, Detail: r.Literal}
	}
	return ok
}

// HTTP accepts a 200 response whose trimmed body is a non-empty run of
// decimal digits. Transport failures are reported under the Exception metric.
func HTTP(r types.ProbeResult) types.Verdict {
	if !r.Succeeded {
		return types.Verdict{Status: types.VerdictDegraded, Metric: MetricException, Detail: r.FailureReason}
	}
	if r.StatusCode != http.StatusOK {
		return types.Verdict{
			Status: types.VerdictDegraded,
			Metric: MetricHTTP,
			Detail: fmt.Sprintf("Error %d", r.StatusCode),
		}
	}
	if !allDigits(strings.TrimSpace(r.Body)) {
		return types.Verdict{Status: types.VerdictDegraded, Metric: MetricResponse, Detail: StatusInvalidData}
	}
	return ok
}

func exceeds(v float64, p types.ThresholdPolicy) bool {
	return p.WarnAbove != nil && v > *p.WarnAbove
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
