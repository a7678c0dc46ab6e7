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

// Package types holds the data model shared by the fleetcheck components:
// what is checked, what was observed, how it is judged, and what is reported.
package types

import (
	"fmt"
	"strings"
)

// Category groups resources that share probing and threshold rules.
type Category string

const (
	CategoryEnvironment     Category = "environment"
	CategoryDBPrimary       Category = "db-primary"
	CategoryDBSecondaryRole Category = "db-secondary-role"
	CategoryExternalAPI     Category = "external-api"
	CategoryBrokerNode      Category = "broker-node"
)

// ParseCategory maps a configuration string to a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryEnvironment, CategoryDBPrimary, CategoryDBSecondaryRole, CategoryExternalAPI, CategoryBrokerNode:
		return c, nil
	}
	return "", fmt.Errorf("unknown resource category %q", s)
}

// ResourceRef identifies something to check.
type ResourceRef struct {
	ID          string
	DisplayName string
	Category    Category
}

// Label is the name shown in reports: the display name when known, the id otherwise.
func (r ResourceRef) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.ID
}

// ProbeKind is the kind of reading a probe produces.
type ProbeKind string

const (
	ProbeCPU     ProbeKind = "CPU"
	ProbeStorage ProbeKind = "Storage"
	ProbeHealth  ProbeKind = "Health"
	ProbeHTTP    ProbeKind = "HTTP"
)

// ProbeResult is a single observation. When Succeeded is false the value
// fields are meaningless and FailureReason says why.
type ProbeResult struct {
	Kind ProbeKind

	// Value is the CPU percentage or storage used percentage.
	Value float64
	// Used and Total are the human-readable storage sizes, e.g. "45G" and "50G".
	Used  string
	Total string
	// Literal is an environment health value such as "Green".
	Literal string
	// StatusCode and Body are the HTTP probe outcome.
	StatusCode int
	Body       string

	Succeeded     bool
	FailureReason string
}

// CPUReading is a successful CPU observation.
func CPUReading(percent float64) ProbeResult {
	return ProbeResult{Kind: ProbeCPU, Value: percent, Succeeded: true}
}

// StorageReading is a successful filesystem usage observation.
func StorageReading(percent float64, used, total string) ProbeResult {
	return ProbeResult{Kind: ProbeStorage, Value: percent, Used: used, Total: total, Succeeded: true}
}

// HealthReading is an environment health literal.
func HealthReading(literal string) ProbeResult {
	return ProbeResult{Kind: ProbeHealth, Literal: literal, Succeeded: true}
}

// HTTPReading is a completed HTTP exchange, whatever its status.
func HTTPReading(status int, body string) ProbeResult {
	return ProbeResult{Kind: ProbeHTTP, StatusCode: status, Body: body, Succeeded: true}
}

// Failed is an observation that could not be made.
func Failed(kind ProbeKind, reason string) ProbeResult {
	if reason == "" {
		reason = "unknown failure"
	}
	return ProbeResult{Kind: kind, FailureReason: reason}
}

// ThresholdPolicy is the acceptance rule for one (category, probe kind) pair.
// A nil WarnAbove with an empty MustEqual accepts every successful reading.
type ThresholdPolicy struct {
	// WarnAbove flags numeric readings strictly greater than the limit.
	WarnAbove *float64
	// MustEqual flags literal readings different from this value.
	MustEqual string
}

// Above is a convenience constructor for a numeric upper limit.
func Above(limit float64) ThresholdPolicy {
	return ThresholdPolicy{WarnAbove: &limit}
}

// PolicyKey addresses a ThresholdPolicy.
type PolicyKey struct {
	Category Category
	Kind     ProbeKind
}

// Policy is the full threshold table, fixed for the duration of a run.
type Policy map[PolicyKey]ThresholdPolicy

// For returns the policy for a pair and whether one was configured.
func (p Policy) For(c Category, k ProbeKind) (ThresholdPolicy, bool) {
	tp, ok := p[PolicyKey{Category: c, Kind: k}]
	return tp, ok
}

// VerdictStatus is the outcome of evaluating one reading.
type VerdictStatus int

const (
	VerdictOK VerdictStatus = iota
	VerdictDegraded
	VerdictMissing
)

func (s VerdictStatus) String() string {
	switch s {
	case VerdictOK:
		return "OK"
	case VerdictDegraded:
		return "Degraded"
	case VerdictMissing:
		return "Missing"
	default:
		return "Unknown"
	}
}

// Verdict is the judgment of one reading. Metric and Detail are only set
// when Status is not OK.
type Verdict struct {
	Status VerdictStatus
	Metric string
	Detail string
}

// OK reports whether the verdict needs no issue.
func (v Verdict) OK() bool { return v.Status == VerdictOK }

// Issue is one row of the report table.
type Issue struct {
	ResourceType string `json:"type" yaml:"type"`
	Name         string `json:"name" yaml:"name"`
	Metric       string `json:"metric" yaml:"metric"`
	Status       string `json:"status" yaml:"status"`
}

// NewIssue builds the issue for a non-OK verdict.
func NewIssue(resourceType, name string, v Verdict) Issue {
	return Issue{ResourceType: resourceType, Name: name, Metric: v.Metric, Status: v.Detail}
}
