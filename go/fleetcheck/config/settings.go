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

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/monitor"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/remotecmd"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
)

// RoleSettings is one database host role as written in the config file.
type RoleSettings struct {
	Name             string   `mapstructure:"name" yaml:"name"`
	Label            string   `mapstructure:"label" yaml:"label"`
	Category         string   `mapstructure:"category" yaml:"category"`
	StoragePath      string   `mapstructure:"storage-path" yaml:"storage-path,omitempty"`
	CPUWarnAbove     float64  `mapstructure:"cpu-warn-above" yaml:"cpu-warn-above"`
	StorageWarnAbove float64  `mapstructure:"storage-warn-above" yaml:"storage-warn-above"`
	Instances        []string `mapstructure:"instances" yaml:"instances"`
}

// EndpointSettings is one external API.
type EndpointSettings struct {
	Label   string        `mapstructure:"label" yaml:"label"`
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// BrokerMetricSettings maps a node table column to a metric and its limit.
type BrokerMetricSettings struct {
	Name      string  `mapstructure:"name" yaml:"name"`
	Header    string  `mapstructure:"header" yaml:"header"`
	WarnAbove float64 `mapstructure:"warn-above" yaml:"warn-above"`
}

// DefaultRoles are the two database roles. Instance lists are deployment
// specific and start empty.
var DefaultRoles = []RoleSettings{
	{
		Name:             "logger",
		Label:            "EC2 Logger",
		Category:         string(types.CategoryDBSecondaryRole),
		CPUWarnAbove:     65,
		StorageWarnAbove: 84,
	},
	{
		Name:             "main",
		Label:            "EC2 Main Mongo",
		Category:         string(types.CategoryDBPrimary),
		StoragePath:      "/data",
		CPUWarnAbove:     65,
		StorageWarnAbove: 85,
	},
}

// DefaultBrokerMetrics are the node table columns checked by default.
var DefaultBrokerMetrics = []BrokerMetricSettings{
	{Name: "CPU", Header: "CPU", WarnAbove: 80},
	{Name: "Disk", Header: "Disk", WarnAbove: 85},
}

// HostGroups converts the configured roles. Roles with an unknown category
// are rejected by Validate.
func (c *Config) HostGroups() []monitor.HostGroup {
	roles := c.GetDatabaseRoles()
	groups := make([]monitor.HostGroup, 0, len(roles))
	for _, r := range roles {
		cat, _ := types.ParseCategory(r.Category)
		groups = append(groups, monitor.HostGroup{
			Role: monitor.Role{
				Name:             r.Name,
				Label:            r.Label,
				Category:         cat,
				StoragePath:      r.StoragePath,
				CPUWarnAbove:     r.CPUWarnAbove,
				StorageWarnAbove: r.StorageWarnAbove,
			},
			Instances: r.Instances,
		})
	}
	return groups
}

// Endpoints converts the configured external APIs, filling in the default timeout.
func (c *Config) Endpoints() []monitor.Endpoint {
	apis := c.GetExternalAPIs()
	out := make([]monitor.Endpoint, 0, len(apis))
	for _, a := range apis {
		timeout := a.Timeout
		if timeout <= 0 {
			timeout = monitor.DefaultEndpointTimeout
		}
		out = append(out, monitor.Endpoint{Label: a.Label, URL: a.URL, Timeout: timeout})
	}
	return out
}

// CPUSettings returns the metric window used for host CPU checks.
func (c *Config) CPUSettings() monitor.CPUSettings {
	return monitor.CPUSettings{
		Window:      c.GetCPUWindow(),
		Granularity: c.GetCPUGranularity(),
		Statistic:   c.GetCPUStatistic(),
	}
}

// PollSettings returns the remote command polling budget.
func (c *Config) PollSettings() remotecmd.PollSettings {
	return remotecmd.PollSettings{
		MaxAttempts:  c.GetPollMaxAttempts(),
		PollInterval: c.GetPollInterval(),
		InitialDelay: c.GetPollInitialDelay(),
	}
}

// BrokerMetrics returns the per-node limits and the header of each column.
func (c *Config) BrokerMetrics() ([]monitor.BrokerMetric, map[string]string) {
	settings := c.GetBrokerMetrics()
	metrics := make([]monitor.BrokerMetric, 0, len(settings))
	columns := make(map[string]string, len(settings))
	for _, s := range settings {
		metrics = append(metrics, monitor.BrokerMetric{Name: s.Name, WarnAbove: s.WarnAbove})
		header := s.Header
		if header == "" {
			header = s.Name
		}
		columns[s.Name] = header
	}
	return metrics, columns
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	for i, r := range c.GetDatabaseRoles() {
		if r.Label == "" {
			errs = append(errs, fmt.Errorf("database.roles[%d]: label is required", i))
		}
		if _, err := types.ParseCategory(r.Category); err != nil {
			errs = append(errs, fmt.Errorf("database.roles[%d]: %w", i, err))
		}
		if r.StoragePath != "" {
			if _, err := remotecmd.StorageCommand(r.StoragePath); err != nil {
				errs = append(errs, fmt.Errorf("database.roles[%d]: %w", i, err))
			}
		}
	}

	for i, a := range c.GetExternalAPIs() {
		u, err := url.Parse(a.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("external-apis[%d]: invalid url %q", i, a.URL))
		}
	}

	if c.GetBrokerURL() != "" && c.GetBrokerCluster() == "" {
		errs = append(errs, errors.New("broker.cluster is required when broker.url is set"))
	}
	if c.GetPollMaxAttempts() < 1 {
		errs = append(errs, errors.New("poll.max-attempts must be at least 1"))
	}
	if c.GetCPUGranularity() < time.Second {
		errs = append(errs, errors.New("cpu.granularity must be at least 1s"))
	}
	if c.GetDeliveryAttempts() < 1 {
		errs = append(errs, errors.New("delivery.attempts must be at least 1"))
	}
	if base, maxDelay := c.GetDeliveryBaseDelay(), c.GetDeliveryMaxDelay(); base <= 0 {
		errs = append(errs, errors.New("delivery.base-delay must be positive"))
	} else if base > maxDelay {
		errs = append(errs, fmt.Errorf("delivery.base-delay (%s) cannot exceed delivery.max-delay (%s)", base, maxDelay))
	}
	return errors.Join(errs...)
}
