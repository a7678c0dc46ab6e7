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
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/monitor"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/orchestrator"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/remotecmd"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/types"
	"github.com/fleetcheck/fleetcheck/go/viperutil"
)

const sampleYAML = `
aws:
  region: eu-central-1
environments:
  skip: [staging-old]
database:
  roles:
    - name: logger
      label: EC2 Logger
      category: db-secondary-role
      cpu-warn-above: 70
      instances: [i-0a, i-0b]
    - name: main
      label: EC2 Main Mongo
      category: db-primary
      storage-path: /data
      cpu-warn-above: 65
      storage-warn-above: 85
      instances: [i-1a]
external-apis:
  - label: Time API
    url: https://time.example.com/now
    timeout: 2s
  - label: Status API
    url: https://status.example.com/
broker:
  url: http://broker.internal:15672/nodes
  cluster: main-broker
  metrics:
    - name: CPU
      header: CPU %
      warn-above: 75
    - name: Memory
      warn-above: 90
smtp:
  host: smtp.example.com
  from: monitor@example.com
  to: [ops@example.com]
`

func loadYAML(t *testing.T, content string, args ...string) *Config {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/fleetcheck/fleetcheck.yaml", []byte(content), 0o644))

	reg := viperutil.NewRegistry(viperutil.WithFs(fs))
	vc := viperutil.NewViperConfig(reg)
	cfg := NewConfig(reg)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	vc.RegisterFlags(flags)
	cfg.RegisterFlags(flags)
	require.NoError(t, flags.Parse(append([]string{"--config-file=/etc/fleetcheck/fleetcheck.yaml"}, args...)))
	require.NoError(t, vc.LoadConfig(reg))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := NewTestConfig()

	groups := cfg.HostGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, "EC2 Logger", groups[0].Role.Label)
	assert.True(t, groups[0].Role.CPUOnly())
	assert.Equal(t, types.CategoryDBSecondaryRole, groups[0].Role.Category)
	assert.Equal(t, "EC2 Main Mongo", groups[1].Role.Label)
	assert.Equal(t, "/data", groups[1].Role.StoragePath)
	assert.InDelta(t, 85.0, groups[1].Role.StorageWarnAbove, 1e-9)
	assert.InDelta(t, 65.0, groups[1].Role.CPUWarnAbove, 1e-9)

	assert.Equal(t, remotecmd.DefaultPollSettings, cfg.PollSettings())
	assert.Equal(t, monitor.CPUSettings{Window: 12 * time.Hour, Granularity: time.Minute, Statistic: "Maximum"}, cfg.CPUSettings())
	assert.Equal(t, orchestrator.DefaultSubject, cfg.GetReportSubject())
	assert.Equal(t, orchestrator.DefaultDeliveryTimeout, cfg.GetDeliveryTimeout())
	assert.Equal(t, []string{monitor.BrokerIssueType}, cfg.GetReportExcludeTypes())
	assert.True(t, cfg.GetDeliveryStdout())
	assert.Equal(t, 1, cfg.GetSectionParallelism())
	assert.Zero(t, cfg.GetRunInterval())

	smtp := cfg.SMTP()
	assert.Equal(t, 465, smtp.Port)
	assert.True(t, smtp.SSL)
	assert.Empty(t, smtp.Host, "mail delivery is off until a host is configured")

	metrics, columns := cfg.BrokerMetrics()
	assert.Len(t, metrics, 2)
	assert.Equal(t, map[string]string{"CPU": "CPU", "Disk": "Disk"}, columns)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	cfg := loadYAML(t, sampleYAML)

	assert.Equal(t, "eu-central-1", cfg.AWSSettings().Region)
	assert.Equal(t, []string{"staging-old"}, cfg.GetSkipEnvironments())

	groups := cfg.HostGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"i-0a", "i-0b"}, groups[0].Instances)
	assert.InDelta(t, 70.0, groups[0].Role.CPUWarnAbove, 1e-9)
	assert.Equal(t, []string{"i-1a"}, groups[1].Instances)

	assert.Equal(t, []monitor.Endpoint{
		{Label: "Time API", URL: "https://time.example.com/now", Timeout: 2 * time.Second},
		{Label: "Status API", URL: "https://status.example.com/", Timeout: monitor.DefaultEndpointTimeout},
	}, cfg.Endpoints())

	metrics, columns := cfg.BrokerMetrics()
	assert.Equal(t, []monitor.BrokerMetric{{Name: "CPU", WarnAbove: 75}, {Name: "Memory", WarnAbove: 90}}, metrics)
	assert.Equal(t, map[string]string{"CPU": "CPU %", "Memory": "Memory"}, columns)
	assert.Equal(t, "main-broker", cfg.GetBrokerCluster())

	smtp := cfg.SMTP()
	assert.Equal(t, "smtp.example.com", smtp.Host)
	assert.Equal(t, []string{"ops@example.com"}, smtp.To)

	require.NoError(t, cfg.Validate())
}

func TestFlagsOverrideFile(t *testing.T) {
	cfg := loadYAML(t, sampleYAML, "--aws-region=us-west-2", "--poll-max-attempts=4", "--interval=1h")
	assert.Equal(t, "us-west-2", cfg.GetAWSRegion())
	assert.Equal(t, 4, cfg.PollSettings().MaxAttempts)
	assert.Equal(t, time.Hour, cfg.GetRunInterval())
}

func TestSecretsFromEnvironment(t *testing.T) {
	t.Setenv("FLEETCHECK_SMTP_PASSWORD", "from-env")
	t.Setenv("FLEETCHECK_AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("FLEETCHECK_AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("FLEETCHECK_SMTP_TO", "a@example.com,b@example.com")

	cfg := loadYAML(t, sampleYAML)
	assert.Equal(t, "from-env", cfg.SMTP().Password)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.SMTP().To)
	aws := cfg.AWSSettings()
	assert.Equal(t, "AKIDEXAMPLE", aws.AccessKeyID)
	assert.Equal(t, "secret", aws.SecretAccessKey)
}

func TestSecretsHaveNoFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	NewTestConfig().RegisterFlags(flags)
	for _, name := range []string{"smtp-password", "aws-secret-access-key", "aws-access-key-id", "aws-session-token"} {
		assert.Nil(t, flags.Lookup(name), name)
	}
}

func TestTestHelpers(t *testing.T) {
	cfg := NewTestConfig(
		WithDatabaseRoles(RoleSettings{Name: "only", Label: "Solo", Category: "db-primary", CPUWarnAbove: 50}),
		WithExternalAPIs(EndpointSettings{Label: "API", URL: "https://api.example.com"}),
		WithBroker("http://broker/nodes", "c1"),
		WithSkipSections("environments"),
		WithPollSettings(remotecmd.PollSettings{MaxAttempts: 2, PollInterval: time.Millisecond}),
		WithS3Bucket("reports-bucket"),
		WithDeliveryStdout(false),
	)

	groups := cfg.HostGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, "Solo", groups[0].Role.Label)
	assert.Len(t, cfg.Endpoints(), 1)
	assert.Equal(t, "c1", cfg.GetBrokerCluster())
	assert.Equal(t, []string{"environments"}, cfg.GetSkipSections())
	assert.Equal(t, 2, cfg.PollSettings().MaxAttempts)
	assert.Equal(t, "reports-bucket", cfg.GetS3Bucket())
	assert.False(t, cfg.GetDeliveryStdout())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []func(*Config)
		wantErr []string
	}{
		{
			name:    "unknown category",
			opts:    []func(*Config){WithDatabaseRoles(RoleSettings{Label: "X", Category: "cache"})},
			wantErr: []string{"database.roles[0]"},
		},
		{
			name:    "missing label",
			opts:    []func(*Config){WithDatabaseRoles(RoleSettings{Category: "db-primary"})},
			wantErr: []string{"label is required"},
		},
		{
			name:    "unsafe storage path",
			opts:    []func(*Config){WithDatabaseRoles(RoleSettings{Label: "X", Category: "db-primary", StoragePath: "/data; rm -rf /"})},
			wantErr: []string{"database.roles[0]"},
		},
		{
			name:    "bad endpoint url",
			opts:    []func(*Config){WithExternalAPIs(EndpointSettings{Label: "A", URL: "ftp://x"})},
			wantErr: []string{"external-apis[0]"},
		},
		{
			name:    "broker without cluster",
			opts:    []func(*Config){WithBroker("http://broker/nodes", "")},
			wantErr: []string{"broker.cluster"},
		},
		{
			name:    "zero poll attempts",
			opts:    []func(*Config){WithPollSettings(remotecmd.PollSettings{})},
			wantErr: []string{"poll.max-attempts"},
		},
		{
			name:    "zero delivery base delay",
			opts:    []func(*Config){WithDeliveryDelays(0, 30*time.Second)},
			wantErr: []string{"delivery.base-delay must be positive"},
		},
		{
			name:    "delivery base delay above max",
			opts:    []func(*Config){WithDeliveryDelays(time.Minute, 30*time.Second)},
			wantErr: []string{"cannot exceed delivery.max-delay"},
		},
		{
			name: "errors are joined",
			opts: []func(*Config){
				WithBroker("http://broker/nodes", ""),
				WithPollSettings(remotecmd.PollSettings{}),
			},
			wantErr: []string{"broker.cluster", "poll.max-attempts"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTestConfig(tt.opts...).Validate()
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
