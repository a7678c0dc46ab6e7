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

package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/config"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/monitor"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/probe"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/remotecmd"
	"github.com/fleetcheck/fleetcheck/go/tools/telemetry"
	"github.com/fleetcheck/fleetcheck/go/viperutil"
)

const testConfig = `
database:
  roles:
    - name: main
      label: EC2 Main Mongo
      category: db-primary
      storage-path: /data
      cpu-warn-above: 65
      storage-warn-above: 85
      instances: [i-main]
poll:
  max-attempts: 3
  interval: 1ms
  initial-delay: 0s
`

type fakeEnvironments struct {
	envs []monitor.Environment
	err  error
}

func (f *fakeEnvironments) Environments(context.Context) ([]monitor.Environment, error) {
	return f.envs, f.err
}

type fakeNames map[string]string

func (f fakeNames) DisplayName(_ context.Context, id string) (string, error) {
	return f[id], nil
}

type fakeMetrics struct{ value float64 }

func (f *fakeMetrics) MetricValues(context.Context, probe.MetricQuery) ([]float64, error) {
	return []float64{f.value}, nil
}

type fakeCommands struct {
	mu         sync.Mutex
	dispatched []string
	stdout     string
}

func (f *fakeCommands) Dispatch(_ context.Context, resourceID, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, resourceID)
	return "cmd-" + resourceID, nil
}

func (f *fakeCommands) Invocation(context.Context, string, string) (remotecmd.Invocation, error) {
	return remotecmd.Invocation{Status: remotecmd.StatusSuccess, Stdout: f.stdout}, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func testBackends() *Backends {
	return &Backends{
		Environments: &fakeEnvironments{envs: []monitor.Environment{
			{Name: "orders-prod", Status: "Ready", Health: "Green"},
			{Name: "billing-prod", Status: "Ready", Health: "Red"},
		}},
		Names:    fakeNames{"i-main": "mongo-main-1"},
		Metrics:  &fakeMetrics{value: 12.5},
		Commands: &fakeCommands{stdout: "40% 4.0G 10G\n"},
	}
}

// newTestCommand returns a root command reading testConfig from an in-memory
// filesystem, with fake backends and in-memory telemetry.
func newTestCommand(t *testing.T, b *Backends) (*cobra.Command, *FleetCheck, *bytes.Buffer) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/fleetcheck.yaml", []byte(testConfig), 0o644))

	setup := telemetry.SetupTestTelemetry(t, nil)
	root, fc := newRootCommand(viperutil.NewRegistry(viperutil.WithFs(fs)), setup.Telemetry)

	out := &bytes.Buffer{}
	fc.stdout = out
	fc.newBackends = func(context.Context, *config.Config) (*Backends, error) { return b, nil }
	root.SetContext(context.Background())
	return root, fc, out
}

func execute(root *cobra.Command, args ...string) error {
	base := []string{"--config-file", "/etc/fleetcheck.yaml", "--env-file", "", "--log-output", "stderr"}
	root.SetArgs(append(args[:1:1], append(base, args[1:]...)...))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func TestRunOnceWritesReport(t *testing.T) {
	b := testBackends()
	root, _, out := newTestCommand(t, b)

	require.NoError(t, execute(root, "run"))

	body := out.String()
	assert.True(t, strings.HasPrefix(body, "⚠ AWS Monitoring Report ["), body)
	assert.Contains(t, body, "Environment: billing-prod")
	assert.Contains(t, body, "billing-prod")
	assert.Contains(t, body, "mongo-main-1")
	assert.Contains(t, body, "Storage OK: 40.00% used (4.0G/10G) on /data")
	assert.Equal(t, []string{"i-main"}, b.Commands.(*fakeCommands).dispatched)
}

func TestRunSkipSections(t *testing.T) {
	b := testBackends()
	root, _, out := newTestCommand(t, b)

	require.NoError(t, execute(root, "run", "--skip-sections", "database-hosts"))

	assert.Contains(t, out.String(), "Environment: orders-prod")
	assert.NotContains(t, out.String(), "mongo-main-1")
	assert.Empty(t, b.Commands.(*fakeCommands).dispatched)
}

func TestRunSkipEnvironments(t *testing.T) {
	root, _, out := newTestCommand(t, testBackends())

	require.NoError(t, execute(root, "run", "--skip-environments", "billing-prod"))

	assert.Contains(t, out.String(), "Skipping environment: billing-prod")
	assert.NotContains(t, out.String(), "Health is Red")
}

func TestRunDeliveryFailureFails(t *testing.T) {
	root, fc, _ := newTestCommand(t, testBackends())
	fc.stdout = failingWriter{}

	err := execute(root, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestRunSectionFailureStillDelivers(t *testing.T) {
	b := testBackends()
	b.Environments = &fakeEnvironments{err: errors.New("access denied")}
	root, _, out := newTestCommand(t, b)

	require.NoError(t, execute(root, "run"))
	assert.Contains(t, out.String(), "access denied")
	assert.Contains(t, out.String(), "mongo-main-1")
}

func TestRunInvalidConfig(t *testing.T) {
	called := false
	root, fc, _ := newTestCommand(t, testBackends())
	fc.newBackends = func(context.Context, *config.Config) (*Backends, error) {
		called = true
		return nil, errors.New("unreachable")
	}

	err := execute(root, "run", "--poll-max-attempts", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.False(t, called)
}

func TestRunBackendError(t *testing.T) {
	root, fc, _ := newTestCommand(t, testBackends())
	fc.newBackends = func(context.Context, *config.Config) (*Backends, error) {
		return nil, errors.New("no credentials")
	}

	err := execute(root, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestConfigCommandRedactsSecrets(t *testing.T) {
	t.Setenv("FLEETCHECK_SMTP_PASSWORD", "hunter2")
	root, _, out := newTestCommand(t, testBackends())

	require.NoError(t, execute(root, "config", "--smtp-host", "smtp.example.test"))

	assert.Contains(t, out.String(), "smtp.example.test")
	assert.Contains(t, out.String(), "<redacted>")
	assert.NotContains(t, out.String(), "hunter2")
	assert.Contains(t, out.String(), "i-main")
}

func TestConfigCommandJSON(t *testing.T) {
	root, _, out := newTestCommand(t, testBackends())

	require.NoError(t, execute(root, "config", "--format", "json"))
	assert.True(t, strings.HasPrefix(out.String(), "{"), out.String())
}

func TestConfigCommandValidate(t *testing.T) {
	root, _, _ := newTestCommand(t, testBackends())

	err := execute(root, "config", "--validate", "--delivery-attempts", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FLEETCHECK_TEST_ENV_FILE=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("FLEETCHECK_TEST_ENV_FILE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("FLEETCHECK_TEST_ENV_FILE"))

	require.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	require.NoError(t, loadEnvFile(""))
}
