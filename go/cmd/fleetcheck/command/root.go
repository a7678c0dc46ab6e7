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

// Package command implements the fleetcheck command line.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/config"
	"github.com/fleetcheck/fleetcheck/go/servenv"
	"github.com/fleetcheck/fleetcheck/go/tools/telemetry"
	"github.com/fleetcheck/fleetcheck/go/viperutil"
)

// FleetCheck holds the state shared by the fleetcheck commands.
type FleetCheck struct {
	reg       *viperutil.Registry
	vc        *viperutil.ViperConfig
	cfg       *config.Config
	lg        *servenv.Logger
	telemetry *telemetry.Telemetry

	envFile string
	stdout  io.Writer

	// newBackends is replaced in tests.
	newBackends func(ctx context.Context, cfg *config.Config) (*Backends, error)
}

// GetRootCommand creates and returns the root command with all subcommands.
func GetRootCommand() (*cobra.Command, *FleetCheck) {
	return newRootCommand(viperutil.NewRegistry(), telemetry.NewTelemetry())
}

func newRootCommand(reg *viperutil.Registry, tel *telemetry.Telemetry) (*cobra.Command, *FleetCheck) {
	fc := &FleetCheck{
		reg:         reg,
		vc:          viperutil.NewViperConfig(reg),
		cfg:         config.NewConfig(reg),
		lg:          servenv.NewLogger(reg, tel),
		telemetry:   tel,
		envFile:     ".env",
		stdout:      os.Stdout,
		newBackends: NewAWSBackends,
	}

	var span trace.Span

	root := &cobra.Command{
		Use:   "fleetcheck",
		Short: "Periodic health report for an AWS fleet",
		Long: `fleetcheck checks application environments, database hosts, external APIs
and broker nodes, then delivers one plain-text report with an issue summary
table. Credentials are read from the environment (optionally from a .env file),
never from flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(fc.envFile); err != nil {
				return err
			}
			if err := fc.vc.LoadConfig(fc.reg); err != nil {
				return fmt.Errorf("%s: failed to read in config: %w", cmd.Name(), err)
			}

			var err error
			if span, err = fc.telemetry.InitForCommand(cmd, telemetry.ServiceName, cmd.Name() != "config"); err != nil {
				return err
			}
			return fc.lg.SetupLogging()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if span != nil {
				span.End()
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
			defer cancel()
			err := fc.telemetry.ShutdownTelemetry(ctx)
			if cerr := fc.lg.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			if err != nil {
				return fmt.Errorf("failed to shutdown OpenTelemetry: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&fc.envFile, "env-file", fc.envFile, "file of KEY=value lines loaded into the environment; existing variables win")
	fc.vc.RegisterFlags(root.PersistentFlags())
	fc.cfg.RegisterFlags(root.PersistentFlags())
	fc.lg.RegisterFlags(root.PersistentFlags())

	AddRunCommand(root, fc)
	AddConfigCommand(root, fc)

	return root, fc
}

// Config returns the resolved configuration.
func (fc *FleetCheck) Config() *config.Config {
	return fc.cfg
}

// GetLogger returns the configured logger.
func (fc *FleetCheck) GetLogger() *slog.Logger {
	return fc.lg.GetLogger()
}

// loadEnvFile loads path with godotenv. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
