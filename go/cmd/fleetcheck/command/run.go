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
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/orchestrator"
	"github.com/fleetcheck/fleetcheck/go/tools/timer"
	"github.com/fleetcheck/fleetcheck/go/viperutil"
)

// AddRunCommand adds the run subcommand.
func AddRunCommand(root *cobra.Command, fc *FleetCheck) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the health checks and deliver the report",
		Long: `Run every enabled section once and deliver the report. With --interval the
checks repeat until SIGINT or SIGTERM; a failed delivery is then logged and the
next run still happens. Without it, a failed delivery makes the command fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fc.run(cmd.Context())
		},
	}
	root.AddCommand(cmd)
}

func (fc *FleetCheck) run(ctx context.Context) error {
	logger := fc.GetLogger()
	if err := fc.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	backends, err := fc.newBackends(ctx, fc.cfg)
	if err != nil {
		return err
	}
	metrics, err := orchestrator.NewMetrics(fc.telemetry.Meter(), logger)
	if err != nil {
		logger.WarnContext(ctx, "run metrics disabled", "error", err)
	}

	interval := fc.cfg.GetRunInterval()
	if interval <= 0 {
		_, err := fc.runOnce(ctx, backends, metrics)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if fc.cfg.GetRunWatchConfig() {
		stopWatch, err := fc.reg.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watching config file: %w", err)
		}
		defer stopWatch()

		reloaded := make(chan struct{}, 1)
		viperutil.NotifyConfigReload(fc.reg, reloaded)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-reloaded:
					logger.InfoContext(ctx, "configuration reloaded", "file", fc.reg.ConfigFileUsed())
				}
			}
		}()
	}

	logger.InfoContext(ctx, "starting periodic checks", "interval", interval)
	runner := timer.NewPeriodicRunner(ctx, interval, timer.WithImmediateStart())
	runner.Start(func(ctx context.Context) {
		if _, err := fc.runOnce(ctx, backends, metrics); err != nil {
			logger.ErrorContext(ctx, "run failed", "error", err)
		}
	}, nil)

	<-ctx.Done()
	runner.Stop()
	logger.InfoContext(context.WithoutCancel(ctx), "stopped periodic checks", "runs", runner.Runs())
	return nil
}

// runOnce builds the sections from the current configuration, so values
// reloaded from the config file apply to the next run.
func (fc *FleetCheck) runOnce(ctx context.Context, b *Backends, metrics *orchestrator.Metrics) (*orchestrator.RunReport, error) {
	logger := fc.GetLogger()
	if d, ok := runTimeout(fc.cfg); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	deliverer, err := buildDeliverer(fc.cfg, b, fc.stdout, logger)
	if err != nil {
		return nil, err
	}
	orch := orchestrator.New(buildSections(fc.cfg, b, logger), deliverer, orchestrator.Options{
		Subject:         fc.cfg.GetReportSubject(),
		ExcludeTypes:    fc.cfg.GetReportExcludeTypes(),
		DeliveryTimeout: fc.cfg.GetDeliveryTimeout(),
		Logger:          logger,
		Metrics:         metrics,
	})
	rr, err := orch.Run(ctx)
	if deliverer == nil && rr != nil {
		logger.InfoContext(ctx, "report", "run_id", rr.RunID, "body", rr.Body)
	}
	return rr, err
}
