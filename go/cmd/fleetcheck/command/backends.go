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
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/awsbackend"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/broker"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/config"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/delivery"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/monitor"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/probe"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/remotecmd"
	"github.com/fleetcheck/fleetcheck/go/tools/telemetry"
)

// Backends are the external systems a run talks to.
type Backends struct {
	Environments monitor.EnvironmentLister
	Names        monitor.NameResolver
	Metrics      probe.MetricsBackend
	Commands     remotecmd.Backend
	// Archive is nil when no bucket is configured.
	Archive    delivery.PutObjectAPI
	HTTPClient *http.Client
}

// NewAWSBackends builds Backends from the AWS SDK. The HTTP client used for
// AWS, external APIs and the broker console is instrumented with otelhttp.
func NewAWSBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	httpClient := telemetry.NewHTTPClient(0)

	settings := cfg.AWSSettings()
	settings.HTTPClient = httpClient
	awsCfg, err := awsbackend.LoadConfig(ctx, settings)
	if err != nil {
		return nil, err
	}
	clients := awsbackend.NewClients(awsCfg, cfg.GetAWSS3PathStyle())

	b := &Backends{
		Environments: awsbackend.NewBeanstalkEnvironments(clients.Beanstalk),
		Names:        awsbackend.NewEC2Names(clients.EC2),
		Metrics:      awsbackend.NewCloudWatchMetrics(clients.CloudWatch),
		Commands:     awsbackend.NewSSMCommands(clients.SSM),
		HTTPClient:   httpClient,
	}
	if cfg.GetS3Bucket() != "" {
		b.Archive = clients.S3
	}
	return b, nil
}

// buildSections returns the enabled sections in report order: environments,
// database hosts, external APIs, broker nodes. The external API and broker
// sections are left out when nothing is configured for them.
func buildSections(cfg *config.Config, b *Backends, logger *slog.Logger, pollOpts ...remotecmd.Option) []monitor.Section {
	skip := cfg.GetSkipSections()
	var sections []monitor.Section
	add := func(s monitor.Section) {
		if slices.Contains(skip, s.Name()) {
			logger.Info("section skipped by configuration", "section", s.Name())
			return
		}
		sections = append(sections, s)
	}

	add(monitor.NewEnvironmentMonitor(b.Environments, cfg.GetSkipEnvironments(), logger))

	add(monitor.NewHostMonitor(monitor.HostMonitorConfig{
		Groups:      cfg.HostGroups(),
		Names:       b.Names,
		CPU:         probe.New(b.Metrics, logger),
		Storage:     remotecmd.NewPoller(b.Commands, cfg.PollSettings(), logger, pollOpts...),
		CPUSettings: cfg.CPUSettings(),
		Parallelism: cfg.GetSectionParallelism(),
		Logger:      logger,
	}))

	if endpoints := cfg.Endpoints(); len(endpoints) > 0 {
		add(monitor.NewEndpointMonitor(endpoints, b.HTTPClient, logger))
	}

	if url := cfg.GetBrokerURL(); url != "" {
		metrics, columns := cfg.BrokerMetrics()
		scraper := broker.NewScraper(url, b.HTTPClient, cfg.GetBrokerNameColumn(), columns)
		add(monitor.NewBrokerMonitor(cfg.GetBrokerCluster(), scraper, metrics, logger))
	}
	return sections
}

// buildDeliverer returns every configured sink, each retried on its own, or
// nil when none is enabled.
func buildDeliverer(cfg *config.Config, b *Backends, stdout io.Writer, logger *slog.Logger) (delivery.Deliverer, error) {
	var sinks delivery.Multi
	if cfg.GetDeliveryStdout() {
		sinks = append(sinks, delivery.NewWriter(stdout))
	}

	retrying := func(d delivery.Deliverer) delivery.Deliverer {
		return delivery.NewRetrying(d, cfg.GetDeliveryAttempts(), cfg.GetDeliveryBaseDelay(), cfg.GetDeliveryMaxDelay(), logger)
	}
	if smtpCfg := cfg.SMTP(); smtpCfg.Host != "" {
		mailer, err := delivery.NewSMTP(smtpCfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, retrying(mailer))
	}
	if bucket := cfg.GetS3Bucket(); bucket != "" && b.Archive != nil {
		sinks = append(sinks, retrying(delivery.NewS3Archive(b.Archive, bucket, cfg.GetS3Prefix())))
	}

	switch len(sinks) {
	case 0:
		logger.Warn("no delivery sink enabled; the report is only logged")
		return nil, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

// runTimeout bounds one run; zero means no bound.
func runTimeout(cfg *config.Config) (time.Duration, bool) {
	d := cfg.GetRunTimeout()
	return d, d > 0
}
