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

// Package config holds every runtime setting of the fleetcheck command.
//
// Values come from, in increasing precedence: built-in defaults, the config
// file, FLEETCHECK_* environment variables and command line flags. Secrets
// (AWS keys, the SMTP password) have no flag and are read from the
// environment or the config file only.
package config

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/awsbackend"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/delivery"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/monitor"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/orchestrator"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/probe"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/remotecmd"
	"github.com/fleetcheck/fleetcheck/go/viperutil"
)

// Config encapsulates all fleetcheck configuration.
type Config struct {
	awsRegion          viperutil.Value[string]
	awsProfile         viperutil.Value[string]
	awsEndpoint        viperutil.Value[string]
	awsS3PathStyle     viperutil.Value[bool]
	awsAccessKeyID     viperutil.Value[string]
	awsSecretAccessKey viperutil.Value[string]
	awsSessionToken    viperutil.Value[string]

	sectionsSkip       viperutil.Value[[]string]
	sectionParallelism viperutil.Value[int]
	environmentsSkip   viperutil.Value[[]string]
	databaseRoles      viperutil.Value[[]RoleSettings]
	cpuWindow          viperutil.Value[time.Duration]
	cpuGranularity     viperutil.Value[time.Duration]
	cpuStatistic       viperutil.Value[string]
	pollMaxAttempts    viperutil.Value[int]
	pollInterval       viperutil.Value[time.Duration]
	pollInitialDelay   viperutil.Value[time.Duration]
	externalAPIs       viperutil.Value[[]EndpointSettings]
	brokerURL          viperutil.Value[string]
	brokerCluster      viperutil.Value[string]
	brokerNameColumn   viperutil.Value[string]
	brokerMetrics      viperutil.Value[[]BrokerMetricSettings]
	reportSubject      viperutil.Value[string]
	reportExcludeTypes viperutil.Value[[]string]
	deliveryStdout     viperutil.Value[bool]
	deliveryAttempts   viperutil.Value[int]
	deliveryBaseDelay  viperutil.Value[time.Duration]
	deliveryMaxDelay   viperutil.Value[time.Duration]
	deliveryTimeout    viperutil.Value[time.Duration]
	smtpHost           viperutil.Value[string]
	smtpPort           viperutil.Value[int]
	smtpSSL            viperutil.Value[bool]
	smtpUsername       viperutil.Value[string]
	smtpPassword       viperutil.Value[string]
	smtpFrom           viperutil.Value[string]
	smtpTo             viperutil.Value[[]string]
	smtpTimeout        viperutil.Value[time.Duration]
	s3Bucket           viperutil.Value[string]
	s3Prefix           viperutil.Value[string]
	runInterval        viperutil.Value[time.Duration]
	runWatchConfig     viperutil.Value[bool]
	runTimeout         viperutil.Value[time.Duration]
}

// NewConfig creates a new Config with all viperutil values configured.
func NewConfig(reg *viperutil.Registry) *Config {
	return &Config{
		awsRegion: viperutil.Configure(reg, "aws.region", viperutil.Options[string]{
			FlagName: "aws-region",
			EnvVars:  []string{"FLEETCHECK_AWS_REGION", "AWS_REGION"},
		}),
		awsProfile: viperutil.Configure(reg, "aws.profile", viperutil.Options[string]{
			FlagName: "aws-profile",
			EnvVars:  []string{"FLEETCHECK_AWS_PROFILE"},
		}),
		awsEndpoint: viperutil.Configure(reg, "aws.endpoint", viperutil.Options[string]{
			FlagName: "aws-endpoint",
			EnvVars:  []string{"FLEETCHECK_AWS_ENDPOINT"},
		}),
		awsS3PathStyle: viperutil.Configure(reg, "aws.s3-path-style", viperutil.Options[bool]{
			FlagName: "aws-s3-path-style",
			EnvVars:  []string{"FLEETCHECK_AWS_S3_PATH_STYLE"},
		}),
		awsAccessKeyID: viperutil.Configure(reg, "aws.access-key-id", viperutil.Options[string]{
			EnvVars: []string{"FLEETCHECK_AWS_ACCESS_KEY_ID"},
		}),
		awsSecretAccessKey: viperutil.Configure(reg, "aws.secret-access-key", viperutil.Options[string]{
			EnvVars: []string{"FLEETCHECK_AWS_SECRET_ACCESS_KEY"},
		}),
		awsSessionToken: viperutil.Configure(reg, "aws.session-token", viperutil.Options[string]{
			EnvVars: []string{"FLEETCHECK_AWS_SESSION_TOKEN"},
		}),

		sectionsSkip: viperutil.Configure(reg, "sections.skip", viperutil.Options[[]string]{
			FlagName: "skip-sections",
			Dynamic:  true,
			EnvVars:  []string{"FLEETCHECK_SKIP_SECTIONS"},
		}),
		sectionParallelism: viperutil.Configure(reg, "section-parallelism", viperutil.Options[int]{
			Default:  1,
			FlagName: "section-parallelism",
			EnvVars:  []string{"FLEETCHECK_SECTION_PARALLELISM"},
		}),
		environmentsSkip: viperutil.Configure(reg, "environments.skip", viperutil.Options[[]string]{
			FlagName: "skip-environments",
			Dynamic:  true,
			EnvVars:  []string{"FLEETCHECK_SKIP_ENVIRONMENTS"},
		}),
		databaseRoles: viperutil.Configure(reg, "database.roles", viperutil.Options[[]RoleSettings]{
			Default: DefaultRoles,
			Dynamic: true,
		}),
		cpuWindow: viperutil.Configure(reg, "cpu.window", viperutil.Options[time.Duration]{
			Default:  probe.DefaultWindow,
			FlagName: "cpu-window",
			EnvVars:  []string{"FLEETCHECK_CPU_WINDOW"},
		}),
		cpuGranularity: viperutil.Configure(reg, "cpu.granularity", viperutil.Options[time.Duration]{
			Default:  probe.DefaultPeriod,
			FlagName: "cpu-granularity",
			EnvVars:  []string{"FLEETCHECK_CPU_GRANULARITY"},
		}),
		cpuStatistic: viperutil.Configure(reg, "cpu.statistic", viperutil.Options[string]{
			Default:  probe.DefaultStatistic,
			FlagName: "cpu-statistic",
			EnvVars:  []string{"FLEETCHECK_CPU_STATISTIC"},
		}),
		pollMaxAttempts: viperutil.Configure(reg, "poll.max-attempts", viperutil.Options[int]{
			Default:  remotecmd.DefaultPollSettings.MaxAttempts,
			FlagName: "poll-max-attempts",
			EnvVars:  []string{"FLEETCHECK_POLL_MAX_ATTEMPTS"},
		}),
		pollInterval: viperutil.Configure(reg, "poll.interval", viperutil.Options[time.Duration]{
			Default:  remotecmd.DefaultPollSettings.PollInterval,
			FlagName: "poll-interval",
			EnvVars:  []string{"FLEETCHECK_POLL_INTERVAL"},
		}),
		pollInitialDelay: viperutil.Configure(reg, "poll.initial-delay", viperutil.Options[time.Duration]{
			Default:  remotecmd.DefaultPollSettings.InitialDelay,
			FlagName: "poll-initial-delay",
			EnvVars:  []string{"FLEETCHECK_POLL_INITIAL_DELAY"},
		}),
		externalAPIs: viperutil.Configure(reg, "external-apis", viperutil.Options[[]EndpointSettings]{
			Dynamic: true,
		}),
		brokerURL: viperutil.Configure(reg, "broker.url", viperutil.Options[string]{
			FlagName: "broker-url",
			EnvVars:  []string{"FLEETCHECK_BROKER_URL"},
		}),
		brokerCluster: viperutil.Configure(reg, "broker.cluster", viperutil.Options[string]{
			FlagName: "broker-cluster",
			EnvVars:  []string{"FLEETCHECK_BROKER_CLUSTER"},
		}),
		brokerNameColumn: viperutil.Configure(reg, "broker.name-column", viperutil.Options[string]{
			Default: "Name",
		}),
		brokerMetrics: viperutil.Configure(reg, "broker.metrics", viperutil.Options[[]BrokerMetricSettings]{
			Default: DefaultBrokerMetrics,
			Dynamic: true,
		}),
		reportSubject: viperutil.Configure(reg, "report.subject", viperutil.Options[string]{
			Default:  orchestrator.DefaultSubject,
			FlagName: "report-subject",
			EnvVars:  []string{"FLEETCHECK_REPORT_SUBJECT"},
		}),
		reportExcludeTypes: viperutil.Configure(reg, "report.exclude-types", viperutil.Options[[]string]{
			Default: []string{monitor.BrokerIssueType},
			Dynamic: true,
		}),
		deliveryStdout: viperutil.Configure(reg, "delivery.stdout", viperutil.Options[bool]{
			Default:  true,
			FlagName: "stdout",
			EnvVars:  []string{"FLEETCHECK_DELIVERY_STDOUT"},
		}),
		deliveryAttempts: viperutil.Configure(reg, "delivery.attempts", viperutil.Options[int]{
			Default:  3,
			FlagName: "delivery-attempts",
			EnvVars:  []string{"FLEETCHECK_DELIVERY_ATTEMPTS"},
		}),
		deliveryBaseDelay: viperutil.Configure(reg, "delivery.base-delay", viperutil.Options[time.Duration]{
			Default: delivery.DefaultBaseDelay,
		}),
		deliveryMaxDelay: viperutil.Configure(reg, "delivery.max-delay", viperutil.Options[time.Duration]{
			Default: delivery.DefaultMaxDelay,
		}),
		deliveryTimeout: viperutil.Configure(reg, "delivery.timeout", viperutil.Options[time.Duration]{
			Default: orchestrator.DefaultDeliveryTimeout,
			EnvVars: []string{"FLEETCHECK_DELIVERY_TIMEOUT"},
		}),
		smtpHost: viperutil.Configure(reg, "smtp.host", viperutil.Options[string]{
			FlagName: "smtp-host",
			EnvVars:  []string{"FLEETCHECK_SMTP_HOST"},
		}),
		smtpPort: viperutil.Configure(reg, "smtp.port", viperutil.Options[int]{
			Default:  465,
			FlagName: "smtp-port",
			EnvVars:  []string{"FLEETCHECK_SMTP_PORT"},
		}),
		smtpSSL: viperutil.Configure(reg, "smtp.ssl", viperutil.Options[bool]{
			Default:  true,
			FlagName: "smtp-ssl",
			EnvVars:  []string{"FLEETCHECK_SMTP_SSL"},
		}),
		smtpUsername: viperutil.Configure(reg, "smtp.username", viperutil.Options[string]{
			FlagName: "smtp-username",
			EnvVars:  []string{"FLEETCHECK_SMTP_USERNAME"},
		}),
		smtpPassword: viperutil.Configure(reg, "smtp.password", viperutil.Options[string]{
			EnvVars: []string{"FLEETCHECK_SMTP_PASSWORD"},
		}),
		smtpFrom: viperutil.Configure(reg, "smtp.from", viperutil.Options[string]{
			FlagName: "smtp-from",
			EnvVars:  []string{"FLEETCHECK_SMTP_FROM"},
		}),
		smtpTo: viperutil.Configure(reg, "smtp.to", viperutil.Options[[]string]{
			FlagName: "smtp-to",
			EnvVars:  []string{"FLEETCHECK_SMTP_TO"},
		}),
		smtpTimeout: viperutil.Configure(reg, "smtp.timeout", viperutil.Options[time.Duration]{
			Default: 30 * time.Second,
		}),
		s3Bucket: viperutil.Configure(reg, "s3.bucket", viperutil.Options[string]{
			FlagName: "s3-bucket",
			EnvVars:  []string{"FLEETCHECK_S3_BUCKET"},
		}),
		s3Prefix: viperutil.Configure(reg, "s3.prefix", viperutil.Options[string]{
			Default:  "reports",
			FlagName: "s3-prefix",
			EnvVars:  []string{"FLEETCHECK_S3_PREFIX"},
		}),
		runInterval: viperutil.Configure(reg, "run.interval", viperutil.Options[time.Duration]{
			FlagName: "interval",
			EnvVars:  []string{"FLEETCHECK_RUN_INTERVAL"},
		}),
		runWatchConfig: viperutil.Configure(reg, "run.watch-config", viperutil.Options[bool]{
			FlagName: "watch-config",
		}),
		runTimeout: viperutil.Configure(reg, "run.timeout", viperutil.Options[time.Duration]{
			Default:  15 * time.Minute,
			FlagName: "run-timeout",
			EnvVars:  []string{"FLEETCHECK_RUN_TIMEOUT"},
		}),
	}
}

// Getter methods

func (c *Config) GetAWSRegion() string          { return c.awsRegion.Get() }
func (c *Config) GetAWSProfile() string         { return c.awsProfile.Get() }
func (c *Config) GetAWSEndpoint() string        { return c.awsEndpoint.Get() }
func (c *Config) GetAWSS3PathStyle() bool       { return c.awsS3PathStyle.Get() }
func (c *Config) GetSkipSections() []string     { return c.sectionsSkip.Get() }
func (c *Config) GetSectionParallelism() int    { return c.sectionParallelism.Get() }
func (c *Config) GetSkipEnvironments() []string { return c.environmentsSkip.Get() }

func (c *Config) GetDatabaseRoles() []RoleSettings {
	return c.databaseRoles.Get()
}

func (c *Config) GetCPUWindow() time.Duration      { return c.cpuWindow.Get() }
func (c *Config) GetCPUGranularity() time.Duration { return c.cpuGranularity.Get() }
func (c *Config) GetCPUStatistic() string          { return c.cpuStatistic.Get() }
func (c *Config) GetPollMaxAttempts() int          { return c.pollMaxAttempts.Get() }
func (c *Config) GetPollInterval() time.Duration   { return c.pollInterval.Get() }

func (c *Config) GetPollInitialDelay() time.Duration {
	return c.pollInitialDelay.Get()
}

func (c *Config) GetExternalAPIs() []EndpointSettings {
	return c.externalAPIs.Get()
}

func (c *Config) GetBrokerURL() string        { return c.brokerURL.Get() }
func (c *Config) GetBrokerCluster() string    { return c.brokerCluster.Get() }
func (c *Config) GetBrokerNameColumn() string { return c.brokerNameColumn.Get() }

func (c *Config) GetBrokerMetrics() []BrokerMetricSettings {
	return c.brokerMetrics.Get()
}

func (c *Config) GetReportSubject() string            { return c.reportSubject.Get() }
func (c *Config) GetReportExcludeTypes() []string     { return c.reportExcludeTypes.Get() }
func (c *Config) GetDeliveryStdout() bool             { return c.deliveryStdout.Get() }
func (c *Config) GetDeliveryAttempts() int            { return c.deliveryAttempts.Get() }
func (c *Config) GetDeliveryBaseDelay() time.Duration { return c.deliveryBaseDelay.Get() }
func (c *Config) GetDeliveryMaxDelay() time.Duration  { return c.deliveryMaxDelay.Get() }
func (c *Config) GetDeliveryTimeout() time.Duration   { return c.deliveryTimeout.Get() }
func (c *Config) GetSMTPHost() string                 { return c.smtpHost.Get() }
func (c *Config) GetS3Bucket() string                 { return c.s3Bucket.Get() }
func (c *Config) GetS3Prefix() string                 { return c.s3Prefix.Get() }
func (c *Config) GetRunInterval() time.Duration       { return c.runInterval.Get() }
func (c *Config) GetRunWatchConfig() bool             { return c.runWatchConfig.Get() }
func (c *Config) GetRunTimeout() time.Duration        { return c.runTimeout.Get() }

// AWSSettings returns what awsbackend.LoadConfig needs.
func (c *Config) AWSSettings() awsbackend.Settings {
	return awsbackend.Settings{
		Region:          c.awsRegion.Get(),
		Profile:         c.awsProfile.Get(),
		Endpoint:        c.awsEndpoint.Get(),
		AccessKeyID:     c.awsAccessKeyID.Get(),
		SecretAccessKey: c.awsSecretAccessKey.Get(),
		SessionToken:    c.awsSessionToken.Get(),
	}
}

// SMTP returns the mail settings. Mail delivery is enabled when a host is set.
func (c *Config) SMTP() delivery.SMTPConfig {
	return delivery.SMTPConfig{
		Host:     c.smtpHost.Get(),
		Port:     c.smtpPort.Get(),
		Username: c.smtpUsername.Get(),
		Password: c.smtpPassword.Get(),
		From:     c.smtpFrom.Get(),
		To:       c.smtpTo.Get(),
		SSL:      c.smtpSSL.Get(),
		Timeout:  c.smtpTimeout.Get(),
	}
}

// Defaults for flags (used in RegisterFlags)

func (c *Config) DefaultSectionParallelism() int         { return c.sectionParallelism.Default() }
func (c *Config) DefaultCPUWindow() time.Duration        { return c.cpuWindow.Default() }
func (c *Config) DefaultCPUGranularity() time.Duration   { return c.cpuGranularity.Default() }
func (c *Config) DefaultCPUStatistic() string            { return c.cpuStatistic.Default() }
func (c *Config) DefaultPollMaxAttempts() int            { return c.pollMaxAttempts.Default() }
func (c *Config) DefaultPollInterval() time.Duration     { return c.pollInterval.Default() }
func (c *Config) DefaultPollInitialDelay() time.Duration { return c.pollInitialDelay.Default() }
func (c *Config) DefaultReportSubject() string           { return c.reportSubject.Default() }
func (c *Config) DefaultDeliveryAttempts() int           { return c.deliveryAttempts.Default() }
func (c *Config) DefaultSMTPPort() int                   { return c.smtpPort.Default() }
func (c *Config) DefaultS3Prefix() string                { return c.s3Prefix.Default() }
func (c *Config) DefaultRunTimeout() time.Duration       { return c.runTimeout.Default() }

// RegisterFlags registers the config flags with pflag.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.String("aws-region", "", "AWS region; the SDK default chain is used when empty")
	fs.String("aws-profile", "", "shared config profile")
	fs.String("aws-endpoint", "", "override the AWS endpoint, e.g. for a local emulator")
	fs.Bool("aws-s3-path-style", false, "use path-style S3 addressing")

	fs.StringSlice("skip-sections", nil, "sections to skip (environments, database-hosts, external-api, broker-nodes)")
	fs.Int("section-parallelism", c.DefaultSectionParallelism(), "resources checked concurrently within a section")
	fs.StringSlice("skip-environments", nil, "environment names that are not evaluated")
	fs.Duration("cpu-window", c.DefaultCPUWindow(), "lookback window for CPU utilisation")
	fs.Duration("cpu-granularity", c.DefaultCPUGranularity(), "metric period for CPU utilisation")
	fs.String("cpu-statistic", c.DefaultCPUStatistic(), "CPU statistic (Maximum or Average)")
	fs.Int("poll-max-attempts", c.DefaultPollMaxAttempts(), "status reads per remote command")
	fs.Duration("poll-interval", c.DefaultPollInterval(), "delay between remote command status reads")
	fs.Duration("poll-initial-delay", c.DefaultPollInitialDelay(), "delay before the first status read")
	fs.String("broker-url", "", "URL of the broker node overview page; the broker section is skipped when empty")
	fs.String("broker-cluster", "", "broker cluster name used in the report")

	fs.String("report-subject", c.DefaultReportSubject(), "subject of the delivered report")
	fs.Bool("stdout", true, "write the report to standard output")
	fs.Int("delivery-attempts", c.DefaultDeliveryAttempts(), "attempts per delivery sink")
	fs.String("smtp-host", "", "SMTP server; mail delivery is disabled when empty")
	fs.Int("smtp-port", c.DefaultSMTPPort(), "SMTP port")
	fs.Bool("smtp-ssl", true, "use implicit TLS; STARTTLS is required otherwise")
	fs.String("smtp-username", "", "SMTP user; the password is read from FLEETCHECK_SMTP_PASSWORD")
	fs.String("smtp-from", "", "sender address")
	fs.StringSlice("smtp-to", nil, "recipient addresses")
	fs.String("s3-bucket", "", "archive every report to this bucket")
	fs.String("s3-prefix", c.DefaultS3Prefix(), "key prefix for archived reports")

	fs.Duration("interval", 0, "run repeatedly at this interval; a single run when zero")
	fs.Bool("watch-config", false, "reload dynamic settings when the config file changes")
	fs.Duration("run-timeout", c.DefaultRunTimeout(), "upper bound on one run")

	viperutil.BindFlags(fs,
		c.awsRegion,
		c.awsProfile,
		c.awsEndpoint,
		c.awsS3PathStyle,
		c.sectionsSkip,
		c.sectionParallelism,
		c.environmentsSkip,
		c.cpuWindow,
		c.cpuGranularity,
		c.cpuStatistic,
		c.pollMaxAttempts,
		c.pollInterval,
		c.pollInitialDelay,
		c.brokerURL,
		c.brokerCluster,
		c.reportSubject,
		c.deliveryStdout,
		c.deliveryAttempts,
		c.smtpHost,
		c.smtpPort,
		c.smtpSSL,
		c.smtpUsername,
		c.smtpFrom,
		c.smtpTo,
		c.s3Bucket,
		c.s3Prefix,
		c.runInterval,
		c.runWatchConfig,
		c.runTimeout)
}

// Test helper functions

// NewTestConfig creates a Config for testing with optional custom values.
func NewTestConfig(opts ...func(*Config)) *Config {
	reg := viperutil.NewRegistry()
	cfg := NewConfig(reg)
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithDatabaseRoles sets the database roles for testing.
func WithDatabaseRoles(roles ...RoleSettings) func(*Config) {
	return func(cfg *Config) {
		cfg.databaseRoles.Set(roles)
	}
}

// WithExternalAPIs sets the external APIs for testing.
func WithExternalAPIs(apis ...EndpointSettings) func(*Config) {
	return func(cfg *Config) {
		cfg.externalAPIs.Set(apis)
	}
}

// WithBroker sets the broker page and cluster for testing.
func WithBroker(url, cluster string) func(*Config) {
	return func(cfg *Config) {
		cfg.brokerURL.Set(url)
		cfg.brokerCluster.Set(cluster)
	}
}

// WithSkipSections sets the skipped sections for testing.
func WithSkipSections(names ...string) func(*Config) {
	return func(cfg *Config) {
		cfg.sectionsSkip.Set(names)
	}
}

// WithPollSettings sets the remote command budget for testing.
func WithPollSettings(s remotecmd.PollSettings) func(*Config) {
	return func(cfg *Config) {
		cfg.pollMaxAttempts.Set(s.MaxAttempts)
		cfg.pollInterval.Set(s.PollInterval)
		cfg.pollInitialDelay.Set(s.InitialDelay)
	}
}

// WithSMTP sets the mail settings for testing.
func WithSMTP(s delivery.SMTPConfig) func(*Config) {
	return func(cfg *Config) {
		cfg.smtpHost.Set(s.Host)
		cfg.smtpPort.Set(s.Port)
		cfg.smtpUsername.Set(s.Username)
		cfg.smtpPassword.Set(s.Password)
		cfg.smtpFrom.Set(s.From)
		cfg.smtpTo.Set(s.To)
		cfg.smtpSSL.Set(s.SSL)
	}
}

// WithS3Bucket sets the archive bucket for testing.
func WithS3Bucket(bucket string) func(*Config) {
	return func(cfg *Config) {
		cfg.s3Bucket.Set(bucket)
	}
}

// WithDeliveryDelays sets the delivery backoff bounds for testing.
func WithDeliveryDelays(base, maxDelay time.Duration) func(*Config) {
	return func(cfg *Config) {
		cfg.deliveryBaseDelay.Set(base)
		cfg.deliveryMaxDelay.Set(maxDelay)
	}
}

// WithDeliveryStdout toggles stdout delivery for testing.
func WithDeliveryStdout(on bool) func(*Config) {
	return func(cfg *Config) {
		cfg.deliveryStdout.Set(on)
	}
}
