// Copyright 2025 Supabase, Inc.
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

// Package servenv sets up the process environment shared by fleetcheck
// commands: logging and telemetry.
package servenv

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"github.com/fleetcheck/fleetcheck/go/tools/telemetry"
	"github.com/fleetcheck/fleetcheck/go/viperutil"
)

type Logger struct {
	logLevel  viperutil.Value[string]
	logFormat viperutil.Value[string]
	logOutput viperutil.Value[string]

	telemetry *telemetry.Telemetry

	loggerOnce sync.Once
	logger     *slog.Logger
	closer     io.Closer
	loggerMu   sync.Mutex

	// stdout and stderr are replaced in tests.
	stdout io.Writer
	stderr io.Writer

	loggingSetupHooks []func(*slog.Logger)
	loggingHooksMu    sync.Mutex
}

// NewLogger creates the logging settings. When tel is non-nil the handler is
// wrapped by tel.WrapSlogHandler, so telemetry should be initialized before
// SetupLogging.
func NewLogger(reg *viperutil.Registry, tel *telemetry.Telemetry) *Logger {
	return &Logger{
		telemetry: tel,
		logLevel: viperutil.Configure(reg, "log-level", viperutil.Options[string]{
			Default:  "info",
			FlagName: "log-level",
			EnvVars:  []string{"FLEETCHECK_LOG_LEVEL"},
		}),
		logFormat: viperutil.Configure(reg, "log-format", viperutil.Options[string]{
			Default:  "text",
			FlagName: "log-format",
			EnvVars:  []string{"FLEETCHECK_LOG_FORMAT"},
		}),
		// stdout carries the report, so logs default to stderr.
		logOutput: viperutil.Configure(reg, "log-output", viperutil.Options[string]{
			Default:  "stderr",
			FlagName: "log-output",
			EnvVars:  []string{"FLEETCHECK_LOG_OUTPUT"},
		}),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// RegisterFlags registers logging-related command line flags.
// This must be called before ParseFlags if using the logging system.
func (lg *Logger) RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-level", lg.logLevel.Default(), "Log level (debug, info, warn, error)")
	fs.String("log-format", lg.logFormat.Default(), "Log format (json, text)")
	fs.String("log-output", lg.logOutput.Default(), "Log output (stdout, stderr, or file path)")
	viperutil.BindFlags(fs, lg.logLevel, lg.logFormat, lg.logOutput)
}

// OnLoggingSetup registers a callback function to be called after the logger is created.
func (lg *Logger) OnLoggingSetup(f func(*slog.Logger)) {
	lg.loggingHooksMu.Lock()
	defer lg.loggingHooksMu.Unlock()
	lg.loggingSetupHooks = append(lg.loggingSetupHooks, f)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// SetupLogging builds the logger from the configured flags and installs it
// as the slog default. Only the first call has an effect.
func (lg *Logger) SetupLogging() error {
	var setupErr error
	lg.loggerOnce.Do(func() {
		levelStr := lg.logLevel.Get()
		level, err := ParseLevel(levelStr)
		if err != nil {
			setupErr = err
			return
		}

		var output io.Writer
		outputStr := lg.logOutput.Get()
		switch strings.ToLower(outputStr) {
		case "stdout":
			output = lg.stdout
		case "", "stderr":
			output = lg.stderr
		default:
			file, err := os.OpenFile(outputStr, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				setupErr = fmt.Errorf("opening log output: %w", err)
				return
			}
			output = file
			lg.closer = file
		}

		opts := &slog.HandlerOptions{Level: level}
		var handler slog.Handler
		formatStr := lg.logFormat.Get()
		switch strings.ToLower(formatStr) {
		case "json":
			handler = slog.NewJSONHandler(output, opts)
		case "", "text":
			handler = slog.NewTextHandler(output, opts)
		default:
			setupErr = fmt.Errorf("unknown log format %q", formatStr)
			return
		}
		if lg.telemetry != nil {
			handler = lg.telemetry.WrapSlogHandler(handler)
		}

		newLogger := slog.New(handler)
		slog.SetDefault(newLogger)

		lg.loggerMu.Lock()
		lg.logger = newLogger
		lg.loggerMu.Unlock()

		lg.fireLoggingSetupHooks(newLogger)

		newLogger.Debug("logging initialized",
			"level", levelStr,
			"format", formatStr,
			"output", outputStr,
		)
	})
	return setupErr
}

// GetLogger returns the configured logger instance, or the slog default
// before SetupLogging.
func (lg *Logger) GetLogger() *slog.Logger {
	lg.loggerMu.Lock()
	defer lg.loggerMu.Unlock()
	if lg.logger == nil {
		return slog.Default()
	}
	return lg.logger
}

// Close releases the log file, if one was opened.
func (lg *Logger) Close() error {
	lg.loggerMu.Lock()
	defer lg.loggerMu.Unlock()
	if lg.closer == nil {
		return nil
	}
	err := lg.closer.Close()
	lg.closer = nil
	return err
}

func (lg *Logger) fireLoggingSetupHooks(l *slog.Logger) {
	lg.loggingHooksMu.Lock()
	hooks := make([]func(*slog.Logger), len(lg.loggingSetupHooks))
	copy(hooks, lg.loggingSetupHooks)
	lg.loggingHooksMu.Unlock()

	for _, hook := range hooks {
		hook(l)
	}
}

func (lg *Logger) GetLogLevel() string  { return lg.logLevel.Get() }
func (lg *Logger) GetLogFormat() string { return lg.logFormat.Get() }
func (lg *Logger) GetLogOutput() string { return lg.logOutput.Get() }
