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

// Package remotecmd runs a shell command on a managed host through the
// command service and waits for its output.
package remotecmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetcheck/fleetcheck/go/fcerrors"
	"github.com/fleetcheck/fleetcheck/go/tools/retry"
)

// InvocationStatus is the state of a dispatched command on one host.
type InvocationStatus string

const (
	StatusPending    InvocationStatus = "Pending"
	StatusInProgress InvocationStatus = "InProgress"
	StatusDelayed    InvocationStatus = "Delayed"
	StatusSuccess    InvocationStatus = "Success"
	StatusFailed     InvocationStatus = "Failed"
	StatusCancelled  InvocationStatus = "Cancelled"
	StatusCancelling InvocationStatus = "Cancelling"
	StatusTimedOut   InvocationStatus = "TimedOut"
)

// InFlight reports whether the command may still produce output.
func (s InvocationStatus) InFlight() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDelayed:
		return true
	}
	return false
}

// Invocation is one observation of a dispatched command.
type Invocation struct {
	Status InvocationStatus
	Stdout string
}

// Backend is the remote command service.
type Backend interface {
	// Dispatch issues command on the host and returns the command id.
	Dispatch(ctx context.Context, resourceID, command string) (string, error)
	// Invocation reads the current state of a dispatched command.
	Invocation(ctx context.Context, commandID, resourceID string) (Invocation, error)
}

// PollSettings bounds how long the poller waits for a command.
type PollSettings struct {
	MaxAttempts  int
	PollInterval time.Duration
	InitialDelay time.Duration
}

// DefaultPollSettings makes 10 polls: 2s before the first, 3s between the
// rest, 29s in the worst case.
var DefaultPollSettings = PollSettings{
	MaxAttempts:  10,
	PollInterval: 3 * time.Second,
	InitialDelay: 2 * time.Second,
}

// Poller dispatches a command and polls it to a terminal state.
type Poller struct {
	backend  Backend
	settings PollSettings
	logger   *slog.Logger
	timer    retry.Timer
}

// Option configures a Poller.
type Option func(*Poller)

// WithTimer replaces the wall-clock timer used between polls.
func WithTimer(t retry.Timer) Option {
	return func(p *Poller) { p.timer = t }
}

// NewPoller creates a Poller.
func NewPoller(backend Backend, settings PollSettings, logger *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		backend:  backend,
		settings: settings,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run dispatches command and returns its standard output once it succeeds.
//
// The returned error carries an fcerrors kind: DispatchFailure when the
// command could not be issued, BackendUnavailable when a status read failed
// or the command ended in a failed state, TimeoutExceeded when every poll saw
// an in-flight state. At most MaxAttempts status reads are made, and no wait
// follows the last one, so the worst case is InitialDelay plus
// (MaxAttempts-1) x PollInterval (2s + 9 x 3s with the defaults).
func (p *Poller) Run(ctx context.Context, resourceID, command string) (string, error) {
	commandID, err := p.backend.Dispatch(ctx, resourceID, command)
	if err != nil {
		return "", fcerrors.Wrap(fcerrors.FC1003(resourceID), err)
	}

	opts := []retry.Option{
		retry.WithInitialDelay(p.settings.InitialDelay),
		retry.WithMaxAttempts(p.settings.MaxAttempts),
	}
	if p.timer != nil {
		opts = append(opts, retry.WithTimer(p.timer))
	}
	r := retry.NewConstant(p.settings.PollInterval, opts...)

	var last InvocationStatus
	for attempt, err := range r.Attempts(ctx) {
		if err != nil {
			if errors.Is(err, retry.ErrAttemptsExhausted) {
				return "", fcerrors.FC1004(fmt.Sprintf("%s on %s still %s after %d polls", commandID, resourceID, last, attempt))
			}
			return "", fcerrors.Wrap(fcerrors.FC1004(fmt.Sprintf("%s on %s", commandID, resourceID)), err)
		}

		inv, err := p.backend.Invocation(ctx, commandID, resourceID)
		if err != nil {
			return "", fcerrors.Wrap(fcerrors.FC1001("command invocation "+commandID), err)
		}
		last = inv.Status

		switch {
		case inv.Status == StatusSuccess:
			p.logger.DebugContext(ctx, "remote command succeeded",
				"resource_id", resourceID, "command_id", commandID, "polls", attempt)
			return inv.Stdout, nil
		case inv.Status.InFlight():
			continue
		default:
			return "", fcerrors.FC1001(fmt.Sprintf("command %s on %s ended %s", commandID, resourceID, inv.Status))
		}
	}
	// Attempts only ends by yielding an error, handled above.
	return "", fcerrors.FC1004(commandID)
}
