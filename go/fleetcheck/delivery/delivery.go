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

// Package delivery hands a finished report to its readers: stdout, e-mail,
// and an object-store archive.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fleetcheck/fleetcheck/go/tools/retry"
)

// Message is one rendered report.
type Message struct {
	RunID       string
	Subject     string
	Body        string
	GeneratedAt time.Time
}

// Deliverer sends a report somewhere.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// Writer prints the report to an io.Writer, usually stdout.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Deliver implements Deliverer.
func (d *Writer) Deliver(_ context.Context, msg Message) error {
	_, err := fmt.Fprintf(d.w, "%s\n\n%s", msg.Subject, msg.Body)
	return err
}

// Multi delivers to every sink, even when an earlier one fails.
type Multi []Deliverer

// Deliver implements Deliverer. The returned error joins every sink error.
func (m Multi) Deliver(ctx context.Context, msg Message) error {
	var errs []error
	for _, d := range m {
		if err := d.Deliver(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Backoff bounds used by NewRetrying when the given ones are unusable.
const (
	DefaultBaseDelay = 2 * time.Second
	DefaultMaxDelay  = 30 * time.Second
)

// Retrying retries a flaky sink with exponential backoff.
type Retrying struct {
	inner    Deliverer
	attempts int
	base     time.Duration
	maxDelay time.Duration
	logger   *slog.Logger
	timer    retry.Timer
}

// NewRetrying wraps inner so that it is tried up to attempts times. A
// non-positive base falls back to DefaultBaseDelay and maxDelay is raised to
// at least base.
func NewRetrying(inner Deliverer, attempts int, base, maxDelay time.Duration, logger *slog.Logger) *Retrying {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if maxDelay < base {
		maxDelay = base
	}
	return &Retrying{inner: inner, attempts: attempts, base: base, maxDelay: maxDelay, logger: logger}
}

// Deliver implements Deliverer.
func (d *Retrying) Deliver(ctx context.Context, msg Message) error {
	opts := []retry.Option{retry.WithMaxAttempts(max(1, d.attempts))}
	if d.timer != nil {
		opts = append(opts, retry.WithTimer(d.timer))
	}
	r := retry.New(d.base, d.maxDelay, opts...)

	var lastErr error
	for attempt, err := range r.Attempts(ctx) {
		if err != nil {
			if lastErr == nil {
				return err
			}
			return fmt.Errorf("delivery failed after %d attempts: %w", attempt, lastErr)
		}
		if lastErr = d.inner.Deliver(ctx, msg); lastErr == nil {
			return nil
		}
		d.logger.WarnContext(ctx, "report delivery failed", "attempt", attempt, "run_id", msg.RunID, "error", lastErr)
	}
	return lastErr
}
