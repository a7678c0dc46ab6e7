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

// Package retry provides attempt loops with pluggable delay strategies.
//
// Two shapes are used in fleetcheck:
//
//	// Poll a remote command: fixed interval, bounded attempts, initial settle delay.
//	r := retry.NewConstant(3*time.Second,
//	    retry.WithInitialDelay(2*time.Second),
//	    retry.WithMaxAttempts(10))
//
//	// Retry report delivery: exponential backoff with full jitter.
//	r := retry.New(time.Second, 30*time.Second, retry.WithMaxAttempts(3))
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted is returned by StartAttempt once the configured
// attempt budget has been used up.
var ErrAttemptsExhausted = errors.New("retry: attempts exhausted")

// Retry manages delay state for attempt loops.
// Use the iterator-style StartAttempt method or the Attempts range form.
//
// Example usage:
//
//	r := retry.New(100*time.Millisecond, 30*time.Second)
//	for {
//	    if err := r.StartAttempt(ctx); err != nil {
//	        return err // context done or budget exhausted
//	    }
//	    result, err := makeAPICall()
//	    if err == nil {
//	        return result
//	    }
//	}
type Retry struct {
	cfg     retryConfig
	attempt int
	timer   Timer
}

type retryConfig struct {
	// initialDelay is waited before the first attempt. Zero means the first
	// attempt starts immediately.
	initialDelay time.Duration

	// maxAttempts bounds the number of attempts. Zero means unbounded.
	maxAttempts int

	// backoff computes the delay between consecutive attempts.
	backoff backoff

	timer Timer
}

// Option is a functional option for configuring a Retry.
type Option func(*retryConfig)

// WithInitialDelay waits d before the first attempt.
func WithInitialDelay(d time.Duration) Option {
	return func(c *retryConfig) { c.initialDelay = d }
}

// WithMaxAttempts bounds the loop to n attempts. After the n-th attempt,
// StartAttempt returns ErrAttemptsExhausted without waiting.
func WithMaxAttempts(n int) Option {
	return func(c *retryConfig) { c.maxAttempts = n }
}

// WithTimer replaces the wall-clock timer, for tests that must not sleep.
func WithTimer(t Timer) Option {
	return func(c *retryConfig) { c.timer = t }
}

// New creates a Retry using exponential backoff with full jitter.
// Panics if the parameters are invalid (represents a coding error).
func New(baseDelay, maxDelay time.Duration, opts ...Option) *Retry {
	if baseDelay <= 0 {
		panic("retry: BaseDelay must be positive")
	}
	if maxDelay <= 0 {
		panic("retry: MaxDelay must be positive")
	}
	if baseDelay > maxDelay {
		panic("retry: BaseDelay cannot be greater than MaxDelay")
	}
	return newRetry(newExponentialFullJitterBackoff(baseDelay, maxDelay), opts...)
}

// NewConstant creates a Retry that waits the same interval between attempts.
// Panics if interval is negative.
func NewConstant(interval time.Duration, opts ...Option) *Retry {
	if interval < 0 {
		panic("retry: interval cannot be negative")
	}
	return newRetry(constantBackoff{interval: interval}, opts...)
}

func newRetry(b backoff, opts ...Option) *Retry {
	cfg := retryConfig{backoff: b}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxAttempts < 0 {
		panic("retry: MaxAttempts cannot be negative")
	}
	if cfg.timer == nil {
		cfg.timer = realTimer{}
	}
	return &Retry{cfg: cfg, timer: cfg.timer}
}

// StartAttempt waits until the next attempt may run.
//
// The first call waits the initial delay (if any); later calls wait for the
// backoff delay. It returns ctx.Err() if the context ends first, and
// ErrAttemptsExhausted once the attempt budget has been spent.
func (r *Retry) StartAttempt(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.cfg.maxAttempts > 0 && r.attempt >= r.cfg.maxAttempts {
		return ErrAttemptsExhausted
	}

	var delay time.Duration
	if r.attempt == 0 {
		delay = r.cfg.initialDelay
	} else {
		delay = r.cfg.backoff.nextDelay()
	}

	if delay > 0 {
		select {
		case <-r.timer.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.attempt++
	return nil
}

// Attempt returns the current attempt number (1-indexed after first StartAttempt call).
// Returns 0 before the first call to StartAttempt.
func (r *Retry) Attempt() int {
	return r.attempt
}

// Reset resets the backoff state to the initial delay. The attempt counter
// is not reset.
func (r *Retry) Reset() {
	r.cfg.backoff.reset()
}

// Attempts returns an iterator for range-based loops.
// Yields (attempt number, error) pairs where error is nil for each attempt,
// or non-nil on the final iteration (context done or budget exhausted).
//
//	for attempt, err := range r.Attempts(ctx) {
//	    if err != nil {
//	        return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
//	    }
//	    if done := poll(); done {
//	        return nil
//	    }
//	}
func (r *Retry) Attempts(ctx context.Context) func(yield func(int, error) bool) {
	return func(yield func(int, error) bool) {
		for {
			err := r.StartAttempt(ctx)
			if !yield(r.attempt, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}
