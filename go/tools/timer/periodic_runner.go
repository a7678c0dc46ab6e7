// Copyright 2019 The Vitess Authors.
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
//
// Modifications Copyright 2025 Supabase, Inc.

// Package timer provides PeriodicRunner for running callbacks at regular intervals.
package timer

import (
	"context"
	"sync"
	"time"
)

// PeriodicRunner runs a callback at regular intervals with lifecycle management.
//
// Key behaviors:
//   - Callback receives a context derived from the parent context
//   - Stop() cancels the context and waits for in-flight callbacks
//   - Next callback scheduled only after current completes (backpressure)
//   - Optionally fires immediately on Start instead of after one interval
//
// Example usage:
//
//	runner := timer.NewPeriodicRunner(ctx, time.Hour, timer.WithImmediateStart())
//	runner.Start(func(ctx context.Context) {
//	    orch.Run(ctx)
//	}, nil)
//	<-ctx.Done()
//	runner.Stop() // waits for an in-flight run
type PeriodicRunner struct {
	parentCtx context.Context
	interval  time.Duration
	immediate bool

	mu       sync.Mutex
	running  bool
	runs     int
	ctx      context.Context // child context, created on Start, cancelled on Stop
	cancel   context.CancelFunc
	timer    *time.Timer
	wg       sync.WaitGroup
	callback func(ctx context.Context)
}

// Option configures a PeriodicRunner.
type Option func(*PeriodicRunner)

// WithImmediateStart fires the first callback as soon as Start is called.
func WithImmediateStart() Option {
	return func(r *PeriodicRunner) { r.immediate = true }
}

// NewPeriodicRunner creates a PeriodicRunner with the given parent context and interval.
// The parent context is used to derive child contexts on each Start() call.
func NewPeriodicRunner(ctx context.Context, interval time.Duration, opts ...Option) *PeriodicRunner {
	r := &PeriodicRunner{
		parentCtx: ctx,
		interval:  interval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins running the callback at regular intervals.
// If onStart is non-nil, it is called exactly once when actually starting,
// before any callback can execute.
// Returns true if the runner was started, false if it was already running.
func (r *PeriodicRunner) Start(callback func(ctx context.Context), onStart func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return false
	}

	r.running = true
	r.callback = callback
	r.ctx, r.cancel = context.WithCancel(r.parentCtx)

	if onStart != nil {
		onStart()
	}

	if r.immediate {
		r.timer = time.AfterFunc(0, r.execute)
	} else {
		r.scheduleNext()
	}
	return true
}

// Stop cancels the context and waits for any in-flight callback to complete.
// Stop is idempotent.
func (r *PeriodicRunner) Stop() {
	r.mu.Lock()

	if !r.running {
		r.mu.Unlock()
		return
	}

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.ctx = nil
	r.cancel = nil
	r.callback = nil

	r.mu.Unlock()

	r.wg.Wait()
}

// Running returns true if the runner is currently running.
func (r *PeriodicRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Runs returns how many callbacks have completed since the runner was created.
func (r *PeriodicRunner) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// scheduleNext must be called while holding r.mu.
func (r *PeriodicRunner) scheduleNext() {
	r.timer = time.AfterFunc(r.interval, r.execute)
}

func (r *PeriodicRunner) execute() {
	r.mu.Lock()

	if !r.running || r.ctx == nil {
		r.mu.Unlock()
		return
	}

	r.wg.Add(1)
	defer r.wg.Done()

	callback := r.callback
	ctx := r.ctx

	// Release the lock during the callback so Stop() is not blocked.
	r.mu.Unlock()

	callback(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs++
	if !r.running {
		return
	}
	r.scheduleNext()
}
