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

package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPeriodicRunnerStartStop(t *testing.T) {
	called := make(chan struct{}, 10)

	runner := NewPeriodicRunner(t.Context(), 1*time.Millisecond)
	assert.False(t, runner.Running())

	runner.Start(func(_ context.Context) {
		select {
		case called <- struct{}{}:
		default:
		}
	}, nil)
	assert.True(t, runner.Running())

	<-called

	runner.Stop()
	assert.False(t, runner.Running())
	assert.GreaterOrEqual(t, runner.Runs(), 1)
}

func TestPeriodicRunnerImmediateStart(t *testing.T) {
	called := make(chan struct{}, 1)

	// An hour-long interval: only the immediate run can fire within the test.
	runner := NewPeriodicRunner(t.Context(), time.Hour, WithImmediateStart())
	runner.Start(func(_ context.Context) {
		select {
		case called <- struct{}{}:
		default:
		}
	}, nil)

	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatal("immediate run did not fire")
	}
	runner.Stop()
	assert.Equal(t, 1, runner.Runs())
}

func TestPeriodicRunnerWithoutImmediateStartWaitsInterval(t *testing.T) {
	var calls atomic.Int32
	runner := NewPeriodicRunner(t.Context(), time.Hour)
	runner.Start(func(_ context.Context) { calls.Add(1) }, nil)

	time.Sleep(20 * time.Millisecond)
	runner.Stop()
	assert.Equal(t, int32(0), calls.Load())
}

func TestPeriodicRunnerStopWaitsForInFlight(t *testing.T) {
	callbackStarted := make(chan struct{})
	callbackCanProceed := make(chan struct{})
	var once atomic.Bool

	runner := NewPeriodicRunner(t.Context(), 1*time.Millisecond)
	runner.Start(func(_ context.Context) {
		if once.CompareAndSwap(false, true) {
			close(callbackStarted)
		}
		<-callbackCanProceed
	}, nil)

	<-callbackStarted

	stopDone := make(chan struct{})
	go func() {
		runner.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.Fatal("Stop returned before callback completed")
	case <-time.After(10 * time.Millisecond):
	}

	close(callbackCanProceed)
	<-stopDone
}

func TestPeriodicRunnerContextCancellation(t *testing.T) {
	callbackStarted := make(chan struct{})
	ctxDone := make(chan struct{})
	var once atomic.Bool

	runner := NewPeriodicRunner(t.Context(), 1*time.Millisecond)
	runner.Start(func(ctx context.Context) {
		if !once.CompareAndSwap(false, true) {
			return
		}
		close(callbackStarted)
		<-ctx.Done()
		close(ctxDone)
	}, nil)

	<-callbackStarted
	runner.Stop()
	<-ctxDone
}

func TestPeriodicRunnerIdempotentStartStop(t *testing.T) {
	runner := NewPeriodicRunner(t.Context(), 1*time.Millisecond)
	assert.True(t, runner.Start(func(_ context.Context) {}, nil))
	assert.False(t, runner.Start(func(_ context.Context) {}, nil))

	runner.Stop()
	runner.Stop()
	assert.False(t, runner.Running())
}

func TestPeriodicRunnerStopWithoutStart(t *testing.T) {
	runner := NewPeriodicRunner(t.Context(), 1*time.Millisecond)
	runner.Stop()
	assert.False(t, runner.Running())
}

func TestPeriodicRunnerRestart(t *testing.T) {
	var calls atomic.Int64
	called := make(chan struct{}, 100)
	cb := func(_ context.Context) {
		calls.Add(1)
		select {
		case called <- struct{}{}:
		default:
		}
	}

	runner := NewPeriodicRunner(t.Context(), 1*time.Millisecond)
	runner.Start(cb, nil)
	<-called
	runner.Stop()

	first := calls.Load()
	require.GreaterOrEqual(t, first, int64(1))

	runner.Start(cb, nil)
	<-called
	runner.Stop()
	assert.Greater(t, calls.Load(), first)
}

func TestPeriodicRunnerBackpressure(t *testing.T) {
	var concurrency, maxConcurrency atomic.Int32
	executed := make(chan struct{}, 100)
	canProceed := make(chan struct{})

	runner := NewPeriodicRunner(t.Context(), 1*time.Millisecond)
	runner.Start(func(ctx context.Context) {
		current := concurrency.Add(1)
		for {
			old := maxConcurrency.Load()
			if current <= old || maxConcurrency.CompareAndSwap(old, current) {
				break
			}
		}
		select {
		case executed <- struct{}{}:
		default:
		}
		select {
		case <-canProceed:
		case <-ctx.Done():
		}
		concurrency.Add(-1)
	}, nil)

	<-executed
	close(canProceed)
	<-executed
	<-executed
	runner.Stop()

	assert.Equal(t, int32(1), maxConcurrency.Load(), "callbacks should not run concurrently")
}

func TestPeriodicRunnerOnStartCallback(t *testing.T) {
	var onStartCount atomic.Int32
	onStartSeen := make(chan bool, 1)

	runner := NewPeriodicRunner(t.Context(), 1*time.Millisecond, WithImmediateStart())
	runner.Start(func(_ context.Context) {
		select {
		case onStartSeen <- onStartCount.Load() == 1:
		default:
		}
	}, func() { onStartCount.Add(1) })

	assert.True(t, <-onStartSeen, "onStart runs before the first callback")

	runner.Start(func(_ context.Context) {}, func() { onStartCount.Add(1) })
	runner.Stop()
	assert.Equal(t, int32(1), onStartCount.Load())
}
