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

package retry

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Timer abstracts time.After so tests can complete waits immediately.
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time { return time.After(d) }

// backoff defines the interface for delay strategies.
//
// Implementations must be thread-safe as reset() may be called from a different
// goroutine than nextDelay().
type backoff interface {
	// nextDelay returns the next delay and advances the internal state.
	nextDelay() time.Duration

	// reset returns the strategy to its initial state.
	reset()
}

// constantBackoff always waits the same interval. Used for polling a remote
// operation whose completion time does not depend on how often we ask.
type constantBackoff struct {
	interval time.Duration
}

func (c constantBackoff) nextDelay() time.Duration { return c.interval }

func (constantBackoff) reset() {}

// exponentialFullJitterBackoff implements exponential backoff with Full Jitter:
//
//	sleep = random_between(0, min(cap, base * 2^attempt))
//
// Reference: https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
type exponentialFullJitterBackoff struct {
	baseDelay     time.Duration
	maxDelay      time.Duration
	rng           *rand.Rand
	disableJitter bool // For deterministic testing

	mu      sync.Mutex
	attempt int // 0-indexed, protected by mu
}

func newExponentialFullJitterBackoff(baseDelay, maxDelay time.Duration) *exponentialFullJitterBackoff {
	return &exponentialFullJitterBackoff{
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(time.Now().UnixNano()))),
	}
}

// newExponentialBackoffNoJitter creates a backoff without jitter (for testing).
func newExponentialBackoffNoJitter(baseDelay, maxDelay time.Duration) *exponentialFullJitterBackoff {
	return &exponentialFullJitterBackoff{
		baseDelay:     baseDelay,
		maxDelay:      maxDelay,
		disableJitter: true,
	}
}

func (e *exponentialFullJitterBackoff) nextDelay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Shifting more than 62 bits would overflow int64.
	attempt := min(e.attempt, 62)

	multiplier := int64(1 << attempt)
	base := int64(e.baseDelay)

	var delay time.Duration
	if base > 0 && multiplier > math.MaxInt64/base {
		delay = e.maxDelay
	} else {
		delay = min(time.Duration(base*multiplier), e.maxDelay)
	}

	// rand.Rand is not thread-safe; still holding mu here.
	if !e.disableJitter {
		delay = time.Duration(float64(delay) * e.rng.Float64())
	}

	e.attempt++
	return delay
}

func (e *exponentialFullJitterBackoff) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempt = 0
}
