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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// multiDelay calls nextDelay() on the backoff n+1 times to advance to attempt n,
// returning the delay for attempt n.
func multiDelay(b backoff, attempt int) time.Duration {
	var delay time.Duration
	for i := 0; i <= attempt; i++ {
		delay = b.nextDelay()
	}
	return delay
}

func TestExponentialDelay_NoJitter(t *testing.T) {
	tests := []struct {
		name      string
		baseDelay time.Duration
		maxDelay  time.Duration
		attempt   int
		expected  time.Duration
	}{
		{"first attempt", 10 * time.Millisecond, time.Minute, 0, 10 * time.Millisecond},
		{"second attempt", 10 * time.Millisecond, time.Minute, 1, 20 * time.Millisecond},
		{"third attempt", 10 * time.Millisecond, time.Minute, 2, 40 * time.Millisecond},
		{"capped at max", 10 * time.Millisecond, 30 * time.Millisecond, 5, 30 * time.Millisecond},
		{"huge attempt count does not overflow", time.Second, time.Hour, 100, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newExponentialBackoffNoJitter(tt.baseDelay, tt.maxDelay)
			assert.Equal(t, tt.expected, multiDelay(b, tt.attempt))
		})
	}
}

func TestExponentialDelay_JitterWithinBounds(t *testing.T) {
	b := newExponentialFullJitterBackoff(100*time.Millisecond, time.Second)
	for attempt := range 10 {
		ceiling := min(100*time.Millisecond<<attempt, time.Second)
		d := b.nextDelay()
		assert.GreaterOrEqual(t, d, time.Duration(0), "attempt %d", attempt)
		assert.LessOrEqual(t, d, ceiling, "attempt %d", attempt)
	}
}

func TestExponentialBackoff_Reset(t *testing.T) {
	b := newExponentialBackoffNoJitter(10*time.Millisecond, time.Minute)
	assert.Equal(t, 10*time.Millisecond, b.nextDelay())
	assert.Equal(t, 20*time.Millisecond, b.nextDelay())
	b.reset()
	assert.Equal(t, 10*time.Millisecond, b.nextDelay())
}

func TestConstantBackoff(t *testing.T) {
	b := constantBackoff{interval: 3 * time.Second}
	for range 5 {
		assert.Equal(t, 3*time.Second, b.nextDelay())
	}
	b.reset()
	assert.Equal(t, 3*time.Second, b.nextDelay())
}
