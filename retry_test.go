// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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


package pn532

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetryConfig keeps backoff tiny so retry tests stay quick.
func fastRetryConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Microsecond,
		MaxBackoff:        10 * time.Microsecond,
		BackoffMultiplier: 2.0,
		RetryTimeout:      time.Second,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	config := DefaultRetryConfig()
	assert.Equal(t, 3, config.MaxAttempts)
	assert.Greater(t, config.MaxBackoff, config.InitialBackoff)
	assert.Greater(t, config.BackoffMultiplier, 1.0)
	assert.InDelta(t, 0.1, config.Jitter, 0.0001)
	assert.Positive(t, config.RetryTimeout)
	assert.Nil(t, config.ShouldRetry)
}

func TestNextBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		config  *RetryConfig
		name    string
		current time.Duration
		want    time.Duration
	}{
		{
			name:    "exponential growth",
			current: 100 * time.Millisecond,
			config:  &RetryConfig{BackoffMultiplier: 2.0, MaxBackoff: 5 * time.Second},
			want:    200 * time.Millisecond,
		},
		{
			name:    "capped at maximum",
			current: 3 * time.Second,
			config:  &RetryConfig{BackoffMultiplier: 2.0, MaxBackoff: 5 * time.Second},
			want:    5 * time.Second,
		},
		{
			name:    "fractional multiplier",
			current: 200 * time.Millisecond,
			config:  &RetryConfig{BackoffMultiplier: 1.5, MaxBackoff: 10 * time.Second},
			want:    300 * time.Millisecond,
		},
		{
			name:    "no maximum",
			current: time.Minute,
			config:  &RetryConfig{BackoffMultiplier: 2.0},
			want:    2 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nextBackoff(tt.current, tt.config))
		})
	}
}

func TestJitter(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond
	assert.Equal(t, base, jitter(base, 0))

	for range 100 {
		got := jitter(base, 0.5)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/2)
	}
}

func TestRetryWithConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr   error
		failures  []error
		name      string
		attempts  int
		wantCalls int
	}{
		{
			name:      "success on first attempt",
			attempts:  3,
			wantCalls: 1,
		},
		{
			name:      "success after retries",
			attempts:  3,
			failures:  []error{NewTimeoutError("read", "uart0"), NewNoACKError("send", "uart0")},
			wantCalls: 3,
		},
		{
			name:      "non-retryable fails immediately",
			attempts:  3,
			failures:  []error{NewInvalidResponseError("read", "uart0")},
			wantErr:   ErrInvalidResponse,
			wantCalls: 1,
		},
		{
			name:     "retryable exhausts attempts",
			attempts: 2,
			failures: []error{
				NewTimeoutError("read", "uart0"),
				NewTimeoutError("read", "uart0"),
				NewTimeoutError("read", "uart0"),
			},
			wantErr:   ErrTransportTimeout,
			wantCalls: 2,
		},
		{
			name:      "single attempt does not retry",
			attempts:  1,
			failures:  []error{NewTimeoutError("read", "uart0")},
			wantErr:   ErrTransportTimeout,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			err := RetryWithConfig(context.Background(), fastRetryConfig(tt.attempts), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetryWithConfig_ShouldRetry(t *testing.T) {
	t.Parallel()

	errFlaky := errors.New("flaky")
	config := fastRetryConfig(4)
	config.ShouldRetry = func(err error) bool { return errors.Is(err, errFlaky) }

	calls := 0
	err := RetryWithConfig(context.Background(), config, func() error {
		calls++
		if calls < 4 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestRetryWithConfig_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithConfig(ctx, fastRetryConfig(5), func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryWithConfig_TimeoutReturnsLastError(t *testing.T) {
	t.Parallel()

	config := &RetryConfig{
		MaxAttempts:       10,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 1.0,
		RetryTimeout:      20 * time.Millisecond,
	}

	calls := 0
	err := RetryWithConfig(context.Background(), config, func() error {
		calls++
		return NewNoACKError("send", "uart0")
	})
	require.ErrorIs(t, err, ErrNoACK)
	assert.Equal(t, 1, calls)
}
