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

import "context"

// BusWithRetry wraps a Bus and retries retryable Wakeup, SendCommand and
// ReadResponse failures. HardwareInit is passed through once; a failed
// bring-up is for the caller to deal with.
type BusWithRetry struct {
	bus    Bus
	config *RetryConfig
}

// NewBusWithRetry creates a new bus wrapper with retry logic
func NewBusWithRetry(bus Bus, config *RetryConfig) *BusWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &BusWithRetry{
		bus:    bus,
		config: config,
	}
}

// Unwrap returns the wrapped bus.
func (b *BusWithRetry) Unwrap() Bus {
	return b.bus
}

// HardwareInit implements Bus.
func (b *BusWithRetry) HardwareInit(ctx context.Context) (DeviceState, error) {
	return b.bus.HardwareInit(ctx)
}

// Wakeup wakes the chip with retry logic
func (b *BusWithRetry) Wakeup(ctx context.Context) error {
	return RetryWithConfig(ctx, b.config, func() error {
		return b.bus.Wakeup(ctx)
	})
}

// SendCommand sends a command with retry logic
func (b *BusWithRetry) SendCommand(ctx context.Context, cmd []byte) error {
	return RetryWithConfig(ctx, b.config, func() error {
		return b.bus.SendCommand(ctx, cmd)
	})
}

// ReadResponse reads a response with retry logic
func (b *BusWithRetry) ReadResponse(ctx context.Context, buf []byte) (int, error) {
	var n int
	err := RetryWithConfig(ctx, b.config, func() error {
		var err error
		n, err = b.bus.ReadResponse(ctx, buf)
		return err
	})
	return n, err
}

// Close implements Bus.
func (b *BusWithRetry) Close() error {
	return b.bus.Close()
}

// Type implements Bus.
func (b *BusWithRetry) Type() BusType {
	return b.bus.Type()
}

var _ Bus = (*BusWithRetry)(nil)
