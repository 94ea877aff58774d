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
	"fmt"

	"github.com/rs/zerolog"
)

// Option represents a functional option for configuring a Gatekeeper
type Option func(*Gatekeeper) error

// WithPCB makes the gatekeeper track state in pcb instead of a private
// control block. Use DefaultPCB() to share the process-wide one.
func WithPCB(pcb *PCB) Option {
	return func(g *Gatekeeper) error {
		if pcb == nil {
			return fmt.Errorf("pcb is nil: %w", ErrInvalidParameter)
		}
		g.pcb = pcb
		return nil
	}
}

// WithLogger sets the logger for lifecycle events. The package logger is
// used otherwise.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gatekeeper) error {
		g.logger = &logger
		return nil
	}
}

// WithPostInitState sets the state assumed after a hardware bring-up that
// did not report one. Defaults to StateSleep so the first use wakes the chip.
func WithPostInitState(state DeviceState) Option {
	return func(g *Gatekeeper) error {
		if state == StateUninitialised {
			return fmt.Errorf("post-init state cannot be %s: %w", state, ErrInvalidParameter)
		}
		g.postInitState = state
		return nil
	}
}
