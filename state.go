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

import "fmt"

// DeviceState is the operating state of the PN532 as last observed by the
// gatekeeper. The zero value is StateUninitialised.
type DeviceState int

const (
	// StateUninitialised means hardware bring-up has not succeeded yet, or
	// the control block was reset.
	StateUninitialised DeviceState = iota
	// StateReady means the chip accepts command frames.
	StateReady
	// StateSleep means the chip is powered down (or fresh from reset) and
	// must be woken before it answers.
	StateSleep
)

// String returns a string representation of the state
func (s DeviceState) String() string {
	switch s {
	case StateUninitialised:
		return "Uninitialised"
	case StateReady:
		return "Ready"
	case StateSleep:
		return "Sleep"
	default:
		return fmt.Sprintf("DeviceState(%d)", int(s))
	}
}

// Known reports whether s is one of the named states. Buses may report other
// values; the gatekeeper keeps them as-is and refuses to dispatch.
func (s DeviceState) Known() bool {
	switch s {
	case StateUninitialised, StateReady, StateSleep:
		return true
	default:
		return false
	}
}
