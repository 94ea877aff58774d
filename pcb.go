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
	"sync"

	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/syncutil"
)

// PCB is the peripheral control block: whether hardware bring-up has
// succeeded and which state the chip is in. Only a Gatekeeper mutates it.
//
// The zero value is ready to use and equals a freshly reset block.
type PCB struct {
	mu          syncutil.RWMutex
	state       DeviceState
	initialised bool
}

// PCBSnapshot is a point-in-time copy of a PCB.
type PCBSnapshot struct {
	State       DeviceState
	Initialised bool
}

var (
	defaultPCB     *PCB
	defaultPCBOnce sync.Once
)

// DefaultPCB returns the process-wide control block. Every call returns the
// same instance. Pass it to WithPCB when several gatekeepers (or a gatekeeper
// that is rebuilt) must share one view of the chip.
func DefaultPCB() *PCB {
	defaultPCBOnce.Do(func() {
		defaultPCB = &PCB{}
	})
	return defaultPCB
}

// NewPCB returns a zeroed control block.
func NewPCB() *PCB {
	return &PCB{}
}

// Snapshot returns a copy of the current fields.
func (p *PCB) Snapshot() PCBSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PCBSnapshot{State: p.state, Initialised: p.initialised}
}

// State returns the current device state.
func (p *PCB) State() DeviceState {
	return p.Snapshot().State
}

// Initialised reports whether hardware bring-up has succeeded since the
// last reset.
func (p *PCB) Initialised() bool {
	return p.Snapshot().Initialised
}

// Reset zeroes the block.
func (p *PCB) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// The helpers below expect p.mu to be held by the caller.

func (p *PCB) reset() {
	p.initialised = false
	p.state = StateUninitialised
}

func (p *PCB) markInitialised(state DeviceState) {
	p.initialised = true
	p.state = state
}

func (p *PCB) setState(state DeviceState) {
	p.state = state
}
