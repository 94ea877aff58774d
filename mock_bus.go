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

	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/syncutil"
)

// Bus call names recorded by MockBus.
const (
	CallHardwareInit = "HardwareInit"
	CallWakeup       = "Wakeup"
	CallSendCommand  = "SendCommand"
	CallReadResponse = "ReadResponse"
	CallClose        = "Close"
)

// MockBus is a recording Bus for tests. Responses are keyed by the command
// code of the last SendCommand; errors can be injected per call.
type MockBus struct {
	responses map[byte][]byte
	errs      map[string]error
	calls     []string
	sent      [][]byte
	initState DeviceState
	mu        syncutil.Mutex
	lastCmd   byte
	hasCmd    bool
	closed    bool
}

// NewMockBus creates a mock bus whose HardwareInit reports StateReady.
func NewMockBus() *MockBus {
	return &MockBus{
		responses: make(map[byte][]byte),
		errs:      make(map[string]error),
		initState: StateReady,
	}
}

// SetInitState sets the state HardwareInit reports.
func (m *MockBus) SetInitState(state DeviceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initState = state
}

// SetError makes the named call (one of the Call* constants) fail with err.
// A nil err clears it.
func (m *MockBus) SetError(call string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, call)
		return
	}
	m.errs[call] = err
}

// SetResponse sets the payload ReadResponse returns after cmd was sent.
func (m *MockBus) SetResponse(cmd byte, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = append([]byte(nil), resp...)
}

// Calls returns the recorded call names in order.
func (m *MockBus) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times the named call was made.
func (m *MockBus) CallCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

// Sent returns copies of every command passed to SendCommand.
func (m *MockBus) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	for i, cmd := range m.sent {
		out[i] = append([]byte(nil), cmd...)
	}
	return out
}

// Closed reports whether Close was called.
func (m *MockBus) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// HardwareInit implements Bus.
func (m *MockBus) HardwareInit(_ context.Context) (DeviceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CallHardwareInit)
	if err := m.errs[CallHardwareInit]; err != nil {
		return StateUninitialised, err
	}
	return m.initState, nil
}

// Wakeup implements Bus.
func (m *MockBus) Wakeup(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CallWakeup)
	return m.errs[CallWakeup]
}

// SendCommand implements Bus.
func (m *MockBus) SendCommand(_ context.Context, cmd []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CallSendCommand)
	m.sent = append(m.sent, append([]byte(nil), cmd...))
	if err := m.errs[CallSendCommand]; err != nil {
		return err
	}
	if len(cmd) > 0 {
		m.lastCmd = cmd[0]
		m.hasCmd = true
	}
	return nil
}

// ReadResponse implements Bus.
func (m *MockBus) ReadResponse(_ context.Context, buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CallReadResponse)
	if err := m.errs[CallReadResponse]; err != nil {
		return 0, err
	}

	resp, ok := m.responses[m.lastCmd]
	if !m.hasCmd || !ok {
		return 0, NewTimeoutError("ReadResponse", "mock")
	}
	if len(resp) > len(buf) {
		return 0, NewBufferTooSmallError("ReadResponse", "mock")
	}
	return copy(buf, resp), nil
}

// Close implements Bus.
func (m *MockBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CallClose)
	m.closed = true
	return m.errs[CallClose]
}

// Type implements Bus.
func (*MockBus) Type() BusType {
	return BusMock
}

var _ Bus = (*MockBus)(nil)
