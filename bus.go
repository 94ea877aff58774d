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

// Bus is the physical link to a PN532: UART, I2C or SPI. The gatekeeper
// drives it and keeps all state bookkeeping on its side; a Bus never sees the
// control block and reports state only through return values.
//
// Implementations live in transport/uart, transport/i2c and transport/spi.
type Bus interface {
	// HardwareInit brings up the link and the chip, returning the state the
	// chip is in afterwards. StateUninitialised means "not reported" and
	// lets the gatekeeper apply its default.
	HardwareInit(ctx context.Context) (DeviceState, error)

	// Wakeup brings a sleeping chip back to the ready state.
	Wakeup(ctx context.Context) error

	// SendCommand frames cmd (command code followed by parameters) and
	// transmits it, returning once the chip acknowledged the frame.
	SendCommand(ctx context.Context, cmd []byte) error

	// ReadResponse reads one response frame and copies its payload (response
	// code followed by data) into buf, returning the number of bytes written.
	ReadResponse(ctx context.Context, buf []byte) (int, error)

	// Close releases the link.
	Close() error

	// Type returns the bus type
	Type() BusType
}

// BusType represents the type of bus
type BusType string

const (
	// BusUART represents UART/serial (HSU) links.
	BusUART BusType = "uart"
	// BusI2C represents I2C bus links.
	BusI2C BusType = "i2c"
	// BusSPI represents SPI bus links.
	BusSPI BusType = "spi"
	// BusMock represents a mock bus for testing
	BusMock BusType = "mock"
)

// ParseBusType converts a configuration string into a BusType.
func ParseBusType(s string) (BusType, bool) {
	switch BusType(s) {
	case BusUART, BusI2C, BusSPI, BusMock:
		return BusType(s), true
	default:
		return "", false
	}
}
