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

import "time"

// Bus link constants shared by the UART, I2C and SPI implementations.
const (
	// TransportACKRetries is the number of attempts to receive ACK from PN532.
	TransportACKRetries = 3
	// TransportFrameRetries is how many times a corrupt response is NACKed
	// before ReadResponse gives up.
	TransportFrameRetries = 3
	// TransportACKTimeout caps the wait for one ACK frame.
	TransportACKTimeout = 500 * time.Millisecond
	// TransportResponseTimeout caps the wait for a response frame.
	TransportResponseTimeout = 1 * time.Second
)

// Transport ACK delays for I2C and SPI use progressive timing.
const (
	// TransportACKDelay1 is the initial ACK wait delay.
	TransportACKDelay1 = 50 * time.Millisecond
	// TransportACKDelay2 is the second ACK wait delay.
	TransportACKDelay2 = 100 * time.Millisecond
	// TransportACKDelay3 is the final ACK wait delay.
	TransportACKDelay3 = 200 * time.Millisecond
)

// Wakeup timing.
const (
	// WakeupSettleDelay is how long the chip needs after the wake pulse
	// before it accepts a frame (PN532 User Manual section 7.2.11: T_osc_start).
	WakeupSettleDelay = 2 * time.Millisecond
	// HardwareInitDelay is the boot time after the link is opened.
	HardwareInitDelay = 10 * time.Millisecond
)
