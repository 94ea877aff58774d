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

// PN532 command codes (User Manual section 7) used by the buses and the
// gatekeeper helpers. Everything else passes through Write untouched.
const (
	CmdDiagnose           byte = 0x00
	CmdGetFirmwareVersion byte = 0x02
	CmdGetGeneralStatus   byte = 0x04
	CmdSAMConfiguration   byte = 0x14
	CmdPowerDown          byte = 0x16
)

// ResponseCode returns the code the chip answers cmd with.
func ResponseCode(cmd byte) byte {
	return cmd + 1
}

// PowerDown wake-up sources (PN532 User Manual section 7.2.11).
const (
	WakeupHSU     byte = 0x01 // Wake-up by High Speed UART
	WakeupSPI     byte = 0x02 // Wake-up by SPI
	WakeupI2C     byte = 0x04 // Wake-up by I2C
	WakeupGPIOP32 byte = 0x08 // Wake-up by GPIO P32
	WakeupGPIOP34 byte = 0x10 // Wake-up by GPIO P34
	WakeupRF      byte = 0x20 // Wake-up by RF field
	WakeupINT1    byte = 0x80 // Wake-up by GPIO P72/INT1
)

// SAMMode represents the SAM configuration mode
type SAMMode byte

const (
	// SAMModeNormal - normal mode (default)
	SAMModeNormal SAMMode = 0x01
	// SAMModeVirtualCard - Virtual Card mode
	SAMModeVirtualCard SAMMode = 0x02
	// SAMModeWiredCard - Wired Card mode
	SAMModeWiredCard SAMMode = 0x03
	// SAMModeDualCard - Dual Card mode
	SAMModeDualCard SAMMode = 0x04
)

// SAMConfigurationCommand builds the SAMConfiguration command the buses send
// to finish a wakeup: the given mode, a 1 s virtual-card timeout (0x14 x 50 ms)
// and the IRQ pin enabled.
func SAMConfigurationCommand(mode SAMMode) []byte {
	return []byte{CmdSAMConfiguration, byte(mode), 0x14, 0x01}
}
