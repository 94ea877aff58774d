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

// Package testing provides a wire-level PN532 simulator for bus tests.
//
// VirtualPN532 implements io.ReadWriter and answers normal information
// frames the way the chip does (PN532 User Manual section 6.2): ACK first,
// then the response frame, NACK triggers a retransmission. It also models
// power-down: after a PowerDown command the chip ignores frames until it is
// woken by the HSU wake byte (0x55) or, for I2C and SPI, by any bus activity.
package testing

import (
	"bytes"
	"errors"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/frame"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/syncutil"
)

// HSUWakeByte is the byte a host sends over UART to wake the chip.
const HSUWakeByte = 0x55

// SimulatorPowerMode represents the PN532 power state (section 3.1.2)
type SimulatorPowerMode int

// Power modes.
const (
	PowerModeNormal    SimulatorPowerMode = iota // CPU running
	PowerModePowerDown                           // Oscillator stopped
)

// SimulatorState tracks the internal state of the simulated PN532
type SimulatorState struct {
	PowerMode     SimulatorPowerMode
	SAMConfigured bool
	WakeupSources byte
}

// VirtualPN532 simulates a PN532 chip at the wire protocol level.
type VirtualPN532 struct {
	lastResponse        []byte
	commands            []byte
	rxBuffer            bytes.Buffer
	txBuffer            bytes.Buffer
	state               SimulatorState
	mu                  syncutil.Mutex
	firmware            [4]byte
	wakeOnAnyWrite      bool
	injectChecksumError bool
	dropNextACK         bool
	dropResponses       int
}

// NewVirtualPN532 creates a simulator in normal power mode that reports
// firmware PN532 v1.6 with ISO14443A/B and ISO18092 support.
func NewVirtualPN532() *VirtualPN532 {
	return &VirtualPN532{
		firmware: [4]byte{0x32, 0x01, 0x06, 0x07},
	}
}

// Write implements io.Writer - receives data from the host controller.
func (v *VirtualPN532) Write(data []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state.PowerMode == PowerModePowerDown {
		if !v.wakeOnAnyWrite && bytes.IndexByte(data, HSUWakeByte) < 0 {
			return len(data), nil
		}
		v.state.PowerMode = PowerModeNormal
		v.rxBuffer.Reset()
	}

	v.rxBuffer.Write(data)
	v.processReceivedData()
	return len(data), nil
}

// Read implements io.Reader - returns response data to the host controller.
// An empty transmit buffer reads as zero bytes, like a serial read timeout.
func (v *VirtualPN532) Read(buf []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.txBuffer.Len() == 0 {
		return 0, nil
	}
	n, _ := v.txBuffer.Read(buf)
	return n, nil
}

// SetWakeOnAnyWrite makes any write wake a powered-down chip, as bus
// activity does on I2C and SPI.
func (v *VirtualPN532) SetWakeOnAnyWrite(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.wakeOnAnyWrite = enabled
}

// SetPowerMode forces the power mode.
func (v *VirtualPN532) SetPowerMode(mode SimulatorPowerMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.PowerMode = mode
}

// SetFirmwareVersion configures the firmware version returned by GetFirmwareVersion.
func (v *VirtualPN532) SetFirmwareVersion(ic, ver, rev, support byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.firmware = [4]byte{ic, ver, rev, support}
}

// InjectChecksumError causes the next response to have an invalid checksum.
func (v *VirtualPN532) InjectChecksumError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.injectChecksumError = true
}

// DropNextACK causes the simulator to not send ACK for the next command.
func (v *VirtualPN532) DropNextACK() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropNextACK = true
}

// DropResponses makes the next n commands get an ACK but no response.
func (v *VirtualPN532) DropResponses(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropResponses = n
}

// GetState returns the current simulator state.
func (v *VirtualPN532) GetState() SimulatorState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Commands returns the command codes processed so far, in order.
func (v *VirtualPN532) Commands() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.commands...)
}

// HasPendingResponse returns true if the simulator has response data waiting
// to be read. Used for the I2C and SPI ready status.
func (v *VirtualPN532) HasPendingResponse() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.txBuffer.Len() > 0
}

// Reset clears all state and buffers.
func (v *VirtualPN532) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rxBuffer.Reset()
	v.txBuffer.Reset()
	v.lastResponse = nil
	v.commands = nil
	v.state = SimulatorState{}
	v.injectChecksumError = false
	v.dropNextACK = false
	v.dropResponses = 0
}

// processReceivedData consumes every complete frame in the receive buffer.
func (v *VirtualPN532) processReceivedData() {
	for v.rxBuffer.Len() > 0 {
		f, n, err := frame.Decode(v.rxBuffer.Bytes())
		if errors.Is(err, frame.ErrIncomplete) {
			return
		}
		v.rxBuffer.Next(n)
		if err != nil {
			continue
		}

		switch f.Kind {
		case frame.KindACK:
			// Host acknowledged the response or aborted the command.
		case frame.KindNACK:
			if v.lastResponse != nil {
				v.txBuffer.Write(v.lastResponse)
			}
		case frame.KindData:
			if f.TFI != frame.HostToPn532 || len(f.Data) == 0 {
				v.sendErrorFrame()
				continue
			}
			v.processCommand(f.Data[0], f.Data[1:])
		case frame.KindError:
			v.sendErrorFrame()
		}
	}
}

func (v *VirtualPN532) processCommand(cmd byte, params []byte) {
	if v.dropNextACK {
		v.dropNextACK = false
	} else {
		v.txBuffer.Write(frame.AckFrame)
	}
	v.commands = append(v.commands, cmd)

	if v.dropResponses > 0 {
		v.dropResponses--
		return
	}

	switch cmd {
	case pn532.CmdGetFirmwareVersion:
		v.sendResponse(cmd, v.firmware[:])
	case pn532.CmdSAMConfiguration:
		if len(params) < 1 || params[0] < byte(pn532.SAMModeNormal) || params[0] > byte(pn532.SAMModeDualCard) {
			v.sendErrorFrame()
			return
		}
		v.state.SAMConfigured = true
		v.sendResponse(cmd, nil)
	case pn532.CmdPowerDown:
		if len(params) < 1 {
			v.sendErrorFrame()
			return
		}
		v.state.WakeupSources = params[0]
		v.sendResponse(cmd, []byte{0x00})
		v.state.PowerMode = PowerModePowerDown
	case pn532.CmdGetGeneralStatus:
		// Err, Field, NbTg
		v.sendResponse(cmd, []byte{0x00, 0x00, 0x00})
	case pn532.CmdDiagnose:
		// Communication line test echoes its parameters.
		if len(params) < 1 || params[0] != 0x00 {
			v.sendErrorFrame()
			return
		}
		v.sendResponse(cmd, params)
	default:
		v.sendErrorFrame()
	}
}

func (v *VirtualPN532) sendResponse(cmd byte, data []byte) {
	payload := append([]byte{pn532.ResponseCode(cmd)}, data...)
	out, err := frame.Encode(frame.Pn532ToHost, payload)
	if err != nil {
		v.sendErrorFrame()
		return
	}

	if v.injectChecksumError {
		v.injectChecksumError = false
		out[len(out)-2] ^= 0xFF
		v.txBuffer.Write(out)
		// A NACK gets the intact frame.
		out[len(out)-2] ^= 0xFF
		v.lastResponse = out
		return
	}

	v.lastResponse = out
	v.txBuffer.Write(out)
}

func (v *VirtualPN532) sendErrorFrame() {
	out := []byte{
		frame.Preamble,
		frame.StartCode1, frame.StartCode2,
		0x01, // LEN (just TFI)
		0xFF, // LCS
		frame.ErrorTFI,
		0x81, // DCS
		frame.Postamble,
	}
	v.lastResponse = out
	v.txBuffer.Write(out)
}
