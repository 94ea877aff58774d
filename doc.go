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


// Package pn532 guards access to a PN532 NFC controller. A Gatekeeper keeps
// a peripheral control block (PCB) recording whether the chip has been
// brought up and whether it is asleep or ready, and checks it before every
// read and write: it runs hardware bring-up on first use, wakes a sleeping
// chip, and only then hands the command bytes to the Bus.
//
//	bus := uart.New("/dev/ttyUSB0")
//	gk, err := pn532.New(bus, pn532.WithPCB(pn532.DefaultPCB()))
//	if err != nil {
//		return err
//	}
//	defer gk.Close()
//
//	if err := gk.Write([]byte{pn532.CmdGetFirmwareVersion}); err != nil {
//		return err
//	}
//	n, err := gk.Read(buf)
//
// Framing, checksums and wake signalling belong to the Bus implementations
// in transport/uart, transport/i2c and transport/spi.
package pn532
