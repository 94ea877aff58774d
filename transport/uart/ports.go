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


package uart

import (
	"fmt"
	"slices"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name    string
	VIDPID  string // "VVVV:PPPP" for USB adapters, empty otherwise
	Product string
	IsUSB   bool
}

// USB-serial bridges commonly soldered onto PN532 breakout boards.
var knownBridges = []string{
	"067B:2303", // Prolific PL2303
	"0403:6001", // FTDI FT232
	"10C4:EA60", // Silicon Labs CP210x
	"1A86:7523", // QinHeng CH340
}

var productKeywords = []string{"pn532", "nfc", "rfid", "13.56"}

// ListPorts enumerates the host's serial ports.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		p := PortInfo{Name: d.Name, Product: d.Product, IsUSB: d.IsUSB}
		if d.IsUSB && d.VID != "" {
			p.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// LikelyPN532 reports whether the port looks like a PN532 board, by USB
// bridge ID or product string.
func LikelyPN532(p PortInfo) bool {
	if slices.Contains(knownBridges, strings.ToUpper(p.VIDPID)) {
		return true
	}
	product := strings.ToLower(p.Product)
	for _, keyword := range productKeywords {
		if strings.Contains(product, keyword) {
			return true
		}
	}
	return false
}
