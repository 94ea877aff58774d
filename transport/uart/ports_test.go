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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikelyPN532(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		port PortInfo
		want bool
	}{
		{name: "CH340", port: PortInfo{Name: "/dev/ttyUSB0", VIDPID: "1a86:7523", IsUSB: true}, want: true},
		{name: "FTDI", port: PortInfo{Name: "/dev/ttyUSB1", VIDPID: "0403:6001", IsUSB: true}, want: true},
		{name: "product keyword", port: PortInfo{Name: "COM4", Product: "PN532 NFC HAT"}, want: true},
		{name: "unknown adapter", port: PortInfo{Name: "/dev/ttyACM0", VIDPID: "2341:0043", Product: "Arduino Uno"}},
		{name: "built-in", port: PortInfo{Name: "/dev/ttyS0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LikelyPN532(tt.port))
		})
	}
}
