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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandConstants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		constant byte
		expected byte
	}{
		{"CmdDiagnose", CmdDiagnose, 0x00},
		{"CmdGetFirmwareVersion", CmdGetFirmwareVersion, 0x02},
		{"CmdGetGeneralStatus", CmdGetGeneralStatus, 0x04},
		{"CmdSAMConfiguration", CmdSAMConfiguration, 0x14},
		{"CmdPowerDown", CmdPowerDown, 0x16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.constant)
		})
	}
}

func TestResponseCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, byte(0x03), ResponseCode(CmdGetFirmwareVersion))
	assert.Equal(t, byte(0x15), ResponseCode(CmdSAMConfiguration))
	assert.Equal(t, byte(0x17), ResponseCode(CmdPowerDown))
}

func TestSAMConfigurationCommand(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte{0x14, 0x01, 0x14, 0x01}, SAMConfigurationCommand(SAMModeNormal))
	assert.Equal(t, []byte{0x14, 0x04, 0x14, 0x01}, SAMConfigurationCommand(SAMModeDualCard))
}
