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
	"github.com/stretchr/testify/require"
)

func TestParseFirmwareVersion(t *testing.T) {
	t.Parallel()

	fw, err := parseFirmwareVersion([]byte{0x03, 0x32, 0x01, 0x06, 0x05})
	require.NoError(t, err)
	assert.Equal(t, &FirmwareVersion{IC: 0x32, Version: 1, Revision: 6, Support: 0x05}, fw)
	assert.Equal(t, "1.6", fw.String())
	assert.True(t, fw.SupportIso14443a())
	assert.False(t, fw.SupportIso14443b())
	assert.True(t, fw.SupportIso18092())
}

func TestParseFirmwareVersion_Invalid(t *testing.T) {
	t.Parallel()

	_, err := parseFirmwareVersion([]byte{0x03, 0x32})
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = parseFirmwareVersion([]byte{0x05, 0x32, 0x01, 0x06, 0x07})
	require.ErrorIs(t, err, ErrInvalidResponse)
}
