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

import "fmt"

// FirmwareVersion is the decoded GetFirmwareVersion response.
type FirmwareVersion struct {
	IC       byte // 0x32 for a genuine PN532
	Version  byte
	Revision byte
	Support  byte // bit field of supported protocol families
}

// String formats the version as "major.minor".
func (f *FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", f.Version, f.Revision)
}

// SupportIso14443a reports ISO/IEC 14443 Type A support.
func (f *FirmwareVersion) SupportIso14443a() bool { return f.Support&0x01 != 0 }

// SupportIso14443b reports ISO/IEC 14443 Type B support.
func (f *FirmwareVersion) SupportIso14443b() bool { return f.Support&0x02 != 0 }

// SupportIso18092 reports ISO 18092 support.
func (f *FirmwareVersion) SupportIso18092() bool { return f.Support&0x04 != 0 }

// parseFirmwareVersion decodes a GetFirmwareVersion payload
// (response code 0x03 followed by IC, Ver, Rev, Support).
func parseFirmwareVersion(res []byte) (*FirmwareVersion, error) {
	if len(res) < 5 {
		return nil, fmt.Errorf("firmware version response too short: %d bytes: %w", len(res), ErrInvalidResponse)
	}
	if res[0] != ResponseCode(CmdGetFirmwareVersion) {
		return nil, fmt.Errorf("unexpected firmware version response code: %02X: %w", res[0], ErrInvalidResponse)
	}
	return &FirmwareVersion{
		IC:       res[1],
		Version:  res[2],
		Revision: res[3],
		Support:  res[4],
	}, nil
}
