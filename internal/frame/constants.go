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

package frame

// Frame identifiers (TFI) - these indicate the direction of data flow
const (
	HostToPn532 = 0xD4 // Commands from host to PN532
	Pn532ToHost = 0xD5 // Responses from PN532 to host
	ErrorTFI    = 0x7F // Application level error frame
)

// Frame structure constants
const (
	Preamble   = 0x00 // Frame preamble byte
	StartCode1 = 0x00 // Start code byte 1
	StartCode2 = 0xFF // Start code byte 2
	Postamble  = 0x00 // Frame postamble byte
)

// Frame size constants
const (
	// MaxDataLength is the largest LEN of a normal information frame (TFI
	// included). Extended frames are not supported.
	MaxDataLength = 255
	// MaxCommandLength is the largest command (code plus parameters) that
	// fits a normal frame next to the TFI.
	MaxCommandLength = MaxDataLength - 1
	// Overhead is preamble, start code, LEN, LCS, DCS and postamble.
	Overhead = 7
	// MaxFrameLength is the largest encoded normal frame.
	MaxFrameLength = MaxDataLength + Overhead
)

// ACK and NACK frames
var (
	AckFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)
