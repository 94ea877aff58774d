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

import (
	"errors"
	"fmt"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
)

// ErrIncomplete means the buffer ends before the frame does; read more and
// decode again.
var ErrIncomplete = errors.New("incomplete frame")

// Kind classifies a decoded frame.
type Kind int

const (
	// KindData is a normal information frame.
	KindData Kind = iota
	// KindACK is the ACK frame.
	KindACK
	// KindNACK is the NACK frame.
	KindNACK
	// KindError is the application level error frame (TFI 0x7F).
	KindError
)

// Frame is one decoded PN532 frame.
type Frame struct {
	Data []byte // bytes after the TFI
	Kind Kind
	TFI  byte
}

// Encode wraps data in a normal information frame with the given TFI.
func Encode(tfi byte, data []byte) ([]byte, error) {
	length := len(data) + 1
	if length > MaxDataLength {
		return nil, fmt.Errorf("frame payload of %d bytes: %w", length, pn532.ErrDataTooLarge)
	}

	out := make([]byte, 0, length+Overhead)
	out = append(out, Preamble, StartCode1, StartCode2, byte(length), ^byte(length)+1, tfi)
	out = append(out, data...)
	out = append(out, Complement(out[5:]), Postamble)
	return out, nil
}

// Command frames a host command (command code followed by parameters).
func Command(cmd []byte) ([]byte, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("empty command: %w", pn532.ErrInvalidParameter)
	}
	if len(cmd) > MaxCommandLength {
		return nil, fmt.Errorf("command of %d bytes: %w", len(cmd), pn532.ErrDataTooLarge)
	}
	return Encode(HostToPn532, cmd)
}

// Decode finds the first frame in buf. It returns the frame and the number
// of bytes consumed up to and including the frame's last checksum byte; the
// postamble, when present, is left to the caller. ErrIncomplete asks for
// more input. A checksum error still reports how far to skip.
func Decode(buf []byte) (Frame, int, error) {
	start := findStartCode(buf)
	if start < 0 {
		return Frame{}, 0, ErrIncomplete
	}

	hdr := start + 2
	if len(buf) < hdr+2 {
		return Frame{}, 0, ErrIncomplete
	}
	length, lcs := buf[hdr], buf[hdr+1]

	switch {
	case length == 0x00 && lcs == 0xFF:
		return Frame{Kind: KindACK}, hdr + 2, nil
	case length == 0xFF && lcs == 0x00:
		return Frame{Kind: KindNACK}, hdr + 2, nil
	case length == 0xFF && lcs == 0xFF:
		return Frame{}, hdr + 2, fmt.Errorf("extended frame: %w", pn532.ErrFrameCorrupted)
	case length == 0x00 || length+lcs != 0:
		return Frame{}, hdr + 2, fmt.Errorf("length %02X/%02X: %w", length, lcs, pn532.ErrChecksumMismatch)
	}

	end := hdr + 2 + int(length) + 1
	if len(buf) < end {
		return Frame{}, 0, ErrIncomplete
	}
	body := buf[hdr+2 : end]
	if CalculateChecksum(body) != 0 {
		return Frame{}, end, fmt.Errorf("data checksum: %w", pn532.ErrChecksumMismatch)
	}

	f := Frame{
		Kind: KindData,
		TFI:  body[0],
		Data: append([]byte(nil), body[1:len(body)-1]...),
	}
	if f.TFI == ErrorTFI && len(f.Data) == 0 {
		f.Kind = KindError
	}
	return f, end, nil
}

// Response checks that f is a chip-to-host information frame and returns
// its payload (response code followed by data). An error frame becomes a
// *pn532.PN532Error attributed to op.
func Response(f Frame, op string) ([]byte, error) {
	switch {
	case f.Kind == KindError:
		return nil, pn532.NewPN532Error(ErrorTFI, op)
	case f.Kind != KindData:
		return nil, fmt.Errorf("%s: expected information frame, got kind %d: %w", op, f.Kind, pn532.ErrInvalidResponse)
	case f.TFI != Pn532ToHost:
		return nil, fmt.Errorf("%s: unexpected TFI %02X: %w", op, f.TFI, pn532.ErrInvalidResponse)
	case len(f.Data) == 0:
		return nil, fmt.Errorf("%s: empty response: %w", op, pn532.ErrInvalidResponse)
	}
	return f.Data, nil
}

// findStartCode returns the index of the 0x00 preceding 0xFF, or -1.
func findStartCode(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == StartCode1 && buf[i+1] == StartCode2 {
			return i
		}
	}
	return -1
}
