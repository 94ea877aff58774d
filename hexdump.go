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
	"fmt"
	"io"
	"strings"
)

// lastControlChar is the highest byte value FormatHexChar renders as '.'.
const lastControlChar = 0x1F

// FormatHex renders data as space separated hex pairs followed by a newline,
// e.g. "ab 01 \n".
func FormatHex(data []byte) string {
	var b strings.Builder
	b.Grow(len(data)*3 + 1)
	for _, v := range data {
		_, _ = fmt.Fprintf(&b, "%02x ", v)
	}
	b.WriteByte('\n')
	return b.String()
}

// FormatHexChar renders data as a run of hex pairs, two spaces, then each
// byte as a character with control bytes shown as '.', e.g. "4102  A.".
func FormatHexChar(data []byte) string {
	var b strings.Builder
	b.Grow(len(data)*3 + 2)
	for _, v := range data {
		_, _ = fmt.Fprintf(&b, "%02x", v)
	}
	b.WriteString("  ")
	for _, v := range data {
		if v <= lastControlChar {
			b.WriteByte('.')
		} else {
			b.WriteByte(v)
		}
	}
	return b.String()
}

// PrintHex writes FormatHex(data) to w.
func PrintHex(w io.Writer, data []byte) {
	_, _ = io.WriteString(w, FormatHex(data))
}

// PrintHexChar writes FormatHexChar(data) and a newline to w.
func PrintHexChar(w io.Writer, data []byte) {
	_, _ = io.WriteString(w, FormatHexChar(data)+"\n")
}
