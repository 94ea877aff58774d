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

package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig configures the behavior of JitteryConnection.
type JitterConfig struct {
	// MaxLatency is the upper bound of the random delay before each read.
	MaxLatency time.Duration
	// MaxFragment caps how many bytes one read returns (0 = no cap beyond
	// the random split).
	MaxFragment int
	// Seed makes the sequence reproducible when non-zero.
	Seed uint64
}

// JitteryConnection wraps an io.ReadWriter and delivers reads in random
// fragments after a random delay, the way USB-UART bridges (FTDI, CH340) do.
// Writes pass through untouched.
type JitteryConnection struct {
	backend io.ReadWriter
	rng     *rand.Rand
	config  JitterConfig
}

// NewJitteryConnection wraps a backend io.ReadWriter with jitter simulation.
func NewJitteryConnection(backend io.ReadWriter, config JitterConfig) *JitteryConnection {
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // Test code, not crypto
	}
	return &JitteryConnection{
		backend: backend,
		config:  config,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)), //nolint:gosec // Test code, not crypto
	}
}

// Write passes writes through to the backend.
func (j *JitteryConnection) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Read reads at most a random-sized prefix of buf from the backend.
func (j *JitteryConnection) Read(buf []byte) (int, error) {
	if j.config.MaxLatency > 0 {
		time.Sleep(time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1)))
	}
	if len(buf) == 0 {
		return 0, nil
	}

	limit := len(buf)
	if j.config.MaxFragment > 0 && j.config.MaxFragment < limit {
		limit = j.config.MaxFragment
	}
	return j.backend.Read(buf[:1+j.rng.IntN(limit)]) //nolint:wrapcheck // Pass-through wrapper
}
