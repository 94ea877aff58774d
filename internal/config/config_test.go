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


//nolint:paralleltest // Tests use t.Setenv
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvConfig, EnvBus, EnvDevice, EnvDebug} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pn532.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "uart", cfg.Bus.Type)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Bus.Device)
	assert.Equal(t, 115200, cfg.Bus.BaudRate)
	assert.Equal(t, uint16(0x24), cfg.Bus.Address)
	assert.Equal(t, pn532.StateSleep, cfg.State())
	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
bus:
  type: i2c
  device: /dev/i2c-1
  address: 0x24
postInitState: ready
debug: true
logDir: /tmp/pn532
retry:
  maxAttempts: 5
  initialBackoffMs: 20
  maxBackoffMs: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "i2c", cfg.Bus.Type)
	assert.Equal(t, "/dev/i2c-1", cfg.Bus.Device)
	assert.Equal(t, 115200, cfg.Bus.BaudRate)
	assert.Equal(t, pn532.StateReady, cfg.State())
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/pn532", cfg.LogDir)

	rc := cfg.RetryPolicy()
	assert.Equal(t, 5, rc.MaxAttempts)
	assert.Equal(t, 20*time.Millisecond, rc.InitialBackoff)
	assert.Equal(t, 500*time.Millisecond, rc.MaxBackoff)
	assert.Equal(t, pn532.DefaultRetryConfig().BackoffMultiplier, rc.BackoffMultiplier)
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, writeConfig(t, "bus:\n  type: spi\n  device: SPI0.0\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "spi", cfg.Bus.Type)
	assert.Equal(t, "SPI0.0", cfg.Bus.Device)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "bus:\n  type: uart\n  device: /dev/ttyACM0\n")
	t.Setenv(EnvBus, "I2C")
	t.Setenv(EnvDevice, "/dev/i2c-2")
	t.Setenv(EnvDebug, "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "i2c", cfg.Bus.Type)
	assert.Equal(t, "/dev/i2c-2", cfg.Bus.Device)
	assert.True(t, cfg.Debug)
}

func TestApplyEnvOverrides_DebugValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "true", want: true},
		{value: "0", want: false},
		{value: "false", want: false},
		{value: "verbose", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvDebug, tt.value)
			cfg := Default()
			applyEnvOverrides(cfg)
			assert.Equal(t, tt.want, cfg.Debug)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown bus", body: "bus:\n  type: usb\n"},
		{name: "mock bus", body: "bus:\n  type: mock\n"},
		{name: "empty device", body: "bus:\n  device: \"\"\n"},
		{name: "zero baud", body: "bus:\n  baudRate: 0\n"},
		{name: "bad address", body: "bus:\n  type: i2c\n  address: 0x80\n"},
		{name: "bad spi frequency", body: "bus:\n  type: spi\n  frequencyHz: 0\n"},
		{name: "bad post init state", body: "postInitState: uninitialised\n"},
		{name: "too many attempts", body: "retry:\n  maxAttempts: 11\n"},
		{name: "inverted backoff", body: "retry:\n  initialBackoffMs: 100\n  maxBackoffMs: 10\n"},
		{name: "unknown field", body: "bogus: 1\n"},
		{name: "malformed", body: "bus: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
