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


// Package config loads pn532ctl settings: built-in defaults, then an
// optional YAML file, then PN532_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	"gopkg.in/yaml.v2"
)

// Environment variables read by Load.
const (
	EnvConfig = "PN532_CONFIG"
	EnvBus    = "PN532_BUS"
	EnvDevice = "PN532_DEVICE"
	EnvDebug  = "PN532_DEBUG"
)

// Config represents the complete pn532ctl configuration
type Config struct {
	Bus           BusConfig   `yaml:"bus"`
	LogDir        string      `yaml:"logDir"`
	PostInitState string      `yaml:"postInitState"`
	Retry         RetryConfig `yaml:"retry"`
	Debug         bool        `yaml:"debug"`
}

// BusConfig selects and parameterises the physical link
type BusConfig struct {
	Type        string `yaml:"type"`   // uart, i2c or spi
	Device      string `yaml:"device"` // serial port, I2C bus or SPI port name
	BaudRate    int    `yaml:"baudRate"`
	FrequencyHz int64  `yaml:"frequencyHz"`
	Address     uint16 `yaml:"address"`
}

// RetryConfig holds BusWithRetry settings. MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts      int `yaml:"maxAttempts"`
	InitialBackoffMs int `yaml:"initialBackoffMs"`
	MaxBackoffMs     int `yaml:"maxBackoffMs"`
}

var validPostInitState = []string{"sleep", "ready"}

// Load builds the configuration. path may be empty, in which case
// PN532_CONFIG is consulted; a missing file there is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration: a UART PN532 on the usual
// Linux USB serial adapter.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Type:        string(pn532.BusUART),
			Device:      "/dev/ttyUSB0",
			BaudRate:    115200,
			FrequencyHz: 1_000_000,
			Address:     0x24,
		},
		PostInitState: "sleep",
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMs: 10,
			MaxBackoffMs:     1000,
		},
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename) //nolint:gosec // operator supplied path
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if bus := os.Getenv(EnvBus); bus != "" {
		cfg.Bus.Type = strings.ToLower(bus)
	}
	if device := os.Getenv(EnvDevice); device != "" {
		cfg.Bus.Device = device
	}
	if debug := os.Getenv(EnvDebug); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			cfg.Debug = on
		} else {
			cfg.Debug = true
		}
	}
}

// Validate checks the configuration for values no bus can use.
func (c *Config) Validate() error {
	if bt, ok := pn532.ParseBusType(c.Bus.Type); !ok || bt == pn532.BusMock {
		return fmt.Errorf("invalid bus type %q, must be one of: uart, i2c, spi", c.Bus.Type)
	}
	if c.Bus.Device == "" {
		return errors.New("bus device must be set")
	}
	if c.Bus.Type == string(pn532.BusUART) && c.Bus.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Bus.BaudRate)
	}
	if c.Bus.Type == string(pn532.BusSPI) && c.Bus.FrequencyHz <= 0 {
		return fmt.Errorf("invalid SPI frequency %d Hz", c.Bus.FrequencyHz)
	}
	if c.Bus.Type == string(pn532.BusI2C) && (c.Bus.Address == 0 || c.Bus.Address > 0x7F) {
		return fmt.Errorf("invalid I2C address 0x%02X", c.Bus.Address)
	}
	if !slices.Contains(validPostInitState, c.PostInitState) {
		return fmt.Errorf("invalid postInitState %q, must be one of: %v", c.PostInitState, validPostInitState)
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("retry maxAttempts %d is outside range [1, 10]", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoffMs < 0 || c.Retry.MaxBackoffMs < c.Retry.InitialBackoffMs {
		return fmt.Errorf("invalid retry backoff: initial=%dms, max=%dms",
			c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
	}
	return nil
}

// State returns the configured post-init state.
func (c *Config) State() pn532.DeviceState {
	if c.PostInitState == "ready" {
		return pn532.StateReady
	}
	return pn532.StateSleep
}

// RetryPolicy converts the retry section into a pn532.RetryConfig based on
// the library defaults.
func (c *Config) RetryPolicy() *pn532.RetryConfig {
	rc := pn532.DefaultRetryConfig()
	rc.MaxAttempts = c.Retry.MaxAttempts
	rc.InitialBackoff = time.Duration(c.Retry.InitialBackoffMs) * time.Millisecond
	rc.MaxBackoff = time.Duration(c.Retry.MaxBackoffMs) * time.Millisecond
	return rc
}
