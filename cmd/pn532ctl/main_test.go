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


package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/config"
	"github.com/ZaparooProject/go-pn532-gatekeeper/transport/uart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{in: "02", want: []byte{0x02}},
		{in: "4A 01 00", want: []byte{0x4A, 0x01, 0x00}},
		{in: "0x16:0x01", want: []byte{0x16, 0x01}},
		{in: "", wantErr: true},
		{in: "zz", wantErr: true},
		{in: "123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseCommand(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	opts, set, err := parseFlags([]string{"-bus", "i2c", "-device", "/dev/i2c-1", "-sleep"})
	require.NoError(t, err)
	assert.Equal(t, "i2c", opts.bus)
	assert.Equal(t, "02", opts.cmdHex)
	assert.Equal(t, 64, opts.readSize)
	assert.True(t, opts.sleep)
	assert.True(t, set["bus"])
	assert.False(t, set["cmd"])

	_, _, err = parseFlags([]string{"-nope"})
	require.Error(t, err)
}

//nolint:paralleltest // Uses t.Setenv
func TestResolveConfig_FlagsOverride(t *testing.T) {
	for _, key := range []string{config.EnvConfig, config.EnvBus, config.EnvDevice, config.EnvDebug} {
		t.Setenv(key, "")
	}

	opts, set, err := parseFlags([]string{"-bus", "SPI", "-device", "SPI0.0", "-retries", "1", "-debug"})
	require.NoError(t, err)

	cfg, err := resolveConfig(opts, set)
	require.NoError(t, err)
	assert.Equal(t, "spi", cfg.Bus.Type)
	assert.Equal(t, "SPI0.0", cfg.Bus.Device)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Debug)

	opts, set, err = parseFlags([]string{"-retries", "0"})
	require.NoError(t, err)
	_, err = resolveConfig(opts, set)
	require.Error(t, err)
}

func TestNewBus(t *testing.T) {
	t.Parallel()

	for _, bus := range []pn532.BusType{pn532.BusUART, pn532.BusI2C, pn532.BusSPI} {
		cfg := config.Default()
		cfg.Bus.Type = string(bus)
		b, err := newBus(cfg)
		require.NoError(t, err)
		assert.Equal(t, bus, b.Type())
	}

	cfg := config.Default()
	cfg.Bus.Type = "usb"
	_, err := newBus(cfg)
	require.Error(t, err)
}

func TestDecorate(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Debug = true
	bus := decorate(pn532.NewMockBus(), cfg)
	retry, ok := bus.(*pn532.BusWithRetry)
	require.True(t, ok)
	_, ok = retry.Unwrap().(*pn532.DebugBus)
	assert.True(t, ok)

	cfg = config.Default()
	cfg.Retry.MaxAttempts = 1
	mock := pn532.NewMockBus()
	assert.Same(t, pn532.Bus(mock), decorate(mock, cfg))
}

func TestRun_Exchange(t *testing.T) {
	t.Parallel()

	mock := pn532.NewMockBus()
	mock.SetResponse(pn532.CmdGetFirmwareVersion, []byte{0x03, 0x32, 0x01, 0x06, 0x07})
	var out bytes.Buffer

	err := run(context.Background(), &out, config.Default(), mock, pn532.NewPCB(), &options{cmdHex: "02", readSize: 16})
	require.NoError(t, err)
	assert.Equal(t, "TX: 02 \nRX: 03 32 01 06 07 \n0332010607  .2...\n", out.String())
	assert.True(t, mock.Closed())
}

func TestRun_Sleep(t *testing.T) {
	t.Parallel()

	mock := pn532.NewMockBus()
	mock.SetResponse(pn532.CmdGetGeneralStatus, []byte{0x05, 0x00, 0x00, 0x00})
	mock.SetResponse(pn532.CmdPowerDown, []byte{0x17, 0x00})
	pcb := pn532.NewPCB()
	var out bytes.Buffer

	err := run(context.Background(), &out, config.Default(), mock, pcb, &options{cmdHex: "04", readSize: 16, sleep: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "PN532 powered down")
	assert.Equal(t, pn532.StateSleep, pcb.State())
	assert.Equal(t, []byte{pn532.CmdPowerDown, pn532.WakeupHSU}, mock.Sent()[1])
}

func TestRun_UnableToInitialise(t *testing.T) {
	t.Parallel()

	mock := pn532.NewMockBus()
	mock.SetInitState(pn532.DeviceState(7))
	var out bytes.Buffer

	err := run(context.Background(), &out, config.Default(), mock, pn532.NewPCB(), &options{cmdHex: "02", readSize: 16})
	require.ErrorIs(t, err, pn532.ErrUnableToInitialise)
	assert.Contains(t, out.String(), "PCB: DeviceState(7) initialised=true")
	assert.Empty(t, mock.Sent())
}

func TestRun_WriteOnly(t *testing.T) {
	t.Parallel()

	mock := pn532.NewMockBus()
	var out bytes.Buffer

	err := run(context.Background(), &out, config.Default(), mock, pn532.NewPCB(), &options{cmdHex: "4A 01 00"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x4A, 0x01, 0x00}}, mock.Sent())
	assert.Zero(t, mock.CallCount(pn532.CallReadResponse))
}

func TestWakeupSource(t *testing.T) {
	t.Parallel()
	assert.Equal(t, pn532.WakeupHSU, wakeupSource(pn532.BusUART))
	assert.Equal(t, pn532.WakeupI2C, wakeupSource(pn532.BusI2C))
	assert.Equal(t, pn532.WakeupSPI, wakeupSource(pn532.BusSPI))
}

func TestPrintPorts(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printPorts(&out, nil)
	assert.Equal(t, "No serial ports found\n", out.String())

	out.Reset()
	printPorts(&out, []uart.PortInfo{
		{Name: "/dev/ttyUSB0", VIDPID: "1A86:7523", IsUSB: true},
		{Name: "/dev/ttyS0"},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "* /dev/ttyUSB0"))
	assert.True(t, strings.HasPrefix(lines[1], "  /dev/ttyS0"))
}
