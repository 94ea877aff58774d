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

// Package i2c implements pn532.Bus over I2C using periph.io.
package i2c

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/frame"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/syncutil"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the PN532 7-bit I2C address.
	DefaultAddress = 0x24

	// pn532Ready is the status byte that precedes every read once the chip
	// has data.
	pn532Ready = 0x01

	maxClockFreq = 400 * physic.KiloHertz
	pollInterval = time.Millisecond
)

// Opener opens an I2C bus by name. The default initialises the periph host
// drivers and uses i2creg.
type Opener func(name string) (i2c.BusCloser, error)

func openHost(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", name, err)
	}
	return bus, nil
}

// Option configures a Bus.
type Option func(*Bus)

// WithOpener replaces the periph bus lookup, e.g. with a simulator in tests.
func WithOpener(open Opener) Option {
	return func(b *Bus) {
		b.open = open
	}
}

// WithAddress overrides the device address.
func WithAddress(addr uint16) Option {
	return func(b *Bus) {
		b.addr = addr
	}
}

// Bus implements pn532.Bus for I2C communication.
type Bus struct {
	bus     i2c.BusCloser // Held so Close() can release the OS file descriptor
	dev     *i2c.Dev
	open    Opener
	busName string
	mu      syncutil.Mutex
	addr    uint16
}

// New creates an I2C bus. busName is a periph bus name such as "1" or
// "/dev/i2c-1"; anything after a ':' is ignored so detection paths of the
// form "bus:address" work too. The bus is opened by HardwareInit.
func New(busName string, opts ...Option) *Bus {
	b := &Bus{
		busName: parseI2CPath(busName),
		open:    openHost,
		addr:    DefaultAddress,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func parseI2CPath(path string) string {
	bus, _, _ := strings.Cut(path, ":")
	return bus
}

// HardwareInit opens the bus at up to 400 kHz and reports StateSleep.
func (b *Bus) HardwareInit(ctx context.Context) (pn532.DeviceState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		bus, err := b.open(b.busName)
		if err != nil {
			return pn532.StateUninitialised, err
		}
		_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed
		b.bus = bus
		b.dev = &i2c.Dev{Addr: b.addr, Bus: bus}
	}

	if err := sleepCtx(ctx, pn532.HardwareInitDelay); err != nil {
		return pn532.StateUninitialised, err
	}
	return pn532.StateSleep, nil
}

// Wakeup sends SAMConfiguration (normal mode). The address phase of the
// first attempt wakes the chip; it may miss that frame, so the ACK wait is
// retried with growing delays.
func (b *Bus) Wakeup(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return pn532.NewTransportClosedError("wakeup", b.busName)
	}

	sam, err := frame.Command(pn532.SAMConfigurationCommand(pn532.SAMModeNormal))
	if err != nil {
		return err
	}
	if err := sleepCtx(ctx, pn532.WakeupSettleDelay); err != nil {
		return err
	}
	if err := b.sendWithACKRetry(ctx, "wakeup", sam); err != nil {
		return err
	}

	payload, err := b.receive(ctx, "SAMConfiguration")
	if err != nil {
		return err
	}
	if payload[0] != pn532.ResponseCode(pn532.CmdSAMConfiguration) {
		return pn532.NewInvalidResponseError("wakeup", b.busName)
	}
	return nil
}

// SendCommand frames cmd, writes it and waits for the ACK.
func (b *Bus) SendCommand(ctx context.Context, cmd []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return pn532.NewTransportClosedError("sendCommand", b.busName)
	}

	frm, err := frame.Command(cmd)
	if err != nil {
		return err
	}
	return b.sendWithACKRetry(ctx, "sendCommand", frm)
}

// ReadResponse waits for the chip to be ready, reads one response frame,
// acknowledges it and copies the payload into buf.
func (b *Bus) ReadResponse(ctx context.Context, buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return 0, pn532.NewTransportClosedError("readResponse", b.busName)
	}

	payload, err := b.receive(ctx, "readResponse")
	if err != nil {
		return 0, err
	}
	if len(payload) > len(buf) {
		return 0, pn532.NewBufferTooSmallError("readResponse", b.busName)
	}
	return copy(buf, payload), nil
}

// Close releases the bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bus == nil {
		return nil
	}
	err := b.bus.Close()
	b.bus = nil
	b.dev = nil
	if err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}

// Type returns the bus type
func (*Bus) Type() pn532.BusType {
	return pn532.BusI2C
}

func isTransientACKError(err error) bool {
	return errors.Is(err, pn532.ErrNoACK) ||
		errors.Is(err, pn532.ErrNACKReceived) ||
		errors.Is(err, pn532.ErrFrameCorrupted)
}

// sendWithACKRetry sends frm and waits for the ACK, resending after
// progressively longer delays when none arrives.
func (b *Bus) sendWithACKRetry(ctx context.Context, op string, frm []byte) error {
	delays := []time.Duration{pn532.TransportACKDelay1, pn532.TransportACKDelay2, pn532.TransportACKDelay3}

	var lastErr error
	for attempt := range pn532.TransportACKRetries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := b.dev.Tx(frm, nil); err != nil {
			return pn532.NewTransportError(op, b.busName,
				fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
		}

		err := b.waitAck(ctx, op)
		if err == nil {
			return nil
		}
		if !isTransientACKError(err) {
			return err
		}
		lastErr = err

		if attempt < pn532.TransportACKRetries-1 {
			if err := sleepCtx(ctx, delays[attempt]); err != nil {
				return err
			}
		}
	}

	return lastErr
}

// waitReady polls the status byte until the chip has data or timeout passes.
func (b *Bus) waitReady(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	status := make([]byte, 1)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := b.dev.Tx(nil, status); err != nil {
			return false, pn532.NewTransportError("checkReady", b.busName,
				fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
		}
		if status[0] == pn532Ready {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := sleepCtx(ctx, pollInterval); err != nil {
			return false, err
		}
	}
}

// readFrame reads status byte plus n bytes in one transaction and decodes
// the frame after the status byte.
func (b *Bus) readFrame(op string, n int) (frame.Frame, error) {
	raw := make([]byte, 1+n)
	if err := b.dev.Tx(nil, raw); err != nil {
		return frame.Frame{}, pn532.NewTransportError(op, b.busName,
			fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
	}
	if raw[0] != pn532Ready {
		return frame.Frame{}, pn532.NewTransportNotReadyError(op, b.busName)
	}

	f, _, err := frame.Decode(raw[1:])
	if errors.Is(err, frame.ErrIncomplete) {
		return frame.Frame{}, pn532.NewFrameCorruptedError(op, b.busName)
	}
	if err != nil {
		return frame.Frame{}, pn532.NewTransportError(op, b.busName, err, pn532.ErrorTypeTransient)
	}
	return f, nil
}

func (b *Bus) waitAck(ctx context.Context, op string) error {
	ready, err := b.waitReady(ctx, pn532.TransportACKTimeout)
	if err != nil {
		return err
	}
	if !ready {
		return pn532.NewNoACKError(op, b.busName)
	}

	f, err := b.readFrame(op, len(frame.AckFrame))
	switch {
	case err != nil:
		return err
	case f.Kind == frame.KindNACK:
		return pn532.NewTransportError(op, b.busName, pn532.ErrNACKReceived, pn532.ErrorTypeTransient)
	case f.Kind != frame.KindACK:
		return pn532.NewFrameCorruptedError(op, b.busName)
	}
	return nil
}

// receive reads a response frame, NACKing corrupt ones, and ACKs the good one.
func (b *Bus) receive(ctx context.Context, op string) ([]byte, error) {
	var lastErr error
	for range pn532.TransportFrameRetries + 1 {
		ready, err := b.waitReady(ctx, pn532.TransportResponseTimeout)
		if err != nil {
			return nil, err
		}
		if !ready {
			return nil, pn532.NewTimeoutError(op, b.busName)
		}

		f, err := b.readFrame(op, frame.MaxFrameLength)
		if err != nil {
			if !errors.Is(err, pn532.ErrChecksumMismatch) && !errors.Is(err, pn532.ErrFrameCorrupted) {
				return nil, err
			}
			lastErr = err
			pn532.Debugf("I2C %s: %v, sending NACK", b.busName, err)
			if err := b.dev.Tx(frame.NackFrame, nil); err != nil {
				return nil, fmt.Errorf("failed to send NACK: %w", err)
			}
			continue
		}
		if f.Kind == frame.KindACK {
			continue
		}

		payload, err := frame.Response(f, op)
		if err != nil {
			return nil, err
		}
		if err := b.dev.Tx(frame.AckFrame, nil); err != nil {
			return nil, fmt.Errorf("failed to send ACK: %w", err)
		}
		return payload, nil
	}

	if lastErr == nil {
		lastErr = pn532.NewInvalidResponseError(op, b.busName)
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ pn532.Bus = (*Bus)(nil)
