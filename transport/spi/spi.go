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


// Package spi implements pn532.Bus over SPI using periph.io.
//
// The PN532 shifts bits LSB first while most SPI controllers are MSB first,
// so every byte crossing the wire is bit-reversed.
package spi

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/frame"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/syncutil"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// SPI operation bytes, before bit reversal.
	spiDataWrite = 0x01
	spiStatRead  = 0x02
	spiDataRead  = 0x03
	spiReady     = 0x01

	// DefaultFrequency is the clock used when connecting the port.
	DefaultFrequency = 1 * physic.MegaHertz

	mode         = spi.Mode0
	pollInterval = time.Millisecond
)

// Opener opens an SPI port by name. The default initialises the periph host
// drivers and uses spireg.
type Opener func(name string) (spi.PortCloser, error)

func openHost(name string) (spi.PortCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", name, err)
	}
	return port, nil
}

// Option configures a Bus.
type Option func(*Bus)

// WithOpener replaces the periph port lookup.
func WithOpener(open Opener) Option {
	return func(b *Bus) {
		b.open = open
	}
}

// WithFrequency overrides the SPI clock.
func WithFrequency(f physic.Frequency) Option {
	return func(b *Bus) {
		b.freq = f
	}
}

// Bus implements pn532.Bus for SPI communication.
type Bus struct {
	port     spi.PortCloser
	conn     spi.Conn
	open     Opener
	portName string
	freq     physic.Frequency
	mu       syncutil.Mutex
}

// New creates an SPI bus for portName (e.g. "/dev/spidev0.0" or "SPI0.0").
// The port is opened by HardwareInit.
func New(portName string, opts ...Option) *Bus {
	b := &Bus{
		portName: portName,
		open:     openHost,
		freq:     DefaultFrequency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HardwareInit opens and connects the port in mode 0 and reports StateSleep.
func (b *Bus) HardwareInit(ctx context.Context) (pn532.DeviceState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		port, err := b.open(b.portName)
		if err != nil {
			return pn532.StateUninitialised, err
		}
		conn, err := port.Connect(b.freq, mode, 8)
		if err != nil {
			_ = port.Close()
			return pn532.StateUninitialised, fmt.Errorf("failed to connect SPI: %w", err)
		}
		b.port = port
		b.conn = conn
	}

	if err := sleepCtx(ctx, pn532.HardwareInitDelay); err != nil {
		return pn532.StateUninitialised, err
	}
	return pn532.StateSleep, nil
}

// Wakeup pulses chip select with a dummy byte, then sends SAMConfiguration
// (normal mode) and checks the reply.
func (b *Bus) Wakeup(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return pn532.NewTransportClosedError("wakeup", b.portName)
	}

	sam, err := frame.Command(pn532.SAMConfigurationCommand(pn532.SAMModeNormal))
	if err != nil {
		return err
	}
	_ = b.conn.Tx([]byte{0x00}, make([]byte, 1)) // Wake pulse, reply is noise
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
		return pn532.NewInvalidResponseError("wakeup", b.portName)
	}
	return nil
}

// SendCommand frames cmd, writes it and waits for the ACK.
func (b *Bus) SendCommand(ctx context.Context, cmd []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return pn532.NewTransportClosedError("sendCommand", b.portName)
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

	if b.conn == nil {
		return 0, pn532.NewTransportClosedError("readResponse", b.portName)
	}

	payload, err := b.receive(ctx, "readResponse")
	if err != nil {
		return 0, err
	}
	if len(payload) > len(buf) {
		return 0, pn532.NewBufferTooSmallError("readResponse", b.portName)
	}
	return copy(buf, payload), nil
}

// Close releases the port.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	b.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close SPI port: %w", err)
	}
	return nil
}

// Type returns the bus type
func (*Bus) Type() pn532.BusType {
	return pn532.BusSPI
}

func reverseBytes(dst, src []byte) {
	for i, v := range src {
		dst[i] = bits.Reverse8(v)
	}
}

// writeData sends frm behind the data-write operation byte.
func (b *Bus) writeData(op string, frm []byte) error {
	w := make([]byte, 1+len(frm))
	w[0] = bits.Reverse8(spiDataWrite)
	reverseBytes(w[1:], frm)
	if err := b.conn.Tx(w, make([]byte, len(w))); err != nil {
		return pn532.NewTransportError(op, b.portName,
			fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}
	return nil
}

func isTransientACKError(err error) bool {
	return errors.Is(err, pn532.ErrNoACK) ||
		errors.Is(err, pn532.ErrNACKReceived) ||
		errors.Is(err, pn532.ErrFrameCorrupted)
}

func (b *Bus) sendWithACKRetry(ctx context.Context, op string, frm []byte) error {
	delays := []time.Duration{pn532.TransportACKDelay1, pn532.TransportACKDelay2, pn532.TransportACKDelay3}

	var lastErr error
	for attempt := range pn532.TransportACKRetries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.writeData(op, frm); err != nil {
			return err
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

// waitReady polls the status register until the chip has data or timeout
// passes.
func (b *Bus) waitReady(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	w := []byte{bits.Reverse8(spiStatRead), 0x00}
	r := make([]byte, len(w))

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := b.conn.Tx(w, r); err != nil {
			return false, pn532.NewTransportError("checkReady", b.portName,
				fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
		}
		if bits.Reverse8(r[1]) == spiReady {
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

// readFrame clocks out n bytes behind the data-read operation byte and
// decodes them.
func (b *Bus) readFrame(op string, n int) (frame.Frame, error) {
	w := make([]byte, 1+n)
	w[0] = bits.Reverse8(spiDataRead)
	r := make([]byte, len(w))
	if err := b.conn.Tx(w, r); err != nil {
		return frame.Frame{}, pn532.NewTransportError(op, b.portName,
			fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
	}
	data := r[1:]
	reverseBytes(data, data)

	f, _, err := frame.Decode(data)
	if errors.Is(err, frame.ErrIncomplete) {
		return frame.Frame{}, pn532.NewFrameCorruptedError(op, b.portName)
	}
	if err != nil {
		return frame.Frame{}, pn532.NewTransportError(op, b.portName, err, pn532.ErrorTypeTransient)
	}
	return f, nil
}

func (b *Bus) waitAck(ctx context.Context, op string) error {
	ready, err := b.waitReady(ctx, pn532.TransportACKTimeout)
	if err != nil {
		return err
	}
	if !ready {
		return pn532.NewNoACKError(op, b.portName)
	}

	f, err := b.readFrame(op, len(frame.AckFrame))
	switch {
	case err != nil:
		return err
	case f.Kind == frame.KindNACK:
		return pn532.NewTransportError(op, b.portName, pn532.ErrNACKReceived, pn532.ErrorTypeTransient)
	case f.Kind != frame.KindACK:
		return pn532.NewFrameCorruptedError(op, b.portName)
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
			return nil, pn532.NewTimeoutError(op, b.portName)
		}

		f, err := b.readFrame(op, frame.MaxFrameLength)
		if err != nil {
			if !errors.Is(err, pn532.ErrChecksumMismatch) && !errors.Is(err, pn532.ErrFrameCorrupted) {
				return nil, err
			}
			lastErr = err
			pn532.Debugf("SPI %s: %v, sending NACK", b.portName, err)
			if err := b.writeData(op, frame.NackFrame); err != nil {
				return nil, err
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
		if err := b.writeData(op, frame.AckFrame); err != nil {
			return nil, err
		}
		return payload, nil
	}

	if lastErr == nil {
		lastErr = pn532.NewInvalidResponseError(op, b.portName)
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
