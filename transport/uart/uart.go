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

// Package uart implements pn532.Bus over a High Speed UART (HSU) link.
package uart

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/frame"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/syncutil"
	"go.bug.st/serial"
)

// DefaultBaudRate is the PN532 HSU default.
const DefaultBaudRate = 115200

// wakeSequence precedes the first frame after power-down: the HSU wake
// bytes followed by enough preamble for the oscillator to start.
var wakeSequence = []byte{0x55, 0x55, 0x00, 0x00, 0x00}

// Opener opens a serial port. serial.Open is used unless WithOpener says
// otherwise.
type Opener func(portName string, mode *serial.Mode) (serial.Port, error)

// Option configures a Bus.
type Option func(*Bus)

// WithOpener replaces serial.Open, e.g. with a simulator in tests.
func WithOpener(open Opener) Option {
	return func(b *Bus) {
		b.open = open
	}
}

// WithBaudRate sets the line speed.
func WithBaudRate(baud int) Option {
	return func(b *Bus) {
		b.mode.BaudRate = baud
	}
}

// Bus implements pn532.Bus for UART communication.
type Bus struct {
	port     serial.Port
	open     Opener
	portName string
	pending  []byte
	mode     serial.Mode
	mu       syncutil.Mutex
}

// New creates a UART bus for portName. The port is opened by HardwareInit.
func New(portName string, opts ...Option) *Bus {
	b := &Bus{
		portName: portName,
		open:     serial.Open,
		mode: serial.Mode{
			BaudRate: DefaultBaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// readPollTimeout is the serial read timeout. 50ms is enough on Linux and
// macOS, Windows drivers need 100ms.
func readPollTimeout() time.Duration {
	if runtime.GOOS == "windows" {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// HardwareInit opens the port (or flushes it when already open) and reports
// StateSleep: the chip needs SAMConfiguration before it answers.
func (b *Bus) HardwareInit(ctx context.Context) (pn532.DeviceState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		port, err := b.open(b.portName, &b.mode)
		if err != nil {
			return pn532.StateUninitialised, fmt.Errorf("failed to open UART port %s: %w", b.portName, err)
		}
		if err := port.SetReadTimeout(readPollTimeout()); err != nil {
			_ = port.Close()
			return pn532.StateUninitialised, fmt.Errorf("failed to set UART read timeout: %w", err)
		}
		b.port = port
	} else if err := b.port.ResetInputBuffer(); err != nil {
		return pn532.StateUninitialised, fmt.Errorf("UART input flush failed: %w", err)
	}
	b.pending = nil

	if err := sleepCtx(ctx, pn532.HardwareInitDelay); err != nil {
		return pn532.StateUninitialised, err
	}
	return pn532.StateSleep, nil
}

// Wakeup sends the HSU wake sequence together with SAMConfiguration
// (normal mode) and waits for the chip to answer it.
func (b *Bus) Wakeup(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		return pn532.NewTransportClosedError("wakeup", b.portName)
	}

	sam, err := frame.Command(pn532.SAMConfigurationCommand(pn532.SAMModeNormal))
	if err != nil {
		return err
	}
	b.pending = nil
	if err := b.write(ctx, "wakeup", append(append([]byte(nil), wakeSequence...), sam...)); err != nil {
		return err
	}
	if err := b.waitAck(ctx, "wakeup"); err != nil {
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

	if b.port == nil {
		return pn532.NewTransportClosedError("sendCommand", b.portName)
	}

	frm, err := frame.Command(cmd)
	if err != nil {
		return err
	}
	b.pending = nil
	if err := b.write(ctx, "sendCommand", frm); err != nil {
		return err
	}
	return b.waitAck(ctx, "sendCommand")
}

// ReadResponse reads one response frame, acknowledges it and copies the
// payload into buf.
func (b *Bus) ReadResponse(ctx context.Context, buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
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

// Close closes the port. Further calls fail until HardwareInit reopens it.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	b.pending = nil
	if err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

// Type returns the bus type
func (*Bus) Type() pn532.BusType {
	return pn532.BusUART
}

// PortName returns the serial port the bus was created for.
func (b *Bus) PortName() string {
	return b.portName
}

func (b *Bus) write(ctx context.Context, op string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := b.port.Write(data)
	if err != nil {
		return pn532.NewTransportError(op, b.portName, fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}
	if n != len(data) {
		return pn532.NewTransportWriteError(op, b.portName)
	}
	return b.drainWithRetry(op)
}

// waitAck reads the ACK that follows every host frame.
func (b *Bus) waitAck(ctx context.Context, op string) error {
	f, err := b.readFrame(ctx, pn532.TransportACKTimeout)
	switch {
	case errors.Is(err, pn532.ErrTransportTimeout):
		return pn532.NewNoACKError(op, b.portName)
	case err != nil:
		return pn532.NewTransportError(op, b.portName, err, pn532.ErrorTypeTransient)
	case f.Kind == frame.KindNACK:
		return pn532.NewTransportError(op, b.portName, pn532.ErrNACKReceived, pn532.ErrorTypeTransient)
	case f.Kind != frame.KindACK:
		return pn532.NewInvalidResponseError(op, b.portName)
	}
	return nil
}

// receive reads a response frame, NACKing corrupt ones, and ACKs the good one.
func (b *Bus) receive(ctx context.Context, op string) ([]byte, error) {
	var lastErr error
	for range pn532.TransportFrameRetries + 1 {
		f, err := b.readFrame(ctx, pn532.TransportResponseTimeout)
		if err != nil {
			if !errors.Is(err, pn532.ErrChecksumMismatch) && !errors.Is(err, pn532.ErrFrameCorrupted) {
				return nil, err
			}
			lastErr = pn532.NewTransportError(op, b.portName, err, pn532.ErrorTypeTransient)
			pn532.Debugf("UART %s: %v, sending NACK", b.portName, err)
			b.pending = nil
			if err := b.write(ctx, op, frame.NackFrame); err != nil {
				return nil, err
			}
			continue
		}
		if f.Kind == frame.KindACK {
			// Stray ACK from a repeated command.
			continue
		}

		payload, err := frame.Response(f, op)
		if err != nil {
			return nil, err
		}
		if err := b.write(ctx, op, frame.AckFrame); err != nil {
			return nil, err
		}
		return payload, nil
	}

	if lastErr == nil {
		lastErr = pn532.NewInvalidResponseError(op, b.portName)
	}
	return nil, lastErr
}

// readFrame returns the next frame from the port, buffering any bytes
// received past it for the next call.
func (b *Bus) readFrame(ctx context.Context, timeout time.Duration) (frame.Frame, error) {
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 64)

	for {
		if len(b.pending) > 0 {
			f, n, err := frame.Decode(b.pending)
			if !errors.Is(err, frame.ErrIncomplete) {
				b.pending = b.pending[n:]
				return f, err
			}
			if len(b.pending) > 2*frame.MaxFrameLength {
				b.pending = b.pending[len(b.pending)-frame.MaxFrameLength:]
			}
		}

		if err := ctx.Err(); err != nil {
			return frame.Frame{}, fmt.Errorf("UART read cancelled: %w", err)
		}
		if time.Now().After(deadline) {
			return frame.Frame{}, pn532.NewTimeoutError("readFrame", b.portName)
		}

		n, err := b.port.Read(chunk)
		if err != nil {
			return frame.Frame{}, pn532.NewTransportError("readFrame", b.portName,
				fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		b.pending = append(b.pending, chunk[:n]...)
	}
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for the output buffer to empty, retrying on EINTR.
func (b *Bus) drainWithRetry(op string) error {
	const maxRetries = 3
	delay := 2 * time.Millisecond

	var err error
	for range maxRetries {
		if err = b.port.Drain(); err == nil {
			return nil
		}
		if !isInterruptedSystemCall(err) {
			break
		}
		time.Sleep(delay)
		delay *= 2
	}
	return fmt.Errorf("UART %s drain failed: %w", op, err)
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
