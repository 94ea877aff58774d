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


//nolint:paralleltest // Test file - parallel tests add complexity
package spi

import (
	"context"
	"errors"
	"math/bits"
	"testing"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	virt "github.com/ZaparooProject/go-pn532-gatekeeper/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errPortClosed = errors.New("port closed")

// MockSPIConn wraps VirtualPN532 to implement spi.Conn, decoding the
// bit-reversed operation byte that starts every transaction.
type MockSPIConn struct {
	sim    *virt.VirtualPN532
	pulses int
	closed bool
}

func (m *MockSPIConn) Tx(w, r []byte) error {
	if m.closed {
		return errPortClosed
	}
	if len(w) == 0 {
		return nil
	}

	switch bits.Reverse8(w[0]) {
	case spiStatRead:
		if len(r) > 1 {
			r[1] = 0x00
			if m.sim.HasPendingResponse() {
				r[1] = bits.Reverse8(spiReady)
			}
		}
	case spiDataWrite:
		data := make([]byte, len(w)-1)
		reverseBytes(data, w[1:])
		if _, err := m.sim.Write(data); err != nil {
			return err
		}
	case spiDataRead:
		if len(r) > 1 {
			n, err := m.sim.Read(r[1:])
			if err != nil {
				return err
			}
			clear(r[1+n:])
			reverseBytes(r[1:1+n], r[1:1+n])
		}
	default:
		m.pulses++
	}
	return nil
}

func (*MockSPIConn) Duplex() conn.Duplex { return conn.Full }

func (*MockSPIConn) String() string { return "mock://spi" }

func (m *MockSPIConn) TxPackets(p []spi.Packet) error {
	for _, pkt := range p {
		if err := m.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

// MockSPIPort implements spi.PortCloser.
type MockSPIPort struct {
	conn *MockSPIConn
	freq physic.Frequency
	mode spi.Mode
}

func (p *MockSPIPort) Connect(f physic.Frequency, mode spi.Mode, _ int) (spi.Conn, error) {
	p.freq = f
	p.mode = mode
	p.conn.closed = false
	return p.conn, nil
}

func (p *MockSPIPort) Close() error {
	p.conn.closed = true
	return nil
}

func (*MockSPIPort) String() string { return "mock-spi" }

func (*MockSPIPort) LimitSpeed(_ physic.Frequency) error { return nil }

var _ spi.PortCloser = (*MockSPIPort)(nil)

func newSimBus(sim *virt.VirtualPN532, opts ...Option) (*Bus, *MockSPIPort) {
	sim.SetWakeOnAnyWrite(true)
	port := &MockSPIPort{conn: &MockSPIConn{sim: sim}}
	opts = append([]Option{WithOpener(func(string) (spi.PortCloser, error) { return port, nil })}, opts...)
	return New("SPI0.0", opts...), port
}

func TestReverseBytes(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x80, 0xD4}
	reverseBytes(buf, buf)
	assert.Equal(t, []byte{0x80, 0x40, 0x01, 0x2B}, buf)
}

func TestHardwareInit(t *testing.T) {
	bus, port := newSimBus(virt.NewVirtualPN532(), WithFrequency(500*physic.KiloHertz))

	state, err := bus.HardwareInit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pn532.StateSleep, state)
	assert.Equal(t, 500*physic.KiloHertz, port.freq)
	assert.Equal(t, spi.Mode0, port.mode)
	assert.Equal(t, pn532.BusSPI, bus.Type())
}

func TestHardwareInit_OpenFailure(t *testing.T) {
	errNoPort := errors.New("no port")
	bus := New("SPI9.9", WithOpener(func(string) (spi.PortCloser, error) { return nil, errNoPort }))

	_, err := bus.HardwareInit(context.Background())
	require.ErrorIs(t, err, errNoPort)
}

func TestWakeup_SendsPulseAndSAM(t *testing.T) {
	sim := virt.NewVirtualPN532()
	bus, port := newSimBus(sim)
	ctx := context.Background()

	_, err := bus.HardwareInit(ctx)
	require.NoError(t, err)
	require.NoError(t, bus.Wakeup(ctx))

	assert.Equal(t, 1, port.conn.pulses)
	assert.True(t, sim.GetState().SAMConfigured)
	assert.Equal(t, []byte{pn532.CmdSAMConfiguration}, sim.Commands())
}

func TestGatekeeper_FirmwareRoundTrip(t *testing.T) {
	sim := virt.NewVirtualPN532()
	bus, _ := newSimBus(sim)

	gk, err := pn532.New(bus)
	require.NoError(t, err)

	fw, err := gk.FirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(0x32), fw.IC)
	assert.Equal(t, "1.6", fw.String())
	assert.Equal(t, []byte{pn532.CmdSAMConfiguration, pn532.CmdGetFirmwareVersion}, sim.Commands())
}

func TestSendCommand_ACKRetry(t *testing.T) {
	sim := virt.NewVirtualPN532()
	bus, _ := newSimBus(sim)
	ctx := context.Background()

	_, err := bus.HardwareInit(ctx)
	require.NoError(t, err)

	sim.DropNextACK()
	sim.DropResponses(1)
	require.NoError(t, bus.SendCommand(ctx, []byte{pn532.CmdGetFirmwareVersion}))

	buf := make([]byte, 16)
	n, err := bus.ReadResponse(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, buf[:n])
}

func TestReadResponse_ChecksumErrorIsNACKed(t *testing.T) {
	sim := virt.NewVirtualPN532()
	bus, _ := newSimBus(sim)
	ctx := context.Background()

	_, err := bus.HardwareInit(ctx)
	require.NoError(t, err)

	sim.InjectChecksumError()
	require.NoError(t, bus.SendCommand(ctx, []byte{pn532.CmdGetFirmwareVersion}))

	buf := make([]byte, 16)
	n, err := bus.ReadResponse(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestReadResponse_ErrorFrame(t *testing.T) {
	bus, _ := newSimBus(virt.NewVirtualPN532())
	ctx := context.Background()

	_, err := bus.HardwareInit(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.SendCommand(ctx, []byte{0x4A, 0x01, 0x00}))
	_, err = bus.ReadResponse(ctx, make([]byte, 16))
	var pe *pn532.PN532Error
	require.ErrorAs(t, err, &pe)
}

func TestClosedBus(t *testing.T) {
	bus, port := newSimBus(virt.NewVirtualPN532())
	ctx := context.Background()

	_, err := bus.HardwareInit(ctx)
	require.NoError(t, err)
	require.NoError(t, bus.Close())
	assert.True(t, port.conn.closed)
	require.NoError(t, bus.Close())

	require.ErrorIs(t, bus.SendCommand(ctx, []byte{0x02}), pn532.ErrTransportClosed)
	require.ErrorIs(t, bus.Wakeup(ctx), pn532.ErrTransportClosed)
	_, err = bus.ReadResponse(ctx, make([]byte, 4))
	require.ErrorIs(t, err, pn532.ErrTransportClosed)
}
