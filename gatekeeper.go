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
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultPostInitState is the state assumed after a bring-up that did not
// report one. A PN532 out of reset needs SAMConfiguration before it answers,
// which is exactly what Wakeup sends.
const DefaultPostInitState = StateSleep

// Gatekeeper serialises access to a PN532 behind a Bus. Every Read and Write
// first makes sure the control block shows a usable device: it runs hardware
// bring-up when nothing has been initialised yet and wakes a sleeping chip,
// then dispatches to the bus only when the chip is ready.
//
// Thread Safety: a Gatekeeper is safe for concurrent use. The control block
// lock is held for each whole operation, so concurrent callers are
// serialised and a sleeping chip is woken once.
type Gatekeeper struct {
	bus           Bus
	pcb           *PCB
	logger        *zerolog.Logger
	postInitState DeviceState
}

// New creates a gatekeeper for bus. No bus call is made until the first
// operation.
func New(bus Bus, opts ...Option) (*Gatekeeper, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus is nil: %w", ErrInvalidParameter)
	}

	g := &Gatekeeper{
		bus:           bus,
		pcb:           NewPCB(),
		postInitState: DefaultPostInitState,
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Bus returns the underlying bus
func (g *Gatekeeper) Bus() Bus {
	return g.bus
}

// PCB returns the control block this gatekeeper tracks state in.
func (g *Gatekeeper) PCB() *PCB {
	return g.pcb
}

// Close closes the bus. The control block is left as it is; call Reset
// before reusing it with another bus.
func (g *Gatekeeper) Close() error {
	if err := g.bus.Close(); err != nil {
		return fmt.Errorf("failed to close %s bus: %w", g.bus.Type(), err)
	}
	return nil
}

// Reset zeroes the control block without touching the bus. The next
// operation re-runs hardware bring-up.
func (g *Gatekeeper) Reset() {
	g.pcb.Reset()
	g.log().Debug().Str("bus", string(g.bus.Type())).Msg("control block reset")
}

// Init resets the control block and runs hardware bring-up.
func (g *Gatekeeper) Init() error {
	return g.InitContext(context.Background())
}

// InitContext resets the control block and runs hardware bring-up.
// A bus error is returned unchanged and leaves the block uninitialised.
func (g *Gatekeeper) InitContext(ctx context.Context) error {
	g.pcb.mu.Lock()
	defer g.pcb.mu.Unlock()
	return g.initLocked(ctx)
}

// Read reads one response from the device into buf.
func (g *Gatekeeper) Read(buf []byte) (int, error) {
	return g.ReadContext(context.Background(), buf)
}

// ReadContext reads one response from the device into buf, initialising
// and waking the device first when needed. The bus result is returned
// verbatim.
func (g *Gatekeeper) ReadContext(ctx context.Context, buf []byte) (int, error) {
	g.pcb.mu.Lock()
	defer g.pcb.mu.Unlock()

	if err := g.ensureReadyLocked(ctx); err != nil {
		return 0, err
	}
	return g.bus.ReadResponse(ctx, buf)
}

// Write sends cmd (command code followed by parameters) to the device.
func (g *Gatekeeper) Write(cmd []byte) error {
	return g.WriteContext(context.Background(), cmd)
}

// WriteContext sends cmd to the device, initialising and waking it first
// when needed. cmd reaches the bus unmodified.
func (g *Gatekeeper) WriteContext(ctx context.Context, cmd []byte) error {
	g.pcb.mu.Lock()
	defer g.pcb.mu.Unlock()

	if err := g.ensureReadyLocked(ctx); err != nil {
		return err
	}
	return g.bus.SendCommand(ctx, cmd)
}

// Exchange writes cmd and reads the response into resp without letting
// another caller interleave.
func (g *Gatekeeper) Exchange(ctx context.Context, cmd, resp []byte) (int, error) {
	g.pcb.mu.Lock()
	defer g.pcb.mu.Unlock()
	return g.exchangeLocked(ctx, cmd, resp)
}

// FirmwareVersion queries the chip's IC type, firmware version and
// supported protocols.
func (g *Gatekeeper) FirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	resp := make([]byte, 16)
	n, err := g.Exchange(ctx, []byte{CmdGetFirmwareVersion}, resp)
	if err != nil {
		return nil, err
	}
	return parseFirmwareVersion(resp[:n])
}

// PowerDown puts the chip into power-down mode.
func (g *Gatekeeper) PowerDown(wakeupSources byte) error {
	return g.PowerDownContext(context.Background(), wakeupSources)
}

// PowerDownContext puts the chip into power-down mode with the given
// Wakeup* source mask. On success the control block moves to StateSleep so
// the next operation wakes the chip first.
func (g *Gatekeeper) PowerDownContext(ctx context.Context, wakeupSources byte) error {
	g.pcb.mu.Lock()
	defer g.pcb.mu.Unlock()

	resp := make([]byte, 8)
	n, err := g.exchangeLocked(ctx, []byte{CmdPowerDown, wakeupSources}, resp)
	if err != nil {
		return err
	}
	if n < 2 || resp[0] != ResponseCode(CmdPowerDown) {
		return fmt.Errorf("unexpected PowerDown response % X: %w", resp[:n], ErrInvalidResponse)
	}
	if resp[1] != 0x00 {
		return NewPN532Error(resp[1], "PowerDown")
	}

	g.pcb.setState(StateSleep)
	g.logTransition("powered down")
	return nil
}

func (g *Gatekeeper) exchangeLocked(ctx context.Context, cmd, resp []byte) (int, error) {
	if err := g.ensureReadyLocked(ctx); err != nil {
		return 0, err
	}
	if err := g.bus.SendCommand(ctx, cmd); err != nil {
		return 0, err
	}
	return g.bus.ReadResponse(ctx, resp)
}

// initLocked expects g.pcb.mu to be held.
func (g *Gatekeeper) initLocked(ctx context.Context) error {
	g.pcb.reset()

	state, err := g.bus.HardwareInit(ctx)
	if err != nil {
		g.log().Debug().Err(err).Str("bus", string(g.bus.Type())).Msg("hardware init failed")
		return err
	}
	if state == StateUninitialised {
		state = g.postInitState
	}

	g.pcb.markInitialised(state)
	g.logTransition("hardware initialised")
	return nil
}

// ensureReadyLocked expects g.pcb.mu to be held.
func (g *Gatekeeper) ensureReadyLocked(ctx context.Context) error {
	if !g.pcb.initialised {
		if err := g.initLocked(ctx); err != nil {
			return err
		}
	}

	if g.pcb.state == StateSleep {
		if err := g.bus.Wakeup(ctx); err != nil {
			g.log().Debug().Err(err).Str("bus", string(g.bus.Type())).Msg("wakeup failed")
			return err
		}
		g.pcb.setState(StateReady)
		g.logTransition("woke up")
	}

	if g.pcb.state != StateReady {
		g.logTransition("device not ready")
		return ErrUnableToInitialise
	}
	return nil
}

func (g *Gatekeeper) logTransition(msg string) {
	g.log().Debug().
		Str("bus", string(g.bus.Type())).
		Stringer("state", g.pcb.state).
		Bool("initialised", g.pcb.initialised).
		Msg(msg)
}

func (g *Gatekeeper) log() *zerolog.Logger {
	if g.logger != nil {
		return g.logger
	}
	l := Logger()
	return &l
}

// IsUnableToInitialise reports whether err came from a device that could not
// be brought to the ready state.
func IsUnableToInitialise(err error) bool {
	return errors.Is(err, ErrUnableToInitialise)
}
