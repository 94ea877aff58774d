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
	"strings"

	"github.com/rs/zerolog"
)

// DebugBus logs every call on the wrapped bus, with hex dumps of the bytes
// going out and coming back.
type DebugBus struct {
	next   Bus
	logger zerolog.Logger
	id     string
}

// NewDebugBus wraps bus so each call is logged to logger under id.
func NewDebugBus(bus Bus, id string, logger zerolog.Logger) *DebugBus {
	return &DebugBus{
		next:   bus,
		logger: logger,
		id:     id,
	}
}

// Unwrap returns the wrapped bus.
func (d *DebugBus) Unwrap() Bus {
	return d.next
}

// HardwareInit implements Bus.
func (d *DebugBus) HardwareInit(ctx context.Context) (DeviceState, error) {
	d.logger.Debug().Str("bus", d.id).Msg(">> hardware init")
	state, err := d.next.HardwareInit(ctx)
	d.logger.Debug().Str("bus", d.id).Stringer("state", state).Err(err).Msg("<< hardware init")
	return state, err
}

// Wakeup implements Bus.
func (d *DebugBus) Wakeup(ctx context.Context) error {
	d.logger.Debug().Str("bus", d.id).Msg(">> wake")
	err := d.next.Wakeup(ctx)
	d.logger.Debug().Str("bus", d.id).Err(err).Msg("<< wake")
	return err
}

// SendCommand implements Bus.
func (d *DebugBus) SendCommand(ctx context.Context, cmd []byte) error {
	d.logger.Debug().Str("bus", d.id).Int("len", len(cmd)).Str("data", hexField(cmd)).Msg(">> send")
	err := d.next.SendCommand(ctx, cmd)
	d.logger.Debug().Str("bus", d.id).Err(err).Msg("<< send")
	return err
}

// ReadResponse implements Bus.
func (d *DebugBus) ReadResponse(ctx context.Context, buf []byte) (int, error) {
	d.logger.Debug().Str("bus", d.id).Int("cap", len(buf)).Msg(">> recv")
	n, err := d.next.ReadResponse(ctx, buf)
	ev := d.logger.Debug().Str("bus", d.id).Int("len", n).Err(err)
	if n > 0 && n <= len(buf) {
		ev = ev.Str("data", hexField(buf[:n]))
	}
	ev.Msg("<< recv")
	return n, err
}

// Close implements Bus.
func (d *DebugBus) Close() error {
	d.logger.Debug().Str("bus", d.id).Msg(">> close")
	err := d.next.Close()
	d.logger.Debug().Str("bus", d.id).Err(err).Msg("<< close")
	return err
}

// Type implements Bus.
func (d *DebugBus) Type() BusType {
	return d.next.Type()
}

// hexField renders data as FormatHex does, trimmed to fit one log field.
func hexField(data []byte) string {
	return strings.TrimSpace(FormatHex(data))
}

var _ Bus = (*DebugBus)(nil)
