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


// Command pn532ctl sends one raw command to a PN532 through the gatekeeper
// and dumps the response.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	pn532 "github.com/ZaparooProject/go-pn532-gatekeeper"
	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/config"
	"github.com/ZaparooProject/go-pn532-gatekeeper/transport/i2c"
	"github.com/ZaparooProject/go-pn532-gatekeeper/transport/spi"
	"github.com/ZaparooProject/go-pn532-gatekeeper/transport/uart"
	"periph.io/x/conn/v3/physic"
)

type options struct {
	configPath string
	bus        string
	device     string
	cmdHex     string
	logDir     string
	readSize   int
	retries    int
	debug      bool
	sleep      bool
	list       bool
}

func parseFlags(args []string) (*options, map[string]bool, error) {
	opts := &options{}
	fs := flag.NewFlagSet("pn532ctl", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (defaults to $PN532_CONFIG)")
	fs.StringVar(&opts.bus, "bus", "", "Bus type: uart, i2c or spi")
	fs.StringVar(&opts.device, "device", "", "Serial port, I2C bus or SPI port")
	fs.StringVar(&opts.cmdHex, "cmd", "02", "Command code and parameters as hex")
	fs.IntVar(&opts.readSize, "read", 64, "Response buffer size (0 skips the read)")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug output")
	fs.StringVar(&opts.logDir, "log-dir", "", "Write a session log to this directory")
	fs.IntVar(&opts.retries, "retries", 0, "Bus attempts per call (overrides config)")
	fs.BoolVar(&opts.sleep, "sleep", false, "Power the chip down after the exchange")
	fs.BoolVar(&opts.list, "list", false, "List serial ports and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// resolveConfig loads the config file and lets explicitly set flags win.
func resolveConfig(opts *options, set map[string]bool) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if set["bus"] {
		cfg.Bus.Type = strings.ToLower(opts.bus)
	}
	if set["device"] {
		cfg.Bus.Device = opts.device
	}
	if set["log-dir"] {
		cfg.LogDir = opts.logDir
	}
	if set["retries"] {
		cfg.Retry.MaxAttempts = opts.retries
	}
	cfg.Debug = cfg.Debug || opts.debug

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseCommand(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "").Replace(s)
	cmd, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", s, err)
	}
	if len(cmd) == 0 {
		return nil, fmt.Errorf("empty command: %w", pn532.ErrInvalidParameter)
	}
	return cmd, nil
}

func newBus(cfg *config.Config) (pn532.Bus, error) {
	switch pn532.BusType(cfg.Bus.Type) {
	case pn532.BusUART:
		return uart.New(cfg.Bus.Device, uart.WithBaudRate(cfg.Bus.BaudRate)), nil
	case pn532.BusI2C:
		return i2c.New(cfg.Bus.Device, i2c.WithAddress(cfg.Bus.Address)), nil
	case pn532.BusSPI:
		freq := physic.Frequency(cfg.Bus.FrequencyHz) * physic.Hertz
		return spi.New(cfg.Bus.Device, spi.WithFrequency(freq)), nil
	default:
		return nil, fmt.Errorf("unsupported bus type: %s", cfg.Bus.Type)
	}
}

// decorate wraps bus with the debug logger and the retry policy as
// configured. The logger sits inside the retries so each attempt is logged.
func decorate(bus pn532.Bus, cfg *config.Config) pn532.Bus {
	if cfg.Debug {
		bus = pn532.NewDebugBus(bus, cfg.Bus.Device, pn532.Logger())
	}
	if cfg.Retry.MaxAttempts > 1 {
		bus = pn532.NewBusWithRetry(bus, cfg.RetryPolicy())
	}
	return bus
}

func wakeupSource(bus pn532.BusType) byte {
	switch bus {
	case pn532.BusI2C:
		return pn532.WakeupI2C
	case pn532.BusSPI:
		return pn532.WakeupSPI
	default:
		return pn532.WakeupHSU
	}
}

// exchange writes cmd, reads up to readSize bytes back and dumps them to w.
func exchange(ctx context.Context, w io.Writer, gk *pn532.Gatekeeper, cmd []byte, readSize int) error {
	_, _ = fmt.Fprint(w, "TX: ")
	pn532.PrintHex(w, cmd)

	if err := gk.WriteContext(ctx, cmd); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if readSize <= 0 {
		return nil
	}

	buf := make([]byte, readSize)
	n, err := gk.ReadContext(ctx, buf)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	_, _ = fmt.Fprint(w, "RX: ")
	pn532.PrintHex(w, buf[:n])
	pn532.PrintHexChar(w, buf[:n])
	return nil
}

func run(ctx context.Context, w io.Writer, cfg *config.Config, bus pn532.Bus, pcb *pn532.PCB, opts *options) error {
	cmd, err := parseCommand(opts.cmdHex)
	if err != nil {
		return err
	}

	gk, err := pn532.New(decorate(bus, cfg),
		pn532.WithPCB(pcb),
		pn532.WithPostInitState(cfg.State()))
	if err != nil {
		return err
	}
	defer func() {
		if err := gk.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close bus: %v\n", err)
		}
	}()

	if err := exchange(ctx, w, gk, cmd, opts.readSize); err != nil {
		if pn532.IsUnableToInitialise(err) {
			_, _ = fmt.Fprintf(w, "PCB: %s initialised=%t\n", gk.PCB().State(), gk.PCB().Initialised())
		}
		return err
	}

	if opts.sleep {
		if err := gk.PowerDownContext(ctx, wakeupSource(bus.Type())); err != nil {
			return fmt.Errorf("power down failed: %w", err)
		}
		_, _ = fmt.Fprintln(w, "PN532 powered down")
	}
	return nil
}

// printPorts writes one line per port, marking likely PN532 boards.
func printPorts(w io.Writer, ports []uart.PortInfo) {
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(w, "No serial ports found")
		return
	}
	for _, p := range ports {
		mark := " "
		if uart.LikelyPN532(p) {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %-20s %-9s %s\n", mark, p.Name, p.VIDPID, p.Product)
	}
}

func main() {
	os.Exit(mainWithExitCode(os.Args[1:]))
}

func mainWithExitCode(args []string) int {
	opts, set, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.list {
		ports, err := uart.ListPorts()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		printPorts(os.Stdout, ports)
		return 0
	}

	cfg, err := resolveConfig(opts, set)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.Debug {
		pn532.SetDebugEnabled(true)
	}
	if cfg.LogDir != "" {
		path, err := pn532.InitSessionLog(cfg.LogDir)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Session log: %s\n", path)
			defer func() { _ = pn532.CloseSessionLog() }()
		}
	}

	bus, err := newBus(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, cfg, bus, pn532.DefaultPCB(), opts); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
