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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZaparooProject/go-pn532-gatekeeper/internal/syncutil"
	"github.com/rs/zerolog"
)

// Package logger state. The logger is rebuilt whenever the debug switch or
// the session log changes, unless a caller installed its own with SetLogger.
var (
	logMu         syncutil.RWMutex
	pkgLogger     = zerolog.Nop()
	customLogger  bool
	debugEnabled  bool
	consoleWriter io.Writer = os.Stderr
)

func init() {
	if os.Getenv("PN532_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled = true
	}
	rebuildLogger()
}

// Logger returns the package logger.
func Logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return pkgLogger
}

// SetLogger replaces the package logger. The debug switch and session log no
// longer affect output until ResetLogger is called.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	pkgLogger = l
	customLogger = true
}

// ResetLogger drops a logger installed with SetLogger and returns to the
// console and session log outputs.
func ResetLogger() {
	logMu.Lock()
	customLogger = false
	logMu.Unlock()
	rebuildLogger()
}

// SetDebugEnabled allows programmatic control of console debug logging.
func SetDebugEnabled(enabled bool) {
	logMu.Lock()
	debugEnabled = enabled
	logMu.Unlock()
	rebuildLogger()
}

// DebugEnabled reports whether console debug logging is on.
func DebugEnabled() bool {
	logMu.RLock()
	defer logMu.RUnlock()
	return debugEnabled
}

// Debugf logs a formatted debug message.
// Always reaches the session log (if initialized); the console only sees it
// when debug mode is enabled.
func Debugf(format string, args ...any) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

// Debugln logs its operands the way fmt.Println formats them.
func Debugln(args ...any) {
	l := Logger()
	l.Debug().Msg(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func rebuildLogger() {
	logMu.Lock()
	defer logMu.Unlock()
	if customLogger {
		return
	}

	var writers []io.Writer
	if debugEnabled {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        consoleWriter,
			TimeFormat: "15:04:05.000",
		})
	}
	if session.writer != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        session.writer,
			NoColor:    true,
			TimeFormat: "15:04:05.000",
		})
	}

	if len(writers) == 0 {
		pkgLogger = zerolog.Nop()
		return
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp()
	if session.id != "" {
		ctx = ctx.Str("session", session.id)
	}
	pkgLogger = ctx.Logger().Level(zerolog.DebugLevel)
}
