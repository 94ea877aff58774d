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
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Session log rotation limits.
const (
	sessionLogMaxSizeMB  = 10
	sessionLogMaxBackups = 3
	sessionLogMaxAgeDays = 14
)

// session is guarded by logMu.
var session struct {
	writer io.WriteCloser
	path   string
	id     string
}

// InitSessionLog starts a new session log in dir (the current directory
// when empty) and routes the package logger to it.
// Returns the log file path for display to the user.
func InitSessionLog(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create session log directory: %w", err)
	}

	if err := CloseSessionLog(); err != nil {
		return "", err
	}

	filename := filepath.Join(dir, fmt.Sprintf("pn532_%s.log", time.Now().Format("20060102_150405")))
	writer := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    sessionLogMaxSizeMB,
		MaxBackups: sessionLogMaxBackups,
		MaxAge:     sessionLogMaxAgeDays,
	}
	id := uuid.NewString()

	if err := writeSessionHeader(writer, id); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to create session log: %w", err)
	}

	logMu.Lock()
	session.writer = writer
	session.path = filename
	session.id = id
	logMu.Unlock()
	rebuildLogger()

	return filename, nil
}

// CloseSessionLog closes the current session log file.
func CloseSessionLog() error {
	logMu.Lock()
	writer := session.writer
	session.writer = nil
	session.path = ""
	session.id = ""
	logMu.Unlock()

	if writer == nil {
		return nil
	}
	rebuildLogger()

	_, _ = fmt.Fprintf(writer, "\n%s === Session ended ===\n", time.Now().Format("15:04:05.000"))
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

// GetSessionLogPath returns the current session log file path.
func GetSessionLogPath() string {
	logMu.RLock()
	defer logMu.RUnlock()
	return session.path
}

// writeSessionHeader writes metadata about the session to the log file.
func writeSessionHeader(w io.Writer, id string) error {
	var b strings.Builder
	b.WriteString("=== PN532 Debug Session Log ===\n")
	_, _ = fmt.Fprintf(&b, "Session: %s\n", id)
	_, _ = fmt.Fprintf(&b, "Started: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&b, "PID: %d\n", os.Getpid())
	_, _ = fmt.Fprintf(&b, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&b, "Go Version: %s\n", runtime.Version())
	if exe, err := os.Executable(); err == nil {
		_, _ = fmt.Fprintf(&b, "Executable: %s\n", exe)
	}
	_, _ = fmt.Fprintf(&b, "Command Line: %s\n", strings.Join(os.Args, " "))
	b.WriteString("================================\n\n")

	_, err := io.WriteString(w, b.String())
	return err
}
