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
	"errors"
	"fmt"
	"io"
)

// ErrUnableToInitialise is returned by Read, Write and PowerDown when the
// device is still not ready after lazy initialisation and wakeup. It points at
// missing or misconfigured hardware rather than a transient bus fault.
var ErrUnableToInitialise = errors.New("unable to initialise PN532")

// Bus error categories, used by the transport implementations and by the
// retry decorator to decide what is worth another attempt.
var (
	// Transport errors - potentially retryable
	ErrTransportTimeout  = errors.New("transport timeout")
	ErrTransportWrite    = errors.New("transport write failed")
	ErrTransportRead     = errors.New("transport read failed")
	ErrTransportClosed   = errors.New("transport is closed")
	ErrTransportNotReady = errors.New("transport not ready")

	// Link protocol errors - potentially retryable
	ErrNoACK            = errors.New("no ACK received")
	ErrNACKReceived     = errors.New("NACK received")
	ErrFrameCorrupted   = errors.New("frame corrupted")
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// Caller and device errors - not retryable
	ErrInvalidResponse  = errors.New("invalid response format")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDataTooLarge     = errors.New("data too large")
	ErrBufferTooSmall   = errors.New("response buffer too small")
	ErrDeviceNotFound   = errors.New("device not found")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError wraps bus-level errors with the failing operation and port.
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or bus identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PN532Error is an application-level error frame (TFI 0x7F) or a non-zero
// status byte reported by the chip itself.
type PN532Error struct {
	Command   string
	ErrorCode byte
}

func (e *PN532Error) Error() string {
	return fmt.Sprintf("%s error 0x%02X (%s)", e.Command, e.ErrorCode, pn532ErrorCodeMeaning(e.ErrorCode))
}

// IsTimeoutError returns true if the chip reported its own timeout (0x01).
func (e *PN532Error) IsTimeoutError() bool {
	return e.ErrorCode == 0x01
}

// IsCommandNotSupported returns true for the "invalid command" code (0x81).
func (e *PN532Error) IsCommandNotSupported() bool {
	return e.ErrorCode == 0x81
}

// pn532ErrorCodeMeaning maps PN532 User Manual section 7.1 error codes.
func pn532ErrorCodeMeaning(code byte) string {
	switch code {
	case 0x00:
		return "success"
	case 0x01:
		return "timeout"
	case 0x02:
		return "CRC error"
	case 0x03:
		return "parity error"
	case 0x07:
		return "communication buffer size insufficient"
	case 0x0D:
		return "overheating"
	case 0x0E:
		return "internal buffer overflow"
	case 0x10:
		return "invalid parameter"
	case 0x26:
		return "operation not allowed"
	case 0x27:
		return "wrong context for command"
	case 0x2D:
		return "over-current event"
	case 0x7F:
		return "syntax error frame"
	case 0x81:
		return "command not supported"
	default:
		return "unknown error"
	}
}

// NewPN532Error creates a chip error for the named command.
func NewPN532Error(errorCode byte, command string) *PN532Error {
	return &PN532Error{ErrorCode: errorCode, Command: command}
}

// NewTransportError creates a transport error, deriving Retryable from errType.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for bus operations
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a frame corruption error
func NewFrameCorruptedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewChecksumMismatchError creates a checksum mismatch error (transient)
func NewChecksumMismatchError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrChecksumMismatch, ErrorTypeTransient)
}

// NewDataTooLargeError creates a data too large error (permanent)
func NewDataTooLargeError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrDataTooLarge, ErrorTypePermanent)
}

// NewBufferTooSmallError creates an error for a response that does not fit
// the caller's buffer (permanent: retrying returns the same frame).
func NewBufferTooSmallError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrBufferTooSmall, ErrorTypePermanent)
}

// NewTransportWriteError creates a short-write error (transient)
func NewTransportWriteError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportWrite, ErrorTypeTransient)
}

// NewNoACKError creates a "no ACK received" error (timeout)
func NewNoACKError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrNoACK, ErrorTypeTimeout)
}

// NewInvalidResponseError creates an invalid response error (permanent)
func NewInvalidResponseError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrInvalidResponse, ErrorTypePermanent)
}

// NewTransportNotReadyError creates a transport not ready error (timeout)
func NewTransportNotReadyError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportNotReady, ErrorTypeTimeout)
}

// NewTransportClosedError is returned by bus operations after Close or
// before HardwareInit opened the link.
func NewTransportClosedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportClosed, ErrorTypePermanent)
}

// IsRetryable returns true if the error is potentially retryable.
// ErrUnableToInitialise is never retryable: the state machine, not the link,
// is what failed.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrUnableToInitialise) {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	var pe *PN532Error
	if errors.As(err, &pe) {
		return pe.IsTimeoutError()
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrNoACK),
		errors.Is(err, ErrNACKReceived),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrChecksumMismatch):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the device or link is gone and
// further calls on the same bus are pointless until it is re-opened.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) && te.Type == ErrorTypePermanent && errors.Is(te.Err, ErrTransportClosed) {
		return true
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}
