//go:build deadlock

// Package syncutil holds the lock types used for the peripheral control block
// and the test simulators. This variant is compiled with -tags=deadlock.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex is a deadlock.Mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a deadlock.RWMutex.
type RWMutex struct {
	deadlock.RWMutex
}

// DeadlockDetection reports whether the deadlock detector is compiled in.
func DeadlockDetection() bool { return true }
