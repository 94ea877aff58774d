//go:build !deadlock

// Package syncutil holds the lock types used for the peripheral control block
// and the test simulators. Default builds use the sync package directly.
// Build with -tags=deadlock to swap in github.com/sasha-s/go-deadlock, which
// reports lock-order inversions and locks held past its timeout.
package syncutil

import "sync"

// Mutex is a sync.Mutex unless built with -tags=deadlock.
//
//nolint:gocritic // embedding exposes Lock/Unlock directly
type Mutex struct {
	sync.Mutex
}

// RWMutex is a sync.RWMutex unless built with -tags=deadlock.
//
//nolint:gocritic // embedding exposes Lock/Unlock/RLock/RUnlock directly
type RWMutex struct {
	sync.RWMutex
}

// DeadlockDetection reports whether the deadlock detector is compiled in.
func DeadlockDetection() bool { return false }
