// Package testkit holds helpers for tests that swap package level seams
package testkit

import (
	"sync"
	"testing"
)

var seamMu sync.Mutex

// Swap sets *target to replacement until the test ends
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial holds a process wide lock until the test ends. Tests that Swap a
// seam another package's tests also use take it first
func Serial(t *testing.T) {
	t.Helper()
	seamMu.Lock()
	t.Cleanup(seamMu.Unlock)
}

// MustPanic fails t unless fn panics, and returns the panic value
func MustPanic(t *testing.T, fn func()) (v any) {
	t.Helper()
	defer func() {
		v = recover()
		if v == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
	return nil
}
