// Package api
// Author: momentics
//
// Readiness polling contract shared by the multiplexer and the reactor backends.

package api

import "time"

// IOEvent is a bitmask of readiness conditions.
type IOEvent uint8

const (
	EventRead IOEvent = 1 << iota
	EventWrite
	// EventError marks hang-up or error conditions reported by the backend.
	EventError
)

// Has reports whether all bits of other are set.
func (e IOEvent) Has(other IOEvent) bool { return e&other == other }

// ReadyEvent is one descriptor reported ready by Poller.Wait.
type ReadyEvent struct {
	Fd     int
	Events IOEvent
}

// Poller represents a level-triggered readiness mechanism.
type Poller interface {
	// Register adds fd with the given interest set.
	Register(fd int, interest IOEvent) error

	// Modify replaces the interest set of an already registered fd.
	Modify(fd int, interest IOEvent) error

	// Unregister removes fd. Unknown descriptors are ignored.
	Unregister(fd int) error

	// Wait blocks for at most timeout and fills out with ready descriptors.
	// A timeout with nothing ready returns 0, nil.
	Wait(timeout time.Duration, out []ReadyEvent) (int, error)

	// Close releases the backend.
	Close() error
}

// PollerFactory builds a Poller; the multiplexer owns the result.
type PollerFactory func() (Poller, error)
