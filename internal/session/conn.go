// File: internal/session/conn.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/core/buffer"
)

// State is the lifecycle state of a Connection.
type State int32

const (
	StateOpen State = iota
	StateClosed
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Connection is one accepted socket plus its two FIFOs.
type Connection struct {
	handle   int
	fd       int
	inbound  *buffer.ByteFifo
	outbound *buffer.ByteFifo
	state    atomic.Int32

	// interest is the readiness set currently registered with the poller.
	// Owned by the multiplexer goroutine.
	interest api.IOEvent
}

func newConnection(handle, fd int) *Connection {
	return &Connection{
		handle:   handle,
		fd:       fd,
		inbound:  buffer.NewByteFifo(),
		outbound: buffer.NewByteFifo(),
	}
}

// Handle returns the stable table index of the connection.
func (c *Connection) Handle() int { return c.handle }

// Fd returns the underlying socket descriptor.
func (c *Connection) Fd() int { return c.fd }

// Inbound is the FIFO filled from the socket and drained by the host.
func (c *Connection) Inbound() *buffer.ByteFifo { return c.inbound }

// Outbound is the FIFO filled by the host and flushed to the socket.
func (c *Connection) Outbound() *buffer.ByteFifo { return c.outbound }

// State reports whether the connection is still open.
func (c *Connection) State() State { return State(c.state.Load()) }

// IsOpen is shorthand for State() == StateOpen.
func (c *Connection) IsOpen() bool { return c.State() == StateOpen }

// Interest returns the registered readiness set.
func (c *Connection) Interest() api.IOEvent { return c.interest }

// SetInterest records the readiness set registered with the poller.
func (c *Connection) SetInterest(ev api.IOEvent) { c.interest = ev }

// Destroy marks the connection closed and releases the outbound FIFO. It
// reports false when the connection was already destroyed. Closing the
// descriptor is the caller's job since it also has to leave the poller.
//
// The inbound FIFO stays readable until Reclaim so the host can still
// collect bytes announced before the close.
func (c *Connection) Destroy() bool {
	if !c.state.CompareAndSwap(int32(StateOpen), int32(StateClosed)) {
		return false
	}
	c.outbound.Release()
	return true
}

// Reclaim releases the inbound FIFO of a destroyed connection.
func (c *Connection) Reclaim() {
	c.inbound.Release()
}

// Send queues p on the outbound FIFO. The check and the append happen under
// the FIFO lock, so nothing is queued once Destroy has run.
func (c *Connection) Send(p []byte) (int, error) {
	n, err := c.outbound.TryAppend(p)
	if errors.Is(err, buffer.ErrReleased) {
		return 0, ErrClosed(c.handle)
	}
	return n, err
}

// Recv moves up to len(dst) queued inbound bytes into dst. It keeps working
// after Destroy until Reclaim.
func (c *Connection) Recv(dst []byte) (int, error) {
	n, err := c.inbound.TryConsume(dst)
	if errors.Is(err, buffer.ErrReleased) {
		return 0, ErrClosed(c.handle)
	}
	return n, err
}

func (c *Connection) String() string {
	return fmt.Sprintf("conn %d (fd %d, %s, in %d, out %d)",
		c.handle, c.fd, c.State(), c.inbound.Len(), c.outbound.Len())
}

// ErrClosed wraps api.ErrConnectionClosed with the handle.
func ErrClosed(handle int) error {
	return fmt.Errorf("handle %d: %w", handle, api.ErrConnectionClosed)
}
