//go:build unix

// File: internal/transport/wakeup_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// WakePipe is a self-pipe used to interrupt a blocking readiness wait from
// another goroutine. The read end is polled; Signal writes to the other end.
type WakePipe struct {
	mu     sync.RWMutex
	r, w   int
	closed bool
}

// NewWakePipe creates a non-blocking, close-on-exec pipe pair.
func NewWakePipe() (*WakePipe, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return nil, fmt.Errorf("wake pipe non-blocking: %w", err)
		}
	}
	return &WakePipe{r: fds[0], w: fds[1]}, nil
}

// Fd returns the read end to register with a poller.
func (p *WakePipe) Fd() int { return p.r }

// Signal makes the read end readable. A full pipe already is.
func (p *WakePipe) Signal() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	_, _ = unix.Write(p.w, []byte{1})
}

// Drain consumes every pending wake byte.
func (p *WakePipe) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases both ends. Signal after Close is a no-op.
func (p *WakePipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := unix.Close(p.r)
	if werr := unix.Close(p.w); err == nil {
		err = werr
	}
	return err
}
