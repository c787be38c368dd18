//go:build unix

// File: core/buffer/fifo_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket fill/drain for ByteFifo over raw non-blocking descriptors.

package buffer

import (
	"fmt"
	"io"

	"github.com/momentics/hioload-tcp/api"
	"golang.org/x/sys/unix"
)

// FillFrom performs one non-blocking receive of up to maxLen bytes from fd
// directly into the tail of the queue, growing first when needed.
//
// It returns n > 0 on success, io.EOF when the peer closed the connection,
// api.ErrWouldBlock when nothing was pending, ErrReleased after Release,
// or the wrapped errno.
func (f *ByteFifo) FillFrom(fd int, maxLen int) (int, error) {
	if maxLen <= 0 {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return 0, ErrReleased
	}
	f.reserveLocked(maxLen)
	n, err := unix.Read(fd, f.buf[f.n:f.n+maxLen])
	if err != nil {
		if api.IsWouldBlock(err) {
			return 0, api.ErrWouldBlock
		}
		return 0, fmt.Errorf("recv fd %d: %w", fd, err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	f.n += n
	return n, nil
}

// DrainTo performs one non-blocking send of the queued bytes to fd. Whatever
// the kernel did not take is shifted down to offset 0 for the next attempt.
// It returns the bytes sent, api.ErrWouldBlock, or the wrapped errno.
func (f *ByteFifo) DrainTo(fd int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return 0, ErrReleased
	}
	if f.n == 0 {
		return 0, nil
	}
	n, err := unix.Write(fd, f.buf[:f.n])
	if err != nil {
		if api.IsWouldBlock(err) {
			return 0, api.ErrWouldBlock
		}
		return 0, fmt.Errorf("send fd %d: %w", fd, err)
	}
	if n > 0 {
		f.discardLocked(n)
	}
	return n, nil
}
