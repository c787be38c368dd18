// File: core/buffer/fifo.go
// Package buffer implements the growable, lock-protected byte FIFO used for
// per-connection inbound and outbound data.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"errors"
	"sync"
)

// ErrReleased is returned by operations on a released FIFO.
var ErrReleased = errors.New("fifo released")

// GrowthUnit is the allocation quantum of a ByteFifo. Capacity is always a
// multiple of it and never shrinks while the FIFO is alive.
const GrowthUnit = 1024

// ByteFifo is a first-in-first-out byte queue guarded by its own mutex.
// The lock is never shared between FIFOs, so the loop goroutine and host
// callers can work on the two directions of one connection concurrently.
//
// Queued bytes always start at offset 0 of buf; len(buf) is the capacity.
type ByteFifo struct {
	mu       sync.Mutex
	buf      []byte
	n        int
	grows    int
	released bool
}

// NewByteFifo returns an empty FIFO with one growth unit preallocated.
func NewByteFifo() *ByteFifo {
	return &ByteFifo{buf: make([]byte, GrowthUnit)}
}

// roundUp returns the smallest multiple of GrowthUnit that is >= size.
func roundUp(size int) int {
	return ((size + GrowthUnit - 1) / GrowthUnit) * GrowthUnit
}

// reserveLocked makes room for extra more bytes after the queued data.
// Existing bytes are moved into the new allocation and the old one dropped.
func (f *ByteFifo) reserveLocked(extra int) {
	if len(f.buf)-f.n >= extra {
		return
	}
	grown := make([]byte, roundUp(f.n+extra))
	copy(grown, f.buf[:f.n])
	f.buf = grown
	f.grows++
}

// Append copies p to the tail of the queue and returns len(p), or 0 once
// the FIFO is released. The Go runtime aborts on allocation failure, so a
// short count is never returned.
func (f *ByteFifo) Append(p []byte) int {
	n, _ := f.TryAppend(p)
	return n
}

// TryAppend is Append reporting ErrReleased instead of a silent 0.
func (f *ByteFifo) TryAppend(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return 0, ErrReleased
	}
	if len(p) == 0 {
		return 0, nil
	}
	f.reserveLocked(len(p))
	copy(f.buf[f.n:], p)
	f.n += len(p)
	return len(p), nil
}

// ConsumeUpTo moves up to len(dst) bytes from the head of the queue into
// dst, shifts the remainder down to offset 0 and returns the count moved.
// It never blocks; an empty dst, an empty queue or a released FIFO yields 0.
func (f *ByteFifo) ConsumeUpTo(dst []byte) int {
	n, _ := f.TryConsume(dst)
	return n
}

// TryConsume is ConsumeUpTo reporting ErrReleased instead of a silent 0.
func (f *ByteFifo) TryConsume(dst []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return 0, ErrReleased
	}
	m := copy(dst, f.buf[:f.n])
	f.discardLocked(m)
	return m, nil
}

// discardLocked drops the first m queued bytes.
func (f *ByteFifo) discardLocked(m int) {
	if m <= 0 {
		return
	}
	rest := copy(f.buf, f.buf[m:f.n])
	f.n = rest
}

// Len returns the number of queued bytes.
func (f *ByteFifo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// Cap returns the allocated capacity in bytes.
func (f *ByteFifo) Cap() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buf)
}

// Grows returns how many times the backing buffer was reallocated.
func (f *ByteFifo) Grows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grows
}

// Release drops the backing buffer and any queued bytes. A released FIFO
// refuses further appends and consumes for good.
func (f *ByteFifo) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = nil
	f.n = 0
	f.released = true
}

// Released reports whether Release was called.
func (f *ByteFifo) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}
