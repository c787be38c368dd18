// File: internal/session/table.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Arena-backed connection table with lowest-free-slot handle reuse.

package session

import (
	"container/heap"
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-tcp/api"
)

const initialSlots = 16

type slot struct {
	conn atomic.Pointer[Connection]
}

// freeList is a min-heap of released handles.
type freeList []int

func (f freeList) Len() int           { return len(f) }
func (f freeList) Less(i, j int) bool { return f[i] < f[j] }
func (f freeList) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *freeList) Push(x any)        { *f = append(*f, x.(int)) }
func (f *freeList) Pop() any {
	old := *f
	n := len(old)
	v := old[n-1]
	*f = old[:n-1]
	return v
}

// Table maps handles to connections. Slots grow on demand up to capacity;
// a published slot array is never mutated in place, only replaced, so Get
// may run concurrently with Insert and Remove.
type Table struct {
	capacity int
	slots    atomic.Pointer[[]*slot]
	next     int // first handle never handed out
	free     freeList
	byFd     map[int]*Connection
	count    atomic.Int64
}

// NewTable creates a table admitting at most capacity live connections.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = 1
	}
	t := &Table{capacity: capacity, byFd: make(map[int]*Connection)}
	n := initialSlots
	if n > capacity {
		n = capacity
	}
	t.grow(n)
	return t
}

func (t *Table) grow(n int) {
	var old []*slot
	if p := t.slots.Load(); p != nil {
		old = *p
	}
	grown := make([]*slot, n)
	copy(grown, old)
	for i := len(old); i < n; i++ {
		grown[i] = &slot{}
	}
	t.slots.Store(&grown)
}

// handleFor picks the lowest free handle, growing the arena when needed.
func (t *Table) handleFor() (int, bool) {
	if t.free.Len() > 0 {
		return heap.Pop(&t.free).(int), true
	}
	if t.next >= t.capacity {
		return 0, false
	}
	h := t.next
	t.next++
	if slots := *t.slots.Load(); h >= len(slots) {
		n := len(slots) * 2
		if n > t.capacity {
			n = t.capacity
		}
		t.grow(n)
	}
	return h, true
}

// Insert admits a new connection for fd at the lowest free handle.
// It fails with api.ErrResourceExhausted when the table is full.
func (t *Table) Insert(fd int) (*Connection, error) {
	h, ok := t.handleFor()
	if !ok {
		return nil, fmt.Errorf("connection table full (%d): %w", t.capacity, api.ErrResourceExhausted)
	}
	c := newConnection(h, fd)
	(*t.slots.Load())[h].conn.Store(c)
	t.byFd[fd] = c
	t.count.Add(1)
	return c, nil
}

// Get returns the connection at handle. Safe from any goroutine.
func (t *Table) Get(handle int) (*Connection, bool) {
	slots := *t.slots.Load()
	if handle < 0 || handle >= len(slots) {
		return nil, false
	}
	c := slots[handle].conn.Load()
	return c, c != nil
}

// ByFd returns the connection registered for a descriptor. Loop only.
func (t *Table) ByFd(fd int) (*Connection, bool) {
	c, ok := t.byFd[fd]
	return c, ok
}

// Detach drops c from the descriptor index while keeping its handle
// reserved. Call it once the descriptor is closed, since the kernel may hand
// the same number to the next accepted socket. Loop only.
func (t *Table) Detach(c *Connection) {
	if cur, ok := t.byFd[c.fd]; ok && cur == c {
		delete(t.byFd, c.fd)
	}
}

// Remove empties the slot of handle and makes the handle reusable. The
// connection must already be destroyed. Loop only.
func (t *Table) Remove(handle int) (*Connection, bool) {
	c, ok := t.Get(handle)
	if !ok {
		return nil, false
	}
	(*t.slots.Load())[handle].conn.Store(nil)
	t.Detach(c)
	heap.Push(&t.free, handle)
	t.count.Add(-1)
	return c, true
}

// Range calls fn for every live connection in ascending handle order until
// fn returns false. Loop only.
func (t *Table) Range(fn func(*Connection) bool) {
	slots := *t.slots.Load()
	for i := 0; i < t.next && i < len(slots); i++ {
		if c := slots[i].conn.Load(); c != nil {
			if !fn(c) {
				return
			}
		}
	}
}

// Len returns the number of occupied handles, including destroyed
// connections not yet removed. Safe from any goroutine.
func (t *Table) Len() int { return int(t.count.Load()) }

// Cap returns the maximum number of live connections.
func (t *Table) Cap() int { return t.capacity }
