// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing. Provides predictable, controllable
// readiness behavior for the multiplexer.

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-tcp/api"
)

// WaitResult is one scripted outcome of Poller.Wait.
type WaitResult struct {
	Events []api.ReadyEvent
	Err    error
}

// Poller is a scripted api.Poller for tests. Wait hands out queued results
// in order and behaves like an idle timeout once the script is exhausted.
type Poller struct {
	mu         sync.Mutex
	interest   map[int]api.IOEvent
	script     []WaitResult
	waits      int
	closed     bool
	maxIdle    time.Duration
	RegisterFn func(fd int, interest api.IOEvent) error
}

// NewPoller creates an empty scripted poller.
func NewPoller() *Poller {
	return &Poller{interest: make(map[int]api.IOEvent), maxIdle: 10 * time.Millisecond}
}

// Factory returns a PollerFactory always yielding p.
func Factory(p *Poller) api.PollerFactory {
	return func() (api.Poller, error) { return p, nil }
}

// Script appends results consumed by subsequent Wait calls.
func (p *Poller) Script(results ...WaitResult) {
	p.mu.Lock()
	p.script = append(p.script, results...)
	p.mu.Unlock()
}

func (p *Poller) Register(fd int, interest api.IOEvent) error {
	if p.RegisterFn != nil {
		if err := p.RegisterFn(fd, interest); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.interest[fd] = interest
	p.mu.Unlock()
	return nil
}

func (p *Poller) Modify(fd int, interest api.IOEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.interest[fd]; !ok {
		return api.ErrNotFound
	}
	p.interest[fd] = interest
	return nil
}

func (p *Poller) Unregister(fd int) error {
	p.mu.Lock()
	delete(p.interest, fd)
	p.mu.Unlock()
	return nil
}

func (p *Poller) Wait(timeout time.Duration, out []api.ReadyEvent) (int, error) {
	p.mu.Lock()
	p.waits++
	if len(p.script) == 0 {
		p.mu.Unlock()
		if timeout > p.maxIdle {
			timeout = p.maxIdle
		}
		time.Sleep(timeout)
		return 0, nil
	}
	r := p.script[0]
	p.script = p.script[1:]
	p.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	return copy(out, r.Events), nil
}

func (p *Poller) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Interest reports the interest currently registered for fd.
func (p *Poller) Interest(fd int) (api.IOEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev, ok := p.interest[fd]
	return ev, ok
}

// Registered returns the number of registered descriptors.
func (p *Poller) Registered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.interest)
}

// Waits returns how many times Wait was called.
func (p *Poller) Waits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// Closed reports whether Close was called.
func (p *Poller) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ api.Poller = (*Poller)(nil)
