// File: bridge/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bridge

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-tcp/api"
	"go.uber.org/zap"
)

// Dispatcher decouples notification production from host delivery.
type Dispatcher struct {
	target api.Notifier
	log    *zap.Logger
	after  func(api.Notification)

	mu     sync.Mutex
	q      *queue.Queue
	closed bool

	signal chan struct{}
	done   chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAfterDeliver registers fn to run on the dispatcher goroutine after
// each notification was handed to the target, even if the target panicked.
func WithAfterDeliver(fn func(api.Notification)) DispatcherOption {
	return func(d *Dispatcher) { d.after = fn }
}

// NewDispatcher starts a dispatcher delivering to target. A nil logger is
// replaced by a no-op one.
func NewDispatcher(target api.Notifier, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		target: target,
		log:    logger,
		q:      queue.New(),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(d)
	}
	go d.run()
	return d
}

// Notify queues n for delivery and never blocks on the host. Notifications
// posted after Close are dropped.
func (d *Dispatcher) Notify(n api.Notification) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Debug("notification dropped after close", zap.Stringer("notification", n))
		return
	}
	d.q.Add(n)
	d.mu.Unlock()
	d.wake()
}

func (d *Dispatcher) wake() {
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued, undelivered notifications.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Length()
}

// Close stops accepting notifications. Already queued ones are still
// delivered; Done is closed once the queue has drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wake()
}

// Done is closed after Close once every queued notification was delivered.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) next() (api.Notification, bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.q.Length() == 0 {
		return api.Notification{}, false, d.closed
	}
	n, _ := d.q.Remove().(api.Notification)
	return n, true, d.closed
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		n, ok, closed := d.next()
		if ok {
			d.deliver(n)
			if d.after != nil {
				d.after(n)
			}
			continue
		}
		if closed {
			return
		}
		<-d.signal
	}
}

// deliver shields the dispatcher from panicking host callbacks.
func (d *Dispatcher) deliver(n api.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notifier panic recovered", zap.Any("panic", r), zap.Stringer("notification", n))
		}
	}()
	d.target.Notify(n)
}
