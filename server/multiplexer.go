// File: server/multiplexer.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-goroutine readiness loop owning the listening socket and the
// connection table.

package server

import (
	"errors"
	"io"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/momentics/hioload-tcp/affinity"
	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
	"github.com/momentics/hioload-tcp/internal/session"
	"github.com/momentics/hioload-tcp/internal/transport"
	"go.uber.org/zap"
)

const (
	msgAcceptRejected   = "Incoming socket rejected"
	msgNonblockRejected = "Incoming socket rejected, unable to set the socket to non-blocking mode"
)

// acceptor is the part of the listening socket the loop drives.
type acceptor interface {
	Fd() int
	Accept() (int, error)
	Close() error
}

// waker interrupts a blocking wait.
type waker interface {
	Fd() int
	Signal()
	Drain()
	Close() error
}

type readyConn struct {
	conn   *session.Connection
	events api.IOEvent
}

// multiplexer runs Stopped -> Running -> Stopped exactly once.
type multiplexer struct {
	cfg     Config
	log     *zap.Logger
	metrics *control.Metrics
	notify  api.Notifier
	poller  api.Poller
	ln      acceptor
	wakeup  waker
	table   *session.Table

	setNonblock func(fd int) error
	closeFD     func(fd int) error

	running     atomic.Bool
	stopping    atomic.Bool
	wakePending atomic.Bool
	stopOnce    sync.Once
	stopCh      chan struct{}
	done        chan struct{}

	// Handles whose SocketClosed reached the host and whose inbound FIFO
	// may now be released.
	reclaimMu sync.Mutex
	reclaims  []int

	events []api.ReadyEvent
	ready  []readyConn
}

func newMultiplexer(cfg Config, ln acceptor, poller api.Poller, wakeup waker, notify api.Notifier,
	logger *zap.Logger, metrics *control.Metrics) (*multiplexer, error) {
	if err := poller.Register(ln.Fd(), api.EventRead); err != nil {
		return nil, err
	}
	if err := poller.Register(wakeup.Fd(), api.EventRead); err != nil {
		_ = poller.Unregister(ln.Fd())
		return nil, err
	}
	return &multiplexer{
		cfg:         cfg,
		log:         logger,
		metrics:     metrics,
		notify:      notify,
		poller:      poller,
		ln:          ln,
		wakeup:      wakeup,
		table:       session.NewTable(cfg.MaxConnections),
		setNonblock: transport.SetNonblock,
		closeFD:     transport.CloseFD,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
		events:      make([]api.ReadyEvent, cfg.MaxEvents),
	}, nil
}

// start spawns the loop goroutine.
func (m *multiplexer) start() {
	m.running.Store(true)
	m.log.Info("multiplexer started", zap.Int("listen_fd", m.ln.Fd()),
		zap.Duration("poll_timeout", m.cfg.PollTimeout))
	go m.run()
}

// stop requests shutdown and blocks until the loop has closed every
// descriptor and emitted SocketShutdown.
func (m *multiplexer) stop() {
	if !m.running.Load() {
		return
	}
	m.stopping.Store(true)
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wake()
	<-m.done
}

// reclaim frees handle once the host has seen its SocketClosed. Safe from
// any goroutine; the loop does the work on its next iteration.
func (m *multiplexer) reclaim(handle int) {
	m.reclaimMu.Lock()
	m.reclaims = append(m.reclaims, handle)
	m.reclaimMu.Unlock()
	m.wake()
}

func (m *multiplexer) drainReclaims() {
	m.reclaimMu.Lock()
	handles := m.reclaims
	m.reclaims = nil
	m.reclaimMu.Unlock()
	for _, h := range handles {
		c, ok := m.table.Get(h)
		if !ok || c.IsOpen() {
			continue
		}
		c.Reclaim()
		m.table.Remove(h)
	}
}

// wake interrupts the current wait. Concurrent calls collapse into one
// pipe write until the loop drains it.
func (m *multiplexer) wake() {
	if m.wakePending.CompareAndSwap(false, true) {
		m.wakeup.Signal()
	}
}

func (m *multiplexer) run() {
	defer close(m.done)
	defer m.shutdown()
	m.pin()

	for !m.stopping.Load() {
		m.drainReclaims()
		m.syncInterest()

		n, err := m.poller.Wait(m.cfg.PollTimeout, m.events)
		if err != nil {
			m.log.Error("readiness wait failed", zap.Error(err))
			m.metrics.IOError("poll")
			m.notify.Notify(api.IOError(err.Error()))
			select {
			case <-m.stopCh:
			case <-time.After(m.cfg.PollTimeout):
			}
			continue
		}
		if n == 0 {
			continue
		}
		m.dispatch(m.events[:n])
	}
}

// pin locks the loop to its OS thread and binds that thread to the
// configured CPU. The thread is never unlocked, so it exits with the loop.
func (m *multiplexer) pin() {
	if m.cfg.LoopCPU < 0 {
		return
	}
	runtime.LockOSThread()
	if err := affinity.SetAffinity(m.cfg.LoopCPU); err != nil {
		m.log.Warn("loop cpu pinning failed", zap.Int("cpu", m.cfg.LoopCPU), zap.Error(err))
		return
	}
	m.log.Info("loop pinned", zap.Int("cpu", m.cfg.LoopCPU))
}

// syncInterest keeps every connection registered for read, and for write
// while its outbound FIFO holds data.
func (m *multiplexer) syncInterest() {
	m.table.Range(func(c *session.Connection) bool {
		if !c.IsOpen() {
			return true
		}
		want := api.EventRead
		if c.Outbound().Len() > 0 {
			want |= api.EventWrite
		}
		if want == c.Interest() {
			return true
		}
		if err := m.poller.Modify(c.Fd(), want); err != nil {
			m.log.Warn("poller modify failed", zap.Int("handle", c.Handle()), zap.Error(err))
			return true
		}
		c.SetInterest(want)
		return true
	})
}

func (m *multiplexer) dispatch(events []api.ReadyEvent) {
	acceptReady := false
	m.ready = m.ready[:0]
	for _, ev := range events {
		switch ev.Fd {
		case m.ln.Fd():
			acceptReady = true
		case m.wakeup.Fd():
			m.wakePending.Store(false)
			m.wakeup.Drain()
		default:
			if c, ok := m.table.ByFd(ev.Fd); ok {
				m.ready = append(m.ready, readyConn{conn: c, events: ev.Events})
			}
		}
	}
	// Connections are resolved before accepting so a descriptor number
	// reused by the kernel can never be confused with a new connection.
	if acceptReady {
		m.acceptOne()
	}

	slices.SortFunc(m.ready, func(a, b readyConn) int {
		return a.conn.Handle() - b.conn.Handle()
	})
	for _, rc := range m.ready {
		if rc.events&(api.EventRead|api.EventError) != 0 {
			if !m.receive(rc.conn) {
				continue
			}
		}
		if rc.events&api.EventWrite != 0 {
			m.flush(rc.conn)
		}
	}
}

func (m *multiplexer) acceptOne() {
	fd, err := m.ln.Accept()
	if err != nil {
		if api.IsWouldBlock(err) {
			return
		}
		m.log.Warn("accept failed", zap.Error(err))
		m.metrics.IOError("accept")
		m.notify.Notify(api.IOError(msgAcceptRejected))
		return
	}

	if m.table.Len() >= m.table.Cap() {
		m.log.Warn("connection table full, rejecting", zap.Int("fd", fd), zap.Int("capacity", m.table.Cap()))
		m.metrics.ConnRejected("table_full")
		_ = m.closeFD(fd)
		return
	}
	if err := m.setNonblock(fd); err != nil {
		m.log.Warn("rejecting connection", zap.Int("fd", fd), zap.Error(err))
		m.metrics.ConnRejected("nonblock")
		_ = m.closeFD(fd)
		m.notify.Notify(api.IOError(msgNonblockRejected))
		return
	}
	c, err := m.table.Insert(fd)
	if err != nil {
		m.metrics.ConnRejected("table_full")
		_ = m.closeFD(fd)
		return
	}
	if err := m.poller.Register(fd, api.EventRead); err != nil {
		m.log.Warn("poller register failed", zap.Int("fd", fd), zap.Error(err))
		m.metrics.ConnRejected("register")
		m.destroy(c)
		c.Reclaim()
		m.table.Remove(c.Handle())
		m.notify.Notify(api.IOError(msgAcceptRejected))
		return
	}
	c.SetInterest(api.EventRead)

	m.metrics.ConnOpened()
	m.log.Debug("connection opened", zap.Int("handle", c.Handle()), zap.Int("fd", fd))
	m.notify.Notify(api.Opened(c.Handle()))
}

// receive performs one fill and reports whether the connection survived.
func (m *multiplexer) receive(c *session.Connection) bool {
	n, err := c.Inbound().FillFrom(c.Fd(), m.cfg.ReadChunk)
	switch {
	case err == nil:
		if n > 0 {
			m.metrics.BytesReceived(n)
			m.notify.Notify(api.DataReady(c.Handle(), n))
		}
		return true
	case errors.Is(err, io.EOF):
		h := c.Handle()
		m.destroy(c)
		m.metrics.ConnClosed()
		m.log.Debug("connection closed by peer", zap.Int("handle", h))
		m.notify.Notify(api.Closed(h))
		return false
	case api.IsWouldBlock(err):
		return true
	default:
		m.log.Warn("receive failed", zap.Int("handle", c.Handle()), zap.Error(err))
		m.metrics.IOError("recv")
		m.notify.Notify(api.IOError(errnoText(err)))
		return true
	}
}

func (m *multiplexer) flush(c *session.Connection) {
	n, err := c.Outbound().DrainTo(c.Fd())
	if err != nil && !api.IsWouldBlock(err) {
		m.log.Warn("send failed", zap.Int("handle", c.Handle()), zap.Error(err))
		m.metrics.IOError("send")
		m.notify.Notify(api.IOError(errnoText(err)))
		return
	}
	m.metrics.BytesSent(n)
}

// destroy closes the descriptor of c and drops its outbound data. The
// handle stays reserved with its inbound bytes readable until reclaim.
func (m *multiplexer) destroy(c *session.Connection) bool {
	if !c.Destroy() {
		return false
	}
	_ = m.poller.Unregister(c.Fd())
	m.table.Detach(c)
	if err := m.closeFD(c.Fd()); err != nil {
		m.log.Debug("close descriptor", zap.Int("fd", c.Fd()), zap.Error(err))
	}
	return true
}

func (m *multiplexer) shutdown() {
	closed := 0
	m.table.Range(func(c *session.Connection) bool {
		if m.destroy(c) {
			closed++
		}
		c.Reclaim()
		m.table.Remove(c.Handle())
		return true
	})
	_ = m.poller.Unregister(m.ln.Fd())
	_ = m.poller.Unregister(m.wakeup.Fd())
	if err := m.ln.Close(); err != nil {
		m.log.Warn("close listener", zap.Error(err))
	}
	if err := m.poller.Close(); err != nil {
		m.log.Warn("close poller", zap.Error(err))
	}
	_ = m.wakeup.Close()
	m.metrics.ConnsReset()
	m.running.Store(false)

	m.log.Info("multiplexer stopped", zap.Int("connections_closed", closed))
	m.notify.Notify(api.Shutdown())
}

// errnoText reduces an I/O error to the errno description when there is one.
func errnoText(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno.Error()
	}
	return err.Error()
}
