// File: server/server.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server facade: bind, listen, close, send and recv over one multiplexer.

package server

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-tcp/adapters"
	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/bridge"
	"github.com/momentics/hioload-tcp/control"
	"github.com/momentics/hioload-tcp/internal/transport"
	"github.com/momentics/hioload-tcp/reactor"
	"go.uber.org/zap"
)

// Server owns one listening endpoint and the multiplexer serving it.
//
// Bind, Listen and Close are serialized by an internal mutex. Send and Recv
// touch only the addressed connection's FIFO and take no server-wide lock.
type Server struct {
	cfg       *Config
	log       *zap.Logger
	metrics   *control.Metrics
	notifier  api.Notifier
	newPoller api.PollerFactory
	sink      api.Notifier

	mu         sync.Mutex
	dispatcher *bridge.Dispatcher
	ln         *transport.Listener
	port       int
	bound      atomic.Bool
	listening  atomic.Bool
	closed     atomic.Bool
	mux        atomic.Pointer[multiplexer]
}

// NewServer builds the Server facade. A nil cfg selects DefaultConfig.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	own := *cfg
	s := &Server{
		cfg:       &own,
		log:       zap.NewNop(),
		notifier:  adapters.Discard,
		newPoller: reactor.Factory(),
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.cfg.validate(); err != nil {
		return nil, err
	}
	s.log = s.log.Named("hioload-tcp")

	s.sink = adapters.Chain(s.notifier,
		adapters.MetricsMiddleware(s.metrics),
		adapters.LoggingMiddleware(s.log.Named("notify")),
		adapters.RecoveryMiddleware(s.log),
	)
	return s, nil
}

// delivered runs on the dispatcher goroutine after the host returned from a
// notification. A SocketClosed handle is freed only then, so the host can
// still Recv what the peer sent before closing.
func (s *Server) delivered(n api.Notification) {
	if n.Kind != api.SocketClosed {
		return
	}
	if mux := s.mux.Load(); mux != nil {
		mux.reclaim(n.Handle)
	}
}

// Bind creates the listening descriptor and binds it to address:port.
// It returns the bound port, which is the kernel-assigned one when port is 0.
func (s *Server) Bind(port int, address string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return 0, api.WrapError(api.ErrCodeBind, "bind", api.ErrServerClosed)
	}
	if s.bound.Load() {
		return 0, api.WrapError(api.ErrCodeBind, "bind", api.ErrAlreadyBound)
	}
	ln, err := transport.Bind(port, address)
	if err != nil {
		s.log.Warn("bind failed", zap.Int("port", port), zap.String("address", address), zap.Error(err))
		return 0, err
	}
	s.ln = ln
	s.port = ln.Port()
	s.dispatcher = bridge.NewDispatcher(s.sink, s.log.Named("dispatch"), bridge.WithAfterDeliver(s.delivered))
	s.bound.Store(true)
	s.log.Info("bound", zap.String("address", ln.Addr().String()), zap.Int("port", s.port))
	return s.port, nil
}

// Listen opens the bound descriptor for connections and starts the
// multiplexer. The backlog is clamped to the platform maximum.
func (s *Server) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed.Load():
		return api.WrapError(api.ErrCodeListen, "listen", api.ErrServerClosed)
	case !s.bound.Load():
		return api.WrapError(api.ErrCodeListen, "listen", api.ErrNotBound)
	case s.listening.Load():
		return api.WrapError(api.ErrCodeListen, "listen", api.ErrAlreadyListening)
	}

	if err := s.ln.Listen(backlog); err != nil {
		return err
	}
	poller, err := s.newPoller()
	if err != nil {
		return api.WrapError(api.ErrCodeListen, "create poller", err)
	}
	wakeup, err := transport.NewWakePipe()
	if err != nil {
		_ = poller.Close()
		return api.WrapError(api.ErrCodeListen, "create wake pipe", err)
	}
	mux, err := newMultiplexer(*s.cfg, s.ln, adapters.NewPollerAdapter(poller, s.metrics), wakeup,
		s.dispatcher, s.log.Named("mux"), s.metrics)
	if err != nil {
		_ = wakeup.Close()
		_ = poller.Close()
		return api.WrapError(api.ErrCodeListen, "register listener", err)
	}

	s.mux.Store(mux)
	s.listening.Store(true)
	mux.start()
	return nil
}

// Close stops the multiplexer and blocks until every connection descriptor
// and the listener are closed and SocketShutdown has been emitted. A server
// that was bound but never listened only releases its descriptor. Close on
// a server that was never bound does nothing.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() || !s.bound.Load() {
		return
	}
	if mux := s.mux.Load(); mux != nil {
		mux.stop()
		s.mux.Store(nil)
	} else if s.ln != nil {
		_ = s.ln.Close()
	}
	s.listening.Store(false)
	s.closed.Store(true)
	s.dispatcher.Close()
	s.log.Info("closed", zap.Int("port", s.port))
}

func (s *Server) lookup(handle int) (*multiplexer, error) {
	mux := s.mux.Load()
	if mux == nil {
		return nil, fmt.Errorf("handle %d: %w", handle, api.ErrInvalidHandle)
	}
	return mux, nil
}

// Send appends p to the outbound FIFO of handle and returns the bytes queued.
// The loop flushes the data once the socket is writable.
func (s *Server) Send(handle int, p []byte) (int, error) {
	mux, err := s.lookup(handle)
	if err != nil {
		return 0, err
	}
	c, ok := mux.table.Get(handle)
	if !ok {
		return 0, fmt.Errorf("handle %d: %w", handle, api.ErrInvalidHandle)
	}
	n, err := c.Send(p)
	if n > 0 {
		mux.wake()
	}
	return n, err
}

// Recv moves up to maxLen queued inbound bytes of handle into dst starting
// at offset and returns how many were copied, possibly 0.
func (s *Server) Recv(handle int, dst []byte, offset, maxLen int) (int, error) {
	if offset < 0 || maxLen < 0 || offset > len(dst) || maxLen > len(dst)-offset {
		return 0, fmt.Errorf("recv offset %d len %d into %d bytes: %w",
			offset, maxLen, len(dst), api.ErrInvalidArgument)
	}
	mux, err := s.lookup(handle)
	if err != nil {
		return 0, err
	}
	c, ok := mux.table.Get(handle)
	if !ok {
		return 0, fmt.Errorf("handle %d: %w", handle, api.ErrInvalidHandle)
	}
	return c.Recv(dst[offset : offset+maxLen])
}

// LocalPort returns the bound port, or 0 before Bind.
func (s *Server) LocalPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Bound reports whether Bind succeeded.
func (s *Server) Bound() bool { return s.bound.Load() }

// Listening reports whether the multiplexer is running.
func (s *Server) Listening() bool { return s.listening.Load() }

// ConnCount returns the number of open connections.
func (s *Server) ConnCount() int {
	if mux := s.mux.Load(); mux != nil {
		return mux.table.Len()
	}
	return 0
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Drained is closed once the server is closed and every queued
// notification has reached the notifier. It is already closed for a server
// that was never bound, which has nothing to deliver.
func (s *Server) Drained() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dispatcher == nil {
		return closedChan
	}
	return s.dispatcher.Done()
}
