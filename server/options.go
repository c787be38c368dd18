// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
	"go.uber.org/zap"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the structured logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithNotifier sets the host sink for notifications.
func WithNotifier(n api.Notifier) ServerOption {
	return func(s *Server) {
		s.notifier = n
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *control.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithPollTimeout overrides the bounded readiness wait.
func WithPollTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.cfg.PollTimeout = d
	}
}

// WithReadChunk overrides the per-event receive size.
func WithReadChunk(n int) ServerOption {
	return func(s *Server) {
		s.cfg.ReadChunk = n
	}
}

// WithMaxConnections overrides the connection table capacity.
func WithMaxConnections(n int) ServerOption {
	return func(s *Server) {
		s.cfg.MaxConnections = n
	}
}

// WithMaxEvents overrides the readiness batch size.
func WithMaxEvents(n int) ServerOption {
	return func(s *Server) {
		s.cfg.MaxEvents = n
	}
}

// WithPollerFactory replaces the native readiness backend.
func WithPollerFactory(f api.PollerFactory) ServerOption {
	return func(s *Server) {
		if f != nil {
			s.newPoller = f
		}
	}
}

// WithLoopCPU pins the multiplexer thread to cpu. A negative value leaves it
// unpinned.
func WithLoopCPU(cpu int) ServerOption {
	return func(s *Server) {
		if cpu < 0 {
			cpu = -1
		}
		s.cfg.LoopCPU = cpu
	}
}
