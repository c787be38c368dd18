// File: facade/host.go
// Package facade
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Host exposes one Server through the call surface a host bridge expects:
// bind and listen return result records, close blocks, send and recv return
// plain byte counts.

package facade

import (
	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/server"
	"go.uber.org/zap"
)

// Host adapts a server.Server to result-shaped calls.
type Host struct {
	srv *server.Server
	log *zap.Logger
}

// New creates a Host around a fresh Server delivering to notifier. A nil
// logger disables logging.
func New(cfg *server.Config, notifier api.Notifier, logger *zap.Logger, opts ...server.ServerOption) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	all := append([]server.ServerOption{
		server.WithNotifier(notifier),
		server.WithLogger(logger),
	}, opts...)
	srv, err := server.NewServer(cfg, all...)
	if err != nil {
		return nil, err
	}
	return &Host{srv: srv, log: logger.Named("host")}, nil
}

// Server returns the wrapped Server.
func (h *Host) Server() *server.Server { return h.srv }

// Bind binds the listening socket and reports the bound port on success.
func (h *Host) Bind(port int, address string) api.Result {
	bound, err := h.srv.Bind(port, address)
	r := api.ResultOf(err)
	if err == nil {
		r.LocalPort = bound
	}
	return r
}

// Listen starts accepting connections.
func (h *Host) Listen(backlog int) api.Result {
	return api.ResultOf(h.srv.Listen(backlog))
}

// Close stops the server. It blocks until every socket is closed.
func (h *Host) Close() {
	h.srv.Close()
}

// Send queues p on handle and returns the number of bytes queued. An unknown
// or closed handle queues nothing.
func (h *Host) Send(handle int, p []byte) int {
	n, err := h.srv.Send(handle, p)
	if err != nil {
		h.log.Debug("send ignored", zap.Int("handle", handle), zap.Error(err))
	}
	return n
}

// Recv copies up to maxLen queued bytes of handle into dst at offset and
// returns the count, 0 when nothing is queued or the call is invalid.
func (h *Host) Recv(handle int, dst []byte, offset, maxLen int) int {
	n, err := h.srv.Recv(handle, dst, offset, maxLen)
	if err != nil {
		h.log.Debug("recv ignored", zap.Int("handle", handle), zap.Error(err))
	}
	return n
}
