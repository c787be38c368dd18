//go:build !unix

// File: internal/transport/listener_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net/netip"

	"github.com/momentics/hioload-tcp/api"
)

// Listener is unavailable on this platform.
type Listener struct{}

// MaxBacklog mirrors the common SOMAXCONN default.
func MaxBacklog() int { return 128 }

// Bind always fails on unsupported platforms.
func Bind(port int, address string) (*Listener, error) {
	return nil, api.WrapError(api.ErrCodeBind, "bind", api.ErrNotSupported)
}

func (l *Listener) Listen(int) error {
	return api.WrapError(api.ErrCodeListen, "listen", api.ErrNotSupported)
}

func (l *Listener) Accept() (int, error) { return -1, api.ErrNotSupported }

func (l *Listener) Fd() int { return -1 }

func (l *Listener) Port() int { return 0 }

func (l *Listener) Addr() netip.Addr { return netip.Addr{} }

func (l *Listener) Close() error { return nil }

func SetNonblock(int) error { return api.ErrNotSupported }

func CloseFD(int) error { return api.ErrNotSupported }
