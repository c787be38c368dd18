//go:build unix

// File: internal/transport/listener_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking TCP listener over raw descriptors.

package transport

import (
	"fmt"
	"net/netip"

	"github.com/momentics/hioload-tcp/api"
	"golang.org/x/sys/unix"
)

// Listener owns one bound, non-blocking TCP socket.
type Listener struct {
	fd   int
	addr netip.Addr
	port int
}

// MaxBacklog is the platform's listen backlog limit. It also bounds the
// number of live connections one server keeps.
func MaxBacklog() int {
	return unix.SOMAXCONN
}

func bindError(step string, address string, port int, err error) error {
	return api.WrapError(api.ErrCodeBind, step, err).
		WithContext("address", address).
		WithContext("port", port)
}

// Bind creates a TCP socket, enables address reuse and non-blocking mode and
// binds it to address:port. A zero port is resolved to the kernel-assigned
// ephemeral port, readable through Port.
func Bind(port int, address string) (*Listener, error) {
	if !validPort(port) {
		return nil, bindError("validate port", address, port, api.ErrInvalidArgument)
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, bindError("resolve address", address, port, err)
	}

	family := unix.AF_INET
	if addr.Is6() {
		family = unix.AF_INET6
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, bindError("socket", address, port, err)
	}
	unix.CloseOnExec(fd)

	fail := func(step string, err error) (*Listener, error) {
		_ = unix.Close(fd)
		return nil, bindError(step, address, port, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt SO_REUSEADDR", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("set non-blocking", err)
	}
	if err := unix.Bind(fd, sockaddr(addr, port)); err != nil {
		return fail("bind", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}

	l := &Listener{fd: fd, addr: addr}
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		l.port = v.Port
	case *unix.SockaddrInet6:
		l.port = v.Port
	}
	return l, nil
}

func sockaddr(addr netip.Addr, port int) unix.Sockaddr {
	if addr.Is4() {
		return &unix.SockaddrInet4{Port: port, Addr: addr.As4()}
	}
	return &unix.SockaddrInet6{Port: port, Addr: addr.As16()}
}

// Listen opens the socket for incoming connections. The backlog is clamped
// to MaxBacklog; non-positive values fall back to the kernel's minimum.
func (l *Listener) Listen(backlog int) error {
	if l.fd < 0 {
		return api.WrapError(api.ErrCodeListen, "listen", unix.EBADF)
	}
	if backlog > MaxBacklog() {
		backlog = MaxBacklog()
	}
	if backlog < 0 {
		backlog = 0
	}
	if err := unix.Listen(l.fd, backlog); err != nil {
		return api.WrapError(api.ErrCodeListen, "listen", err).WithContext("backlog", backlog)
	}
	return nil
}

// Accept takes one pending connection. It returns api.ErrWouldBlock when the
// queue is empty. The accepted descriptor is close-on-exec but still blocking.
func (l *Listener) Accept() (int, error) {
	nfd, _, err := unix.Accept(l.fd)
	if err != nil {
		if api.IsWouldBlock(err) {
			return -1, api.ErrWouldBlock
		}
		return -1, fmt.Errorf("accept: %w", err)
	}
	unix.CloseOnExec(nfd)
	return nfd, nil
}

// Fd returns the listening descriptor, or -1 after Close.
func (l *Listener) Fd() int { return l.fd }

// Port returns the bound local port.
func (l *Listener) Port() int { return l.port }

// Addr returns the bound local address.
func (l *Listener) Addr() netip.Addr { return l.addr }

// Close releases the descriptor. Repeated calls are no-ops.
func (l *Listener) Close() error {
	if l.fd < 0 {
		return nil
	}
	fd := l.fd
	l.fd = -1
	return unix.Close(fd)
}

// SetNonblock switches an accepted descriptor to non-blocking mode.
func SetNonblock(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("set non-blocking fd %d: %w", fd, err)
	}
	return nil
}

// CloseFD closes a connection descriptor.
func CloseFD(fd int) error {
	return unix.Close(fd)
}
