//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"golang.org/x/sys/unix"
)

// epollReactor implements api.Poller using level-triggered Linux epoll.
// It is driven by a single goroutine and holds no lock.
type epollReactor struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{epfd: epfd}, nil
}

func epollMask(interest api.IOEvent) uint32 {
	var mask uint32
	if interest&api.EventRead != 0 {
		mask |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest&api.EventWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// Register adds a file descriptor to the epoll watch list.
func (r *epollReactor) Register(fd int, interest api.IOEvent) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd %d: %w", fd, err)
	}
	return nil
}

// Modify replaces the interest set of fd.
func (r *epollReactor) Modify(fd int, interest api.IOEvent) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd %d: %w", fd, err)
	}
	return nil
}

// Unregister removes a file descriptor from the epoll watch list.
func (r *epollReactor) Unregister(fd int) error {
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("epoll ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Wait blocks up to timeout and reports ready descriptors into out.
func (r *epollReactor) Wait(timeout time.Duration, out []api.ReadyEvent) (int, error) {
	if len(out) == 0 {
		return 0, api.ErrInvalidArgument
	}
	if cap(r.events) < len(out) {
		r.events = make([]unix.EpollEvent, len(out))
	}
	raw := r.events[:len(out)]

	n, err := unix.EpollWait(r.epfd, raw, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		var ev api.IOEvent
		flags := raw[i].Events
		if flags&unix.EPOLLIN != 0 {
			ev |= api.EventRead
		}
		if flags&unix.EPOLLOUT != 0 {
			ev |= api.EventWrite
		}
		if flags&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
			ev |= api.EventError
		}
		out[i] = api.ReadyEvent{Fd: int(raw[i].Fd), Events: ev}
	}
	return n, nil
}

// Close releases the epoll file descriptor.
func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
