//go:build unix && !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - poll(2) implementation for BSD and Darwin.

package reactor

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"golang.org/x/sys/unix"
)

// pollReactor rebuilds a pollfd array from its interest table on every Wait,
// which mirrors the fd_set construction of a select loop.
type pollReactor struct {
	order    []int
	interest map[int]api.IOEvent
	fds      []unix.PollFd
}

func newPoller() (api.Poller, error) {
	return &pollReactor{interest: make(map[int]api.IOEvent)}, nil
}

func (r *pollReactor) Register(fd int, interest api.IOEvent) error {
	if _, ok := r.interest[fd]; ok {
		return fmt.Errorf("poll register fd %d: %w", fd, unix.EEXIST)
	}
	r.interest[fd] = interest
	r.order = append(r.order, fd)
	return nil
}

func (r *pollReactor) Modify(fd int, interest api.IOEvent) error {
	if _, ok := r.interest[fd]; !ok {
		return fmt.Errorf("poll modify fd %d: %w", fd, unix.ENOENT)
	}
	r.interest[fd] = interest
	return nil
}

func (r *pollReactor) Unregister(fd int) error {
	if _, ok := r.interest[fd]; !ok {
		return nil
	}
	delete(r.interest, fd)
	for i, v := range r.order {
		if v == fd {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *pollReactor) Wait(timeout time.Duration, out []api.ReadyEvent) (int, error) {
	if len(out) == 0 {
		return 0, api.ErrInvalidArgument
	}
	r.fds = r.fds[:0]
	for _, fd := range r.order {
		var events int16
		in := r.interest[fd]
		if in&api.EventRead != 0 {
			events |= unix.POLLIN
		}
		if in&api.EventWrite != 0 {
			events |= unix.POLLOUT
		}
		r.fds = append(r.fds, unix.PollFd{Fd: int32(fd), Events: events})
	}

	n, err := unix.Poll(r.fds, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("poll: %w", err)
	}
	if n <= 0 {
		return 0, nil
	}

	count := 0
	for _, pfd := range r.fds {
		if pfd.Revents == 0 {
			continue
		}
		if count == len(out) {
			break
		}
		var ev api.IOEvent
		if pfd.Revents&unix.POLLIN != 0 {
			ev |= api.EventRead
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			ev |= api.EventWrite
		}
		if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			ev |= api.EventError
		}
		out[count] = api.ReadyEvent{Fd: int(pfd.Fd), Events: ev}
		count++
	}
	return count, nil
}

func (r *pollReactor) Close() error {
	r.order = nil
	r.interest = map[int]api.IOEvent{}
	return nil
}
