//go:build !unix

// File: internal/transport/wakeup_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "github.com/momentics/hioload-tcp/api"

// WakePipe is unavailable on this platform.
type WakePipe struct{}

func NewWakePipe() (*WakePipe, error) { return nil, api.ErrNotSupported }

func (p *WakePipe) Fd() int { return -1 }

func (p *WakePipe) Signal() {}

func (p *WakePipe) Drain() {}

func (p *WakePipe) Close() error { return nil }
