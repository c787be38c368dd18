// File: server/types.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/internal/transport"
	"github.com/momentics/hioload-tcp/reactor"
)

// DefaultPollTimeout bounds one readiness wait and therefore the worst-case
// delay between a stop request and the loop noticing it.
const DefaultPollTimeout = 512 * time.Millisecond

// DefaultReadChunk is the largest receive performed per readiness event.
const DefaultReadChunk = 512

// Config holds all server-side configuration parameters.
type Config struct {
	PollTimeout    time.Duration // bounded readiness wait per loop iteration
	ReadChunk      int           // max bytes pulled from a socket per readable event
	MaxConnections int           // connection table capacity
	MaxEvents      int           // readiness events reported per wait
	LoopCPU        int           // CPU the loop thread is pinned to, -1 for none
}

// DefaultConfig returns sensible defaults. MaxConnections follows the
// platform's listen backlog limit.
func DefaultConfig() *Config {
	return &Config{
		PollTimeout:    DefaultPollTimeout,
		ReadChunk:      DefaultReadChunk,
		MaxConnections: transport.MaxBacklog(),
		MaxEvents:      reactor.DefaultMaxEvents,
		LoopCPU:        -1,
	}
}

func (c *Config) validate() error {
	switch {
	case c.PollTimeout <= 0:
		return fmt.Errorf("poll timeout %v: %w", c.PollTimeout, api.ErrInvalidArgument)
	case c.ReadChunk <= 0:
		return fmt.Errorf("read chunk %d: %w", c.ReadChunk, api.ErrInvalidArgument)
	case c.MaxConnections <= 0:
		return fmt.Errorf("max connections %d: %w", c.MaxConnections, api.ErrInvalidArgument)
	case c.MaxEvents <= 0:
		return fmt.Errorf("max events %d: %w", c.MaxEvents, api.ErrInvalidArgument)
	case c.LoopCPU < -1:
		return fmt.Errorf("loop cpu %d: %w", c.LoopCPU, api.ErrInvalidArgument)
	}
	return nil
}
