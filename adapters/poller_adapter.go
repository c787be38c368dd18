// File: adapters/poller_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PollerAdapter decorates an api.Poller with wait-latency metrics.

package adapters

import (
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
)

// PollerAdapter observes every Wait of the wrapped poller.
type PollerAdapter struct {
	api.Poller
	metrics *control.Metrics
}

// NewPollerAdapter wraps p. With nil metrics p is returned unchanged.
func NewPollerAdapter(p api.Poller, m *control.Metrics) api.Poller {
	if m == nil {
		return p
	}
	return &PollerAdapter{Poller: p, metrics: m}
}

// Wait implements api.Poller.
func (p *PollerAdapter) Wait(timeout time.Duration, out []api.ReadyEvent) (int, error) {
	start := time.Now()
	n, err := p.Poller.Wait(timeout, out)
	p.metrics.PollWait(time.Since(start))
	return n, err
}
