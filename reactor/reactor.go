// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral constructor and helpers shared by the poller backends.

package reactor

import (
	"time"

	"github.com/momentics/hioload-tcp/api"
)

// DefaultMaxEvents bounds how many ready descriptors one Wait reports.
const DefaultMaxEvents = 128

// New constructs the native api.Poller for the running platform.
func New() (api.Poller, error) {
	return newPoller()
}

// Factory returns New as an api.PollerFactory.
func Factory() api.PollerFactory {
	return New
}

// timeoutMillis converts a wait timeout to the millisecond form the kernel
// expects. Negative durations block indefinitely; sub-millisecond positive
// durations round up so they never turn into a busy poll.
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := int(d / time.Millisecond)
	if ms == 0 && d > 0 {
		ms = 1
	}
	return ms
}
