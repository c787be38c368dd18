// File: bridge/chan_notifier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bridge

import "github.com/momentics/hioload-tcp/api"

// ChanNotifier forwards notifications to a buffered channel. A full channel
// applies back-pressure to the Dispatcher goroutine only.
type ChanNotifier struct {
	C chan api.Notification
}

// NewChanNotifier creates a ChanNotifier with the given buffer size.
func NewChanNotifier(size int) *ChanNotifier {
	if size < 0 {
		size = 0
	}
	return &ChanNotifier{C: make(chan api.Notification, size)}
}

// Notify implements api.Notifier.
func (c *ChanNotifier) Notify(n api.Notification) {
	c.C <- n
}
