package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationPayloads(t *testing.T) {
	cases := []struct {
		n       Notification
		name    string
		payload string
	}{
		{Opened(0), "SocketOpened", "0"},
		{DataReady(3, 10), "SocketDataReady", "3,10"},
		{Closed(7), "SocketClosed", "7"},
		{IOError("Incoming socket rejected"), "SocketIOError", "Incoming socket rejected"},
		{Shutdown(), "SocketShutdown", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.n.Name())
			assert.Equal(t, tc.payload, tc.n.Payload())
			assert.Equal(t, tc.name+"("+tc.payload+")", tc.n.String())
		})
	}
}

func TestNotifyFunc(t *testing.T) {
	var got Notification
	var n Notifier = NotifyFunc(func(x Notification) { got = x })
	n.Notify(Closed(2))
	assert.Equal(t, SocketClosed, got.Kind)
	assert.Equal(t, 2, got.Handle)
}
