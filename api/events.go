// File: api/events.go
// Package api defines the notifications emitted by the multiplexer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "strconv"

// NotificationKind names one of the notifications delivered to the host.
type NotificationKind string

const (
	SocketOpened    NotificationKind = "SocketOpened"
	SocketDataReady NotificationKind = "SocketDataReady"
	SocketClosed    NotificationKind = "SocketClosed"
	SocketIOError   NotificationKind = "SocketIOError"
	SocketShutdown  NotificationKind = "SocketShutdown"
)

// Notification is a single asynchronous event raised by the multiplexer loop.
// Handle is meaningful for Opened, DataReady and Closed; Length only for
// DataReady; Message only for IOError.
type Notification struct {
	Kind    NotificationKind
	Handle  int
	Length  int
	Message string
}

// Name returns the wire name of the notification.
func (n Notification) Name() string { return string(n.Kind) }

// Payload renders the string payload handed to the host bridge:
// "<handle>" for Opened/Closed, "<handle>,<length>" for DataReady,
// the message text for IOError and "" for Shutdown.
func (n Notification) Payload() string {
	switch n.Kind {
	case SocketOpened, SocketClosed:
		return strconv.Itoa(n.Handle)
	case SocketDataReady:
		return strconv.Itoa(n.Handle) + "," + strconv.Itoa(n.Length)
	case SocketIOError:
		return n.Message
	default:
		return ""
	}
}

func (n Notification) String() string {
	return n.Name() + "(" + n.Payload() + ")"
}

// Opened builds a SocketOpened notification.
func Opened(handle int) Notification {
	return Notification{Kind: SocketOpened, Handle: handle}
}

// DataReady builds a SocketDataReady notification.
func DataReady(handle, length int) Notification {
	return Notification{Kind: SocketDataReady, Handle: handle, Length: length}
}

// Closed builds a SocketClosed notification.
func Closed(handle int) Notification {
	return Notification{Kind: SocketClosed, Handle: handle}
}

// IOError builds a SocketIOError notification.
func IOError(message string) Notification {
	return Notification{Kind: SocketIOError, Handle: -1, Message: message}
}

// Shutdown builds the terminal SocketShutdown notification.
func Shutdown() Notification {
	return Notification{Kind: SocketShutdown, Handle: -1}
}

// Notifier receives notifications from the multiplexer. Implementations are
// called from a single delivery goroutine, never from the polling loop.
type Notifier interface {
	Notify(n Notification)
}

// NotifyFunc adapts a plain function to Notifier.
type NotifyFunc func(n Notification)

// Notify implements Notifier.
func (f NotifyFunc) Notify(n Notification) { f(n) }
