// File: bridge/doc.go
// Package bridge
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Asynchronous delivery of multiplexer notifications to the host.
//
// The polling loop never calls host code directly: it posts notifications to
// a Dispatcher, which queues them without bound and hands them to the host's
// api.Notifier, in order, from its own goroutine.

package bridge
