// File: adapters/notifier_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Notifier middleware chain: logging, panic recovery and metrics around the
// host's notification sink.

package adapters

import (
	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
	"go.uber.org/zap"
)

// Middleware wraps a Notifier.
type Middleware func(api.Notifier) api.Notifier

// Chain applies middleware so that the first one is outermost.
func Chain(base api.Notifier, mw ...Middleware) api.Notifier {
	n := base
	for i := len(mw) - 1; i >= 0; i-- {
		n = mw[i](n)
	}
	return n
}

// LoggingMiddleware logs every notification; IOError at Warn, the rest at Debug.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next api.Notifier) api.Notifier {
		return api.NotifyFunc(func(n api.Notification) {
			if n.Kind == api.SocketIOError {
				logger.Warn("notify", zap.String("name", n.Name()), zap.String("payload", n.Payload()))
			} else {
				logger.Debug("notify", zap.String("name", n.Name()), zap.String("payload", n.Payload()))
			}
			next.Notify(n)
		})
	}
}

// RecoveryMiddleware recovers from panics in the wrapped notifier.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next api.Notifier) api.Notifier {
		return api.NotifyFunc(func(n api.Notification) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("notifier panic recovered", zap.Any("panic", r), zap.String("name", n.Name()))
				}
			}()
			next.Notify(n)
		})
	}
}

// MetricsMiddleware counts notifications by kind.
func MetricsMiddleware(m *control.Metrics) Middleware {
	return func(next api.Notifier) api.Notifier {
		return api.NotifyFunc(func(n api.Notification) {
			m.Notified(n.Name())
			next.Notify(n)
		})
	}
}

// Discard is a Notifier that drops everything.
var Discard api.Notifier = api.NotifyFunc(func(api.Notification) {})
