package lockmgr

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WithTimeout sets the timeout used by Acquire calls passing zero.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d != 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger receiving lock waits and timeouts.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithRegisterer registers the lock metrics on r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *Manager) {
		m.registerer = r
	}
}

// WithNamespace prefixes every metric name.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		m.namespace = ns
	}
}

// Option configures lock manager behavior through the functional options
// pattern.
type Option func(*Manager)
