package transaction

import (
	"log/slog"
	"time"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// WithLockManager sets the lock table shared by the transactions.
func WithLockManager(l domain.LockManager) Option {
	return func(m *Manager) {
		m.locks = l
	}
}

// WithLockTimeout sets the timeout of Acquire calls passing zero. Zero leaves
// the choice to the lock manager.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithLogger sets the logger receiving transaction events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithTimeGetter sets the clock stamping transaction start times.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(m *Manager) {
		m.clock = t
	}
}

// Option configures transaction manager behavior through the functional
// options pattern.
type Option func(*Manager)
