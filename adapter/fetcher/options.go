package fetcher

import "github.com/vinicius-lino-figueiredo/gedbql/domain"

// WithPageSize sets how many documents fit in a page. Defaults to 64.
func WithPageSize(n uint64) Option {
	return func(m *Memory) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithCorruptAlertThreshold sets the share of unreadable lines tolerated by
// Load, between 0 and 1. Defaults to 0.1.
func WithCorruptAlertThreshold(t float64) Option {
	return func(m *Memory) {
		m.corruptThreshold = t
	}
}

// WithParser sets the function reading each line passed to Load.
func WithParser(p func([]byte) (domain.Fields, error)) Option {
	return func(m *Memory) {
		m.parse = p
	}
}

// Option configures the store through the functional options pattern.
type Option func(*Memory)
