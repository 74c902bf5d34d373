package matcher

import (
	"log/slog"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// WithComparer sets the comparer implementation for value comparisons during
// matching.
func WithComparer(c domain.Comparer) Option {
	return func(m *Matcher) {
		m.comparer = c
	}
}

// WithPatternMatcher sets the implementation deciding Like and NotLike.
func WithPatternMatcher(p domain.PatternMatcher) Option {
	return func(m *Matcher) {
		m.patterns = p
	}
}

// WithLogger sets the logger receiving disqualification events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = l
	}
}

// WithPatternCacheSize sets how many compiled patterns a [Like] keeps.
// Non-positive sizes keep one.
func WithPatternCacheSize(n int) LikeOption {
	return func(l *Like) {
		l.size = n
	}
}

// LikeOption configures a [Like] through the functional options pattern.
type LikeOption func(*Like)

// Option configures matcher behavior through the functional options pattern.
type Option func(*Matcher)
