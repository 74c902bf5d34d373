package function

import (
	"log/slog"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// WithDecoder sets the decoder used by [Arguments.Decode].
func WithDecoder(d domain.Decoder) Option {
	return func(r *Registry) {
		r.decoder = d
	}
}

// WithComparer sets the comparer used by Min and Max.
func WithComparer(c domain.Comparer) Option {
	return func(r *Registry) {
		r.comparer = c
	}
}

// WithPatternMatcher sets the matcher used by IsLike.
func WithPatternMatcher(p domain.PatternMatcher) Option {
	return func(r *Registry) {
		r.patterns = p
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithoutBuiltins returns an empty registry.
func WithoutBuiltins() Option {
	return func(r *Registry) {
		r.builtins = false
	}
}

// Option configures the registry through the functional options pattern.
type Option func(*Registry)
