package condition

import "github.com/vinicius-lino-figueiredo/gedbql/domain"

// WithComparer sets the comparer implementation for value comparisons.
func WithComparer(c domain.Comparer) Option {
	return func(e *Evaluator) {
		e.comparer = c
	}
}

// WithPatternMatcher sets the matcher used by Like and NotLike.
func WithPatternMatcher(p domain.PatternMatcher) Option {
	return func(e *Evaluator) {
		e.patterns = p
	}
}

// Option configures evaluator behavior through the functional options
// pattern.
type Option func(*Evaluator)
