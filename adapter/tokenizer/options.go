package tokenizer

import "github.com/vinicius-lino-figueiredo/gedbql/domain"

// WithHasher sets the hasher used to compute the structural hash.
func WithHasher(h domain.Hasher) Option {
	return func(t *Tokenizer) {
		t.hasher = h
	}
}

// WithDelimiters replaces the default token delimiters (',' and '=').
// Whitespace always delimits tokens.
func WithDelimiters(d string) Option {
	return func(t *Tokenizer) {
		t.delimiters = d
	}
}

// WithBreadcrumbLimit sets how many emitted tokens are kept for diagnostics.
// Non-positive values keep every token.
func WithBreadcrumbLimit(l int) Option {
	return func(t *Tokenizer) {
		t.breadcrumbLimit = l
	}
}

// WithParams sets the parameter table consulted by
// [Tokenizer.ResolveLiteral]. Parameter names are case-insensitive.
func WithParams(p map[string]domain.Value) Option {
	return func(t *Tokenizer) {
		t.params = p
	}
}

// Option configures tokenizer behavior through the functional options pattern.
type Option func(*Tokenizer)
