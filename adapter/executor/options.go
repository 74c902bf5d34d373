package executor

import (
	"log/slog"
	"time"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/function"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/index"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/planner"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// WithFetcher sets the document source.
func WithFetcher(f domain.DocumentFetcher) Option {
	return func(e *Executor) {
		e.fetcher = f
	}
}

// WithCatalog sets the indexes available to the planner.
func WithCatalog(c *index.Catalog) Option {
	return func(e *Executor) {
		e.catalog = c
	}
}

// WithPlanner sets the planner choosing index access paths.
func WithPlanner(p *planner.Planner) Option {
	return func(e *Executor) {
		e.planner = p
	}
}

// WithMatcher sets the condition matcher.
func WithMatcher(m *matcher.Matcher) Option {
	return func(e *Executor) {
		e.matcher = m
	}
}

// WithComparer sets the comparer used for sorting and by the default matcher.
func WithComparer(c domain.Comparer) Option {
	return func(e *Executor) {
		e.comparer = c
	}
}

// WithFunctions sets the function registry used by projections.
func WithFunctions(r *function.Registry) Option {
	return func(e *Executor) {
		e.functions = r
	}
}

// WithDecoder sets the decoder handed to result cursors.
func WithDecoder(d domain.Decoder) Option {
	return func(e *Executor) {
		e.decoder = d
	}
}

// WithLockTimeout sets the timeout of every lock a statement takes. Zero uses
// the transaction default.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.lockTimeout = d
	}
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// Option configures executor behavior through the functional options pattern.
type Option func(*Executor)
