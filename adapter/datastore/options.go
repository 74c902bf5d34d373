package datastore

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/config"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// WithConfig sets the engine settings. The logger is built from cfg.Log
// unless [WithLogger] is also given.
func WithConfig(cfg config.Config) Option {
	return func(d *Datastore) {
		d.cfg = cfg
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(d *Datastore) {
		d.logger = l
	}
}

// WithComparer sets the comparer for value comparison operations.
func WithComparer(c domain.Comparer) Option {
	return func(d *Datastore) {
		d.comparer = c
	}
}

// WithPatternMatcher sets the matcher deciding like predicates.
func WithPatternMatcher(p domain.PatternMatcher) Option {
	return func(d *Datastore) {
		d.patterns = p
	}
}

// WithDecoder sets the decoder for data format conversions.
func WithDecoder(dec domain.Decoder) Option {
	return func(d *Datastore) {
		d.decoder = dec
	}
}

// WithHasher sets the hasher computing statement cache keys.
func WithHasher(h domain.Hasher) Option {
	return func(d *Datastore) {
		d.hasher = h
	}
}

// WithLockManager sets the lock manager. The lock settings of the config and
// the registerer are then ignored.
func WithLockManager(l domain.LockManager) Option {
	return func(d *Datastore) {
		d.locks = l
	}
}

// WithRegisterer registers the lock metrics on r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(d *Datastore) {
		d.registerer = r
	}
}

// WithTimeGetter sets the clock stamping transaction start times.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(d *Datastore) {
		d.clock = t
	}
}

// Option configures the datastore through the functional options pattern.
type Option func(*Datastore)
