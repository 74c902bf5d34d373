package planner

import "log/slog"

// WithLogger sets the logger receiving plan choices.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = l
	}
}

// Option configures planner behavior through the functional options pattern.
type Option func(*Planner)
