package index

import "github.com/vinicius-lino-figueiredo/gedbql/domain"

// WithName sets the index name. Defaults to the schema followed by the
// attribute fields, joined by underscores.
func WithName(n string) Option {
	return func(i *Index) {
		i.name = n
	}
}

// WithSchema sets the indexed schema.
func WithSchema(s string) Option {
	return func(i *Index) {
		i.schema = s
	}
}

// WithAttributes sets the ordered attribute path.
func WithAttributes(fields ...string) Option {
	return func(i *Index) {
		i.attributes = make([]domain.IndexAttribute, len(fields))
		for n, f := range fields {
			i.attributes[n] = domain.IndexAttribute{Field: f}
		}
	}
}

// WithUnique rejects duplicate keys when u is true.
func WithUnique(u bool) Option {
	return func(i *Index) {
		i.unique = u
	}
}

// WithComparer sets the comparer ordering key values.
func WithComparer(c domain.Comparer) Option {
	return func(i *Index) {
		i.comparer = c
	}
}

// Option configures index behavior through the functional options pattern.
type Option func(*Index)
