package executor

import (
	"slices"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/row"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// sortRows orders rows by the sort keys using the total order of the
// comparer, so nulls come first and no comparison fails. Keys read the
// projected value when the field is projected and the auxiliary field
// otherwise.
func (e *Executor) sortRows(rows []*row.Row, keys []SortKey, p *projection) []*row.Row {
	if len(keys) == 0 {
		return rows
	}
	getters := make([]func(*row.Row) domain.Value, len(keys))
	for n, k := range keys {
		getters[n] = p.getter(k)
	}

	res := slices.Clone(rows)
	slices.SortStableFunc(res, func(a, b *row.Row) int {
		for n, k := range keys {
			comp := e.comparer.Order(getters[n](a), getters[n](b))
			if comp == 0 {
				continue
			}
			if k.Descending {
				return -comp
			}
			return comp
		}
		return 0
	})
	return res
}

func (p *projection) getter(k SortKey) func(*row.Row) domain.Value {
	if !k.Operand.IsField() {
		return func(*row.Row) domain.Value { return k.Operand.Value }
	}
	name := k.Operand.String()
	for n, f := range p.fields {
		if f.Call == nil && f.Operand.IsField() && domain.Fold(f.Operand.String()) == domain.Fold(name) {
			return func(r *row.Row) domain.Value { return r.Value(n) }
		}
	}
	return func(r *row.Row) domain.Value {
		v, _ := r.Auxiliary(name)
		return v
	}
}

// skipAndLimit cuts the sorted result. A zero limit keeps every row after the
// skipped ones.
func skipAndLimit(rows []*row.Row, skip, limit int) []*row.Row {
	length := len(rows)
	skip = min(max(skip, 0), length)
	end := length
	if limit > 0 {
		end = min(skip+limit, length)
	}
	return rows[skip:end]
}
