package executor

import (
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/condition"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/function"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/row"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

// projection turns matched documents into rows. Aggregate projections fold
// every match into a single row instead.
type projection struct {
	fields    []FieldRef
	columns   []string
	auxiliary []condition.Operand
	functions *function.Registry

	aggregate bool
	accs      []*function.Accumulation
	first     *row.Row
}

func newProjection(stmt Statement, docs [][]document, functions *function.Registry, aggregate bool) (*projection, error) {
	p := &projection{fields: stmt.Fields, functions: functions, aggregate: aggregate}
	if len(p.fields) == 0 {
		p.fields = expand(stmt.Schemas, docs)
	}

	projected := keymap.New[struct{}]()
	for _, f := range p.fields {
		p.columns = append(p.columns, f.Label())
		if f.Call == nil && f.Operand.IsField() {
			projected.Set(f.Operand.String(), struct{}{})
		}
	}

	var referenced []condition.Operand
	if stmt.Conditions != nil {
		referenced = stmt.Conditions.Fields()
	}
	for _, k := range stmt.Sort {
		if k.Operand.IsField() {
			referenced = append(referenced, k.Operand)
		}
	}
	for _, o := range referenced {
		if projected.Has(o.String()) {
			continue
		}
		projected.Set(o.String(), struct{}{})
		p.auxiliary = append(p.auxiliary, o)
	}

	if aggregate {
		p.accs = make([]*function.Accumulation, len(p.fields))
		for n, f := range p.fields {
			if f.Call == nil {
				continue
			}
			def, err := functions.Lookup(f.Call.Function)
			if err != nil {
				return nil, err
			}
			if !def.IsAggregate() {
				continue
			}
			if p.accs[n], err = functions.Accumulate(def.Name); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// expand lists every field of the documents read, in order of first
// appearance. Columns carry the alias only when several schemas are read.
func expand(schemas []SchemaRef, docs [][]document) []FieldRef {
	var res []FieldRef
	for n, ref := range schemas {
		seen := keymap.New[struct{}]()
		for _, doc := range docs[n] {
			for _, k := range doc.fields.Keys() {
				if seen.Has(k) {
					continue
				}
				seen.Set(k, struct{}{})
				f := Column(ref.Label(), k)
				if len(schemas) == 1 {
					f.As = k
				}
				res = append(res, f)
			}
		}
	}
	return res
}

// add projects one match. It returns nil when the match was folded into an
// aggregate.
func (p *projection) add(src *matcher.Sources, aliases []string, ptrs []domain.DocumentPointer) (*row.Row, error) {
	if p.aggregate {
		return nil, p.accumulate(src, aliases, ptrs)
	}
	return p.row(src, aliases, ptrs)
}

func (p *projection) row(src *matcher.Sources, aliases []string, ptrs []domain.DocumentPointer) (*row.Row, error) {
	r := row.New()
	for n, alias := range aliases {
		r.AddSchemaPointer(alias, ptrs[n])
	}
	for n, f := range p.fields {
		if p.aggregate && p.accs[n] != nil {
			continue
		}
		v, err := p.value(f, src)
		if err != nil {
			return nil, err
		}
		r.InsertValue(n, v)
	}
	for _, o := range p.auxiliary {
		v, err := src.Resolve(o)
		if err != nil {
			return nil, err
		}
		r.SetAuxiliary(o.String(), v)
	}
	return r, nil
}

func (p *projection) value(f FieldRef, src *matcher.Sources) (domain.Value, error) {
	if f.Call == nil {
		return src.Resolve(f.Operand)
	}
	args, err := p.args(f.Call, src)
	if err != nil {
		return domain.Null(), err
	}
	return p.functions.Call(f.Call.Function, args...)
}

func (p *projection) args(c *Call, src *matcher.Sources) ([]function.Arg, error) {
	res := make([]function.Arg, len(c.Args))
	for n, a := range c.Args {
		v, err := src.Resolve(a.Operand)
		if err != nil {
			return nil, err
		}
		res[n] = function.Arg{Name: a.Name, Value: v}
	}
	return res, nil
}

// accumulate feeds the aggregates. Plain projections of an aggregate
// statement take their values from the first match.
func (p *projection) accumulate(src *matcher.Sources, aliases []string, ptrs []domain.DocumentPointer) error {
	if p.first == nil {
		r, err := p.row(src, aliases, ptrs)
		if err != nil {
			return err
		}
		p.first = r
	}
	for n, acc := range p.accs {
		if acc == nil {
			continue
		}
		args, err := p.args(p.fields[n].Call, src)
		if err != nil {
			return err
		}
		if err := acc.Add(args...); err != nil {
			return err
		}
	}
	return nil
}

// result returns the single row of an aggregate statement.
func (p *projection) result() (*row.Row, error) {
	r := row.New()
	if p.first != nil {
		r = p.first
	}
	for n, acc := range p.accs {
		if acc == nil {
			continue
		}
		v, err := acc.Result()
		if err != nil {
			return nil, err
		}
		r.InsertValue(n, v)
	}
	for n := r.Len(); n < len(p.fields); n++ {
		r.InsertValue(n, domain.Null())
	}
	return r, nil
}
