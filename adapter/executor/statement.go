package executor

import (
	"fmt"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/condition"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/function"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

// SchemaRef names a schema taking part in a statement. Alias defaults to the
// schema name.
type SchemaRef struct {
	Name  string
	Alias string
}

// Label returns the alias conditions and rows use for the schema.
func (s SchemaRef) Label() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// CallArg is one argument of a function call. An empty Name makes it
// positional.
type CallArg struct {
	Name    string
	Operand condition.Operand
}

// Call is a function applied to operands of the current row.
type Call struct {
	Function string
	Args     []CallArg
}

// FieldRef is one projected value: an operand, or a call when Call is set.
// As names the result column.
type FieldRef struct {
	Operand condition.Operand
	Call    *Call
	As      string
}

// Column projects a document field.
func Column(alias, name string) FieldRef {
	return FieldRef{Operand: condition.Field(alias, name)}
}

// Compute projects the result of a function call.
func Compute(as, fn string, args ...CallArg) FieldRef {
	return FieldRef{Call: &Call{Function: fn, Args: args}, As: as}
}

// Label returns the column name of the projection.
func (f FieldRef) Label() string {
	switch {
	case f.As != "":
		return f.As
	case f.Call != nil:
		return f.Call.Function
	}
	return f.Operand.String()
}

// SortKey orders the result by one operand.
type SortKey struct {
	Operand    condition.Operand
	Descending bool
}

// Statement is a prepared query. An empty Fields list projects every field
// of every document read. A nil Conditions tree matches every row.
type Statement struct {
	Schemas    []SchemaRef
	Fields     []FieldRef
	Conditions *condition.Tree
	Sort       []SortKey
}

// validate checks the statement against the registry and reports whether it
// aggregates.
func (s Statement) validate(functions *function.Registry) (bool, error) {
	if len(s.Schemas) == 0 {
		return false, domain.ErrEngine{Reason: "statement reads no schema"}
	}
	aliases := keymap.New[struct{}]()
	for _, ref := range s.Schemas {
		if ref.Name == "" {
			return false, domain.ErrEngine{Reason: "schema name is empty"}
		}
		if aliases.Has(ref.Label()) {
			return false, domain.ErrEngine{Reason: fmt.Sprintf("schema alias %q used twice", ref.Label())}
		}
		aliases.Set(ref.Label(), struct{}{})
	}

	aggregate := false
	for _, f := range s.Fields {
		if f.Call == nil {
			continue
		}
		def, err := functions.Lookup(f.Call.Function)
		if err != nil {
			return false, err
		}
		aggregate = aggregate || def.IsAggregate()
	}
	return aggregate, nil
}
