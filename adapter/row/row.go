// Package row contains the schema intersection row: the values a query
// projects for one combination of documents, one per schema alias.
package row

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

// Row is one result row. It is not safe for concurrent use.
type Row struct {
	values     []domain.Value
	schemaKeys *keymap.Map[struct{}]
	pointers   *keymap.Map[domain.DocumentPointer]
	auxiliary  *keymap.Map[domain.Value]
}

// New returns an empty row.
func New() *Row {
	return &Row{
		schemaKeys: keymap.New[struct{}](),
		pointers:   keymap.New[domain.DocumentPointer](),
		auxiliary:  keymap.New[domain.Value](),
	}
}

// InsertValue sets the value at ordinal, growing the row with nulls as
// needed. An existing value is overwritten.
func (r *Row) InsertValue(ordinal int, value domain.Value) {
	if ordinal < 0 {
		panic(fmt.Sprintf("row: negative ordinal %d", ordinal))
	}
	for len(r.values) <= ordinal {
		r.values = append(r.values, domain.Null())
	}
	r.values[ordinal] = value
}

// Value returns the value at ordinal, or null when the row is shorter.
func (r *Row) Value(ordinal int) domain.Value {
	if ordinal < 0 || ordinal >= len(r.values) {
		return domain.Null()
	}
	return r.values[ordinal]
}

// Values returns a copy of the projected values.
func (r *Row) Values() []domain.Value {
	return slices.Clone(r.values)
}

// Len returns the number of projected values.
func (r *Row) Len() int {
	return len(r.values)
}

// AddSchemaPointer records the document that alias contributed to the row.
// Adding the same alias twice panics.
func (r *Row) AddSchemaPointer(alias string, ptr domain.DocumentPointer) {
	if r.pointers.Has(alias) {
		panic(fmt.Sprintf("row: schema alias %q already bound", alias))
	}
	r.pointers.Set(alias, ptr)
	r.schemaKeys.Set(alias, struct{}{})
}

// Pointer returns the document alias contributed.
func (r *Row) Pointer(alias string) (domain.DocumentPointer, bool) {
	return r.pointers.Get(alias)
}

// Aliases returns the bound aliases in binding order.
func (r *Row) Aliases() []string {
	return r.pointers.Keys()
}

// HasAlias reports whether alias contributed a document to the row. A
// schema joined to itself under two aliases holds two keys.
func (r *Row) HasAlias(alias string) bool {
	return r.schemaKeys.Has(alias)
}

// HasSchema reports whether any document of schema contributed to the row.
func (r *Row) HasSchema(schema string) bool {
	for _, ptr := range r.pointers.Iter() {
		if strings.EqualFold(ptr.Schema, schema) {
			return true
		}
	}
	return false
}

// SetAuxiliary stores a value read for condition evaluation but not
// projected.
func (r *Row) SetAuxiliary(name string, value domain.Value) {
	r.auxiliary.Set(name, value)
}

// Auxiliary returns an auxiliary value.
func (r *Row) Auxiliary(name string) (domain.Value, bool) {
	return r.auxiliary.Get(name)
}

// AuxiliaryFields returns the auxiliary values as [domain.Fields].
func (r *Row) AuxiliaryFields() domain.Fields {
	return r.auxiliary.Clone()
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	return &Row{
		values:     slices.Clone(r.values),
		schemaKeys: r.schemaKeys.Clone(),
		pointers:   r.pointers.Clone(),
		auxiliary:  r.auxiliary.Clone(),
	}
}

// Rows is an ordered, concurrency safe collection of rows owned by one
// transaction. Once discarded it stays empty.
type Rows struct {
	mu        sync.Mutex
	rows      []*Row
	discarded bool
}

// NewRows returns an empty collection.
func NewRows() *Rows {
	return &Rows{}
}

// Add appends rows. It returns false when the collection was discarded.
func (rs *Rows) Add(rows ...*Row) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.discarded {
		return false
	}
	rs.rows = append(rs.rows, rows...)
	return true
}

// Len returns the number of rows.
func (rs *Rows) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.rows)
}

// All returns the rows in insertion order.
func (rs *Rows) All() []*Row {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return slices.Clone(rs.rows)
}

// Discard drops every row and rejects later additions.
func (rs *Rows) Discard() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.rows = nil
	rs.discarded = true
}

// Discarded reports whether [Rows.Discard] was called.
func (rs *Rows) Discarded() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.discarded
}
