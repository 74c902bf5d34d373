// Package condition contains the typed condition tree produced by the
// grammar layer: atomic predicates joined by AND/OR groups, plus the
// evaluator that decides a single predicate with explicit null semantics.
package condition

import (
	"fmt"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Operand is one side of a predicate: a field reference, optionally qualified
// by a schema alias, a constant, or a parameter bound at execution time.
type Operand struct {
	Kind  domain.OperandKind
	Alias string
	Name  string
	Value domain.Value
}

// Field returns a field operand. Alias may be empty.
func Field(alias, name string) Operand {
	return Operand{Kind: domain.OperandField, Alias: alias, Name: name}
}

// Constant returns a constant operand.
func Constant(v domain.Value) Operand {
	return Operand{Kind: domain.OperandConstant, Value: v}
}

// Parameter returns an operand resolved from the execution parameters.
func Parameter(name string) Operand {
	return Operand{Kind: domain.OperandParameter, Name: name}
}

// IsField reports whether the operand references a field.
func (o Operand) IsField() bool {
	return o.Kind == domain.OperandField
}

// IsConstant reports whether the operand value is known before reading any
// document, which is the case for constants and parameters.
func (o Operand) IsConstant() bool {
	return o.Kind != domain.OperandField
}

func (o Operand) String() string {
	switch o.Kind {
	case domain.OperandField:
		if o.Alias != "" {
			return o.Alias + "." + o.Name
		}
		return o.Name
	case domain.OperandParameter:
		return ":" + o.Name
	}
	return fmt.Sprintf("%q", o.Value.String())
}

// Condition is one atomic predicate. Variable is the name splicing it into the
// boolean expression of its [Tree].
type Condition struct {
	Left      Operand
	Qualifier domain.Qualifier
	Right     Operand

	Variable string

	optimized bool
}

// IsIndexOptimized reports whether the predicate has been matched to an index
// in the current planning pass.
func (c *Condition) IsIndexOptimized() bool {
	return c.optimized
}

// MarkIndexOptimized flags the predicate as consumed by an index. Marking a
// predicate twice means it would be counted against two indexes and panics.
func (c *Condition) MarkIndexOptimized() {
	if c.optimized {
		panic(fmt.Sprintf("condition: %s (%s) already matched to an index", c.Variable, c))
	}
	c.optimized = true
}

// Clone returns an independent deep copy of the condition, flag included.
func (c *Condition) Clone() *Condition {
	n := *c
	return &n
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Qualifier, c.Right)
}

func (*Condition) node() {}
