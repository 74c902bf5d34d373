// Package comparer contains the default [domain.Comparer] implementation.
//
// Values are compared numerically when both sides parse as decimal numbers and
// by the ordinal order of their case-folded strings otherwise. Null is not
// comparable: [Comparer.Compare] reports [domain.ErrNullComparison] and leaves
// the decision to the caller.
package comparer

import (
	"cmp"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer.
func (c *Comparer) Comparable(a, b domain.Value) bool {
	return !a.IsNull() && !b.IsNull()
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a, b domain.Value) (int, error) {
	if !c.Comparable(a, b) {
		return 0, domain.ErrNullComparison
	}

	// Numbers
	if comp, ok := c.checkNumbers(a, b); ok {
		return comp, nil
	}

	// Strings
	return cmp.Compare(a.Folded(), b.Folded()), nil
}

// Order implements domain.Comparer. Null sorts first, then numbers by value,
// then strings by their folded form.
func (c *Comparer) Order(a, b domain.Value) int {
	if comp, ok := c.checkNull(a, b); ok {
		return comp
	}

	if _, ok := a.Number(); ok {
		if comp, ok := c.checkNumbers(a, b); ok {
			return comp
		}
		return -1
	}
	if _, ok := b.Number(); ok {
		return 1
	}

	return cmp.Compare(a.Folded(), b.Folded())
}

func (c *Comparer) checkNull(a, b domain.Value) (int, bool) {
	if a.IsNull() {
		if b.IsNull() {
			return 0, true
		}
		return -1, true
	}
	if b.IsNull() {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkNumbers(a, b domain.Value) (int, bool) {
	// big.Float keeps integers and decimals of any size exact enough to be
	// compared with each other
	x, ok := a.Number()
	if !ok {
		return 0, false
	}
	y, ok := b.Number()
	if !ok {
		return 0, false
	}
	return x.Cmp(y), true
}
