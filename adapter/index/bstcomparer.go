package index

import (
	"cmp"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

type bstComparer struct {
	comparer domain.Comparer
}

// newBSTComparer returns a [bst.Comparer] ordering composite keys
// lexicographically with [domain.Comparer.Order]. A key sorts before every
// longer key it is a prefix of. Entries are equal when they point to the same
// document.
func newBSTComparer(comparer domain.Comparer) bst.Comparer[Key, entry] {
	return &bstComparer{
		comparer: comparer,
	}
}

// CompareKeys implements bst.Comparer.
func (bc *bstComparer) CompareKeys(a Key, b Key) (int, error) {
	return compareKeys(bc.comparer, a, b), nil
}

// CompareValues implements bst.Comparer.
func (bc *bstComparer) CompareValues(a entry, b entry) (bool, error) {
	return a.ptr == b.ptr, nil
}

func compareKeys(c domain.Comparer, a, b Key) int {
	for n := range min(len(a), len(b)) {
		if comp := c.Order(a[n], b[n]); comp != 0 {
			return comp
		}
	}
	return cmp.Compare(len(a), len(b))
}
