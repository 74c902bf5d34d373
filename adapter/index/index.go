// Package index contains the physical index: an AVL tree mapping composite
// keys, built from an ordered attribute path, to document pointers.
package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

var (
	// ErrConstraintViolated is returned when inserting a duplicate key into
	// a unique index.
	ErrConstraintViolated = errors.New("unique constraint violated")
	// ErrNoAttributes is returned when creating an index without any
	// attribute.
	ErrNoAttributes = errors.New("index requires at least one attribute")
)

// Key is a composite index key, one value per attribute.
type Key []domain.Value

type entry struct {
	key Key
	ptr domain.DocumentPointer
}

// Index is a physical index over one schema. It is safe for concurrent use.
type Index struct {
	name       string
	schema     string
	attributes []domain.IndexAttribute
	unique     bool

	comparer    domain.Comparer
	bstComparer bst.Comparer[Key, entry]

	mu   sync.RWMutex
	tree bst.BST[Key, entry]
	size int
}

// NewIndex returns a new empty index.
func NewIndex(options ...Option) (*Index, error) {
	i := &Index{
		comparer: comparer.NewComparer(),
	}
	for _, option := range options {
		option(i)
	}
	if len(i.attributes) == 0 {
		return nil, ErrNoAttributes
	}
	if i.name == "" {
		i.name = i.defaultName()
	}
	i.bstComparer = newBSTComparer(i.comparer)
	i.tree = avl.NewBST(i.unique, 8, i.bstComparer)
	return i, nil
}

func (i *Index) defaultName() string {
	name := i.schema
	for _, a := range i.attributes {
		name += "_" + a.Field
	}
	return name
}

// LockName returns the object name used to lock the index. Index names are
// only unique within a schema.
func (i *Index) LockName() string {
	return i.schema + "." + i.name
}

// Name returns the index name.
func (i *Index) Name() string {
	return i.name
}

// Schema returns the indexed schema.
func (i *Index) Schema() string {
	return i.schema
}

// Unique reports whether duplicate keys are rejected.
func (i *Index) Unique() bool {
	return i.unique
}

// Attributes returns a copy of the ordered attribute path.
func (i *Index) Attributes() []domain.IndexAttribute {
	res := make([]domain.IndexAttribute, len(i.attributes))
	for n, a := range i.attributes {
		res[n] = a.Clone()
	}
	return res
}

// Clone returns an empty index with the same definition.
func (i *Index) Clone() *Index {
	c := &Index{
		name:        i.name,
		schema:      i.schema,
		attributes:  i.Attributes(),
		unique:      i.unique,
		comparer:    i.comparer,
		bstComparer: i.bstComparer,
	}
	c.tree = avl.NewBST(c.unique, 8, c.bstComparer)
	return c
}

// KeyOf builds the key of a document. Missing fields are null.
func (i *Index) KeyOf(fields domain.Fields) Key {
	k := make(Key, len(i.attributes))
	for n, a := range i.attributes {
		k[n], _ = fields.Get(a.Field)
	}
	return k
}

// Insert adds a document to the index.
func (i *Index) Insert(ptr domain.DocumentPointer, fields domain.Fields) error {
	k := i.KeyOf(fields)

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.tree.Insert(k, entry{key: k, ptr: ptr}); err != nil {
		if e := new(bst.ErrUniqueViolated); errors.As(err, e) {
			return fmt.Errorf("%w: index %q: %w", ErrConstraintViolated, i.name, err)
		}
		return err
	}
	i.size++
	return nil
}

// Remove removes a document from the index. The fields must produce the key
// the document was inserted with.
func (i *Index) Remove(ptr domain.DocumentPointer, fields domain.Fields) error {
	k := i.KeyOf(fields)
	e := entry{key: k, ptr: ptr}

	i.mu.Lock()
	defer i.mu.Unlock()

	found, err := i.tree.Search(k)
	if err != nil {
		return err
	}
	if found == nil || !slices.ContainsFunc(found.Values(), func(v entry) bool { return v.ptr == ptr }) {
		return nil
	}
	if err := i.tree.Delete(k, &e); err != nil {
		return err
	}
	i.size--
	return nil
}

// Lookup returns the pointers whose keys start with prefix, in key order. A
// prefix covering every attribute is an exact search; a shorter one scans the
// tree from the first matching key; an empty one returns every pointer.
func (i *Index) Lookup(ctx context.Context, prefix []domain.Value) ([]domain.DocumentPointer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(prefix) > len(i.attributes) {
		return nil, domain.ErrEngine{
			Reason: fmt.Sprintf("lookup prefix has %d values, index %q has %d attributes", len(prefix), i.name, len(i.attributes)),
		}
	}
	if len(prefix) == 0 {
		return i.All(), nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(prefix) == len(i.attributes) {
		found, err := i.tree.Search(Key(prefix))
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, nil
		}
		return pointers(found.Values()), nil
	}

	qry := bst.Query[Key]{
		GreaterThan: &bst.Bound[Key]{Value: Key(prefix), IncludeEqual: true},
	}
	var res []domain.DocumentPointer
	for e, err := range i.tree.Query(qry) {
		if err != nil {
			return nil, err
		}
		if compareKeys(i.comparer, e.key[:len(prefix)], prefix) != 0 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res = append(res, e.ptr)
	}
	return res, nil
}

// All returns every pointer in key order.
func (i *Index) All() []domain.DocumentPointer {
	i.mu.RLock()
	defer i.mu.RUnlock()

	res := make([]domain.DocumentPointer, 0, i.size)
	for e := range i.tree.GetAll() {
		res = append(res, e.ptr)
	}
	return res
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.size
}

// NumberOfKeys returns the number of distinct keys.
func (i *Index) NumberOfKeys() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.tree.GetNumberOfKeys()
}

func pointers(entries []entry) []domain.DocumentPointer {
	res := make([]domain.DocumentPointer, len(entries))
	for n, e := range entries {
		res[n] = e.ptr
	}
	return res
}
