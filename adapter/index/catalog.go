package index

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Catalog lists the indexes of every schema.
type Catalog struct {
	mu      sync.RWMutex
	indexes map[string]map[string]*Index
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{indexes: make(map[string]map[string]*Index)}
}

// Register adds an index to the catalog. Names are unique per schema,
// compared case-insensitively.
func (c *Catalog) Register(idx *Index) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	schema := domain.Fold(idx.Schema())
	byName, ok := c.indexes[schema]
	if !ok {
		byName = make(map[string]*Index)
		c.indexes[schema] = byName
	}
	name := domain.Fold(idx.Name())
	if _, ok := byName[name]; ok {
		return domain.ErrEngine{Reason: fmt.Sprintf("index %q already exists on schema %q", idx.Name(), idx.Schema())}
	}
	byName[name] = idx
	return nil
}

// Get returns the named index of schema.
func (c *Catalog) Get(schema, name string) (*Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexes[domain.Fold(schema)][domain.Fold(name)]
	return idx, ok
}

// ForSchema returns the indexes of schema sorted by name.
func (c *Catalog) ForSchema(schema string) []*Index {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byName := c.indexes[domain.Fold(schema)]
	res := make([]*Index, 0, len(byName))
	for _, idx := range byName {
		res = append(res, idx)
	}
	slices.SortFunc(res, func(a, b *Index) int {
		return strings.Compare(domain.Fold(a.Name()), domain.Fold(b.Name()))
	})
	return res
}

// Schemas returns the case-folded name of every schema with at least one
// index, sorted.
func (c *Catalog) Schemas() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]string, 0, len(c.indexes))
	for schema := range c.indexes {
		res = append(res, schema)
	}
	slices.Sort(res)
	return res
}
