// Package fetcher contains an in-memory [domain.DocumentFetcher] organized in
// schemas and fixed-size pages.
package fetcher

import (
	"cmp"
	"context"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/data"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// ErrCorruptDocuments is returned by [Memory.Load] when the share of
// unreadable lines is above the configured threshold.
type ErrCorruptDocuments = domain.ErrCorruptDocuments

type schema struct {
	name    string
	docs    map[domain.DocumentPointer]stored
	corrupt map[uint32]struct{}
	nextID  uint64
}

type stored struct {
	ptr    domain.DocumentPointer
	fields domain.Fields
}

// Memory implements [domain.DocumentFetcher].
type Memory struct {
	pageSize         uint64
	corruptThreshold float64
	parse            func([]byte) (domain.Fields, error)

	mu      sync.RWMutex
	schemas map[string]*schema
}

// NewMemory returns an empty store.
func NewMemory(options ...Option) *Memory {
	m := &Memory{
		pageSize:         64,
		corruptThreshold: 0.1,
		parse:            data.ParseJSON,
		schemas:          make(map[string]*schema),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *Memory) schema(name string) *schema {
	key := domain.Fold(name)
	s, ok := m.schemas[key]
	if !ok {
		s = &schema{
			name:    name,
			docs:    make(map[domain.DocumentPointer]stored),
			corrupt: make(map[uint32]struct{}),
		}
		m.schemas[key] = s
	}
	return s
}

// Insert stores a document under a new id and returns its pointer. Ids
// start at 1 and pages hold a fixed number of documents. The schema keeps the
// spelling it was first used with.
func (m *Memory) Insert(schemaName string, doc any) (domain.DocumentPointer, error) {
	fields, err := data.NewFields(doc)
	if err != nil {
		return domain.DocumentPointer{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.schema(schemaName)
	s.nextID++
	ptr := domain.DocumentPointer{
		Schema:     s.name,
		Page:       uint32((s.nextID - 1) / m.pageSize),
		DocumentID: s.nextID,
	}
	s.docs[key(ptr)] = stored{ptr: ptr, fields: fields}
	return ptr, nil
}

// Put stores a document at ptr, replacing any previous one.
func (m *Memory) Put(ptr domain.DocumentPointer, doc any) error {
	fields, err := data.NewFields(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.schema(ptr.Schema)
	ptr.Schema = s.name
	s.docs[key(ptr)] = stored{ptr: ptr, fields: fields}
	s.nextID = max(s.nextID, ptr.DocumentID)
	return nil
}

// Delete removes the document at ptr. It reports whether it existed.
func (m *Memory) Delete(ptr domain.DocumentPointer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schemas[domain.Fold(ptr.Schema)]
	if !ok {
		return false
	}
	if _, ok := s.docs[key(ptr)]; !ok {
		return false
	}
	delete(s.docs, key(ptr))
	return true
}

// Schemas returns the names of the schemas holding documents, ordered
// case-insensitively.
func (m *Memory) Schemas() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := slices.Sorted(maps.Keys(m.schemas))
	res := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := m.schemas[k]; len(s.docs) > 0 {
			res = append(res, s.name)
		}
	}
	return res
}

// MarkCorrupt makes every fetch from the page fail with
// [domain.ErrPageCorrupt].
func (m *Memory) MarkCorrupt(schemaName string, page uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schema(schemaName).corrupt[page] = struct{}{}
}

// Fetch implements [domain.DocumentFetcher]. The returned fields are a copy.
func (m *Memory) Fetch(ctx context.Context, ptr domain.DocumentPointer) (domain.Fields, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[domain.Fold(ptr.Schema)]
	if !ok {
		return nil, domain.ErrDocumentNotFound{Pointer: ptr}
	}
	if _, ok := s.corrupt[ptr.Page]; ok {
		return nil, domain.ErrPageCorrupt{Schema: ptr.Schema, Page: ptr.Page}
	}
	doc, ok := s.docs[key(ptr)]
	if !ok {
		return nil, domain.ErrDocumentNotFound{Pointer: ptr}
	}
	return data.NewFields(doc.fields)
}

// List implements [domain.DocumentFetcher]. Pointers are ordered by page,
// then id.
func (m *Memory) List(ctx context.Context, schemaName string) ([]domain.DocumentPointer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[domain.Fold(schemaName)]
	if !ok {
		return nil, nil
	}
	res := make([]domain.DocumentPointer, 0, len(s.docs))
	for doc := range maps.Values(s.docs) {
		res = append(res, doc.ptr)
	}
	slices.SortFunc(res, func(a, b domain.DocumentPointer) int {
		if c := cmp.Compare(a.Page, b.Page); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentID, b.DocumentID)
	})
	return res, nil
}

// Load inserts one document per non-empty line of r, each a JSON object.
// Unreadable lines are skipped unless their share goes above the corruption
// threshold, in which case nothing is inserted.
func (m *Memory) Load(ctx context.Context, schemaName string, r io.Reader) ([]domain.DocumentPointer, error) {
	var docs []domain.Fields
	corrupt, total := 0, 0

	lines := data.NewLineScanner(r)
	for lines.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		line := lines.Bytes()
		if len(line) == 0 {
			continue
		}
		total++
		doc, err := m.parse(line)
		if err != nil {
			corrupt++
			continue
		}
		docs = append(docs, doc)
	}
	if err := lines.Err(); err != nil {
		return nil, err
	}
	if total > 0 {
		if rate := float64(corrupt) / float64(total); rate > m.corruptThreshold {
			return nil, ErrCorruptDocuments{
				CorruptionRate: rate,
				CorruptItems:   corrupt,
				DataLength:     total,
				Threshold:      m.corruptThreshold,
			}
		}
	}

	res := make([]domain.DocumentPointer, 0, len(docs))
	for _, doc := range docs {
		ptr, err := m.Insert(schemaName, doc)
		if err != nil {
			return nil, err
		}
		res = append(res, ptr)
	}
	return res, nil
}

// key normalizes the schema name so pointers match case-insensitively.
func key(ptr domain.DocumentPointer) domain.DocumentPointer {
	ptr.Schema = domain.Fold(ptr.Schema)
	return ptr
}
