// Package hasher contains an xxhash based implementation of [domain.Hasher].
// It hashes cleaned query text, so two statements that differ only in literal
// values, letter case or whitespace share the same hash and therefore the same
// plan cache key.
package hasher

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Hasher implements [domain.Hasher].
type Hasher struct{}

// NewHasher returns a new implementation of [domain.Hasher].
func NewHasher() domain.Hasher {
	return &Hasher{}
}

// Hash implements domain.Hasher.
func (h *Hasher) Hash(text string) uint64 {
	return xxhash.Sum64String(domain.Fold(text))
}

// Key implements domain.Hasher.
func (h *Hasher) Key(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}
