// Package domain contains domain-specific interfaces, entities and error
// types for gedbql.
//
// This package defines the contracts implemented by adapters: value
// comparison, structural hashing, pattern matching, document fetching, lock
// management and result decoding. It has no dependency on any adapter.
package domain

import (
	"context"
	"io"
	"iter"
	"os"
	"time"
)

// Comparer provides ordering and comparison operations for values.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values. It
	// returns [ErrNullComparison] when either side is null.
	Compare(a, b Value) (int, error)
	// Comparable returns true if two values can be compared.
	Comparable(a, b Value) bool
	// Order is a total order over values, null first. It never fails and is
	// used for index keys and sorting.
	Order(a, b Value) int
}

// Hasher computes the structural hash of cleaned query text.
type Hasher interface {
	// Hash returns the hash of the given text.
	Hash(text string) uint64
	// Key renders a hash as a plan cache key.
	Key(hash uint64) string
}

// PatternMatcher decides wildcard pattern matches.
type PatternMatcher interface {
	// Match reports whether value matches pattern.
	Match(value, pattern string) (bool, error)
}

// Fields is a read-only set of named values, such as the fields of a
// document. Names are case-insensitive.
type Fields interface {
	// Get returns the value of a field and whether it exists.
	Get(name string) (Value, bool)
	// Has reports whether the field exists.
	Has(name string) bool
	// Keys returns the field names in insertion order.
	Keys() []string
	// Iter iterates over the fields in insertion order.
	Iter() iter.Seq2[string, Value]
	// Len returns the number of fields.
	Len() int
}

// DocumentFetcher reads documents from physical storage.
type DocumentFetcher interface {
	// Fetch returns the fields of the document referenced by the pointer.
	// It fails with [ErrDocumentNotFound] or [ErrPageCorrupt].
	Fetch(ctx context.Context, ptr DocumentPointer) (Fields, error)
	// List returns every document pointer of a schema, ordered by page and
	// document id.
	List(ctx context.Context, schema string) ([]DocumentPointer, error)
}

// WarningSink accumulates non-fatal diagnostics.
type WarningSink interface {
	// Warn records a warning.
	Warn(Warning)
}

// LockManager coordinates concurrent access to schemas, documents and
// indexes.
type LockManager interface {
	// Register marks a process as active. Only registered processes can
	// acquire locks or appear in snapshots.
	Register(pid uint64)
	// Acquire blocks until the lock is granted, the context is done or the
	// timeout elapses. A zero timeout uses the manager default.
	Acquire(ctx context.Context, pid uint64, granularity Granularity, op LockOperation, object string, timeout time.Duration) error
	// Release removes every lock the process holds on the object.
	Release(pid uint64, granularity Granularity, object string)
	// ReleaseAll removes every lock held by the process and unregisters it.
	ReleaseAll(pid uint64)
	// Snapshot returns a point-in-time copy of the locks held by every
	// active process.
	Snapshot() []TransactionSnapshot
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(source any, target any) error
}

// Cursor provides iteration over query results.
type Cursor interface {
	// Scan decodes the current row into target.
	Scan(ctx context.Context, target any) error
	// Next advances the cursor to the next row, returning true if available.
	Next() bool
	// Err returns any error that occurred during iteration.
	Err() error
	// Close releases cursor resources and should be called when done.
	Close() error
}

// TimeGetter provides the current time.
type TimeGetter interface {
	GetTime() time.Time
}

// Serializer renders a datafile record as a single line.
type Serializer interface {
	Serialize(ctx context.Context, rec Record) ([]byte, error)
}

// Deserializer reads a datafile record from a single line.
type Deserializer interface {
	Deserialize(ctx context.Context, line []byte) (Record, error)
}

// Storage performs the file operations of a datafile.
type Storage interface {
	// AppendFile appends data to the file, creating it if needed.
	AppendFile(filename string, mode os.FileMode, data []byte) (int, error)
	// CrashSafeWriteFileLines replaces the file content with lines so that
	// either the old or the new content survives a crash.
	CrashSafeWriteFileLines(filename string, lines [][]byte, dirMode os.FileMode, fileMode os.FileMode) error
	// EnsureDatafileIntegrity restores the backup left by an interrupted
	// write, or creates an empty file.
	EnsureDatafileIntegrity(filename string, mode os.FileMode) error
	// EnsureParentDirectoryExists creates the directory of filename.
	EnsureParentDirectoryExists(filename string, mode os.FileMode) error
	// Exists reports whether the file exists.
	Exists(filename string) (bool, error)
	// ReadFileStream opens the file for reading.
	ReadFileStream(filename string, mode os.FileMode) (io.ReadCloser, error)
	// Remove deletes the file.
	Remove(filename string) error
}
