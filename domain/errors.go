package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNullComparison is returned by [Comparer.Compare] when either
	// operand is null. Callers treat it as "condition not satisfied".
	ErrNullComparison = errors.New("comparison against null is unknown")
	// ErrTransactionClosed is returned when an operation is attempted on a
	// transaction that is no longer active.
	ErrTransactionClosed = errors.New("transaction is not active")
	// ErrLockNotAcquired is matched by every [ErrLockTimeout].
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = errors.New("called Scan before calling Next")
	// ErrTargetNil is returned when a nil target is passed for decoding.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = errors.New("target must be a pointer")
)

// ErrParse is returned for malformed query text. It is always fatal to the
// current statement.
type ErrParse struct {
	Position int
	Expected string
	Near     string
	Reason   string
}

func (e ErrParse) Error() string {
	msg := "parse error"
	if e.Position > 0 {
		msg = fmt.Sprintf("parse error at position %d", e.Position)
	}
	switch {
	case e.Reason != "":
		msg += ": " + e.Reason
	case e.Expected != "":
		msg += fmt.Sprintf(": expected %s", e.Expected)
	}
	if e.Near != "" {
		msg += fmt.Sprintf(" near %q", e.Near)
	}
	return msg
}

// ErrEngine is returned for type and engine failures such as malformed range
// bounds or unresolvable fields. It aborts the statement but not the
// transaction.
type ErrEngine struct {
	Reason string
}

func (e ErrEngine) Error() string {
	return "engine error: " + e.Reason
}

// ErrLockTimeout is returned when a lock could not be granted in time. The
// transaction may retry or abort.
type ErrLockTimeout struct {
	ProcessID   uint64
	Granularity Granularity
	Operation   LockOperation
	Object      string
	Timeout     time.Duration
}

func (e ErrLockTimeout) Error() string {
	return fmt.Sprintf("process %d timed out after %s waiting for %s lock on %s %q",
		e.ProcessID, e.Timeout, e.Operation, e.Granularity, e.Object)
}

// Is makes every lock timeout match [ErrLockNotAcquired].
func (e ErrLockTimeout) Is(target error) bool {
	return target == ErrLockNotAcquired
}

// ErrFunction is a user-facing function dispatch error, such as an unknown
// function name or a missing required parameter.
type ErrFunction struct {
	Name   string
	Reason string
}

func (e ErrFunction) Error() string {
	return fmt.Sprintf("function %q: %s", e.Name, e.Reason)
}

// ErrDocumentNotFound is returned by [DocumentFetcher.Fetch] when the pointer
// does not reference a stored document.
type ErrDocumentNotFound struct {
	Pointer DocumentPointer
}

func (e ErrDocumentNotFound) Error() string {
	return fmt.Sprintf("document %s not found", e.Pointer)
}

// ErrPageCorrupt is returned by [DocumentFetcher.Fetch] when the page holding
// the document cannot be read.
type ErrPageCorrupt struct {
	Schema string
	Page   uint32
}

func (e ErrPageCorrupt) Error() string {
	return fmt.Sprintf("page %d of schema %q is corrupt", e.Page, e.Schema)
}

// ErrDecode wraps third party decoding errors.
type ErrDecode struct {
	Source any
	Target any
	Err    error
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T: %s", e.Source, e.Target, e.Err)
}

func (e ErrDecode) Unwrap() error {
	return e.Err
}

// ErrCorruptDocuments is returned when loading documents if the share of
// unreadable lines is above the configured threshold.
type ErrCorruptDocuments struct {
	CorruptionRate float64
	CorruptItems   int
	DataLength     int
	Threshold      float64
}

func (e ErrCorruptDocuments) Error() string {
	return fmt.Sprintf("%d of %d documents are corrupt (%.0f%%), above the %.0f%% threshold",
		e.CorruptItems, e.DataLength, e.CorruptionRate*100, e.Threshold*100)
}

// ErrDatafileName is returned for a datafile name that cannot be used.
type ErrDatafileName struct {
	Name   string
	Reason string
}

func (e ErrDatafileName) Error() string {
	return fmt.Sprintf("invalid datafile name %q: %s", e.Name, e.Reason)
}

// ErrFlushToStorage is returned when a file could not be synced or closed
// after writing.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

func (e ErrFlushToStorage) Error() string {
	if e.ErrorOnFsync != nil {
		return "failed to flush to storage: " + e.ErrorOnFsync.Error()
	}
	return "failed to close file after flushing: " + e.ErrorOnClose.Error()
}

func (e ErrFlushToStorage) Unwrap() error {
	if e.ErrorOnFsync != nil {
		return e.ErrorOnFsync
	}
	return e.ErrorOnClose
}
