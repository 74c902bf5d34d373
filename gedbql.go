// Package gedbql provides an embedded query engine over schemaless documents.
//
// Statements name one or more schemas, the fields to project and a tree of
// conditions. The engine plans each schema against its indexes, locks what it
// reads under a hierarchical lock table and intersects the schemas into rows
// that are read through a [Cursor].
//
// The basic usage starts with creating a new [Engine] instance, which can be
// done by calling [NewEngine].
package gedbql

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/condition"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/config"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/datastore"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/executor"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/function"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/index"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/tokenizer"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/transaction"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

var (
	// ErrConstraintViolated is returned by [Engine.Insert] when a document
	// repeats the key of a unique index.
	ErrConstraintViolated = index.ErrConstraintViolated
	// ErrNoAttributes is returned by [Engine.EnsureIndex] when no attribute
	// is given.
	ErrNoAttributes = index.ErrNoAttributes
	// ErrNullComparison is returned when comparing against a null value.
	ErrNullComparison = domain.ErrNullComparison
	// ErrTransactionClosed is returned when using a transaction that was
	// already committed or rolled back.
	ErrTransactionClosed = domain.ErrTransactionClosed
	// ErrLockNotAcquired is matched by every [ErrLockTimeout].
	ErrLockNotAcquired = domain.ErrLockNotAcquired
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrTargetNil is returned when user provides a nil value as a target
	// to decode data.
	ErrTargetNil = domain.ErrTargetNil
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = domain.ErrNonPointer
)

// ErrParse is returned for malformed statement text.
type ErrParse = domain.ErrParse

// ErrEngine is returned for type and engine failures. It aborts the statement
// but not the transaction.
type ErrEngine = domain.ErrEngine

// ErrLockTimeout is returned when a lock could not be granted in time.
type ErrLockTimeout = domain.ErrLockTimeout

// ErrFunction is returned for unknown functions and bad arguments.
type ErrFunction = domain.ErrFunction

// ErrDocumentNotFound is returned when a pointer references no document.
type ErrDocumentNotFound = domain.ErrDocumentNotFound

// ErrPageCorrupt is returned when the page holding a document is unreadable.
type ErrPageCorrupt = domain.ErrPageCorrupt

// ErrDecode is returned by [Decoder.Decode] to wrap third party decoding
// errors.
type ErrDecode = domain.ErrDecode

// ErrCorruptDocuments is returned when too many datafile lines cannot be
// read.
type ErrCorruptDocuments = domain.ErrCorruptDocuments

// ErrDatafileName is returned when the configured datafile name is invalid.
type ErrDatafileName = domain.ErrDatafileName

// Value is a string-backed value that may be null.
type Value = domain.Value

// Fields is the set of named values of a document or row.
type Fields = domain.Fields

// DocumentPointer locates a stored document.
type DocumentPointer = domain.DocumentPointer

// Warning is a non-fatal diagnostic recorded by a transaction.
type Warning = domain.Warning

// Comparer orders and compares values.
type Comparer = domain.Comparer

// Decoder decodes rows into user types.
type Decoder = domain.Decoder

// Hasher computes statement cache keys.
type Hasher = domain.Hasher

// TimeGetter provides the current time.
type TimeGetter = domain.TimeGetter

// PatternMatcher decides like predicates.
type PatternMatcher = domain.PatternMatcher

// LockManager grants and releases hierarchical locks.
type LockManager = domain.LockManager

// Config holds the engine settings.
type Config = config.Config

// Transaction is the unit owning locks, warnings and rows.
type Transaction = transaction.Transaction

// Cursor iterates the rows of an executed statement.
type Cursor = cursor.Cursor

// Tokenizer reads a cleaned statement token by token.
type Tokenizer = tokenizer.Tokenizer

// Index is a physical index over the attributes of a schema.
type Index = index.Index

// FunctionRegistry holds the scalar and aggregate functions available to
// statements.
type FunctionRegistry = function.Registry

// Statement is a query ready to be executed.
type Statement = executor.Statement

// SchemaRef names a schema read by a statement.
type SchemaRef = executor.SchemaRef

// FieldRef is a projected field or function call.
type FieldRef = executor.FieldRef

// SortKey orders the rows of a statement.
type SortKey = executor.SortKey

// CallArg is an argument of a function call in a projection.
type CallArg = executor.CallArg

// Conditions is the tree of conditions filtering a statement.
type Conditions = condition.Tree

// Operand is one side of a condition.
type Operand = condition.Operand

// NewValue returns a non-null value.
func NewValue(s string) Value {
	return domain.NewValue(s)
}

// Null returns the null value.
func Null() Value {
	return domain.Null()
}

// NewConditions returns an empty condition tree whose root joins its members
// with connector.
func NewConditions(connector domain.Connector) *Conditions {
	return condition.NewTree(connector)
}

// Field returns an operand reading name from the schema aliased as alias. An
// empty alias reads from any schema of the statement.
func Field(alias, name string) Operand {
	return condition.Field(alias, name)
}

// Constant returns an operand holding v.
func Constant(v Value) Operand {
	return condition.Constant(v)
}

// Parameter returns an operand resolved from [WithParams] at execution time.
func Parameter(name string) Operand {
	return condition.Parameter(name)
}

// Column returns a projection of field name from the schema aliased as alias.
func Column(alias, name string) FieldRef {
	return executor.Column(alias, name)
}

// Compute returns a projection of the result of fn, labelled as.
func Compute(as, fn string, args ...CallArg) FieldRef {
	return executor.Compute(as, fn, args...)
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads settings from the file at path, if any, and from
// GEDBQL_ prefixed environment variables.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// Option configures an [Engine].
type Option = datastore.Option

// WithConfig sets the engine settings.
func WithConfig(cfg Config) Option {
	return datastore.WithConfig(cfg)
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return datastore.WithLogger(l)
}

// WithComparer sets the comparer for value comparison operations.
func WithComparer(c Comparer) Option {
	return datastore.WithComparer(c)
}

// WithPatternMatcher sets the matcher deciding like predicates.
func WithPatternMatcher(p PatternMatcher) Option {
	return datastore.WithPatternMatcher(p)
}

// WithDecoder sets the decoder used by cursors and function arguments.
func WithDecoder(d Decoder) Option {
	return datastore.WithDecoder(d)
}

// WithHasher sets the hasher computing statement cache keys.
func WithHasher(h Hasher) Option {
	return datastore.WithHasher(h)
}

// WithLockManager sets the lock manager.
func WithLockManager(l LockManager) Option {
	return datastore.WithLockManager(l)
}

// WithRegisterer sets where lock metrics are registered.
func WithRegisterer(r prometheus.Registerer) Option {
	return datastore.WithRegisterer(r)
}

// WithTimeGetter sets the clock stamping transaction start times.
func WithTimeGetter(t TimeGetter) Option {
	return datastore.WithTimeGetter(t)
}

// ExecuteOption configures one statement execution.
type ExecuteOption = domain.ExecuteOption

// WithParams sets the values parameter operands resolve to.
func WithParams(p map[string]Value) ExecuteOption {
	return domain.WithExecuteParams(p)
}

// WithSkip drops the first s rows of the result.
func WithSkip(s int) ExecuteOption {
	return domain.WithExecuteSkip(s)
}

// WithLimit caps the number of rows returned.
func WithLimit(l int) ExecuteOption {
	return domain.WithExecuteLimit(l)
}

// IndexOption configures an index built by [Engine.EnsureIndex].
type IndexOption = index.Option

// WithIndexSchema sets the schema the index covers.
func WithIndexSchema(s string) IndexOption {
	return index.WithSchema(s)
}

// WithIndexName sets the index name. It defaults to the schema and attribute
// names joined by underscores.
func WithIndexName(n string) IndexOption {
	return index.WithName(n)
}

// WithIndexAttributes sets the indexed fields, in key order.
func WithIndexAttributes(fields ...string) IndexOption {
	return index.WithAttributes(fields...)
}

// WithIndexUnique rejects documents repeating an existing key.
func WithIndexUnique(u bool) IndexOption {
	return index.WithUnique(u)
}

// NewEngine creates a new in-memory engine. Settings not given through
// [WithConfig] take the values of [DefaultConfig]. Other options replace the
// default implementation of a component:
//
// - [WithLogger]: sets the logger instead of building one from the config.
//
// - [WithComparer]: sets the comparer for value comparison operations.
//
// - [WithPatternMatcher]: sets the matcher deciding like predicates.
//
// - [WithDecoder]: sets the decoder used by [Cursor.Scan].
//
// - [WithHasher]: sets the hasher computing statement cache keys.
//
// - [WithLockManager]: sets the lock manager.
//
// - [WithRegisterer]: sets where lock metrics are registered.
//
// - [WithTimeGetter]: sets the clock stamping transaction start times.
//
// When the config names a datafile, call [Engine.LoadDatabase] before use.
func NewEngine(options ...Option) (Engine, error) {
	d, err := datastore.NewDatastore(options...)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Engine defines the main interface for interacting with the engine. Every
// method is safe to use concurrently from multiple goroutines.
type Engine interface {
	// Begin starts a transaction. Locks taken on its behalf are held until
	// it commits or rolls back.
	Begin() *Transaction

	// Transaction returns the active transaction with the given process
	// id.
	Transaction(pid uint64) (*Transaction, bool)

	// Insert stores documents in schema. Maps and structs are accepted;
	// struct fields are named by their "gedbql" tag. Rolling tx back removes
	// the documents again.
	Insert(ctx context.Context, tx *Transaction, schema string, docs ...any) ([]DocumentPointer, error)

	// Load inserts one document per JSON line of r into schema, outside of
	// any transaction.
	Load(ctx context.Context, schema string, r io.Reader) ([]DocumentPointer, error)

	// EnsureIndex builds an index over the documents of a schema and makes
	// it available to the planner. Options can be used to setup behavior:
	// - [WithIndexSchema]
	// - [WithIndexName]
	// - [WithIndexAttributes]
	// - [WithIndexUnique]
	EnsureIndex(ctx context.Context, options ...IndexOption) (*Index, error)

	// Indexes returns the indexes of schema ordered by name.
	Indexes(schema string) []*Index

	// LoadDatabase reads the configured datafile into memory and into the
	// indexes already built, then compacts it. It does nothing when no
	// datafile is configured.
	LoadDatabase(ctx context.Context) error

	// CompactDatafile rewrites the configured datafile with the documents
	// currently stored.
	CompactDatafile(ctx context.Context) error

	// Execute runs a statement in tx and returns a cursor over its rows.
	// Options:
	// - [WithParams]
	// - [WithSkip]
	// - [WithLimit]
	Execute(ctx context.Context, tx *Transaction, stmt Statement, options ...ExecuteOption) (*Cursor, error)

	// Tokenize cleans a statement and returns a tokenizer over it.
	Tokenize(query string, params map[string]Value) (*Tokenizer, error)

	// Functions returns the function registry, where custom functions can
	// be registered.
	Functions() *FunctionRegistry

	// Snapshot returns the locks held by every active transaction.
	Snapshot() []domain.TransactionSnapshot

	// ShowLocks renders the locks held by the process pid, or by every
	// process when pid is zero, as a table.
	ShowLocks(ctx context.Context, w io.Writer, pid uint64) error

	// ShowWarnings renders the warnings recorded by tx as a table.
	ShowWarnings(ctx context.Context, w io.Writer, tx *Transaction) error
}
