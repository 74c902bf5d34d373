// Package datastore wires the engine components together: documents, indexes,
// transactions and locks, statement execution, functions and diagnostics.
package datastore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/config"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/diagnostics"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/executor"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/fetcher"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/function"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/index"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/lockmgr"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/logging"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/persistence"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/planner"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/tokenizer"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/transaction"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Datastore is the engine. It is safe for concurrent use.
type Datastore struct {
	cfg        config.Config
	logger     *slog.Logger
	comparer   domain.Comparer
	patterns   domain.PatternMatcher
	decoder    domain.Decoder
	hasher     domain.Hasher
	locks      domain.LockManager
	registerer prometheus.Registerer
	clock      domain.TimeGetter

	persistence *persistence.Persistence
	txs         *transaction.Manager
	store       *fetcher.Memory
	catalog     *index.Catalog
	functions   *function.Registry
	executor    *executor.Executor
}

// NewDatastore returns an empty engine. Settings not given through
// [WithConfig] take their defaults.
func NewDatastore(options ...Option) (*Datastore, error) {
	d := &Datastore{
		cfg:      config.Default(),
		comparer: comparer.NewComparer(),
		decoder:  decoder.NewDecoder(),
		hasher:   hasher.NewHasher(),
		clock:    timegetter.NewTimeGetter(),
	}
	for _, option := range options {
		option(d)
	}

	if d.logger == nil {
		logger, err := logging.New(d.cfg.Log)
		if err != nil {
			return nil, err
		}
		d.logger = logger
	}
	if d.patterns == nil {
		var likeOptions []matcher.LikeOption
		if d.cfg.PatternCacheSize > 0 {
			likeOptions = append(likeOptions, matcher.WithPatternCacheSize(d.cfg.PatternCacheSize))
		}
		d.patterns = matcher.NewLike(likeOptions...)
	}
	if d.locks == nil {
		d.locks = lockmgr.NewManager(
			lockmgr.WithTimeout(d.cfg.LockTimeout),
			lockmgr.WithLogger(d.logger),
			lockmgr.WithRegisterer(d.registerer),
			lockmgr.WithNamespace(d.cfg.Metrics.Namespace),
		)
	}

	d.txs = transaction.NewManager(
		transaction.WithLockManager(d.locks),
		transaction.WithLockTimeout(d.cfg.LockTimeout),
		transaction.WithLogger(d.logger),
		transaction.WithTimeGetter(d.clock),
	)
	if d.cfg.Storage.Datafile != "" {
		p, err := persistence.NewPersistence(
			persistence.WithFilename(d.cfg.Storage.Datafile),
			persistence.WithCorruptAlertThreshold(d.cfg.Storage.CorruptAlertThreshold),
			persistence.WithLogger(d.logger),
		)
		if err != nil {
			return nil, err
		}
		d.persistence = p
	}
	storeOptions := []fetcher.Option{fetcher.WithCorruptAlertThreshold(d.cfg.Storage.CorruptAlertThreshold)}
	if d.cfg.Storage.PageSize > 0 {
		storeOptions = append(storeOptions, fetcher.WithPageSize(uint64(d.cfg.Storage.PageSize)))
	}
	d.store = fetcher.NewMemory(storeOptions...)
	d.catalog = index.NewCatalog()
	d.functions = function.NewRegistry(
		function.WithComparer(d.comparer),
		function.WithPatternMatcher(d.patterns),
		function.WithDecoder(d.decoder),
		function.WithLogger(d.logger),
	)
	d.executor = executor.NewExecutor(
		executor.WithFetcher(d.store),
		executor.WithCatalog(d.catalog),
		executor.WithPlanner(planner.NewPlanner(planner.WithLogger(d.logger))),
		executor.WithMatcher(matcher.NewMatcher(
			matcher.WithComparer(d.comparer),
			matcher.WithPatternMatcher(d.patterns),
			matcher.WithLogger(d.logger),
		)),
		executor.WithComparer(d.comparer),
		executor.WithFunctions(d.functions),
		executor.WithDecoder(d.decoder),
		executor.WithLogger(d.logger),
	)
	return d, nil
}

// Begin starts a transaction.
func (d *Datastore) Begin() *transaction.Transaction {
	return d.txs.Begin()
}

// Transaction returns the active transaction with the given process id.
func (d *Datastore) Transaction(pid uint64) (*transaction.Transaction, bool) {
	return d.txs.Get(pid)
}

// Insert stores documents in schema on behalf of tx. The schema is intent
// locked, every index of the schema and every new document are write locked.
// Rolling tx back removes the documents again.
func (d *Datastore) Insert(ctx context.Context, tx *transaction.Transaction, schema string, docs ...any) ([]domain.DocumentPointer, error) {
	if err := tx.Acquire(ctx, domain.GranularitySchema, domain.LockIntent, schema, 0); err != nil {
		return nil, fmt.Errorf("locking schema %q: %w", schema, err)
	}
	indexes := d.catalog.ForSchema(schema)
	for _, idx := range indexes {
		if err := tx.Acquire(ctx, domain.GranularityIndex, domain.LockWrite, idx.LockName(), 0); err != nil {
			return nil, fmt.Errorf("locking index %q: %w", idx.LockName(), err)
		}
	}

	res := make([]domain.DocumentPointer, 0, len(docs))
	recs := make([]domain.Record, 0, len(docs))
	for _, doc := range docs {
		ptr, err := d.store.Insert(schema, doc)
		if err != nil {
			return nil, err
		}
		if err := tx.Acquire(ctx, domain.GranularityDocument, domain.LockWrite, ptr.String(), 0); err != nil {
			d.store.Delete(ptr)
			return nil, fmt.Errorf("locking document %s: %w", ptr, err)
		}
		fields, err := d.store.Fetch(ctx, ptr)
		if err != nil {
			d.store.Delete(ptr)
			return nil, err
		}
		if err := d.indexDocument(ptr, fields, indexes); err != nil {
			d.store.Delete(ptr)
			return nil, err
		}
		undo := func() {
			d.unindexDocument(ptr, fields, indexes)
			d.store.Delete(ptr)
		}
		if !tx.OnAbort(undo) {
			undo()
			return nil, domain.ErrTransactionClosed
		}
		res = append(res, ptr)
		recs = append(recs, domain.Record{Pointer: ptr, Fields: fields})
	}
	if d.persistence != nil && len(recs) > 0 {
		persist := func() error {
			return d.persistence.PersistNewState(context.Background(), recs...)
		}
		if !tx.OnCommit(persist) {
			return nil, domain.ErrTransactionClosed
		}
	}
	d.logger.Debug("documents inserted", slog.String("schema", schema), slog.Int("count", len(res)))
	return res, nil
}

// indexDocument adds the document to every index, undoing the insertions
// already made when one of them fails.
func (d *Datastore) indexDocument(ptr domain.DocumentPointer, fields domain.Fields, indexes []*index.Index) error {
	for n, idx := range indexes {
		if err := idx.Insert(ptr, fields); err != nil {
			d.unindexDocument(ptr, fields, indexes[:n])
			return err
		}
	}
	return nil
}

func (d *Datastore) unindexDocument(ptr domain.DocumentPointer, fields domain.Fields, indexes []*index.Index) {
	for _, idx := range indexes {
		if err := idx.Remove(ptr, fields); err != nil {
			d.logger.Error("removing document from index",
				slog.String("index", idx.LockName()),
				slog.String("pointer", ptr.String()),
				slog.Any("error", err),
			)
		}
	}
}

// LoadDatabase reads the datafile set in the config into the store and the
// existing indexes, then compacts it. Without a datafile it does nothing.
func (d *Datastore) LoadDatabase(ctx context.Context) error {
	if d.persistence == nil {
		return nil
	}
	recs, err := d.persistence.LoadDatabase(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := d.store.Put(rec.Pointer, rec.Fields); err != nil {
			return err
		}
		if err := d.indexDocument(rec.Pointer, rec.Fields, d.catalog.ForSchema(rec.Pointer.Schema)); err != nil {
			return err
		}
	}
	d.logger.Info("datafile loaded", slog.String("file", d.persistence.Filename()), slog.Int("documents", len(recs)))
	return nil
}

// CompactDatafile rewrites the datafile with the documents currently stored.
// Without a datafile it does nothing.
func (d *Datastore) CompactDatafile(ctx context.Context) error {
	if d.persistence == nil {
		return nil
	}
	var recs []domain.Record
	for _, schema := range d.store.Schemas() {
		ptrs, err := d.store.List(ctx, schema)
		if err != nil {
			return err
		}
		for _, ptr := range ptrs {
			fields, err := d.store.Fetch(ctx, ptr)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", ptr, err)
			}
			recs = append(recs, domain.Record{Pointer: ptr, Fields: fields})
		}
	}
	return d.persistence.PersistCachedDatabase(ctx, recs)
}

// Load inserts one document per JSON line of r into schema, outside of any
// transaction, and returns their pointers. The indexes of the schema are
// updated.
func (d *Datastore) Load(ctx context.Context, schema string, r io.Reader) ([]domain.DocumentPointer, error) {
	ptrs, err := d.store.Load(ctx, schema, r)
	if err != nil {
		return nil, err
	}
	indexes := d.catalog.ForSchema(schema)
	recs := make([]domain.Record, 0, len(ptrs))
	for _, ptr := range ptrs {
		fields, err := d.store.Fetch(ctx, ptr)
		if err != nil {
			return nil, err
		}
		if err := d.indexDocument(ptr, fields, indexes); err != nil {
			return nil, err
		}
		recs = append(recs, domain.Record{Pointer: ptr, Fields: fields})
	}
	if d.persistence != nil {
		if err := d.persistence.PersistNewState(ctx, recs...); err != nil {
			return nil, err
		}
	}
	d.logger.Info("schema loaded", slog.String("schema", schema), slog.Int("count", len(ptrs)))
	return ptrs, nil
}

// EnsureIndex builds an index over the documents already stored and makes it
// available to the planner. The schema is write locked while the index is
// built. If an index with the same schema and name exists it is returned
// unchanged.
func (d *Datastore) EnsureIndex(ctx context.Context, options ...index.Option) (*index.Index, error) {
	idx, err := index.NewIndex(append([]index.Option{index.WithComparer(d.comparer)}, options...)...)
	if err != nil {
		return nil, err
	}
	if idx.Schema() == "" {
		return nil, domain.ErrEngine{Reason: "index schema is empty"}
	}
	if existing, ok := d.catalog.Get(idx.Schema(), idx.Name()); ok {
		return existing, nil
	}

	tx := d.txs.Begin()
	defer tx.Rollback()
	if err := tx.Acquire(ctx, domain.GranularitySchema, domain.LockWrite, idx.Schema(), 0); err != nil {
		return nil, fmt.Errorf("locking schema %q: %w", idx.Schema(), err)
	}

	ptrs, err := d.store.List(ctx, idx.Schema())
	if err != nil {
		return nil, err
	}
	for _, ptr := range ptrs {
		fields, err := d.store.Fetch(ctx, ptr)
		if err != nil {
			return nil, err
		}
		if err := idx.Insert(ptr, fields); err != nil {
			return nil, err
		}
	}
	if err := d.catalog.Register(idx); err != nil {
		return nil, err
	}
	d.logger.Info("index built", slog.String("index", idx.LockName()), slog.Int("documents", idx.Len()))
	return idx, tx.Commit()
}

// Indexes returns the indexes of schema ordered by name.
func (d *Datastore) Indexes(schema string) []*index.Index {
	return d.catalog.ForSchema(schema)
}

// Execute runs a statement in tx.
func (d *Datastore) Execute(ctx context.Context, tx *transaction.Transaction, stmt executor.Statement, options ...domain.ExecuteOption) (*cursor.Cursor, error) {
	start := time.Now()
	cur, err := d.executor.Execute(ctx, tx, stmt, options...)
	if err != nil {
		d.logger.Debug("statement failed", slog.Uint64("pid", tx.ProcessID()), slog.Any("error", err))
		return nil, err
	}
	d.logger.Debug("statement done", slog.Uint64("pid", tx.ProcessID()), slog.Duration("elapsed", time.Since(start)))
	return cur, nil
}

// Tokenize cleans a statement and returns a tokenizer over it. Params are
// the values parameter placeholders resolve to.
func (d *Datastore) Tokenize(query string, params map[string]domain.Value) (*tokenizer.Tokenizer, error) {
	return tokenizer.New(query,
		tokenizer.WithHasher(d.hasher),
		tokenizer.WithBreadcrumbLimit(d.cfg.BreadcrumbLimit),
		tokenizer.WithParams(params),
	)
}

// Functions returns the function registry used by statements.
func (d *Datastore) Functions() *function.Registry {
	return d.functions
}

// Snapshot returns the locks held by every active transaction.
func (d *Datastore) Snapshot() []domain.TransactionSnapshot {
	return d.txs.Snapshot()
}

// ShowLocks renders the locks held by the process pid, or by every process
// when pid is zero.
func (d *Datastore) ShowLocks(ctx context.Context, w io.Writer, pid uint64) error {
	return diagnostics.RenderLocks(ctx, w, diagnostics.LockRows(d.Snapshot(), pid))
}

// ShowWarnings renders the warnings recorded by tx.
func (d *Datastore) ShowWarnings(ctx context.Context, w io.Writer, tx *transaction.Transaction) error {
	return diagnostics.RenderWarnings(ctx, w, tx.Warnings())
}
