// Package executor runs prepared statements: it locks and scans the schemas
// a statement reads, through an index when the planner finds one, joins their
// documents, filters the combinations and projects the result rows.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinicius-lino-figueiredo/gedbql/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/condition"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/fetcher"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/function"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/index"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/planner"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/row"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Tx is the transaction a statement runs in.
type Tx interface {
	domain.WarningSink
	Acquire(ctx context.Context, granularity domain.Granularity, op domain.LockOperation, object string, timeout time.Duration) error
	OnAbort(fn func()) bool
}

type document struct {
	ptr    domain.DocumentPointer
	fields domain.Fields
}

var errLimitReached = errors.New("limit reached")

// Executor runs statements. It is safe for concurrent use.
type Executor struct {
	fetcher     domain.DocumentFetcher
	catalog     *index.Catalog
	planner     *planner.Planner
	matcher     *matcher.Matcher
	comparer    domain.Comparer
	functions   *function.Registry
	decoder     domain.Decoder
	lockTimeout time.Duration
	logger      *slog.Logger
}

// NewExecutor returns a new Executor.
func NewExecutor(options ...Option) *Executor {
	e := &Executor{
		comparer: comparer.NewComparer(),
		decoder:  decoder.NewDecoder(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(e)
	}
	if e.fetcher == nil {
		e.fetcher = fetcher.NewMemory()
	}
	if e.catalog == nil {
		e.catalog = index.NewCatalog()
	}
	if e.planner == nil {
		e.planner = planner.NewPlanner(planner.WithLogger(e.logger))
	}
	if e.matcher == nil {
		e.matcher = matcher.NewMatcher(matcher.WithComparer(e.comparer), matcher.WithLogger(e.logger))
	}
	if e.functions == nil {
		e.functions = function.NewRegistry(function.WithComparer(e.comparer), function.WithDecoder(e.decoder))
	}
	return e
}

// Execute runs stmt in tx and returns a cursor over the result. Every schema
// is read locked before any of them is scanned, and every document and index
// read is read locked as well. The locks are held until tx ends. Rolling tx
// back discards the rows and aborts the cursor.
func (e *Executor) Execute(ctx context.Context, tx Tx, stmt Statement, options ...domain.ExecuteOption) (*cursor.Cursor, error) {
	var opts domain.ExecuteOptions
	for _, option := range options {
		option(&opts)
	}

	aggregate, err := stmt.validate(e.functions)
	if err != nil {
		return nil, err
	}

	rows := row.NewRows()
	if !tx.OnAbort(rows.Discard) {
		return nil, domain.ErrTransactionClosed
	}

	for _, ref := range stmt.Schemas {
		if err := tx.Acquire(ctx, domain.GranularitySchema, domain.LockRead, ref.Name, e.lockTimeout); err != nil {
			return nil, fmt.Errorf("locking schema %q: %w", ref.Name, err)
		}
	}

	params := matcher.NewSources(opts.Params)
	docs := make([][]document, len(stmt.Schemas))
	for n, ref := range stmt.Schemas {
		if docs[n], err = e.scan(ctx, tx, stmt, ref, params); err != nil {
			return nil, err
		}
	}

	proj, err := newProjection(stmt, docs, e.functions, aggregate)
	if err != nil {
		return nil, err
	}

	// Rows can be cut while joining only when nothing reorders or folds them.
	stopAt := 0
	if !aggregate && len(stmt.Sort) == 0 && opts.Limit > 0 {
		stopAt = max(opts.Skip, 0) + opts.Limit
	}
	if err := e.join(ctx, tx, stmt, docs, proj, params, rows, stopAt); err != nil && !errors.Is(err, errLimitReached) {
		return nil, err
	}

	result := rows.All()
	if aggregate {
		r, err := proj.result()
		if err != nil {
			return nil, err
		}
		result = []*row.Row{r}
	} else {
		result = skipAndLimit(e.sortRows(result, stmt.Sort, proj), opts.Skip, opts.Limit)
	}
	if rows.Discarded() {
		return nil, domain.ErrTransactionClosed
	}

	cur, err := cursor.NewCursor(ctx, proj.columns, result, cursor.WithDecoder(e.decoder))
	if err != nil {
		return nil, err
	}
	// A rollback racing this statement may have discarded the rows after
	// the check above; the hook is then refused.
	if !tx.OnAbort(func() { cur.Abort(domain.ErrTransactionClosed) }) {
		cur.Abort(domain.ErrTransactionClosed)
		return nil, domain.ErrTransactionClosed
	}

	e.logger.Debug("statement executed",
		slog.Int("schemas", len(stmt.Schemas)),
		slog.Int("rows", len(result)),
	)
	return cur, nil
}

// scan returns the documents of one schema that may satisfy the statement.
// Documents removed after their pointer was listed are skipped.
func (e *Executor) scan(ctx context.Context, tx Tx, stmt Statement, ref SchemaRef, params *matcher.Sources) ([]document, error) {
	ptrs, err := e.candidates(ctx, tx, stmt, ref, params)
	if err != nil {
		return nil, err
	}

	res := make([]document, 0, len(ptrs))
	for _, ptr := range ptrs {
		if err := tx.Acquire(ctx, domain.GranularityDocument, domain.LockRead, ptr.String(), e.lockTimeout); err != nil {
			return nil, fmt.Errorf("locking document %s: %w", ptr, err)
		}
		fields, err := e.fetcher.Fetch(ctx, ptr)
		if errors.As(err, &domain.ErrDocumentNotFound{}) {
			e.logger.Debug("document vanished", slog.String("pointer", ptr.String()))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", ptr, err)
		}
		res = append(res, document{ptr: ptr, fields: fields})
	}
	return res, nil
}

// candidates lists the pointers to read, from the chosen index or from the
// whole schema. In statements over several schemas only predicates naming
// the alias can narrow a scan, since an unqualified field may belong to any
// schema.
func (e *Executor) candidates(ctx context.Context, tx Tx, stmt Statement, ref SchemaRef, params *matcher.Sources) ([]domain.DocumentPointer, error) {
	if stmt.Conditions == nil {
		return e.fetcher.List(ctx, ref.Name)
	}

	plan := e.planner.Choose(stmt.Conditions, ref.Label(), e.catalog.ForSchema(ref.Name))
	if len(stmt.Schemas) > 1 && !qualified(plan) {
		plan = planner.Plan{Alias: ref.Label()}
	}
	if plan.IsFullScan() {
		return e.fetcher.List(ctx, ref.Name)
	}

	name := plan.Index.LockName()
	if err := tx.Acquire(ctx, domain.GranularityIndex, domain.LockRead, name, e.lockTimeout); err != nil {
		return nil, fmt.Errorf("locking index %q: %w", name, err)
	}
	prefix, err := plan.LookupPrefix(params)
	if err != nil {
		return nil, err
	}
	return plan.Index.Lookup(ctx, prefix)
}

func qualified(plan planner.Plan) bool {
	for _, step := range plan.Steps {
		for _, o := range [...]condition.Operand{step.Condition.Left, step.Condition.Right} {
			if o.IsField() && o.Alias == "" {
				return false
			}
		}
	}
	return true
}

// join walks every combination of one document per schema, in schema order,
// and projects the combinations matching the conditions. Null comparisons
// are recorded on tx.
func (e *Executor) join(ctx context.Context, tx Tx, stmt Statement, docs [][]document, proj *projection, params *matcher.Sources, rows *row.Rows, stopAt int) error {
	aliases := make([]string, len(stmt.Schemas))
	for n, ref := range stmt.Schemas {
		aliases[n] = ref.Label()
	}
	ptrs := make([]domain.DocumentPointer, len(stmt.Schemas))

	var walk func(level int) error
	walk = func(level int) error {
		if level == len(docs) {
			ok, err := e.matcher.Match(stmt.Conditions, params, tx)
			if err != nil || !ok {
				return err
			}
			r, err := proj.add(params, aliases, ptrs)
			if err != nil || r == nil {
				return err
			}
			if !rows.Add(r) {
				return domain.ErrTransactionClosed
			}
			if stopAt > 0 && rows.Len() >= stopAt {
				return errLimitReached
			}
			return nil
		}
		for _, doc := range docs[level] {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			params.Bind(aliases[level], doc.fields)
			ptrs[level] = doc.ptr
			if err := walk(level + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0)
}
