// Package transaction contains the transaction state machine and the manager
// allocating process ids.
package transaction

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Transaction is a unit of work holding locks on behalf of one process. It
// moves from active to committing or rolling back, then to terminated, and
// releases every lock it holds on the way out. It implements
// [domain.WarningSink].
type Transaction struct {
	id      uuid.UUID
	pid     uint64
	locks   domain.LockManager
	timeout time.Duration
	logger  *slog.Logger
	done    func(*Transaction)

	startedAt time.Time

	mu       sync.Mutex
	state    domain.TransactionState
	warnings []domain.Warning
	onAbort  []func()
	onCommit []func() error
}

// ID returns the transaction identity.
func (t *Transaction) ID() uuid.UUID {
	return t.id
}

// ProcessID returns the process id used in the lock table.
func (t *Transaction) ProcessID() uint64 {
	return t.pid
}

// StartedAt returns when the transaction began.
func (t *Transaction) StartedAt() time.Time {
	return t.startedAt
}

// State returns the current state.
func (t *Transaction) State() domain.TransactionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Warn implements [domain.WarningSink].
func (t *Transaction) Warn(w domain.Warning) {
	w.TransactionID = t.id
	t.mu.Lock()
	defer t.mu.Unlock()
	t.warnings = append(t.warnings, w)
}

// Warnings returns a copy of the warnings recorded so far.
func (t *Transaction) Warnings() []domain.Warning {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.warnings)
}

// OnAbort registers fn to run when the transaction rolls back. Hooks run in
// reverse registration order. It reports false, without registering, when
// the transaction is no longer active.
func (t *Transaction) OnAbort(fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.TransactionActive {
		return false
	}
	t.onAbort = append(t.onAbort, fn)
	return true
}

// OnCommit registers fn to run when the transaction commits, in
// registration order, while its locks are still held. It reports false,
// without registering, when the transaction is no longer active.
func (t *Transaction) OnCommit(fn func() error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.TransactionActive {
		return false
	}
	t.onCommit = append(t.onCommit, fn)
	return true
}

// Acquire takes a lock for the transaction. A zero timeout uses the
// transaction default.
func (t *Transaction) Acquire(ctx context.Context, granularity domain.Granularity, op domain.LockOperation, object string, timeout time.Duration) error {
	if t.State() != domain.TransactionActive {
		return domain.ErrTransactionClosed
	}
	if timeout == 0 {
		timeout = t.timeout
	}
	return t.locks.Acquire(ctx, t.pid, granularity, op, object, timeout)
}

// Release gives up a single lock before the transaction ends.
func (t *Transaction) Release(granularity domain.Granularity, object string) {
	t.locks.Release(t.pid, granularity, object)
}

// Commit ends the transaction keeping its effects. Errors returned by commit
// hooks are joined and returned; the transaction ends either way.
func (t *Transaction) Commit() error {
	if err := t.begin(domain.TransactionCommitting); err != nil {
		return err
	}
	t.mu.Lock()
	hooks := t.onCommit
	t.onCommit = nil
	t.mu.Unlock()
	var errs []error
	for _, hook := range hooks {
		if err := hook(); err != nil {
			errs = append(errs, err)
		}
	}
	t.finish()
	if err := errors.Join(errs...); err != nil {
		t.logger.Error("commit hooks failed", slog.String("id", t.id.String()), slog.Any("error", err))
		return err
	}
	t.logger.Debug("transaction committed", slog.String("id", t.id.String()), slog.Uint64("pid", t.pid))
	return nil
}

// Rollback ends the transaction running its abort hooks.
func (t *Transaction) Rollback() error {
	if err := t.begin(domain.TransactionRollingBack); err != nil {
		return err
	}
	t.mu.Lock()
	hooks := t.onAbort
	t.onAbort = nil
	t.mu.Unlock()
	for _, hook := range slices.Backward(hooks) {
		hook()
	}
	t.finish()
	t.logger.Debug("transaction rolled back", slog.String("id", t.id.String()), slog.Uint64("pid", t.pid))
	return nil
}

func (t *Transaction) begin(next domain.TransactionState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.TransactionActive {
		return domain.ErrTransactionClosed
	}
	t.state = next
	return nil
}

func (t *Transaction) finish() {
	t.locks.ReleaseAll(t.pid)
	t.mu.Lock()
	t.state = domain.TransactionTerminated
	t.onAbort = nil
	t.onCommit = nil
	t.mu.Unlock()
	if t.done != nil {
		t.done(t)
	}
}
