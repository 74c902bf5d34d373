package transaction

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/lockmgr"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Manager starts transactions and tracks the active ones.
type Manager struct {
	locks   domain.LockManager
	timeout time.Duration
	logger  *slog.Logger
	clock   domain.TimeGetter

	nextPID atomic.Uint64

	mu     sync.RWMutex
	active map[uint64]*Transaction
}

// NewManager returns a new Manager.
func NewManager(options ...Option) *Manager {
	m := &Manager{
		logger: slog.New(slog.DiscardHandler),
		clock:  timegetter.NewTimeGetter(),
		active: make(map[uint64]*Transaction),
	}
	for _, option := range options {
		option(m)
	}
	if m.locks == nil {
		m.locks = lockmgr.NewManager(lockmgr.WithLogger(m.logger))
	}
	return m
}

// Begin starts a new active transaction with a fresh process id.
func (m *Manager) Begin() *Transaction {
	t := &Transaction{
		id:      uuid.New(),
		pid:     m.nextPID.Add(1),
		locks:   m.locks,
		timeout: m.timeout,
		logger:  m.logger,
		done:    m.forget,
		state:   domain.TransactionActive,

		startedAt: m.clock.GetTime(),
	}
	m.locks.Register(t.pid)

	m.mu.Lock()
	m.active[t.pid] = t
	m.mu.Unlock()

	m.logger.Debug("transaction started", slog.String("id", t.id.String()), slog.Uint64("pid", t.pid))
	return t
}

func (m *Manager) forget(t *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, t.pid)
}

// Get returns the active transaction with the given process id.
func (m *Manager) Get(pid uint64) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.active[pid]
	return t, ok
}

// Active returns the active transactions ordered by process id.
func (m *Manager) Active() []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]*Transaction, 0, len(m.active))
	for _, pid := range slices.Sorted(maps.Keys(m.active)) {
		res = append(res, m.active[pid])
	}
	return res
}

// Snapshot returns the locks held by every active transaction.
func (m *Manager) Snapshot() []domain.TransactionSnapshot {
	return m.locks.Snapshot()
}

// Locks returns the lock manager shared by the transactions.
func (m *Manager) Locks() domain.LockManager {
	return m.locks
}
