// Package lockmgr contains the lock table shared by every transaction.
package lockmgr

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/ctxsync"
)

// DefaultTimeout is used when neither the caller nor [WithTimeout] set one.
const DefaultTimeout = 5 * time.Second

type object struct {
	granularity domain.Granularity
	name        string
}

type grant struct {
	lock domain.HeldLock
	seq  uint64
}

// Manager implements [domain.LockManager]. Read and Intent locks are shared,
// Write locks are exclusive. Locks are re-entrant, and a process that is the
// only holder of an object may upgrade its lock. Conflicting requests wait
// until a release or their timeout; deadlocks are broken by the timeout.
type Manager struct {
	mu        sync.RWMutex
	seq       uint64
	objects   map[object]map[uint64]*grant
	processes map[uint64]map[object]*grant
	changed   ctxsync.Broadcaster

	timeout    time.Duration
	logger     *slog.Logger
	registerer prometheus.Registerer
	namespace  string
	metrics    *metrics
}

// NewManager returns an empty lock table.
func NewManager(options ...Option) *Manager {
	m := &Manager{
		objects:   make(map[object]map[uint64]*grant),
		processes: make(map[uint64]map[object]*grant),
		timeout:   DefaultTimeout,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(m)
	}
	metrics, err := newMetrics(m.registerer, m.namespace)
	if err != nil {
		m.logger.Warn("lock metrics not registered", slog.Any("error", err))
		metrics, _ = newMetrics(nil, m.namespace)
	}
	m.metrics = metrics
	return m
}

// Register implements [domain.LockManager].
func (m *Manager) Register(pid uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processes[pid]; !ok {
		m.processes[pid] = make(map[object]*grant)
	}
}

// Acquire implements [domain.LockManager]. A negative timeout waits until the
// context is done.
func (m *Manager) Acquire(ctx context.Context, pid uint64, granularity domain.Granularity, op domain.LockOperation, name string, timeout time.Duration) error {
	if timeout == 0 {
		timeout = m.timeout
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	obj := object{granularity: granularity, name: domain.Fold(name)}
	start := time.Now()
	waiting := false
	for {
		m.mu.Lock()
		if _, ok := m.processes[pid]; !ok {
			m.mu.Unlock()
			return domain.ErrTransactionClosed
		}
		if m.grantable(pid, obj, op) {
			m.grant(pid, obj, op, name)
			m.mu.Unlock()
			m.metrics.wait.Observe(time.Since(start).Seconds())
			return nil
		}
		changed := m.changed.Changed()
		m.mu.Unlock()

		if !waiting {
			waiting = true
			m.logger.Debug("waiting for lock",
				slog.Uint64("pid", pid),
				slog.String("granularity", granularity.String()),
				slog.String("operation", op.String()),
				slog.String("object", name),
			)
		}

		if err := ctxsync.Wait(ctx, changed, deadline); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.metrics.timeouts.Inc()
			err := domain.ErrLockTimeout{
				ProcessID:   pid,
				Granularity: granularity,
				Operation:   op,
				Object:      name,
				Timeout:     timeout,
			}
			m.logger.Warn("lock timeout", slog.Uint64("pid", pid), slog.Any("error", err))
			return err
		}
	}
}

func (m *Manager) grantable(pid uint64, obj object, op domain.LockOperation) bool {
	for holder, g := range m.objects[obj] {
		if holder == pid {
			continue
		}
		if !g.lock.Operation.CompatibleWith(op) {
			return false
		}
	}
	return true
}

func (m *Manager) grant(pid uint64, obj object, op domain.LockOperation, name string) {
	holders, ok := m.objects[obj]
	if !ok {
		holders = make(map[uint64]*grant)
		m.objects[obj] = holders
	}
	if g, ok := holders[pid]; ok {
		g.lock.Operation = max(g.lock.Operation, op)
		return
	}
	m.seq++
	g := &grant{
		lock: domain.HeldLock{
			ProcessID:   pid,
			Granularity: obj.granularity,
			Operation:   op,
			ObjectName:  name,
		},
		seq: m.seq,
	}
	holders[pid] = g
	m.processes[pid][obj] = g
	m.metrics.held.Inc()
}

// Release implements [domain.LockManager].
func (m *Manager) Release(pid uint64, granularity domain.Granularity, name string) {
	obj := object{granularity: granularity, name: domain.Fold(name)}

	m.mu.Lock()
	released := m.release(pid, obj)
	m.mu.Unlock()

	if released {
		m.changed.Broadcast()
	}
}

func (m *Manager) release(pid uint64, obj object) bool {
	holders, ok := m.objects[obj]
	if !ok {
		return false
	}
	if _, ok := holders[pid]; !ok {
		return false
	}
	delete(holders, pid)
	if len(holders) == 0 {
		delete(m.objects, obj)
	}
	delete(m.processes[pid], obj)
	m.metrics.held.Dec()
	return true
}

// ReleaseAll implements [domain.LockManager].
func (m *Manager) ReleaseAll(pid uint64) {
	m.mu.Lock()
	held := m.processes[pid]
	for obj := range held {
		m.release(pid, obj)
	}
	delete(m.processes, pid)
	m.mu.Unlock()

	if len(held) > 0 {
		m.logger.Debug("locks released", slog.Uint64("pid", pid), slog.Int("count", len(held)))
	}
	m.changed.Broadcast()
}

// Snapshot implements [domain.LockManager]. Processes are ordered by id and
// their locks by acquisition order. Taking a snapshot only holds the read
// side of the table lock, so it never waits for a blocked Acquire.
func (m *Manager) Snapshot() []domain.TransactionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pids := slices.Sorted(maps.Keys(m.processes))
	res := make([]domain.TransactionSnapshot, 0, len(pids))
	for _, pid := range pids {
		grants := slices.SortedFunc(maps.Values(m.processes[pid]), func(a, b *grant) int {
			return cmp.Compare(a.seq, b.seq)
		})
		snap := domain.TransactionSnapshot{
			ProcessID: pid,
			HeldLocks: make([]domain.HeldLock, len(grants)),
		}
		for n, g := range grants {
			snap.HeldLocks[n] = g.lock
		}
		res = append(res, snap)
	}
	return res
}

// IsTimeout reports whether err is a lock timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, domain.ErrLockNotAcquired)
}
