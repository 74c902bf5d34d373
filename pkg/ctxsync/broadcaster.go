// Package ctxsync contains synchronization primitives that cooperate with
// [context.Context].
package ctxsync

import (
	"context"
	"sync"
	"time"
)

// Broadcaster announces the occurrence of an event to every goroutine waiting
// for it. Waiters obtain the current channel with [Broadcaster.Changed] while
// holding the lock that protects the observed condition, release that lock,
// and then block on the channel. Because the channel is taken before the lock
// is released, a broadcast in between is never missed.
//
// The zero value is ready to use. A Broadcaster must not be copied after first
// use.
type Broadcaster struct {
	noCopy noCopy

	mu     sync.Mutex
	notify chan struct{}
}

// Changed returns a channel that is closed on the next call to
// [Broadcaster.Broadcast].
func (b *Broadcaster) Changed() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notify == nil {
		b.notify = make(chan struct{})
	}
	return b.notify
}

// Broadcast wakes every goroutine blocked on a channel previously returned by
// [Broadcaster.Changed].
func (b *Broadcaster) Broadcast() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notify != nil {
		close(b.notify)
		b.notify = nil
	}
}

// Wait blocks until ch is closed, the context is done or the deadline
// expires. A zero deadline never expires. It returns the context error or
// [context.DeadlineExceeded] when the deadline passes.
func Wait(ctx context.Context, ch <-chan struct{}, deadline time.Time) error {
	var expired <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return context.DeadlineExceeded
	}
}

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
