package ctxsync_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/ctxsync"
)

func TestBroadcastWakesAllWaiters(t *testing.T) {
	var b ctxsync.Broadcaster
	workers := 100

	ready := sync.WaitGroup{}
	done := sync.WaitGroup{}
	ready.Add(workers)
	done.Add(workers)

	for range workers {
		go func() {
			defer done.Done()
			ch := b.Changed()
			ready.Done()
			assert.NoError(t, ctxsync.Wait(context.Background(), ch, time.Time{}))
		}()
	}

	ready.Wait()
	b.Broadcast()
	done.Wait()
}

func TestChangedAfterBroadcastIsFresh(t *testing.T) {
	var b ctxsync.Broadcaster
	first := b.Changed()
	b.Broadcast()

	select {
	case <-first:
	default:
		t.Fatal("channel not closed by broadcast")
	}

	second := b.Changed()
	select {
	case <-second:
		t.Fatal("new channel already closed")
	default:
	}

	// Broadcasting without waiters must not panic.
	b.Broadcast()
	b.Broadcast()
}

func TestWaitDeadline(t *testing.T) {
	var b ctxsync.Broadcaster
	start := time.Now()
	err := ctxsync.Wait(context.Background(), b.Changed(), start.Add(10*time.Millisecond))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestWaitCancelled(t *testing.T) {
	var b ctxsync.Broadcaster
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ctxsync.Wait(ctx, b.Changed(), time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}
