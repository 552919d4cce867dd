package poll_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/poll"
	"github.com/plateful/storefront/internal/storage"
)

// mockRefresher counts refreshes and can block or fail on demand.
type mockRefresher struct {
	mu      sync.Mutex
	calls   int
	err     error
	started chan struct{} // receives once per refresh start, if set
	block   chan struct{} // refresh waits on this, if set
}

func (m *mockRefresher) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitSignal(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSubscribeTriggersInitialLoadAndUpdate(t *testing.T) {
	r := &mockRefresher{}
	n := poll.NewNotifier(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	updated := make(chan struct{}, 4)
	sub := n.Subscribe(time.Hour, func() { updated <- struct{}{} })
	defer sub.Cancel()

	waitSignal(t, updated, "initial update")
	if r.callCount() != 1 {
		t.Errorf("refresh calls: got %d, want 1", r.callCount())
	}
}

func TestOverlappingTriggersCoalesce(t *testing.T) {
	r := &mockRefresher{
		started: make(chan struct{}, 8),
		block:   make(chan struct{}),
	}
	n := poll.NewNotifier(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	n.TriggerRefresh()
	waitSignal(t, r.started, "first refresh start")

	// Five triggers while the fetch is in flight must collapse into at
	// most one queued refresh.
	for i := 0; i < 5; i++ {
		n.TriggerRefresh()
	}
	r.block <- struct{}{} // release first
	waitSignal(t, r.started, "coalesced refresh start")
	r.block <- struct{}{} // release second

	// Give the worker a moment to (incorrectly) start a third fetch.
	select {
	case <-r.started:
		t.Fatal("expected overlapping triggers to coalesce into one fetch")
	case <-time.After(100 * time.Millisecond):
	}
	if got := r.callCount(); got != 2 {
		t.Errorf("refresh calls: got %d, want 2", got)
	}
}

func TestFailedPollIsSilentAndRetriesOnNextTrigger(t *testing.T) {
	r := &mockRefresher{started: make(chan struct{}, 4), block: make(chan struct{})}
	r.err = errors.New("network down")
	n := poll.NewNotifier(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	updated := make(chan struct{}, 4)
	sub := n.Subscribe(time.Hour, func() { updated <- struct{}{} })
	defer sub.Cancel()

	waitSignal(t, r.started, "failing refresh")
	r.block <- struct{}{} // let the failing refresh finish
	select {
	case <-updated:
		t.Fatal("subscribers must not be notified after a failed poll")
	case <-time.After(100 * time.Millisecond):
	}

	// Next trigger succeeds and notifies.
	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()
	n.TriggerRefresh()
	waitSignal(t, r.started, "retry refresh")
	r.block <- struct{}{}
	waitSignal(t, updated, "update after recovery")
}

func TestCancelStopsUpdates(t *testing.T) {
	r := &mockRefresher{}
	n := poll.NewNotifier(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	updated := make(chan struct{}, 8)
	sub := n.Subscribe(time.Hour, func() { updated <- struct{}{} })
	waitSignal(t, updated, "initial update")

	sub.Cancel()
	sub.Cancel() // idempotent

	n.TriggerRefresh()
	select {
	case <-updated:
		t.Fatal("cancelled subscription still notified")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestVisibilityOnlyHiddenToVisibleEdgeRefreshes(t *testing.T) {
	r := &mockRefresher{started: make(chan struct{}, 4)}
	n := poll.NewNotifier(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	// Already visible: no refresh.
	n.VisibilityChanged(true)
	select {
	case <-r.started:
		t.Fatal("visible->visible must not refresh")
	case <-time.After(100 * time.Millisecond):
	}

	n.VisibilityChanged(false)
	select {
	case <-r.started:
		t.Fatal("visible->hidden must not refresh")
	case <-time.After(100 * time.Millisecond):
	}

	n.VisibilityChanged(true)
	waitSignal(t, r.started, "hidden->visible refresh")

	n.Focus()
	waitSignal(t, r.started, "focus refresh")
}

func TestBroadcastActsAsPushAssist(t *testing.T) {
	backend := storage.NewMemoryBackend()
	writer := storage.Open(backend)
	reader := storage.Open(backend)

	r := &mockRefresher{started: make(chan struct{}, 4)}
	n := poll.NewNotifier(r, poll.WithBroadcast(reader))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	if err := writer.Broadcast(enum.EventOrdersChanged, nil); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitSignal(t, r.started, "broadcast-triggered refresh")

	// Unrelated events are ignored.
	if err := writer.Broadcast(enum.EventUsersChanged, nil); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	select {
	case <-r.started:
		t.Fatal("non-order broadcast must not refresh")
	case <-time.After(100 * time.Millisecond):
	}
}
