// Package poll schedules order store refreshes on behalf of consumer
// views. Instead of every view running its own timer against the store,
// views subscribe here with a desired cadence and the notifier coalesces
// all due refreshes into a single in-flight fetch.
package poll

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/storage"
)

// Refresher is the store operation the notifier drives. Satisfied by
// *store.Orders.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Notifier owns the refresh schedule for one order store.
type Notifier struct {
	store Refresher

	// kick holds at most one pending refresh request; extra triggers
	// while a fetch is in flight collapse into it.
	kick chan struct{}

	mu      sync.Mutex
	subs    map[int]*Subscription
	nextID  int
	visible bool

	cancelBroadcast func()
}

// Subscription is one view's registration. Cancel releases its timer;
// a view that fails to cancel leaks a live timer, so views tie Cancel
// to their teardown.
type Subscription struct {
	n        *Notifier
	id       int
	onUpdate func()
	stop     chan struct{}
	once     sync.Once
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBroadcast makes broadcast-channel order events from other sessions
// trigger an immediate refresh, so polling becomes the fallback rather
// than the only sync path.
func WithBroadcast(session *storage.Session) Option {
	return func(n *Notifier) {
		n.cancelBroadcast = session.OnBroadcast(func(msg storage.Message) {
			if msg.Event == enum.EventOrdersChanged {
				n.TriggerRefresh()
			}
		})
	}
}

// NewNotifier creates a notifier for the store. Call Run to start it.
func NewNotifier(store Refresher, opts ...Option) *Notifier {
	n := &Notifier{
		store:   store,
		kick:    make(chan struct{}, 1),
		subs:    make(map[int]*Subscription),
		visible: true,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run executes refreshes until ctx is cancelled. Failed polls are
// retried silently on the next trigger; there is no backoff because a
// missed status poll is low-stakes.
func (n *Notifier) Run(ctx context.Context) {
	defer func() {
		if n.cancelBroadcast != nil {
			n.cancelBroadcast()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.kick:
			if err := n.store.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("poll refresh: %v", err)
				continue
			}
			n.notifyAll()
		}
	}
}

// Subscribe registers a view with its refresh cadence. onUpdate runs
// after every successful refresh, regardless of which subscriber's
// timer caused it. An immediate refresh is triggered for the mount-time
// initial load.
func (n *Notifier) Subscribe(interval time.Duration, onUpdate func()) *Subscription {
	sub := &Subscription{
		n:        n,
		onUpdate: onUpdate,
		stop:     make(chan struct{}),
	}

	n.mu.Lock()
	sub.id = n.nextID
	n.nextID++
	n.subs[sub.id] = sub
	n.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sub.stop:
				return
			case <-ticker.C:
				n.TriggerRefresh()
			}
		}
	}()

	n.TriggerRefresh()
	return sub
}

// Cancel releases the subscription's timer and stops its updates.
// Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.stop)
		s.n.mu.Lock()
		delete(s.n.subs, s.id)
		s.n.mu.Unlock()
	})
}

// TriggerRefresh requests a refresh as soon as the worker is free.
// Requests arriving while one is already pending or in flight coalesce.
func (n *Notifier) TriggerRefresh() {
	select {
	case n.kick <- struct{}{}:
	default:
	}
}

// Focus mirrors the browser tab regaining focus: refresh now.
func (n *Notifier) Focus() {
	n.TriggerRefresh()
}

// VisibilityChanged mirrors document visibility transitions; only the
// hidden-to-visible edge schedules a refresh.
func (n *Notifier) VisibilityChanged(visible bool) {
	n.mu.Lock()
	wasVisible := n.visible
	n.visible = visible
	n.mu.Unlock()

	if visible && !wasVisible {
		n.TriggerRefresh()
	}
}

func (n *Notifier) notifyAll() {
	n.mu.Lock()
	subs := make([]*Subscription, 0, len(n.subs))
	for _, s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.Unlock()

	for _, s := range subs {
		if s.onUpdate != nil {
			s.onUpdate()
		}
	}
}
