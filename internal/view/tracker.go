package view

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/auth"
	"github.com/plateful/storefront/internal/model"
	"github.com/plateful/storefront/internal/poll"
	"github.com/plateful/storefront/internal/store"
)

// TrackRef identifies the order a tracker follows: by id when set,
// otherwise by human-facing number.
type TrackRef struct {
	ID     uuid.UUID
	Number int
}

// OrderTracker follows a single order. It runs the tightest cadence of
// the three consumers because a customer actively watching one order
// wants near-real-time feedback.
type OrderTracker struct {
	orders   *store.Orders
	actor    auth.Actor
	ref      TrackRef
	onChange func(model.Order)

	mu    sync.Mutex
	state string
	last  model.Order
	found bool

	sub *poll.Subscription
}

// NewOrderTracker opens a tracker for ref. The actor must be allowed to
// track the order's phone; an order not in the cache yet is not an
// authorization failure, so the phone check re-runs on each refresh.
func NewOrderTracker(actor auth.Actor, orders *store.Orders, n *poll.Notifier, interval time.Duration, ref TrackRef, onChange func(model.Order)) *OrderTracker {
	v := &OrderTracker{
		orders:   orders,
		actor:    actor,
		ref:      ref,
		onChange: onChange,
		state:    StateLoading,
	}
	v.sub = n.Subscribe(interval, v.refresh)
	return v
}

func (v *OrderTracker) lookup() (model.Order, bool) {
	if v.ref.ID != uuid.Nil {
		return v.orders.ByID(v.ref.ID)
	}
	return v.orders.ByNumber(v.ref.Number)
}

func (v *OrderTracker) refresh() {
	order, ok := v.lookup()
	if ok && !v.actor.CanTrackPhone(order.UserPhone) {
		ok = false
	}

	v.mu.Lock()
	if !ok {
		// Absent from the freshest known collection: not-found, shown
		// as an error state; the last known order is kept for display.
		v.state = StateError
		v.mu.Unlock()
		return
	}
	changed := !v.found || v.last.Status != order.Status || !v.last.UpdatedAt.Equal(order.UpdatedAt)
	v.last = order
	v.found = true
	v.state = StateDisplaying
	v.mu.Unlock()

	if changed && v.onChange != nil {
		v.onChange(order)
	}
}

// Order returns the last known order and whether one was ever found.
func (v *OrderTracker) Order() (model.Order, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last, v.found
}

// State reports the consumer state.
func (v *OrderTracker) State() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateLoading && v.orders.Err() != nil {
		return StateError
	}
	return v.state
}

// Close releases the view's subscription.
func (v *OrderTracker) Close() {
	v.sub.Cancel()
	v.mu.Lock()
	v.state = StateIdle
	v.mu.Unlock()
}
