package view

import (
	"sync"
	"time"

	"github.com/plateful/storefront/internal/auth"
	"github.com/plateful/storefront/internal/model"
	"github.com/plateful/storefront/internal/poll"
	"github.com/plateful/storefront/internal/store"
)

// CustomerOrders is the customer-facing order list, filtered by the
// phone number the orders were placed with.
type CustomerOrders struct {
	orders   *store.Orders
	phone    string
	onRender func([]model.Order)

	mu       sync.Mutex
	state    string
	snapshot []model.Order

	sub *poll.Subscription
}

// NewCustomerOrders opens the order list for phone. The actor must be
// allowed to track that phone (customers only their own, staff any).
// onRender fires whenever the filtered list changes; it may be nil.
func NewCustomerOrders(actor auth.Actor, orders *store.Orders, n *poll.Notifier, interval time.Duration, phone string, onRender func([]model.Order)) (*CustomerOrders, error) {
	if !actor.CanTrackPhone(phone) {
		return nil, ErrForbidden
	}
	v := &CustomerOrders{
		orders:   orders,
		phone:    phone,
		onRender: onRender,
		state:    StateLoading,
	}
	v.sub = n.Subscribe(interval, v.refresh)
	return v, nil
}

// refresh re-derives the filtered view from the now-current cache. It
// runs after every successful store refresh.
func (v *CustomerOrders) refresh() {
	next := v.orders.ByUserPhone(v.phone)

	v.mu.Lock()
	changed := v.state != StateDisplaying || !ordersEqual(v.snapshot, next)
	v.snapshot = next
	v.state = StateDisplaying
	v.mu.Unlock()

	if changed && v.onRender != nil {
		v.onRender(next)
	}
}

// Orders returns the last derived snapshot.
func (v *CustomerOrders) Orders() []model.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]model.Order, len(v.snapshot))
	copy(out, v.snapshot)
	return out
}

// State reports the consumer state. A view that never displayed data
// and whose store carries a sync error reports ERROR.
func (v *CustomerOrders) State() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateLoading && v.orders.Err() != nil {
		return StateError
	}
	return v.state
}

// Close releases the view's subscription. Must be called on teardown or
// the timer leaks.
func (v *CustomerOrders) Close() {
	v.sub.Cancel()
	v.mu.Lock()
	v.state = StateIdle
	v.mu.Unlock()
}
