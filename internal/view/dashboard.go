package view

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plateful/storefront/internal/auth"
	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
	"github.com/plateful/storefront/internal/poll"
	"github.com/plateful/storefront/internal/store"
)

// Summary aggregates revenue and activity for a dashboard. Revenue is
// in currency units, derived from order cents; canceled orders are
// excluded.
type Summary struct {
	OrderCount  int
	ActiveCount int
	Revenue     decimal.Decimal
	ByStatus    map[string]int
}

// DashboardData is what a dashboard renders: the filtered orders, the
// aggregate summary and, for the network dashboard, per-branch
// summaries.
type DashboardData struct {
	Orders   []model.Order
	Summary  Summary
	ByBranch map[uuid.UUID]Summary
}

// Dashboard is the staff-facing polling consumer. With a branch id it
// shows that branch's orders; with uuid.Nil it is the network-wide view.
// Dashboards run the loosest cadence: staff glance, they don't watch.
type Dashboard struct {
	orders   *store.Orders
	branchID uuid.UUID
	network  bool
	onRender func(DashboardData)

	mu    sync.Mutex
	state string
	data  DashboardData

	sub *poll.Subscription
}

// NewBranchDashboard opens the dashboard for one branch. Branch admins
// may only open their own; owners any.
func NewBranchDashboard(actor auth.Actor, orders *store.Orders, n *poll.Notifier, interval time.Duration, branchID uuid.UUID, onRender func(DashboardData)) (*Dashboard, error) {
	if !actor.CanViewBranch(branchID) {
		return nil, ErrForbidden
	}
	return newDashboard(orders, n, interval, branchID, false, onRender), nil
}

// NewNetworkDashboard opens the all-branches dashboard. Owner only.
func NewNetworkDashboard(actor auth.Actor, orders *store.Orders, n *poll.Notifier, interval time.Duration, onRender func(DashboardData)) (*Dashboard, error) {
	if !actor.CanViewNetwork() {
		return nil, ErrForbidden
	}
	return newDashboard(orders, n, interval, uuid.Nil, true, onRender), nil
}

func newDashboard(orders *store.Orders, n *poll.Notifier, interval time.Duration, branchID uuid.UUID, network bool, onRender func(DashboardData)) *Dashboard {
	v := &Dashboard{
		orders:   orders,
		branchID: branchID,
		network:  network,
		onRender: onRender,
		state:    StateLoading,
	}
	v.sub = n.Subscribe(interval, v.refresh)
	return v
}

func (v *Dashboard) refresh() {
	var filtered []model.Order
	if v.network {
		filtered = v.orders.All()
	} else {
		filtered = v.orders.ByBranch(v.branchID)
	}

	next := DashboardData{
		Orders:  filtered,
		Summary: summarize(filtered),
	}
	if v.network {
		next.ByBranch = make(map[uuid.UUID]Summary)
		perBranch := make(map[uuid.UUID][]model.Order)
		for _, o := range filtered {
			perBranch[o.BranchID] = append(perBranch[o.BranchID], o)
		}
		for id, orders := range perBranch {
			next.ByBranch[id] = summarize(orders)
		}
	}

	v.mu.Lock()
	changed := v.state != StateDisplaying || !ordersEqual(v.data.Orders, next.Orders)
	v.data = next
	v.state = StateDisplaying
	v.mu.Unlock()

	if changed && v.onRender != nil {
		v.onRender(next)
	}
}

// Data returns the last derived dashboard data.
func (v *Dashboard) Data() DashboardData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data
}

// State reports the consumer state.
func (v *Dashboard) State() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateLoading && v.orders.Err() != nil {
		return StateError
	}
	return v.state
}

// Close releases the view's subscription.
func (v *Dashboard) Close() {
	v.sub.Cancel()
	v.mu.Lock()
	v.state = StateIdle
	v.mu.Unlock()
}

func summarize(orders []model.Order) Summary {
	s := Summary{ByStatus: make(map[string]int)}
	cents := decimal.Zero
	for _, o := range orders {
		s.OrderCount++
		s.ByStatus[o.Status]++
		if !enum.IsTerminalOrderStatus(o.Status) {
			s.ActiveCount++
		}
		if o.Status != enum.OrderStatusCanceled {
			cents = cents.Add(decimal.NewFromInt(o.TotalCents))
		}
	}
	s.Revenue = cents.Div(decimal.NewFromInt(100))
	return s
}
