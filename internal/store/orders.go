// Package store holds the client-side state containers: the shared
// order cache and the checkout cart. Stores own their data; consumers
// never reach into the cache directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
	"github.com/plateful/storefront/internal/storage"
)

// Errors returned by the stores.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrEmptyDraft      = errors.New("draft has no items")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrEmptyCart       = errors.New("cart is empty")
)

// OrderAPI defines the remote service methods the order store needs.
// Satisfied by *apiclient.Client; narrow interface for testability.
type OrderAPI interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	CreateOrder(ctx context.Context, draft model.OrderDraft) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status, cancelReason string) error
}

const ordersSchemaVersion = 1

// ordersSnapshot is the persisted shape under the orders-store name.
type ordersSnapshot struct {
	Orders []model.Order `json:"orders"`
}

// Orders is the single shared cache of all orders visible to the current
// actor. The remote service does any role-based filtering; the store
// caches whatever the service returns. All access goes through one
// RWMutex so timer goroutines and callers never race on the cache.
type Orders struct {
	api     OrderAPI
	session *storage.Session // nil disables persistence

	mu      sync.RWMutex
	orders  []model.Order
	loaded  bool
	loading bool
	syncErr error
}

// NewOrders creates the order store, restoring the persisted snapshot so
// a restart renders last-known state before the first refresh completes.
func NewOrders(api OrderAPI, session *storage.Session) *Orders {
	s := &Orders{api: api, session: session}
	if session != nil {
		var snap ordersSnapshot
		ok, err := session.Load(enum.StoreOrders, ordersSchemaVersion, &snap)
		if err != nil {
			log.Printf("ERROR: restore orders snapshot: %v", err)
		} else if ok {
			s.orders = snap.Orders
		}
	}
	return s
}

// Load performs the initial fetch. It fails soft: errors are recorded on
// the store for UI display and never returned. Subsequent calls behave
// like Refresh.
func (s *Orders) Load(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		log.Printf("order store load: %v", err)
	}
}

// Refresh re-fetches the full collection and replaces the cache
// wholesale. A successful refresh makes the cache exactly equal the
// server's collection at fetch time; a failed one leaves the previous
// cache intact and means "no new information", never "empty".
//
// Overlapping refreshes race independently and the last resolver wins,
// so a slow stale response can briefly regress the cache. The poll
// notifier coalesces its own refreshes to avoid this for subscribers.
func (s *Orders) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	orders, err := s.api.ListOrders(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.syncErr = err
		return err
	}
	s.orders = orders
	s.loaded = true
	s.syncErr = nil
	s.persistLocked()
	return nil
}

// Create submits a draft to the service and appends the canonical order
// (with server-assigned id and number) to the cache. On failure the
// error propagates to the checkout flow and the cache is untouched.
func (s *Orders) Create(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
	if len(draft.Items) == 0 {
		return model.Order{}, ErrEmptyDraft
	}
	for i, item := range draft.Items {
		if item.Qty <= 0 {
			return model.Order{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	order, err := s.api.CreateOrder(ctx, draft)
	if err != nil {
		return model.Order{}, err
	}

	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.persistLocked()
	s.mu.Unlock()

	s.announce()
	return order, nil
}

// UpdateStatus applies the new status to the cached order immediately,
// then confirms it with the service. Concurrent readers observe the
// optimistic value while the network call is in flight. If the service
// rejects the transition the cached order reverts to its pre-update
// state and the error is returned.
func (s *Orders) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return s.updateStatus(ctx, id, status, "")
}

// Cancel moves the order to CANCELED with the given reason.
func (s *Orders) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	return s.updateStatus(ctx, id, enum.OrderStatusCanceled, reason)
}

func (s *Orders) updateStatus(ctx context.Context, id uuid.UUID, status, reason string) error {
	if !enum.IsValidOrderStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	idx := s.indexByIDLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrOrderNotFound
	}
	prev := s.orders[idx]

	s.orders[idx].Status = status
	s.orders[idx].UpdatedAt = time.Now()
	s.orders[idx].Canceled = status == enum.OrderStatusCanceled
	if s.orders[idx].Canceled {
		s.orders[idx].CancelReason = reason
	}
	s.persistLocked()
	s.mu.Unlock()

	if err := s.api.UpdateOrderStatus(ctx, id, status, reason); err != nil {
		// Revert to the last confirmed state rather than keeping an
		// optimistic value the server rejected.
		s.mu.Lock()
		if idx := s.indexByIDLocked(id); idx >= 0 {
			s.orders[idx] = prev
			s.persistLocked()
		}
		s.mu.Unlock()
		return err
	}

	s.announce()
	return nil
}

// --- Query helpers: pure, synchronous filters over the cache ---

// All returns a copy of the full cached collection.
func (s *Orders) All() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// ByBranch returns orders fulfilled by the given branch.
func (s *Orders) ByBranch(branchID uuid.UUID) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.BranchID == branchID {
			out = append(out, o)
		}
	}
	return out
}

// ByUserPhone returns orders placed with the given phone number.
func (s *Orders) ByUserPhone(phone string) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.UserPhone == phone {
			out = append(out, o)
		}
	}
	return out
}

// ByID looks up one order by its id.
func (s *Orders) ByID(id uuid.UUID) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexByIDLocked(id); idx >= 0 {
		return s.orders[idx], true
	}
	return model.Order{}, false
}

// ByNumber looks up one order by its human-facing number.
func (s *Orders) ByNumber(n int) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.OrderNumber == n {
			return o, true
		}
	}
	return model.Order{}, false
}

// Err returns the last sync error, nil after a successful refresh.
func (s *Orders) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncErr
}

// Loading reports whether a fetch is in flight.
func (s *Orders) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Loaded reports whether at least one refresh has succeeded.
func (s *Orders) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// --- internals ---

func (s *Orders) indexByIDLocked(id uuid.UUID) int {
	for i, o := range s.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the snapshot; callers hold mu.
func (s *Orders) persistLocked() {
	if s.session == nil {
		return
	}
	snap := ordersSnapshot{Orders: s.orders}
	if err := s.session.Save(enum.StoreOrders, ordersSchemaVersion, snap); err != nil {
		log.Printf("ERROR: persist orders snapshot: %v", err)
	}
}

// announce tells other sessions the order collection changed. Advisory;
// their poll notifiers may use it as a refresh hint.
func (s *Orders) announce() {
	if s.session == nil {
		return
	}
	if err := s.session.Broadcast(enum.EventOrdersChanged, nil); err != nil {
		log.Printf("ERROR: broadcast orders change: %v", err)
	}
}
