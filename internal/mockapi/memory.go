package mockapi

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
)

// MemoryStore keeps everything in process memory. It is the default
// backend and the one the handler tests run against.
type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[uuid.UUID]model.Order
	branches map[uuid.UUID]model.Branch
	dishes   map[string]model.Dish
	users    map[uuid.UUID]model.User

	// Next order number per branch.
	numbers map[uuid.UUID]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[uuid.UUID]model.Order),
		branches: make(map[uuid.UUID]model.Branch),
		dishes:   make(map[string]model.Dish),
		users:    make(map[uuid.UUID]model.User),
		numbers:  make(map[uuid.UUID]int),
	}
}

func (s *MemoryStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(model.Order) bool { return true }), nil
}

func (s *MemoryStore) ListOrdersByBranch(ctx context.Context, branchID uuid.UUID) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(o model.Order) bool { return o.BranchID == branchID }), nil
}

func (s *MemoryStore) ListOrdersByPhone(ctx context.Context, phone string) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(o model.Order) bool { return o.UserPhone == phone }), nil
}

// collect returns matching orders sorted newest first. Callers hold the
// read lock.
func (s *MemoryStore) collect(match func(model.Order) bool) []model.Order {
	out := make([]model.Order, 0)
	for _, o := range s.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order model.Order) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	order.ID = uuid.New()
	s.numbers[order.BranchID]++
	order.OrderNumber = s.numbers[order.BranchID]
	order.CreatedAt = now
	order.UpdatedAt = now

	s.orders[order.ID] = order
	return order, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, prev, next, cancelReason string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	if o.Status != prev {
		return model.Order{}, ErrStatusChanged
	}

	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	if cancelReason != "" {
		o.CancelReason = cancelReason
	}
	o.Canceled = next == enum.OrderStatusCanceled

	s.orders[id] = o
	return o, nil
}

func (s *MemoryStore) ListBranches(ctx context.Context) ([]model.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetBranch(ctx context.Context, id uuid.UUID) (model.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[id]
	if !ok {
		return model.Branch{}, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) ListDishes(ctx context.Context, branchID uuid.UUID) ([]model.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Dish, 0)
	for _, d := range s.dishes {
		if branchID == uuid.Nil || d.BranchID == branchID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetDish(ctx context.Context, id string) (model.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dishes[id]
	if !ok {
		return model.Dish{}, ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (s *MemoryStore) CreateBranch(ctx context.Context, b model.Branch) (model.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	s.branches[b.ID] = b
	return b, nil
}

func (s *MemoryStore) CreateDish(ctx context.Context, d model.Dish) (model.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	s.dishes[d.ID] = d
	return d, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = u
	return u, nil
}
