package store_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
	"github.com/plateful/storefront/internal/storage"
	"github.com/plateful/storefront/internal/store"
)

// mockAPI implements store.OrderAPI with configurable behavior.
type mockAPI struct {
	listFn   func(ctx context.Context) ([]model.Order, error)
	createFn func(ctx context.Context, draft model.OrderDraft) (model.Order, error)
	updateFn func(ctx context.Context, id uuid.UUID, status, cancelReason string) error
}

func (m *mockAPI) ListOrders(ctx context.Context) ([]model.Order, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Order{}, nil
}

func (m *mockAPI) CreateOrder(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
	if m.createFn != nil {
		return m.createFn(ctx, draft)
	}
	return model.Order{}, errors.New("not implemented")
}

func (m *mockAPI) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status, cancelReason string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, status, cancelReason)
	}
	return nil
}

func order(phone string, branchID uuid.UUID, n int) model.Order {
	return model.Order{
		ID:          uuid.New(),
		OrderNumber: n,
		BranchID:    branchID,
		UserName:    "Customer",
		UserPhone:   phone,
		Status:      enum.OrderStatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestRefreshReplacesCacheWholesale(t *testing.T) {
	branch := uuid.New()
	first := []model.Order{order("0811", branch, 1), order("0812", branch, 2)}
	second := []model.Order{order("0813", branch, 3)}

	calls := 0
	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			calls++
			if calls == 1 {
				return first, nil
			}
			return second, nil
		},
	}, nil)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := s.All(); !reflect.DeepEqual(got, first) {
		t.Errorf("cache after first refresh: %+v", got)
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got := s.All()
	if len(got) != 1 || got[0].OrderNumber != 3 {
		t.Errorf("cache not replaced wholesale: %+v", got)
	}
}

func TestRefreshFailureLeavesCacheIntact(t *testing.T) {
	branch := uuid.New()
	good := []model.Order{order("0811", branch, 1)}

	calls := 0
	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			calls++
			if calls == 1 {
				return good, nil
			}
			return nil, errors.New("network down")
		},
	}, nil)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	if got := s.All(); len(got) != 1 {
		t.Errorf("failed refresh must mean no new information, cache: %+v", got)
	}
	if s.Err() == nil {
		t.Error("error flag not recorded")
	}

	// A later successful refresh clears the flag.
	calls = 0
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if s.Err() != nil {
		t.Errorf("error flag not cleared: %v", s.Err())
	}
}

func TestLoadFailsSoft(t *testing.T) {
	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			return nil, errors.New("boom")
		},
	}, nil)

	s.Load(context.Background()) // must not panic or propagate
	if s.Err() == nil {
		t.Error("load error not recorded on store")
	}
	if s.Loaded() {
		t.Error("store should not report loaded after failed load")
	}
}

// TestOverlappingRefreshLastResolverWins pins the documented race: two
// overlapping fetches resolve out of order and the later resolution
// overwrites the cache, even though it carries the older snapshot.
func TestOverlappingRefreshLastResolverWins(t *testing.T) {
	branch := uuid.New()
	stale := []model.Order{order("0811", branch, 1)}
	fresh := []model.Order{order("0811", branch, 1), order("0811", branch, 2)}

	release := make(chan struct{})
	calls := make(chan int, 2)
	n := 0
	var mu sync.Mutex

	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			mu.Lock()
			n++
			call := n
			mu.Unlock()
			calls <- call
			if call == 1 {
				// First-issued fetch resolves last, with stale data.
				<-release
				return stale, nil
			}
			return fresh, nil
		},
	}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Refresh(context.Background())
	}()
	<-calls // first fetch is in flight

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	<-calls
	if got := s.All(); len(got) != 2 {
		t.Fatalf("fresh snapshot should be applied first, got %d orders", len(got))
	}

	close(release)
	wg.Wait()

	if got := s.All(); len(got) != 1 {
		t.Errorf("later resolver must win even when stale, got %d orders", len(got))
	}
}

func TestCreateAppendsWithoutFullRefresh(t *testing.T) {
	branch := uuid.New()
	listCalls := 0
	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			listCalls++
			return []model.Order{}, nil
		},
		createFn: func(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
			return model.Order{ID: uuid.New(), OrderNumber: 41, BranchID: draft.BranchID,
				UserPhone: draft.UserPhone, Items: draft.Items,
				Status: enum.OrderStatusPending, TotalCents: 240000}, nil
		},
	}, nil)

	_ = s.Refresh(context.Background())

	created, err := s.Create(context.Background(), model.OrderDraft{
		BranchID:  branch,
		UserName:  "Ana",
		UserPhone: "0812",
		Items:     []model.OrderItem{{DishID: "1", Qty: 2, PriceCents: 120000}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TotalCents != 240000 {
		t.Errorf("total: got %d, want 240000", created.TotalCents)
	}
	if listCalls != 1 {
		t.Errorf("create must append optimistically, not re-fetch; list calls = %d", listCalls)
	}
	if _, ok := s.ByID(created.ID); !ok {
		t.Error("created order not in cache")
	}
}

func TestCreateValidatesDraft(t *testing.T) {
	s := store.NewOrders(&mockAPI{}, nil)

	if _, err := s.Create(context.Background(), model.OrderDraft{}); !errors.Is(err, store.ErrEmptyDraft) {
		t.Errorf("empty draft: got %v", err)
	}
	_, err := s.Create(context.Background(), model.OrderDraft{
		Items: []model.OrderItem{{DishID: "1", Qty: 0, PriceCents: 100}},
	})
	if !errors.Is(err, store.ErrInvalidQuantity) {
		t.Errorf("zero qty: got %v", err)
	}
}

func TestCreateFailureLeavesCacheUntouched(t *testing.T) {
	s := store.NewOrders(&mockAPI{
		createFn: func(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
			return model.Order{}, errors.New("rejected")
		},
	}, nil)

	_, err := s.Create(context.Background(), model.OrderDraft{
		Items: []model.OrderItem{{DishID: "1", Qty: 1, PriceCents: 100}},
	})
	if err == nil {
		t.Fatal("expected create error")
	}
	if got := s.All(); len(got) != 0 {
		t.Errorf("cache mutated on failed create: %+v", got)
	}
}

// TestUpdateStatusOptimistic delays the mocked network response and
// asserts the cache already shows the new status while the call is
// still in flight.
func TestUpdateStatusOptimistic(t *testing.T) {
	branch := uuid.New()
	o := order("0812", branch, 9)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			return []model.Order{o}, nil
		},
		updateFn: func(ctx context.Context, id uuid.UUID, status, reason string) error {
			close(inFlight)
			<-release
			return nil
		},
	}, nil)
	_ = s.Refresh(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.UpdateStatus(context.Background(), o.ID, enum.OrderStatusPreparing)
	}()

	<-inFlight
	got, ok := s.ByID(o.ID)
	if !ok {
		t.Fatal("order missing")
	}
	if got.Status != enum.OrderStatusPreparing {
		t.Errorf("optimistic status: got %q, want PREPARING", got.Status)
	}
	if !got.UpdatedAt.After(o.UpdatedAt) {
		t.Error("UpdatedAt not refreshed on transition")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestUpdateStatusRevertsOnServerRejection(t *testing.T) {
	branch := uuid.New()
	o := order("0812", branch, 9)

	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			return []model.Order{o}, nil
		},
		updateFn: func(ctx context.Context, id uuid.UUID, status, reason string) error {
			return errors.New("illegal transition")
		},
	}, nil)
	_ = s.Refresh(context.Background())

	err := s.UpdateStatus(context.Background(), o.ID, enum.OrderStatusCompleted)
	if err == nil {
		t.Fatal("expected rejection")
	}
	got, _ := s.ByID(o.ID)
	if got.Status != enum.OrderStatusPending {
		t.Errorf("status not reverted to last confirmed: %q", got.Status)
	}
}

func TestCancelMirrorsDenormalizedFields(t *testing.T) {
	branch := uuid.New()
	o := order("0812", branch, 9)

	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			return []model.Order{o}, nil
		},
	}, nil)
	_ = s.Refresh(context.Background())

	if err := s.Cancel(context.Background(), o.ID, "out of stock"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := s.ByID(o.ID)
	if got.Status != enum.OrderStatusCanceled || !got.Canceled || got.CancelReason != "out of stock" {
		t.Errorf("cancel mirror fields: %+v", got)
	}
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	s := store.NewOrders(&mockAPI{}, nil)
	err := s.UpdateStatus(context.Background(), uuid.New(), enum.OrderStatusReady)
	if !errors.Is(err, store.ErrOrderNotFound) {
		t.Errorf("got %v, want ErrOrderNotFound", err)
	}
}

func TestQueryHelpersArePure(t *testing.T) {
	branchA := uuid.New()
	branchB := uuid.New()
	orders := []model.Order{
		order("0811", branchA, 1),
		order("0812", branchA, 2),
		order("0811", branchB, 3),
	}
	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) { return orders, nil },
	}, nil)
	_ = s.Refresh(context.Background())

	first := s.ByUserPhone("0811")
	second := s.ByUserPhone("0811")
	if !reflect.DeepEqual(first, second) {
		t.Error("ByUserPhone not stable across calls without mutation")
	}
	if len(first) != 2 {
		t.Errorf("phone filter: got %d, want 2", len(first))
	}

	if got := s.ByBranch(branchA); len(got) != 2 {
		t.Errorf("branch filter: got %d, want 2", len(got))
	}
	if got, ok := s.ByNumber(3); !ok || got.BranchID != branchB {
		t.Errorf("ByNumber: %+v ok=%v", got, ok)
	}

	// Mutating a returned slice must not corrupt the cache.
	first[0].Status = "TAMPERED"
	if got, _ := s.ByID(orders[0].ID); got.Status == "TAMPERED" {
		t.Error("query result aliases the cache")
	}
}

func TestSnapshotRestoreOnColdStart(t *testing.T) {
	backend := storage.NewMemoryBackend()
	branch := uuid.New()
	orders := []model.Order{order("0811", branch, 1)}

	s := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) { return orders, nil },
	}, storage.Open(backend))
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Restart: the new store renders last-known state before any fetch.
	reborn := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			return nil, errors.New("offline")
		},
	}, storage.Open(backend))
	if got := reborn.All(); len(got) != 1 || got[0].OrderNumber != 1 {
		t.Errorf("cold-start restore: %+v", got)
	}
}

// TestTwoSessionsLastWriterWins reproduces the documented shared-storage
// race: session A persists an older snapshot after session B persisted a
// newer one, and A's write is what survives.
func TestTwoSessionsLastWriterWins(t *testing.T) {
	backend := storage.NewMemoryBackend()
	branch := uuid.New()
	older := []model.Order{order("0811", branch, 1)}
	newer := []model.Order{order("0811", branch, 1), order("0811", branch, 2)}

	tabA := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) { return older, nil },
	}, storage.Open(backend))
	tabB := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) { return newer, nil },
	}, storage.Open(backend))

	if err := tabB.Refresh(context.Background()); err != nil {
		t.Fatalf("tab B refresh: %v", err)
	}
	if err := tabA.Refresh(context.Background()); err != nil {
		t.Fatalf("tab A refresh: %v", err)
	}

	// A fresh session reads whatever was persisted last: tab A's older view.
	observer := store.NewOrders(&mockAPI{
		listFn: func(ctx context.Context) ([]model.Order, error) {
			return nil, errors.New("offline")
		},
	}, storage.Open(backend))
	if got := observer.All(); len(got) != 1 {
		t.Errorf("last writer should win in shared storage, got %d orders", len(got))
	}
}
