package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/model"
	"github.com/plateful/storefront/internal/storage"
	"github.com/plateful/storefront/internal/store"
)

func dish(id string, price int64) model.Dish {
	return model.Dish{ID: id, Name: "dish-" + id, PriceCents: price, Available: true}
}

// checkAggregates verifies the cached aggregates against a recomputation
// from the lines.
func checkAggregates(t *testing.T, c *store.Cart) {
	t.Helper()
	var total int64
	count := 0
	for _, line := range c.Lines() {
		total += line.PriceCents * int64(line.Quantity)
		count += line.Quantity
	}
	if got := c.TotalCents(); got != total {
		t.Errorf("TotalCents: got %d, want %d", got, total)
	}
	if got := c.ItemCount(); got != count {
		t.Errorf("ItemCount: got %d, want %d", got, count)
	}
}

func TestCartAggregateInvariants(t *testing.T) {
	c := store.NewCart(nil)

	if err := c.AddItem(dish("1", 120000), 2, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	checkAggregates(t, c)

	if err := c.AddItem(dish("2", 50000), 1, "no onions"); err != nil {
		t.Fatalf("add: %v", err)
	}
	checkAggregates(t, c)

	if got := c.TotalCents(); got != 290000 {
		t.Errorf("total: got %d, want 290000", got)
	}
	if got := c.ItemCount(); got != 3 {
		t.Errorf("count: got %d, want 3", got)
	}

	c.UpdateQuantity("1", 5)
	checkAggregates(t, c)

	c.RemoveItem("2")
	checkAggregates(t, c)

	c.Clear()
	checkAggregates(t, c)
	if c.TotalCents() != 0 || c.ItemCount() != 0 {
		t.Error("aggregates not reset after clear")
	}
}

func TestCartAddMergesByDish(t *testing.T) {
	c := store.NewCart(nil)
	if err := c.AddItem(dish("1", 1000), 1, "mild"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.AddItem(dish("1", 1000), 2, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", lines[0].Quantity)
	}
	// Empty instructions must not overwrite the existing ones.
	if lines[0].SpecialInstructions != "mild" {
		t.Errorf("instructions: got %q, want %q", lines[0].SpecialInstructions, "mild")
	}

	if err := c.AddItem(dish("1", 1000), 1, "spicy"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := c.Lines()[0].SpecialInstructions; got != "spicy" {
		t.Errorf("instructions: got %q, want %q", got, "spicy")
	}
}

func TestCartAddRejectsNonPositiveQuantity(t *testing.T) {
	c := store.NewCart(nil)
	if err := c.AddItem(dish("1", 1000), 0, ""); !errors.Is(err, store.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestUpdateQuantityZeroEqualsRemove(t *testing.T) {
	build := func() *store.Cart {
		c := store.NewCart(nil)
		_ = c.AddItem(dish("1", 1000), 2, "")
		_ = c.AddItem(dish("2", 2000), 1, "")
		return c
	}

	viaUpdate := build()
	viaUpdate.UpdateQuantity("1", 0)

	viaRemove := build()
	viaRemove.RemoveItem("1")

	if !reflect.DeepEqual(viaUpdate.Lines(), viaRemove.Lines()) {
		t.Errorf("lines differ:\nupdate: %+v\nremove: %+v", viaUpdate.Lines(), viaRemove.Lines())
	}
	if viaUpdate.TotalCents() != viaRemove.TotalCents() || viaUpdate.ItemCount() != viaRemove.ItemCount() {
		t.Error("aggregates differ between UpdateQuantity(0) and RemoveItem")
	}
}

func TestCartPersistsAcrossSessions(t *testing.T) {
	backend := storage.NewMemoryBackend()
	sess := storage.Open(backend)

	c := store.NewCart(sess)
	if err := c.AddItem(dish("1", 1500), 2, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	// A reload constructs a fresh cart over the same backend.
	reloaded := store.NewCart(storage.Open(backend))
	if got := reloaded.ItemCount(); got != 2 {
		t.Errorf("restored ItemCount: got %d, want 2", got)
	}
	if got := reloaded.TotalCents(); got != 3000 {
		t.Errorf("restored TotalCents: got %d, want 3000", got)
	}
}

func TestCheckoutClearsCartOnlyOnSuccess(t *testing.T) {
	cart := store.NewCart(nil)
	if err := cart.AddItem(dish("1", 120000), 2, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	branchID := uuid.New()

	// First attempt: service rejects the order; cart must survive.
	failing := store.NewOrders(&mockAPI{
		createFn: func(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
			return model.Order{}, errors.New("service unavailable")
		},
	}, nil)
	if _, err := store.Checkout(context.Background(), failing, cart, branchID, "Ana", "0812"); err == nil {
		t.Fatal("expected checkout failure")
	}
	if cart.ItemCount() != 2 {
		t.Errorf("cart mutated on failed checkout: count %d", cart.ItemCount())
	}

	// Second attempt succeeds; only now is the cart cleared.
	ok := store.NewOrders(&mockAPI{
		createFn: func(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
			if len(draft.Items) != 1 || draft.Items[0].Qty != 2 {
				t.Errorf("draft items: %+v", draft.Items)
			}
			return model.Order{ID: uuid.New(), OrderNumber: 7, BranchID: draft.BranchID,
				UserName: draft.UserName, UserPhone: draft.UserPhone,
				Items: draft.Items, Status: "PENDING", TotalCents: 240000}, nil
		},
	}, nil)
	order, err := store.Checkout(context.Background(), ok, cart, branchID, "Ana", "0812")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if order.TotalCents != 240000 {
		t.Errorf("total: got %d, want 240000", order.TotalCents)
	}
	if cart.ItemCount() != 0 {
		t.Error("cart not cleared after successful checkout")
	}
}
