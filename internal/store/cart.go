package store

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
	"github.com/plateful/storefront/internal/storage"
)

const cartSchemaVersion = 1

// cartSnapshot is the persisted shape under the cart-storage name.
type cartSnapshot struct {
	Lines []model.CartLine `json:"lines"`
}

// Cart accumulates a customer's pending selections before checkout. It
// is independent of the order store and of any identity: no login is
// required to build a cart. TotalCents and ItemCount are cached derived
// fields, recomputed synchronously after every mutation.
type Cart struct {
	session *storage.Session // nil disables persistence

	mu         sync.Mutex
	lines      []model.CartLine
	totalCents int64
	itemCount  int
}

// NewCart creates the cart store, restoring any persisted lines so a
// closed tab does not lose the cart.
func NewCart(session *storage.Session) *Cart {
	c := &Cart{session: session}
	if session != nil {
		var snap cartSnapshot
		ok, err := session.Load(enum.StoreCart, cartSchemaVersion, &snap)
		if err != nil {
			log.Printf("ERROR: restore cart snapshot: %v", err)
		} else if ok {
			c.lines = snap.Lines
			c.recomputeLocked()
		}
	}
	return c
}

// AddItem merges the dish into an existing line when present (summing
// quantity, overwriting instructions if new ones are given), otherwise
// appends a new line with the dish's current price snapshotted.
func (c *Cart) AddItem(dish model.Dish, qty int, instructions string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].DishID == dish.ID {
			c.lines[i].Quantity += qty
			if instructions != "" {
				c.lines[i].SpecialInstructions = instructions
			}
			c.recomputeLocked()
			c.persistLocked()
			return nil
		}
	}

	c.lines = append(c.lines, model.CartLine{
		DishID:              dish.ID,
		Quantity:            qty,
		PriceCents:          dish.PriceCents,
		Dish:                dish,
		SpecialInstructions: instructions,
	})
	c.recomputeLocked()
	c.persistLocked()
	return nil
}

// RemoveItem drops the line for the given dish, if any.
func (c *Cart) RemoveItem(dishID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(dishID)
	c.recomputeLocked()
	c.persistLocked()
}

// UpdateQuantity sets the line's quantity. A quantity of zero or less is
// defined as equivalent to RemoveItem.
func (c *Cart) UpdateQuantity(dishID string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if qty <= 0 {
		c.removeLocked(dishID)
	} else {
		for i := range c.lines {
			if c.lines[i].DishID == dishID {
				c.lines[i].Quantity = qty
				break
			}
		}
	}
	c.recomputeLocked()
	c.persistLocked()
}

// Clear empties the cart and resets the aggregates. The checkout flow
// calls this explicitly after a successful order creation; order
// creation itself never touches the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.recomputeLocked()
	c.persistLocked()
}

// Lines returns a copy of the current cart lines.
func (c *Cart) Lines() []model.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalCents returns the cached total.
func (c *Cart) TotalCents() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCents
}

// ItemCount returns the cached summed quantity.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemCount
}

// Draft turns the cart into order-creation input. The cart itself is not
// modified; it is cleared by the checkout flow only after the order is
// accepted.
func (c *Cart) Draft(branchID uuid.UUID, userName, userPhone string) (model.OrderDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return model.OrderDraft{}, ErrEmptyCart
	}
	items := make([]model.OrderItem, len(c.lines))
	for i, line := range c.lines {
		items[i] = model.OrderItem{
			DishID:     line.DishID,
			Qty:        line.Quantity,
			PriceCents: line.PriceCents,
			Dish:       line.Dish,
		}
	}
	return model.OrderDraft{
		BranchID:  branchID,
		UserName:  userName,
		UserPhone: userPhone,
		Items:     items,
	}, nil
}

// Checkout is the checkout flow: build the draft, create the order, and
// clear the cart once the service accepted it. On failure the cart is
// left as-is so the customer can retry.
func Checkout(ctx context.Context, orders *Orders, cart *Cart, branchID uuid.UUID, userName, userPhone string) (model.Order, error) {
	draft, err := cart.Draft(branchID, userName, userPhone)
	if err != nil {
		return model.Order{}, err
	}
	order, err := orders.Create(ctx, draft)
	if err != nil {
		return model.Order{}, err
	}
	cart.Clear()
	return order, nil
}

// --- internals ---

func (c *Cart) removeLocked(dishID string) {
	for i := range c.lines {
		if c.lines[i].DishID == dishID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// recomputeLocked maintains the aggregate invariants:
// totalCents == Σ(priceCents_i * qty_i), itemCount == Σ(qty_i).
func (c *Cart) recomputeLocked() {
	var total int64
	count := 0
	for _, line := range c.lines {
		total += line.PriceCents * int64(line.Quantity)
		count += line.Quantity
	}
	c.totalCents = total
	c.itemCount = count
}

func (c *Cart) persistLocked() {
	if c.session == nil {
		return
	}
	if err := c.session.Save(enum.StoreCart, cartSchemaVersion, cartSnapshot{Lines: c.lines}); err != nil {
		log.Printf("ERROR: persist cart snapshot: %v", err)
	}
}
