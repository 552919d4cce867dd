package model

import (
	"time"

	"github.com/google/uuid"
)

// Dish is a menu entry. Read-only from the storefront's point of view;
// its price is snapshotted into cart lines and order items at add time.
type Dish struct {
	ID          string    `json:"id"`
	BranchID    uuid.UUID `json:"branch_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    string    `json:"image_url,omitempty"`
	Available   bool      `json:"available"`
}

// Branch is a fulfilling location.
type Branch struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Phone   string    `json:"phone,omitempty"`
	Open    bool      `json:"open"`
}

// User is a staff account. Customers have no accounts; they are
// correlated to their orders by phone number only.
type User struct {
	ID             uuid.UUID `json:"id"`
	BranchID       uuid.UUID `json:"branch_id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	HashedPassword string    `json:"-"`
}

// OrderItem is one priced line of a finalized order. PriceCents is the
// price captured at order time; it is never recomputed from the catalog.
type OrderItem struct {
	DishID     string `json:"dish_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
	Dish       Dish   `json:"dish"`
}

// Order is the central entity. ID and OrderNumber are assigned by the
// order service at creation and never change afterwards.
type Order struct {
	ID           uuid.UUID   `json:"id"`
	OrderNumber  int         `json:"order_number"`
	BranchID     uuid.UUID   `json:"branch_id"`
	UserName     string      `json:"user_name"`
	UserPhone    string      `json:"user_phone"`
	Items        []OrderItem `json:"items"`
	Status       string      `json:"status"`
	TotalCents   int64       `json:"total_cents"`
	Canceled     bool        `json:"canceled"`
	CancelReason string      `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// OrderDraft is the order-creation input built from a cart at checkout.
type OrderDraft struct {
	BranchID  uuid.UUID   `json:"branch_id"`
	UserName  string      `json:"user_name"`
	UserPhone string      `json:"user_phone"`
	Items     []OrderItem `json:"items"`
}

// CartLine is a pre-checkout selection. Local only; never sent to the
// server until checkout turns it into an OrderItem.
type CartLine struct {
	DishID              string `json:"dish_id"`
	Quantity            int    `json:"quantity"`
	PriceCents          int64  `json:"price_cents"`
	Dish                Dish   `json:"dish"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}
