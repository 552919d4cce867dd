// Package mockapi is a self-contained stand-in for the remote order
// service. It serves the same REST contract the apiclient speaks, backed
// by either an in-memory store or Postgres.
package mockapi

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStatusChanged is returned by UpdateOrderStatus when the order's
	// status no longer matches the expected current status. The caller
	// read a stale order and should retry.
	ErrStatusChanged = errors.New("order status changed")
)

// Store is the persistence surface the handlers need.
// Satisfied by *MemoryStore and *PostgresStore.
type Store interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListOrdersByBranch(ctx context.Context, branchID uuid.UUID) ([]model.Order, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error)

	// CreateOrder persists a fully built order, assigning its ID and a
	// per-branch sequential order number.
	CreateOrder(ctx context.Context, order model.Order) (model.Order, error)

	// UpdateOrderStatus transitions an order from prev to next atomically.
	// Returns ErrStatusChanged if the current status is no longer prev.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, prev, next, cancelReason string) (model.Order, error)

	ListBranches(ctx context.Context) ([]model.Branch, error)
	GetBranch(ctx context.Context, id uuid.UUID) (model.Branch, error)
	ListDishes(ctx context.Context, branchID uuid.UUID) ([]model.Dish, error)
	GetDish(ctx context.Context, id string) (model.Dish, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	// Seeding.
	CreateBranch(ctx context.Context, b model.Branch) (model.Branch, error)
	CreateDish(ctx context.Context, d model.Dish) (model.Dish, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)
}
