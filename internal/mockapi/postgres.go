package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
)

// PostgresStore persists orders and the catalog in Postgres. Selected
// over MemoryStore when DATABASE_URL is set. Order items are stored as
// a jsonb column; the storefront never queries into individual items.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, runs migrations, and returns the store.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS branches (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			open BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS dishes (
			id TEXT PRIMARY KEY,
			branch_id UUID NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			available BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			branch_id UUID NOT NULL,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			hashed_password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			order_number INT NOT NULL,
			branch_id UUID NOT NULL,
			user_name TEXT NOT NULL,
			user_phone TEXT NOT NULL,
			items JSONB NOT NULL,
			status TEXT NOT NULL,
			total_cents BIGINT NOT NULL,
			canceled BOOLEAN NOT NULL DEFAULT FALSE,
			cancel_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (branch_id, order_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_phone ON orders (user_phone)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_branch ON orders (branch_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const orderColumns = `id, order_number, branch_id, user_name, user_phone, items,
	status, total_cents, canceled, cancel_reason, created_at, updated_at`

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	var items []byte
	err := row.Scan(&o.ID, &o.OrderNumber, &o.BranchID, &o.UserName, &o.UserPhone,
		&items, &o.Status, &o.TotalCents, &o.Canceled, &o.CancelReason,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) listOrders(ctx context.Context, where string, args ...any) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders ` + where + ` ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.listOrders(ctx, "")
}

func (s *PostgresStore) ListOrdersByBranch(ctx context.Context, branchID uuid.UUID) ([]model.Order, error) {
	return s.listOrders(ctx, "WHERE branch_id = $1", branchID)
}

func (s *PostgresStore) ListOrdersByPhone(ctx context.Context, phone string) ([]model.Order, error) {
	return s.listOrders(ctx, "WHERE user_phone = $1", phone)
}

func (s *PostgresStore) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	return o, err
}

func (s *PostgresStore) CreateOrder(ctx context.Context, order model.Order) (model.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Order{}, err
	}
	defer tx.Rollback(ctx)

	// Per-branch sequential numbering under the transaction.
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_number), 0) + 1 FROM orders WHERE branch_id = $1`,
		order.BranchID).Scan(&order.OrderNumber)
	if err != nil {
		return model.Order{}, err
	}

	now := time.Now().UTC()
	order.ID = uuid.New()
	order.CreatedAt = now
	order.UpdatedAt = now

	items, err := json.Marshal(order.Items)
	if err != nil {
		return model.Order{}, fmt.Errorf("encode order items: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.ID, order.OrderNumber, order.BranchID, order.UserName, order.UserPhone,
		items, order.Status, order.TotalCents, order.Canceled, order.CancelReason,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, prev, next, cancelReason string) (model.Order, error) {
	canceled := next == enum.OrderStatusCanceled
	row := s.pool.QueryRow(ctx,
		`UPDATE orders
		 SET status = $3, canceled = $4,
		     cancel_reason = CASE WHEN $5 <> '' THEN $5 ELSE cancel_reason END,
		     updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+orderColumns,
		id, prev, next, canceled, cancelReason)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing order from a lost race.
		if _, getErr := s.GetOrder(ctx, id); getErr != nil {
			return model.Order{}, getErr
		}
		return model.Order{}, ErrStatusChanged
	}
	return o, err
}

func (s *PostgresStore) ListBranches(ctx context.Context) ([]model.Branch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, address, phone, open FROM branches ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Branch, 0)
	for rows.Next() {
		var b model.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.Open); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetBranch(ctx context.Context, id uuid.UUID) (model.Branch, error) {
	var b model.Branch
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, address, phone, open FROM branches WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.Open)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Branch{}, ErrNotFound
	}
	return b, err
}

func (s *PostgresStore) ListDishes(ctx context.Context, branchID uuid.UUID) ([]model.Dish, error) {
	q := `SELECT id, branch_id, name, description, price_cents, image_url, available FROM dishes`
	args := []any{}
	if branchID != uuid.Nil {
		q += ` WHERE branch_id = $1`
		args = append(args, branchID)
	}
	q += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Dish, 0)
	for rows.Next() {
		var d model.Dish
		if err := rows.Scan(&d.ID, &d.BranchID, &d.Name, &d.Description, &d.PriceCents, &d.ImageURL, &d.Available); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetDish(ctx context.Context, id string) (model.Dish, error) {
	var d model.Dish
	err := s.pool.QueryRow(ctx,
		`SELECT id, branch_id, name, description, price_cents, image_url, available FROM dishes WHERE id = $1`, id).
		Scan(&d.ID, &d.BranchID, &d.Name, &d.Description, &d.PriceCents, &d.ImageURL, &d.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Dish{}, ErrNotFound
	}
	return d, err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, branch_id, full_name, email, role, hashed_password FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.BranchID, &u.FullName, &u.Email, &u.Role, &u.HashedPassword)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) CreateBranch(ctx context.Context, b model.Branch) (model.Branch, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO branches (id, name, address, phone, open) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, address = $3, phone = $4, open = $5`,
		b.ID, b.Name, b.Address, b.Phone, b.Open)
	return b, err
}

func (s *PostgresStore) CreateDish(ctx context.Context, d model.Dish) (model.Dish, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dishes (id, branch_id, name, description, price_cents, image_url, available)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET name = $3, description = $4, price_cents = $5, image_url = $6, available = $7`,
		d.ID, d.BranchID, d.Name, d.Description, d.PriceCents, d.ImageURL, d.Available)
	return d, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, branch_id, full_name, email, role, hashed_password)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO UPDATE SET branch_id = $2, full_name = $3, role = $5, hashed_password = $6`,
		u.ID, u.BranchID, u.FullName, u.Email, u.Role, u.HashedPassword)
	return u, err
}
