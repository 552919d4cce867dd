// Package apiclient talks to the remote order service. The service is a
// black box behind a small REST contract; this client is the only place
// the rest of the codebase performs network I/O.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/model"
)

// APIError is a non-2xx response from the order service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("order service: %d %s", e.StatusCode, e.Message)
}

// Client is a thin HTTP client for the order service.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Token authenticates staff requests; Phone scopes unauthenticated
	// customer requests. At most one is normally set.
	token string
	phone string
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends the staff bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithPhone scopes order listing to a customer phone number.
func WithPhone(phone string) Option {
	return func(c *Client) { c.phone = phone }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ordersEnvelope matches the wrapped list shape. The service may return
// either {"data": [...]} or a bare array; ListOrders accepts both.
type ordersEnvelope struct {
	Data []model.Order `json:"data"`
}

// ListOrders fetches the full order collection visible to this client's
// identity.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	u := c.baseURL + "/orders"
	if c.phone != "" {
		u += "?phone=" + url.QueryEscape(c.phone)
	}
	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var orders []model.Order
		if err := json.Unmarshal(body, &orders); err != nil {
			return nil, fmt.Errorf("decode orders: %w", err)
		}
		return orders, nil
	}
	var env ordersEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return env.Data, nil
}

// CreateOrder submits a draft and returns the canonical order with its
// server-assigned id and order number.
func (c *Client) CreateOrder(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/orders", draft)
	if err != nil {
		return model.Order{}, err
	}
	var order model.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return model.Order{}, fmt.Errorf("decode created order: %w", err)
	}
	return order, nil
}

type updateStatusRequest struct {
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

// UpdateOrderStatus requests a status transition. The response body is
// not relied upon beyond success or failure.
func (c *Client) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status, cancelReason string) error {
	u := c.baseURL + "/orders/" + id.String() + "/status"
	_, err := c.do(ctx, http.MethodPatch, u, updateStatusRequest{
		Status:       status,
		CancelReason: cancelReason,
	})
	return err
}

// ListBranches fetches the branch catalog.
func (c *Client) ListBranches(ctx context.Context) ([]model.Branch, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/branches", nil)
	if err != nil {
		return nil, err
	}
	var branches []model.Branch
	if err := json.Unmarshal(body, &branches); err != nil {
		return nil, fmt.Errorf("decode branches: %w", err)
	}
	return branches, nil
}

// ListDishes fetches the dish catalog, optionally scoped to one branch.
func (c *Client) ListDishes(ctx context.Context, branchID uuid.UUID) ([]model.Dish, error) {
	u := c.baseURL + "/dishes"
	if branchID != uuid.Nil {
		u += "?branch_id=" + branchID.String()
	}
	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var dishes []model.Dish
	if err := json.Unmarshal(body, &dishes); err != nil {
		return nil, fmt.Errorf("decode dishes: %w", err)
	}
	return dishes, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the staff login response.
type LoginResult struct {
	AccessToken string     `json:"access_token"`
	User        model.User `json:"user"`
}

// Login authenticates a staff member and returns their token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/login", loginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return LoginResult{}, err
	}
	var res LoginResult
	if err := json.Unmarshal(body, &res); err != nil {
		return LoginResult{}, fmt.Errorf("decode login response: %w", err)
	}
	return res, nil
}

// do performs a request and returns the response body, mapping non-2xx
// responses to *APIError.
func (c *Client) do(ctx context.Context, method, u string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var em struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &em) == nil && em.Error != "" {
			msg = em.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return data, nil
}
