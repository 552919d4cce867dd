package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/auth"
	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
)

// OrderHandler serves the order endpoints. Listing and creation are
// open to customers (phone-scoped); status transitions beyond a
// customer's own cancel require a staff token.
type OrderHandler struct {
	store     Store
	hub       *Hub
	jwtSecret string
}

// NewOrderHandler creates a new OrderHandler. hub may be nil; events
// are then dropped.
func NewOrderHandler(store Store, hub *Hub, jwtSecret string) *OrderHandler {
	return &OrderHandler{store: store, hub: hub, jwtSecret: jwtSecret}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type orderListResponse struct {
	Data []model.Order `json:"data"`
}

type updateStatusRequest struct {
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason"`
}

// --- Handlers ---

// List handles GET /orders. Staff tokens get role-scoped results; a
// bare request must carry ?phone= and gets that customer's orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := h.optionalClaims(r)

	var (
		orders []model.Order
		err    error
	)
	switch {
	case claims != nil && claims.Role == enum.RoleOwner:
		orders, err = h.store.ListOrders(r.Context())
	case claims != nil:
		orders, err = h.store.ListOrdersByBranch(r.Context(), claims.BranchID)
	default:
		phone := r.URL.Query().Get("phone")
		if phone == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone is required"})
			return
		}
		orders, err = h.store.ListOrdersByPhone(r.Context(), phone)
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderListResponse{Data: orders})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Create handles POST /orders. Prices are looked up server-side and
// snapshotted into the order; totals sent by the client are ignored.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft model.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if draft.UserName == "" || draft.UserPhone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_name and user_phone are required"})
		return
	}
	if len(draft.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	branch, err := h.store.GetBranch(r.Context(), draft.BranchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown branch"})
			return
		}
		log.Printf("ERROR: get branch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !branch.Open {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "branch is closed"})
		return
	}

	var total int64
	items := make([]model.OrderItem, len(draft.Items))
	for i, item := range draft.Items {
		if item.DishID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "dish_id is required")})
			return
		}
		if item.Qty <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "qty must be > 0")})
			return
		}

		dish, err := h.store.GetDish(r.Context(), item.DishID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "unknown dish")})
				return
			}
			log.Printf("ERROR: get dish: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if !dish.Available {
			writeJSON(w, http.StatusConflict, map[string]string{"error": formatItemError(i, "dish is unavailable")})
			return
		}

		items[i] = model.OrderItem{
			DishID:     dish.ID,
			Qty:        item.Qty,
			PriceCents: dish.PriceCents,
			Dish:       dish,
		}
		total += dish.PriceCents * int64(item.Qty)
	}

	order, err := h.store.CreateOrder(r.Context(), model.Order{
		BranchID:   draft.BranchID,
		UserName:   draft.UserName,
		UserPhone:  draft.UserPhone,
		Items:      items,
		Status:     enum.OrderStatusPending,
		TotalCents: total,
	})
	if err != nil {
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToBranch(order.BranchID, EventOrderCreated, order)
	}

	writeJSON(w, http.StatusCreated, order)
}

// UpdateStatus handles PATCH /orders/{id}/status. Staff may request any
// whitelisted transition on orders they can see; an unauthenticated
// caller may only cancel their own order (matched by ?phone=).
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}
	if !enum.IsValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	current, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	claims := h.optionalClaims(r)
	switch {
	case claims == nil:
		// Customers may only cancel, and only their own order.
		if req.Status != enum.OrderStatusCanceled {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		if r.URL.Query().Get("phone") != current.UserPhone {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your order"})
			return
		}
	case claims.Role != enum.RoleOwner && claims.BranchID != current.BranchID:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied for this branch"})
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), id, current.Status, req.Status, req.CancelReason)
	if err != nil {
		if errors.Is(err, ErrStatusChanged) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToBranch(updated.BranchID, EventOrderStatusChanged, updated)
	}

	writeJSON(w, http.StatusOK, updated)
}

// --- Helpers ---

// optionalClaims parses the bearer token when one is present. Invalid
// tokens are treated as absent; the phone-scoped path still applies.
func (h *OrderHandler) optionalClaims(r *http.Request) *auth.Claims {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}
	claims, err := auth.ValidateToken(h.jwtSecret, parts[1])
	if err != nil {
		return nil
	}
	return claims
}

func formatItemError(idx int, msg string) string {
	return fmt.Sprintf("items[%d]: %s", idx, msg)
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can move to.
// CANCELED is reachable from every non-terminal status.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:        {enum.OrderStatusAccepted, enum.OrderStatusCanceled},
	enum.OrderStatusAccepted:       {enum.OrderStatusPreparing, enum.OrderStatusCanceled},
	enum.OrderStatusPreparing:      {enum.OrderStatusReady, enum.OrderStatusCanceled},
	enum.OrderStatusReady:          {enum.OrderStatusOutForDelivery, enum.OrderStatusCanceled},
	enum.OrderStatusOutForDelivery: {enum.OrderStatusCompleted, enum.OrderStatusCanceled},
}

// validateStatusTransition checks if the transition from current to
// next is allowed.
func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
