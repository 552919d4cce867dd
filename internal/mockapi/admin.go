package mockapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
)

// AdminHandler serves owner-only catalog and staff management. Its
// routes sit behind Authenticate and RequireRole(OWNER); the seed tool
// drives them.
type AdminHandler struct {
	store Store
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// RegisterRoutes registers admin endpoints on the given Chi router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/branches", h.CreateBranch)
	r.Post("/dishes", h.CreateDish)
	r.Post("/users", h.CreateUser)
}

// CreateBranch handles POST /admin/branches.
func (h *AdminHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var branch model.Branch
	if err := json.NewDecoder(r.Body).Decode(&branch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if branch.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	created, err := h.store.CreateBranch(r.Context(), branch)
	if err != nil {
		log.Printf("ERROR: create branch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CreateDish handles POST /admin/dishes.
func (h *AdminHandler) CreateDish(w http.ResponseWriter, r *http.Request) {
	var dish model.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if dish.Name == "" || dish.PriceCents <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and a positive price_cents are required"})
		return
	}
	if _, err := h.store.GetBranch(r.Context(), dish.BranchID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown branch"})
		return
	}

	created, err := h.store.CreateDish(r.Context(), dish)
	if err != nil {
		log.Printf("ERROR: create dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type createUserRequest struct {
	model.User
	Password string `json:"password"`
}

// CreateUser handles POST /admin/users. The password is bcrypt-hashed
// before it is stored.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}
	if req.Role != enum.RoleOwner && req.Role != enum.RoleBranchAdmin {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	req.User.HashedPassword = string(hashed)

	created, err := h.store.CreateUser(r.Context(), req.User)
	if err != nil {
		log.Printf("ERROR: create user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
