package mockapi

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CatalogHandler serves the read-only branch and dish catalogs.
type CatalogHandler struct {
	store Store
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store Store) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/branches", h.ListBranches)
	r.Get("/dishes", h.ListDishes)
}

// ListBranches handles GET /branches.
func (h *CatalogHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.store.ListBranches(r.Context())
	if err != nil {
		log.Printf("ERROR: list branches: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

// ListDishes handles GET /dishes, optionally filtered by ?branch_id=.
func (h *CatalogHandler) ListDishes(w http.ResponseWriter, r *http.Request) {
	branchID := uuid.Nil
	if s := r.URL.Query().Get("branch_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch_id"})
			return
		}
		branchID = id
	}

	dishes, err := h.store.ListDishes(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: list dishes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}
