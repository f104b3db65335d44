package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jumokuso/crmaudit/internal/auth"
	"github.com/jumokuso/crmaudit/internal/domain"
	"github.com/jumokuso/crmaudit/internal/store"
)

// Handler exposes record CRUD as HTTP endpoints. The actor comes from the
// request context; a request without one still mutates but writes no history,
// which is the documented opt-out.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with HTTP endpoints.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the endpoints on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/records", h.handleRecords)
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodPut:
		h.handleUpdate(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(strings.TrimSpace(r.URL.Query().Get("entityType")))
	entityID := strings.TrimSpace(r.URL.Query().Get("entityId"))
	if entityID == "" {
		http.Error(w, "entityId is required", http.StatusBadRequest)
		return
	}

	doc, err := h.service.Get(r.Context(), entityType, entityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityType domain.EntityType `json:"entityType"`
		Data       domain.Snapshot   `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	actor, _ := auth.ActorFromContext(r.Context())
	id, err := h.service.Create(r.Context(), req.EntityType, req.Data, actor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityType domain.EntityType `json:"entityType"`
		EntityID   string            `json:"entityId"`
		Data       domain.Snapshot   `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	actor, _ := auth.ActorFromContext(r.Context())
	if err := h.service.Update(r.Context(), req.EntityType, req.EntityID, req.Data, actor); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(strings.TrimSpace(r.URL.Query().Get("entityType")))
	entityID := strings.TrimSpace(r.URL.Query().Get("entityId"))
	if entityID == "" {
		http.Error(w, "entityId is required", http.StatusBadRequest)
		return
	}

	actor, _ := auth.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), entityType, entityID, actor); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
