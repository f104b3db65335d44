package history

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jumokuso/crmaudit/internal/auth"
	"github.com/jumokuso/crmaudit/internal/domain"
)

// Handler exposes the history reader and the rollback engine over HTTP.
type Handler struct {
	reader *Reader
	engine *Engine
}

// NewHTTPHandler wraps the reader and engine with HTTP endpoints.
func NewHTTPHandler(reader *Reader, engine *Engine) *Handler {
	return &Handler{reader: reader, engine: engine}
}

// Register mounts the endpoints on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/rollback", h.handleRollback)
	mux.HandleFunc("/restore", h.handleRestore)
	mux.HandleFunc("/history", h.handleHistory)
	mux.HandleFunc("/audit/search", h.handleAuditSearch)
}

func (h *Handler) handleRollback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req RollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result := h.engine.RollbackToVersion(r.Context(), req, *actor)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req struct {
		EntityType domain.EntityType `json:"entityType"`
		EntityID   string            `json:"entityId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result := h.engine.RestoreDeleted(r.Context(), req.EntityType, req.EntityID, *actor)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entityType := domain.EntityType(strings.TrimSpace(r.URL.Query().Get("entityType")))
	entityID := strings.TrimSpace(r.URL.Query().Get("entityId"))
	if !entityType.Valid() || entityID == "" {
		http.Error(w, "entityType and entityId are required", http.StatusBadRequest)
		return
	}

	query := HistoryQuery{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid limit: %v", err), http.StatusBadRequest)
			return
		}
		query.Limit = limit
	}
	if raw := r.URL.Query().Get("startAfterVersion"); raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid startAfterVersion: %v", err), http.StatusBadRequest)
			return
		}
		query.StartAfterVersion = version
	}
	if raw := r.URL.Query().Get("operation"); raw != "" {
		operation := domain.Operation(raw)
		if !operation.Valid() {
			http.Error(w, fmt.Sprintf("unknown operation %q", raw), http.StatusBadRequest)
			return
		}
		query.Operation = operation
	}

	entries, err := h.reader.GetHistory(r.Context(), entityType, entityID, query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleAuditSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := ParseAuditFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.reader.SearchAuditLogs(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ParseAuditFilter builds an audit search filter from URL query values. The
// export endpoint reuses it so both surfaces accept the same parameters.
func ParseAuditFilter(values map[string][]string) (domain.AuditLogFilter, error) {
	get := func(key string) string {
		if list, ok := values[key]; ok && len(list) > 0 {
			return strings.TrimSpace(list[0])
		}
		return ""
	}

	filter := domain.AuditLogFilter{}
	if raw := get("entityType"); raw != "" {
		entityType := domain.EntityType(raw)
		if !entityType.Valid() {
			return domain.AuditLogFilter{}, fmt.Errorf("unknown entity type %q", raw)
		}
		filter.EntityType = &entityType
	}
	if raw := get("entityId"); raw != "" {
		filter.EntityID = &raw
	}
	if raw := get("operation"); raw != "" {
		operation := domain.Operation(raw)
		if !operation.Valid() {
			return domain.AuditLogFilter{}, fmt.Errorf("unknown operation %q", raw)
		}
		filter.Operation = &operation
	}
	if raw := get("changedByEmail"); raw != "" {
		filter.ChangedByEmail = &raw
	}
	if raw := get("startDate"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.AuditLogFilter{}, fmt.Errorf("invalid startDate: %w", err)
		}
		filter.StartDate = &start
	}
	if raw := get("endDate"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.AuditLogFilter{}, fmt.Errorf("invalid endDate: %w", err)
		}
		filter.EndDate = &end
	}
	if raw := get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return domain.AuditLogFilter{}, fmt.Errorf("invalid limit: %w", err)
		}
		filter.Limit = limit
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
