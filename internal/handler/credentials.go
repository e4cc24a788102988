package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/security/middleware"
	"github.com/texlink/partnerhub/internal/service"
)

// CredentialHandler serves the brand-side onboarding endpoints
type CredentialHandler struct {
	credentials *service.CredentialService
	logger      *slog.Logger
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(credentials *service.CredentialService, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{credentials: credentials, logger: logger}
}

// Register wires the handler's routes onto the mux
func (h *CredentialHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/credentials", h.create)
	mux.HandleFunc("GET /api/credentials", h.list)
	mux.HandleFunc("GET /api/credentials/stats", h.stats)
	mux.HandleFunc("GET /api/credentials/{id}", h.get)
	mux.HandleFunc("PATCH /api/credentials/{id}", h.update)
	mux.HandleFunc("DELETE /api/credentials/{id}", h.remove)
	mux.HandleFunc("POST /api/credentials/{id}/status", h.changeStatus)
	mux.HandleFunc("GET /api/credentials/{id}/history", h.history)
	mux.HandleFunc("GET /api/credentials/{id}/validations", h.validations)
	mux.HandleFunc("POST /api/credentials/{id}/validations", h.addValidation)
}

func (h *CredentialHandler) create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.CreateCredentialInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.credentials.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, credentialResponse(c))
}

func (h *CredentialHandler) get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	c, err := h.credentials.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse(c))
}

func (h *CredentialHandler) update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.UpdateCredentialInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.credentials.Update(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse(c))
}

func (h *CredentialHandler) remove(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	if err := h.credentials.Remove(r.Context(), actor, r.PathValue("id"), r.URL.Query().Get("reason")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *CredentialHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req changeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.credentials.ChangeStatus(r.Context(), actor, r.PathValue("id"), domain.CredentialStatus(req.Status), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse(c))
}

func (h *CredentialHandler) list(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())
	f := parseCredentialFilter(r)

	items, total, err := h.credentials.List(r.Context(), actor, f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(items))
	for _, c := range items {
		out = append(out, credentialResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":    out,
		"total":    total,
		"page":     f.Page,
		"pageSize": f.PageSize,
	})
}

func (h *CredentialHandler) history(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	rows, err := h.credentials.History(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entry := map[string]any{
			"toStatus":    row.ToStatus,
			"performedBy": row.PerformedByID,
			"reason":      row.Reason,
			"createdAt":   row.CreatedAt,
		}
		if row.FromStatus != nil {
			entry["fromStatus"] = *row.FromStatus
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *CredentialHandler) validations(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	rows, err := h.credentials.Validations(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, v := range rows {
		out = append(out, map[string]any{
			"id":        v.ID,
			"kind":      v.Kind,
			"isValid":   v.IsValid,
			"details":   v.Details,
			"createdAt": v.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

type addValidationRequest struct {
	Kind    string `json:"kind"`
	IsValid bool   `json:"isValid"`
	Details string `json:"details"`
}

func (h *CredentialHandler) addValidation(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req addValidationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	v, err := h.credentials.AddValidation(r.Context(), actor, r.PathValue("id"), req.Kind, req.IsValid, req.Details)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        v.ID,
		"kind":      v.Kind,
		"isValid":   v.IsValid,
		"details":   v.Details,
		"createdAt": v.CreatedAt,
	})
}

func (h *CredentialHandler) stats(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	stats, err := h.credentials.Stats(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func credentialResponse(c *domain.Credential) map[string]any {
	resp := map[string]any{
		"id":           c.ID,
		"taxId":        c.TaxID,
		"contactName":  c.ContactName,
		"contactEmail": c.ContactEmail,
		"contactPhone": c.ContactPhone,
		"tradeName":    c.TradeName,
		"internalCode": c.InternalCode,
		"category":     c.Category,
		"notes":        c.Notes,
		"priority":     c.Priority,
		"status":       c.Status,
		"createdAt":    c.CreatedAt,
		"updatedAt":    c.UpdatedAt,
	}
	if c.CompletedAt != nil {
		resp["completedAt"] = *c.CompletedAt
	}
	return resp
}

func parseCredentialFilter(r *http.Request) domain.CredentialFilter {
	q := r.URL.Query()
	f := domain.CredentialFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		SortBy:   q.Get("sortBy"),
		SortDir:  q.Get("sortDir"),
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, domain.CredentialStatus(strings.TrimSpace(s)))
		}
	}
	if raw := q.Get("createdFrom"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			f.CreatedFrom = &t
		}
	}
	if raw := q.Get("createdTo"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			f.CreatedTo = &t
		}
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = n
	}
	if n, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		f.PageSize = n
	}
	return f
}
