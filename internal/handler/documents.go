package handler

import (
	"log/slog"
	"net/http"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/security"
	"github.com/texlink/partnerhub/internal/security/middleware"
	"github.com/texlink/partnerhub/internal/service"
)

// DocumentHandler serves the compliance document endpoints
type DocumentHandler struct {
	documents *service.DocumentService
	logger    *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *service.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

// Register wires the handler's routes onto the mux
func (h *DocumentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.upsert)
	mux.HandleFunc("GET /api/documents", h.list)
	mux.HandleFunc("GET /api/documents/summary", h.summary)
	mux.HandleFunc("GET /api/documents/summary/{supplierID}", h.summary)
	mux.HandleFunc("GET /api/documents/{id}", h.get)
}

func (h *DocumentHandler) upsert(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.UpsertDocumentInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	v, err := h.documents.Upsert(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentResponse(v))
}

func (h *DocumentHandler) get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	v, err := h.documents.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(v))
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())
	q := r.URL.Query()

	views, err := h.documents.List(r.Context(), actor, domain.DocumentFilter{
		SupplierID: q.Get("supplierId"),
		Type:       q.Get("type"),
		Status:     domain.DocumentStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(views))
	for _, v := range views {
		out = append(out, documentResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *DocumentHandler) summary(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	supplierID := r.PathValue("supplierID")
	if supplierID == "" {
		supplierID = r.URL.Query().Get("supplierId")
	}

	// Without a supplier, brand callers get the platform-wide view;
	// suppliers get their own tally.
	if supplierID == "" && security.IsBrandRole(security.Role(actor.Role)) {
		platform, err := h.documents.PlatformSummary(r.Context(), actor)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suppliers": platform})
		return
	}

	summary, err := h.documents.SupplierSummary(r.Context(), actor, supplierID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func documentResponse(v *service.DocumentView) map[string]any {
	resp := map[string]any{
		"id":         v.ID,
		"supplierId": v.SupplierID,
		"type":       v.Type,
		"status":     v.Status,
		"fileRef":    v.FileRef,
		"notes":      v.Notes,
		"createdAt":  v.CreatedAt,
		"updatedAt":  v.UpdatedAt,
	}
	if v.CompetenceMonth > 0 {
		resp["competenceMonth"] = v.CompetenceMonth
		resp["competenceYear"] = v.CompetenceYear
	}
	if v.ExpiresAt != nil {
		resp["expiresAt"] = *v.ExpiresAt
	}
	return resp
}
