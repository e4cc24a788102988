package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/security/middleware"
	"github.com/texlink/partnerhub/internal/service"
)

// PartnershipHandler serves the partnership request workflow
type PartnershipHandler struct {
	partnerships *service.PartnershipService
	logger       *slog.Logger
}

// NewPartnershipHandler creates a new partnership handler
func NewPartnershipHandler(partnerships *service.PartnershipService, logger *slog.Logger) *PartnershipHandler {
	return &PartnershipHandler{partnerships: partnerships, logger: logger}
}

// Register wires the handler's routes onto the mux
func (h *PartnershipHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/partnership-requests", h.create)
	mux.HandleFunc("GET /api/partnership-requests/sent", h.listSent)
	mux.HandleFunc("GET /api/partnership-requests/received", h.listReceived)
	mux.HandleFunc("GET /api/partnership-requests/pending-count", h.pendingCount)
	mux.HandleFunc("GET /api/partnership-requests/check/{supplierID}", h.check)
	mux.HandleFunc("GET /api/partnership-requests/{id}", h.get)
	mux.HandleFunc("POST /api/partnership-requests/{id}/respond", h.respond)
	mux.HandleFunc("POST /api/partnership-requests/{id}/cancel", h.cancel)
}

func (h *PartnershipHandler) create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.CreateRequestInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	pr, err := h.partnerships.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestResponse(pr, time.Now()))
}

func (h *PartnershipHandler) get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	pr, err := h.partnerships.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, requestResponse(pr, time.Now()))
}

func (h *PartnershipHandler) respond(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.RespondInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	pr, err := h.partnerships.Respond(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, requestResponse(pr, time.Now()))
}

func (h *PartnershipHandler) cancel(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	pr, err := h.partnerships.Cancel(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, requestResponse(pr, time.Now()))
}

func (h *PartnershipHandler) listSent(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	reqs, err := h.partnerships.ListSent(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeList(w, reqs)
}

func (h *PartnershipHandler) listReceived(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	reqs, err := h.partnerships.ListReceived(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeList(w, reqs)
}

func (h *PartnershipHandler) pendingCount(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	n, err := h.partnerships.PendingCount(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pendingCount": n})
}

func (h *PartnershipHandler) check(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	result, err := h.partnerships.CheckExisting(r.Context(), actor, r.PathValue("supplierID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PartnershipHandler) writeList(w http.ResponseWriter, reqs []*domain.PartnershipRequest) {
	now := time.Now()
	out := make([]map[string]any, 0, len(reqs))
	for _, pr := range reqs {
		out = append(out, requestResponse(pr, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func requestResponse(pr *domain.PartnershipRequest, now time.Time) map[string]any {
	resp := map[string]any{
		"id":         pr.ID,
		"brandId":    pr.BrandID,
		"supplierId": pr.SupplierID,
		"status":     pr.EffectiveStatus(now),
		"message":    pr.Message,
		"expiresAt":  pr.ExpiresAt,
		"createdAt":  pr.CreatedAt,
		"updatedAt":  pr.UpdatedAt,
	}
	if pr.RespondedAt != nil {
		resp["respondedAt"] = *pr.RespondedAt
		resp["respondedBy"] = pr.RespondedByID
	}
	if pr.RejectionReason != "" {
		resp["rejectionReason"] = pr.RejectionReason
	}
	if pr.RelationshipID != "" {
		resp["relationshipId"] = pr.RelationshipID
	}
	return resp
}
