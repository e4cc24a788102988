package handler

import (
	"log/slog"
	"net/http"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/security/middleware"
	"github.com/texlink/partnerhub/internal/service"
)

// RelationshipHandler serves the relationship lifecycle, contract subflow
// and consent endpoints
type RelationshipHandler struct {
	relationships *service.RelationshipService
	logger        *slog.Logger
}

// NewRelationshipHandler creates a new relationship handler
func NewRelationshipHandler(relationships *service.RelationshipService, logger *slog.Logger) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships, logger: logger}
}

// Register wires the handler's routes onto the mux
func (h *RelationshipHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/relationships", h.create)
	mux.HandleFunc("GET /api/relationships", h.list)
	mux.HandleFunc("GET /api/relationships/stats", h.stats)
	mux.HandleFunc("GET /api/relationships/available", h.availableSuppliers)
	mux.HandleFunc("GET /api/relationships/{id}", h.get)
	mux.HandleFunc("PATCH /api/relationships/{id}", h.updateDetails)
	mux.HandleFunc("POST /api/relationships/{id}/activate", h.activate)
	mux.HandleFunc("POST /api/relationships/{id}/reactivate", h.activate)
	mux.HandleFunc("POST /api/relationships/{id}/suspend", h.suspend)
	mux.HandleFunc("POST /api/relationships/{id}/terminate", h.terminate)
	mux.HandleFunc("POST /api/relationships/{id}/contract", h.generateContract)
	mux.HandleFunc("GET /api/relationships/{id}/contract", h.currentContract)
	mux.HandleFunc("POST /api/relationships/{id}/contract/send", h.sendContract)
	mux.HandleFunc("POST /api/relationships/{id}/contract/sign", h.signContract)
	mux.HandleFunc("POST /api/relationships/{id}/contract/revision", h.requestRevision)
	mux.HandleFunc("POST /api/relationships/{id}/contract/revision/respond", h.respondRevision)
	mux.HandleFunc("GET /api/relationships/{id}/consent", h.consent)
	mux.HandleFunc("PUT /api/relationships/{id}/consent", h.updateConsent)
	mux.HandleFunc("POST /api/relationships/{id}/consent/revoke", h.revokeConsent)
}

func (h *RelationshipHandler) create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.CreateRelationshipInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rel, err := h.relationships.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, relationshipResponse(rel))
}

func (h *RelationshipHandler) availableSuppliers(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	suppliers, err := h.relationships.AvailableSuppliers(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(suppliers))
	for _, c := range suppliers {
		out = append(out, map[string]any{
			"id":    c.ID,
			"name":  c.Name,
			"taxId": c.TaxID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *RelationshipHandler) list(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	rels, err := h.relationships.List(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(rels))
	for _, rel := range rels {
		out = append(out, relationshipResponse(rel))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *RelationshipHandler) stats(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	stats, err := h.relationships.Stats(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *RelationshipHandler) get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	rel, err := h.relationships.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, relationshipResponse(rel))
}

func (h *RelationshipHandler) updateDetails(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.UpdateDetailsInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rel, err := h.relationships.UpdateDetails(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, relationshipResponse(rel))
}

func (h *RelationshipHandler) activate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	rel, err := h.relationships.Activate(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, relationshipResponse(rel))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *RelationshipHandler) suspend(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rel, err := h.relationships.Suspend(r.Context(), actor, r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, relationshipResponse(rel))
}

func (h *RelationshipHandler) terminate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rel, err := h.relationships.Terminate(r.Context(), actor, r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, relationshipResponse(rel))
}

func (h *RelationshipHandler) generateContract(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.GenerateContractInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	contract, err := h.relationships.GenerateContract(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, contractResponse(contract))
}

func (h *RelationshipHandler) currentContract(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	contract, err := h.relationships.CurrentContract(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(contract))
}

func (h *RelationshipHandler) sendContract(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	contract, err := h.relationships.SendContract(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(contract))
}

func (h *RelationshipHandler) signContract(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.SignContractInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	contract, err := h.relationships.SignContract(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(contract))
}

type revisionRequest struct {
	Message string `json:"message"`
}

func (h *RelationshipHandler) requestRevision(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req revisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rev, err := h.relationships.RequestRevision(r.Context(), actor, r.PathValue("id"), req.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         rev.ID,
		"contractId": rev.ContractID,
		"message":    rev.Message,
		"status":     rev.Status,
		"createdAt":  rev.CreatedAt,
	})
}

func (h *RelationshipHandler) respondRevision(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req service.RespondRevisionInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	contract, err := h.relationships.RespondRevision(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(contract))
}

func (h *RelationshipHandler) consent(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	status, err := h.relationships.Consent(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type consentRequest struct {
	DocumentSharingConsent bool `json:"documentSharingConsent"`
}

func (h *RelationshipHandler) updateConsent(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req consentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	status, err := h.relationships.UpdateConsent(r.Context(), actor, r.PathValue("id"), req.DocumentSharingConsent)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *RelationshipHandler) revokeConsent(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())

	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rel, err := h.relationships.RevokeConsent(r.Context(), actor, r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, relationshipResponse(rel))
}

func relationshipResponse(rel *domain.Relationship) map[string]any {
	resp := map[string]any{
		"id":                     rel.ID,
		"brandId":                rel.BrandID,
		"supplierId":             rel.SupplierID,
		"status":                 rel.Status,
		"initiatedBy":            rel.InitiatedByID,
		"initiatedByRole":        rel.InitiatedByRole,
		"internalCode":           rel.InternalCode,
		"notes":                  rel.Notes,
		"priority":               rel.Priority,
		"documentSharingConsent": rel.DocumentSharingConsent,
		"createdAt":              rel.CreatedAt,
		"updatedAt":              rel.UpdatedAt,
	}
	if rel.SuspensionReason != "" {
		resp["suspensionReason"] = rel.SuspensionReason
	}
	if rel.TerminationReason != "" {
		resp["terminationReason"] = rel.TerminationReason
	}
	if rel.ActivatedAt != nil {
		resp["activatedAt"] = *rel.ActivatedAt
	}
	if rel.TerminatedAt != nil {
		resp["terminatedAt"] = *rel.TerminatedAt
	}
	return resp
}

func contractResponse(c *domain.Contract) map[string]any {
	resp := map[string]any{
		"id":             c.ID,
		"relationshipId": c.RelationshipID,
		"type":           c.Type,
		"status":         c.Status,
		"value":          c.Value,
		"terms":          c.Terms,
		"createdAt":      c.CreatedAt,
		"updatedAt":      c.UpdatedAt,
	}
	if c.ValidFrom != nil {
		resp["validFrom"] = *c.ValidFrom
	}
	if c.ValidUntil != nil {
		resp["validUntil"] = *c.ValidUntil
	}
	if c.SignedAt != nil {
		resp["signedAt"] = *c.SignedAt
		resp["signedByName"] = c.SignedByName
	}
	if c.ParentContractID != "" {
		resp["parentContractId"] = c.ParentContractID
	}
	return resp
}
