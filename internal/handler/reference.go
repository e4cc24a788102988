package handler

import (
	"log/slog"
	"net/http"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/pkg/config"
)

// ReferenceHandler exposes platform vocabularies so clients can build
// pickers without hardcoding status sets or document types.
type ReferenceHandler struct {
	config *config.Config
	logger *slog.Logger
}

func NewReferenceHandler(cfg *config.Config, logger *slog.Logger) *ReferenceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceHandler{config: cfg, logger: logger}
}

func (h *ReferenceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reference", h.reference)
}

func (h *ReferenceHandler) reference(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"documentTypes": h.config.DocumentTypes,
		"credentialStatuses": []domain.CredentialStatus{
			domain.CredentialDraft,
			domain.CredentialPendingValidation,
			domain.CredentialInvitationSent,
			domain.CredentialContractPending,
			domain.CredentialContractSigned,
			domain.CredentialActive,
			domain.CredentialBlocked,
		},
		"requestStatuses": []domain.RequestStatus{
			domain.RequestPending,
			domain.RequestAccepted,
			domain.RequestRejected,
			domain.RequestCancelled,
			domain.RequestExpired,
		},
		"relationshipStatuses": []domain.RelationshipStatus{
			domain.RelationshipContractPending,
			domain.RelationshipPending,
			domain.RelationshipActive,
			domain.RelationshipSuspended,
			domain.RelationshipTerminated,
		},
		"contractStatuses": []domain.ContractStatus{
			domain.ContractDraft,
			domain.ContractSentForSignature,
			domain.ContractRevisionRequested,
			domain.ContractSigned,
			domain.ContractRejected,
		},
		"documentStatuses": []domain.DocumentStatus{
			domain.DocumentPending,
			domain.DocumentValid,
			domain.DocumentExpiringSoon,
			domain.DocumentExpired,
		},
		"requestExpiryDays": h.config.RequestExpiryDays,
		"expiringSoonDays":  h.config.ExpiringSoonDays,
	})
}
