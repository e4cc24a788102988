package handler

import (
	"log/slog"
	"net/http"

	"github.com/texlink/partnerhub/internal/domain"
)

// CompanyHandler serves the shared supplier pool
type CompanyHandler struct {
	companies domain.CompanyRepository
	logger    *slog.Logger
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(companies domain.CompanyRepository, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, logger: logger}
}

// Register wires the handler's routes onto the mux
func (h *CompanyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/suppliers", h.listSuppliers)
}

func (h *CompanyHandler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.companies.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(suppliers))
	for _, c := range suppliers {
		out = append(out, map[string]any{
			"id":        c.ID,
			"name":      c.Name,
			"taxId":     c.TaxID,
			"createdAt": c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}
