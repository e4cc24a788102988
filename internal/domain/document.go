package domain

import (
	"context"
	"time"
)

// SupplierDocument is one compliance artifact per (supplier, type[,
// competence month/year]). Its status is never stored; it is recomputed on
// every read from ExpiresAt and file presence.
type SupplierDocument struct {
	ID              string
	SupplierID      string
	Type            string
	CompetenceMonth int // 0 when the document class has no competence period
	CompetenceYear  int
	ExpiresAt       *time.Time
	FileRef         string // empty until an artifact is uploaded
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasFile reports whether an artifact has been uploaded.
func (d *SupplierDocument) HasFile() bool {
	return d.FileRef != ""
}

// DocumentFilter narrows a document listing. Status filtering happens after
// derivation since status is not a stored column.
type DocumentFilter struct {
	SupplierID string
	Type       string
	Status     DocumentStatus
}

// DocumentRepository defines data access for supplier documents.
type DocumentRepository interface {
	// Upsert inserts or replaces the document for its natural key.
	Upsert(ctx context.Context, d *SupplierDocument) error
	GetByID(ctx context.Context, id string) (*SupplierDocument, error)
	List(ctx context.Context, supplierID, docType string) ([]*SupplierDocument, error)
	ListAll(ctx context.Context) ([]*SupplierDocument, error)
}
