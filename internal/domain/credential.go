package domain

import (
	"context"
	"time"
)

// Actor identifies who is performing a mutating operation. Supplied by the
// authentication layer on every call.
type Actor struct {
	ID        string
	CompanyID string
	Role      string
}

// Credential is a brand's private onboarding record for one prospective or
// partner supplier, keyed by (brandID, taxID). At most one non-BLOCKED
// credential may exist per pair; the storage layer enforces this with a
// partial unique index.
type Credential struct {
	ID           string
	BrandID      string
	TaxID        string // 14 digits, normalized
	ContactName  string
	ContactEmail string
	ContactPhone string
	TradeName    string
	InternalCode string
	Category     string
	Notes        string
	Priority     int // 0-100, lower is higher priority
	Status       CredentialStatus
	CompletedAt  *time.Time // stamped once, on transition into ACTIVE
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialStatusHistory is an append-only audit row. One row is written for
// every status change; rows are never updated or deleted.
type CredentialStatusHistory struct {
	ID            string
	CredentialID  string
	FromStatus    *CredentialStatus // nil on creation
	ToStatus      CredentialStatus
	PerformedByID string
	Reason        string
	CreatedAt     time.Time
}

// CredentialValidation is one verification check run against a credential.
// All rows for a credential are invalidated when its tax ID changes.
type CredentialValidation struct {
	ID           string
	CredentialID string
	Kind         string
	IsValid      bool
	Details      string
	CreatedAt    time.Time
}

// CredentialFilter narrows a credential listing.
type CredentialFilter struct {
	Search      string
	Statuses    []CredentialStatus
	Category    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortDir     string
}

// CredentialStats aggregates a brand's onboarding funnel.
type CredentialStats struct {
	Total              int                      `json:"total"`
	ByStatus           map[CredentialStatus]int `json:"byStatus"`
	ConversionRate     float64                  `json:"conversionRate"`
	CreatedThisMonth   int                      `json:"createdThisMonth"`
	CompletedThisMonth int                      `json:"completedThisMonth"`
	PendingAction      int                      `json:"pendingAction"`
	AwaitingResponse   int                      `json:"awaitingResponse"`
}

// CredentialRepository defines data access for credentials. Implementations
// must write the status change and its history row in one transaction, and
// must surface storage-level uniqueness violations as Conflict errors.
type CredentialRepository interface {
	// Create inserts the credential and its initial history row (nil -> DRAFT).
	Create(ctx context.Context, c *Credential, actorID string) error
	GetByID(ctx context.Context, id string) (*Credential, error)
	// FindActiveByTaxID returns the non-BLOCKED credential for the pair, or
	// nil when none exists. excludeID skips the record being updated.
	FindActiveByTaxID(ctx context.Context, brandID, taxID, excludeID string) (*Credential, error)
	// Update persists draft edits. When invalidateValidations is set, all
	// validation rows for the credential are flipped to is_valid=false in the
	// same transaction.
	Update(ctx context.Context, c *Credential, invalidateValidations bool) error
	// ChangeStatus updates the status and appends the history row atomically.
	ChangeStatus(ctx context.Context, id string, from *CredentialStatus, to CredentialStatus, actorID, reason string, completedAt *time.Time) error
	List(ctx context.Context, brandID string, f CredentialFilter) ([]*Credential, int, error)
	History(ctx context.Context, credentialID string) ([]*CredentialStatusHistory, error)
	Validations(ctx context.Context, credentialID string) ([]*CredentialValidation, error)
	AddValidation(ctx context.Context, v *CredentialValidation) error
	CountByStatus(ctx context.Context, brandID string) (map[CredentialStatus]int, error)
	CountCreatedSince(ctx context.Context, brandID string, since time.Time) (int, error)
	CountCompletedSince(ctx context.Context, brandID string, since time.Time) (int, error)
}
