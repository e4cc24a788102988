package domain

import (
	"context"
	"time"
)

// Relationship is the durable many-to-many edge between a brand and a
// supplier. TERMINATED is absorbing.
type Relationship struct {
	ID                      string
	SupplierID              string
	BrandID                 string
	Status                  RelationshipStatus
	InitiatedByID           string
	InitiatedByRole         string // "brand" or "supplier"
	InternalCode            string
	Notes                   string
	Priority                int
	DocumentSharingConsent  bool
	ConsentUpdatedAt        *time.Time
	ConsentRevokedAt        *time.Time
	ConsentRevocationReason string
	SuspensionReason        string
	TerminationReason       string
	ActivatedAt             *time.Time
	TerminatedAt            *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Contract is generated against a relationship. One unresolved contract at a
// time; amendments reference ParentContractID.
type Contract struct {
	ID               string
	RelationshipID   string
	Type             string
	Status           ContractStatus
	ValidFrom        *time.Time
	ValidUntil       *time.Time
	Value            float64
	Terms            string
	SignedByName     string
	SignedAt         *time.Time
	ParentContractID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ContractRevision is a request/response pair that must resolve before the
// contract can move to signed.
type ContractRevision struct {
	ID            string
	ContractID    string
	RequestedByID string
	Message       string
	Status        RevisionStatus
	ResponseNotes string
	RespondedAt   *time.Time
	CreatedAt     time.Time
}

// ConsentStatus is the read view of document-sharing consent on a
// relationship.
type ConsentStatus struct {
	DocumentSharingConsent bool       `json:"documentSharingConsent"`
	UpdatedAt              *time.Time `json:"updatedAt,omitempty"`
	RevokedAt              *time.Time `json:"revokedAt,omitempty"`
	RevocationReason       string     `json:"revocationReason,omitempty"`
}

// RelationshipStats aggregates a company's partnership edges.
type RelationshipStats struct {
	Total    int                        `json:"total"`
	ByStatus map[RelationshipStatus]int `json:"byStatus"`
}

// RelationshipRepository defines data access for relationships.
type RelationshipRepository interface {
	Create(ctx context.Context, rel *Relationship) error
	GetByID(ctx context.Context, id string) (*Relationship, error)
	// FindActiveByPair returns the non-TERMINATED relationship for the pair,
	// or nil when none exists.
	FindActiveByPair(ctx context.Context, brandID, supplierID string) (*Relationship, error)
	Update(ctx context.Context, rel *Relationship) error
	ListByBrand(ctx context.Context, brandID string) ([]*Relationship, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*Relationship, error)
	// RevokeConsentAndTerminate clears consent, stamps the revocation and
	// terminates the relationship in one transaction.
	RevokeConsentAndTerminate(ctx context.Context, id, reason string, at time.Time) (*Relationship, error)
	CountByStatus(ctx context.Context, companyID string, asBrand bool) (map[RelationshipStatus]int, error)
}

// ContractRepository defines data access for contracts and their revisions.
type ContractRepository interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id string) (*Contract, error)
	// GetCurrentByRelationship returns the most recent contract for the
	// relationship, or nil when none has been generated.
	GetCurrentByRelationship(ctx context.Context, relationshipID string) (*Contract, error)
	Update(ctx context.Context, c *Contract) error
	AddRevision(ctx context.Context, rev *ContractRevision) error
	// PendingRevision returns the unresolved revision for the contract, or nil.
	PendingRevision(ctx context.Context, contractID string) (*ContractRevision, error)
	UpdateRevision(ctx context.Context, rev *ContractRevision) error
}
