package domain

import (
	"context"
	"time"
)

// PartnershipRequest is a time-boxed proposal from a brand to a supplier
// already known to the platform. At most one PENDING request may exist per
// (brandID, supplierID) pair; enforced by a partial unique index.
type PartnershipRequest struct {
	ID                     string
	BrandID                string
	SupplierID             string
	RequestedByID          string
	Status                 RequestStatus
	Message                string
	RespondedByID          string
	RespondedAt            *time.Time
	RejectionReason        string
	DocumentSharingConsent bool
	ExpiresAt              time.Time
	RelationshipID         string // set once accepted
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// EffectiveStatus derives the read-time status: a PENDING request past its
// expiry reads as EXPIRED even before the sweep writes it back.
func (r *PartnershipRequest) EffectiveStatus(now time.Time) RequestStatus {
	if r.Status == RequestPending && now.After(r.ExpiresAt) {
		return RequestExpired
	}
	return r.Status
}

// ExistingCheck summarizes what already links a brand and a supplier.
type ExistingCheck struct {
	HasActiveRelationship bool               `json:"hasActiveRelationship"`
	HasPendingRequest     bool               `json:"hasPendingRequest"`
	PendingRequestID      string             `json:"pendingRequestId,omitempty"`
	RelationshipStatus    RelationshipStatus `json:"relationshipStatus,omitempty"`
}

// PartnershipRequestRepository defines data access for partnership requests.
type PartnershipRequestRepository interface {
	// Create inserts the request; a concurrent duplicate PENDING insert must
	// surface as a Conflict error from the storage constraint.
	Create(ctx context.Context, r *PartnershipRequest) error
	GetByID(ctx context.Context, id string) (*PartnershipRequest, error)
	// FindPending returns the PENDING request for the pair, or nil.
	FindPending(ctx context.Context, brandID, supplierID string) (*PartnershipRequest, error)
	Update(ctx context.Context, r *PartnershipRequest) error
	// Accept updates the request and creates the relationship in one
	// transaction.
	Accept(ctx context.Context, r *PartnershipRequest, rel *Relationship) error
	ListSent(ctx context.Context, brandID string) ([]*PartnershipRequest, error)
	ListReceived(ctx context.Context, supplierID string) ([]*PartnershipRequest, error)
	CountPending(ctx context.Context, supplierID string) (int, error)
	// MarkExpiredBefore flips overdue PENDING requests to EXPIRED and returns
	// how many rows changed.
	MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error)
}
