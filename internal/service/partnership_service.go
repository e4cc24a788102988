package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/events"
	"github.com/texlink/partnerhub/internal/notify"
	"github.com/texlink/partnerhub/internal/observability/metrics"
	"github.com/texlink/partnerhub/internal/security"
)

// PartnershipService runs the brand -> supplier handshake.
type PartnershipService struct {
	requests      domain.PartnershipRequestRepository
	relationships domain.RelationshipRepository
	companies     domain.CompanyRepository
	broker        *events.Broker
	notifier      notify.Notifier
	logger        *slog.Logger
	expiryWindow  time.Duration
	now           func() time.Time
}

// NewPartnershipService creates a new partnership service. expiryDays is how
// long a request stays open before it lapses.
func NewPartnershipService(
	requests domain.PartnershipRequestRepository,
	relationships domain.RelationshipRepository,
	companies domain.CompanyRepository,
	broker *events.Broker,
	notifier notify.Notifier,
	logger *slog.Logger,
	expiryDays int,
) *PartnershipService {
	if expiryDays <= 0 {
		expiryDays = 30
	}
	return &PartnershipService{
		requests:      requests,
		relationships: relationships,
		companies:     companies,
		broker:        broker,
		notifier:      notifier,
		logger:        logger,
		expiryWindow:  time.Duration(expiryDays) * 24 * time.Hour,
		now:           time.Now,
	}
}

// CreateRequestInput captures a new partnership proposal.
type CreateRequestInput struct {
	SupplierID string `json:"supplierId"`
	Message    string `json:"message"`
}

// RespondInput carries the supplier's decision on a request.
type RespondInput struct {
	Accept                 bool   `json:"accept"`
	RejectionReason        string `json:"rejectionReason"`
	DocumentSharingConsent bool   `json:"documentSharingConsent"`
}

// Create opens a partnership request from the actor's brand to a supplier.
// Rejected with Conflict when an undissolved relationship or another
// PENDING request already links the pair.
func (s *PartnershipService) Create(ctx context.Context, actor domain.Actor, in CreateRequestInput) (*domain.PartnershipRequest, error) {
	if !security.IsBrandRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only brand users can send partnership requests")
	}
	if in.SupplierID == "" {
		return nil, domain.Validationf("supplier ID is required")
	}
	if in.SupplierID == actor.CompanyID {
		return nil, domain.Validationf("a company cannot request partnership with itself")
	}

	supplier, err := s.companies.GetByID(ctx, in.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier.Kind != domain.CompanySupplier {
		return nil, domain.Validationf("company %s is not a supplier", in.SupplierID)
	}

	rel, err := s.relationships.FindActiveByPair(ctx, actor.CompanyID, in.SupplierID)
	if err != nil {
		return nil, err
	}
	if rel != nil {
		return nil, domain.Conflictf("a relationship with this supplier already exists (status %s)", rel.Status)
	}

	now := s.now()
	pending, err := s.requests.FindPending(ctx, actor.CompanyID, in.SupplierID)
	if err != nil {
		return nil, err
	}
	if pending != nil && pending.EffectiveStatus(now) == domain.RequestPending {
		return nil, domain.Conflictf("a pending request already exists for this supplier")
	}

	r := &domain.PartnershipRequest{
		ID:            uuid.NewString(),
		BrandID:       actor.CompanyID,
		SupplierID:    in.SupplierID,
		RequestedByID: actor.ID,
		Status:        domain.RequestPending,
		Message:       in.Message,
		ExpiresAt:     now.Add(s.expiryWindow),
	}

	if err := s.requests.Create(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("partnership request created",
		slog.String("request_id", r.ID),
		slog.String("brand_id", r.BrandID),
		slog.String("supplier_id", r.SupplierID),
	)
	metrics.ObserveTransition("request", string(domain.RequestPending))
	s.publish("request", r.ID, "", string(r.Status), actor.ID)

	s.notifier.Notify(ctx, notify.Notification{
		Event:       "request.created",
		RecipientID: r.SupplierID,
		Subject:     "New partnership request",
		Data:        map[string]string{"requestId": r.ID, "brandId": r.BrandID},
	})

	return r, nil
}

// Get returns the request if the actor's company is on either side of it.
func (s *PartnershipService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.PartnershipRequest, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.BrandID != actor.CompanyID && r.SupplierID != actor.CompanyID {
		return nil, domain.NotFoundf("partnership request %s not found", id)
	}
	return r, nil
}

// Respond records the supplier's accept or reject decision. Acceptance
// creates the relationship edge in the same transaction as the request
// update; a request past its expiry cannot be answered even before the
// sweep has marked it.
func (s *PartnershipService) Respond(ctx context.Context, actor domain.Actor, id string, in RespondInput) (*domain.PartnershipRequest, error) {
	if !security.IsSupplierRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only supplier users can respond to partnership requests")
	}

	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.SupplierID != actor.CompanyID {
		return nil, domain.Forbiddenf("this request is addressed to another supplier")
	}

	now := s.now()
	switch r.EffectiveStatus(now) {
	case domain.RequestPending:
	case domain.RequestExpired:
		return nil, domain.InvalidStatef("this request has expired")
	default:
		return nil, domain.InvalidStatef("request is already %s", r.Status)
	}

	r.RespondedByID = actor.ID
	r.RespondedAt = &now

	if !in.Accept {
		if strings.TrimSpace(in.RejectionReason) == "" {
			return nil, domain.Validationf("a rejection reason is required")
		}
		r.Status = domain.RequestRejected
		r.RejectionReason = in.RejectionReason
		if err := s.requests.Update(ctx, r); err != nil {
			return nil, err
		}

		metrics.ObserveTransition("request", string(domain.RequestRejected))
		s.publish("request", r.ID, string(domain.RequestPending), string(r.Status), actor.ID)
		s.notifier.Notify(ctx, notify.Notification{
			Event:       "request.rejected",
			RecipientID: r.BrandID,
			Subject:     "Partnership request declined",
			Data:        map[string]string{"requestId": r.ID},
		})
		return r, nil
	}

	rel := &domain.Relationship{
		ID:                     uuid.NewString(),
		SupplierID:             r.SupplierID,
		BrandID:                r.BrandID,
		Status:                 domain.RelationshipContractPending,
		InitiatedByID:          r.RequestedByID,
		InitiatedByRole:        "brand",
		DocumentSharingConsent: in.DocumentSharingConsent,
	}
	if in.DocumentSharingConsent {
		rel.ConsentUpdatedAt = &now
	}

	r.Status = domain.RequestAccepted
	r.DocumentSharingConsent = in.DocumentSharingConsent
	r.RelationshipID = rel.ID

	if err := s.requests.Accept(ctx, r, rel); err != nil {
		return nil, err
	}

	s.logger.Info("partnership request accepted",
		slog.String("request_id", r.ID),
		slog.String("relationship_id", rel.ID),
	)
	metrics.ObserveTransition("request", string(domain.RequestAccepted))
	metrics.ObserveTransition("relationship", string(rel.Status))
	s.publish("request", r.ID, string(domain.RequestPending), string(r.Status), actor.ID)
	s.publish("relationship", rel.ID, "", string(rel.Status), actor.ID)

	s.notifier.Notify(ctx, notify.Notification{
		Event:       "request.accepted",
		RecipientID: r.BrandID,
		Subject:     "Partnership request accepted",
		Data:        map[string]string{"requestId": r.ID, "relationshipId": rel.ID},
	})

	return r, nil
}

// Cancel withdraws a still-pending request. Only the requesting brand can
// cancel.
func (s *PartnershipService) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.PartnershipRequest, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.BrandID != actor.CompanyID {
		return nil, domain.Forbiddenf("only the requesting brand can cancel a request")
	}

	now := s.now()
	if r.EffectiveStatus(now) != domain.RequestPending {
		return nil, domain.InvalidStatef("request is already %s", r.EffectiveStatus(now))
	}

	r.Status = domain.RequestCancelled
	if err := s.requests.Update(ctx, r); err != nil {
		return nil, err
	}

	metrics.ObserveTransition("request", string(domain.RequestCancelled))
	s.publish("request", r.ID, string(domain.RequestPending), string(r.Status), actor.ID)
	return r, nil
}

// ListSent returns the brand's outbound requests with lazy-expired statuses.
func (s *PartnershipService) ListSent(ctx context.Context, actor domain.Actor) ([]*domain.PartnershipRequest, error) {
	reqs, err := s.requests.ListSent(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	s.applyEffectiveStatus(reqs)
	return reqs, nil
}

// ListReceived returns the supplier's inbound requests with lazy-expired
// statuses.
func (s *PartnershipService) ListReceived(ctx context.Context, actor domain.Actor) ([]*domain.PartnershipRequest, error) {
	reqs, err := s.requests.ListReceived(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	s.applyEffectiveStatus(reqs)
	return reqs, nil
}

// PendingCount returns how many open requests await the supplier.
func (s *PartnershipService) PendingCount(ctx context.Context, actor domain.Actor) (int, error) {
	return s.requests.CountPending(ctx, actor.CompanyID)
}

// CheckExisting reports what already links the actor's brand to a supplier,
// for the UI to disable the request button.
func (s *PartnershipService) CheckExisting(ctx context.Context, actor domain.Actor, supplierID string) (*domain.ExistingCheck, error) {
	check := &domain.ExistingCheck{}

	rel, err := s.relationships.FindActiveByPair(ctx, actor.CompanyID, supplierID)
	if err != nil {
		return nil, err
	}
	if rel != nil {
		check.HasActiveRelationship = true
		check.RelationshipStatus = rel.Status
	}

	pending, err := s.requests.FindPending(ctx, actor.CompanyID, supplierID)
	if err != nil {
		return nil, err
	}
	if pending != nil && pending.EffectiveStatus(s.now()) == domain.RequestPending {
		check.HasPendingRequest = true
		check.PendingRequestID = pending.ID
	}

	return check, nil
}

func (s *PartnershipService) applyEffectiveStatus(reqs []*domain.PartnershipRequest) {
	now := s.now()
	for _, r := range reqs {
		r.Status = r.EffectiveStatus(now)
	}
}

func (s *PartnershipService) publish(entity, id, from, to, actorID string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(events.Event{
		Entity:  entity,
		ID:      id,
		From:    from,
		To:      to,
		ActorID: actorID,
		At:      s.now(),
	})
}
