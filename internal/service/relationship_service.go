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

// RelationshipService manages the brand/supplier edge, its contract subflow
// and document-sharing consent.
type RelationshipService struct {
	relationships domain.RelationshipRepository
	contracts     domain.ContractRepository
	companies     domain.CompanyRepository
	broker        *events.Broker
	notifier      notify.Notifier
	logger        *slog.Logger
	now           func() time.Time
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(
	relationships domain.RelationshipRepository,
	contracts domain.ContractRepository,
	companies domain.CompanyRepository,
	broker *events.Broker,
	notifier notify.Notifier,
	logger *slog.Logger,
) *RelationshipService {
	return &RelationshipService{
		relationships: relationships,
		contracts:     contracts,
		companies:     companies,
		broker:        broker,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateRelationshipInput establishes a relationship directly, without a
// partnership request, for suppliers onboarded through the credential funnel.
type CreateRelationshipInput struct {
	SupplierID   string `json:"supplierId"`
	InternalCode string `json:"internalCode"`
	Notes        string `json:"notes"`
	Priority     int    `json:"priority"`
}

// Create opens a relationship in CONTRACT_PENDING. Conflict when an
// undissolved relationship already links the pair.
func (s *RelationshipService) Create(ctx context.Context, actor domain.Actor, in CreateRelationshipInput) (*domain.Relationship, error) {
	if !security.IsBrandRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only brand users can create relationships")
	}
	if in.SupplierID == "" {
		return nil, domain.Validationf("supplier ID is required")
	}
	if in.SupplierID == actor.CompanyID {
		return nil, domain.Validationf("a company cannot partner with itself")
	}

	supplier, err := s.companies.GetByID(ctx, in.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier.Kind != domain.CompanySupplier {
		return nil, domain.Validationf("company %s is not a supplier", in.SupplierID)
	}

	existing, err := s.relationships.FindActiveByPair(ctx, actor.CompanyID, in.SupplierID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Conflictf("a relationship with this supplier already exists (status %s)", existing.Status)
	}

	rel := &domain.Relationship{
		ID:              uuid.NewString(),
		BrandID:         actor.CompanyID,
		SupplierID:      in.SupplierID,
		Status:          domain.RelationshipContractPending,
		InitiatedByID:   actor.ID,
		InitiatedByRole: "brand",
		InternalCode:    in.InternalCode,
		Notes:           in.Notes,
		Priority:        in.Priority,
	}

	if err := s.relationships.Create(ctx, rel); err != nil {
		return nil, err
	}

	s.logger.Info("relationship created",
		slog.String("relationship_id", rel.ID),
		slog.String("brand_id", rel.BrandID),
		slog.String("supplier_id", rel.SupplierID),
	)
	metrics.ObserveTransition("relationship", string(rel.Status))
	s.publish(rel.ID, "", string(rel.Status), actor.ID)

	return rel, nil
}

// AvailableSuppliers lists suppliers the brand has no undissolved
// relationship with yet.
func (s *RelationshipService) AvailableSuppliers(ctx context.Context, actor domain.Actor) ([]*domain.Company, error) {
	if !security.IsBrandRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only brand users can browse available suppliers")
	}

	suppliers, err := s.companies.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]*domain.Company, 0, len(suppliers))
	for _, supplier := range suppliers {
		rel, err := s.relationships.FindActiveByPair(ctx, actor.CompanyID, supplier.ID)
		if err != nil {
			return nil, err
		}
		if rel == nil {
			available = append(available, supplier)
		}
	}
	return available, nil
}

// Get returns the relationship if the actor's company is on either side.
func (s *RelationshipService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Relationship, error) {
	rel, err := s.relationships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rel.BrandID != actor.CompanyID && rel.SupplierID != actor.CompanyID {
		return nil, domain.NotFoundf("relationship %s not found", id)
	}
	return rel, nil
}

// List returns the actor's relationships from their side of the edge.
func (s *RelationshipService) List(ctx context.Context, actor domain.Actor) ([]*domain.Relationship, error) {
	if security.IsBrandRole(security.Role(actor.Role)) {
		return s.relationships.ListByBrand(ctx, actor.CompanyID)
	}
	return s.relationships.ListBySupplier(ctx, actor.CompanyID)
}

// UpdateDetailsInput carries brand-side annotation edits.
type UpdateDetailsInput struct {
	InternalCode *string `json:"internalCode"`
	Notes        *string `json:"notes"`
	Priority     *int    `json:"priority"`
}

// UpdateDetails edits the brand's private annotations on the relationship.
func (s *RelationshipService) UpdateDetails(ctx context.Context, actor domain.Actor, id string, in UpdateDetailsInput) (*domain.Relationship, error) {
	rel, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if rel.BrandID != actor.CompanyID {
		return nil, domain.Forbiddenf("only the brand can edit relationship details")
	}

	if in.InternalCode != nil {
		rel.InternalCode = strings.TrimSpace(*in.InternalCode)
	}
	if in.Notes != nil {
		rel.Notes = *in.Notes
	}
	if in.Priority != nil {
		if *in.Priority < 0 || *in.Priority > 100 {
			return nil, domain.Validationf("priority must be between 0 and 100")
		}
		rel.Priority = *in.Priority
	}

	if err := s.relationships.Update(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// Activate moves the relationship to ACTIVE. Requires a signed current
// contract; activation is never implicit.
func (s *RelationshipService) Activate(ctx context.Context, actor domain.Actor, id string) (*domain.Relationship, error) {
	rel, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rel.Status.CanTransition(domain.RelationshipActive) {
		return nil, domain.InvalidStatef("relationship in status %s cannot be activated", rel.Status)
	}

	if rel.Status != domain.RelationshipSuspended {
		contract, err := s.contracts.GetCurrentByRelationship(ctx, id)
		if err != nil {
			return nil, err
		}
		if contract == nil || contract.Status != domain.ContractSigned {
			return nil, domain.InvalidStatef("relationship cannot be activated without a signed contract")
		}
	}

	from := rel.Status
	rel.Status = domain.RelationshipActive
	rel.SuspensionReason = ""
	if rel.ActivatedAt == nil {
		now := s.now()
		rel.ActivatedAt = &now
	}

	if err := s.relationships.Update(ctx, rel); err != nil {
		return nil, err
	}

	s.logger.Info("relationship activated",
		slog.String("relationship_id", rel.ID),
		slog.String("from", string(from)),
	)
	metrics.ObserveTransition("relationship", string(domain.RelationshipActive))
	metrics.IncrementActiveRelationships()
	s.publish(rel.ID, string(from), string(rel.Status), actor.ID)
	return rel, nil
}

// Suspend pauses an ACTIVE relationship. A reason is required.
func (s *RelationshipService) Suspend(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Relationship, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domain.Validationf("a reason is required to suspend a relationship")
	}

	rel, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rel.Status.CanTransition(domain.RelationshipSuspended) {
		return nil, domain.InvalidStatef("relationship in status %s cannot be suspended", rel.Status)
	}

	from := rel.Status
	rel.Status = domain.RelationshipSuspended
	rel.SuspensionReason = reason

	if err := s.relationships.Update(ctx, rel); err != nil {
		return nil, err
	}

	metrics.ObserveTransition("relationship", string(domain.RelationshipSuspended))
	metrics.DecrementActiveRelationships()
	s.publish(rel.ID, string(from), string(rel.Status), actor.ID)
	return rel, nil
}

// Terminate permanently dissolves the relationship. TERMINATED is absorbing;
// the pair can only re-partner through a fresh request.
func (s *RelationshipService) Terminate(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Relationship, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domain.Validationf("a reason is required to terminate a relationship")
	}

	rel, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rel.Status.CanTransition(domain.RelationshipTerminated) {
		return nil, domain.InvalidStatef("relationship is already terminated")
	}

	from := rel.Status
	now := s.now()
	rel.Status = domain.RelationshipTerminated
	rel.TerminationReason = reason
	rel.TerminatedAt = &now

	if err := s.relationships.Update(ctx, rel); err != nil {
		return nil, err
	}

	s.logger.Info("relationship terminated",
		slog.String("relationship_id", rel.ID),
		slog.String("actor_id", actor.ID),
	)
	metrics.ObserveTransition("relationship", string(domain.RelationshipTerminated))
	if from == domain.RelationshipActive {
		metrics.DecrementActiveRelationships()
	}
	s.publish(rel.ID, string(from), string(rel.Status), actor.ID)

	other := rel.SupplierID
	if actor.CompanyID == rel.SupplierID {
		other = rel.BrandID
	}
	s.notifier.Notify(ctx, notify.Notification{
		Event:       "relationship.terminated",
		RecipientID: other,
		Subject:     "Partnership terminated",
		Data:        map[string]string{"relationshipId": rel.ID},
	})

	return rel, nil
}

// Stats returns the company's relationship counts grouped by status.
func (s *RelationshipService) Stats(ctx context.Context, actor domain.Actor) (*domain.RelationshipStats, error) {
	asBrand := security.IsBrandRole(security.Role(actor.Role))
	byStatus, err := s.relationships.CountByStatus(ctx, actor.CompanyID, asBrand)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &domain.RelationshipStats{Total: total, ByStatus: byStatus}, nil
}

// GenerateContractInput captures the terms of a new contract draft.
type GenerateContractInput struct {
	Type       string     `json:"type"`
	ValidFrom  *time.Time `json:"validFrom"`
	ValidUntil *time.Time `json:"validUntil"`
	Value      float64    `json:"value"`
	Terms      string     `json:"terms"`
}

// GenerateContract drafts a contract against the relationship. Only the
// brand drafts; a second unresolved contract is a conflict.
func (s *RelationshipService) GenerateContract(ctx context.Context, actor domain.Actor, relationshipID string, in GenerateContractInput) (*domain.Contract, error) {
	rel, err := s.Get(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if rel.BrandID != actor.CompanyID {
		return nil, domain.Forbiddenf("only the brand can generate a contract")
	}
	if rel.Status == domain.RelationshipTerminated {
		return nil, domain.InvalidStatef("cannot generate a contract on a terminated relationship")
	}

	current, err := s.contracts.GetCurrentByRelationship(ctx, relationshipID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Status != domain.ContractSigned && current.Status != domain.ContractRejected {
		return nil, domain.Conflictf("an unresolved contract already exists for this relationship")
	}

	contract := &domain.Contract{
		ID:             uuid.NewString(),
		RelationshipID: relationshipID,
		Type:           in.Type,
		Status:         domain.ContractDraft,
		ValidFrom:      in.ValidFrom,
		ValidUntil:     in.ValidUntil,
		Value:          in.Value,
		Terms:          in.Terms,
	}
	if contract.Type == "" {
		contract.Type = "standard"
	}
	// A signed predecessor makes this an amendment.
	if current != nil && current.Status == domain.ContractSigned {
		contract.ParentContractID = current.ID
	}

	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, err
	}

	s.logger.Info("contract generated",
		slog.String("contract_id", contract.ID),
		slog.String("relationship_id", relationshipID),
	)
	metrics.ObserveTransition("contract", string(domain.ContractDraft))
	return contract, nil
}

// CurrentContract returns the relationship's most recent contract, or a
// NotFound error when none has been generated.
func (s *RelationshipService) CurrentContract(ctx context.Context, actor domain.Actor, relationshipID string) (*domain.Contract, error) {
	if _, err := s.Get(ctx, actor, relationshipID); err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetCurrentByRelationship(ctx, relationshipID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.NotFoundf("no contract exists for relationship %s", relationshipID)
	}
	return contract, nil
}

// SendContract moves a DRAFT contract to SENT_FOR_SIGNATURE.
func (s *RelationshipService) SendContract(ctx context.Context, actor domain.Actor, relationshipID string) (*domain.Contract, error) {
	rel, err := s.Get(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if rel.BrandID != actor.CompanyID {
		return nil, domain.Forbiddenf("only the brand can send a contract for signature")
	}

	contract, err := s.CurrentContract(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.ContractDraft {
		return nil, domain.InvalidStatef("contract in status %s cannot be sent", contract.Status)
	}

	contract.Status = domain.ContractSentForSignature
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	metrics.ObserveTransition("contract", string(domain.ContractSentForSignature))
	s.notifier.Notify(ctx, notify.Notification{
		Event:       "contract.sent",
		RecipientID: rel.SupplierID,
		Subject:     "Contract ready for signature",
		Data:        map[string]string{"contractId": contract.ID, "relationshipId": rel.ID},
	})
	return contract, nil
}

// SignContractInput carries the supplier's signature decision.
type SignContractInput struct {
	Accepted     bool   `json:"accepted"`
	SignedByName string `json:"signedByName"`
}

// SignContract records the supplier's signature or rejection. Contracts can
// only be signed from SENT_FOR_SIGNATURE; signing twice is a conflict.
func (s *RelationshipService) SignContract(ctx context.Context, actor domain.Actor, relationshipID string, in SignContractInput) (*domain.Contract, error) {
	if !security.IsSupplierRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only supplier users can sign a contract")
	}

	rel, err := s.Get(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if rel.SupplierID != actor.CompanyID {
		return nil, domain.Forbiddenf("this contract belongs to another supplier")
	}

	contract, err := s.CurrentContract(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if contract.Status == domain.ContractSigned {
		return nil, domain.Conflictf("contract is already signed")
	}
	if contract.Status != domain.ContractSentForSignature {
		return nil, domain.InvalidStatef("contract in status %s cannot be signed", contract.Status)
	}

	now := s.now()
	if in.Accepted {
		if strings.TrimSpace(in.SignedByName) == "" {
			return nil, domain.Validationf("the signer's name is required")
		}
		contract.Status = domain.ContractSigned
		contract.SignedByName = strings.TrimSpace(in.SignedByName)
		contract.SignedAt = &now
	} else {
		contract.Status = domain.ContractRejected
	}

	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	s.logger.Info("contract signature recorded",
		slog.String("contract_id", contract.ID),
		slog.Bool("accepted", in.Accepted),
	)
	metrics.ObserveTransition("contract", string(contract.Status))
	s.notifier.Notify(ctx, notify.Notification{
		Event:       "contract." + strings.ToLower(string(contract.Status)),
		RecipientID: rel.BrandID,
		Subject:     "Contract signature update",
		Data:        map[string]string{"contractId": contract.ID, "status": string(contract.Status)},
	})
	return contract, nil
}

// RequestRevision lets the supplier ask for changes to a contract awaiting
// signature. One unresolved revision at a time.
func (s *RelationshipService) RequestRevision(ctx context.Context, actor domain.Actor, relationshipID, message string) (*domain.ContractRevision, error) {
	if !security.IsSupplierRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only supplier users can request a contract revision")
	}
	if strings.TrimSpace(message) == "" {
		return nil, domain.Validationf("a revision message is required")
	}

	rel, err := s.Get(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if rel.SupplierID != actor.CompanyID {
		return nil, domain.Forbiddenf("this contract belongs to another supplier")
	}

	contract, err := s.CurrentContract(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.ContractSentForSignature {
		return nil, domain.InvalidStatef("revisions can only be requested on a contract awaiting signature")
	}

	pending, err := s.contracts.PendingRevision(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, domain.Conflictf("a revision request is already pending on this contract")
	}

	rev := &domain.ContractRevision{
		ID:            uuid.NewString(),
		ContractID:    contract.ID,
		RequestedByID: actor.ID,
		Message:       message,
		Status:        domain.RevisionPending,
	}
	if err := s.contracts.AddRevision(ctx, rev); err != nil {
		return nil, err
	}

	contract.Status = domain.ContractRevisionRequested
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	metrics.ObserveTransition("contract", string(domain.ContractRevisionRequested))
	s.notifier.Notify(ctx, notify.Notification{
		Event:       "contract.revision_requested",
		RecipientID: rel.BrandID,
		Subject:     "Contract revision requested",
		Data:        map[string]string{"contractId": contract.ID},
	})
	return rev, nil
}

// RespondRevisionInput carries the brand's answer to a revision request.
type RespondRevisionInput struct {
	Accept        bool   `json:"accept"`
	ResponseNotes string `json:"responseNotes"`
}

// RespondRevision records the brand's answer. Accepting reopens the contract
// as a DRAFT for editing; rejecting returns it to SENT_FOR_SIGNATURE.
func (s *RelationshipService) RespondRevision(ctx context.Context, actor domain.Actor, relationshipID string, in RespondRevisionInput) (*domain.Contract, error) {
	rel, err := s.Get(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if rel.BrandID != actor.CompanyID {
		return nil, domain.Forbiddenf("only the brand can respond to a revision request")
	}

	contract, err := s.CurrentContract(ctx, actor, relationshipID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.ContractRevisionRequested {
		return nil, domain.InvalidStatef("no revision is awaiting a response on this contract")
	}

	rev, err := s.contracts.PendingRevision(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	if rev == nil {
		return nil, domain.InvalidStatef("no pending revision found for this contract")
	}

	now := s.now()
	rev.ResponseNotes = in.ResponseNotes
	rev.RespondedAt = &now
	if in.Accept {
		rev.Status = domain.RevisionAccepted
		contract.Status = domain.ContractDraft
	} else {
		rev.Status = domain.RevisionRejected
		contract.Status = domain.ContractSentForSignature
	}

	if err := s.contracts.UpdateRevision(ctx, rev); err != nil {
		return nil, err
	}
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	metrics.ObserveTransition("contract", string(contract.Status))
	s.notifier.Notify(ctx, notify.Notification{
		Event:       "contract.revision_answered",
		RecipientID: rel.SupplierID,
		Subject:     "Contract revision answered",
		Data:        map[string]string{"contractId": contract.ID, "status": string(contract.Status)},
	})
	return contract, nil
}

// Consent returns the relationship's document-sharing consent view.
func (s *RelationshipService) Consent(ctx context.Context, actor domain.Actor, id string) (*domain.ConsentStatus, error) {
	rel, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &domain.ConsentStatus{
		DocumentSharingConsent: rel.DocumentSharingConsent,
		UpdatedAt:              rel.ConsentUpdatedAt,
		RevokedAt:              rel.ConsentRevokedAt,
		RevocationReason:       rel.ConsentRevocationReason,
	}, nil
}

// UpdateConsent toggles document-sharing consent. Supplier-only: consent
// belongs to the data owner.
func (s *RelationshipService) UpdateConsent(ctx context.Context, actor domain.Actor, id string, granted bool) (*domain.ConsentStatus, error) {
	rel, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if rel.SupplierID != actor.CompanyID || !security.IsSupplierRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only the supplier can change document-sharing consent")
	}
	if rel.Status == domain.RelationshipTerminated {
		return nil, domain.InvalidStatef("consent cannot change on a terminated relationship")
	}

	now := s.now()
	rel.DocumentSharingConsent = granted
	rel.ConsentUpdatedAt = &now

	if err := s.relationships.Update(ctx, rel); err != nil {
		return nil, err
	}
	return &domain.ConsentStatus{
		DocumentSharingConsent: rel.DocumentSharingConsent,
		UpdatedAt:              rel.ConsentUpdatedAt,
	}, nil
}

// RevokeConsent is the LGPD revocation cascade: consent is cleared, the
// revocation stamped and the relationship terminated, all in one
// transaction. Supplier-only and irreversible.
func (s *RelationshipService) RevokeConsent(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Relationship, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domain.Validationf("a reason is required to revoke consent")
	}

	rel, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if rel.SupplierID != actor.CompanyID || !security.IsSupplierRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only the supplier can revoke document-sharing consent")
	}
	if rel.Status == domain.RelationshipTerminated {
		return nil, domain.InvalidStatef("relationship is already terminated")
	}

	from := rel.Status
	updated, err := s.relationships.RevokeConsentAndTerminate(ctx, id, reason, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("consent revoked, relationship terminated",
		slog.String("relationship_id", id),
		slog.String("actor_id", actor.ID),
	)
	metrics.ObserveTransition("relationship", string(domain.RelationshipTerminated))
	if from == domain.RelationshipActive {
		metrics.DecrementActiveRelationships()
	}
	s.publish(id, string(from), string(domain.RelationshipTerminated), actor.ID)

	s.notifier.Notify(ctx, notify.Notification{
		Event:       "consent.revoked",
		RecipientID: updated.BrandID,
		Subject:     "Document-sharing consent revoked",
		Data:        map[string]string{"relationshipId": id},
	})
	return updated, nil
}

func (s *RelationshipService) publish(id, from, to, actorID string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(events.Event{
		Entity:  "relationship",
		ID:      id,
		From:    from,
		To:      to,
		ActorID: actorID,
		At:      s.now(),
	})
}
