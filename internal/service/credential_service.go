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
)

// CredentialService handles the brand-side supplier onboarding funnel.
type CredentialService struct {
	credentials domain.CredentialRepository
	transitions domain.CredentialTransitions
	broker      *events.Broker
	notifier    notify.Notifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewCredentialService creates a new credential service. transitions may be
// nil, in which case the default forward-only table is used.
func NewCredentialService(
	credentials domain.CredentialRepository,
	transitions domain.CredentialTransitions,
	broker *events.Broker,
	notifier notify.Notifier,
	logger *slog.Logger,
) *CredentialService {
	if transitions == nil {
		transitions = domain.DefaultCredentialTransitions()
	}
	return &CredentialService{
		credentials: credentials,
		transitions: transitions,
		broker:      broker,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateCredentialInput captures a new onboarding record.
type CreateCredentialInput struct {
	TaxID        string `json:"taxId"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
	TradeName    string `json:"tradeName"`
	InternalCode string `json:"internalCode"`
	Category     string `json:"category"`
	Notes        string `json:"notes"`
	Priority     *int   `json:"priority"`
}

// UpdateCredentialInput carries draft edits. Nil fields are left unchanged.
type UpdateCredentialInput struct {
	TaxID        *string `json:"taxId"`
	ContactName  *string `json:"contactName"`
	ContactEmail *string `json:"contactEmail"`
	ContactPhone *string `json:"contactPhone"`
	TradeName    *string `json:"tradeName"`
	InternalCode *string `json:"internalCode"`
	Category     *string `json:"category"`
	Notes        *string `json:"notes"`
	Priority     *int    `json:"priority"`
}

// normalizeTaxID strips formatting and validates the 14-digit CNPJ shape.
func normalizeTaxID(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 14 {
		return "", domain.Validationf("tax ID must contain exactly 14 digits")
	}
	return digits, nil
}

// Create registers a new credential in DRAFT for the actor's brand.
func (s *CredentialService) Create(ctx context.Context, actor domain.Actor, in CreateCredentialInput) (*domain.Credential, error) {
	taxID, err := normalizeTaxID(in.TaxID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ContactName) == "" {
		return nil, domain.Validationf("contact name is required")
	}
	if strings.TrimSpace(in.ContactEmail) == "" {
		return nil, domain.Validationf("contact email is required")
	}

	existing, err := s.credentials.FindActiveByTaxID(ctx, actor.CompanyID, taxID, "")
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Conflictf("an active credential already exists for tax ID %s", taxID)
	}

	priority := 50
	if in.Priority != nil {
		if *in.Priority < 0 || *in.Priority > 100 {
			return nil, domain.Validationf("priority must be between 0 and 100")
		}
		priority = *in.Priority
	}

	c := &domain.Credential{
		ID:           uuid.NewString(),
		BrandID:      actor.CompanyID,
		TaxID:        taxID,
		ContactName:  strings.TrimSpace(in.ContactName),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		TradeName:    strings.TrimSpace(in.TradeName),
		InternalCode: strings.TrimSpace(in.InternalCode),
		Category:     strings.TrimSpace(in.Category),
		Notes:        in.Notes,
		Priority:     priority,
		Status:       domain.CredentialDraft,
	}

	if err := s.credentials.Create(ctx, c, actor.ID); err != nil {
		return nil, err
	}

	s.logger.Info("credential created",
		slog.String("credential_id", c.ID),
		slog.String("brand_id", c.BrandID),
	)
	metrics.ObserveTransition("credential", string(domain.CredentialDraft))
	s.publish("credential", c.ID, "", string(c.Status), actor.ID)

	return c, nil
}

// Get returns the credential, enforcing brand ownership.
func (s *CredentialService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Credential, error) {
	c, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.BrandID != actor.CompanyID {
		return nil, domain.NotFoundf("credential %s not found", id)
	}
	return c, nil
}

// Update edits a credential. Only DRAFT records may change; once submitted
// for validation the record is read-only. Changing the tax ID re-checks
// uniqueness and invalidates prior validation results.
func (s *CredentialService) Update(ctx context.Context, actor domain.Actor, id string, in UpdateCredentialInput) (*domain.Credential, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CredentialDraft {
		return nil, domain.InvalidStatef("credential in status %s cannot be edited", c.Status)
	}

	taxIDChanged := false
	if in.TaxID != nil {
		taxID, err := normalizeTaxID(*in.TaxID)
		if err != nil {
			return nil, err
		}
		if taxID != c.TaxID {
			dup, err := s.credentials.FindActiveByTaxID(ctx, actor.CompanyID, taxID, c.ID)
			if err != nil {
				return nil, err
			}
			if dup != nil {
				return nil, domain.Conflictf("an active credential already exists for tax ID %s", taxID)
			}
			c.TaxID = taxID
			taxIDChanged = true
		}
	}
	if in.ContactName != nil {
		if strings.TrimSpace(*in.ContactName) == "" {
			return nil, domain.Validationf("contact name is required")
		}
		c.ContactName = strings.TrimSpace(*in.ContactName)
	}
	if in.ContactEmail != nil {
		if strings.TrimSpace(*in.ContactEmail) == "" {
			return nil, domain.Validationf("contact email is required")
		}
		c.ContactEmail = strings.TrimSpace(*in.ContactEmail)
	}
	if in.ContactPhone != nil {
		c.ContactPhone = strings.TrimSpace(*in.ContactPhone)
	}
	if in.TradeName != nil {
		c.TradeName = strings.TrimSpace(*in.TradeName)
	}
	if in.InternalCode != nil {
		c.InternalCode = strings.TrimSpace(*in.InternalCode)
	}
	if in.Category != nil {
		c.Category = strings.TrimSpace(*in.Category)
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
	if in.Priority != nil {
		if *in.Priority < 0 || *in.Priority > 100 {
			return nil, domain.Validationf("priority must be between 0 and 100")
		}
		c.Priority = *in.Priority
	}

	if err := s.credentials.Update(ctx, c, taxIDChanged); err != nil {
		return nil, err
	}
	if taxIDChanged {
		s.logger.Info("credential tax ID changed, validations invalidated",
			slog.String("credential_id", c.ID),
		)
	}
	return c, nil
}

// ChangeStatus moves the credential along the onboarding pipeline. Illegal
// jumps are rejected against the transitions table; the history row is
// written atomically with the change.
func (s *CredentialService) ChangeStatus(ctx context.Context, actor domain.Actor, id string, to domain.CredentialStatus, reason string) (*domain.Credential, error) {
	if !to.Valid() {
		return nil, domain.Validationf("unknown credential status %q", to)
	}

	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.Status == to {
		return nil, domain.InvalidStatef("credential is already %s", to)
	}
	if !s.transitions.Allows(c.Status, to) {
		return nil, domain.InvalidStatef("transition %s -> %s is not allowed", c.Status, to)
	}
	if to == domain.CredentialBlocked && strings.TrimSpace(reason) == "" {
		return nil, domain.Validationf("a reason is required to block a credential")
	}

	from := c.Status
	var completedAt *time.Time
	if to == domain.CredentialActive && c.CompletedAt == nil {
		t := s.now()
		completedAt = &t
	}

	if err := s.credentials.ChangeStatus(ctx, c.ID, &from, to, actor.ID, reason, completedAt); err != nil {
		return nil, err
	}

	c.Status = to
	if completedAt != nil {
		c.CompletedAt = completedAt
	}

	s.logger.Info("credential status changed",
		slog.String("credential_id", c.ID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("actor_id", actor.ID),
	)
	metrics.ObserveTransition("credential", string(to))
	s.publish("credential", c.ID, string(from), string(to), actor.ID)

	if to == domain.CredentialInvitationSent {
		s.notifier.Notify(ctx, notify.Notification{
			Event:       "credential.invitation_sent",
			RecipientID: c.ContactEmail,
			Subject:     "You have been invited to join the platform",
			Data:        map[string]string{"credentialId": c.ID},
		})
	}

	return c, nil
}

// Remove blocks a DRAFT credential. There is no hard delete; the record
// stays for the audit trail and the tax ID is freed for re-registration.
func (s *CredentialService) Remove(ctx context.Context, actor domain.Actor, id, reason string) error {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if c.Status != domain.CredentialDraft {
		return domain.InvalidStatef("only draft credentials can be removed; block the credential instead")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "removed before onboarding started"
	}

	from := c.Status
	if err := s.credentials.ChangeStatus(ctx, c.ID, &from, domain.CredentialBlocked, actor.ID, reason, nil); err != nil {
		return err
	}

	metrics.ObserveTransition("credential", string(domain.CredentialBlocked))
	s.publish("credential", c.ID, string(from), string(domain.CredentialBlocked), actor.ID)
	return nil
}

// List returns the brand's credentials matching the filter plus the total
// count before pagination.
func (s *CredentialService) List(ctx context.Context, actor domain.Actor, f domain.CredentialFilter) ([]*domain.Credential, int, error) {
	return s.credentials.List(ctx, actor.CompanyID, f)
}

// History returns the append-only status trail for a credential.
func (s *CredentialService) History(ctx context.Context, actor domain.Actor, id string) ([]*domain.CredentialStatusHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.credentials.History(ctx, id)
}

// Validations returns the verification checks recorded for a credential.
func (s *CredentialService) Validations(ctx context.Context, actor domain.Actor, id string) ([]*domain.CredentialValidation, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.credentials.Validations(ctx, id)
}

// AddValidation records the result of a verification check.
func (s *CredentialService) AddValidation(ctx context.Context, actor domain.Actor, id, kind string, isValid bool, details string) (*domain.CredentialValidation, error) {
	if strings.TrimSpace(kind) == "" {
		return nil, domain.Validationf("validation kind is required")
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	v := &domain.CredentialValidation{
		ID:           uuid.NewString(),
		CredentialID: id,
		Kind:         kind,
		IsValid:      isValid,
		Details:      details,
	}
	if err := s.credentials.AddValidation(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Stats aggregates the brand's onboarding funnel. Conversion rate is the
// share of credentials that reached ACTIVE.
func (s *CredentialService) Stats(ctx context.Context, actor domain.Actor) (*domain.CredentialStats, error) {
	byStatus, err := s.credentials.CountByStatus(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}

	stats := &domain.CredentialStats{
		Total:    total,
		ByStatus: byStatus,
		PendingAction: byStatus[domain.CredentialDraft] +
			byStatus[domain.CredentialPendingValidation] +
			byStatus[domain.CredentialContractSigned],
		AwaitingResponse: byStatus[domain.CredentialInvitationSent] +
			byStatus[domain.CredentialContractPending],
	}
	if total > 0 {
		stats.ConversionRate = 100 * float64(byStatus[domain.CredentialActive]) / float64(total)
	}

	monthStart := s.monthStart()
	if stats.CreatedThisMonth, err = s.credentials.CountCreatedSince(ctx, actor.CompanyID, monthStart); err != nil {
		return nil, err
	}
	if stats.CompletedThisMonth, err = s.credentials.CountCompletedSince(ctx, actor.CompanyID, monthStart); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *CredentialService) monthStart() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (s *CredentialService) publish(entity, id, from, to, actorID string) {
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
