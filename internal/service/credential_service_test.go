package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/events"
	"github.com/texlink/partnerhub/internal/notify"
)

var testLogger = slog.Default()

func newTestCredentialService() (*CredentialService, *memCredentialRepo) {
	repo := newMemCredentialRepo()
	s := NewCredentialService(repo, nil, events.NewBroker(), notify.New("", testLogger), testLogger)
	return s, repo
}

var brandActor = domain.Actor{ID: "user-1", CompanyID: "brand-1", Role: "brand_admin"}

func TestCreateCredentialNormalizesTaxID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	c, err := s.Create(ctx, brandActor, CreateCredentialInput{
		TaxID:        "12.345.678/0001-95",
		ContactName:  "Maria",
		ContactEmail: "maria@example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if c.TaxID != "12345678000195" {
		t.Fatalf("expected normalized tax ID, got %s", c.TaxID)
	}
	if c.Status != domain.CredentialDraft {
		t.Fatalf("expected DRAFT, got %s", c.Status)
	}
}

func TestCreateCredentialRejectsDuplicateTaxID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	in := CreateCredentialInput{TaxID: "12345678000195", ContactName: "Maria", ContactEmail: "m@x.com"}
	if _, err := s.Create(ctx, brandActor, in); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	// Same digits under different formatting still collide.
	in.TaxID = "12.345.678/0001-95"
	if _, err := s.Create(ctx, brandActor, in); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// A different brand can register the same tax ID.
	other := domain.Actor{ID: "user-2", CompanyID: "brand-2", Role: "brand_admin"}
	if _, err := s.Create(ctx, other, in); err != nil {
		t.Fatalf("create for other brand failed: %v", err)
	}
}

func TestBlockedCredentialFreesTaxID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	in := CreateCredentialInput{TaxID: "12345678000195", ContactName: "Maria", ContactEmail: "m@x.com"}
	c, err := s.Create(ctx, brandActor, in)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialBlocked, "gave up"); err != nil {
		t.Fatalf("block failed: %v", err)
	}
	if _, err := s.Create(ctx, brandActor, in); err != nil {
		t.Fatalf("expected blocked credential to free the tax ID: %v", err)
	}
}

func TestChangeStatusHonorsTransitionTable(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	c, err := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "12345678000195", ContactName: "M", ContactEmail: "m@x.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Skipping ahead is rejected.
	if _, err := s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialActive, ""); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state for skip, got %v", err)
	}

	// Walk the pipeline forward.
	steps := []domain.CredentialStatus{
		domain.CredentialPendingValidation,
		domain.CredentialInvitationSent,
		domain.CredentialContractPending,
		domain.CredentialContractSigned,
		domain.CredentialActive,
	}
	for _, to := range steps {
		if c, err = s.ChangeStatus(ctx, brandActor, c.ID, to, ""); err != nil {
			t.Fatalf("transition to %s failed: %v", to, err)
		}
	}
	if c.CompletedAt == nil {
		t.Fatalf("expected completedAt stamped on activation")
	}

	// Backward is rejected, and ACTIVE cannot be blocked.
	if _, err := s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialDraft, ""); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state for backward move, got %v", err)
	}
	if _, err := s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialBlocked, "x"); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state blocking an active credential, got %v", err)
	}
}

func TestChangeStatusBlockRequiresReason(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	c, _ := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "12345678000195", ContactName: "M", ContactEmail: "m@x.com"})
	if _, err := s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialBlocked, "  "); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestChangeStatusWritesHistory(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestCredentialService()

	c, _ := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "12345678000195", ContactName: "M", ContactEmail: "m@x.com"})
	if _, err := s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialPendingValidation, "docs received"); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	history := repo.history[c.ID]
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	if history[0].FromStatus != nil || history[0].ToStatus != domain.CredentialDraft {
		t.Fatalf("expected creation row nil -> DRAFT")
	}
	if history[1].FromStatus == nil || *history[1].FromStatus != domain.CredentialDraft {
		t.Fatalf("expected second row from DRAFT")
	}
	if history[1].Reason != "docs received" {
		t.Fatalf("expected reason recorded, got %q", history[1].Reason)
	}
}

func TestUpdateCredentialOnlyWhileDraft(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	c, _ := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "12345678000195", ContactName: "M", ContactEmail: "m@x.com"})
	name := "New Name"
	if _, err := s.Update(ctx, brandActor, c.ID, UpdateCredentialInput{ContactName: &name}); err != nil {
		t.Fatalf("draft edit failed: %v", err)
	}

	// Any status past DRAFT makes the record read-only.
	s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialPendingValidation, "")
	if _, err := s.Update(ctx, brandActor, c.ID, UpdateCredentialInput{ContactName: &name}); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state editing in PENDING_VALIDATION, got %v", err)
	}

	s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialInvitationSent, "")
	if _, err := s.Update(ctx, brandActor, c.ID, UpdateCredentialInput{ContactName: &name}); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state editing after invitation, got %v", err)
	}
}

func TestUpdateTaxIDInvalidatesValidations(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestCredentialService()

	c, _ := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "12345678000195", ContactName: "M", ContactEmail: "m@x.com"})
	if _, err := s.AddValidation(ctx, brandActor, c.ID, "registry_check", true, "ok"); err != nil {
		t.Fatalf("add validation failed: %v", err)
	}

	newTax := "11222333000181"
	if _, err := s.Update(ctx, brandActor, c.ID, UpdateCredentialInput{TaxID: &newTax}); err != nil {
		t.Fatalf("tax ID update failed: %v", err)
	}
	for _, v := range repo.validations[c.ID] {
		if v.IsValid {
			t.Fatalf("expected validations invalidated after tax ID change")
		}
	}
}

func TestRemoveOnlyFromDraft(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	c, _ := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "12345678000195", ContactName: "M", ContactEmail: "m@x.com"})
	s.ChangeStatus(ctx, brandActor, c.ID, domain.CredentialPendingValidation, "")
	if err := s.Remove(ctx, brandActor, c.ID, ""); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state removing non-draft, got %v", err)
	}

	c2, _ := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "11222333000181", ContactName: "M", ContactEmail: "m@x.com"})
	if err := s.Remove(ctx, brandActor, c2.ID, ""); err != nil {
		t.Fatalf("remove from draft failed: %v", err)
	}
	got, _ := s.Get(ctx, brandActor, c2.ID)
	if got.Status != domain.CredentialBlocked {
		t.Fatalf("expected BLOCKED after remove, got %s", got.Status)
	}
}

func TestCredentialOwnershipScoping(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	c, _ := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "12345678000195", ContactName: "M", ContactEmail: "m@x.com"})
	other := domain.Actor{ID: "user-9", CompanyID: "brand-9", Role: "brand_admin"}
	if _, err := s.Get(ctx, other, c.ID); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found for foreign brand, got %v", err)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCredentialService()

	// Empty funnel: defined, all-zero stats.
	stats, err := s.Stats(ctx, brandActor)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 0 || stats.ConversionRate != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}

	c1, _ := s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "12345678000195", ContactName: "M", ContactEmail: "m@x.com"})
	s.Create(ctx, brandActor, CreateCredentialInput{TaxID: "11222333000181", ContactName: "N", ContactEmail: "n@x.com"})

	for _, to := range []domain.CredentialStatus{
		domain.CredentialPendingValidation, domain.CredentialInvitationSent,
		domain.CredentialContractPending, domain.CredentialContractSigned, domain.CredentialActive,
	} {
		if _, err := s.ChangeStatus(ctx, brandActor, c1.ID, to, ""); err != nil {
			t.Fatalf("transition failed: %v", err)
		}
	}

	stats, err = s.Stats(ctx, brandActor)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("expected total 2, got %d", stats.Total)
	}
	if stats.ConversionRate != 50 {
		t.Fatalf("expected conversion rate 50, got %v", stats.ConversionRate)
	}
	if stats.CreatedThisMonth != 2 || stats.CompletedThisMonth != 1 {
		t.Fatalf("unexpected monthly counts: %+v", stats)
	}
}
