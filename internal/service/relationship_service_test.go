package service

import (
	"context"
	"testing"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/events"
	"github.com/texlink/partnerhub/internal/notify"
)

func newTestRelationshipService() (*RelationshipService, *memRelationshipRepo, *memContractRepo) {
	rels := newMemRelationshipRepo()
	contracts := newMemContractRepo()
	companies := newMemCompanyRepo()
	companies.byID["brand-1"] = &domain.Company{ID: "brand-1", Name: "Acme", TaxID: "1", Kind: domain.CompanyBrand}
	companies.byID["supplier-1"] = &domain.Company{ID: "supplier-1", Name: "Costura", TaxID: "2", Kind: domain.CompanySupplier}
	companies.byID["supplier-2"] = &domain.Company{ID: "supplier-2", Name: "Tecelagem", TaxID: "3", Kind: domain.CompanySupplier}
	s := NewRelationshipService(rels, contracts, companies, events.NewBroker(), notify.New("", testLogger), testLogger)
	return s, rels, contracts
}

func seedRelationship(rels *memRelationshipRepo, status domain.RelationshipStatus, consent bool) *domain.Relationship {
	rel := &domain.Relationship{
		ID:                     "rel-1",
		BrandID:                "brand-1",
		SupplierID:             "supplier-1",
		Status:                 status,
		InitiatedByID:          "user-1",
		InitiatedByRole:        "brand",
		DocumentSharingConsent: consent,
	}
	rels.Create(context.Background(), rel)
	return rel
}

func TestActivateRequiresSignedContract(t *testing.T) {
	ctx := context.Background()
	s, rels, contracts := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipContractPending, true)

	if _, err := s.Activate(ctx, brandActor, "rel-1"); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state without contract, got %v", err)
	}

	// Walk the contract to SIGNED.
	if _, err := s.GenerateContract(ctx, brandActor, "rel-1", GenerateContractInput{Terms: "net 30"}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := s.Activate(ctx, brandActor, "rel-1"); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state with unsigned contract, got %v", err)
	}
	if _, err := s.SendContract(ctx, brandActor, "rel-1"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := s.SignContract(ctx, supplierActor, "rel-1", SignContractInput{Accepted: true, SignedByName: "Bruna Lima"}); err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	rel, err := s.Activate(ctx, brandActor, "rel-1")
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if rel.Status != domain.RelationshipActive || rel.ActivatedAt == nil {
		t.Fatalf("expected ACTIVE with timestamp, got %+v", rel)
	}

	_ = contracts
}

func TestSuspendAndReactivate(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipActive, true)

	if _, err := s.Suspend(ctx, brandActor, "rel-1", ""); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error without reason, got %v", err)
	}

	rel, err := s.Suspend(ctx, brandActor, "rel-1", "late deliveries")
	if err != nil {
		t.Fatalf("suspend failed: %v", err)
	}
	if rel.Status != domain.RelationshipSuspended || rel.SuspensionReason != "late deliveries" {
		t.Fatalf("unexpected suspension state: %+v", rel)
	}

	// Reactivation from SUSPENDED does not re-check the contract.
	rel, err = s.Activate(ctx, brandActor, "rel-1")
	if err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if rel.Status != domain.RelationshipActive || rel.SuspensionReason != "" {
		t.Fatalf("expected ACTIVE with cleared reason, got %+v", rel)
	}
}

func TestTerminateIsAbsorbing(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipActive, true)

	rel, err := s.Terminate(ctx, brandActor, "rel-1", "contract ended")
	if err != nil {
		t.Fatalf("terminate failed: %v", err)
	}
	if rel.Status != domain.RelationshipTerminated || rel.TerminatedAt == nil {
		t.Fatalf("unexpected termination state: %+v", rel)
	}

	if _, err := s.Terminate(ctx, brandActor, "rel-1", "again"); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state on double terminate, got %v", err)
	}
	if _, err := s.Activate(ctx, brandActor, "rel-1"); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected terminated relationship to refuse activation, got %v", err)
	}
}

func TestContractDoubleSignIsConflict(t *testing.T) {
	ctx := context.Background()
	s, rels, contracts := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipContractPending, true)

	s.GenerateContract(ctx, brandActor, "rel-1", GenerateContractInput{})
	s.SendContract(ctx, brandActor, "rel-1")
	if _, err := s.SignContract(ctx, supplierActor, "rel-1", SignContractInput{Accepted: true, SignedByName: "B"}); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := s.SignContract(ctx, supplierActor, "rel-1", SignContractInput{Accepted: true, SignedByName: "B"}); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict on double sign, got %v", err)
	}

	_ = contracts
}

func TestContractCannotBeSignedFromDraft(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipContractPending, true)

	s.GenerateContract(ctx, brandActor, "rel-1", GenerateContractInput{})
	if _, err := s.SignContract(ctx, supplierActor, "rel-1", SignContractInput{Accepted: true, SignedByName: "B"}); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state signing a draft, got %v", err)
	}
}

func TestSecondUnresolvedContractIsConflict(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipContractPending, true)

	if _, err := s.GenerateContract(ctx, brandActor, "rel-1", GenerateContractInput{}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := s.GenerateContract(ctx, brandActor, "rel-1", GenerateContractInput{}); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAmendmentReferencesSignedParent(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipContractPending, true)

	first, _ := s.GenerateContract(ctx, brandActor, "rel-1", GenerateContractInput{})
	s.SendContract(ctx, brandActor, "rel-1")
	s.SignContract(ctx, supplierActor, "rel-1", SignContractInput{Accepted: true, SignedByName: "B"})

	amendment, err := s.GenerateContract(ctx, brandActor, "rel-1", GenerateContractInput{Terms: "updated"})
	if err != nil {
		t.Fatalf("amendment failed: %v", err)
	}
	if amendment.ParentContractID != first.ID {
		t.Fatalf("expected amendment to reference %s, got %q", first.ID, amendment.ParentContractID)
	}
}

func TestRevisionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipContractPending, true)

	s.GenerateContract(ctx, brandActor, "rel-1", GenerateContractInput{})
	s.SendContract(ctx, brandActor, "rel-1")

	rev, err := s.RequestRevision(ctx, supplierActor, "rel-1", "payment terms too short")
	if err != nil {
		t.Fatalf("request revision failed: %v", err)
	}
	if rev.Status != domain.RevisionPending {
		t.Fatalf("expected PENDING revision, got %s", rev.Status)
	}

	// Only one unresolved revision at a time.
	if _, err := s.RequestRevision(ctx, supplierActor, "rel-1", "also the value"); !domain.IsKind(err, domain.KindInvalidState) && !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected rejection of second revision, got %v", err)
	}

	// Signing is blocked while a revision is open.
	if _, err := s.SignContract(ctx, supplierActor, "rel-1", SignContractInput{Accepted: true, SignedByName: "B"}); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state signing under revision, got %v", err)
	}

	// Accepting reopens the draft.
	contract, err := s.RespondRevision(ctx, brandActor, "rel-1", RespondRevisionInput{Accept: true, ResponseNotes: "will extend"})
	if err != nil {
		t.Fatalf("respond revision failed: %v", err)
	}
	if contract.Status != domain.ContractDraft {
		t.Fatalf("expected DRAFT after accepted revision, got %s", contract.Status)
	}

	// Rejecting a later revision returns the contract to awaiting signature.
	s.SendContract(ctx, brandActor, "rel-1")
	if _, err := s.RequestRevision(ctx, supplierActor, "rel-1", "one more thing"); err != nil {
		t.Fatalf("second revision failed: %v", err)
	}
	contract, err = s.RespondRevision(ctx, brandActor, "rel-1", RespondRevisionInput{Accept: false})
	if err != nil {
		t.Fatalf("respond revision failed: %v", err)
	}
	if contract.Status != domain.ContractSentForSignature {
		t.Fatalf("expected SENT_FOR_SIGNATURE after rejected revision, got %s", contract.Status)
	}
}

func TestConsentUpdateIsSupplierOnly(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipActive, false)

	if _, err := s.UpdateConsent(ctx, brandActor, "rel-1", true); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for brand, got %v", err)
	}

	status, err := s.UpdateConsent(ctx, supplierActor, "rel-1", true)
	if err != nil {
		t.Fatalf("consent update failed: %v", err)
	}
	if !status.DocumentSharingConsent || status.UpdatedAt == nil {
		t.Fatalf("unexpected consent state: %+v", status)
	}
}

func TestRevokeConsentCascade(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipActive, true)

	if _, err := s.RevokeConsent(ctx, supplierActor, "rel-1", ""); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error without reason, got %v", err)
	}
	if _, err := s.RevokeConsent(ctx, brandActor, "rel-1", "x"); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for brand, got %v", err)
	}

	rel, err := s.RevokeConsent(ctx, supplierActor, "rel-1", "leaving the platform")
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if rel.Status != domain.RelationshipTerminated {
		t.Fatalf("expected TERMINATED, got %s", rel.Status)
	}
	if rel.DocumentSharingConsent || rel.ConsentRevokedAt == nil {
		t.Fatalf("expected consent cleared and stamped, got %+v", rel)
	}
	if rel.TerminationReason != "leaving the platform" {
		t.Fatalf("unexpected termination reason: %q", rel.TerminationReason)
	}

	// Revoking on a terminated relationship fails.
	if _, err := s.RevokeConsent(ctx, supplierActor, "rel-1", "again"); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestRelationshipVisibilityScoping(t *testing.T) {
	ctx := context.Background()
	s, rels, _ := newTestRelationshipService()
	seedRelationship(rels, domain.RelationshipActive, true)

	stranger := domain.Actor{ID: "user-x", CompanyID: "brand-9", Role: "brand_admin"}
	if _, err := s.Get(ctx, stranger, "rel-1"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
}

func TestCreateRelationshipDirect(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestRelationshipService()

	rel, err := s.Create(ctx, brandActor, CreateRelationshipInput{SupplierID: "supplier-1", InternalCode: "SUP-001", Priority: 3})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if rel.Status != domain.RelationshipContractPending {
		t.Fatalf("expected CONTRACT_PENDING, got %s", rel.Status)
	}
	if rel.BrandID != "brand-1" || rel.SupplierID != "supplier-1" || rel.InitiatedByRole != "brand" {
		t.Fatalf("unexpected relationship: %+v", rel)
	}

	// Second relationship with the same supplier conflicts.
	if _, err := s.Create(ctx, brandActor, CreateRelationshipInput{SupplierID: "supplier-1"}); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := s.Create(ctx, supplierActor, CreateRelationshipInput{SupplierID: "supplier-2"}); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for supplier actor, got %v", err)
	}
	if _, err := s.Create(ctx, brandActor, CreateRelationshipInput{SupplierID: "brand-1"}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation for self target, got %v", err)
	}
}

func TestAvailableSuppliers(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestRelationshipService()

	available, err := s.AvailableSuppliers(ctx, brandActor)
	if err != nil {
		t.Fatalf("available failed: %v", err)
	}
	if len(available) != 2 {
		t.Fatalf("expected 2 available suppliers, got %d", len(available))
	}

	if _, err := s.Create(ctx, brandActor, CreateRelationshipInput{SupplierID: "supplier-1"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	available, err = s.AvailableSuppliers(ctx, brandActor)
	if err != nil {
		t.Fatalf("available failed: %v", err)
	}
	if len(available) != 1 || available[0].ID != "supplier-2" {
		t.Fatalf("expected only supplier-2 available, got %+v", available)
	}

	if _, err := s.AvailableSuppliers(ctx, supplierActor); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for supplier actor, got %v", err)
	}
}
