package service

import (
	"context"
	"testing"
	"time"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/pkg/cache"
)

func newTestDocumentService() (*DocumentService, *memDocumentRepo, *memRelationshipRepo) {
	docs := newMemDocumentRepo()
	rels := newMemRelationshipRepo()
	s := NewDocumentService(docs, rels, nil, 0, 30, testLogger)
	return s, docs, rels
}

func TestUpsertDerivesStatus(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestDocumentService()

	future := time.Now().Add(90 * 24 * time.Hour)
	v, err := s.Upsert(ctx, supplierActor, UpsertDocumentInput{
		Type:      "insurance_certificate",
		ExpiresAt: &future,
		FileRef:   "s3://docs/ins.pdf",
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if v.Status != domain.DocumentValid {
		t.Fatalf("expected VALID, got %s", v.Status)
	}

	// No file yet means PENDING regardless of expiry.
	v, err = s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "tax_clearance", ExpiresAt: &future})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if v.Status != domain.DocumentPending {
		t.Fatalf("expected PENDING without file, got %s", v.Status)
	}
}

func TestUpsertReplacesSameSlot(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestDocumentService()

	in := UpsertDocumentInput{Type: "payroll", CompetenceMonth: 5, CompetenceYear: 2026, FileRef: "v1.pdf"}
	first, err := s.Upsert(ctx, supplierActor, in)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	in.FileRef = "v2.pdf"
	second, err := s.Upsert(ctx, supplierActor, in)
	if err != nil {
		t.Fatalf("re-upsert failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same slot to keep its ID")
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected one stored document, got %d", len(repo.byID))
	}
	if repo.byID[first.ID].FileRef != "v2.pdf" {
		t.Fatalf("expected replacement, got %s", repo.byID[first.ID].FileRef)
	}
}

func TestUpsertIsSupplierOnly(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestDocumentService()

	if _, err := s.Upsert(ctx, brandActor, UpsertDocumentInput{Type: "payroll"}); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListFiltersByDerivedStatus(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestDocumentService()

	past := time.Now().Add(-time.Hour)
	soon := time.Now().Add(10 * 24 * time.Hour)
	far := time.Now().Add(120 * 24 * time.Hour)
	s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "a", ExpiresAt: &past, FileRef: "a.pdf"})
	s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "b", ExpiresAt: &soon, FileRef: "b.pdf"})
	s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "c", ExpiresAt: &far, FileRef: "c.pdf"})

	views, err := s.List(ctx, supplierActor, domain.DocumentFilter{Status: domain.DocumentExpiringSoon})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 1 || views[0].Type != "b" {
		t.Fatalf("expected just the expiring document, got %+v", views)
	}
}

func TestBrandReadRequiresConsent(t *testing.T) {
	ctx := context.Background()
	s, _, rels := newTestDocumentService()

	s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "payroll", FileRef: "p.pdf"})

	// No relationship at all.
	if _, err := s.List(ctx, brandActor, domain.DocumentFilter{SupplierID: "supplier-1"}); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden without relationship, got %v", err)
	}

	// Relationship without consent.
	rel := seedRelationship(rels, domain.RelationshipActive, false)
	if _, err := s.List(ctx, brandActor, domain.DocumentFilter{SupplierID: "supplier-1"}); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden without consent, got %v", err)
	}

	// Consent granted.
	rel.DocumentSharingConsent = true
	rels.Update(ctx, rel)
	views, err := s.List(ctx, brandActor, domain.DocumentFilter{SupplierID: "supplier-1"})
	if err != nil {
		t.Fatalf("list with consent failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 document, got %d", len(views))
	}
}

func TestSupplierSummary(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestDocumentService()

	past := time.Now().Add(-time.Hour)
	far := time.Now().Add(120 * 24 * time.Hour)
	s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "a", ExpiresAt: &past, FileRef: "a.pdf"})
	s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "b", ExpiresAt: &far, FileRef: "b.pdf"})
	s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "c"})

	summary, err := s.SupplierSummary(ctx, supplierActor, "")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Total != 3 {
		t.Fatalf("expected total 3, got %d", summary.Total)
	}
	if summary.ByStatus[domain.DocumentExpired] != 1 ||
		summary.ByStatus[domain.DocumentValid] != 1 ||
		summary.ByStatus[domain.DocumentPending] != 1 {
		t.Fatalf("unexpected tallies: %+v", summary.ByStatus)
	}
}

func TestSummaryDerivesFreshStatusOnCacheHit(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocumentRepo()
	rels := newMemRelationshipRepo()
	s := NewDocumentService(docs, rels, cache.New(), time.Hour, 30, testLogger)

	base := time.Now()
	s.now = func() time.Time { return base }

	expiry := base.Add(10 * 24 * time.Hour)
	if _, err := s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "payroll", ExpiresAt: &expiry, FileRef: "p.pdf"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	summary, err := s.SupplierSummary(ctx, supplierActor, "")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.ByStatus[domain.DocumentExpiringSoon] != 1 {
		t.Fatalf("expected EXPIRING_SOON before expiry, got %+v", summary.ByStatus)
	}

	// The cached rows are still fresh, but the clock has crossed the
	// expiry boundary. The tally must rederive, not replay old counts.
	s.now = func() time.Time { return base.Add(11 * 24 * time.Hour) }
	summary, err = s.SupplierSummary(ctx, supplierActor, "")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.ByStatus[domain.DocumentExpired] != 1 || summary.ByStatus[domain.DocumentExpiringSoon] != 0 {
		t.Fatalf("expected EXPIRED after the boundary, got %+v", summary.ByStatus)
	}
}

func TestPlatformSummary(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestDocumentService()

	otherSupplier := domain.Actor{ID: "user-s2", CompanyID: "supplier-2", Role: "supplier_admin"}
	far := time.Now().Add(120 * 24 * time.Hour)
	s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "a", ExpiresAt: &far, FileRef: "a.pdf"})
	s.Upsert(ctx, otherSupplier, UpsertDocumentInput{Type: "b"})

	bySupplier, err := s.PlatformSummary(ctx, brandActor)
	if err != nil {
		t.Fatalf("platform summary failed: %v", err)
	}
	if len(bySupplier) != 2 {
		t.Fatalf("expected 2 suppliers, got %d", len(bySupplier))
	}
	if bySupplier["supplier-1"].ByStatus[domain.DocumentValid] != 1 {
		t.Fatalf("unexpected supplier-1 tally: %+v", bySupplier["supplier-1"].ByStatus)
	}
	if bySupplier["supplier-2"].ByStatus[domain.DocumentPending] != 1 {
		t.Fatalf("unexpected supplier-2 tally: %+v", bySupplier["supplier-2"].ByStatus)
	}

	if _, err := s.PlatformSummary(ctx, supplierActor); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for supplier actor, got %v", err)
	}
}

func TestUpsertCompetenceMonthBounds(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestDocumentService()

	// 0 is the no-competence sentinel for dateless documents.
	if _, err := s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "alvara"}); err != nil {
		t.Fatalf("expected month 0 accepted, got %v", err)
	}
	if _, err := s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "payroll", CompetenceMonth: 13, CompetenceYear: 2026}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation for month 13, got %v", err)
	}
	if _, err := s.Upsert(ctx, supplierActor, UpsertDocumentInput{Type: "payroll", CompetenceMonth: -1, CompetenceYear: 2026}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation for negative month, got %v", err)
	}
}
