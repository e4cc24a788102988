package compliance

import (
	"testing"
	"time"

	"github.com/texlink/partnerhub/internal/domain"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestStatusDerivation(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt *time.Time
		hasFile   bool
		want      domain.DocumentStatus
	}{
		{"no file, no expiry", nil, false, domain.DocumentPending},
		{"no file, future expiry", datePtr(now.AddDate(1, 0, 0)), false, domain.DocumentPending},
		{"no file, past expiry", datePtr(now.AddDate(-1, 0, 0)), false, domain.DocumentPending},
		{"file, no expiry", nil, true, domain.DocumentValid},
		{"file, expired yesterday", datePtr(now.AddDate(0, 0, -1)), true, domain.DocumentExpired},
		{"file, expires in 10 days", datePtr(now.AddDate(0, 0, 10)), true, domain.DocumentExpiringSoon},
		{"file, expires in a year", datePtr(now.AddDate(1, 0, 0)), true, domain.DocumentValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Status(tt.expiresAt, tt.hasFile, now)
			if got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusBoundaries(t *testing.T) {
	expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	// Exactly 30 days out the document flips to EXPIRING_SOON.
	atWindow := expires.Add(-DefaultExpiringSoonWindow)
	if got := Status(&expires, true, atWindow); got != domain.DocumentExpiringSoon {
		t.Errorf("at window boundary: got %s, want EXPIRING_SOON", got)
	}
	justBefore := atWindow.Add(-time.Second)
	if got := Status(&expires, true, justBefore); got != domain.DocumentValid {
		t.Errorf("just before window: got %s, want VALID", got)
	}

	// Exactly at expiry the document flips to EXPIRED.
	if got := Status(&expires, true, expires); got != domain.DocumentExpired {
		t.Errorf("at expiry: got %s, want EXPIRED", got)
	}
	if got := Status(&expires, true, expires.Add(-time.Second)); got != domain.DocumentExpiringSoon {
		t.Errorf("just before expiry: got %s, want EXPIRING_SOON", got)
	}
}

func TestStatusIsPure(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := now.AddDate(0, 0, 5)
	first := Status(&expires, true, now)
	for i := 0; i < 10; i++ {
		if got := Status(&expires, true, now); got != first {
			t.Fatalf("identical inputs produced %s then %s", first, got)
		}
	}
}

func TestTally(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	docs := []*domain.SupplierDocument{
		{SupplierID: "s1", FileRef: "f1", ExpiresAt: datePtr(now.AddDate(1, 0, 0))},
		{SupplierID: "s1", FileRef: "f2", ExpiresAt: datePtr(now.AddDate(0, 0, 10))},
		{SupplierID: "s1"},
		{SupplierID: "s2", FileRef: "f3", ExpiresAt: datePtr(now.AddDate(0, 0, -2))},
	}

	s := Tally(docs, now)
	if s.Total != 4 {
		t.Fatalf("total = %d, want 4", s.Total)
	}
	if s.ByStatus[domain.DocumentValid] != 1 || s.ByStatus[domain.DocumentExpiringSoon] != 1 ||
		s.ByStatus[domain.DocumentPending] != 1 || s.ByStatus[domain.DocumentExpired] != 1 {
		t.Errorf("unexpected tally: %+v", s.ByStatus)
	}

	per := TallyBySupplier(docs, now)
	if per["s1"].Total != 3 || per["s2"].Total != 1 {
		t.Errorf("unexpected per-supplier tally: %+v", per)
	}
	if per["s2"].ByStatus[domain.DocumentExpired] != 1 {
		t.Errorf("s2 should have one expired document: %+v", per["s2"].ByStatus)
	}
}
