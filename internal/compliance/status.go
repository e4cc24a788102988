// Package compliance derives document compliance status from expiry and file
// presence. Status is a pure function of its inputs and is recomputed on
// every read so the boundary crosses as wall-clock time advances.
package compliance

import (
	"time"

	"github.com/texlink/partnerhub/internal/domain"
)

// DefaultExpiringSoonWindow is how far ahead of expiry a document starts
// reading as EXPIRING_SOON.
const DefaultExpiringSoonWindow = 30 * 24 * time.Hour

// StatusWithWindow derives the compliance status of a document.
//
// No file uploaded reads as PENDING regardless of expiry. With a file, a
// missing expiry date means a non-expiring document class (VALID); otherwise
// the expiry date is compared against now and the window.
func StatusWithWindow(expiresAt *time.Time, hasFile bool, now time.Time, window time.Duration) domain.DocumentStatus {
	if !hasFile {
		return domain.DocumentPending
	}
	if expiresAt == nil {
		return domain.DocumentValid
	}
	if !expiresAt.After(now) {
		return domain.DocumentExpired
	}
	if !expiresAt.After(now.Add(window)) {
		return domain.DocumentExpiringSoon
	}
	return domain.DocumentValid
}

// Status derives the compliance status using the default 30-day window.
func Status(expiresAt *time.Time, hasFile bool, now time.Time) domain.DocumentStatus {
	return StatusWithWindow(expiresAt, hasFile, now, DefaultExpiringSoonWindow)
}

// DocumentStatus derives the status of a supplier document.
func DocumentStatus(d *domain.SupplierDocument, now time.Time) domain.DocumentStatus {
	return Status(d.ExpiresAt, d.HasFile(), now)
}

// Summary tallies documents per derived status.
type Summary struct {
	Total    int                           `json:"total"`
	ByStatus map[domain.DocumentStatus]int `json:"byStatus"`
}

// Tally runs the derivation over a document set and counts per status.
func Tally(docs []*domain.SupplierDocument, now time.Time) Summary {
	s := Summary{ByStatus: map[domain.DocumentStatus]int{}}
	for _, d := range docs {
		s.Total++
		s.ByStatus[DocumentStatus(d, now)]++
	}
	return s
}

// TallyBySupplier runs the derivation over a document set and counts per
// supplier and status.
func TallyBySupplier(docs []*domain.SupplierDocument, now time.Time) map[string]Summary {
	out := map[string]Summary{}
	for _, d := range docs {
		s, ok := out[d.SupplierID]
		if !ok {
			s = Summary{ByStatus: map[domain.DocumentStatus]int{}}
		}
		s.Total++
		s.ByStatus[DocumentStatus(d, now)]++
		out[d.SupplierID] = s
	}
	return out
}
