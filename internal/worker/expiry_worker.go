package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/texlink/partnerhub/internal/compliance"
	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/observability/metrics"
)

// ExpiryWorker periodically flips overdue PENDING partnership requests to
// EXPIRED and refreshes the document compliance gauges. Reads already treat
// overdue requests as expired, so the sweep only reconciles storage.
type ExpiryWorker struct {
	requests  domain.PartnershipRequestRepository
	documents domain.DocumentRepository
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(
	requests domain.PartnershipRequestRepository,
	documents domain.DocumentRepository,
	logger *slog.Logger,
	interval time.Duration,
) *ExpiryWorker {
	return &ExpiryWorker{
		requests:  requests,
		documents: documents,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
	}
}

// Start begins the sweep loop. One sweep runs immediately so a restart
// does not wait a full interval to reconcile.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("expiry worker started", slog.Duration("interval", w.interval))
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass.
func (w *ExpiryWorker) Sweep(ctx context.Context) {
	now := w.now()

	expired, err := w.requests.MarkExpiredBefore(ctx, now)
	if err != nil {
		w.logger.Error("failed to expire partnership requests",
			slog.String("error", err.Error()),
		)
		metrics.ObserveExpirySweep("error", 0)
	} else {
		if expired > 0 {
			w.logger.Info("expired overdue partnership requests", slog.Int64("count", expired))
		}
		metrics.ObserveExpirySweep("ok", expired)
	}

	w.refreshDocumentGauges(ctx, now)
}

// refreshDocumentGauges recomputes the platform-wide document status
// distribution for the metrics endpoint.
func (w *ExpiryWorker) refreshDocumentGauges(ctx context.Context, now time.Time) {
	docs, err := w.documents.ListAll(ctx)
	if err != nil {
		w.logger.Error("failed to list documents for gauges",
			slog.String("error", err.Error()),
		)
		return
	}

	summary := compliance.Tally(docs, now)
	for _, status := range []domain.DocumentStatus{
		domain.DocumentPending, domain.DocumentValid,
		domain.DocumentExpiringSoon, domain.DocumentExpired,
	} {
		metrics.SetDocumentsByStatus(string(status), summary.ByStatus[status])
	}
}
