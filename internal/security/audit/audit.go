package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger writes request-level audit lines. Lifecycle transition auditing is
// durable (credential_status_history); this log covers who called what.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, companyID, userID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("company_id", companyID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogDenied(ctx context.Context, companyID, userID, reason string) {
	al.LogAction(ctx, companyID, userID, "access_denied", "api", "", "denied", reason)
}
