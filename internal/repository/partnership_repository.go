package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/texlink/partnerhub/internal/domain"
)

// PostgresPartnershipRequestRepository implements
// domain.PartnershipRequestRepository using PostgreSQL
type PostgresPartnershipRequestRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPartnershipRequestRepository creates a new partnership request repository
func NewPostgresPartnershipRequestRepository(db *sql.DB, logger *slog.Logger) *PostgresPartnershipRequestRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPartnershipRequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `id, brand_id, supplier_id, requested_by, status, message, responded_by,
	responded_at, rejection_reason, document_sharing_consent, expires_at, relationship_id, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (*domain.PartnershipRequest, error) {
	r := &domain.PartnershipRequest{}
	var respondedBy, relationshipID sql.NullString
	var respondedAt sql.NullTime
	err := row.Scan(
		&r.ID,
		&r.BrandID,
		&r.SupplierID,
		&r.RequestedByID,
		&r.Status,
		&r.Message,
		&respondedBy,
		&respondedAt,
		&r.RejectionReason,
		&r.DocumentSharingConsent,
		&r.ExpiresAt,
		&relationshipID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.RespondedByID = respondedBy.String
	r.RespondedAt = timePtr(respondedAt)
	r.RelationshipID = relationshipID.String
	return r, nil
}

// Create inserts the request. A concurrent duplicate PENDING insert for the
// same pair hits the partial unique index and surfaces as Conflict.
func (r *PostgresPartnershipRequestRepository) Create(ctx context.Context, req *domain.PartnershipRequest) error {
	query := `
		INSERT INTO partnership_requests (id, brand_id, supplier_id, requested_by, status, message,
			document_sharing_consent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		req.ID,
		req.BrandID,
		req.SupplierID,
		req.RequestedByID,
		req.Status,
		req.Message,
		req.DocumentSharingConsent,
		req.ExpiresAt,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("a pending request already exists for this supplier")
		}
		r.logger.Error("failed to create partnership request",
			slog.String("brand_id", req.BrandID),
			slog.String("supplier_id", req.SupplierID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create partnership request: %w", err)
	}

	return nil
}

// GetByID retrieves a request by ID
func (r *PostgresPartnershipRequestRepository) GetByID(ctx context.Context, id string) (*domain.PartnershipRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM partnership_requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("partnership request %s not found", id)
		}
		return nil, fmt.Errorf("failed to get partnership request: %w", err)
	}
	return req, nil
}

// FindPending returns the PENDING request for the pair, or nil
func (r *PostgresPartnershipRequestRepository) FindPending(ctx context.Context, brandID, supplierID string) (*domain.PartnershipRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM partnership_requests
		WHERE brand_id = $1 AND supplier_id = $2 AND status = $3
	`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, brandID, supplierID, domain.RequestPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up pending request: %w", err)
	}
	return req, nil
}

// Update persists response fields and status
func (r *PostgresPartnershipRequestRepository) Update(ctx context.Context, req *domain.PartnershipRequest) error {
	query := `
		UPDATE partnership_requests
		SET status = $1, responded_by = $2, responded_at = $3, rejection_reason = $4,
			document_sharing_consent = $5, relationship_id = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		req.Status,
		nullString(req.RespondedByID),
		nullTime(req.RespondedAt),
		req.RejectionReason,
		req.DocumentSharingConsent,
		nullString(req.RelationshipID),
		req.ID,
	).Scan(&req.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("partnership request %s not found", req.ID)
		}
		return fmt.Errorf("failed to update partnership request: %w", err)
	}

	return nil
}

// Accept updates the request and creates the relationship in one
// transaction so acceptance cannot leave a dangling half of the handshake.
func (r *PostgresPartnershipRequestRepository) Accept(ctx context.Context, req *domain.PartnershipRequest, rel *domain.Relationship) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRelationship(ctx, tx, rel); err != nil {
		return err
	}

	req.RelationshipID = rel.ID
	query := `
		UPDATE partnership_requests
		SET status = $1, responded_by = $2, responded_at = $3,
			document_sharing_consent = $4, relationship_id = $5, updated_at = now()
		WHERE id = $6 AND status = $7
	`
	result, err := tx.ExecContext(ctx, query,
		domain.RequestAccepted,
		nullString(req.RespondedByID),
		nullTime(req.RespondedAt),
		req.DocumentSharingConsent,
		rel.ID,
		req.ID,
		domain.RequestPending,
	)
	if err != nil {
		return fmt.Errorf("failed to accept partnership request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.InvalidStatef("partnership request %s is no longer pending", req.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit acceptance: %w", err)
	}

	req.Status = domain.RequestAccepted
	return nil
}

// ListSent returns all requests a brand has issued, newest first
func (r *PostgresPartnershipRequestRepository) ListSent(ctx context.Context, brandID string) ([]*domain.PartnershipRequest, error) {
	return r.list(ctx, "brand_id", brandID)
}

// ListReceived returns all requests addressed to a supplier, newest first
func (r *PostgresPartnershipRequestRepository) ListReceived(ctx context.Context, supplierID string) ([]*domain.PartnershipRequest, error) {
	return r.list(ctx, "supplier_id", supplierID)
}

func (r *PostgresPartnershipRequestRepository) list(ctx context.Context, column, id string) ([]*domain.PartnershipRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM partnership_requests WHERE ` + column + ` = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list partnership requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.PartnershipRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partnership request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// CountPending counts PENDING, unexpired requests addressed to a supplier
func (r *PostgresPartnershipRequestRepository) CountPending(ctx context.Context, supplierID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM partnership_requests WHERE supplier_id = $1 AND status = $2 AND expires_at > now()`,
		supplierID, domain.RequestPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending requests: %w", err)
	}
	return count, nil
}

// MarkExpiredBefore flips overdue PENDING requests to EXPIRED
func (r *PostgresPartnershipRequestRepository) MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE partnership_requests SET status = $1, updated_at = now() WHERE status = $2 AND expires_at <= $3`,
		domain.RequestExpired, domain.RequestPending, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire partnership requests: %w", err)
	}
	return result.RowsAffected()
}
