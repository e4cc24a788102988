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

// PostgresRelationshipRepository implements domain.RelationshipRepository using PostgreSQL
type PostgresRelationshipRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRelationshipRepository creates a new relationship repository
func NewPostgresRelationshipRepository(db *sql.DB, logger *slog.Logger) *PostgresRelationshipRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRelationshipRepository{
		db:     db,
		logger: logger,
	}
}

const relationshipColumns = `id, supplier_id, brand_id, status, initiated_by, initiated_by_role,
	internal_code, notes, priority, document_sharing_consent, consent_updated_at, consent_revoked_at,
	consent_revocation_reason, suspension_reason, termination_reason, activated_at, terminated_at,
	created_at, updated_at`

func scanRelationship(row interface{ Scan(...any) error }) (*domain.Relationship, error) {
	rel := &domain.Relationship{}
	var consentUpdatedAt, consentRevokedAt, activatedAt, terminatedAt sql.NullTime
	err := row.Scan(
		&rel.ID,
		&rel.SupplierID,
		&rel.BrandID,
		&rel.Status,
		&rel.InitiatedByID,
		&rel.InitiatedByRole,
		&rel.InternalCode,
		&rel.Notes,
		&rel.Priority,
		&rel.DocumentSharingConsent,
		&consentUpdatedAt,
		&consentRevokedAt,
		&rel.ConsentRevocationReason,
		&rel.SuspensionReason,
		&rel.TerminationReason,
		&activatedAt,
		&terminatedAt,
		&rel.CreatedAt,
		&rel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rel.ConsentUpdatedAt = timePtr(consentUpdatedAt)
	rel.ConsentRevokedAt = timePtr(consentRevokedAt)
	rel.ActivatedAt = timePtr(activatedAt)
	rel.TerminatedAt = timePtr(terminatedAt)
	return rel, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertRelationship is shared with the partnership request repository so
// request acceptance can create the relationship inside its own transaction.
func insertRelationship(ctx context.Context, q queryRower, rel *domain.Relationship) error {
	query := `
		INSERT INTO relationships (id, supplier_id, brand_id, status, initiated_by, initiated_by_role,
			internal_code, notes, priority, document_sharing_consent, consent_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		rel.ID,
		rel.SupplierID,
		rel.BrandID,
		rel.Status,
		rel.InitiatedByID,
		rel.InitiatedByRole,
		rel.InternalCode,
		rel.Notes,
		rel.Priority,
		rel.DocumentSharingConsent,
		nullTime(rel.ConsentUpdatedAt),
	).Scan(&rel.CreatedAt, &rel.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// Create establishes the edge
func (r *PostgresRelationshipRepository) Create(ctx context.Context, rel *domain.Relationship) error {
	return insertRelationship(ctx, r.db, rel)
}

// GetByID retrieves a relationship by ID
func (r *PostgresRelationshipRepository) GetByID(ctx context.Context, id string) (*domain.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = $1`

	rel, err := scanRelationship(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("relationship %s not found", id)
		}
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return rel, nil
}

// FindActiveByPair returns the non-TERMINATED relationship for the pair, or nil
func (r *PostgresRelationshipRepository) FindActiveByPair(ctx context.Context, brandID, supplierID string) (*domain.Relationship, error) {
	query := `SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE brand_id = $1 AND supplier_id = $2 AND status <> $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	rel, err := scanRelationship(r.db.QueryRowContext(ctx, query, brandID, supplierID, domain.RelationshipTerminated))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up relationship by pair: %w", err)
	}
	return rel, nil
}

// Update persists mutable relationship fields
func (r *PostgresRelationshipRepository) Update(ctx context.Context, rel *domain.Relationship) error {
	query := `
		UPDATE relationships
		SET status = $1, internal_code = $2, notes = $3, priority = $4,
			document_sharing_consent = $5, consent_updated_at = $6,
			suspension_reason = $7, termination_reason = $8,
			activated_at = $9, terminated_at = $10, updated_at = now()
		WHERE id = $11
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rel.Status,
		rel.InternalCode,
		rel.Notes,
		rel.Priority,
		rel.DocumentSharingConsent,
		nullTime(rel.ConsentUpdatedAt),
		rel.SuspensionReason,
		rel.TerminationReason,
		nullTime(rel.ActivatedAt),
		nullTime(rel.TerminatedAt),
		rel.ID,
	).Scan(&rel.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("relationship %s not found", rel.ID)
		}
		return fmt.Errorf("failed to update relationship: %w", err)
	}
	return nil
}

// ListByBrand returns all of a brand's relationships, newest first
func (r *PostgresRelationshipRepository) ListByBrand(ctx context.Context, brandID string) ([]*domain.Relationship, error) {
	return r.list(ctx, "brand_id", brandID)
}

// ListBySupplier returns all of a supplier's relationships, newest first
func (r *PostgresRelationshipRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*domain.Relationship, error) {
	return r.list(ctx, "supplier_id", supplierID)
}

func (r *PostgresRelationshipRepository) list(ctx context.Context, column, id string) ([]*domain.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE ` + column + ` = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to list relationships",
			slog.String(column, id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	var relationships []*domain.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		relationships = append(relationships, rel)
	}

	return relationships, rows.Err()
}

// RevokeConsentAndTerminate clears consent, stamps the revocation and
// terminates the relationship in one transaction. Consent revocation without
// termination is not a valid outcome.
func (r *PostgresRelationshipRepository) RevokeConsentAndTerminate(ctx context.Context, id, reason string, at time.Time) (*domain.Relationship, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE relationships
		SET status = $1, document_sharing_consent = false,
			consent_revoked_at = $2, consent_revocation_reason = $3,
			termination_reason = $3, terminated_at = $2, updated_at = now()
		WHERE id = $4
		RETURNING ` + relationshipColumns

	rel, err := scanRelationship(tx.QueryRowContext(ctx, query, domain.RelationshipTerminated, at, reason, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("relationship %s not found", id)
		}
		return nil, fmt.Errorf("failed to revoke consent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit consent revocation: %w", err)
	}
	return rel, nil
}

// CountByStatus returns the company's relationship counts grouped by status
func (r *PostgresRelationshipRepository) CountByStatus(ctx context.Context, companyID string, asBrand bool) (map[domain.RelationshipStatus]int, error) {
	column := "supplier_id"
	if asBrand {
		column = "brand_id"
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM relationships WHERE `+column+` = $1 GROUP BY status`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count relationships by status: %w", err)
	}
	defer rows.Close()

	counts := map[domain.RelationshipStatus]int{}
	for rows.Next() {
		var status domain.RelationshipStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
