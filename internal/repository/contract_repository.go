package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/texlink/partnerhub/internal/domain"
)

// PostgresContractRepository implements domain.ContractRepository using PostgreSQL
type PostgresContractRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresContractRepository creates a new contract repository
func NewPostgresContractRepository(db *sql.DB, logger *slog.Logger) *PostgresContractRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresContractRepository{
		db:     db,
		logger: logger,
	}
}

const contractColumns = `id, relationship_id, contract_type, status, valid_from, valid_until,
	value, terms, signed_by_name, signed_at, parent_contract_id, created_at, updated_at`

func scanContract(row interface{ Scan(...any) error }) (*domain.Contract, error) {
	c := &domain.Contract{}
	var validFrom, validUntil, signedAt sql.NullTime
	var parentID sql.NullString
	err := row.Scan(
		&c.ID,
		&c.RelationshipID,
		&c.Type,
		&c.Status,
		&validFrom,
		&validUntil,
		&c.Value,
		&c.Terms,
		&c.SignedByName,
		&signedAt,
		&parentID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ValidFrom = timePtr(validFrom)
	c.ValidUntil = timePtr(validUntil)
	c.SignedAt = timePtr(signedAt)
	c.ParentContractID = parentID.String
	return c, nil
}

// Create inserts a new contract
func (r *PostgresContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	query := `
		INSERT INTO contracts (id, relationship_id, contract_type, status, valid_from, valid_until,
			value, terms, parent_contract_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		c.ID,
		c.RelationshipID,
		c.Type,
		c.Status,
		nullTime(c.ValidFrom),
		nullTime(c.ValidUntil),
		c.Value,
		c.Terms,
		nullString(c.ParentContractID),
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

// GetByID retrieves a contract by ID
func (r *PostgresContractRepository) GetByID(ctx context.Context, id string) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`

	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("contract %s not found", id)
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

// GetCurrentByRelationship returns the most recent contract for the
// relationship, or nil when none has been generated
func (r *PostgresContractRepository) GetCurrentByRelationship(ctx context.Context, relationshipID string) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts
		WHERE relationship_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	c, err := scanContract(r.db.QueryRowContext(ctx, query, relationshipID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current contract: %w", err)
	}
	return c, nil
}

// Update persists mutable contract fields
func (r *PostgresContractRepository) Update(ctx context.Context, c *domain.Contract) error {
	query := `
		UPDATE contracts
		SET status = $1, valid_from = $2, valid_until = $3, value = $4, terms = $5,
			signed_by_name = $6, signed_at = $7, updated_at = now()
		WHERE id = $8
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		c.Status,
		nullTime(c.ValidFrom),
		nullTime(c.ValidUntil),
		c.Value,
		c.Terms,
		c.SignedByName,
		nullTime(c.SignedAt),
		c.ID,
	).Scan(&c.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("contract %s not found", c.ID)
		}
		return fmt.Errorf("failed to update contract: %w", err)
	}
	return nil
}

// AddRevision records a revision request against a contract
func (r *PostgresContractRepository) AddRevision(ctx context.Context, rev *domain.ContractRevision) error {
	query := `
		INSERT INTO contract_revisions (id, contract_id, requested_by, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rev.ID,
		rev.ContractID,
		rev.RequestedByID,
		rev.Message,
		rev.Status,
	).Scan(&rev.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create contract revision: %w", err)
	}
	return nil
}

// PendingRevision returns the unresolved revision for the contract, or nil
func (r *PostgresContractRepository) PendingRevision(ctx context.Context, contractID string) (*domain.ContractRevision, error) {
	query := `
		SELECT id, contract_id, requested_by, message, status, response_notes, responded_at, created_at
		FROM contract_revisions
		WHERE contract_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	rev := &domain.ContractRevision{}
	var respondedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, contractID, domain.RevisionPending).Scan(
		&rev.ID,
		&rev.ContractID,
		&rev.RequestedByID,
		&rev.Message,
		&rev.Status,
		&rev.ResponseNotes,
		&respondedAt,
		&rev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending revision: %w", err)
	}
	rev.RespondedAt = timePtr(respondedAt)
	return rev, nil
}

// UpdateRevision records the brand's response to a revision request
func (r *PostgresContractRepository) UpdateRevision(ctx context.Context, rev *domain.ContractRevision) error {
	query := `
		UPDATE contract_revisions
		SET status = $1, response_notes = $2, responded_at = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		rev.Status,
		rev.ResponseNotes,
		nullTime(rev.RespondedAt),
		rev.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contract revision: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check revision update: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("contract revision %s not found", rev.ID)
	}
	return nil
}
