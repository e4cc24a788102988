package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/texlink/partnerhub/internal/domain"
)

// PostgresCredentialRepository implements domain.CredentialRepository using PostgreSQL
type PostgresCredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCredentialRepository creates a new credential repository
func NewPostgresCredentialRepository(db *sql.DB, logger *slog.Logger) *PostgresCredentialRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCredentialRepository{
		db:     db,
		logger: logger,
	}
}

const credentialColumns = `id, brand_id, tax_id, contact_name, contact_email, contact_phone,
	trade_name, internal_code, category, notes, priority, status, completed_at, created_at, updated_at`

func scanCredential(row interface{ Scan(...any) error }) (*domain.Credential, error) {
	c := &domain.Credential{}
	var completedAt sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.BrandID,
		&c.TaxID,
		&c.ContactName,
		&c.ContactEmail,
		&c.ContactPhone,
		&c.TradeName,
		&c.InternalCode,
		&c.Category,
		&c.Notes,
		&c.Priority,
		&c.Status,
		&completedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CompletedAt = timePtr(completedAt)
	return c, nil
}

// Create inserts the credential and its initial history row in one
// transaction. A concurrent duplicate for the same (brand, tax id) hits the
// partial unique index and surfaces as Conflict.
func (r *PostgresCredentialRepository) Create(ctx context.Context, c *domain.Credential, actorID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO credentials (id, brand_id, tax_id, contact_name, contact_email, contact_phone,
			trade_name, internal_code, category, notes, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(ctx, query,
		c.ID,
		c.BrandID,
		c.TaxID,
		c.ContactName,
		c.ContactEmail,
		c.ContactPhone,
		c.TradeName,
		c.InternalCode,
		c.Category,
		c.Notes,
		c.Priority,
		c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("a credential already exists for this tax ID")
		}
		r.logger.Error("failed to create credential",
			slog.String("brand_id", c.BrandID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create credential: %w", err)
	}

	if err := insertHistory(ctx, tx, c.ID, nil, c.Status, actorID, ""); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential create: %w", err)
	}
	return nil
}

// GetByID retrieves a credential by ID
func (r *PostgresCredentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("credential %s not found", id)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return c, nil
}

// FindActiveByTaxID returns the non-BLOCKED credential for (brandID, taxID),
// or nil when none exists
func (r *PostgresCredentialRepository) FindActiveByTaxID(ctx context.Context, brandID, taxID, excludeID string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM credentials
		WHERE brand_id = $1 AND tax_id = $2 AND status <> $3 AND id <> $4
	`

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, brandID, taxID, domain.CredentialBlocked, excludeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up credential by tax id: %w", err)
	}
	return c, nil
}

// Update persists draft edits. When the tax ID changed, all validation rows
// are flipped to is_valid=false in the same transaction since they attested
// the old identifier.
func (r *PostgresCredentialRepository) Update(ctx context.Context, c *domain.Credential, invalidateValidations bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE credentials
		SET tax_id = $1, contact_name = $2, contact_email = $3, contact_phone = $4,
			trade_name = $5, internal_code = $6, category = $7, notes = $8, priority = $9,
			updated_at = now()
		WHERE id = $10
		RETURNING updated_at
	`

	err = tx.QueryRowContext(ctx, query,
		c.TaxID,
		c.ContactName,
		c.ContactEmail,
		c.ContactPhone,
		c.TradeName,
		c.InternalCode,
		c.Category,
		c.Notes,
		c.Priority,
		c.ID,
	).Scan(&c.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("credential %s not found", c.ID)
		}
		if isUniqueViolation(err) {
			return domain.Conflictf("a credential already exists for this tax ID")
		}
		return fmt.Errorf("failed to update credential: %w", err)
	}

	if invalidateValidations {
		if _, err := tx.ExecContext(ctx,
			`UPDATE credential_validations SET is_valid = false WHERE credential_id = $1`,
			c.ID,
		); err != nil {
			return fmt.Errorf("failed to invalidate validations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential update: %w", err)
	}
	return nil
}

// ChangeStatus updates the status and appends the audit row in one
// transaction; a failed history insert rolls back the status write.
func (r *PostgresCredentialRepository) ChangeStatus(ctx context.Context, id string, from *domain.CredentialStatus, to domain.CredentialStatus, actorID, reason string, completedAt *time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var result sql.Result
	if completedAt != nil {
		result, err = tx.ExecContext(ctx,
			`UPDATE credentials SET status = $1, completed_at = $2, updated_at = now() WHERE id = $3`,
			to, *completedAt, id,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE credentials SET status = $1, updated_at = now() WHERE id = $2`,
			to, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to change credential status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("credential %s not found", id)
	}

	if err := insertHistory(ctx, tx, id, from, to, actorID, reason); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, credentialID string, from *domain.CredentialStatus, to domain.CredentialStatus, actorID, reason string) error {
	var fromVal sql.NullString
	if from != nil {
		fromVal = sql.NullString{String: string(*from), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credential_status_history (id, credential_id, from_status, to_status, performed_by, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), credentialID, fromVal, to, actorID, reason)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

var credentialSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"priority":  "priority",
	"tradeName": "trade_name",
	"status":    "status",
}

// List returns a filtered, paginated page of a brand's credentials and the
// total count for the filter
func (r *PostgresCredentialRepository) List(ctx context.Context, brandID string, f domain.CredentialFilter) ([]*domain.Credential, int, error) {
	where := []string{"brand_id = $1"}
	args := []any{brandID}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(trade_name ILIKE $%d OR contact_name ILIKE $%d OR tax_id ILIKE $%d)", n, n, n))
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			args = append(args, string(s))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.CreatedFrom != nil {
		args = append(args, *f.CreatedFrom)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.CreatedTo != nil {
		args = append(args, *f.CreatedTo)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM credentials WHERE "+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count credentials: %w", err)
	}

	sortCol, ok := credentialSortColumns[f.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	sortDir := "DESC"
	if strings.EqualFold(f.SortDir, "asc") {
		sortDir = "ASC"
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("SELECT %s FROM credentials WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		credentialColumns, whereClause, sortCol, sortDir, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list credentials",
			slog.String("brand_id", brandID),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var credentials []*domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan credential: %w", err)
		}
		credentials = append(credentials, c)
	}

	return credentials, total, rows.Err()
}

// History returns the append-only status log for a credential, oldest first
func (r *PostgresCredentialRepository) History(ctx context.Context, credentialID string) ([]*domain.CredentialStatusHistory, error) {
	query := `
		SELECT id, credential_id, from_status, to_status, performed_by, reason, created_at
		FROM credential_status_history
		WHERE credential_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, credentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()

	var history []*domain.CredentialStatusHistory
	for rows.Next() {
		h := &domain.CredentialStatusHistory{}
		var from sql.NullString
		if err := rows.Scan(&h.ID, &h.CredentialID, &from, &h.ToStatus, &h.PerformedByID, &h.Reason, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if from.Valid {
			status := domain.CredentialStatus(from.String)
			h.FromStatus = &status
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// Validations returns all verification checks run against a credential
func (r *PostgresCredentialRepository) Validations(ctx context.Context, credentialID string) ([]*domain.CredentialValidation, error) {
	query := `
		SELECT id, credential_id, kind, is_valid, details, created_at
		FROM credential_validations
		WHERE credential_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, credentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to load validations: %w", err)
	}
	defer rows.Close()

	var validations []*domain.CredentialValidation
	for rows.Next() {
		v := &domain.CredentialValidation{}
		if err := rows.Scan(&v.ID, &v.CredentialID, &v.Kind, &v.IsValid, &v.Details, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan validation row: %w", err)
		}
		validations = append(validations, v)
	}

	return validations, rows.Err()
}

// AddValidation records one verification check
func (r *PostgresCredentialRepository) AddValidation(ctx context.Context, v *domain.CredentialValidation) error {
	query := `
		INSERT INTO credential_validations (id, credential_id, kind, is_valid, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query, v.ID, v.CredentialID, v.Kind, v.IsValid, v.Details).Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add validation: %w", err)
	}
	return nil
}

// CountByStatus returns the brand's credential counts grouped by status
func (r *PostgresCredentialRepository) CountByStatus(ctx context.Context, brandID string) (map[domain.CredentialStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM credentials WHERE brand_id = $1 GROUP BY status`,
		brandID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count credentials by status: %w", err)
	}
	defer rows.Close()

	counts := map[domain.CredentialStatus]int{}
	for rows.Next() {
		var status domain.CredentialStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// CountCreatedSince counts the brand's credentials created at or after since
func (r *PostgresCredentialRepository) CountCreatedSince(ctx context.Context, brandID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credentials WHERE brand_id = $1 AND created_at >= $2`,
		brandID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count created credentials: %w", err)
	}
	return count, nil
}

// CountCompletedSince counts the brand's credentials completed at or after since
func (r *PostgresCredentialRepository) CountCompletedSince(ctx context.Context, brandID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credentials WHERE brand_id = $1 AND completed_at >= $2`,
		brandID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed credentials: %w", err)
	}
	return count, nil
}
