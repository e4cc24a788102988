package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/texlink/partnerhub/internal/domain"
)

// PostgresDocumentRepository implements domain.DocumentRepository using PostgreSQL
type PostgresDocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresDocumentRepository creates a new document repository
func NewPostgresDocumentRepository(db *sql.DB, logger *slog.Logger) *PostgresDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDocumentRepository{
		db:     db,
		logger: logger,
	}
}

const documentColumns = `id, supplier_id, doc_type, competence_month, competence_year,
	expires_at, file_ref, notes, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*domain.SupplierDocument, error) {
	d := &domain.SupplierDocument{}
	var expiresAt sql.NullTime
	err := row.Scan(
		&d.ID,
		&d.SupplierID,
		&d.Type,
		&d.CompetenceMonth,
		&d.CompetenceYear,
		&expiresAt,
		&d.FileRef,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.ExpiresAt = timePtr(expiresAt)
	return d, nil
}

// Upsert inserts the document or replaces it for its natural key. The unique
// constraint on (supplier_id, doc_type, competence_month, competence_year)
// makes re-upload an update rather than a duplicate row.
func (r *PostgresDocumentRepository) Upsert(ctx context.Context, d *domain.SupplierDocument) error {
	query := `
		INSERT INTO supplier_documents (id, supplier_id, doc_type, competence_month, competence_year,
			expires_at, file_ref, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (supplier_id, doc_type, competence_month, competence_year)
		DO UPDATE SET expires_at = EXCLUDED.expires_at, file_ref = EXCLUDED.file_ref,
			notes = EXCLUDED.notes, updated_at = now()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		d.ID,
		d.SupplierID,
		d.Type,
		d.CompetenceMonth,
		d.CompetenceYear,
		nullTime(d.ExpiresAt),
		d.FileRef,
		d.Notes,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*domain.SupplierDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM supplier_documents WHERE id = $1`

	d, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("document %s not found", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

// List returns a supplier's documents, optionally narrowed by type
func (r *PostgresDocumentRepository) List(ctx context.Context, supplierID, docType string) ([]*domain.SupplierDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM supplier_documents WHERE supplier_id = $1`
	args := []any{supplierID}
	if docType != "" {
		query += ` AND doc_type = $2`
		args = append(args, docType)
	}
	query += ` ORDER BY doc_type, competence_year DESC, competence_month DESC`

	return r.query(ctx, query, args...)
}

// ListAll returns every document on the platform
func (r *PostgresDocumentRepository) ListAll(ctx context.Context) ([]*domain.SupplierDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM supplier_documents ORDER BY supplier_id, doc_type`
	return r.query(ctx, query)
}

func (r *PostgresDocumentRepository) query(ctx context.Context, query string, args ...any) ([]*domain.SupplierDocument, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list documents", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var documents []*domain.SupplierDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, d)
	}

	return documents, rows.Err()
}
