package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// ConnectionPool manages database connections
type ConnectionPool struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConnectionPool opens a pooled connection to Postgres and verifies it
func NewConnectionPool(ctx context.Context, url string, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctxTest, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctxTest); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected successfully")

	return &ConnectionPool{
		db:     db,
		logger: logger,
	}, nil
}

// GetDB returns the underlying sql.DB connection
func (cp *ConnectionPool) GetDB() *sql.DB {
	return cp.db
}

// Close closes the database connection
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Health checks the database health
func (cp *ConnectionPool) Health(ctx context.Context) error {
	ctxTest, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return cp.db.PingContext(ctxTest)
}

// Migrate applies the schema. Statements are idempotent so repeated startup
// is safe. The two partial unique indexes back the uniqueness invariants:
// one non-BLOCKED credential per (brand, tax id), one PENDING request per
// (brand, supplier).
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	cp.logger.Info("database schema up to date")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		tax_id VARCHAR(14) NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		company_id UUID NOT NULL REFERENCES companies(id),
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		id UUID PRIMARY KEY,
		brand_id UUID NOT NULL REFERENCES companies(id),
		tax_id VARCHAR(14) NOT NULL,
		contact_name TEXT NOT NULL,
		contact_email TEXT NOT NULL,
		contact_phone TEXT NOT NULL DEFAULT '',
		trade_name TEXT NOT NULL DEFAULT '',
		internal_code TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		priority INT NOT NULL DEFAULT 50,
		status TEXT NOT NULL,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS credentials_brand_tax_active
		ON credentials (brand_id, tax_id) WHERE status <> 'BLOCKED'`,
	`CREATE TABLE IF NOT EXISTS credential_status_history (
		id UUID PRIMARY KEY,
		credential_id UUID NOT NULL REFERENCES credentials(id),
		from_status TEXT,
		to_status TEXT NOT NULL,
		performed_by UUID NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS credential_validations (
		id UUID PRIMARY KEY,
		credential_id UUID NOT NULL REFERENCES credentials(id),
		kind TEXT NOT NULL,
		is_valid BOOLEAN NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS partnership_requests (
		id UUID PRIMARY KEY,
		brand_id UUID NOT NULL REFERENCES companies(id),
		supplier_id UUID NOT NULL REFERENCES companies(id),
		requested_by UUID NOT NULL,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		responded_by UUID,
		responded_at TIMESTAMPTZ,
		rejection_reason TEXT NOT NULL DEFAULT '',
		document_sharing_consent BOOLEAN NOT NULL DEFAULT false,
		expires_at TIMESTAMPTZ NOT NULL,
		relationship_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS partnership_requests_pending
		ON partnership_requests (brand_id, supplier_id) WHERE status = 'PENDING'`,
	`CREATE TABLE IF NOT EXISTS relationships (
		id UUID PRIMARY KEY,
		supplier_id UUID NOT NULL REFERENCES companies(id),
		brand_id UUID NOT NULL REFERENCES companies(id),
		status TEXT NOT NULL,
		initiated_by UUID NOT NULL,
		initiated_by_role TEXT NOT NULL,
		internal_code TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		priority INT NOT NULL DEFAULT 50,
		document_sharing_consent BOOLEAN NOT NULL DEFAULT false,
		consent_updated_at TIMESTAMPTZ,
		consent_revoked_at TIMESTAMPTZ,
		consent_revocation_reason TEXT NOT NULL DEFAULT '',
		suspension_reason TEXT NOT NULL DEFAULT '',
		termination_reason TEXT NOT NULL DEFAULT '',
		activated_at TIMESTAMPTZ,
		terminated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS relationships_brand ON relationships (brand_id)`,
	`CREATE INDEX IF NOT EXISTS relationships_supplier ON relationships (supplier_id)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY,
		relationship_id UUID NOT NULL REFERENCES relationships(id),
		contract_type TEXT NOT NULL DEFAULT 'standard',
		status TEXT NOT NULL,
		valid_from TIMESTAMPTZ,
		valid_until TIMESTAMPTZ,
		value NUMERIC(14,2) NOT NULL DEFAULT 0,
		terms TEXT NOT NULL DEFAULT '',
		signed_by_name TEXT NOT NULL DEFAULT '',
		signed_at TIMESTAMPTZ,
		parent_contract_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS contracts_relationship ON contracts (relationship_id)`,
	`CREATE TABLE IF NOT EXISTS contract_revisions (
		id UUID PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id),
		requested_by UUID NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL,
		response_notes TEXT NOT NULL DEFAULT '',
		responded_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS supplier_documents (
		id UUID PRIMARY KEY,
		supplier_id UUID NOT NULL REFERENCES companies(id),
		doc_type TEXT NOT NULL,
		competence_month INT NOT NULL DEFAULT 0,
		competence_year INT NOT NULL DEFAULT 0,
		expires_at TIMESTAMPTZ,
		file_ref TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (supplier_id, doc_type, competence_month, competence_year)
	)`,
}
