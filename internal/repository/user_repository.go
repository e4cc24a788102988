package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/texlink/partnerhub/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, email, name, password_hash, company_id, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.CompanyID,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user
func (r *PostgresUserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, company_id, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.CompanyID,
		u.Role,
		u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("a user with email %s already exists", u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("user %s not found", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// Update persists mutable user fields
func (r *PostgresUserRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, password_hash = $2, role = $3, is_active = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		u.Name,
		u.PasswordHash,
		u.Role,
		u.IsActive,
		u.ID,
	).Scan(&u.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("user %s not found", u.ID)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// PostgresCompanyRepository implements domain.CompanyRepository using PostgreSQL
type PostgresCompanyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCompanyRepository creates a new company repository
func NewPostgresCompanyRepository(db *sql.DB, logger *slog.Logger) *PostgresCompanyRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCompanyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new company
func (r *PostgresCompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (id, name, tax_id, kind)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.TaxID, c.Kind).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("a company with tax ID %s already exists", c.TaxID)
		}
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by ID
func (r *PostgresCompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	query := `SELECT id, name, tax_id, kind, created_at FROM companies WHERE id = $1`

	c := &domain.Company{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.TaxID, &c.Kind, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("company %s not found", id)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListSuppliers returns the shared supplier pool
func (r *PostgresCompanyRepository) ListSuppliers(ctx context.Context) ([]*domain.Company, error) {
	query := `SELECT id, name, tax_id, kind, created_at FROM companies WHERE kind = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, domain.CompanySupplier)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	var companies []*domain.Company
	for rows.Next() {
		c := &domain.Company{}
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxID, &c.Kind, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	return companies, rows.Err()
}
