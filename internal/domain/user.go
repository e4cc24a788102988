package domain

import (
	"context"
	"time"
)

// CompanyKind distinguishes the two sides of the marketplace.
type CompanyKind string

const (
	CompanyBrand    CompanyKind = "brand"
	CompanySupplier CompanyKind = "supplier"
)

// Company is a registered brand or supplier (faccao) on the platform.
type Company struct {
	ID        string
	Name      string
	TaxID     string
	Kind      CompanyKind
	CreatedAt time.Time
}

// User is an account belonging to a company.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // bcrypt, never returned in API responses
	CompanyID    string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
}

// CompanyRepository defines data access for companies.
type CompanyRepository interface {
	Create(ctx context.Context, c *Company) error
	GetByID(ctx context.Context, id string) (*Company, error)
	// ListSuppliers returns the shared supplier pool.
	ListSuppliers(ctx context.Context) ([]*Company, error)
}
