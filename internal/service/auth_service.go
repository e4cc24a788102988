package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/security"
	"github.com/texlink/partnerhub/internal/security/auth"
)

const tokenLifetime = 8 * time.Hour

// AuthService handles registration and login for company accounts.
type AuthService struct {
	users     domain.UserRepository
	companies domain.CompanyRepository
	tokens    *auth.TokenManager
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	companies domain.CompanyRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		users:     users,
		companies: companies,
		tokens:    tokens,
		logger:    logger,
	}
}

// RegisterInput captures a new company plus its first admin account.
type RegisterInput struct {
	CompanyName string `json:"companyName"`
	CompanyKind string `json:"companyKind"`
	TaxID       string `json:"taxId"`
	UserName    string `json:"userName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// AuthResult is the response to a successful register or login.
type AuthResult struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"` // seconds
	TokenType string `json:"tokenType"`
}

// Register creates a company and its first admin user. The admin role
// follows the company kind.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.CompanyName == "" || in.UserName == "" || in.Email == "" {
		return nil, domain.Validationf("company name, user name and email are required")
	}
	if len(in.Password) < 8 {
		return nil, domain.Validationf("password must be at least 8 characters")
	}

	kind := domain.CompanyKind(in.CompanyKind)
	var role security.Role
	switch kind {
	case domain.CompanyBrand:
		role = security.RoleBrandAdmin
	case domain.CompanySupplier:
		role = security.RoleSupplierAdmin
	default:
		return nil, domain.Validationf("company kind must be %q or %q", domain.CompanyBrand, domain.CompanySupplier)
	}

	taxID, err := normalizeTaxID(in.TaxID)
	if err != nil {
		return nil, err
	}

	company := &domain.Company{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(in.CompanyName),
		TaxID: taxID,
		Kind:  kind,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, domain.Validationf("failed to register user")
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         strings.TrimSpace(in.UserName),
		PasswordHash: string(hash),
		CompanyID:    company.ID,
		Role:         string(role),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("company registered",
		slog.String("company_id", company.ID),
		slog.String("kind", string(kind)),
	)
	return s.result(user)
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, domain.Validationf("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.logger.Info("login attempt with unknown email", slog.String("email", email))
		return nil, domain.Forbiddenf("invalid credentials")
	}
	if !user.IsActive {
		return nil, domain.Forbiddenf("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, domain.Forbiddenf("invalid credentials")
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("company_id", user.CompanyID),
	)
	return s.result(user)
}

// ChangePassword changes a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return domain.Validationf("new password must be at least 8 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.Forbiddenf("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return domain.Validationf("failed to change password")
	}

	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.logger.Info("user changed password", slog.String("user_id", userID))
	return nil
}

func (s *AuthService) result(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.CompanyID, user.ID, user.Email, user.Role, tokenLifetime)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, domain.Validationf("failed to generate token")
	}

	return &AuthResult{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		Role:      user.Role,
		Token:     token,
		ExpiresIn: int(tokenLifetime.Seconds()),
		TokenType: "Bearer",
	}, nil
}
