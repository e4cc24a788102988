package service

import (
	"context"
	"testing"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/security"
	"github.com/texlink/partnerhub/internal/security/auth"
)

func newTestAuthService() (*AuthService, *memUserRepo, *memCompanyRepo) {
	users := newMemUserRepo()
	companies := newMemCompanyRepo()
	tokens := auth.NewTokenManager("test-secret", "partnerhub")
	return NewAuthService(users, companies, tokens, nil), users, companies
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestAuthService()

	r, err := s.Register(ctx, RegisterInput{
		CompanyName: "Acme Apparel",
		CompanyKind: "brand",
		TaxID:       "12.345.678/0001-95",
		UserName:    "Alice",
		Email:       "alice@example.com",
		Password:    "Password123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if r.UserID == "" || r.Token == "" {
		t.Fatalf("expected user id and token")
	}
	if r.Role != string(security.RoleBrandAdmin) {
		t.Fatalf("expected brand_admin role, got %s", r.Role)
	}

	// Duplicate email
	_, err = s.Register(ctx, RegisterInput{
		CompanyName: "Other Brand",
		CompanyKind: "brand",
		TaxID:       "98.765.432/0001-10",
		UserName:    "Alice Again",
		Email:       "alice@example.com",
		Password:    "Password123",
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	lr, err := s.Login(ctx, "alice@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" {
		t.Fatalf("expected token on login")
	}

	if _, err := s.Login(ctx, "alice@example.com", "Wrong"); err == nil {
		t.Fatalf("expected invalid credentials error")
	}
}

func TestRegisterSupplierRole(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestAuthService()

	r, err := s.Register(ctx, RegisterInput{
		CompanyName: "Costura Fina",
		CompanyKind: "supplier",
		TaxID:       "11222333000181",
		UserName:    "Bruna",
		Email:       "bruna@example.com",
		Password:    "Password123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if r.Role != string(security.RoleSupplierAdmin) {
		t.Fatalf("expected supplier_admin role, got %s", r.Role)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestAuthService()

	cases := []RegisterInput{
		{CompanyName: "X", CompanyKind: "brand", TaxID: "11222333000181", UserName: "U", Email: "u@x.com", Password: "short"},
		{CompanyName: "X", CompanyKind: "warehouse", TaxID: "11222333000181", UserName: "U", Email: "u@x.com", Password: "Password123"},
		{CompanyName: "X", CompanyKind: "brand", TaxID: "123", UserName: "U", Email: "u@x.com", Password: "Password123"},
	}
	for i, in := range cases {
		if _, err := s.Register(ctx, in); !domain.IsKind(err, domain.KindValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestAuthService()

	reg, err := s.Register(ctx, RegisterInput{
		CompanyName: "Acme",
		CompanyKind: "brand",
		TaxID:       "11222333000181",
		UserName:    "Bob",
		Email:       "bob@example.com",
		Password:    "OldPass123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := s.ChangePassword(ctx, reg.UserID, "bad", "NewPass123"); err == nil {
		t.Fatalf("expected wrong old password error")
	}
	if err := s.ChangePassword(ctx, reg.UserID, "OldPass123", "NewPass123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := s.Login(ctx, "bob@example.com", "OldPass123"); err == nil {
		t.Fatalf("expected old password to fail after change")
	}
	if _, err := s.Login(ctx, "bob@example.com", "NewPass123"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}
