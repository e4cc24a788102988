package security

import (
	"fmt"
	"log/slog"
)

// Role represents a user role
type Role string

const (
	RoleBrandAdmin    Role = "brand_admin"
	RoleBrandUser     Role = "brand_user"
	RoleSupplierAdmin Role = "supplier_admin"
	RoleSupplierUser  Role = "supplier_user"
)

// Permission represents an action permission
type Permission string

const (
	PermManageCredentials   Permission = "manage_credentials"
	PermReadCredentials     Permission = "read_credentials"
	PermCreateRequest       Permission = "create_request"
	PermRespondRequest      Permission = "respond_request"
	PermManageRelationship  Permission = "manage_relationship"
	PermReadRelationship    Permission = "read_relationship"
	PermSignContract        Permission = "sign_contract"
	PermRevokeConsent       Permission = "revoke_consent"
	PermManageDocuments     Permission = "manage_documents"
	PermReadDocuments       Permission = "read_documents"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleBrandAdmin: {
		PermManageCredentials,
		PermReadCredentials,
		PermCreateRequest,
		PermManageRelationship,
		PermReadRelationship,
		PermReadDocuments,
	},
	RoleBrandUser: {
		PermReadCredentials,
		PermReadRelationship,
		PermReadDocuments,
	},
	RoleSupplierAdmin: {
		PermRespondRequest,
		PermManageRelationship,
		PermReadRelationship,
		PermSignContract,
		PermRevokeConsent,
		PermManageDocuments,
		PermReadDocuments,
	},
	RoleSupplierUser: {
		PermReadRelationship,
		PermReadDocuments,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// IsBrandRole reports whether the role belongs to the brand side
func IsBrandRole(role Role) bool {
	return role == RoleBrandAdmin || role == RoleBrandUser
}

// IsSupplierRole reports whether the role belongs to the supplier side
func IsSupplierRole(role Role) bool {
	return role == RoleSupplierAdmin || role == RoleSupplierUser
}
