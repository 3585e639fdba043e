package auth

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnauthorized = errors.New("unauthorized: insufficient permissions")
	ErrUnknownRole  = errors.New("unknown role")
)

// Role definitions
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// Permission definitions
const (
	PermissionBrowse      = "fs:browse"
	PermissionDelete      = "fs:delete"
	PermissionViewJobs    = "jobs:read"
	PermissionViewHistory = "history:read"
	PermissionPurge       = "history:purge"
)

// RolePermissions maps roles to their allowed permissions
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermissionBrowse,
		PermissionDelete,
		PermissionViewJobs,
		PermissionViewHistory,
		PermissionPurge,
	},
	RoleOperator: {
		PermissionBrowse,
		PermissionDelete,
		PermissionViewJobs,
		PermissionViewHistory,
	},
	RoleViewer: {
		PermissionBrowse,
		PermissionViewJobs,
		PermissionViewHistory,
	},
}

// HasPermission checks if user roles include the required permission
func HasPermission(userRoles []string, requiredPermission string) bool {
	for _, role := range userRoles {
		if slices.Contains(RolePermissions[role], requiredPermission) {
			return true
		}
	}
	return false
}

// ValidateRoles rejects roles that grant nothing
func ValidateRoles(roles []string) error {
	if len(roles) == 0 {
		return ErrUnknownRole
	}
	for _, role := range roles {
		if _, ok := RolePermissions[role]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
	}
	return nil
}

// RequirePermission returns a check for a specific permission
func RequirePermission(permission string) func(*Claims) error {
	return func(claims *Claims) error {
		if claims == nil || !HasPermission(claims.Roles, permission) {
			return ErrUnauthorized
		}
		return nil
	}
}
