package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FlexibleStringSlice can unmarshal both single string and string array from JSON.
// Some identity providers emit the roles claim as a bare string when a user
// carries exactly one role.
type FlexibleStringSlice []string

// UnmarshalJSON implements custom unmarshaling to handle both string and []string
func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var strArray []string
	arrayErr := json.Unmarshal(data, &strArray)
	if arrayErr == nil {
		if err := validateStringSlice(strArray); err != nil {
			return fmt.Errorf("invalid string array: %v", err)
		}
		*f = FlexibleStringSlice(strArray)
		return nil
	}

	var str string
	stringErr := json.Unmarshal(data, &str)
	if stringErr == nil {
		if err := validateClaimString(str); err != nil {
			return fmt.Errorf("invalid string: %v", err)
		}
		*f = FlexibleStringSlice([]string{str})
		return nil
	}

	return fmt.Errorf("failed to unmarshal FlexibleStringSlice: cannot parse as []string (%v) or string (%v), data: %s",
		arrayErr, stringErr, string(data))
}

// ToStringSlice converts to regular string slice
func (f *FlexibleStringSlice) ToStringSlice() []string {
	return []string(*f)
}

// validateClaimString validates a single claim string for security concerns
func validateClaimString(s string) error {
	if len(s) == 0 {
		return fmt.Errorf("empty string not allowed")
	}

	const maxStringLength = 1024
	if len(s) > maxStringLength {
		return fmt.Errorf("string too long (max %d characters)", maxStringLength)
	}

	for i, b := range []byte(s) {
		if b == 0 {
			return fmt.Errorf("null byte found at position %d", i)
		}
	}

	return nil
}

// validateStringSlice validates all strings in a slice
func validateStringSlice(slice []string) error {
	const maxArrayLength = 100
	if len(slice) > maxArrayLength {
		return fmt.Errorf("array too large (max %d elements)", maxArrayLength)
	}

	for i, s := range slice {
		if err := validateClaimString(s); err != nil {
			return fmt.Errorf("invalid string at index %d: %v", i, err)
		}
	}

	return nil
}

// UserClaims represents the JWT claims for a user
type UserClaims struct {
	Email     string              `json:"email"`
	FirstName string              `json:"given_name"`
	LastName  string              `json:"family_name"`
	Roles     FlexibleStringSlice `json:"roles"`
	Groups    []string            `json:"groups"`
	OrgName   string              `json:"org_name"`
	IdpUserID string              `json:"sub"` // Subject is typically the user ID from IdP
	// Standard JWT claims
	Issuer    string    `json:"iss"`
	Audience  []string  `json:"aud"`
	ExpiresAt time.Time `json:"exp"`
	IssuedAt  time.Time `json:"iat"`
	NotBefore time.Time `json:"nbf"`
}

// UnmarshalJSON decodes claims as identity providers actually emit them:
// numeric or string unix timestamps, and an audience that may be a bare
// string or an array.
func (c *UserClaims) UnmarshalJSON(data []byte) error {
	var raw struct {
		Email     string              `json:"email"`
		FirstName string              `json:"given_name"`
		LastName  string              `json:"family_name"`
		Roles     FlexibleStringSlice `json:"roles"`
		Groups    []string            `json:"groups"`
		OrgName   string              `json:"org_name"`
		IdpUserID string              `json:"sub"`
		Issuer    string              `json:"iss"`
		Audience  FlexibleStringSlice `json:"aud"`
		ExpiresAt interface{}         `json:"exp"`
		IssuedAt  interface{}         `json:"iat"`
		NotBefore interface{}         `json:"nbf"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	expiresAt, err := parseUnixTimestamp(raw.ExpiresAt)
	if err != nil {
		return fmt.Errorf("invalid exp claim: %v", err)
	}
	issuedAt, err := parseUnixTimestamp(raw.IssuedAt)
	if err != nil {
		return fmt.Errorf("invalid iat claim: %v", err)
	}
	notBefore, err := parseUnixTimestamp(raw.NotBefore)
	if err != nil {
		return fmt.Errorf("invalid nbf claim: %v", err)
	}

	*c = UserClaims{
		Email:     raw.Email,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Roles:     raw.Roles,
		Groups:    raw.Groups,
		OrgName:   raw.OrgName,
		IdpUserID: raw.IdpUserID,
		Issuer:    raw.Issuer,
		Audience:  raw.Audience.ToStringSlice(),
		ExpiresAt: expiresAt,
		IssuedAt:  issuedAt,
		NotBefore: notBefore,
	}
	return nil
}

// parseUnixTimestamp converts a numeric or string claim to time.Time.
// A missing claim yields the zero time.
func parseUnixTimestamp(claim interface{}) (time.Time, error) {
	switch v := claim.(type) {
	case nil:
		return time.Time{}, nil
	case float64:
		return time.Unix(int64(v), 0), nil
	case int64:
		return time.Unix(v, 0), nil
	case string:
		timestamp, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(timestamp, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid timestamp format")
	}
}

// GetExpirationTime implements jwt.Claims interface
func (c *UserClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt.IsZero() {
		return nil, nil
	}
	return jwt.NewNumericDate(c.ExpiresAt), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *UserClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt.IsZero() {
		return nil, nil
	}
	return jwt.NewNumericDate(c.IssuedAt), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *UserClaims) GetNotBefore() (*jwt.NumericDate, error) {
	if c.NotBefore.IsZero() {
		return nil, nil
	}
	return jwt.NewNumericDate(c.NotBefore), nil
}

// GetIssuer implements jwt.Claims interface
func (c *UserClaims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

// GetSubject implements jwt.Claims interface
func (c *UserClaims) GetSubject() (string, error) {
	return c.IdpUserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *UserClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings(c.Audience), nil
}

// AuthenticatedUser represents the authenticated user context
type AuthenticatedUser struct {
	IdpUserID string    `json:"idpUserId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []Role    `json:"roles"`
	Groups    []string  `json:"groups"`
	OrgName   string    `json:"orgName"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HasRole checks if the user has a specific role
func (u *AuthenticatedUser) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the user has any of the specified roles
func (u *AuthenticatedUser) HasAnyRole(roles ...Role) bool {
	for _, requiredRole := range roles {
		for _, userRole := range u.Roles {
			if userRole == requiredRole {
				return true
			}
		}
	}
	return false
}

// HasPermission checks if the user has a specific permission based on their roles
func (u *AuthenticatedUser) HasPermission(permission Permission) bool {
	for _, role := range u.Roles {
		if role.HasPermission(permission) {
			return true
		}
	}
	return false
}

// IsAdmin checks if the user has admin role
func (u *AuthenticatedUser) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// IsMember checks if the user has member role
func (u *AuthenticatedUser) IsMember() bool {
	return u.HasRole(RoleMember)
}

// IsSystem checks if the user has system role
func (u *AuthenticatedUser) IsSystem() bool {
	return u.HasRole(RoleSystem)
}

// GetPrimaryRole returns the highest priority role (Admin > System > Member)
func (u *AuthenticatedUser) GetPrimaryRole() Role {
	if u.HasRole(RoleAdmin) {
		return RoleAdmin
	}
	if u.HasRole(RoleSystem) {
		return RoleSystem
	}
	return RoleMember
}

// GetPermissions returns all permissions the user has based on their roles
func (u *AuthenticatedUser) GetPermissions() []Permission {
	permissionSet := make(map[Permission]bool)

	for _, role := range u.Roles {
		if permissions, exists := RolePermissions[role]; exists {
			for _, permission := range permissions {
				permissionSet[permission] = true
			}
		}
	}

	var permissions []Permission
	for permission := range permissionSet {
		permissions = append(permissions, permission)
	}

	return permissions
}

// IsTokenExpired checks if the user's token is expired
func (u *AuthenticatedUser) IsTokenExpired() bool {
	return time.Now().After(u.ExpiresAt)
}

// AuthContext represents the authentication context in HTTP requests
type AuthContext struct {
	User        *AuthenticatedUser `json:"user"`
	Token       string             `json:"-"` // Don't expose in JSON
	IssuedBy    string             `json:"issuedBy"`
	Audience    []string           `json:"audience"`
	Permissions []Permission       `json:"permissions"`
}

// NewAuthenticatedUser creates a new authenticated user from JWT claims
func NewAuthenticatedUser(claims *UserClaims) *AuthenticatedUser {
	var roles []Role
	for _, roleStr := range claims.Roles.ToStringSlice() {
		role := Role(roleStr)
		if role.IsValid() {
			roles = append(roles, role)
		}
	}

	// Tokens without a recognized role get the least privileged one
	if len(roles) == 0 {
		roles = []Role{RoleMember}
	}

	return &AuthenticatedUser{
		IdpUserID: claims.IdpUserID,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Roles:     roles,
		Groups:    claims.Groups,
		OrgName:   claims.OrgName,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}
}
