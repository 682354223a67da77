package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/brigade-attendance/attendance-backend/shared/utils"
	"github.com/brigade-attendance/attendance-backend/v1/models"
	authutils "github.com/brigade-attendance/attendance-backend/v1/utils"
)

// AuthorizationConfig configures the authorization middleware behavior
type AuthorizationConfig struct {
	// Mode defines the behavior when no explicit permission is defined for an endpoint
	Mode models.AuthorizationMode

	// StrictMode when true, logs warnings about undefined endpoints
	StrictMode bool
}

// AuthorizationMiddleware provides role-based access control over the
// endpoint permission table
type AuthorizationMiddleware struct {
	config AuthorizationConfig
}

// NewAuthorizationMiddleware creates an authorization middleware with the
// default fail-closed configuration
func NewAuthorizationMiddleware() *AuthorizationMiddleware {
	return NewAuthorizationMiddlewareWithConfig(AuthorizationConfig{
		Mode:       models.AuthorizationModeFailClosed,
		StrictMode: false,
	})
}

// NewAuthorizationMiddlewareWithConfig creates a new authorization middleware with custom configuration
func NewAuthorizationMiddlewareWithConfig(config AuthorizationConfig) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{
		config: config,
	}
}

// AuthorizeRequest returns a middleware function that checks user permissions for endpoints
func (a *AuthorizationMiddleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.shouldSkipAuthorization(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// Set by the JWT middleware earlier in the chain
		user, err := authutils.RequireAuthentication(r)
		if err != nil {
			slog.Warn("Authorization failed: user not authenticated", "path", r.URL.Path, "method", r.Method, "error", err)
			utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		endpointPermission, found := authutils.FindEndpointPermission(r.Method, r.URL.Path)
		if !found {
			if a.handleUndefinedEndpoint(w, r, user) {
				return // Response already sent
			}
			next.ServeHTTP(w, r)
			return
		}

		if !user.HasPermission(endpointPermission.Permission) {
			slog.Warn("Access denied: insufficient permissions",
				"user", user.Email,
				"role", user.GetPrimaryRole(),
				"required_permission", endpointPermission.Permission,
				"path", r.URL.Path,
				"method", r.Method)
			utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}

		slog.Info("Access granted",
			"user", user.Email,
			"role", user.GetPrimaryRole(),
			"permission", endpointPermission.Permission,
			"path", r.URL.Path,
			"method", r.Method)

		next.ServeHTTP(w, r)
	})
}

// RequireRole returns a middleware that requires a specific role
func (a *AuthorizationMiddleware) RequireRole(requiredRole models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authutils.RequireRole(r, requiredRole)
			if err != nil {
				slog.Warn("Role requirement not met",
					"required_role", requiredRole,
					"path", r.URL.Path,
					"method", r.Method,
					"error", err)
				utils.RespondWithError(w, http.StatusForbidden, "Insufficient privileges")
				return
			}

			slog.Info("Role requirement satisfied",
				"user", user.Email,
				"required_role", requiredRole,
				"user_roles", user.Roles,
				"path", r.URL.Path,
				"method", r.Method)

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminRole is a convenience middleware that requires admin role
func (a *AuthorizationMiddleware) RequireAdminRole() func(http.Handler) http.Handler {
	return a.RequireRole(models.RoleAdmin)
}

// handleUndefinedEndpoint handles access control for endpoints without explicit permission mappings.
// Returns true if response was sent (request should stop), false if request should continue.
func (a *AuthorizationMiddleware) handleUndefinedEndpoint(w http.ResponseWriter, r *http.Request, user *models.AuthenticatedUser) bool {
	if a.config.StrictMode {
		slog.Warn("SECURITY: Undefined endpoint accessed - consider adding explicit permission mapping",
			"user", user.Email,
			"role", user.GetPrimaryRole(),
			"path", r.URL.Path,
			"method", r.Method,
			"mode", a.config.Mode)
	}

	switch a.config.Mode {
	case models.AuthorizationModeFailClosed:
		slog.Warn("Access denied to undefined endpoint (fail-closed mode)",
			"user", user.Email,
			"role", user.GetPrimaryRole(),
			"path", r.URL.Path,
			"method", r.Method)
		utils.RespondWithError(w, http.StatusForbidden, "Endpoint access not explicitly permitted")
		return true

	case models.AuthorizationModeFailOpenAdmin:
		if user.IsAdmin() {
			return false // Continue to handler
		}

		slog.Warn("Access denied to undefined endpoint (admin-only mode)",
			"user", user.Email,
			"role", user.GetPrimaryRole(),
			"path", r.URL.Path,
			"method", r.Method)
		utils.RespondWithError(w, http.StatusForbidden, "Administrative access required")
		return true

	case models.AuthorizationModeFailOpenAdminSystem:
		if user.IsAdmin() || user.IsSystem() {
			return false // Continue to handler
		}

		slog.Warn("Access denied to undefined endpoint (admin/system mode)",
			"user", user.Email,
			"role", user.GetPrimaryRole(),
			"path", r.URL.Path,
			"method", r.Method)
		utils.RespondWithError(w, http.StatusForbidden, "Administrative or system access required")
		return true

	default:
		// Fallback to most secure mode if configuration is invalid
		slog.Error("Invalid authorization mode, defaulting to fail-closed",
			"mode", a.config.Mode,
			"path", r.URL.Path,
			"method", r.Method)
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return true
	}
}

// shouldSkipAuthorization determines if authorization should be skipped for this path
func (a *AuthorizationMiddleware) shouldSkipAuthorization(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
		"/favicon.ico",
	}

	for _, skipPath := range skipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// GetUserFromRequest is a helper to extract the authenticated user from request context
func GetUserFromRequest(r *http.Request) (*models.AuthenticatedUser, error) {
	return authutils.GetAuthenticatedUser(r.Context())
}

// GetAuthContextFromRequest is a helper to extract the auth context from request context
func GetAuthContextFromRequest(r *http.Request) (*models.AuthContext, error) {
	return authutils.GetAuthContext(r.Context())
}
