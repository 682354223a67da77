package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brigade-attendance/attendance-backend/v1/models"
	authutils "github.com/brigade-attendance/attendance-backend/v1/utils"
	"github.com/stretchr/testify/assert"
)

func requestWithUser(method, path string, user *models.AuthenticatedUser) *http.Request {
	r := httptest.NewRequest(method, path, nil)
	if user != nil {
		r = r.WithContext(authutils.SetAuthenticatedUser(r.Context(), user))
	}
	return r
}

func adminUser() *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		IdpUserID: "admin-1",
		Email:     "admin@brigade.example",
		Roles:     []models.Role{models.RoleAdmin},
	}
}

func memberUser() *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		IdpUserID: "member-1",
		Email:     "member@brigade.example",
		Roles:     []models.Role{models.RoleMember},
	}
}

func systemUser() *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		IdpUserID: "system-1",
		Email:     "system@brigade.example",
		Roles:     []models.Role{models.RoleSystem},
	}
}

func serveAuthorize(middleware *AuthorizationMiddleware, r *http.Request) (*httptest.ResponseRecorder, bool) {
	called := false
	handler := middleware.AuthorizeRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w, called
}

func TestAuthorizeRequestDefinedEndpoints(t *testing.T) {
	authutils.ResetEndpointCacheForTesting()
	defer authutils.ResetEndpointCacheForTesting()

	middleware := NewAuthorizationMiddleware()

	tests := []struct {
		name           string
		method         string
		path           string
		user           *models.AuthenticatedUser
		expectedStatus int
	}{
		{"Admin lists members", http.MethodGet, "/api/v1/members", adminUser(), http.StatusOK},
		{"Admin updates member", http.MethodPut, "/api/v1/members/12345", adminUser(), http.StatusOK},
		{"Admin exports report", http.MethodPost, "/api/v1/reports/export", adminUser(), http.StatusOK},
		{"Member cannot list members", http.MethodGet, "/api/v1/members", memberUser(), http.StatusForbidden},
		{"Member cannot export", http.MethodPost, "/api/v1/reports/export", memberUser(), http.StatusForbidden},
		{"System runs reports", http.MethodPost, "/api/v1/reports/run", systemUser(), http.StatusOK},
		{"System cannot export", http.MethodPost, "/api/v1/reports/export", systemUser(), http.StatusForbidden},
		{"Unauthenticated request", http.MethodGet, "/api/v1/members", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, called := serveAuthorize(middleware, requestWithUser(tt.method, tt.path, tt.user))
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, called)
		})
	}
}

func TestAuthorizeRequestUndefinedEndpoints(t *testing.T) {
	authutils.ResetEndpointCacheForTesting()
	defer authutils.ResetEndpointCacheForTesting()

	tests := []struct {
		name           string
		mode           models.AuthorizationMode
		user           *models.AuthenticatedUser
		expectedStatus int
	}{
		{"Fail closed denies admin", models.AuthorizationModeFailClosed, adminUser(), http.StatusForbidden},
		{"Fail closed denies member", models.AuthorizationModeFailClosed, memberUser(), http.StatusForbidden},
		{"Fail open admin allows admin", models.AuthorizationModeFailOpenAdmin, adminUser(), http.StatusOK},
		{"Fail open admin denies system", models.AuthorizationModeFailOpenAdmin, systemUser(), http.StatusForbidden},
		{"Fail open admin denies member", models.AuthorizationModeFailOpenAdmin, memberUser(), http.StatusForbidden},
		{"Admin-system mode allows system", models.AuthorizationModeFailOpenAdminSystem, systemUser(), http.StatusOK},
		{"Admin-system mode denies member", models.AuthorizationModeFailOpenAdminSystem, memberUser(), http.StatusForbidden},
		{"Invalid mode falls back to deny", models.AuthorizationMode("bogus"), adminUser(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := NewAuthorizationMiddlewareWithConfig(AuthorizationConfig{Mode: tt.mode})
			w, called := serveAuthorize(middleware, requestWithUser(http.MethodGet, "/api/v1/undocumented", tt.user))
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, called)
		})
	}
}

func TestAuthorizeRequestSkipPaths(t *testing.T) {
	middleware := NewAuthorizationMiddleware()

	for _, path := range []string{"/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			w, called := serveAuthorize(middleware, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, called)
		})
	}
}

func TestRequireAdminRole(t *testing.T) {
	middleware := NewAuthorizationMiddleware()
	handler := middleware.RequireAdminRole()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("Admin passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestWithUser(http.MethodGet, "/api/v1/anything", adminUser()))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Member denied", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestWithUser(http.MethodGet, "/api/v1/anything", memberUser()))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
