package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveCORS(t *testing.T, method string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewCORSMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(method, "/api/v1/members", nil))
	return w
}

func TestCORSDefaults(t *testing.T) {
	w := serveCORS(t, http.MethodGet)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	// Credentials must never accompany a wildcard origin
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSConfiguredOrigin(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://portal.brigade.example")

	w := serveCORS(t, http.MethodGet)

	assert.Equal(t, "https://portal.brigade.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflight(t *testing.T) {
	handler := NewCORSMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight should not reach the handler")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/members", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSMaxAgeOverride(t *testing.T) {
	t.Setenv("CORS_MAX_AGE", "600")
	w := serveCORS(t, http.MethodGet)
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORSMaxAgeRejectsNonNumeric(t *testing.T) {
	t.Setenv("CORS_MAX_AGE", "tomorrow")
	w := serveCORS(t, http.MethodGet)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}
