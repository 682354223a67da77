package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKid = "test-key-1"

// generateTestKeys creates an RSA key pair for signing test tokens
func generateTestKeys(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return privateKey
}

// createJWKSResponse builds the JWKS document for a public key
func createJWKSResponse(publicKey *rsa.PublicKey) JWKS {
	return JWKS{
		Keys: []JWK{
			{
				Kty: "RSA",
				Kid: testKid,
				Use: "sig",
				Alg: "RS256",
				N:   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
			},
		},
	}
}

// newJWKSServer serves the JWKS for the given key over httptest
func newJWKSServer(t *testing.T, publicKey *rsa.PublicKey) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(createJWKSResponse(publicKey)); err != nil {
			t.Errorf("failed to encode JWKS: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// createTestToken signs a token with the test key
func createTestToken(t *testing.T, privateKey *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(privateKey)
	require.NoError(t, err)
	return signed
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":      "user-123",
		"email":    "member@brigade.example",
		"roles":    []string{"Brigade_Member"},
		"org_name": "org-1",
		"iss":      "https://idp.example.com/oauth2/token",
		"aud":      "client-1",
		"exp":      now.Add(time.Hour).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
	}
}

func TestJWTAuthConfigValidate(t *testing.T) {
	valid := JWTAuthConfig{
		JWKSURL:        "https://idp.example.com/oauth2/jwks",
		ExpectedIssuer: "https://idp.example.com/oauth2/token",
		ValidClientIDs: []string{"client-1"},
	}

	tests := []struct {
		name        string
		mutate      func(*JWTAuthConfig)
		expectError bool
	}{
		{"Complete config", func(c *JWTAuthConfig) {}, false},
		{"Missing JWKS URL", func(c *JWTAuthConfig) { c.JWKSURL = "" }, true},
		{"Missing issuer", func(c *JWTAuthConfig) { c.ExpectedIssuer = "" }, true},
		{"No client IDs", func(c *JWTAuthConfig) { c.ValidClientIDs = nil }, true},
		{"Empty client ID", func(c *JWTAuthConfig) { c.ValidClientIDs = []string{"client-1", ""} }, true},
		{"Org name optional", func(c *JWTAuthConfig) { c.OrgName = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthenticateJWT(t *testing.T) {
	privateKey := generateTestKeys(t)
	jwksServer := newJWKSServer(t, &privateKey.PublicKey)

	config := JWTAuthConfig{
		JWKSURL:        jwksServer.URL,
		ExpectedIssuer: "https://idp.example.com/oauth2/token",
		ValidClientIDs: []string{"client-1", "client-2"},
		OrgName:        "org-1",
		Timeout:        5 * time.Second,
	}

	newHandler := func() (http.Handler, *bool) {
		middleware := NewJWTAuthMiddleware(config)
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			user, err := GetUserFromRequest(r)
			require.NoError(t, err)
			assert.Equal(t, "user-123", user.IdpUserID)
			w.WriteHeader(http.StatusOK)
		})
		return middleware.AuthenticateJWT(next), &called
	}

	tests := []struct {
		name           string
		claims         func() jwt.MapClaims
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Valid token",
			claims:         baseClaims,
			expectedStatus: http.StatusOK,
		},
		{
			name: "Array audience matches second client",
			claims: func() jwt.MapClaims {
				claims := baseClaims()
				claims["aud"] = []string{"other-client", "client-2"}
				return claims
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Bare string role",
			claims: func() jwt.MapClaims {
				claims := baseClaims()
				claims["roles"] = "Brigade_Admin"
				return claims
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Expired token",
			claims: func() jwt.MapClaims {
				claims := baseClaims()
				claims["exp"] = time.Now().Add(-time.Hour).Unix()
				return claims
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid access token",
		},
		{
			name: "Not valid yet",
			claims: func() jwt.MapClaims {
				claims := baseClaims()
				claims["nbf"] = time.Now().Add(time.Hour).Unix()
				return claims
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid access token",
		},
		{
			name: "Wrong issuer",
			claims: func() jwt.MapClaims {
				claims := baseClaims()
				claims["iss"] = "https://rogue.example.com"
				return claims
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid access token",
		},
		{
			name: "Unknown audience",
			claims: func() jwt.MapClaims {
				claims := baseClaims()
				claims["aud"] = "unknown-client"
				return claims
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid access token",
		},
		{
			name: "Wrong organization",
			claims: func() jwt.MapClaims {
				claims := baseClaims()
				claims["org_name"] = "other-org"
				return claims
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid access token",
		},
		{
			name: "Missing email claim",
			claims: func() jwt.MapClaims {
				claims := baseClaims()
				delete(claims, "email")
				return claims
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid access token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, called := newHandler()

			r := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
			r.Header.Set("Authorization", "Bearer "+createTestToken(t, privateKey, tt.claims()))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
				assert.False(t, *called)
			}
		})
	}

	t.Run("Missing authorization header", func(t *testing.T) {
		handler, called := newHandler()

		r := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or missing authorization header")
		assert.False(t, *called)
	})

	t.Run("Garbage token", func(t *testing.T) {
		handler, called := newHandler()

		r := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
		r.Header.Set("Authorization", "Bearer not.a.token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, *called)
	})

	t.Run("Token signed by a different key", func(t *testing.T) {
		handler, called := newHandler()
		rogueKey := generateTestKeys(t)

		r := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
		r.Header.Set("Authorization", "Bearer "+createTestToken(t, rogueKey, baseClaims()))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, *called)
	})

	t.Run("Health endpoint skips authentication", func(t *testing.T) {
		middleware := NewJWTAuthMiddleware(config)
		called := false
		handler := middleware.AuthenticateJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))

		r := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	t.Run("Unknown kid fails after one refresh", func(t *testing.T) {
		middleware := NewJWTAuthMiddleware(config)
		handler := middleware.AuthenticateJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		token := jwt.NewWithClaims(jwt.SigningMethodRS256, baseClaims())
		token.Header["kid"] = "unknown-key"
		signed, err := token.SignedString(privateKey)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
		r.Header.Set("Authorization", "Bearer "+signed)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
