package middlewarectx_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festiva/festiva/internal/http/middlewarectx"
	"github.com/festiva/festiva/internal/lib/jwt"
)

const secret = "test-secret"

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newToken(t *testing.T, key string, ttl time.Duration) string {
	t.Helper()
	token, err := jwt.GenerateToken(key, jwt.Claims{
		Email:            "maria@example.com",
		Phone:            "+5511999999999",
		UserMetadata:     jwt.UserMetadata{FullName: "Maria Silva"},
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "user-1"},
	}, ttl)
	require.NoError(t, err)
	return token
}

func TestJWTMiddleware(t *testing.T) {
	verifier := jwt.NewVerifier(secret, "", "")

	tests := []struct {
		name           string
		authHeader     string
		failStatus     int
		expectedStatus int
		expectCalled   bool
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer " + newToken(t, secret, time.Hour),
			failStatus:     http.StatusUnauthorized,
			expectedStatus: http.StatusOK,
			expectCalled:   true,
		},
		{
			name:           "missing header",
			failStatus:     http.StatusUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "not a bearer header",
			authHeader:     "Basic abc",
			failStatus:     http.StatusUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong signing key",
			authHeader:     "Bearer " + newToken(t, "other-secret", time.Hour),
			failStatus:     http.StatusUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer " + newToken(t, secret, -time.Hour),
			failStatus:     http.StatusUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "custom fail status",
			authHeader:     "Bearer garbage",
			failStatus:     http.StatusBadRequest,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				userID, ok := middlewarectx.UserIDFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "user-1", userID)
				assert.Equal(t, "maria@example.com", middlewarectx.StringFrom(r.Context(), middlewarectx.Email))
				assert.Equal(t, "+5511999999999", middlewarectx.StringFrom(r.Context(), middlewarectx.Phone))
				assert.Equal(t, "Maria Silva", middlewarectx.StringFrom(r.Context(), middlewarectx.FullName))
				w.WriteHeader(http.StatusOK)
			})
			handler := middlewarectx.JWTMiddleware(verifier, newNoopLogger(), tt.failStatus)(next)

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectCalled, called)
			if !tt.expectCalled {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestCORS(t *testing.T) {
	called := false
	handler := middlewarectx.CORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payments/create", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.False(t, called)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/create", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
