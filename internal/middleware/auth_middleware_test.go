package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func protectedEcho(t *testing.T, key *rsa.PrivateKey, requireRole string) http.Handler {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, _ := r.Context().Value(ContextKeyUserID).(string)
		w.Header().Set("X-Sub", sub)
		w.WriteHeader(http.StatusOK)
	})
	var h http.Handler = inner
	if requireRole != "" {
		h = RequireRole(requireRole)(h)
	}
	return AuthMiddleware(&key.PublicKey)(h)
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	key := newSigningKey(t)
	sub := uuid.NewString()
	token := signToken(t, key, jwt.MapClaims{
		"sub":  sub,
		"role": RoleStudent,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t, key, "").ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, sub, rec.Header().Get("X-Sub"))
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	key := newSigningKey(t)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	rec := httptest.NewRecorder()
	protectedEcho(t, key, "").ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	key := newSigningKey(t)
	token := signToken(t, key, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": RoleStudent,
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t, key, "").ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsWrongKey(t *testing.T) {
	signer := newSigningKey(t)
	verifier := newSigningKey(t)
	token := signToken(t, signer, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t, verifier, "").ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	key := newSigningKey(t)
	token := signToken(t, key, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": RoleStudent,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t, key, RoleFaculty).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAdminPassThrough(t *testing.T) {
	key := newSigningKey(t)
	token := signToken(t, key, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t, key, RoleFaculty).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
