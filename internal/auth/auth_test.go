package auth

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard() *Guard {
	return NewGuard("test-secret-that-is-long-enough", "roster", time.Hour)
}

func requireAuthError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *Error
	require.True(t, errors.As(err, &ae), "expected *auth.Error, got %v", err)
	assert.Equal(t, status, ae.Status)
	assert.Equal(t, code, ae.Code)
}

func TestGuard_IssueAndRequire(t *testing.T) {
	g := newTestGuard()
	token, err := g.Issue(Principal{Subject: "u-1", Role: RoleAdmin, Email: "a@example.com"})
	require.NoError(t, err)

	p, err := g.RequireAuth("Bearer "+token, RoleAdmin, RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "u-1", Role: RoleAdmin, Email: "a@example.com"}, p)

	// No role restriction.
	_, err = g.RequireAuth("Bearer " + token)
	assert.NoError(t, err)
}

func TestGuard_RequireAuth_Failures(t *testing.T) {
	g := newTestGuard()
	teacher, err := g.Issue(Principal{Subject: "u-2", Role: RoleTeacher})
	require.NoError(t, err)

	other := NewGuard("a-different-secret-entirely", "roster", time.Hour)
	foreign, err := other.Issue(Principal{Subject: "u-3", Role: RoleAdmin})
	require.NoError(t, err)

	wrongIssuer := NewGuard("test-secret-that-is-long-enough", "someone-else", time.Hour)
	misissued, err := wrongIssuer.Issue(Principal{Subject: "u-4", Role: RoleAdmin})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrong issuer", "Bearer " + misissued, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"role not allowed", "Bearer " + teacher, http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.RequireAuth(tt.header, RoleAdmin, RoleSuperAdmin)
			requireAuthError(t, err, tt.status, tt.code)
		})
	}
}

func TestGuard_RequireAuth_Expired(t *testing.T) {
	g := newTestGuard()
	g.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := g.Issue(Principal{Subject: "u-1", Role: RoleAdmin})
	require.NoError(t, err)

	g.now = time.Now
	_, err = g.RequireAuth("Bearer "+token, RoleAdmin)
	requireAuthError(t, err, http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TestGuard_RequireAuth_RejectsNoneAlgorithm(t *testing.T) {
	g := newTestGuard()
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "roster",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = g.RequireAuth("Bearer "+token, RoleAdmin)
	requireAuthError(t, err, http.StatusUnauthorized, "INVALID_TOKEN")
}

func TestGuard_RequireAuth_MissingSubject(t *testing.T) {
	g := newTestGuard()
	token, err := g.Issue(Principal{Role: RoleAdmin})
	require.NoError(t, err)

	_, err = g.RequireAuth("Bearer "+token, RoleAdmin)
	requireAuthError(t, err, http.StatusUnauthorized, "INVALID_TOKEN")
}
