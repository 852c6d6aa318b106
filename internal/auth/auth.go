// Package auth guards admin routes with HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles recognized by the roster service.
const (
	RoleSuperAdmin = "superAdmin"
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleParent     = "parent"
)

// Error is an authentication or authorization failure. Status and Code are
// passed through to the HTTP response unchanged.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus returns the response status for the failure.
func (e *Error) HTTPStatus() int { return e.Status }

// ErrorCode returns the response code for the failure.
func (e *Error) ErrorCode() string { return e.Code }

func unauthorized(code, msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: code, Message: msg}
}

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Role    string
	Email   string
}

// Claims is the token payload.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Guard validates and issues tokens.
type Guard struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewGuard returns a Guard signing with secret. Tokens it issues expire
// after ttl.
func NewGuard(secret, issuer string, ttl time.Duration) *Guard {
	return &Guard{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a token for p.
func (g *Guard) Issue(p Principal) (string, error) {
	now := g.now()
	claims := Claims{
		Role:  p.Role,
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    g.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// RequireAuth validates an Authorization header value ("Bearer <token>").
// When roles is non-empty the caller's role must be one of them.
func (g *Guard) RequireAuth(authHeader string, roles ...string) (Principal, error) {
	if authHeader == "" {
		return Principal{}, unauthorized("UNAUTHORIZED", "Missing authorization token")
	}
	raw, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Principal{}, unauthorized("UNAUTHORIZED", "Invalid authorization header format")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims,
		func(*jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, unauthorized("TOKEN_EXPIRED", "Token has expired")
		}
		return Principal{}, unauthorized("INVALID_TOKEN", "Invalid token")
	}
	if claims.Subject == "" {
		return Principal{}, unauthorized("INVALID_TOKEN", "Invalid token")
	}

	p := Principal{Subject: claims.Subject, Role: claims.Role, Email: claims.Email}
	if len(roles) > 0 && !slices.Contains(roles, p.Role) {
		return Principal{}, &Error{
			Status:  http.StatusForbidden,
			Code:    "FORBIDDEN",
			Message: "Access denied: requires role " + strings.Join(roles, " or "),
		}
	}
	return p, nil
}
