package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrTokenExpired signals that the provided access token has expired.
	ErrTokenExpired = errors.New("auth: access token expired")
	// ErrTokenInvalid signals that the provided access token is invalid for other reasons.
	ErrTokenInvalid = errors.New("auth: access token invalid")
)

// AdminClaims carries the staff identity embedded in admin access tokens.
type AdminClaims struct {
	Name  string   `json:"name,omitempty"`
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HMAC-signed admin access tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// VerifierOption customises TokenVerifier behaviour.
type VerifierOption func(*TokenVerifier)

// WithIssuer requires tokens to carry the given issuer claim.
func WithIssuer(issuer string) VerifierOption {
	return func(v *TokenVerifier) {
		v.issuer = strings.TrimSpace(issuer)
	}
}

// NewTokenVerifier constructs a verifier for HS256-signed tokens.
func NewTokenVerifier(secret string, opts ...VerifierOption) (*TokenVerifier, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("auth: signing secret is required")
	}

	verifier := &TokenVerifier{
		secret: []byte(trimmed),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(verifier)
		}
	}
	return verifier, nil
}

// Verify parses and validates the token, returning the embedded identity.
func (v *TokenVerifier) Verify(tokenStr string) (*Identity, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, ErrTokenInvalid
	}
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	claims := &AdminClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %s", token.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenInvalid, claims.Issuer)
	}

	roles := claims.Roles
	if len(roles) == 0 && strings.TrimSpace(claims.Role) != "" {
		roles = []string{claims.Role}
	}
	normalised := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = normaliseRole(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		normalised = append(normalised, role)
	}

	return &Identity{
		Subject: claims.Subject,
		Name:    strings.TrimSpace(claims.Name),
		Roles:   normalised,
	}, nil
}

// IssueToken signs an admin access token for the given identity. It is used
// by operational tooling and tests; production tokens come from the staff
// identity provider.
func IssueToken(secret, issuer string, identity Identity, ttl time.Duration, now time.Time) (string, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return "", errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		return "", errors.New("auth: token ttl must be positive")
	}
	if now.IsZero() {
		now = time.Now()
	}

	claims := AdminClaims{
		Name:  identity.Name,
		Roles: identity.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			Issuer:    strings.TrimSpace(issuer),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(trimmed))
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
