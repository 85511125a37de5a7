// Package auth verifies admin bearer tokens, evaluates the capability table
// and checks the service-to-service key.
package auth

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"slices"
	"strings"
	"time"
)

type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool { return slices.Contains(c.Roles, role) }

// Verifier checks HS256 tokens against a shared secret, issuer and audience.
type Verifier struct {
	Secret   []byte
	Issuer   string
	Audience string
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	if len(v.Secret) == 0 {
		return nil, apperr.Wrap(apperr.KindUnauthorized, errors.New("jwt secret not configured"), "verify")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return v.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.Issuer),
		jwt.WithAudience(v.Audience),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, "verify")
	}
	return claims, nil
}

// Sign mints a token for the verifier's issuer and audience.
func (v *Verifier) Sign(subject string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.Issuer,
			Audience:  jwt.ClaimStrings{v.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}

// BearerToken extracts the token of an "Authorization: Bearer x" header.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
