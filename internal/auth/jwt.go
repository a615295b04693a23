// Package auth verifies bearer tokens issued by the external identity provider.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
}

// Verifier validates HS256 tokens and extracts the caller identity from the subject claim.
type Verifier struct {
	secret   []byte
	issuer   string
	audience []string
}

// NewVerifier creates a verifier. Issuer and audience are only checked when set.
func NewVerifier(secret, issuer string, audience []string) *Verifier {
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.issuer))
	}

	claims := &gojwt.RegisteredClaims{}
	_, err := gojwt.ParseWithClaims(raw, claims, func(*gojwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if len(v.audience) > 0 && !slices.ContainsFunc(claims.Audience, func(a string) bool {
		return slices.Contains(v.audience, a)
	}) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{UserID: claims.Subject}, nil
}

// Issue signs a token for userID. The server never issues tokens itself; this is used
// by the watch CLI for local development and by tests.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := gojwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    v.issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
	if len(v.audience) > 0 {
		claims.Audience = gojwt.ClaimStrings(v.audience)
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
