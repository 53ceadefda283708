// Package signer mints and verifies signed access tokens.
package signer

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/secureapi/authcore/internal/apperrors"
	"github.com/secureapi/authcore/internal/models"
	"github.com/secureapi/authcore/internal/service/auth/claims"
)

// Minimal HMAC key length, 128 bits
const minKeyLen = 16

type Config struct {
	// Secret key to sign access tokens, at least 128 bits
	Key string

	// Issuer and audience stamped into and required from every token
	Issuer   string
	Audience string

	// Access token lifetime, must be positive
	TTL time.Duration
}

// Signer is a stateless access token codec. Both directions are pure
// functions of the configuration and the provided clock value.
type Signer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	alg      jwt.SigningMethod
}

func New(cfg Config) (*Signer, error) {
	if len(cfg.Key) < minKeyLen {
		return nil, fmt.Errorf("signer config: %w", apperrors.ErrWeakKey)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("signer config: %w", apperrors.ErrInvalidTTL)
	}

	return &Signer{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		alg:      jwt.SigningMethodHS256,
	}, nil
}

// Sign produces a token expiring at now + TTL.
// JWT timestamps carry second precision, so now is truncated to a second.
func (s *Signer) Sign(c claims.AccessClaims, now time.Time) (models.IssuedToken, error) {
	now = now.Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	c.Issuer = s.issuer
	c.Audience = jwt.ClaimStrings{s.audience}
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(expiresAt)

	value, err := jwt.NewWithClaims(s.alg, c).SignedString(s.key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

// Verify parses the token and evaluates signature, issuer, audience and
// expiry as independent checks. Every failed check appears in the returned
// error, nothing is hidden by short-circuiting. Expiry is exact: a token is
// rejected from the very moment now >= exp, no clock-skew leeway.
func (s *Signer) Verify(tokenString string, now time.Time) (claims.AccessClaims, error) {
	var c claims.AccessClaims

	// Claims validation is done by hand below, the parser only
	// checks structure and signature
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.alg.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return s.key, nil
	})

	var checks []error
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		// Claims decode before the signature check, so the remaining
		// checks still run on the decoded values
		checks = append(checks, apperrors.ErrSignatureInvalid)
	default:
		return c, fmt.Errorf("error while parsing token. Err: %w", err)
	}

	if c.Issuer != s.issuer {
		checks = append(checks, apperrors.ErrIssuerMismatch)
	}
	if !slices.Contains(c.Audience, s.audience) {
		checks = append(checks, apperrors.ErrAudienceMismatch)
	}
	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time) {
		checks = append(checks, apperrors.ErrTokenExpired)
	}

	if err := errors.Join(checks...); err != nil {
		return c, fmt.Errorf("token verification failed: %w", err)
	}

	return c, nil
}
