package signer

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureapi/authcore/internal/apperrors"
	"github.com/secureapi/authcore/internal/models"
	"github.com/secureapi/authcore/internal/service/auth/claims"
)

func testConfig() Config {
	return Config{
		Key:      "0123456789abcdef0123456789abcdef",
		Issuer:   "authcore",
		Audience: "authcore-clients",
		TTL:      15 * time.Minute,
	}
}

func testUser() models.User {
	return models.User{
		ID:       uuid.New(),
		Username: "alice",
		Email:    "alice@x.com",
	}
}

func mustBuild(t *testing.T, user models.User, roles []string) claims.AccessClaims {
	t.Helper()

	c, err := claims.Build(user, roles, nil)
	require.NoError(t, err, "claims for a valid user should build")
	return c
}

func Test_New(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		s, err := New(testConfig())

		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("key shorter than 128 bits rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.Key = "too-short"

		_, err := New(cfg)

		require.ErrorIs(t, err, apperrors.ErrWeakKey)
	})

	t.Run("key of exactly 128 bits accepted", func(t *testing.T) {
		cfg := testConfig()
		cfg.Key = "0123456789abcdef"

		_, err := New(cfg)

		require.NoError(t, err)
	})

	t.Run("zero ttl rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.TTL = 0

		_, err := New(cfg)

		require.ErrorIs(t, err, apperrors.ErrInvalidTTL)
	})

	t.Run("negative ttl rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.TTL = -time.Minute

		_, err := New(cfg)

		require.ErrorIs(t, err, apperrors.ErrInvalidTTL)
	})
}

func Test_Signer_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	require.NoError(t, err)

	user := testUser()
	now := time.Now().Truncate(time.Second)

	t.Run("signed token verifies and carries the claims back", func(t *testing.T) {
		in := mustBuild(t, user, []string{"User", "Administrator"})

		token, err := s.Sign(in, now)
		require.NoError(t, err)
		require.NotEmpty(t, token.Value)
		assert.Equal(t, now.Add(15*time.Minute), token.ExpiresAt)

		out, err := s.Verify(token.Value, now)
		require.NoError(t, err)
		assert.Equal(t, "alice", out.Subject)
		assert.Equal(t, user.ID, out.UserID)
		assert.Equal(t, "alice@x.com", out.Email)
		assert.Equal(t, []string{"User", "Administrator"}, out.Roles)
		assert.Equal(t, in.ID, out.ID, "jti should survive the round trip")
		assert.Equal(t, "authcore", out.Issuer)
	})

	t.Run("valid strictly before expiry", func(t *testing.T) {
		token, err := s.Sign(mustBuild(t, user, nil), now)
		require.NoError(t, err)

		_, err = s.Verify(token.Value, token.ExpiresAt.Add(-time.Second))
		require.NoError(t, err)
	})

	t.Run("rejected exactly at expiry", func(t *testing.T) {
		token, err := s.Sign(mustBuild(t, user, nil), now)
		require.NoError(t, err)

		_, err = s.Verify(token.Value, token.ExpiresAt)
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("rejected after expiry", func(t *testing.T) {
		token, err := s.Sign(mustBuild(t, user, nil), now)
		require.NoError(t, err)

		_, err = s.Verify(token.Value, token.ExpiresAt.Add(time.Hour))
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})
}

func Test_Signer_Verify(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	require.NoError(t, err)

	user := testUser()
	now := time.Now().Truncate(time.Second)

	t.Run("token signed with another key rejected", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.Key = "ffffffffffffffffffffffffffffffff"
		other, err := New(otherCfg)
		require.NoError(t, err)

		token, err := other.Sign(mustBuild(t, user, nil), now)
		require.NoError(t, err)

		_, err = s.Verify(token.Value, now)
		require.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
		assert.NotErrorIs(t, err, apperrors.ErrIssuerMismatch)
		assert.NotErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("wrong issuer rejected", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.Issuer = "somebody-else"
		other, err := New(otherCfg)
		require.NoError(t, err)

		token, err := other.Sign(mustBuild(t, user, nil), now)
		require.NoError(t, err)

		_, err = s.Verify(token.Value, now)
		require.ErrorIs(t, err, apperrors.ErrIssuerMismatch)
		assert.NotErrorIs(t, err, apperrors.ErrAudienceMismatch)
	})

	t.Run("wrong audience rejected", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.Audience = "somebody-else"
		other, err := New(otherCfg)
		require.NoError(t, err)

		token, err := other.Sign(mustBuild(t, user, nil), now)
		require.NoError(t, err)

		_, err = s.Verify(token.Value, now)
		require.ErrorIs(t, err, apperrors.ErrAudienceMismatch)
	})

	t.Run("all failed checks reported together", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.Key = "ffffffffffffffffffffffffffffffff"
		otherCfg.Issuer = "somebody-else"
		otherCfg.Audience = "somebody-else"
		other, err := New(otherCfg)
		require.NoError(t, err)

		token, err := other.Sign(mustBuild(t, user, nil), now)
		require.NoError(t, err)

		_, err = s.Verify(token.Value, token.ExpiresAt)
		require.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
		require.ErrorIs(t, err, apperrors.ErrIssuerMismatch)
		require.ErrorIs(t, err, apperrors.ErrAudienceMismatch)
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("unsigned token rejected", func(t *testing.T) {
		c := mustBuild(t, user, nil)
		c.Issuer = "authcore"
		c.Audience = jwt.ClaimStrings{"authcore-clients"}
		c.ExpiresAt = jwt.NewNumericDate(now.Add(time.Hour))

		value, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = s.Verify(value, now)
		require.Error(t, err, "alg=none must never pass")
	})

	t.Run("garbage input rejected", func(t *testing.T) {
		_, err := s.Verify("not.a.token", now)

		require.Error(t, err)
	})

	t.Run("token without expiry rejected", func(t *testing.T) {
		c := mustBuild(t, user, nil)
		c.Issuer = "authcore"
		c.Audience = jwt.ClaimStrings{"authcore-clients"}

		value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testConfig().Key))
		require.NoError(t, err)

		_, err = s.Verify(value, now)
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})
}
