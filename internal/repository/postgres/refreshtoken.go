package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/secureapi/authcore/internal/apperrors"
	"github.com/secureapi/authcore/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveToken
INSERT INTO refresh_tokens (id, user_id, token, created_at, expires_at, revoked_at, replaced_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, token, created_at, expires_at, revoked_at, replaced_by
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken,
		token.ID, token.UserID, token.Token, token.CreatedAt, token.ExpiresAt, token.RevokedAt, token.ReplacedBy)
	saved, err := pgx.CollectOneRow(rows, rowToToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const getToken = `-- name: GetToken
SELECT id, user_id, token, created_at, expires_at, revoked_at, replaced_by
FROM refresh_tokens
WHERE token = $1
`

// Get token by its opaque value whatever state it is in
func (r *RefreshTokenRepo) GetByToken(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getToken, tokenString)
	return collectToken(rows)
}

const getTokenByID = `-- name: GetTokenByID
SELECT id, user_id, token, created_at, expires_at, revoked_at, replaced_by
FROM refresh_tokens
WHERE id = $1
`

func (r *RefreshTokenRepo) GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getTokenByID, id)
	return collectToken(rows)
}

const revokeToken = `-- name: RevokeToken
UPDATE refresh_tokens
SET revoked_at = $2, replaced_by = $3
WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2
RETURNING id, user_id, token, created_at, expires_at, revoked_at, replaced_by
`

// Revoke marks the token revoked and links its successor in a single update.
// The WHERE guard makes concurrent calls race on the row: exactly one caller
// gets the row back, everyone else sees the token as inactive.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenString string, revokedAt time.Time, replacedBy *uuid.UUID) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, revokeToken, tokenString, revokedAt, replacedBy)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	if err == nil {
		return token, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return token, fmt.Errorf("db error: %w", err)
	}

	// Guard did not match: distinguish absent from inactive
	token, err = r.GetByToken(ctx, tokenString)
	if err != nil {
		return token, err
	}
	return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenInactive)
}

const revokeTokenByID = `-- name: RevokeTokenByID
UPDATE refresh_tokens
SET revoked_at = $2
WHERE id = $1 AND revoked_at IS NULL
`

// RevokeByID revokes the record even when it has already expired.
// Used to cut a rotation chain forward after token reuse was detected.
func (r *RefreshTokenRepo) RevokeByID(ctx context.Context, id uuid.UUID, revokedAt time.Time) error {
	_, err := r.DB.Exec(ctx, revokeTokenByID, id, revokedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const findActiveToken = `-- name: FindActiveToken
SELECT id, user_id, token, created_at, expires_at, revoked_at, replaced_by
FROM refresh_tokens
WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
ORDER BY created_at
LIMIT 1
`

// FindActiveByUser returns the earliest created active token.
// Several concurrently active tokens is an anomaly, the stable order
// keeps the answer deterministic anyway.
func (r *RefreshTokenRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, findActiveToken, userID, now)
	return collectToken(rows)
}

const listTokensByUser = `-- name: ListTokensByUser
SELECT id, user_id, token, created_at, expires_at, revoked_at, replaced_by
FROM refresh_tokens
WHERE user_id = $1
ORDER BY created_at
`

func (r *RefreshTokenRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, listTokensByUser, userID)
	tokens, err := pgx.CollectRows(rows, rowToToken)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tokens, nil
}

func collectToken(rows pgx.Rows) (models.RefreshToken, error) {
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

func rowToToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt, &t.ReplacedBy)
	return t, err
}
