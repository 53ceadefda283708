// Package lifecycle governs creation, rotation and revocation of
// refresh tokens.
//
// Token records move through a one-way state machine: an active token either
// gets rotated (revoked with a successor link), revoked outright, or ages out.
// All three states are terminal for the record, the chain continues through
// the successor. Records are never deleted.
package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/secureapi/authcore/internal/apperrors"
	"github.com/secureapi/authcore/internal/logger"
	"github.com/secureapi/authcore/internal/models"
	"github.com/secureapi/authcore/internal/repository"
)

const (
	// Validity window for newly issued tokens
	defaultWindow = 7 * 24 * time.Hour

	// Token value entropy, 256 bits
	tokenBytesLen = 32
)

type Config struct {
	// Validity window of issued tokens. Default is 7 days
	Window time.Duration
}

type Manager struct {
	window  time.Duration
	storage repository.Storage
	logger  logger.Logger
}

func New(cfg Config, storage repository.Storage, l logger.Logger) (*Manager, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	if cfg.Window == 0 {
		cfg.Window = defaultWindow
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Manager{
		window:  cfg.Window,
		storage: storage,
		logger:  l,
	}, nil
}

// Issue generates a fresh token and appends it to the user's collection
func (m *Manager) Issue(ctx context.Context, userID uuid.UUID) (models.RefreshToken, error) {
	now := time.Now().Truncate(time.Second)

	token, err := m.newToken(userID, now)
	if err != nil {
		return token, err
	}

	saved, err := m.storage.Refresh().Save(ctx, token)
	if err != nil {
		return saved, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}
	return saved, nil
}

// FindActive returns the user's current active token.
// apperrors.ErrTokenNotFound when there is none.
func (m *Manager) FindActive(ctx context.Context, userID uuid.UUID) (models.RefreshToken, error) {
	return m.storage.Refresh().FindActiveByUser(ctx, userID, time.Now())
}

// GetOrIssue returns the active token if the user holds one, otherwise issues
// a new one. Repeated logins within the validity window reuse the same token
// instead of piling up records. The per-user lock keeps two concurrent logins
// from both issuing: the second caller finds the token the first one created.
func (m *Manager) GetOrIssue(ctx context.Context, userID uuid.UUID) (models.RefreshToken, error) {
	var token models.RefreshToken

	err := m.storage.InTx(ctx, func(s repository.Storage) error {
		if err := s.LockUser(ctx, userID); err != nil {
			return err
		}

		now := time.Now().Truncate(time.Second)
		active, err := s.Refresh().FindActiveByUser(ctx, userID, now)
		switch {
		case err == nil:
			token = active
			return nil
		case errors.Is(err, apperrors.ErrTokenNotFound):
		default:
			return err
		}

		token, err = m.newToken(userID, now)
		if err != nil {
			return err
		}
		token, err = s.Refresh().Save(ctx, token)
		if err != nil {
			return fmt.Errorf("error while saving refresh token. Err: %w", err)
		}
		return nil
	})

	return token, err
}

// Rotate exchanges an active token for a successor. The presented token is
// revoked and linked to the successor in the same transaction, so a token
// can be rotated at most once: of two concurrent calls exactly one wins,
// the other gets apperrors.ErrTokenInactive.
func (m *Manager) Rotate(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	now := time.Now().Truncate(time.Second)

	var next models.RefreshToken
	err := m.storage.InTx(ctx, func(s repository.Storage) error {
		current, err := s.Refresh().GetByToken(ctx, tokenString)
		if err != nil {
			return err
		}

		candidate, err := m.newToken(current.UserID, now)
		if err != nil {
			return err
		}
		candidate, err = s.Refresh().Save(ctx, candidate)
		if err != nil {
			return fmt.Errorf("error while saving refresh token. Err: %w", err)
		}

		// Revocation and successor link land in one guarded update.
		// Losing the race rolls the candidate insert back too.
		if _, err := s.Refresh().Revoke(ctx, tokenString, now, &candidate.ID); err != nil {
			return err
		}

		next = candidate
		return nil
	})
	if err == nil {
		return next, nil
	}

	if errors.Is(err, apperrors.ErrTokenInactive) {
		m.handleReuse(ctx, tokenString, now)
	}
	return models.RefreshToken{}, err
}

// Revoke permanently deactivates an active token. Revoking an already
// inactive token reports apperrors.ErrTokenInactive so the caller can tell
// "logged out now" from "was logged out already".
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	now := time.Now().Truncate(time.Second)

	_, err := m.storage.Refresh().Revoke(ctx, tokenString, now, nil)
	return err
}

// ListByUser returns every token of the user regardless of state
func (m *Manager) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RefreshToken, error) {
	return m.storage.Refresh().ListByUser(ctx, userID)
}

// handleReuse reacts to a rotated token being presented again. Whoever holds
// the old value may also hold everything issued after it, so the chain
// forward from the presented token is revoked.
func (m *Manager) handleReuse(ctx context.Context, tokenString string, now time.Time) {
	token, err := m.storage.Refresh().GetByToken(ctx, tokenString)
	if err != nil || token.ReplacedBy == nil {
		// Not rotated, merely expired or revoked outright. Nothing to cut
		return
	}

	m.logger.Warn("rotated refresh token presented again, revoking chain",
		"user_id", token.UserID,
		"token_id", token.ID,
	)

	err = m.storage.InTx(ctx, func(s repository.Storage) error {
		current := token
		for current.ReplacedBy != nil {
			next, err := s.Refresh().GetByID(ctx, *current.ReplacedBy)
			if err != nil {
				return err
			}
			if !next.IsRevoked() {
				if err := s.Refresh().RevokeByID(ctx, next.ID, now); err != nil {
					return err
				}
			}
			current = next
		}
		return nil
	})
	if err != nil {
		m.logger.Error("chain revocation failed", "token_id", token.ID, "error", err.Error())
	}
}

func (m *Manager) newToken(userID uuid.UUID, now time.Time) (models.RefreshToken, error) {
	b := make([]byte, tokenBytesLen)
	if _, err := rand.Read(b); err != nil {
		return models.RefreshToken{}, fmt.Errorf("error while generating refresh token. Err: %w", err)
	}

	return models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     base64.RawURLEncoding.EncodeToString(b),
		CreatedAt: now,
		ExpiresAt: now.Add(m.window),
	}, nil
}
