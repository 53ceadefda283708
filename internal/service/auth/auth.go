// Package auth coordinates credential verification, claims building, token
// signing and refresh token lifecycle into complete authentication flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/secureapi/authcore/internal/apperrors"
	"github.com/secureapi/authcore/internal/logger"
	"github.com/secureapi/authcore/internal/models"
	"github.com/secureapi/authcore/internal/repository"
	"github.com/secureapi/authcore/internal/service/auth/claims"
	"github.com/secureapi/authcore/internal/service/auth/lifecycle"
	"github.com/secureapi/authcore/internal/service/auth/signer"
)

type Config struct {
	// Hasher used during registration and login.
	// Bcrypt is used if not set
	Hasher PasswordHasher
}

// Service is stateless across requests: everything it needs between calls
// lives in the user directory and the token store.
type Service struct {
	signer    *signer.Signer
	lifecycle *lifecycle.Manager
	storage   repository.Storage
	hasher    PasswordHasher
	logger    logger.Logger
}

func NewService(cfg Config, sg *signer.Signer, lm *lifecycle.Manager, storage repository.Storage, l logger.Logger) (*Service, error) {
	if sg == nil || lm == nil || storage == nil {
		return nil, errors.New("signer, lifecycle manager and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{
		signer:    sg,
		lifecycle: lm,
		storage:   storage,
		hasher:    hasher,
		logger:    l,
	}, nil
}

type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type RegisterResult struct {
	Success bool
	Message string
}

// Register creates the user with the default role.
// A taken email is a domain outcome, not an error.
func (s *Service) Register(ctx context.Context, arg RegisterParams) (RegisterResult, error) {
	_, err := s.storage.User().GetUserByEmail(ctx, arg.Email)
	switch {
	case err == nil:
		return RegisterResult{Message: fmt.Sprintf("Email %s is already registered", arg.Email)}, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return RegisterResult{}, err
	}

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	var user models.User
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		user, err = st.User().CreateUser(ctx, repository.CreateUserParams{
			Username:       arg.Username,
			Email:          arg.Email,
			FirstName:      arg.FirstName,
			LastName:       arg.LastName,
			HashedPassword: hash,
		})
		if err != nil {
			return err
		}
		return st.User().AddRole(ctx, user.ID, string(DefaultRole))
	})
	switch {
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		// Lost a race with a concurrent registration for the same email
		return RegisterResult{Message: fmt.Sprintf("Email %s is already registered", arg.Email)}, nil
	case err != nil:
		return RegisterResult{}, err
	}

	return RegisterResult{
		Success: true,
		Message: fmt.Sprintf("User registered with username %s", user.Username),
	}, nil
}

// Login verifies the credentials and issues an access token together with the
// user's refresh token. Unknown email and wrong password come back as
// unauthenticated results with distinct messages.
func (s *Service) Login(ctx context.Context, email string, password string) (models.AuthResult, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.AuthResult{Message: fmt.Sprintf("No accounts registered with %s", email)}, nil
	case err != nil:
		return models.AuthResult{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.AuthResult{Message: fmt.Sprintf("Incorrect credentials for user %s", email)}, nil
	}

	refresh, err := s.lifecycle.GetOrIssue(ctx, user.ID)
	if err != nil {
		return models.AuthResult{}, err
	}

	return s.authenticate(ctx, user, refresh)
}

// Refresh rotates the presented refresh token and issues a new access token
// for its owner. Absent and inactive tokens are unauthenticated results with
// messages that tell the two cases apart.
func (s *Service) Refresh(ctx context.Context, tokenString string) (models.AuthResult, error) {
	rotated, err := s.lifecycle.Rotate(ctx, tokenString)
	switch {
	case errors.Is(err, apperrors.ErrTokenNotFound):
		return models.AuthResult{Message: "Token did not match any users"}, nil
	case errors.Is(err, apperrors.ErrTokenInactive):
		return models.AuthResult{Message: "Token not active"}, nil
	case err != nil:
		return models.AuthResult{}, err
	}

	user, err := s.storage.User().GetUserByID(ctx, rotated.UserID)
	if err != nil {
		return models.AuthResult{}, err
	}

	return s.authenticate(ctx, user, rotated)
}

// AddRole grants a role to the user after verifying the supplied credentials.
// The outcome is always a human readable message.
func (s *Service) AddRole(ctx context.Context, email string, password string, roleName string) (string, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return fmt.Sprintf("No accounts registered with %s", email), nil
	case err != nil:
		return "", err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return fmt.Sprintf("Incorrect credentials for user %s", email), nil
	}

	role, err := ParseRole(roleName)
	if err != nil {
		return fmt.Sprintf("Role %s not found", roleName), nil
	}

	if err := s.storage.User().AddRole(ctx, user.ID, string(role)); err != nil {
		return "", err
	}

	return fmt.Sprintf("Added %s to user %s", role, email), nil
}

// RevokeToken deactivates a refresh token, ending the session it backs.
// Thin pass-through to the lifecycle manager.
func (s *Service) RevokeToken(ctx context.Context, tokenString string) error {
	return s.lifecycle.Revoke(ctx, tokenString)
}

// ListTokens returns all refresh tokens ever issued to the user, for audit
func (s *Service) ListTokens(ctx context.Context, userID uuid.UUID) ([]models.RefreshToken, error) {
	return s.lifecycle.ListByUser(ctx, userID)
}

// VerifyAccess statelessly checks a presented access token
func (s *Service) VerifyAccess(tokenString string) (claims.AccessClaims, error) {
	return s.signer.Verify(tokenString, time.Now())
}

// authenticate bundles a signed access token and the refresh token into an
// authenticated result
func (s *Service) authenticate(ctx context.Context, user models.User, refresh models.RefreshToken) (models.AuthResult, error) {
	roles, err := s.storage.User().GetRoles(ctx, user.ID)
	if err != nil {
		return models.AuthResult{}, err
	}
	custom, err := s.storage.User().GetClaims(ctx, user.ID)
	if err != nil {
		return models.AuthResult{}, err
	}

	c, err := claims.Build(user, roles, custom)
	if err != nil {
		return models.AuthResult{}, err
	}

	access, err := s.signer.Sign(c, time.Now())
	if err != nil {
		return models.AuthResult{}, err
	}

	return models.AuthResult{
		Authenticated: true,
		Username:      user.Username,
		Email:         user.Email,
		Roles:         roles,
		AccessToken:   access,
		RefreshToken:  models.IssuedToken{Value: refresh.Token, ExpiresAt: refresh.ExpiresAt},
	}, nil
}
