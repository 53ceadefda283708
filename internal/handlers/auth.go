package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/secureapi/authcore/internal/apperrors"
	"github.com/secureapi/authcore/internal/handlers/render"
	"github.com/secureapi/authcore/internal/models"
	"github.com/secureapi/authcore/internal/service/auth"
)

// Auth service consumed by the user-facing endpoints
type AuthService interface {
	Register(ctx context.Context, arg auth.RegisterParams) (auth.RegisterResult, error)
	Login(ctx context.Context, email string, password string) (models.AuthResult, error)
	Refresh(ctx context.Context, tokenString string) (models.AuthResult, error)
	AddRole(ctx context.Context, email string, password string, role string) (string, error)
	RevokeToken(ctx context.Context, tokenString string) error
	ListTokens(ctx context.Context, userID uuid.UUID) ([]models.RefreshToken, error)
}

type AuthHandler struct {
	authService AuthService
}

func NewAuth(s AuthService) *AuthHandler {
	return &AuthHandler{authService: s}
}

func (h *AuthHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.register)
	mux.HandleFunc("POST /token", h.token)
	mux.HandleFunc("POST /refresh-token", h.refresh)
	mux.HandleFunc("POST /add-role", h.addRole)
	mux.HandleFunc("POST /revoke-token", h.revoke)

	return mux
}

// authResponse is the wire shape of models.AuthResult
type authResponse struct {
	IsAuthenticated    bool      `json:"isAuthenticated"`
	Message            string    `json:"message,omitempty"`
	Username           string    `json:"username,omitempty"`
	Email              string    `json:"email,omitempty"`
	Roles              []string  `json:"roles,omitempty"`
	Token              string    `json:"token,omitempty"`
	RefreshToken       string    `json:"refreshToken,omitempty"`
	RefreshTokenExpiry time.Time `json:"refreshTokenExpiration,omitzero"`
}

func toAuthResponse(result models.AuthResult) authResponse {
	return authResponse{
		IsAuthenticated:    result.Authenticated,
		Message:            result.Message,
		Username:           result.Username,
		Email:              result.Email,
		Roles:              result.Roles,
		Token:              result.AccessToken.Value,
		RefreshToken:       result.RefreshToken.Value,
		RefreshTokenExpiry: result.RefreshToken.ExpiresAt,
	}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Username  string `json:"username" validate:"required,min=2,max=50"`
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	type RegisterResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	result, err := h.authService.Register(r.Context(), auth.RegisterParams{
		Username:  data.Username,
		Email:     data.Email,
		Password:  data.Password,
		FirstName: data.FirstName,
		LastName:  data.LastName,
	})
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if !result.Success {
		code = http.StatusConflict
	}
	render.JSONWithStatus(w, RegisterResponse{Success: result.Success, Message: result.Message}, code)
}

func (h *AuthHandler) token(w http.ResponseWriter, r *http.Request) {
	type TokenRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[TokenRequest](w, r)
	if err != nil {
		return
	}

	result, err := h.authService.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if !result.Authenticated {
		code = http.StatusUnauthorized
	}
	render.JSONWithStatus(w, toAuthResponse(result), code)
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}

	data, err := render.BindAndValidate[RefreshRequest](w, r)
	if err != nil {
		return
	}

	result, err := h.authService.Refresh(r.Context(), data.RefreshToken)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if !result.Authenticated {
		code = http.StatusUnauthorized
	}
	render.JSONWithStatus(w, toAuthResponse(result), code)
}

func (h *AuthHandler) addRole(w http.ResponseWriter, r *http.Request) {
	type AddRoleRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"required"`
	}
	type AddRoleResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[AddRoleRequest](w, r)
	if err != nil {
		return
	}

	message, err := h.authService.AddRole(r.Context(), data.Email, data.Password, data.Role)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, AddRoleResponse{Message: message})
}

func (h *AuthHandler) revoke(w http.ResponseWriter, r *http.Request) {
	type RevokeRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type RevokeResponse struct {
		Success bool `json:"success"`
	}

	data, err := render.BindAndValidate[RevokeRequest](w, r)
	if err != nil {
		return
	}

	err = h.authService.RevokeToken(r.Context(), data.RefreshToken)
	switch {
	case err == nil:
		render.JSON(w, RevokeResponse{Success: true})
	case errors.Is(err, apperrors.ErrTokenNotFound), errors.Is(err, apperrors.ErrTokenInactive):
		// "no such token" and "already inactive" both mean nothing was
		// revoked now, the caller only needs the flag
		render.JSONWithStatus(w, RevokeResponse{Success: false}, http.StatusBadRequest)
	default:
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
