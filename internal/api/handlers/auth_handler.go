package handlers

import (
	"context"
	"net/http"

	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// AuthService defines the session operations used by the handler
type AuthService interface {
	SignUp(ctx context.Context, req services.SignUpRequest) (*entities.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*entities.Session, error)
	RequestMagicLink(ctx context.Context, email string) error
	VerifyMagicLink(ctx context.Context, token string) (*entities.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*entities.Session, error)
	SignOut(ctx context.Context, sessionID, userID string) error
}

// AuthHandler handles sign-up, sign-in and session lifecycle requests
type AuthHandler struct {
	service AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	AccountKind string `json:"user_type"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var payload signUpRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	var kind entities.AccountKind
	if payload.AccountKind != "" {
		parsed, err := entities.ParseAccountKind(payload.AccountKind)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "unknown account type")
			return
		}
		kind = parsed
	}

	session, err := h.service.SignUp(r.Context(), services.SignUpRequest{
		Email:       payload.Email,
		Password:    payload.Password,
		FullName:    payload.FullName,
		AccountKind: kind,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, session)
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var payload credentialsRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	session, err := h.service.SignInWithPassword(r.Context(), payload.Email, payload.Password)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// RequestMagicLink handles POST /api/auth/magic-link
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.RequestMagicLink(r.Context(), payload.Email); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// VerifyMagicLink handles POST /api/auth/verify
func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	session, err := h.service.VerifyMagicLink(r.Context(), payload.Token)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	session, err := h.service.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		respondWithAppError(w, apperrors.NewUnauthorizedError("sign in required"))
		return
	}

	if err := h.service.SignOut(r.Context(), session.ID, session.User.ID); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /api/auth/session
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		respondWithAppError(w, apperrors.NewUnauthorizedError("sign in required"))
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}
