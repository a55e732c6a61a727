package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// ProfileService defines the profile operations used by the handler
type ProfileService interface {
	Get(ctx context.Context, userID string) (*entities.Profile, error)
	Save(ctx context.Context, userID string, upd services.ProfileUpdate) (*entities.Profile, error)
	UploadAvatar(ctx context.Context, userID, filename string, data []byte) (*entities.Profile, error)
}

// ProfileHandler serves the signed-in user's profile
type ProfileHandler struct {
	service ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(service ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type profileRequest struct {
	Email     *string `json:"email"`
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

// GetProfile handles GET /api/profile. A user without a stored profile gets
// a 404 which clients treat as an empty profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		respondWithAppError(w, apperrors.NewUnauthorizedError("sign in required"))
		return
	}

	profile, err := h.service.Get(r.Context(), session.User.ID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		respondWithAppError(w, apperrors.NewUnauthorizedError("sign in required"))
		return
	}

	var payload profileRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	profile, err := h.service.Save(r.Context(), session.User.ID, services.ProfileUpdate{
		Email:     payload.Email,
		FullName:  payload.FullName,
		Phone:     payload.Phone,
		AvatarURL: payload.AvatarURL,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// UploadAvatar handles POST /api/profile/avatar with a multipart "avatar"
// file field
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		respondWithAppError(w, apperrors.NewUnauthorizedError("sign in required"))
		return
	}

	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAvatarBytes+64<<10)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "avatar image is too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxAvatarBytes+1))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read avatar file")
		return
	}

	profile, err := h.service.UploadAvatar(r.Context(), session.User.ID, header.Filename, data)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}
