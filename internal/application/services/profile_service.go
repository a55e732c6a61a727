package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// MaxAvatarBytes bounds avatar uploads
const MaxAvatarBytes = 5 << 20

var avatarExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// ProfileUpdate holds the fields to change. A nil field keeps the stored
// value; a pointer to an empty string clears it.
type ProfileUpdate struct {
	Email     *string
	FullName  *string
	Phone     *string
	AvatarURL *string
}

// ProfileService manages user profiles and avatars
type ProfileService struct {
	profileRepo repositories.ProfileRepository
	storage     providers.ObjectStorage
	now         func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(profileRepo repositories.ProfileRepository, storage providers.ObjectStorage) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, storage: storage, now: time.Now}
}

// Get returns the profile of a user
func (s *ProfileService) Get(ctx context.Context, userID string) (*entities.Profile, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("sign in required")
	}
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, remoteQuery("failed to load profile", err)
	}
	return profile, nil
}

// Save creates the profile on first use and updates it afterwards. The
// stored account kind is preserved; new profiles are clients.
func (s *ProfileService) Save(ctx context.Context, userID string, upd ProfileUpdate) (*entities.Profile, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("sign in required")
	}

	profile, err := s.profileRepo.GetByID(ctx, userID)
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeNotFound):
		profile = &entities.Profile{ID: userID, AccountKind: entities.AccountKindClient}
	case err != nil:
		return nil, remoteQuery("failed to load profile", err)
	}

	profile.Email = merge(profile.Email, upd.Email)
	profile.FullName = merge(profile.FullName, upd.FullName)
	profile.Phone = merge(profile.Phone, upd.Phone)
	profile.AvatarURL = merge(profile.AvatarURL, upd.AvatarURL)
	profile.AccountKind = profile.AccountKind.OrDefault()

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, remoteWrite("failed to save profile", err)
	}
	return profile, nil
}

// UploadAvatar stores an image under avatars/{userID}-{unixMillis}.{ext} and
// points the profile at its public URL. The two writes are not atomic; a
// failed profile save leaves the uploaded object behind.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID, filename string, data []byte) (*entities.Profile, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("sign in required")
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("avatar image is empty")
	}
	if len(data) > MaxAvatarBytes {
		return nil, apperrors.NewValidationError("avatar image is too large")
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		ext = "jpg"
	}
	contentType, ok := avatarExtensions[ext]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported image type %q", ext))
	}

	path := AvatarPath(userID, ext, s.now())
	if err := s.storage.Upload(ctx, path, data, contentType, true); err != nil {
		return nil, remoteWrite("failed to upload avatar", err)
	}

	url := s.storage.PublicURL(path)
	return s.Save(ctx, userID, ProfileUpdate{AvatarURL: &url})
}

// AvatarPath returns the object path of an avatar uploaded at t
func AvatarPath(userID, ext string, t time.Time) string {
	return fmt.Sprintf("avatars/%s-%d.%s", userID, t.UnixMilli(), ext)
}

func merge(current, update *string) *string {
	if update == nil {
		return current
	}
	v := strings.TrimSpace(*update)
	if v == "" {
		return nil
	}
	return &v
}
