package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "invalid login credentials"

// AccessClaims are the claims of an access token
type AccessClaims struct {
	SessionID   string `json:"sid"`
	Email       string `json:"email"`
	AccountKind string `json:"user_type"`
	jwt.RegisteredClaims
}

// SignUpRequest is the input of SignUp
type SignUpRequest struct {
	Email       string
	Password    string
	FullName    string
	AccountKind entities.AccountKind
}

// AuthService issues, refreshes and revokes sessions
type AuthService struct {
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	linkRepo    repositories.MagicLinkRepository
	profileRepo repositories.ProfileRepository
	sender      providers.MagicLinkSender
	store       *SessionStore
	cfg         config.AuthConfig
	secret      []byte
	now         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	linkRepo repositories.MagicLinkRepository,
	profileRepo repositories.ProfileRepository,
	sender providers.MagicLinkSender,
	store *SessionStore,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		linkRepo:    linkRepo,
		profileRepo: profileRepo,
		sender:      sender,
		store:       store,
		cfg:         cfg,
		secret:      []byte(cfg.JWTSecret),
		now:         time.Now,
	}
}

// SignUp creates a password account with its profile and signs it in
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*entities.Session, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < s.cfg.MinPasswordLength {
		return nil, apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", s.cfg.MinPasswordLength))
	}

	kind := req.AccountKind.OrDefault()
	switch kind {
	case entities.AccountKindClient, entities.AccountKindProvider:
	case entities.AccountKindAdmin:
		return nil, apperrors.NewValidationError("admin accounts cannot be created by sign-up")
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown account type %q", kind))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}
	hashStr := string(hash)

	creds := &entities.Credentials{
		User:         entities.User{Email: email, AccountKind: kind},
		PasswordHash: &hashStr,
	}
	if err := s.userRepo.Create(ctx, creds); err != nil {
		return nil, remoteWrite("failed to create account", err)
	}

	profile := &entities.Profile{ID: creds.ID, Email: &creds.Email, AccountKind: kind}
	if name := strings.TrimSpace(req.FullName); name != "" {
		profile.FullName = &name
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		log.Warn().Err(err).Str("user_id", creds.ID).Msg("account created without profile")
	}

	return s.issueSession(ctx, creds.User)
}

// SignInWithPassword verifies an email and password
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*entities.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	creds, err := s.userRepo.GetByEmail(ctx, email)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.NewUnauthorizedError(invalidCredentials)
	}
	if err != nil {
		return nil, remoteQuery("failed to sign in", err)
	}
	if creds.PasswordHash == nil {
		return nil, apperrors.NewUnauthorizedError(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*creds.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.NewUnauthorizedError(invalidCredentials)
	}

	return s.issueSession(ctx, creds.User)
}

// RequestMagicLink sends a single-use sign-in link to email. Unknown emails
// get an account on first verification.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	token, err := randomToken()
	if err != nil {
		return apperrors.NewInternalError("failed to generate link token", err)
	}
	expiresAt := s.now().Add(s.cfg.MagicLinkTTL)
	if err := s.linkRepo.Create(ctx, hashToken(token), email, expiresAt); err != nil {
		return remoteWrite("failed to create sign-in link", err)
	}

	link := providers.MagicLink{
		Email:     email,
		URL:       magicLinkURL(s.cfg.MagicLinkRedirect, token),
		ExpiresAt: expiresAt,
	}
	if err := s.sender.Send(ctx, link); err != nil {
		return apperrors.NewRemoteWriteError("failed to send sign-in link", err)
	}
	return nil
}

// VerifyMagicLink consumes a link token and signs its owner in
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string) (*entities.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewValidationError("token is required")
	}

	email, err := s.linkRepo.Consume(ctx, hashToken(token), s.now())
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.NewUnauthorizedError("sign-in link is invalid or has expired")
	}
	if err != nil {
		return nil, remoteWrite("failed to verify sign-in link", err)
	}

	creds, err := s.userRepo.GetByEmail(ctx, email)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		creds = &entities.Credentials{User: entities.User{Email: email, AccountKind: entities.AccountKindClient}}
		if err := s.userRepo.Create(ctx, creds); err != nil {
			return nil, remoteWrite("failed to create account", err)
		}
	} else if err != nil {
		return nil, remoteQuery("failed to load account", err)
	}

	return s.issueSession(ctx, creds.User)
}

// Refresh exchanges a refresh token for a new token pair. The old refresh
// token stops working.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*entities.Session, error) {
	if refreshToken == "" {
		return nil, apperrors.NewValidationError("refresh token is required")
	}

	record, err := s.sessionRepo.GetByRefreshTokenHash(ctx, hashToken(refreshToken))
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.NewUnauthorizedError("invalid refresh token")
	}
	if err != nil {
		return nil, remoteQuery("failed to refresh session", err)
	}
	if !s.live(record) {
		return nil, apperrors.NewUnauthorizedError("session has ended")
	}

	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, remoteQuery("failed to load account", err)
	}

	newRefresh, err := randomToken()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate refresh token", err)
	}
	if err := s.sessionRepo.Rotate(ctx, record.ID, hashToken(newRefresh), s.now().Add(s.cfg.RefreshTokenTTL)); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewUnauthorizedError("session has ended")
		}
		return nil, remoteWrite("failed to refresh session", err)
	}

	session, err := s.buildSession(record.ID, *user, newRefresh)
	if err != nil {
		return nil, err
	}
	s.store.Put(withoutRefresh(session))
	s.store.Emit(ctx, &entities.SessionEvent{
		Type: entities.SessionEventTokenRefreshed, SessionID: session.ID, UserID: user.ID, Session: session,
	})
	return session, nil
}

// SignOut revokes a session. Signing out twice is not an error.
func (s *AuthService) SignOut(ctx context.Context, sessionID, userID string) error {
	if err := s.sessionRepo.Revoke(ctx, sessionID); err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return remoteWrite("failed to sign out", err)
	}
	s.store.Remove(sessionID)
	s.store.Emit(ctx, &entities.SessionEvent{
		Type: entities.SessionEventSignedOut, SessionID: sessionID, UserID: userID,
	})
	return nil
}

// Authenticate resolves an access token to its live session
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*entities.Session, error) {
	claims, err := s.parseAccessToken(accessToken)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid access token")
	}

	if cached, ok := s.store.Get(claims.SessionID); ok && cached.User.ID == claims.Subject {
		session := *cached
		session.AccessToken = accessToken
		return &session, nil
	}

	return s.CurrentSession(ctx, claims.SessionID, accessToken)
}

// CurrentSession loads a session from durable storage and caches it
func (s *AuthService) CurrentSession(ctx context.Context, sessionID, accessToken string) (*entities.Session, error) {
	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.NewUnauthorizedError("session not found")
	}
	if err != nil {
		return nil, remoteQuery("failed to load session", err)
	}
	if !s.live(record) {
		return nil, apperrors.NewUnauthorizedError("session has ended")
	}

	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, remoteQuery("failed to load account", err)
	}

	session := &entities.Session{ID: record.ID, User: *user, AccessToken: accessToken}
	if claims, err := s.parseAccessToken(accessToken); err == nil && claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	s.store.Put(withoutRefresh(session))
	return session, nil
}

// WatchSession streams events of one session, starting with its current
// state. The channel closes when ctx is done or the store closes.
func (s *AuthService) WatchSession(ctx context.Context, session *entities.Session) <-chan *entities.SessionEvent {
	out := make(chan *entities.SessionEvent, subscriberBuffer)
	sub := s.store.Subscribe()
	out <- &entities.SessionEvent{
		Type: entities.SessionEventInitial, SessionID: session.ID, UserID: session.User.ID, Session: session, At: s.now().UTC(),
	}

	go func() {
		defer close(out)
		defer s.store.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub:
				if !ok {
					return
				}
				if event.SessionID != session.ID {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
				if event.Type == entities.SessionEventSignedOut {
					return
				}
			}
		}
	}()
	return out
}

func (s *AuthService) issueSession(ctx context.Context, user entities.User) (*entities.Session, error) {
	refresh, err := randomToken()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate refresh token", err)
	}

	record := &repositories.SessionRecord{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RefreshTokenHash: hashToken(refresh),
		ExpiresAt:        s.now().Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.sessionRepo.Create(ctx, record); err != nil {
		return nil, remoteWrite("failed to create session", err)
	}

	session, err := s.buildSession(record.ID, user, refresh)
	if err != nil {
		return nil, err
	}
	s.store.Put(withoutRefresh(session))
	s.store.Emit(ctx, &entities.SessionEvent{
		Type: entities.SessionEventSignedIn, SessionID: session.ID, UserID: user.ID, Session: session,
	})
	return session, nil
}

func (s *AuthService) buildSession(sessionID string, user entities.User, refresh string) (*entities.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)
	claims := AccessClaims{
		SessionID:   sessionID,
		Email:       user.Email,
		AccountKind: string(user.AccountKind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sign access token", err)
	}

	return &entities.Session{
		ID:           sessionID,
		User:         user,
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *AuthService) parseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.SessionID == "" || claims.Subject == "" {
		return nil, errors.New("incomplete access token")
	}
	return claims, nil
}

func (s *AuthService) live(record *repositories.SessionRecord) bool {
	return record.RevokedAt == nil && s.now().Before(record.ExpiresAt)
}

func withoutRefresh(session *entities.Session) *entities.Session {
	c := *session
	c.RefreshToken = ""
	c.AccessToken = ""
	return &c
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperrors.NewValidationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.NewValidationError("email is invalid")
	}
	return email, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func magicLinkURL(redirect, token string) string {
	u, err := url.Parse(redirect)
	if err != nil {
		return redirect + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
