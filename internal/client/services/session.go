// Package services holds the stateful client services: the session store
// (register / login / logout) and the product catalog.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/storeadmin/internal/client/api"
	"github.com/dmitrijs2005/storeadmin/internal/client/models"
	"github.com/dmitrijs2005/storeadmin/internal/client/storage"
	"github.com/dmitrijs2005/storeadmin/internal/common"
	"github.com/dmitrijs2005/storeadmin/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Sentinel token values issued by a local-fallback login. They carry no
// credentials; the API never sees them as valid.
const (
	LocalAccessToken  = "local-access-token"
	LocalRefreshToken = "local-refresh-token"
)

const avatarBaseURL = "https://api.dicebear.com/9.x/identicon/svg?seed="

// AuthAPI is the part of the store API the session store talks to.
type AuthAPI interface {
	CreateUser(ctx context.Context, payload models.CreateUserPayload) (*models.UserProfile, error)
	Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthTokens, error)
	Profile(ctx context.Context) (*models.UserProfile, error)
	Logout(ctx context.Context) error
}

// LogoutSignal tells other processes sharing the storage that this one
// logged out.
type LogoutSignal interface {
	Announce(ctx context.Context) error
}

// SessionStore owns the current user, the token pair and the loading flag,
// and mirrors the first two into storage slots.
//
// The loading flag only reports that an operation is in flight; it does not
// stop a second Register or Login from starting.
type SessionStore struct {
	api    AuthAPI
	slots  *storage.Slots
	signal LogoutSignal
	log    logging.Logger
	now    func() time.Time

	mu      sync.RWMutex
	user    *models.UserProfile
	tokens  *models.AuthTokens
	loading bool
}

func NewSessionStore(authAPI AuthAPI, slots *storage.Slots, signal LogoutSignal, log logging.Logger) *SessionStore {
	return &SessionStore{
		api:    authAPI,
		slots:  slots,
		signal: signal,
		log:    log.With("component", "session"),
		now:    time.Now,
	}
}

// SetSignal attaches the logout broadcast after construction.
func (s *SessionStore) SetSignal(signal LogoutSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = signal
}

// Restore loads user and tokens from storage, replacing in-memory state.
func (s *SessionStore) Restore(ctx context.Context) {
	var (
		user   *models.UserProfile
		tokens *models.AuthTokens
	)
	if u, ok := storage.Read[models.UserProfile](ctx, s.slots, common.SlotUser); ok {
		user = &u
	}
	if t, ok := storage.Read[models.AuthTokens](ctx, s.slots, common.SlotTokens); ok {
		tokens = &t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.tokens = tokens
}

func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens != nil && s.tokens.Authenticated()
}

func (s *SessionStore) User() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *SessionStore) Tokens() *models.AuthTokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return nil
	}
	t := *s.tokens
	return &t
}

func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *SessionStore) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// AccessToken is the api.TokenSource: it reads the persisted token slot, or
// the in-memory pair when storage is detached.
func (s *SessionStore) AccessToken(ctx context.Context) string {
	if s.slots.Available() {
		if t, ok := storage.Read[models.AuthTokens](ctx, s.slots, common.SlotTokens); ok {
			return t.AccessToken
		}
		return ""
	}
	if t := s.Tokens(); t != nil {
		return t.AccessToken
	}
	return ""
}

// SessionExpiry reads the exp claim of the access token. The token is not
// verified; false means no token or a token that is not a JWT.
func (s *SessionStore) SessionExpiry() (time.Time, bool) {
	t := s.Tokens()
	if t == nil || !t.Authenticated() {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(t.AccessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// AvatarURL is the placeholder avatar derived from a username.
func AvatarURL(username string) string {
	return avatarBaseURL + strings.ReplaceAll(url.QueryEscape(username), "+", "%20")
}

// Register creates the account remotely, makes it the current user and
// caches the form for later local-fallback logins. Registering does not
// authenticate the session.
func (s *SessionStore) Register(ctx context.Context, form models.RegisterForm) (*models.UserProfile, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	created, err := s.api.CreateUser(ctx, models.CreateUserPayload{
		Name:     form.Username,
		Email:    form.Email,
		Password: form.Password,
		Avatar:   AvatarURL(form.Username),
	})
	if err != nil {
		s.log.Warn(ctx, "registration rejected", "email", form.Email, "err", err)
		return nil, &RegistrationError{Message: serverMessageOr(err, "Registration failed"), Err: err}
	}

	profile := *created
	profile.Role = form.Role

	s.mu.Lock()
	s.user = &profile
	s.mu.Unlock()

	persistSlot(ctx, s, common.SlotUser, &profile)
	persistSlot(ctx, s, common.SlotRegistration, &models.StoredRegistration{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
		UserID:   created.ID,
	})

	s.log.Info(ctx, "registered", "user_id", profile.ID, "email", profile.Email)

	out := profile
	return &out, nil
}

// Login authenticates the session, locally when a cached registration
// matches the email and remotely otherwise.
func (s *SessionStore) Login(ctx context.Context, creds models.LoginCredentials) (*models.UserProfile, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	cached, ok := storage.Read[models.StoredRegistration](ctx, s.slots, common.SlotRegistration)
	plan := PlanLogin(cached, ok, creds)

	s.log.Debug(ctx, "login", "email", creds.Email, "path", plan.Path)

	if plan.Path == LocalFallback {
		return s.localLogin(ctx, plan.Registration, creds)
	}
	return s.remoteLogin(ctx, creds)
}

func (s *SessionStore) localLogin(ctx context.Context, reg models.StoredRegistration, creds models.LoginCredentials) (*models.UserProfile, error) {
	if reg.Password != creds.Password {
		s.log.Info(ctx, "local login rejected", "email", creds.Email)
		return nil, &InvalidCredentialsError{Email: creds.Email}
	}

	profile := s.localProfile(ctx, reg)
	tokens := models.AuthTokens{AccessToken: LocalAccessToken, RefreshToken: LocalRefreshToken}

	s.mu.Lock()
	s.user = &profile
	s.tokens = &tokens
	s.mu.Unlock()

	persistSlot(ctx, s, common.SlotUser, &profile)
	persistSlot(ctx, s, common.SlotTokens, &tokens)

	s.log.Info(ctx, "logged in", "email", profile.Email, "path", LocalFallback)

	out := profile
	return &out, nil
}

// localProfile picks the profile for a local-fallback login: the in-memory
// user, then the persisted one, then one built from the registration. Only
// profiles with the registration's email qualify.
func (s *SessionStore) localProfile(ctx context.Context, reg models.StoredRegistration) models.UserProfile {
	profile, ok := s.matchingProfile(ctx, reg.Email)
	if !ok {
		id := reg.UserID
		if id == 0 {
			id = s.now().UnixMilli()
		}
		profile = models.UserProfile{
			ID:     id,
			Email:  reg.Email,
			Name:   reg.Username,
			Role:   reg.Role,
			Avatar: AvatarURL(reg.Username),
		}
	}

	if profile.Role == "" {
		profile.Role = reg.Role
	}
	return profile
}

func (s *SessionStore) matchingProfile(ctx context.Context, email string) (models.UserProfile, bool) {
	if current := s.User(); current != nil && sameEmail(current.Email, email) {
		return *current, true
	}
	if persisted, ok := storage.Read[models.UserProfile](ctx, s.slots, common.SlotUser); ok && sameEmail(persisted.Email, email) {
		return persisted, true
	}
	return models.UserProfile{}, false
}

func (s *SessionStore) remoteLogin(ctx context.Context, creds models.LoginCredentials) (*models.UserProfile, error) {
	tokens, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, s.loginFailed(ctx, err)
	}

	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	persistSlot(ctx, s, common.SlotTokens, tokens)

	profile, err := s.api.Profile(ctx)
	if err != nil {
		s.dropTokens(ctx)
		return nil, s.loginFailed(ctx, err)
	}

	s.mu.Lock()
	s.user = profile
	s.mu.Unlock()
	persistSlot(ctx, s, common.SlotUser, profile)

	s.log.Info(ctx, "logged in", "email", profile.Email, "path", RemoteLogin)

	out := *profile
	return &out, nil
}

func (s *SessionStore) dropTokens(ctx context.Context) {
	s.mu.Lock()
	s.tokens = nil
	s.mu.Unlock()
	persistSlot[models.AuthTokens](ctx, s, common.SlotTokens, nil)
}

func (s *SessionStore) loginFailed(ctx context.Context, err error) error {
	le := &LoginError{Message: api.MessageOf(err, "Login failed"), Err: err}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		le.Status = apiErr.Status
		s.log.Warn(ctx, "login failed", "status", apiErr.Status, "body", string(apiErr.Body))
	} else {
		s.log.Warn(ctx, "login failed", "err", err)
	}
	return le
}

// Logout always ends the session locally. The server is told first, on a
// best-effort basis, then memory and slots are cleared and other processes
// are notified.
func (s *SessionStore) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.log.Debug(ctx, "remote logout failed, continuing", "err", err)
	}

	s.mu.Lock()
	s.user = nil
	s.tokens = nil
	signal := s.signal
	s.mu.Unlock()

	err := s.slots.Update(ctx, func(ctx context.Context, tx *storage.Slots) error {
		if err := tx.Remove(ctx, common.SlotTokens); err != nil {
			return err
		}
		return tx.Remove(ctx, common.SlotUser)
	})
	if err != nil {
		return fmt.Errorf("clear session slots: %w", err)
	}

	if signal != nil {
		if err := signal.Announce(ctx); err != nil {
			s.log.Warn(ctx, "logout broadcast failed", "err", err)
		}
	}

	s.log.Info(ctx, "logged out")
	return nil
}

// persistSlot writes v under key; storage failures are logged, not returned,
// because the in-memory session is already updated.
func persistSlot[T any](ctx context.Context, s *SessionStore, key string, v *T) {
	if err := storage.Persist(ctx, s.slots, key, v); err != nil {
		s.log.Warn(ctx, "failed to persist slot", "key", key, "err", err)
	}
}

// serverMessageOr returns the API's own message for err, or fallback.
func serverMessageOr(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
