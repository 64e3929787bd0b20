package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"librix.org/internal/ids"
)

// Service provides the token lifecycle: login, refresh rotation, logout and
// bearer-token authentication. It holds no mutable state of its own; the
// refresh token store is the only shared mutable resource.
type Service struct {
	store    Store
	codec    *Codec
	verifier *Verifier
	refresh  *RefreshTokens

	now        func() time.Time
	refreshTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	svc := &Service{
		store:      store,
		codec:      codec,
		now:        time.Now,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	svc.verifier = NewVerifier(store.Users(context.Background()))
	svc.refresh = NewRefreshTokens(store.RefreshTokens(context.Background()), svc.refreshTTL, svc.now)
	return svc, nil
}

// Session is what a successful login or refresh hands back to the caller.
type Session struct {
	User             *User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Login verifies credentials and issues a fresh access/refresh pair. Any
// previously issued refresh token for the user is replaced.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, user)
}

// openSession issues a fresh access/refresh pair for an already verified
// user. The refresh store keeps a single row per user, so any earlier
// session is superseded here.
func (s *Service) openSession(ctx context.Context, user *User) (*Session, error) {
	access, exp, err := s.codec.Issue(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  exp,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// Refresh rotates the submitted refresh token and issues a new access token.
// Unknown values fail with ErrRefreshTokenUnknown; expired rows are deleted
// and fail with ErrTokenExpired.
func (s *Service) Refresh(ctx context.Context, refreshValue string) (*Session, error) {
	tok, err := s.refresh.FindByValue(ctx, strings.TrimSpace(refreshValue))
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users(ctx).Find(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrRefreshTokenUnknown
		}
		return nil, err
	}
	if !user.Enabled {
		_ = s.refresh.DeleteForUser(ctx, user.ID)
		return nil, ErrInvalidCredentials
	}
	rotated, err := s.refresh.Rotate(ctx, tok)
	if err != nil {
		return nil, err
	}
	access, exp, err := s.codec.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  exp,
		RefreshToken:     rotated.Value,
		RefreshExpiresAt: rotated.ExpiresAt,
	}, nil
}

// Logout invalidates the refresh token identified by value, or all tokens of
// the given user when no value is supplied. Best-effort and idempotent:
// unknown values and repeated calls are not errors.
func (s *Service) Logout(ctx context.Context, refreshValue, userID string) error {
	refreshValue = strings.TrimSpace(refreshValue)
	if refreshValue != "" {
		tok, err := s.refresh.FindByValue(ctx, refreshValue)
		if err != nil {
			if errors.Is(err, ErrRefreshTokenUnknown) {
				return nil
			}
			return err
		}
		return s.refresh.DeleteForUser(ctx, tok.UserID)
	}
	if userID != "" {
		return s.refresh.DeleteForUser(ctx, userID)
	}
	return nil
}

// NewUser carries registration input.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a user account with the default role. Fails with
// ErrDuplicateUser when the email is taken.
func (s *Service) Register(ctx context.Context, input NewUser) (*User, error) {
	return s.createUser(ctx, input, RoleUser)
}

func (s *Service) createUser(ctx context.Context, input NewUser, role Role) (*User, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	users := s.store.Users(ctx)
	if _, err := users.FindByEmail(ctx, input.Email); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		Enabled:      true,
		RegisteredAt: now,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AuthenticateAccess resolves a bearer token to its user. Malformed tokens
// fail with ErrMalformedToken, unresolvable subjects with ErrNotFound, and
// expired or mismatched tokens with ErrTokenExpired.
func (s *Service) AuthenticateAccess(ctx context.Context, token string) (*User, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrNotFound
	}
	if !s.codec.Validate(token, user) {
		return nil, ErrTokenExpired
	}
	return user, nil
}

// CurrentUser loads the account behind an authenticated identity.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*User, error) {
	return s.store.Users(ctx).Find(ctx, userID)
}

// PurgeExpiredTokens drops refresh rows past expiry. Safe to call
// periodically; correctness never depends on it.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.refresh.PurgeExpired(ctx)
}
