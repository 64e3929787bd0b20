package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"librix.org/internal/ids"
)

const defaultRefreshTTL = 7 * 24 * time.Hour

// RefreshTokens manages the lifecycle of persisted refresh tokens.
type RefreshTokens struct {
	store RefreshTokenStore
	ttl   time.Duration
	now   func() time.Time
}

// NewRefreshTokens constructs the manager over the given store.
func NewRefreshTokens(store RefreshTokenStore, ttl time.Duration, now func() time.Time) *RefreshTokens {
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RefreshTokens{store: store, ttl: ttl, now: now}
}

// Create issues a fresh token for the user, replacing any existing row.
// The new value is random and the expiry is creation time + TTL.
func (m *RefreshTokens) Create(ctx context.Context, userID string) (*RefreshToken, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	now := m.now().UTC()
	tok := &RefreshToken{
		ID:        ids.New(),
		UserID:    userID,
		Value:     uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.store.Replace(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// FindByValue resolves a submitted token string to its stored row.
func (m *RefreshTokens) FindByValue(ctx context.Context, value string) (*RefreshToken, error) {
	if value == "" {
		return nil, ErrRefreshTokenUnknown
	}
	tok, err := m.store.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrRefreshTokenUnknown
		}
		return nil, err
	}
	return tok, nil
}

// VerifyNotExpired returns the row unchanged when it is still live. An
// expired row is deleted as a side effect of detecting it and the call fails
// with ErrTokenExpired.
func (m *RefreshTokens) VerifyNotExpired(ctx context.Context, tok *RefreshToken) (*RefreshToken, error) {
	if tok.ExpiredAt(m.now()) {
		if err := m.store.DeleteByValue(ctx, tok.Value); err != nil {
			return nil, err
		}
		return nil, ErrTokenExpired
	}
	return tok, nil
}

// Rotate replaces the row with a brand new token for the same user: new
// random value, fresh expiry. The old row is gone afterwards; nothing is
// updated in place.
func (m *RefreshTokens) Rotate(ctx context.Context, tok *RefreshToken) (*RefreshToken, error) {
	if _, err := m.VerifyNotExpired(ctx, tok); err != nil {
		return nil, err
	}
	return m.Create(ctx, tok.UserID)
}

// DeleteForUser removes the user's token if one exists. Idempotent.
func (m *RefreshTokens) DeleteForUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.store.DeleteForUser(ctx, userID)
}

// PurgeExpired removes rows that are already past expiry. Housekeeping only;
// expired rows are also removed lazily on verification.
func (m *RefreshTokens) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now().UTC())
}
