package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// UserStore manages user accounts. Email uniqueness is the store's
// responsibility; Create returns ErrDuplicateUser on a collision.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
}

// RefreshTokenStore manages refresh token rows.
type RefreshTokenStore interface {
	// Replace atomically deletes any row owned by tok.UserID and inserts tok,
	// keeping the one-row-per-user invariant under concurrent logins.
	Replace(ctx context.Context, tok *RefreshToken) error
	FindByValue(ctx context.Context, value string) (*RefreshToken, error)
	DeleteByValue(ctx context.Context, value string) error
	// DeleteForUser is idempotent; deleting a user with no row is a no-op.
	DeleteForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
