package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserUpdate describes an administrative mutation. Nil fields are untouched.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Role      *Role
	Enabled   *bool
}

// ListUsers returns all accounts, oldest first.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users(ctx).List(ctx)
}

// CreateUser provisions an account with an explicit role. Administrative
// counterpart to Register.
func (s *Service) CreateUser(ctx context.Context, input NewUser, role Role) (*User, error) {
	return s.createUser(ctx, input, role)
}

// UpdateUser applies an administrative update. Disabling an account also
// revokes its refresh token so the account cannot mint new access tokens.
func (s *Service) UpdateUser(ctx context.Context, userID string, upd UserUpdate) (*User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	users := s.store.Users(ctx)
	user, err := users.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *upd.Role)
		}
		user.Role = *upd.Role
	}
	if upd.Enabled != nil {
		user.Enabled = *upd.Enabled
	}
	if err := users.Update(ctx, user); err != nil {
		return nil, err
	}
	if upd.Enabled != nil && !*upd.Enabled {
		if err := s.refresh.DeleteForUser(ctx, user.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return user, nil
}
