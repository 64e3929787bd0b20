package auth

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore implements Store with in-process concurrency safety. Used by
// tests and local development; production uses PGStore.
type InMemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*User         // id -> user
	emails map[string]string        // email -> id
	tokens map[string]*RefreshToken // user id -> row (one per user)
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:  make(map[string]*User),
		emails: make(map[string]string),
		tokens: make(map[string]*RefreshToken),
	}
}

func (s *InMemoryStore) Users(context.Context) UserStore                 { return (*memUserStore)(s) }
func (s *InMemoryStore) RefreshTokens(context.Context) RefreshTokenStore { return (*memTokenStore)(s) }

// TokenCountForUser reports live refresh rows for a user. Test helper.
func (s *InMemoryStore) TokenCountForUser(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tokens[userID]; ok {
		return 1
	}
	return 0
}

type memUserStore InMemoryStore

func (s *memUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[u.Email]; taken {
		return ErrDuplicateUser
	}
	cp := *u
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.users[cp.ID] = &cp
	s.emails[cp.Email] = cp.ID
	*u = cp
	return nil
}

func (s *memUserStore) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *memUserStore) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memUserStore) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *u
	cp.Email = existing.Email
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.users[cp.ID] = &cp
	return nil
}

type memTokenStore InMemoryStore

func (s *memTokenStore) Replace(ctx context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tokens[cp.UserID] = &cp
	return nil
}

func (s *memTokenStore) FindByValue(ctx context.Context, value string) (*RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tok := range s.tokens {
		if tok.Value == value {
			cp := *tok
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memTokenStore) DeleteByValue(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, tok := range s.tokens {
		if tok.Value == value {
			delete(s.tokens, userID)
			return nil
		}
	}
	return nil
}

func (s *memTokenStore) DeleteForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
	return nil
}

func (s *memTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for userID, tok := range s.tokens {
		if !before.Before(tok.ExpiresAt) {
			delete(s.tokens, userID)
			n++
		}
	}
	return n, nil
}
