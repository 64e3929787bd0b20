package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fixture struct {
	store *InMemoryStore
	svc   *Service
	now   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{store: NewInMemoryStore(), now: &now}

	codec, err := NewCodec([]byte("service-test-key"),
		WithIssuer("librix-test"),
		WithCodecClock(func() time.Time { return *f.now }),
	)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := NewService(f.store, codec, WithClock(func() time.Time { return *f.now }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) registerUser(t *testing.T, email, password string) *User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), NewUser{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user
}

func TestLoginIssuesSession(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "a@x.com", "correct-horse")

	sess, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatal("expected non-empty token pair")
	}
	if sess.User.ID != user.ID {
		t.Fatalf("session user = %s, want %s", sess.User.ID, user.ID)
	}
	if got, want := sess.AccessExpiresAt, f.now.Add(15*time.Minute); !got.Equal(want) {
		t.Fatalf("access expiry = %v, want %v", got, want)
	}
	if got, want := sess.RefreshExpiresAt, f.now.Add(7*24*time.Hour); !got.Equal(want) {
		t.Fatalf("refresh expiry = %v, want %v", got, want)
	}
	if n := f.store.TokenCountForUser(user.ID); n != 1 {
		t.Fatalf("refresh rows = %d, want 1", n)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "a@x.com", "correct-horse")

	cases := []struct{ email, password string }{
		{"a@x.com", "wrong"},
		{"nobody@x.com", "correct-horse"},
		{"", "correct-horse"},
		{"a@x.com", ""},
	}
	for _, tc := range cases {
		if _, err := f.svc.Login(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%q, %q) = %v, want ErrInvalidCredentials", tc.email, tc.password, err)
		}
	}
	if n := f.store.TokenCountForUser(user.ID); n != 0 {
		t.Fatalf("failed logins must not create refresh rows, got %d", n)
	}
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "a@x.com", "correct-horse")

	disabled := false
	if _, err := f.svc.UpdateUser(context.Background(), user.ID, UserUpdate{Enabled: &disabled}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login of disabled user = %v, want ErrInvalidCredentials", err)
	}
}

func TestSecondLoginReplacesRefreshToken(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "a@x.com", "correct-horse")

	first, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("first Login: %v", err)
	}
	second, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("second login must issue a different refresh value")
	}
	if n := f.store.TokenCountForUser(user.ID); n != 1 {
		t.Fatalf("refresh rows after two logins = %d, want exactly 1", n)
	}
	if _, err := f.svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrRefreshTokenUnknown) {
		t.Fatalf("replaced refresh value = %v, want ErrRefreshTokenUnknown", err)
	}
}

func TestRefreshRotates(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "a@x.com", "correct-horse")

	sess, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	*f.now = f.now.Add(time.Hour)
	next, err := f.svc.Refresh(context.Background(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == sess.RefreshToken {
		t.Fatal("rotation must mint a new refresh value")
	}
	if got, want := next.RefreshExpiresAt, f.now.Add(7*24*time.Hour); !got.Equal(want) {
		t.Fatalf("rotated expiry = %v, want fresh 7 days = %v", got, want)
	}
	if _, err := f.svc.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrRefreshTokenUnknown) {
		t.Fatalf("old value after rotation = %v, want ErrRefreshTokenUnknown", err)
	}
}

func TestRefreshExpiredDeletesRow(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "a@x.com", "correct-horse")

	sess, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	*f.now = f.now.Add(8 * 24 * time.Hour)
	if _, err := f.svc.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Refresh of expired token = %v, want ErrTokenExpired", err)
	}
	if n := f.store.TokenCountForUser(user.ID); n != 0 {
		t.Fatalf("expired row must be deleted on detection, got %d rows", n)
	}
}

func TestRefreshUnknownValue(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Refresh(context.Background(), "no-such-token"); !errors.Is(err, ErrRefreshTokenUnknown) {
		t.Fatalf("Refresh = %v, want ErrRefreshTokenUnknown", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "a@x.com", "correct-horse")

	sess, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.svc.Logout(context.Background(), sess.RefreshToken, ""); err != nil {
		t.Fatalf("first Logout: %v", err)
	}
	if n := f.store.TokenCountForUser(user.ID); n != 0 {
		t.Fatalf("refresh rows after logout = %d, want 0", n)
	}
	if err := f.svc.Logout(context.Background(), sess.RefreshToken, ""); err != nil {
		t.Fatalf("repeated Logout must succeed, got %v", err)
	}
	if err := f.svc.Logout(context.Background(), "", user.ID); err != nil {
		t.Fatalf("Logout by user id must succeed, got %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrRefreshTokenUnknown) {
		t.Fatalf("Refresh after logout = %v, want ErrRefreshTokenUnknown", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "a@x.com", "correct-horse")

	_, err := f.svc.Register(context.Background(), NewUser{
		Email:    "a@x.com",
		Password: "another-pass",
	})
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("Register duplicate = %v, want ErrDuplicateUser", err)
	}
}

func TestAuthenticateAccess(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "a@x.com", "correct-horse")

	sess, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	got, err := f.svc.AuthenticateAccess(context.Background(), sess.AccessToken)
	if err != nil {
		t.Fatalf("AuthenticateAccess: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("authenticated user = %s, want %s", got.ID, user.ID)
	}

	if _, err := f.svc.AuthenticateAccess(context.Background(), "garbage"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("garbage token = %v, want ErrMalformedToken", err)
	}

	*f.now = f.now.Add(16 * time.Minute)
	if _, err := f.svc.AuthenticateAccess(context.Background(), sess.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired access token = %v, want ErrTokenExpired", err)
	}
}

func TestAuthenticateAccessDisabledUser(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "a@x.com", "correct-horse")

	sess, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	disabled := false
	if _, err := f.svc.UpdateUser(context.Background(), user.ID, UserUpdate{Enabled: &disabled}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, err := f.svc.AuthenticateAccess(context.Background(), sess.AccessToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("disabled user token = %v, want ErrNotFound", err)
	}
	if n := f.store.TokenCountForUser(user.ID); n != 0 {
		t.Fatalf("disabling must revoke refresh rows, got %d", n)
	}
}

func TestPurgeExpiredTokens(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "a@x.com", "correct-horse")
	f.registerUser(t, "b@x.com", "correct-horse")

	if _, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse"); err != nil {
		t.Fatalf("Login a: %v", err)
	}
	*f.now = f.now.Add(3 * 24 * time.Hour)
	if _, err := f.svc.Login(context.Background(), "b@x.com", "correct-horse"); err != nil {
		t.Fatalf("Login b: %v", err)
	}

	*f.now = f.now.Add(5 * 24 * time.Hour) // a is past 7 days, b is not
	n, err := f.svc.PurgeExpiredTokens(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpiredTokens: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged = %d, want 1", n)
	}
}
