package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testUser() *User {
	return &User{
		ID:      "01TESTUSER",
		Email:   "a@x.com",
		Role:    RoleUser,
		Enabled: true,
	}
}

func newTestCodec(t *testing.T, now *time.Time) *Codec {
	t.Helper()
	codec, err := NewCodec([]byte("test-signing-key"),
		WithIssuer("librix-test"),
		WithCodecClock(func() time.Time { return *now }),
	)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestIssueAndDecode(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, &now)

	user := testUser()
	token, exp, err := codec.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got, want := exp, now.Add(15*time.Minute); !got.Equal(want) {
		t.Fatalf("expiry = %v, want issued-at + 15m = %v", got, want)
	}

	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != user.Email {
		t.Fatalf("subject = %q, want %q", claims.Subject, user.Email)
	}
	if claims.Role != "USER" {
		t.Fatalf("role claim = %q, want USER", claims.Role)
	}
	if !claims.ExpiresAt.Time.Equal(claims.IssuedAt.Time.Add(15 * time.Minute)) {
		t.Fatalf("expiry %v is not issued-at %v + 15m", claims.ExpiresAt.Time, claims.IssuedAt.Time)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	now := time.Now().UTC()
	codec := newTestCodec(t, &now)

	for _, token := range []string{
		"",
		"   ",
		"onlyonesegment",
		"two.segments",
		"a.b.c.d",
		"not.a.jwt",
	} {
		if _, err := codec.Decode(token); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("Decode(%q) = %v, want ErrMalformedToken", token, err)
		}
	}
}

func TestDecodeRejectsForeignSignature(t *testing.T) {
	now := time.Now().UTC()
	codec := newTestCodec(t, &now)

	other, err := NewCodec([]byte("another-key"), WithCodecClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, _, err := other.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("Decode of foreign-signed token = %v, want ErrMalformedToken", err)
	}
}

func TestDecodeIgnoresExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, &now)

	token, _, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = now.Add(24 * time.Hour)
	if _, err := codec.Decode(token); err != nil {
		t.Fatalf("Decode after expiry = %v, want success (expiry is Validate's job)", err)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	codec := newTestCodec(t, &now)

	user := testUser()
	token, exp, err := codec.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = exp.Add(-time.Nanosecond)
	if !codec.Validate(token, user) {
		t.Fatal("token strictly before expiry must validate")
	}
	now = exp
	if codec.Validate(token, user) {
		t.Fatal("token at exact expiry instant must be expired")
	}
	now = exp.Add(time.Second)
	if codec.Validate(token, user) {
		t.Fatal("token past expiry must be expired")
	}
}

func TestValidateSubjectMismatch(t *testing.T) {
	now := time.Now().UTC()
	codec := newTestCodec(t, &now)

	token, _, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := testUser()
	other.Email = "b@x.com"
	if codec.Validate(token, other) {
		t.Fatal("token must not validate against a different principal")
	}
	if codec.Validate(token, nil) {
		t.Fatal("nil user must not validate")
	}
	if codec.Validate(strings.Repeat("x", 10), testUser()) {
		t.Fatal("garbage token must not validate")
	}
}
