package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultAccessTTL = 15 * time.Minute

// AccessClaims is the decoded payload of an access token.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens with HS256. The key is injected at
// construction and never mutated; the codec itself is stateless and safe for
// concurrent use.
type Codec struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec) error

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) error {
		if ttl <= 0 {
			return errors.New("auth: access ttl must be positive")
		}
		c.ttl = ttl
		return nil
	}
}

// WithIssuer sets the issuer claim embedded into tokens.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) error {
		c.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) error {
		if fn != nil {
			c.now = fn
		}
		return nil
	}
}

// NewCodec constructs a Codec around the given signing key.
func NewCodec(key []byte, opts ...CodecOption) (*Codec, error) {
	if len(key) == 0 {
		return nil, errors.New("auth: signing key is required")
	}
	c := &Codec{
		key: key,
		ttl: defaultAccessTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// TTL returns the configured access token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a fresh access token for the user. Expiry is always
// issued-at + TTL.
func (c *Codec) Issue(u *User) (string, time.Time, error) {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return "", time.Time{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	now := c.now().UTC()
	exp := now.Add(c.ttl)
	claims := AccessClaims{
		Role: u.Role.External(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Decode checks structure and signature and returns the claims. It does NOT
// check expiry; that is Validate's job. A string that is not three
// dot-separated segments is rejected before any signature work.
func (c *Codec) Decode(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrMalformedToken
		}
		return c.key, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrMalformedToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// Validate reports whether the token is well formed, belongs to the given
// user and has not expired. It never returns an error; any failure is false.
// now == expiry counts as expired.
func (c *Codec) Validate(token string, u *User) bool {
	if u == nil {
		return false
	}
	claims, err := c.Decode(token)
	if err != nil {
		return false
	}
	if claims.Subject != u.Email {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return c.now().Before(claims.ExpiresAt.Time)
}
