package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"librix.org/internal/audit"
	"librix.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Paths that never carry a bearer token worth decoding.
var anonymousPaths = []string{
	"/auth/login",
	"/auth/refresh",
	"/auth/register",
	"/healthz",
	"/readyz",
	"/metrics",
}

// withAuth establishes the request identity from the Authorization header.
// It never rejects: a missing, malformed or stale token leaves the request
// anonymous and lets the access policy decide. Rejected tokens are logged.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isAnonymousPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r.Header.Get(authHeader))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.auth.AuthenticateAccess(r.Context(), token)
		if err != nil {
			a.security(r, audit.TokenRejected, "", rejectReason(err))
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from an Authorization header value. A header
// with a different scheme, or none at all, is not an error here.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMalformedToken):
		return "malformed token"
	case errors.Is(err, auth.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, auth.ErrRefreshTokenUnknown):
		return "unknown token"
	case errors.Is(err, auth.ErrNotFound):
		return "unknown subject"
	default:
		return "authentication error"
	}
}

func isAnonymousPath(path string) bool {
	for _, p := range anonymousPaths {
		if path == p {
			return true
		}
	}
	return false
}
