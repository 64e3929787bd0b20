package httpapi

import (
	"net/http"
	"strings"

	"librix.org/internal/audit"
	"librix.org/internal/auth"
)

// accessRule binds a path pattern to the roles allowed through. An empty
// roles list means any authenticated identity passes; public rules pass
// everyone. Rules are evaluated in order, first match wins.
type accessRule struct {
	exact  string
	prefix string
	public bool
	roles  []auth.Role
}

func (r accessRule) matches(path string) bool {
	if r.exact != "" {
		return path == r.exact
	}
	return strings.HasPrefix(path, r.prefix)
}

func (r accessRule) allows(role auth.Role) bool {
	if len(r.roles) == 0 {
		return true
	}
	for _, allowed := range r.roles {
		if role == allowed {
			return true
		}
	}
	return false
}

// The route table. Most specific entries first; the catch-all at the bottom
// requires authentication for anything not explicitly opened up.
var accessRules = []accessRule{
	{exact: "/", public: true},
	{exact: "/auth", public: true},
	{prefix: "/auth/", public: true},
	{prefix: "/healthz", public: true},
	{prefix: "/readyz", public: true},
	{prefix: "/metrics", public: true},
	{prefix: "/v1/info", public: true},
	{prefix: "/public/", public: true},
	{prefix: "/admin", roles: []auth.Role{auth.RoleAdmin}},
	{prefix: "/users", roles: []auth.Role{auth.RoleAdmin}},
	{prefix: "/authors", roles: []auth.Role{auth.RoleAdmin}},
	{prefix: "/books", roles: []auth.Role{auth.RoleUser, auth.RoleAdmin}},
	{prefix: "/loans", roles: []auth.Role{auth.RoleUser, auth.RoleAdmin}},
	{prefix: "/", roles: nil},
}

// withPolicy enforces the route table against the identity established by
// withAuth. Anonymous requests to protected paths get 401; authenticated
// requests lacking the role get 403. Both outcomes are logged.
func (a *API) withPolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		rule := matchRule(r.URL.Path)
		if rule.public {
			next.ServeHTTP(w, r)
			return
		}

		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			a.security(r, audit.AccessDenied, "", "unauthenticated: "+r.URL.Path)
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if !rule.allows(id.Role) {
			a.security(r, audit.AccessDenied, id.Email, "forbidden: "+r.URL.Path)
			writeError(w, r, http.StatusForbidden, "insufficient privileges")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func matchRule(path string) accessRule {
	for _, rule := range accessRules {
		if rule.matches(path) {
			return rule
		}
	}
	// Unreachable: the catch-all prefix "/" always matches.
	return accessRule{}
}

// requireAdmin guards handler branches that are stricter than their path
// rule, like POST /books. Writes the 403 itself; callers just return.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Identity{}, false
	}
	if id.Role != auth.RoleAdmin {
		a.security(r, audit.AccessDenied, id.Email, "forbidden: "+r.URL.Path)
		writeError(w, r, http.StatusForbidden, "insufficient privileges")
		return auth.Identity{}, false
	}
	return id, true
}
