package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"librix.org/internal/auth"
	"librix.org/internal/library"
)

func newAuthFixture(t *testing.T) (*API, *auth.Service, *auth.User) {
	t.Helper()
	store := auth.NewInMemoryStore()
	codec, err := auth.NewCodec([]byte("test-secret"))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	svc, err := auth.NewService(store, codec)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	user, err := svc.Register(context.Background(), auth.NewUser{
		FirstName: "Rae",
		LastName:  "Reader",
		Email:     "reader@example.com",
		Password:  "reader-password",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	api := New(ReadyProbe{}, "test", svc, library.NewInMemory(), nil)
	return api, svc, user
}

// identityProbe records the identity withAuth established for the request.
func identityProbe(got *auth.Identity, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if id, ok := auth.IdentityFromContext(r.Context()); ok {
			*got = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestWithAuthEstablishesIdentity(t *testing.T) {
	api, svc, user := newAuthFixture(t)
	session, err := svc.Login(context.Background(), user.Email, "reader-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var id auth.Identity
	var called bool
	h := api.withAuth(identityProbe(&id, &called))

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("next handler was not invoked")
	}
	if id.UserID != user.ID || id.Email != user.Email || id.Role != auth.RoleUser {
		t.Fatalf("identity = %+v", id)
	}
}

func TestWithAuthNeverRejects(t *testing.T) {
	api, _, _ := newAuthFixture(t)

	cases := map[string]func(*http.Request){
		"no header":      func(r *http.Request) {},
		"wrong scheme":   func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwdw==") },
		"empty bearer":   func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") },
		"garbage token":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") },
		"foreign signer": func(r *http.Request) { r.Header.Set("Authorization", "Bearer aaa.bbb.ccc") },
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			var id auth.Identity
			var called bool
			h := api.withAuth(identityProbe(&id, &called))

			req := httptest.NewRequest(http.MethodGet, "/books", nil)
			prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if !called {
				t.Fatal("next handler was not invoked")
			}
			if id.UserID != "" {
				t.Fatalf("unexpected identity %+v", id)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
		})
	}
}

func TestWithAuthSkipsAnonymousPaths(t *testing.T) {
	api, _, _ := newAuthFixture(t)

	var id auth.Identity
	var called bool
	h := api.withAuth(identityProbe(&id, &called))

	// Even a valid-looking header is not decoded on the login path.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("next handler was not invoked")
	}
	if id.UserID != "" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"", "", false},
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		token, ok := bearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}
