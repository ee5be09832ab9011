package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"exchangeapi/src/model"
)

type mockTokenResolver struct {
	wantHash string
	user     *model.User
	err      error

	gotHash string
}

func (m *mockTokenResolver) FindByTokenHash(_ context.Context, tokenHash string) (*model.User, error) {
	m.gotHash = tokenHash
	if m.err != nil {
		return nil, m.err
	}
	if m.wantHash != "" && tokenHash != m.wantHash {
		return nil, nil
	}
	return m.user, nil
}

func TestMiddleware(t *testing.T) {
	t.Run("resolves a valid bearer token", func(t *testing.T) {
		resolver := &mockTokenResolver{
			wantHash: HashToken("secret-token"),
			user:     &model.User{ID: 7, Username: "alice", Role: model.RoleSeller},
		}

		var seen *model.User
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = GetUserFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		rec := httptest.NewRecorder()

		Middleware(resolver)(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resolver.gotHash != HashToken("secret-token") {
			t.Fatal("expected the token to be hashed before lookup")
		}
		if seen == nil || seen.ID != 7 {
			t.Fatal("expected the resolved user in the request context")
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		Middleware(&mockTokenResolver{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		})).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		resolver := &mockTokenResolver{wantHash: HashToken("other")}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		rec := httptest.NewRecorder()

		Middleware(resolver)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		})).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("resolver failure stays opaque", func(t *testing.T) {
		resolver := &mockTokenResolver{err: errors.New("pq: connection reset")}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()

		Middleware(resolver)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		})).ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestRequireRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withUser := func(req *http.Request, user *model.User) *http.Request {
		return req.WithContext(context.WithValue(req.Context(), UserKey, user))
	}

	t.Run("allows a matching role", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/", nil),
			&model.User{ID: 1, Role: model.RoleAdmin})
		rec := httptest.NewRecorder()

		RequireRoles(model.RoleSeller, model.RoleAdmin)(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("rejects a non-matching role", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/", nil),
			&model.User{ID: 1, Role: model.RoleBuyer})
		rec := httptest.NewRecorder()

		RequireRoles(model.RoleAdmin)(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("rejects an unauthenticated request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		RequireRoles(model.RoleAdmin)(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := extractBearer(tc.header); got != tc.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
