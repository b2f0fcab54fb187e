package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tiffindesk/api/internal/auth"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/middleware"
)

type mockVerifier struct {
	verifyFn func(tokenStr string, kind auth.Kind) (*auth.Claims, error)
}

func (m *mockVerifier) Verify(tokenStr string, kind auth.Kind) (*auth.Claims, error) {
	return m.verifyFn(tokenStr, kind)
}

// acceptOnly accepts "good" as a staff access token and rejects anything else.
func acceptOnly() *mockVerifier {
	return &mockVerifier{verifyFn: func(tokenStr string, kind auth.Kind) (*auth.Claims, error) {
		if tokenStr != "good" || kind != auth.KindAccess {
			return nil, auth.ErrInvalidToken
		}
		return &auth.Claims{Username: "staff", Role: enum.RoleStaff, Kind: kind}, nil
	}}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		header  string
		upgrade bool
		want    int
	}{
		{name: "bearer token", target: "/", header: "Bearer good", want: http.StatusOK},
		{name: "lower-case scheme", target: "/", header: "bearer good", want: http.StatusOK},
		{name: "missing header", target: "/", want: http.StatusUnauthorized},
		{name: "rejected token", target: "/", header: "Bearer bad", want: http.StatusUnauthorized},
		{name: "basic scheme", target: "/", header: "Basic good", want: http.StatusUnauthorized},
		{name: "empty bearer", target: "/", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "query token on upgrade", target: "/ws/orders?token=good", upgrade: true, want: http.StatusOK},
		{name: "query token without upgrade", target: "/orders?token=good", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Authenticate(acceptOnly())(okHandler())

			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
			if rr.Code == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 without WWW-Authenticate header")
			}
		})
	}
}

func TestAuthenticate_StoresClaims(t *testing.T) {
	handler := middleware.Authenticate(acceptOnly())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.Username != "staff" {
			t.Errorf("username: got %q, want staff", claims.Username)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthenticate_RejectsRefreshTokens(t *testing.T) {
	signer := auth.NewSigner("test-secret")
	pair, err := signer.Issue(auth.NewStaff("staff"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	handler := middleware.Authenticate(signer)(okHandler())

	for token, want := range map[string]int{
		pair.AccessToken:  http.StatusOK,
		pair.RefreshToken: http.StatusUnauthorized,
	} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != want {
			t.Errorf("status: got %d, want %d", rr.Code, want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{name: "staff", claims: &auth.Claims{Role: enum.RoleStaff}, want: http.StatusOK},
		{name: "other role", claims: &auth.Claims{Role: "VIEWER"}, want: http.StatusForbidden},
		{name: "no claims", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireRole(enum.RoleStaff)(okHandler())

			req := httptest.NewRequest("GET", "/", nil)
			if tt.claims != nil {
				req = req.WithContext(middleware.WithClaims(req.Context(), tt.claims))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestClaimsFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if middleware.ClaimsFromContext(req.Context()) != nil {
		t.Error("expected nil claims")
	}
}
