// README: Tests for Firebase auth, role gating, and panic recovery middleware.
package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"travelcrm/internal/http/middleware"
	"travelcrm/internal/infra"
)

// stubVerifier is a test double for infra.TokenVerifier.
type stubVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func newTestRouter(verifier infra.TokenVerifier, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Auth(verifier))
	r.Use(extra...)
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": middleware.CallerUID(c), "role": middleware.CallerRole(c)})
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func serve(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func agentToken(role string) *stubVerifier {
	claims := map[string]interface{}{}
	if role != "" {
		claims["role"] = role
	}
	return &stubVerifier{token: &infra.FirebaseToken{UID: "agent123", Claims: claims}}
}

func TestAuth_Rejects(t *testing.T) {
	cases := []struct {
		name     string
		verifier *stubVerifier
		header   string
	}{
		{"missing header", agentToken("agent"), ""},
		{"wrong prefix", agentToken("agent"), "Token sometoken"},
		{"empty token", agentToken("agent"), "Bearer   "},
		{"verifier error", &stubVerifier{err: errors.New("bad token")}, "Bearer invalidtoken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(newTestRouter(tc.verifier), "/test", tc.header)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestAuth_ValidToken_UIDAndRolePopulated(t *testing.T) {
	w := serve(newTestRouter(agentToken("agent")), "/test", "Bearer validtoken")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"uid":"agent123"`) || !strings.Contains(body, `"role":"agent"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{"agent", http.StatusOK},
		{"admin", http.StatusOK},
		{"customer", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		r := newTestRouter(agentToken(tc.role), middleware.RequireRole("agent", "admin"))
		if w := serve(r, "/test", "Bearer validtoken"); w.Code != tc.want {
			t.Errorf("role %q: expected %d, got %d", tc.role, tc.want, w.Code)
		}
	}
}

func TestRecovery(t *testing.T) {
	w := serve(newTestRouter(agentToken("agent")), "/panic", "Bearer validtoken")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal error") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
