package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orthodoxmetrics/om-backend/pkg/auth"
	"github.com/orthodoxmetrics/om-backend/pkg/auth/session"
	"github.com/orthodoxmetrics/om-backend/pkg/config"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
)

const testCookie = "om_session"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "orthodoxmetrics", ExpirationMinutes: 60}
}

func captureHandler(captured *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	var captured Principal
	handler := Auth(testJWTConfig(), testCookie, stubSessionVerifier{}, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	var captured Principal
	handler := Auth(testJWTConfig(), testCookie, stubSessionVerifier{}, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	cfg := testJWTConfig()
	church := uint(7)
	token, accessID := mintTestToken(t, cfg, 42, enums.RolePriest, &church)
	verifier := stubSessionVerifier{sessions: map[string]*session.Session{
		accessID: {UserID: 42, ChurchID: &church},
	}}

	var captured Principal
	handler := Auth(cfg, testCookie, verifier, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != 42 {
		t.Fatalf("expected user 42, got %d", captured.UserID)
	}
	if captured.Role != enums.RolePriest {
		t.Fatalf("expected role priest got %s", captured.Role)
	}
	if captured.ChurchID == nil || *captured.ChurchID != 7 {
		t.Fatalf("expected church 7, got %v", captured.ChurchID)
	}
	if captured.AccessID != accessID {
		t.Fatalf("expected access id %s, got %s", accessID, captured.AccessID)
	}
}

func TestAuthAcceptsSessionCookie(t *testing.T) {
	cfg := testJWTConfig()
	church := uint(9)
	token, accessID := mintTestToken(t, cfg, 51, enums.RoleEditor, &church)
	verifier := stubSessionVerifier{sessions: map[string]*session.Session{
		accessID: {UserID: 51, ChurchID: &church},
	}}

	var captured Principal
	handler := Auth(cfg, testCookie, verifier, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != 51 || captured.ChurchID == nil || *captured.ChurchID != 9 {
		t.Fatalf("unexpected principal %+v", captured)
	}
}

func TestAuthSessionChurchWins(t *testing.T) {
	cfg := testJWTConfig()
	tokenChurch := uint(7)
	sessionChurch := uint(9)
	token, accessID := mintTestToken(t, cfg, 42, enums.RoleChurchAdmin, &tokenChurch)
	verifier := stubSessionVerifier{sessions: map[string]*session.Session{
		accessID: {UserID: 42, ChurchID: &sessionChurch},
	}}

	var captured Principal
	handler := Auth(cfg, testCookie, verifier, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if captured.ChurchID == nil || *captured.ChurchID != 9 {
		t.Fatalf("expected session church 9, got %v", captured.ChurchID)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testJWTConfig()
	token, _ := mintTestToken(t, cfg, 42, enums.RoleViewer, nil)

	var captured Principal
	handler := Auth(cfg, testCookie, stubSessionVerifier{}, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSessionStoreFailure(t *testing.T) {
	cfg := testJWTConfig()
	token, _ := mintTestToken(t, cfg, 42, enums.RoleViewer, nil)

	var captured Principal
	handler := Auth(cfg, testCookie, stubSessionVerifier{err: errors.New("redis down")}, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.RoleEditor, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		role enums.Role
		want int
	}{
		{enums.RoleViewer, http.StatusForbidden},
		{enums.RoleEditor, http.StatusNoContent},
		{enums.RolePriest, http.StatusNoContent},
		{enums.RoleSuperAdmin, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: 1, Role: tc.role}))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("role %s: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", resp.Code)
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uint, role enums.Role, churchID *uint) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	payload := auth.AccessTokenPayload{
		UserID:   userID,
		ChurchID: churchID,
		Role:     role,
		JTI:      accessID,
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, accessID
}

type stubSessionVerifier struct {
	sessions map[string]*session.Session
	err      error
}

func (s stubSessionVerifier) Lookup(ctx context.Context, accessID string) (*session.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sessions[accessID], nil
}
