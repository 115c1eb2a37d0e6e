package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
)

func TestAccessTokenPrefersHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: "om_session", Value: "cookie-token"})

	token, err := AccessToken(req, "om_session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "header-token" {
		t.Fatalf("expected header token, got %q", token)
	}
}

func TestAccessTokenFallsBackToCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "om_session", Value: "cookie-token"})

	token, err := AccessToken(req, "om_session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "cookie-token" {
		t.Fatalf("expected cookie token, got %q", token)
	}
}

func TestAccessTokenMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := AccessToken(req, "om_session"); err != ErrMissingToken {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}

	for _, header := range []string{"Bearer ", "bearer", "BEARER    "} {
		req.Header.Set("Authorization", header)
		if token, err := AccessToken(req, "om_session"); err != ErrMissingToken {
			t.Fatalf("expected ErrMissingToken for %q, got %q, %v", header, token, err)
		}
	}

	req.Header.Set("Authorization", "bearer  spaced-token ")
	token, err := AccessToken(req, "om_session")
	if err != nil || token != "spaced-token" {
		t.Fatalf("expected spaced-token, got %q, %v", token, err)
	}
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	var dest struct {
		Email string `json:"email" validate:"required,email"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	err := DecodeJSONBody(req, &dest)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["email"] != "must be a valid email" {
		t.Fatalf("unexpected details %#v", pkgerrors.As(err).Details())
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","extra":1}`))
	if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected unknown field rejection, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsMalformedEnvelopes(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}
	cases := map[string]string{
		"empty":    "   ",
		"trailing": `{"name":"St. Mary"}{"name":"Holy Trinity"}`,
		"oversize": `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestDecodeJSONBodyChecksRolesAndTimezones(t *testing.T) {
	type input struct {
		Role     string `json:"role" validate:"required,role"`
		Timezone string `json:"timezone" validate:"omitempty,timezone"`
	}
	var ok input
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"role":"church_admin","timezone":"Europe/Athens"}`))
	if err := DecodeJSONBody(req, &ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var bad input
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"role":"bishop","timezone":"Mars/Olympus"}`))
	err := DecodeJSONBody(req, &bad)
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	if details["role"] != "must be a known role" || details["timezone"] != "must be an IANA time zone" {
		t.Fatalf("unexpected details %#v", details)
	}
}

func TestParseUintParam(t *testing.T) {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("churchId", "7")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	id, err := ParseUintParam(req, "churchId")
	if err != nil || id != 7 {
		t.Fatalf("expected 7, got %d (%v)", id, err)
	}
	if _, err := ParseUintParam(req, "missing"); err == nil {
		t.Fatal("expected error for missing param")
	}
}

func TestParseQueryIntRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 10, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
	v, err := ParseQueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 10, 1, 100)
	if err != nil || v != 10 {
		t.Fatalf("expected default 10, got %d (%v)", v, err)
	}
}

func TestSanitizeStringKeepsWholeRunes(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  Свято-Троицкий  ", 0, "Свято-Троицкий"},
		{"Свято-Троицкий", 5, "Свято"},
		{"Άγιος Νικόλαος", 6, "Άγιος"},
		{"Fr.\x00 Ioann\t\r\n", 100, "Fr. Ioann"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
