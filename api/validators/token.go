package validators

import (
	"errors"
	"net/http"
	"strings"
)

var ErrMissingToken = errors.New("missing auth token")

// AccessToken extracts the access token from the Authorization header or,
// for browser clients, the session cookie. The header wins when both exist.
func AccessToken(r *http.Request, cookieName string) (string, error) {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		token := raw
		if scheme, rest, found := strings.Cut(raw, " "); found && strings.EqualFold(scheme, "bearer") {
			token = strings.TrimSpace(rest)
		} else if strings.EqualFold(raw, "bearer") {
			token = ""
		}
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
	if cookieName == "" {
		return "", ErrMissingToken
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(cookie.Value)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
