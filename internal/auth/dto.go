package auth

import (
	"github.com/orthodoxmetrics/om-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token; the expired access token comes
// from the Authorization header or session cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChurchSummary describes the session church returned after login.
type ChurchSummary struct {
	ID                uint   `json:"id"`
	Name              string `json:"name"`
	PreferredLanguage string `json:"preferred_language"`
	Timezone          string `json:"timezone,omitempty"`
}

// LoginResponse contains the tokens, user and church produced by a
// successful login or refresh.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int            `json:"expires_in"`
	User         *users.UserDTO `json:"user"`
	Church       *ChurchSummary `json:"church,omitempty"`
}

// MeResponse is the current principal.
type MeResponse struct {
	User   *users.UserDTO `json:"user"`
	Church *ChurchSummary `json:"church,omitempty"`
}
