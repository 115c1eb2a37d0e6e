package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uint
	ChurchID *uint
	Role     enums.Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. The church id
// is the session church; tenant routing reads it from here.
type AccessTokenClaims struct {
	UserID   uint       `json:"user_id"`
	ChurchID *uint      `json:"church_id,omitempty"`
	Role     enums.Role `json:"role"`
	jwt.RegisteredClaims
}
