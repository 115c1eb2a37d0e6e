package controllers

import (
	"net/http"

	"github.com/orthodoxmetrics/om-backend/api/responses"
	"github.com/orthodoxmetrics/om-backend/api/validators"
	"github.com/orthodoxmetrics/om-backend/internal/auth"
	"github.com/orthodoxmetrics/om-backend/pkg/config"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer. The access token
// is returned in the body and set as the session cookie.
func AuthLogin(svc auth.Service, sessionCfg config.SessionConfig, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, sessionCfg, result.AccessToken, jwtCfg.RefreshTokenTTL())
		responses.WriteSuccess(w, result)
	}
}

// AuthLogout revokes the caller's session and clears the cookie.
func AuthLogout(svc auth.Service, sessionCfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Logout(r.Context(), p.AccessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clearSessionCookie(w, sessionCfg)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh rotates the session. The possibly expired access token is
// read from the same bearer header or cookie the auth middleware accepts.
func AuthRefresh(svc auth.Service, sessionCfg config.SessionConfig, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := validators.AccessToken(r, sessionCfg.CookieName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		result, err := svc.Refresh(r.Context(), token, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, sessionCfg, result.AccessToken, jwtCfg.RefreshTokenTTL())
		responses.WriteSuccess(w, result)
	}
}

// AuthMe returns the current user and session church.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		me, err := svc.Me(r.Context(), p.UserID, p.ChurchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, me)
	}
}
