package middleware

import (
	"net/http"
	"strconv"

	"github.com/orthodoxmetrics/om-backend/api/responses"
	"github.com/orthodoxmetrics/om-backend/api/validators"
	pkgAuth "github.com/orthodoxmetrics/om-backend/pkg/auth"
	"github.com/orthodoxmetrics/om-backend/pkg/auth/session"
	"github.com/orthodoxmetrics/om-backend/pkg/config"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
)

// Auth validates the access token, taken from the bearer header or the
// session cookie, and seeds the request context with the principal. The
// Redis session is authoritative for the church binding.
func Auth(cfg config.JWTConfig, cookieName string, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.AccessToken(r, cookieName)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			principal := Principal{
				UserID:   claims.UserID,
				Role:     enums.NormalizeRole(string(claims.Role)),
				ChurchID: claims.ChurchID,
				AccessID: claims.ID,
			}

			if verifier != nil {
				sess, err := verifier.Lookup(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if sess == nil || sess.UserID != claims.UserID {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
				principal.ChurchID = sess.ChurchID
			}

			ctx := WithPrincipal(r.Context(), principal)
			noteScope(ctx, func(s *requestScope) {
				s.userID = principal.UserID
				s.churchID = principal.ChurchID
			})
			if logg != nil {
				fields := map[string]any{
					"user_id":    strconv.FormatUint(uint64(principal.UserID), 10),
					"actor_role": string(principal.Role),
				}
				if principal.ChurchID != nil {
					fields["session_church_id"] = *principal.ChurchID
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
