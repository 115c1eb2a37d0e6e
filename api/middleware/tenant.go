package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orthodoxmetrics/om-backend/api/responses"
	"github.com/orthodoxmetrics/om-backend/api/validators"
	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
)

const (
	churchIDParam = "churchId"
	churchIDQuery = "church_id"
)

// TenantBinder resolves a church to its record database.
type TenantBinder interface {
	ForChurch(ctx context.Context, churchID *uint) (tenancy.Handle, error)
}

// TenantDB binds the request to one church record database before the
// handler runs. The church comes from the {churchId} path parameter, then
// the church_id query parameter, then the session. Principals below admin
// may only target their own church.
func TenantDB(binder TenantBinder, allowAdminOverride bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, ok := PrincipalFromContext(ctx)
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}

			requested, err := requestedChurch(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			target := p.ChurchID
			if requested != nil {
				own := p.ChurchID != nil && *p.ChurchID == *requested
				if !own && !(allowAdminOverride && p.Role.IsPlatformAdmin()) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "church access denied"))
					return
				}
				target = requested
			}

			handle, err := binder.ForChurch(ctx, target)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = tenancy.WithHandle(ctx, handle)
			noteScope(ctx, func(s *requestScope) {
				churchID := handle.ChurchID
				s.churchID = &churchID
				s.tenantDB = handle.DatabaseName
			})
			if logg != nil {
				ctx = logg.WithTenantDB(logg.WithChurchID(ctx, handle.ChurchID), handle.DatabaseName)
				logg.Debug(ctx, "tenant.bound")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestedChurch(r *http.Request) (*uint, error) {
	if raw := chi.URLParam(r, churchIDParam); raw != "" {
		return validators.ParseOptionalUint(raw, churchIDParam)
	}
	return validators.ParseOptionalUint(r.URL.Query().Get(churchIDQuery), churchIDQuery)
}
