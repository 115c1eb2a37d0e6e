package controllers

import (
	"net/http"

	"github.com/orthodoxmetrics/om-backend/api/middleware"
	"github.com/orthodoxmetrics/om-backend/api/responses"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
)

// requirePrincipal writes 401 and returns false when the request carries
// no authenticated caller.
func requirePrincipal(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (middleware.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return middleware.Principal{}, false
	}
	return p, true
}
