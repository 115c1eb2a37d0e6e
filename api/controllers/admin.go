package controllers

import (
	"net/http"

	"github.com/orthodoxmetrics/om-backend/api/responses"
	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
)

type routeLister interface {
	Routes() []tenancy.RouteInfo
}

type poolStatser interface {
	Stats() tenancy.PoolStats
}

// AdminRoutes lists every declared route with its database scope.
func AdminRoutes(registry routeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"routes": registry.Routes()})
	}
}

// AdminTenantPools reports the church database pool cache.
func AdminTenantPools(pools poolStatser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, pools.Stats())
	}
}
