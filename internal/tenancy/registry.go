package tenancy

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Scope says which database a route is allowed to touch.
type Scope int

const (
	// ScopePlatform routes use the platform database only.
	ScopePlatform Scope = iota
	// ScopeTenant routes run against exactly one church record database,
	// bound before the handler executes.
	ScopeTenant
)

func (s Scope) String() string {
	if s == ScopeTenant {
		return "tenant"
	}
	return "platform"
}

// MarshalText renders the scope for route listings.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Middleware is the standard net/http middleware shape.
type Middleware func(http.Handler) http.Handler

// Route declares one endpoint and its database scope.
type Route struct {
	Name    string
	Method  string
	Pattern string
	Scope   Scope
	// Public routes skip authentication. Tenant routes cannot be public.
	Public     bool
	Middleware []Middleware
	Handler    http.HandlerFunc
}

// RouteInfo is the read-only view of a registered route.
type RouteInfo struct {
	Name    string `json:"name"`
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
	Scope   Scope  `json:"scope"`
	Public  bool   `json:"public"`
}

// Registry is the single table of API routes. Mounting applies
// authentication to non-public routes and the tenant binder to tenant
// routes, so scope is decided by declaration rather than by path shape.
type Registry struct {
	auth   Middleware
	tenant Middleware
	routes []Route
	index  map[string]int
}

// NewRegistry builds a registry around the auth and tenant middleware.
func NewRegistry(auth, tenant Middleware) (*Registry, error) {
	if auth == nil {
		return nil, fmt.Errorf("auth middleware required")
	}
	if tenant == nil {
		return nil, fmt.Errorf("tenant middleware required")
	}
	return &Registry{auth: auth, tenant: tenant, index: make(map[string]int)}, nil
}

// Add declares routes. Duplicates and public tenant routes are rejected.
func (r *Registry) Add(routes ...Route) error {
	for _, route := range routes {
		route.Method = strings.ToUpper(strings.TrimSpace(route.Method))
		if route.Method == "" || route.Pattern == "" || route.Handler == nil {
			return fmt.Errorf("route %q: method, pattern and handler are required", route.Name)
		}
		if route.Scope == ScopeTenant && route.Public {
			return fmt.Errorf("route %s %s: tenant routes require authentication", route.Method, route.Pattern)
		}
		key := routeKey(route.Method, route.Pattern)
		if _, dup := r.index[key]; dup {
			return fmt.Errorf("route %s %s registered twice", route.Method, route.Pattern)
		}
		r.index[key] = len(r.routes)
		r.routes = append(r.routes, route)
	}
	return nil
}

// MustAdd is Add for static route tables.
func (r *Registry) MustAdd(routes ...Route) {
	if err := r.Add(routes...); err != nil {
		panic(err)
	}
}

// Mount registers every route on router.
func (r *Registry) Mount(router chi.Router) {
	for _, route := range r.routes {
		router.Method(route.Method, route.Pattern, r.chain(route))
	}
}

// chain orders middleware as auth, route middleware, tenant binder, handler.
func (r *Registry) chain(route Route) http.Handler {
	var h http.Handler = route.Handler
	if route.Scope == ScopeTenant {
		h = r.tenant(h)
	}
	for i := len(route.Middleware) - 1; i >= 0; i-- {
		h = route.Middleware[i](h)
	}
	if !route.Public {
		h = r.auth(h)
	}
	return h
}

// Classify returns the scope declared for method and pattern.
func (r *Registry) Classify(method, pattern string) (Scope, bool) {
	i, ok := r.index[routeKey(strings.ToUpper(method), pattern)]
	if !ok {
		return ScopePlatform, false
	}
	return r.routes[i].Scope, true
}

// Routes lists registered routes ordered by pattern then method.
func (r *Registry) Routes() []RouteInfo {
	out := make([]RouteInfo, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, RouteInfo{
			Name:    route.Name,
			Method:  route.Method,
			Pattern: route.Pattern,
			Scope:   route.Scope,
			Public:  route.Public,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern == out[j].Pattern {
			return out[i].Method < out[j].Method
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

func routeKey(method, pattern string) string {
	return method + " " + pattern
}
