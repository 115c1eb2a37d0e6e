package middleware

import (
	"context"

	"github.com/orthodoxmetrics/om-backend/pkg/auth"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// Principal is the authenticated caller. ChurchID is the session church
// pinned at login; nil for platform staff without a church.
type Principal struct {
	UserID   uint
	Role     enums.Role
	ChurchID *uint
	AccessID string
}

// WithPrincipal injects the authenticated caller into the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	if !ok || p.UserID == 0 {
		return Principal{}, false
	}
	return p, true
}

func UserIDFromContext(ctx context.Context) uint {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

func RoleFromContext(ctx context.Context) enums.Role {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

// Actor converts the principal into the identity services expect.
func (p Principal) Actor() auth.Actor {
	return auth.Actor{UserID: p.UserID, Role: p.Role, ChurchID: p.ChurchID}
}
