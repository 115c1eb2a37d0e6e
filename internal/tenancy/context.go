package tenancy

import (
	"context"

	"gorm.io/gorm"
)

// Handle is the record database bound to one request.
type Handle struct {
	ChurchID     uint
	DatabaseName string
	DB           *gorm.DB
}

type handleKey struct{}

// WithHandle attaches h to ctx.
func WithHandle(ctx context.Context, h Handle) context.Context {
	return context.WithValue(ctx, handleKey{}, h)
}

// HandleFromContext returns the bound record database, if any.
func HandleFromContext(ctx context.Context) (Handle, bool) {
	h, ok := ctx.Value(handleKey{}).(Handle)
	if !ok || h.DB == nil {
		return Handle{}, false
	}
	return h, true
}

// DBFromContext returns the request's record database scoped to ctx. It
// never falls back to another pool: without a bound handle it fails.
func DBFromContext(ctx context.Context) (*gorm.DB, error) {
	h, ok := HandleFromContext(ctx)
	if !ok {
		return nil, unresolved(ReasonContextMissing, "no church database bound to request", nil)
	}
	return h.DB.WithContext(ctx), nil
}
