package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/orthodoxmetrics/om-backend/api/responses"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
)

const ctxRequestScope contextKey = "request_scope"

// requestScope collects what inner middleware learned about the request so
// the outermost Recoverer can report it. Contexts derived downstream are not
// visible to Recoverer's deferred handler.
type requestScope struct {
	mu        sync.Mutex
	requestID string
	userID    uint
	churchID  *uint
	tenantDB  string
}

func scopeFromContext(ctx context.Context) *requestScope {
	s, _ := ctx.Value(ctxRequestScope).(*requestScope)
	return s
}

func noteScope(ctx context.Context, fn func(*requestScope)) {
	if s := scopeFromContext(ctx); s != nil {
		s.mu.Lock()
		fn(s)
		s.mu.Unlock()
	}
}

func (s *requestScope) fields() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := map[string]any{}
	if s.requestID != "" {
		fields["request_id"] = s.requestID
	}
	if s.userID != 0 {
		fields["user_id"] = strconv.FormatUint(uint64(s.userID), 10)
	}
	if s.churchID != nil {
		fields["church_id"] = *s.churchID
	}
	if s.tenantDB != "" {
		fields["tenant_db"] = s.tenantDB
	}
	return fields
}

// Recoverer turns a panic into a 500 envelope and logs it with the caller
// and the church database the request was bound to.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := &requestScope{}
			ctx := context.WithValue(r.Context(), ctxRequestScope, scope)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				logCtx := ctx
				if logg != nil {
					fields := scope.fields()
					fields["panic"] = fmt.Sprint(rec)
					logCtx = logg.WithFields(ctx, fields)
					logg.Error(logCtx, "panic.recovered", err)
				}
				responses.WriteError(logCtx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
