package tenancy

import (
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
)

// Resolution failure reasons. They label metrics and logs; clients only see
// the generic TENANT_UNRESOLVED message.
const (
	ReasonContextMissing        = "church_context_missing"
	ReasonChurchNotFound        = "church_not_found"
	ReasonChurchInactive        = "church_inactive"
	ReasonDatabaseNotConfigured = "database_not_configured"
	ReasonInvalidDatabaseName   = "invalid_database_name"
	ReasonPoolUnavailable       = "pool_unavailable"
	ReasonLookupFailed          = "lookup_failed"
)

type reasonDetails struct {
	Reason string `json:"reason"`
}

func unresolved(reason, message string, cause error) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeTenantUnresolved, cause, message).
		WithDetails(reasonDetails{Reason: reason})
}

// ReasonOf extracts the failure reason from a resolution error.
func ReasonOf(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeTenantUnresolved {
		return ""
	}
	if d, ok := typed.Details().(reasonDetails); ok {
		return d.Reason
	}
	return ""
}
