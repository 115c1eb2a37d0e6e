package tenancy

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"gorm.io/gorm"
)

var databaseNameRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

var systemSchemas = []string{"mysql", "information_schema", "performance_schema", "sys"}

// ChurchLookup reads church rows from the platform database.
type ChurchLookup interface {
	FindByID(ctx context.Context, id uint) (*models.Church, error)
}

// Tenant is a church bound to its record database.
type Tenant struct {
	ChurchID     uint
	ChurchName   string
	DatabaseName string
}

// Resolver maps a church id to its record database name. There is no
// fallback: a church without a usable database_name never resolves.
type Resolver struct {
	churches ChurchLookup
	reserved map[string]struct{}
}

// NewResolver builds a resolver. reserved lists schema names that may never
// serve as record databases, typically the platform and auth databases.
func NewResolver(churches ChurchLookup, reserved ...string) (*Resolver, error) {
	if churches == nil {
		return nil, fmt.Errorf("church lookup required")
	}
	blocked := make(map[string]struct{}, len(reserved)+len(systemSchemas))
	for _, name := range append(reserved, systemSchemas...) {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			blocked[name] = struct{}{}
		}
	}
	return &Resolver{churches: churches, reserved: blocked}, nil
}

// Resolve loads the church and validates its database_name.
func (r *Resolver) Resolve(ctx context.Context, churchID uint) (Tenant, error) {
	if churchID == 0 {
		return Tenant{}, unresolved(ReasonContextMissing, "church context missing", nil)
	}

	church, err := r.churches.FindByID(ctx, churchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Tenant{}, unresolved(ReasonChurchNotFound, fmt.Sprintf("church %d not found", churchID), err)
		}
		return Tenant{}, unresolved(ReasonLookupFailed, fmt.Sprintf("loading church %d", churchID), err)
	}
	if church == nil {
		return Tenant{}, unresolved(ReasonChurchNotFound, fmt.Sprintf("church %d not found", churchID), nil)
	}
	if !church.IsActive {
		return Tenant{}, unresolved(ReasonChurchInactive, fmt.Sprintf("church %d is inactive", churchID), nil)
	}

	name, ok := church.RecordDatabase()
	if !ok {
		return Tenant{}, unresolved(ReasonDatabaseNotConfigured, fmt.Sprintf("church %d has no database configured", churchID), nil)
	}
	if err := r.ValidateName(name); err != nil {
		return Tenant{}, unresolved(ReasonInvalidDatabaseName, fmt.Sprintf("church %d database name rejected", churchID), err)
	}

	return Tenant{ChurchID: church.ID, ChurchName: church.Name, DatabaseName: name}, nil
}

// ValidateName checks that name is a plain identifier and not reserved.
func (r *Resolver) ValidateName(name string) error {
	if !databaseNameRe.MatchString(name) {
		return fmt.Errorf("database name %q is not a valid identifier", name)
	}
	if _, blocked := r.reserved[strings.ToLower(name)]; blocked {
		return fmt.Errorf("database name %q is reserved", name)
	}
	return nil
}
