package churches

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	pkgauth "github.com/orthodoxmetrics/om-backend/pkg/auth"
	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"gorm.io/gorm"
)

type churchRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Church, error)
	List(ctx context.Context, includeInactive bool) ([]models.Church, error)
	Create(ctx context.Context, church *models.Church) error
	Save(ctx context.Context, church *models.Church) error
	SetDatabaseName(ctx context.Context, id uint, name string) error
	ClearDatabaseName(ctx context.Context, id uint) error
	Deactivate(ctx context.Context, id uint) error
}

type tenantPools interface {
	ForChurch(ctx context.Context, churchID *uint) (tenancy.Handle, error)
	Invalidate(ctx context.Context, databaseName string)
	Cached(databaseName string) bool
	ValidateName(name string) error
}

// Service exposes church operations on the platform database.
type Service interface {
	List(ctx context.Context, actor pkgauth.Actor) ([]ChurchDTO, error)
	Get(ctx context.Context, actor pkgauth.Actor, id uint) (*ChurchDTO, error)
	Create(ctx context.Context, actor pkgauth.Actor, input CreateChurchInput) (*ChurchDTO, error)
	Update(ctx context.Context, actor pkgauth.Actor, id uint, input UpdateChurchInput) (*ChurchDTO, error)
	Deactivate(ctx context.Context, actor pkgauth.Actor, id uint) error
	DatabaseHealth(ctx context.Context, actor pkgauth.Actor, id uint) (*DatabaseHealth, error)
}

// ServiceParams wires the church service.
type ServiceParams struct {
	Repo    churchRepository
	Tenants tenantPools
	// Provisioner is optional; without it provision requests are rejected.
	Provisioner Provisioner
	Logger      *logger.Logger
}

type service struct {
	repo        churchRepository
	tenants     tenantPools
	provisioner Provisioner
	logg        *logger.Logger
}

// NewService builds a church service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("church repository required")
	}
	if p.Tenants == nil {
		return nil, fmt.Errorf("tenant manager required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: p.Repo, tenants: p.Tenants, provisioner: p.Provisioner, logg: p.Logger}, nil
}

func (s *service) List(ctx context.Context, actor pkgauth.Actor) ([]ChurchDTO, error) {
	if !actor.Role.IsPlatformAdmin() {
		if actor.ChurchID == nil {
			return []ChurchDTO{}, nil
		}
		church, err := s.load(ctx, *actor.ChurchID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return []ChurchDTO{}, nil
			}
			return nil, err
		}
		return []ChurchDTO{*FromModel(church, false)}, nil
	}

	rows, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list churches")
	}
	out := make([]ChurchDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], true))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor pkgauth.Actor, id uint) (*ChurchDTO, error) {
	if !actor.CanAccessChurch(id) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "church access denied")
	}
	church, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(church, actor.Role.IsPlatformAdmin()), nil
}

func (s *service) Create(ctx context.Context, actor pkgauth.Actor, input CreateChurchInput) (*ChurchDTO, error) {
	if !actor.Role.AtLeast(enums.RoleSuperAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "super admin required")
	}
	if input.Provision && s.provisioner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "database provisioning is not available")
	}

	church := &models.Church{
		Name:              strings.TrimSpace(input.Name),
		Email:             input.Email,
		Settings:          settingsJSON(input.Settings),
		PreferredLanguage: defaultString(input.PreferredLanguage, "en"),
		Timezone:          defaultString(input.Timezone, "UTC"),
		IsActive:          true,
	}
	if input.DatabaseName != nil {
		name := strings.TrimSpace(*input.DatabaseName)
		if err := s.tenants.ValidateName(name); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid database name").WithDetails(map[string]string{"database_name": "must match [A-Za-z0-9_]{1,64}"})
		}
		church.DatabaseName = &name
	}

	if err := s.repo.Create(ctx, church); err != nil {
		if db.IsUniqueViolation(err, "database_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "database name already assigned")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create church")
	}

	if input.Provision {
		name, ok := church.RecordDatabase()
		if !ok {
			name = DefaultDatabaseName(church.ID)
			if err := s.repo.SetDatabaseName(ctx, church.ID, name); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign database name")
			}
			church.DatabaseName = &name
		}
		if err := s.provisioner.Provision(ctx, name); err != nil {
			logCtx := s.logg.WithTenantDB(s.logg.WithChurchID(ctx, church.ID), name)
			if clearErr := s.repo.ClearDatabaseName(ctx, church.ID); clearErr != nil {
				s.logg.Error(logCtx, "church.database_unassign_failed", clearErr)
			}
			s.logg.Error(logCtx, "church.database_provision_failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "provision church database")
		}
		s.logg.Info(s.logg.WithTenantDB(s.logg.WithChurchID(ctx, church.ID), name), "church.database_provisioned")
	}

	return FromModel(church, true), nil
}

func (s *service) Update(ctx context.Context, actor pkgauth.Actor, id uint, input UpdateChurchInput) (*ChurchDTO, error) {
	if !actor.CanManageChurch(id) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "church access denied")
	}
	if input.DatabaseName != nil && !actor.Role.AtLeast(enums.RoleSuperAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only super admins may change the database name")
	}

	church, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous, hadDatabase := church.RecordDatabase()

	if input.Name != nil {
		church.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		church.Email = input.Email
	}
	if input.Settings != nil {
		church.Settings = settingsJSON(input.Settings)
	}
	if input.PreferredLanguage != nil {
		church.PreferredLanguage = *input.PreferredLanguage
	}
	if input.Timezone != nil {
		church.Timezone = *input.Timezone
	}
	if input.DatabaseName != nil {
		name := strings.TrimSpace(*input.DatabaseName)
		if name == "" {
			church.DatabaseName = nil
		} else {
			if err := s.tenants.ValidateName(name); err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid database name").WithDetails(map[string]string{"database_name": "must match [A-Za-z0-9_]{1,64}"})
			}
			church.DatabaseName = &name
		}
	}

	if err := s.repo.Save(ctx, church); err != nil {
		if db.IsUniqueViolation(err, "database_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "database name already assigned")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update church")
	}

	current, _ := church.RecordDatabase()
	if hadDatabase && current != previous {
		s.tenants.Invalidate(ctx, previous)
		s.logg.Info(s.logg.WithFields(s.logg.WithChurchID(ctx, id), map[string]any{
			"previous_db": previous,
			"tenant_db":   current,
		}), "church.database_changed")
	}

	return FromModel(church, actor.Role.IsPlatformAdmin()), nil
}

func (s *service) Deactivate(ctx context.Context, actor pkgauth.Actor, id uint) error {
	if !actor.Role.AtLeast(enums.RoleSuperAdmin) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "super admin required")
	}
	church, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate church")
	}
	if name, ok := church.RecordDatabase(); ok {
		s.tenants.Invalidate(ctx, name)
	}
	return nil
}

func (s *service) DatabaseHealth(ctx context.Context, actor pkgauth.Actor, id uint) (*DatabaseHealth, error) {
	if !actor.Role.IsPlatformAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin required")
	}
	church, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	name, ok := church.RecordDatabase()
	report := &DatabaseHealth{ChurchID: id, DatabaseName: name}
	// read before ForChurch, which caches the pool it opens
	report.PoolCached = ok && s.tenants.Cached(name)

	handle, err := s.tenants.ForChurch(ctx, &id)
	if err != nil {
		report.Error = tenancy.ReasonOf(err)
		return report, nil
	}

	if err := db.PingGorm(ctx, handle.DB); err != nil {
		report.Error = "ping failed"
		return report, nil
	}
	report.Reachable = true

	report.RecordCounts = make(map[string]int64)
	for _, model := range models.TenantModels() {
		t, ok := model.(interface{ TableName() string })
		if !ok {
			continue
		}
		var count int64
		if err := handle.DB.WithContext(ctx).Model(model).Count(&count).Error; err != nil {
			report.Error = "count failed"
			continue
		}
		report.RecordCounts[t.TableName()] = count
	}
	return report, nil
}

func (s *service) load(ctx context.Context, id uint) (*models.Church, error) {
	church, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "church not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load church")
	}
	return church, nil
}

// DefaultDatabaseName names the record database of a church provisioned
// without an explicit database_name.
func DefaultDatabaseName(churchID uint) string {
	return fmt.Sprintf("om_church_%d", churchID)
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
