package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgauth "github.com/orthodoxmetrics/om-backend/pkg/auth"
	"github.com/orthodoxmetrics/om-backend/pkg/config"
	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/orthodoxmetrics/om-backend/pkg/security"
	"gorm.io/gorm"
)

const tempPasswordLength = 16

type usersRepository interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	ListByChurch(ctx context.Context, churchID uint) ([]models.User, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
}

type churchLookup interface {
	FindByID(ctx context.Context, id uint) (*models.Church, error)
}

// sessionRevoker ends every login of a user. Sessions pin the church and
// role chosen at login, so changing either must force a new login.
type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID uint) (int, error)
}

// Service exposes user administration.
type Service interface {
	ListByChurch(ctx context.Context, actor pkgauth.Actor, churchID uint) ([]UserDTO, error)
	Create(ctx context.Context, actor pkgauth.Actor, input CreateUserInput) (*CreatedUser, error)
	Update(ctx context.Context, actor pkgauth.Actor, id uint, input UpdateUserInput) (*UserDTO, error)
	ToggleStatus(ctx context.Context, actor pkgauth.Actor, id uint) (*UserDTO, error)
	ResetPassword(ctx context.Context, actor pkgauth.Actor, id uint) (*CreatedUser, error)
}

// ServiceParams wires the user service.
type ServiceParams struct {
	Repo     usersRepository
	Churches churchLookup
	Sessions sessionRevoker
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	repo        usersRepository
	churches    churchLookup
	sessions    sessionRevoker
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService builds a user service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if p.Churches == nil {
		return nil, fmt.Errorf("church lookup required")
	}
	if p.Sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        p.Repo,
		churches:    p.Churches,
		sessions:    p.Sessions,
		passwordCfg: p.Password,
		logg:        p.Logger,
	}, nil
}

func (s *service) ListByChurch(ctx context.Context, actor pkgauth.Actor, churchID uint) ([]UserDTO, error) {
	if !actor.CanManageChurch(churchID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "church access denied")
	}
	rows, err := s.repo.ListByChurch(ctx, churchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Create registers an account with a generated temporary password. Only
// platform admins may create users, and nobody may grant a role above
// their own.
func (s *service) Create(ctx context.Context, actor pkgauth.Actor, input CreateUserInput) (*CreatedUser, error) {
	if !actor.Role.IsPlatformAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").WithDetails(map[string]string{"role": "is invalid"})
	}
	if input.Role.Level() > actor.Role.Level() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot grant a role above your own")
	}
	if !input.Role.IsPlatformAdmin() && input.ChurchID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "church_id is required for church roles").WithDetails(map[string]string{"church_id": "is required"})
	}
	if err := s.checkChurch(ctx, input.ChurchID); err != nil {
		return nil, err
	}

	tempPassword, hash, err := s.tempPassword()
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         input.Role,
		ChurchID:     input.ChurchID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return &CreatedUser{User: FromModel(user), TemporaryPassword: tempPassword}, nil
}

// Update edits a user's profile, role or church. A role or church change
// revokes the user's sessions.
func (s *service) Update(ctx context.Context, actor pkgauth.Actor, id uint, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	currentRole := enums.NormalizeRole(user.Role)

	role := currentRole
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").WithDetails(map[string]string{"role": "is invalid"})
		}
		if input.Role.Level() > actor.Role.Level() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot grant a role above your own")
		}
		role = *input.Role
	}
	churchID := user.ChurchID
	if input.ChurchID != nil {
		if err := s.checkChurch(ctx, input.ChurchID); err != nil {
			return nil, err
		}
		churchID = input.ChurchID
	}
	if !role.IsPlatformAdmin() && churchID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "church_id is required for church roles").WithDetails(map[string]string{"church_id": "is required"})
	}

	fields := map[string]any{}
	if input.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	for column, value := range map[string]*string{"first_name": input.FirstName, "last_name": input.LastName} {
		if value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank").WithDetails(map[string]string{column: "is required"})
		}
		fields[column] = trimmed
	}
	roleChanged := role != currentRole
	if roleChanged {
		fields["role"] = string(role)
	}
	churchChanged := !sameChurch(churchID, user.ChurchID)
	if churchChanged {
		fields["church_id"] = *churchID
	}
	if len(fields) == 0 {
		return FromModel(user), nil
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}
	if roleChanged || churchChanged {
		if err := s.revoke(ctx, id, "access_changed"); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, id)
}

// ToggleStatus activates or deactivates a user. Deactivation revokes the
// user's sessions; admins cannot deactivate themselves.
func (s *service) ToggleStatus(ctx context.Context, actor pkgauth.Actor, id uint) (*UserDTO, error) {
	if id == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot change your own status")
	}
	user, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	active := !user.IsActive
	if err := s.repo.UpdateFields(ctx, id, map[string]any{"is_active": active}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user status")
	}
	if !active {
		if err := s.revoke(ctx, id, "deactivated"); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, id)
}

// ResetPassword replaces the user's password with a generated one, returned
// once, and ends every existing session.
func (s *service) ResetPassword(ctx context.Context, actor pkgauth.Actor, id uint) (*CreatedUser, error) {
	user, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	tempPassword, hash, err := s.tempPassword()
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, hash); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	if err := s.revoke(ctx, id, "password_reset"); err != nil {
		return nil, err
	}
	return &CreatedUser{User: FromModel(user), TemporaryPassword: tempPassword}, nil
}

// target loads a user the actor may administer: platform admins only, and
// never a user ranked above the actor.
func (s *service) target(ctx context.Context, actor pkgauth.Actor, id uint) (*models.User, error) {
	if !actor.Role.IsPlatformAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if enums.NormalizeRole(user.Role).Level() > actor.Role.Level() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage a user above your own role")
	}
	return user, nil
}

func (s *service) reload(ctx context.Context, id uint) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) revoke(ctx context.Context, userID uint, reason string) error {
	n, err := s.sessions.RevokeUser(ctx, userID)
	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, strconv.FormatUint(uint64(userID), 10)), map[string]any{"reason": reason})
	if err != nil {
		s.logg.Error(logCtx, "user.sessions_revoke_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	s.logg.Info(s.logg.WithField(logCtx, "sessions", n), "user.sessions_revoked")
	return nil
}

func (s *service) checkChurch(ctx context.Context, churchID *uint) error {
	if churchID == nil {
		return nil
	}
	if _, err := s.churches.FindByID(ctx, *churchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "church not found").WithDetails(map[string]string{"church_id": "does not exist"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load church")
	}
	return nil
}

func (s *service) tempPassword() (string, string, error) {
	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return tempPassword, hash, nil
}

func sameChurch(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
