package auth

import "github.com/orthodoxmetrics/om-backend/pkg/enums"

// Actor is the caller identity handed to services.
type Actor struct {
	UserID   uint
	Role     enums.Role
	ChurchID *uint
}

// CanAccessChurch reports whether the actor may read churchID's data:
// platform admins may read any church, everyone else only their own.
func (a Actor) CanAccessChurch(churchID uint) bool {
	if a.Role.IsPlatformAdmin() {
		return true
	}
	return a.ChurchID != nil && *a.ChurchID == churchID
}

// CanManageChurch reports whether the actor may administer churchID.
func (a Actor) CanManageChurch(churchID uint) bool {
	if a.Role.IsPlatformAdmin() {
		return true
	}
	return a.Role.AtLeast(enums.RoleChurchAdmin) && a.CanAccessChurch(churchID)
}
