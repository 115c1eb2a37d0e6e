package models

import "time"

// User is a platform account. ChurchID is nil for platform staff.
type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"`
	Email        string     `gorm:"column:email;size:255;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;size:100;not null"`
	LastName     string     `gorm:"column:last_name;size:100;not null"`
	Role         string     `gorm:"column:role;size:32;not null;default:'viewer'"`
	ChurchID     *uint      `gorm:"column:church_id;index"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
