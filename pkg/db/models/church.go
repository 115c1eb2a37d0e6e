package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Church is a tenant. DatabaseName links the row to the church's record
// database and is the only source of that mapping.
type Church struct {
	ID                uint           `gorm:"primaryKey;autoIncrement"`
	Name              string         `gorm:"column:name;size:255;not null"`
	Email             *string        `gorm:"column:email;size:255"`
	DatabaseName      *string        `gorm:"column:database_name;size:64"`
	Settings          datatypes.JSON `gorm:"column:settings"`
	PreferredLanguage string         `gorm:"column:preferred_language;size:8;not null;default:'en'"`
	Timezone          string         `gorm:"column:timezone;size:64;not null;default:'UTC'"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// RecordDatabase returns the trimmed database name and whether one is set.
func (c Church) RecordDatabase() (string, bool) {
	if c.DatabaseName == nil {
		return "", false
	}
	name := strings.TrimSpace(*c.DatabaseName)
	return name, name != ""
}
