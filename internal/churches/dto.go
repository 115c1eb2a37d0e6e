package churches

import (
	"encoding/json"
	"time"

	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"gorm.io/datatypes"
)

// ChurchDTO is the transport shape of a church.
type ChurchDTO struct {
	ID                uint            `json:"id"`
	Name              string          `json:"name"`
	Email             *string         `json:"email,omitempty"`
	DatabaseName      *string         `json:"database_name,omitempty"`
	Settings          json.RawMessage `json:"settings,omitempty"`
	PreferredLanguage string          `json:"preferred_language"`
	Timezone          string          `json:"timezone"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// FromModel maps a church row. The database name is only shown to
// platform admins; callers pass showDatabase accordingly.
func FromModel(c *models.Church, showDatabase bool) *ChurchDTO {
	if c == nil {
		return nil
	}
	dto := &ChurchDTO{
		ID:                c.ID,
		Name:              c.Name,
		Email:             c.Email,
		PreferredLanguage: c.PreferredLanguage,
		Timezone:          c.Timezone,
		IsActive:          c.IsActive,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if len(c.Settings) > 0 {
		dto.Settings = json.RawMessage(c.Settings)
	}
	if showDatabase {
		dto.DatabaseName = c.DatabaseName
	}
	return dto
}

// CreateChurchInput captures the fields accepted when registering a church.
type CreateChurchInput struct {
	Name              string          `json:"name" validate:"required,min=2,max=255"`
	Email             *string         `json:"email" validate:"omitempty,email"`
	DatabaseName      *string         `json:"database_name" validate:"omitempty,max=64"`
	Settings          json.RawMessage `json:"settings"`
	PreferredLanguage string          `json:"preferred_language" validate:"omitempty,max=8"`
	Timezone          string          `json:"timezone" validate:"omitempty,max=64,timezone"`
	Provision         bool            `json:"provision"`
}

// UpdateChurchInput captures the mutable church fields; nil leaves a field
// unchanged.
type UpdateChurchInput struct {
	Name              *string         `json:"name" validate:"omitempty,min=2,max=255"`
	Email             *string         `json:"email" validate:"omitempty,email"`
	DatabaseName      *string         `json:"database_name" validate:"omitempty,max=64"`
	Settings          json.RawMessage `json:"settings"`
	PreferredLanguage *string         `json:"preferred_language" validate:"omitempty,max=8"`
	Timezone          *string         `json:"timezone" validate:"omitempty,max=64,timezone"`
}

// DatabaseHealth reports the state of a church record database.
type DatabaseHealth struct {
	ChurchID     uint             `json:"church_id"`
	DatabaseName string           `json:"database_name"`
	Reachable    bool             `json:"reachable"`
	PoolCached   bool             `json:"pool_cached"`
	RecordCounts map[string]int64 `json:"record_counts,omitempty"`
	Error        string           `json:"error,omitempty"`
}

func settingsJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}
