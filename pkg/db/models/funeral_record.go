package models

import "time"

// FuneralRecord lives in a church record database.
type FuneralRecord struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	DeceasedDate   *time.Time `gorm:"column:deceased_date;type:date" json:"deceased_date,omitempty"`
	BurialDate     *time.Time `gorm:"column:burial_date;type:date" json:"burial_date,omitempty"`
	FirstName      string     `gorm:"column:name;size:100;not null" json:"name"`
	LastName       string     `gorm:"column:lastname;size:100;not null;index" json:"lastname"`
	Age            *int       `gorm:"column:age" json:"age,omitempty"`
	Clergy         *string    `gorm:"column:clergy;size:255" json:"clergy,omitempty"`
	BurialLocation *string    `gorm:"column:burial_location;size:255" json:"burial_location,omitempty"`
	CreatedBy      *uint      `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (FuneralRecord) TableName() string { return "funeral_records" }
