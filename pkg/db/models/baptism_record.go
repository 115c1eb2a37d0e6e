package models

import "time"

// BaptismRecord lives in a church record database.
type BaptismRecord struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName     string     `gorm:"column:first_name;size:100;not null" json:"first_name"`
	LastName      string     `gorm:"column:last_name;size:100;not null;index" json:"last_name"`
	BirthDate     *time.Time `gorm:"column:birth_date;type:date" json:"birth_date,omitempty"`
	ReceptionDate *time.Time `gorm:"column:reception_date;type:date" json:"reception_date,omitempty"`
	Birthplace    *string    `gorm:"column:birthplace;size:255" json:"birthplace,omitempty"`
	EntryType     *string    `gorm:"column:entry_type;size:50" json:"entry_type,omitempty"`
	Sponsors      *string    `gorm:"column:sponsors;type:text" json:"sponsors,omitempty"`
	Parents       *string    `gorm:"column:parents;type:text" json:"parents,omitempty"`
	Clergy        string     `gorm:"column:clergy;size:255;not null" json:"clergy"`
	CreatedBy     *uint      `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (BaptismRecord) TableName() string { return "baptism_records" }
