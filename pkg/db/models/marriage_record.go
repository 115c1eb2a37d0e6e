package models

import "time"

// MarriageRecord lives in a church record database.
type MarriageRecord struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	MarriedOn   *time.Time `gorm:"column:mdate;type:date" json:"mdate,omitempty"`
	GroomFirst  string     `gorm:"column:fname_groom;size:100;not null" json:"fname_groom"`
	GroomLast   string     `gorm:"column:lname_groom;size:100;not null;index" json:"lname_groom"`
	GroomParent *string    `gorm:"column:parentsg;type:text" json:"parentsg,omitempty"`
	BrideFirst  string     `gorm:"column:fname_bride;size:100;not null" json:"fname_bride"`
	BrideLast   string     `gorm:"column:lname_bride;size:100;not null;index" json:"lname_bride"`
	BrideParent *string    `gorm:"column:parentsb;type:text" json:"parentsb,omitempty"`
	Witness     *string    `gorm:"column:witness;type:text" json:"witness,omitempty"`
	License     *string    `gorm:"column:mlicense;size:100" json:"mlicense,omitempty"`
	Clergy      *string    `gorm:"column:clergy;size:255" json:"clergy,omitempty"`
	CreatedBy   *uint      `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (MarriageRecord) TableName() string { return "marriage_records" }
