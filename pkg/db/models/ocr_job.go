package models

import (
	"time"

	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OCRJob tracks a scanned register page queued for text extraction. Rows
// live in the church record database next to the records they feed.
type OCRJob struct {
	ID                uint                `gorm:"primaryKey;autoIncrement"`
	PublicID          string              `gorm:"column:public_id;size:36;not null;uniqueIndex"`
	ChurchID          uint                `gorm:"column:church_id;not null;index"`
	Filename          string              `gorm:"column:filename;size:255;not null"`
	OriginalFilename  string              `gorm:"column:original_filename;size:255;not null"`
	FileSize          int64               `gorm:"column:file_size;not null;default:0"`
	Status            enums.OCRJobStatus  `gorm:"column:status;size:20;not null;default:'pending';index"`
	Language          string              `gorm:"column:language;size:10;not null;default:'en'"`
	RecordType        string              `gorm:"column:record_type;size:20;not null;default:'unknown'"`
	ConfidenceScore   decimal.NullDecimal `gorm:"column:confidence_score;type:decimal(3,2)"`
	ExtractedEntities datatypes.JSON      `gorm:"column:extracted_entities"`
	ErrorMessage      *string             `gorm:"column:error_message;type:text"`
	CreatedBy         *uint               `gorm:"column:created_by"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (OCRJob) TableName() string { return "ocr_jobs" }
