package ocr

import (
	"encoding/json"
	"time"

	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

const recordTypeOther = "unknown"

// JobDTO is the API view of an OCR job; the public id is exposed as id.
type JobDTO struct {
	ID                string             `json:"id"`
	ChurchID          uint               `json:"church_id"`
	Filename          string             `json:"filename"`
	OriginalFilename  string             `json:"original_filename"`
	FileSize          int64              `json:"file_size"`
	Status            enums.OCRJobStatus `json:"status"`
	Language          string             `json:"language"`
	RecordType        string             `json:"record_type"`
	ConfidenceScore   *decimal.Decimal   `json:"confidence_score,omitempty"`
	ExtractedEntities json.RawMessage    `json:"extracted_entities,omitempty"`
	ErrorMessage      *string            `json:"error_message,omitempty"`
	CreatedBy         *uint              `json:"created_by,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// CreateJobInput registers an uploaded page for processing.
type CreateJobInput struct {
	Filename         string `json:"filename" validate:"required,max=255"`
	OriginalFilename string `json:"original_filename" validate:"required,max=255"`
	FileSize         int64  `json:"file_size" validate:"gte=0"`
	Language         string `json:"language" validate:"omitempty,max=10"`
	RecordType       string `json:"record_type" validate:"omitempty,oneof=baptism marriage funeral unknown"`
}

// UpdateJobInput is a partial update reported by the OCR worker or an editor.
type UpdateJobInput struct {
	Status            *enums.OCRJobStatus `json:"status"`
	ConfidenceScore   *decimal.Decimal    `json:"confidence_score"`
	ExtractedEntities json.RawMessage     `json:"extracted_entities"`
	ErrorMessage      *string             `json:"error_message"`
}

// ListJobsQuery filters the job list.
type ListJobsQuery struct {
	Status *enums.OCRJobStatus
	Limit  int
	Cursor string
}

// JobList is one page of jobs, newest first.
type JobList struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// FromModel maps an OCR job row.
func FromModel(job *models.OCRJob) *JobDTO {
	if job == nil {
		return nil
	}
	dto := &JobDTO{
		ID:               job.PublicID,
		ChurchID:         job.ChurchID,
		Filename:         job.Filename,
		OriginalFilename: job.OriginalFilename,
		FileSize:         job.FileSize,
		Status:           job.Status,
		Language:         job.Language,
		RecordType:       job.RecordType,
		ErrorMessage:     job.ErrorMessage,
		CreatedBy:        job.CreatedBy,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
	if job.ConfidenceScore.Valid {
		score := job.ConfidenceScore.Decimal
		dto.ConfidenceScore = &score
	}
	if len(job.ExtractedEntities) > 0 {
		dto.ExtractedEntities = json.RawMessage(job.ExtractedEntities)
	}
	return dto
}
