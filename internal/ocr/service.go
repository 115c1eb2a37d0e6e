package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/orthodoxmetrics/om-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var maxConfidence = decimal.NewFromInt(1)

// Service manages OCR jobs stored in the church record database bound to
// the request.
type Service interface {
	List(ctx context.Context, q ListJobsQuery) (*JobList, error)
	Get(ctx context.Context, jobID string) (*JobDTO, error)
	Create(ctx context.Context, userID uint, input CreateJobInput) (*JobDTO, error)
	Update(ctx context.Context, jobID string, input UpdateJobInput) (*JobDTO, error)
}

type service struct {
	publisher Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the OCR job service. A nil publisher disables events.
func NewService(publisher Publisher, logg *logger.Logger) Service {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &service{publisher: publisher, logg: logg, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) handle(ctx context.Context) (tenancy.Handle, *gorm.DB, error) {
	h, ok := tenancy.HandleFromContext(ctx)
	if !ok {
		_, err := tenancy.DBFromContext(ctx)
		return tenancy.Handle{}, nil, err
	}
	return h, h.DB.WithContext(ctx), nil
}

func (s *service) List(ctx context.Context, q ListJobsQuery) (*JobList, error) {
	h, conn, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(q.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(q.Limit)

	tx := conn.Where("church_id = ?", h.ChurchID)
	if q.Status != nil {
		if !q.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		tx = tx.Where("status = ?", *q.Status)
	}
	if cursor != nil {
		tx = tx.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.OCRJob
	if err := tx.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ocr jobs")
	}

	page := &JobList{Jobs: make([]JobDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for i := range rows {
		page.Jobs = append(page.Jobs, *FromModel(&rows[i]))
	}
	return page, nil
}

func (s *service) Get(ctx context.Context, jobID string) (*JobDTO, error) {
	h, conn, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	job, err := s.find(conn, h.ChurchID, jobID)
	if err != nil {
		return nil, err
	}
	return FromModel(job), nil
}

func (s *service) Create(ctx context.Context, userID uint, input CreateJobInput) (*JobDTO, error) {
	h, conn, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	language := strings.ToLower(strings.TrimSpace(input.Language))
	if language == "" {
		language = "en"
	}
	recordType := strings.TrimSpace(input.RecordType)
	if recordType == "" {
		recordType = recordTypeOther
	}
	if recordType != recordTypeOther {
		if _, err := enums.ParseRecordType(recordType); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid record type").WithDetails(map[string]string{"record_type": "is invalid"})
		}
	}
	if input.FileSize < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_size must not be negative")
	}

	job := &models.OCRJob{
		PublicID:         uuid.NewString(),
		ChurchID:         h.ChurchID,
		Filename:         strings.TrimSpace(input.Filename),
		OriginalFilename: strings.TrimSpace(input.OriginalFilename),
		FileSize:         input.FileSize,
		Status:           enums.OCRJobStatusPending,
		Language:         language,
		RecordType:       recordType,
		CreatedAt:        s.now(),
	}
	job.UpdatedAt = job.CreatedAt
	if userID != 0 {
		job.CreatedBy = &userID
	}
	if err := conn.Create(job).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create ocr job")
	}

	s.announce(ctx, h, job)
	return FromModel(job), nil
}

// Update applies a partial update. Status changes follow
// pending -> processing -> completed|failed and failed -> pending; a retry
// clears the previous error and re-announces the job.
func (s *service) Update(ctx context.Context, jobID string, input UpdateJobInput) (*JobDTO, error) {
	h, conn, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	job, err := s.find(conn, h.ChurchID, jobID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	requeued := false
	if input.Status != nil && *input.Status != job.Status {
		next := *input.Status
		if !next.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").WithDetails(map[string]string{"status": "is invalid"})
		}
		if !job.Status.CanTransitionTo(next) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move job from %s to %s", job.Status, next))
		}
		updates["status"] = next
		if next == enums.OCRJobStatusPending {
			updates["error_message"] = nil
			requeued = true
		}
	}
	if input.ConfidenceScore != nil {
		score := *input.ConfidenceScore
		if score.IsNegative() || score.GreaterThan(maxConfidence) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "confidence_score must be between 0 and 1").WithDetails(map[string]string{"confidence_score": "out of range"})
		}
		updates["confidence_score"] = decimal.NewNullDecimal(score.Round(2))
	}
	if len(input.ExtractedEntities) > 0 {
		if !json.Valid(input.ExtractedEntities) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "extracted_entities must be valid JSON")
		}
		updates["extracted_entities"] = datatypes.JSON(input.ExtractedEntities)
	}
	if input.ErrorMessage != nil && !requeued {
		updates["error_message"] = strings.TrimSpace(*input.ErrorMessage)
	}
	if len(updates) == 0 {
		return FromModel(job), nil
	}

	if err := conn.Model(&models.OCRJob{}).Where("id = ?", job.ID).Updates(updates).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update ocr job")
	}
	job, err = s.find(conn, h.ChurchID, jobID)
	if err != nil {
		return nil, err
	}
	if requeued {
		s.announce(ctx, h, job)
	}
	return FromModel(job), nil
}

func (s *service) find(conn *gorm.DB, churchID uint, jobID string) (*models.OCRJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ocr job not found")
	}
	var job models.OCRJob
	if err := conn.Where("public_id = ? AND church_id = ?", jobID, churchID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ocr job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ocr job")
	}
	return &job, nil
}

// announce publishes the queued event. The job row is the source of truth,
// so a publish failure is logged and the request still succeeds.
func (s *service) announce(ctx context.Context, h tenancy.Handle, job *models.OCRJob) {
	err := s.publisher.PublishJobQueued(ctx, JobQueuedEvent{
		ChurchID:     h.ChurchID,
		DatabaseName: h.DatabaseName,
		JobID:        job.PublicID,
		QueuedAt:     s.now(),
	})
	if err != nil && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "ocr_job_id", job.PublicID)
		s.logg.Error(logCtx, "ocr.publish_failed", err)
	}
}
