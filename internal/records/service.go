package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service exposes the sacramental record registers of the church bound to
// the request context.
type Service interface {
	List(ctx context.Context, kind string, q ListQuery) (*ListResult, error)
	Get(ctx context.Context, kind string, id uint) (any, error)
	Create(ctx context.Context, kind string, userID uint, body json.RawMessage) (any, error)
	Update(ctx context.Context, kind string, id uint, body json.RawMessage) (any, error)
	Delete(ctx context.Context, kind string, id uint) error
	SaveBatch(ctx context.Context, kind string, userID uint, req BatchRequest) (*BatchResult, error)
	DropdownOptions(ctx context.Context, kind, column string) (*DropdownOptions, error)
}

type service struct {
	stores map[string]store
	logg   *logger.Logger
}

// NewService builds the records service over the baptism, marriage and
// funeral tables.
func NewService(logg *logger.Logger) Service {
	stores := map[string]store{
		"baptisms":  table[models.BaptismRecord]{def: definitions["baptisms"]},
		"marriages": table[models.MarriageRecord]{def: definitions["marriages"]},
		"funerals":  table[models.FuneralRecord]{def: definitions["funerals"]},
	}
	return &service{stores: stores, logg: logg}
}

// resolve returns the store for kind and the request's record database.
// A request without a bound church database fails here, before any query.
func (s *service) resolve(ctx context.Context, kind string) (store, *gorm.DB, error) {
	st, ok := s.stores[kind]
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown record type %q", kind))
	}
	conn, err := tenancy.DBFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	return st, conn, nil
}

func (s *service) List(ctx context.Context, kind string, q ListQuery) (*ListResult, error) {
	st, conn, err := s.resolve(ctx, kind)
	if err != nil {
		return nil, err
	}
	return st.list(ctx, conn, q.Normalize(st.definition()))
}

func (s *service) Get(ctx context.Context, kind string, id uint) (any, error) {
	st, conn, err := s.resolve(ctx, kind)
	if err != nil {
		return nil, err
	}
	return st.get(ctx, conn, id)
}

func (s *service) Create(ctx context.Context, kind string, userID uint, body json.RawMessage) (any, error) {
	st, conn, err := s.resolve(ctx, kind)
	if err != nil {
		return nil, err
	}
	fields, _, err := parseFields(st.definition(), body)
	if err != nil {
		return nil, err
	}
	stampCreator(fields, userID)
	return st.create(ctx, conn, fields)
}

func (s *service) Update(ctx context.Context, kind string, id uint, body json.RawMessage) (any, error) {
	st, conn, err := s.resolve(ctx, kind)
	if err != nil {
		return nil, err
	}
	fields, _, err := parseFields(st.definition(), body)
	if err != nil {
		return nil, err
	}
	return st.update(ctx, conn, id, fields)
}

func (s *service) Delete(ctx context.Context, kind string, id uint) error {
	st, conn, err := s.resolve(ctx, kind)
	if err != nil {
		return err
	}
	if err := st.delete(ctx, conn, id); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"record_kind": kind, "record_id": id})
		s.logg.Info(logCtx, "records.deleted")
	}
	return nil
}

// SaveBatch inserts entries without an id and replaces entries with one,
// all in a single transaction. Any invalid entry rejects the whole batch.
func (s *service) SaveBatch(ctx context.Context, kind string, userID uint, req BatchRequest) (*BatchResult, error) {
	st, conn, err := s.resolve(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(req.Records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "records is required")
	}
	if len(req.Records) > maxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("batch exceeds %d records", maxBatchSize))
	}

	type entry struct {
		id     uint
		fields Fields
	}
	entries := make([]entry, 0, len(req.Records))
	for i, raw := range req.Records {
		fields, id, err := parseFields(st.definition(), raw)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				return nil, pkgerrors.New(typed.Code(), fmt.Sprintf("records[%d]: %s", i, typed.Message())).WithDetails(typed.Details())
			}
			return nil, err
		}
		if id == 0 {
			stampCreator(fields, userID)
		}
		entries = append(entries, entry{id: id, fields: fields})
	}

	saved := make([]any, 0, len(entries))
	err = conn.Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			var (
				row any
				err error
			)
			if e.id == 0 {
				row, err = st.create(ctx, tx, e.fields)
			} else {
				row, err = st.update(ctx, tx, e.id, e.fields)
			}
			if err != nil {
				return err
			}
			saved = append(saved, row)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save batch")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"record_kind": kind, "batch_size": len(saved)})
		s.logg.Info(logCtx, "records.batch_saved")
	}
	return &BatchResult{UpdatedRecords: saved}, nil
}

func (s *service) DropdownOptions(ctx context.Context, kind, column string) (*DropdownOptions, error) {
	st, conn, err := s.resolve(ctx, kind)
	if err != nil {
		return nil, err
	}
	def := st.definition()
	if !def.hasColumn(def.Dropdown, column) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("column %q has no dropdown options", column)).
			WithDetails(map[string]any{"allowed": def.Dropdown})
	}
	values, err := st.distinct(ctx, conn, column)
	if err != nil {
		return nil, err
	}
	return &DropdownOptions{Column: column, Values: values}, nil
}

func stampCreator(fields Fields, userID uint) {
	if userID != 0 {
		fields["created_by"] = userID
	}
}
