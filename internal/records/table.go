package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// store is the per-kind persistence surface. Every method receives the
// request's record database; none of them hold a pool of their own.
type store interface {
	definition() Definition
	list(ctx context.Context, conn *gorm.DB, q ListQuery) (*ListResult, error)
	get(ctx context.Context, conn *gorm.DB, id uint) (any, error)
	create(ctx context.Context, conn *gorm.DB, fields Fields) (any, error)
	update(ctx context.Context, conn *gorm.DB, id uint, fields Fields) (any, error)
	delete(ctx context.Context, conn *gorm.DB, id uint) error
	distinct(ctx context.Context, conn *gorm.DB, column string) ([]string, error)
}

// table implements store for one record model.
type table[T any] struct {
	def Definition
}

// likeEscaper treats search input literally. '!' is the escape character
// because a backslash literal is parsed differently by MySQL and SQLite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (t table[T]) definition() Definition {
	return t.def
}

func (t table[T]) list(ctx context.Context, conn *gorm.DB, q ListQuery) (*ListResult, error) {
	search := func(tx *gorm.DB) *gorm.DB {
		if q.Search == "" || len(t.def.Searchable) == 0 {
			return tx
		}
		pattern := "%" + likeEscaper.Replace(q.Search) + "%"
		conds := make([]string, 0, len(t.def.Searchable))
		args := make([]any, 0, len(t.def.Searchable))
		for _, column := range t.def.Searchable {
			conds = append(conds, column+" LIKE ? ESCAPE '!'")
			args = append(args, pattern)
		}
		return tx.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	var total int64
	if err := conn.WithContext(ctx).Model(new(T)).Scopes(search).Count(&total).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("count %s", t.def.Table))
	}

	rows := make([]T, 0, q.Limit)
	err := conn.WithContext(ctx).
		Scopes(search).
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.SortField}, Desc: q.SortDirection == sortDescending}).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("list %s", t.def.Table))
	}

	return &ListResult{
		Records:      rows,
		TotalRecords: total,
		CurrentPage:  q.Page,
		TotalPages:   totalPages(total, q.Limit),
	}, nil
}

func (t table[T]) get(ctx context.Context, conn *gorm.DB, id uint) (any, error) {
	return t.find(ctx, conn, id)
}

func (t table[T]) find(ctx context.Context, conn *gorm.DB, id uint) (*T, error) {
	var row T
	if err := conn.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s record not found", t.def.Kind))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("load %s", t.def.Table))
	}
	return &row, nil
}

func (t table[T]) create(ctx context.Context, conn *gorm.DB, fields Fields) (any, error) {
	row, err := decodeInto[T](fields)
	if err != nil {
		return nil, err
	}
	if err := conn.WithContext(ctx).Create(row).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("insert %s", t.def.Table))
	}
	return row, nil
}

// update replaces every writable column of the row, so omitted optional
// columns become NULL.
func (t table[T]) update(ctx context.Context, conn *gorm.DB, id uint, fields Fields) (any, error) {
	if _, err := t.find(ctx, conn, id); err != nil {
		return nil, err
	}
	row, err := decodeInto[T](fields)
	if err != nil {
		return nil, err
	}
	columns := append(append([]string{}, t.def.Columns...), "updated_at")
	if err := conn.WithContext(ctx).Model(new(T)).Where("id = ?", id).Select(columns).Updates(row).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("update %s", t.def.Table))
	}
	return t.find(ctx, conn, id)
}

func (t table[T]) delete(ctx context.Context, conn *gorm.DB, id uint) error {
	res := conn.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, fmt.Sprintf("delete %s", t.def.Table))
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s record not found", t.def.Kind))
	}
	return nil
}

// distinct returns trimmed non-empty values of column, de-duplicated
// case-insensitively and sorted alphabetically.
func (t table[T]) distinct(ctx context.Context, conn *gorm.DB, column string) ([]string, error) {
	var raw []string
	err := conn.WithContext(ctx).
		Model(new(T)).
		Where(fmt.Sprintf("%s IS NOT NULL AND TRIM(%s) <> ''", column, column)).
		Distinct().
		Pluck(column, &raw).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("distinct %s.%s", t.def.Table, column))
	}

	sort.Strings(raw)
	seen := make(map[string]struct{}, len(raw))
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		trimmed := strings.TrimSpace(v)
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup || trimmed == "" {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, trimmed)
	}
	sort.Slice(values, func(i, j int) bool {
		return strings.ToLower(values[i]) < strings.ToLower(values[j])
	})
	return values, nil
}
