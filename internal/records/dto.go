package records

import (
	"encoding/json"
	"strings"
)

const (
	defaultLimit   = 10
	maxLimit       = 100
	maxBatchSize   = 500
	maxPage        = 1_000_000
	defaultSort    = "id"
	sortAscending  = "asc"
	sortDescending = "desc"
)

// ListQuery holds the normalised list parameters.
type ListQuery struct {
	Page          int
	Limit         int
	Search        string
	SortField     string
	SortDirection string
}

// ListResult is the paged response body.
type ListResult struct {
	Records      any   `json:"records"`
	TotalRecords int64 `json:"totalRecords"`
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
}

// Fields is a client-supplied record body keyed by column name.
type Fields map[string]any

// BatchRequest saves many records at once. Entries carrying an id update
// that row, others are inserted.
type BatchRequest struct {
	Records []json.RawMessage `json:"records" validate:"required,min=1"`
}

// BatchResult lists the saved rows in request order.
type BatchResult struct {
	UpdatedRecords []any `json:"updatedRecords"`
}

// DropdownOptions lists distinct values of one column.
type DropdownOptions struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// Normalize clamps paging and falls back to default sorting for columns
// that are not sortable.
func (q ListQuery) Normalize(def Definition) ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > maxPage {
		q.Page = maxPage
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if !def.hasColumn(def.Sortable, q.SortField) {
		q.SortField = defaultSort
	}
	q.Search = strings.TrimSpace(q.Search)
	q.SortDirection = strings.ToLower(strings.TrimSpace(q.SortDirection))
	if q.SortDirection != sortAscending {
		q.SortDirection = sortDescending
	}
	return q
}

func totalPages(total int64, limit int) int {
	if total == 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
