// Package query turns list request parameters (page, limit, sort, filters,
// free-text search) into paginated GORM queries.
package query

import "strings"

// Paging limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Params is a parsed list request.
type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
	// Filters holds exact-match conditions keyed by request field name.
	Filters map[string]string
}

// Offset returns the row offset of the requested page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Filter adds an exact-match condition. Empty values are ignored.
func (p *Params) Filter(field, value string) {
	if value == "" {
		return
	}
	if p.Filters == nil {
		p.Filters = make(map[string]string)
	}
	p.Filters[field] = value
}

// Pagination is the page metadata returned with a list.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination computes page metadata for total rows.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Result is one page of items.
type Result[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Config describes which request fields a resource accepts.
type Config struct {
	// SearchFields are the columns matched by free-text search.
	SearchFields []string
	// AllowedSortFields are request field names accepted in sortBy.
	AllowedSortFields []string
	// AllowedFilters are request field names accepted as exact filters.
	AllowedFilters []string
	// FieldAliases maps request field names to columns, e.g. createdAt -> created_at.
	FieldAliases map[string]string
	DefaultSort  string
	DefaultOrder string
	// MaxSearchLength bounds the search term; 0 means unbounded.
	MaxSearchLength int
}

// ResolveField maps a request field name to its column.
func (c Config) ResolveField(field string) string {
	if alias, ok := c.FieldAliases[field]; ok {
		return alias
	}
	return field
}

func (c Config) sortAllowed(field string) bool {
	for _, f := range c.AllowedSortFields {
		if f == field {
			return true
		}
	}
	return false
}

func (c Config) defaultOrder() string {
	if strings.EqualFold(c.DefaultOrder, OrderAsc) {
		return OrderAsc
	}
	return OrderDesc
}
