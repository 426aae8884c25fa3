package query

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Find runs a paginated query for T on db. Filters and search narrow both
// the page and the total count.
func Find[T any](ctx context.Context, db *gorm.DB, p Params, cfg Config) (*Result[T], error) {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}

	var model T
	base := db.WithContext(ctx).Model(&model)
	base = applyFilters(base, p, cfg)
	base = applySearch(base, p.Search, cfg.SearchFields)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	items := make([]T, 0, p.Limit)
	q := applySort(base.Session(&gorm.Session{}), p, cfg)
	if err := q.Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	return &Result[T]{Items: items, Pagination: NewPagination(p.Page, p.Limit, total)}, nil
}

func applyFilters(db *gorm.DB, p Params, cfg Config) *gorm.DB {
	for _, field := range cfg.AllowedFilters {
		v, ok := p.Filters[field]
		if !ok {
			continue
		}
		db = db.Where(clause.Eq{Column: clause.Column{Name: cfg.ResolveField(field)}, Value: v})
	}
	return db
}

// applySearch ORs a LIKE match across the search columns.
func applySearch(db *gorm.DB, term string, fields []string) *gorm.DB {
	if term == "" || len(fields) == 0 {
		return db
	}
	pattern := "%" + term + "%"
	exprs := make([]clause.Expression, 0, len(fields))
	for _, f := range fields {
		exprs = append(exprs, clause.Like{Column: clause.Column{Name: f}, Value: pattern})
	}
	return db.Where(clause.Or(exprs...))
}

func applySort(db *gorm.DB, p Params, cfg Config) *gorm.DB {
	field := p.SortBy
	if field == "" {
		field = cfg.DefaultSort
	}
	if field == "" {
		return db
	}
	desc := p.SortOrder == OrderDesc
	db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: cfg.ResolveField(field)}, Desc: desc})
	// id breaks ties so pages are stable
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
}
