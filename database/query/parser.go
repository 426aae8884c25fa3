package query

import (
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/fernandomesquita/stenopro/errors"
)

// Parse reads page, limit, sortBy, sortOrder, search and the configured
// filters from q. Absent values take defaults; malformed ones are rejected
// with INVALID_INPUT rather than silently clamped.
func Parse(q url.Values, cfg Config) (Params, error) {
	p := Params{
		Page:      1,
		Limit:     DefaultLimit,
		SortBy:    cfg.DefaultSort,
		SortOrder: cfg.defaultOrder(),
		Search:    strings.TrimSpace(q.Get("search")),
	}

	var err error
	if p.Page, err = positiveInt(q, "page", 1); err != nil {
		return p, err
	}
	if p.Limit, err = positiveInt(q, "limit", DefaultLimit); err != nil {
		return p, err
	}
	if p.Limit > MaxLimit {
		return p, apperrors.InvalidInput("limit", "must be at most "+strconv.Itoa(MaxLimit))
	}

	if s := q.Get("sortBy"); s != "" {
		if !cfg.sortAllowed(s) {
			return p, apperrors.InvalidInput("sortBy", "must be one of "+strings.Join(cfg.AllowedSortFields, ", "))
		}
		p.SortBy = s
	}
	switch o := strings.ToLower(q.Get("sortOrder")); o {
	case "":
	case OrderAsc, OrderDesc:
		p.SortOrder = o
	default:
		return p, apperrors.InvalidInput("sortOrder", "must be asc or desc")
	}

	if cfg.MaxSearchLength > 0 && len(p.Search) > cfg.MaxSearchLength {
		return p, apperrors.InvalidInput("search", "too long")
	}

	for _, field := range cfg.AllowedFilters {
		p.Filter(field, strings.TrimSpace(q.Get(field)))
	}
	return p, nil
}

func positiveInt(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, apperrors.InvalidInput(key, "must be a positive integer")
	}
	return v, nil
}
