package utils

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams is a normalized page request; Page is 1-based
type PaginationParams struct {
	Page  int
	Limit int
}

// PaginationMeta is returned alongside every paged list
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

// ParsePagination reads raw page/limit query values. Missing or malformed
// values fall back to the first page of DefaultPageSize; limit is capped at MaxPageSize.
func ParsePagination(page, limit string) PaginationParams {
	p, _ := strconv.Atoi(page)
	l, _ := strconv.Atoi(limit)
	if p < 1 {
		p = 1
	}
	switch {
	case l <= 0:
		l = DefaultPageSize
	case l > MaxPageSize:
		l = MaxPageSize
	}
	return PaginationParams{Page: p, Limit: l}
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta describes where this page sits within totalCount rows
func (p PaginationParams) Meta(totalCount int64) PaginationMeta {
	totalPages := 0
	if totalCount > 0 {
		totalPages = int((totalCount + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return PaginationMeta{
		Page:       p.Page,
		Limit:      p.Limit,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
	}
}
