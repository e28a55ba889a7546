package model

import (
	"errors"
	"fmt"
	"strings"
)

// Pagination limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize far from int overflow.
	MaxPage = 1_000_000
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ErrInvalidSort indicates a sort field or order outside the whitelist.
var ErrInvalidSort = errors.New("invalid sort")

// Sort is a whitelisted ordering.
type Sort struct {
	Field string `json:"sort_by"`
	Order string `json:"sort_order"`
}

// Desc reports whether the ordering is descending.
func (s Sort) Desc() bool {
	return s.Order == SortDesc
}

// ParseSort validates field and order against allowed.
// Empty values fall back to defaultField and descending order.
func ParseSort(field, order string, allowed map[string]string, defaultField string) (Sort, error) {
	if field == "" {
		field = defaultField
	}
	if _, ok := allowed[field]; !ok {
		return Sort{}, fmt.Errorf("%w: unknown sort field %q", ErrInvalidSort, field)
	}

	switch order = strings.ToLower(order); order {
	case "":
		order = SortDesc
	case SortAsc, SortDesc:
	default:
		return Sort{}, fmt.Errorf("%w: sort_order must be asc or desc", ErrInvalidSort)
	}

	return Sort{Field: field, Order: order}, nil
}

// NormalizePage clamps page to [1, MaxPage] and pageSize to [1, MaxPageSize].
// A pageSize <= 0 selects DefaultPageSize.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset returns the row offset of page.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
	NextPage   *int  `json:"next_page"`
	PrevPage   *int  `json:"prev_page"`
}

// NewPagination computes page metadata for a normalized page and total.
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}

	p := Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
	if p.HasNext {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPrev {
		prev := page - 1
		p.PrevPage = &prev
	}
	return p
}
