package model

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizePage(t *testing.T) {
	testCases := []struct {
		name             string
		page, size       int
		wantPage, wantSz int
	}{
		{"defaults", 0, 0, 1, DefaultPageSize},
		{"negative", -3, -1, 1, DefaultPageSize},
		{"capped", 2, 500, 2, MaxPageSize},
		{"exact max", 1, MaxPageSize, 1, MaxPageSize},
		{"passthrough", 4, 10, 4, 10},
		{"huge page", math.MaxInt, 20, MaxPage, 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page, size := NormalizePage(tc.page, tc.size)
			if page != tc.wantPage || size != tc.wantSz {
				t.Errorf("NormalizePage(%d, %d) = (%d, %d), want (%d, %d)",
					tc.page, tc.size, page, size, tc.wantPage, tc.wantSz)
			}
		})
	}
}

func TestOffset_NeverNegative(t *testing.T) {
	page, size := NormalizePage(math.MaxInt, MaxPageSize)
	if off := Offset(page, size); off < 0 {
		t.Fatalf("Offset(%d, %d) = %d, want >= 0", page, size, off)
	}
}

func TestNewPagination(t *testing.T) {
	testCases := []struct {
		name      string
		page      int
		size      int
		total     int64
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"empty", 1, 20, 0, 0, false, false},
		{"single page", 1, 20, 5, 1, false, false},
		{"first of three", 1, 10, 25, 3, true, false},
		{"middle", 2, 10, 25, 3, true, true},
		{"last", 3, 10, 25, 3, false, true},
		{"exact multiple", 2, 10, 20, 2, false, true},
		{"past the end", 5, 10, 25, 3, false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.size, tc.total)
			if p.TotalPages != tc.wantPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tc.wantPages)
			}
			if p.HasNext != tc.wantNext || p.HasPrev != tc.wantPrev {
				t.Errorf("HasNext/HasPrev = %v/%v, want %v/%v", p.HasNext, p.HasPrev, tc.wantNext, tc.wantPrev)
			}
			if tc.wantNext && (p.NextPage == nil || *p.NextPage != tc.page+1) {
				t.Errorf("NextPage = %v, want %d", p.NextPage, tc.page+1)
			}
			if !tc.wantNext && p.NextPage != nil {
				t.Errorf("NextPage = %d, want nil", *p.NextPage)
			}
			if tc.wantPrev && (p.PrevPage == nil || *p.PrevPage != tc.page-1) {
				t.Errorf("PrevPage = %v, want %d", p.PrevPage, tc.page-1)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	testCases := []struct {
		name      string
		field     string
		order     string
		want      Sort
		wantError bool
	}{
		{"defaults", "", "", Sort{Field: DefaultUserSort, Order: SortDesc}, false},
		{"asc", "email", "asc", Sort{Field: "email", Order: SortAsc}, false},
		{"upper case order", "username", "DESC", Sort{Field: "username", Order: SortDesc}, false},
		{"unknown field", "hashed_password", "asc", Sort{}, true},
		{"injection attempt", "email; DROP TABLE users", "", Sort{}, true},
		{"bad order", "email", "sideways", Sort{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSort(tc.field, tc.order, UserSortFields, DefaultUserSort)
			if tc.wantError {
				if !errors.Is(err, ErrInvalidSort) {
					t.Fatalf("expected ErrInvalidSort, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseSort() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
