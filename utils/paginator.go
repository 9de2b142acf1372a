package utils

import (
	"strconv"
	"strings"
)

// DefaultPageSize is the number of posts on a feed page.
const DefaultPageSize = 10

// Pagination describes one page of an ordered result set.
type Pagination struct {
	Number   int   `json:"number"`
	PerPage  int   `json:"per_page"`
	NumPages int   `json:"num_pages"`
	Total    int64 `json:"total"`
}

// Paginate resolves a raw page query value against total items. Missing or
// malformed values give the first page, values below one clamp to the first
// page and values past the end clamp to the last page. An empty result set
// still has one (empty) page.
func Paginate(total int64, rawPage string, perPage int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	numPages := 1
	if total > 0 {
		numPages = int((total + int64(perPage) - 1) / int64(perPage))
	}

	number := 1
	if n, err := strconv.Atoi(strings.TrimSpace(rawPage)); err == nil {
		number = n
	}
	switch {
	case number < 1:
		number = 1
	case number > numPages:
		number = numPages
	}
	return Pagination{Number: number, PerPage: perPage, NumPages: numPages, Total: total}
}

// Offset is the index of the first item on the page.
func (p Pagination) Offset() int { return (p.Number - 1) * p.PerPage }

func (p Pagination) HasPrevious() bool { return p.Number > 1 }

func (p Pagination) HasNext() bool { return p.Number < p.NumPages }

func (p Pagination) PreviousNumber() int { return p.Number - 1 }

func (p Pagination) NextNumber() int { return p.Number + 1 }

// Pages lists every page number, for rendering page links.
func (p Pagination) Pages() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
