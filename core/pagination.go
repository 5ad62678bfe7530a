package core

import "strconv"

const (
	DefaultPage    = 1
	DefaultPerPage = 25
	MaxPerPage     = 100

	// pageEllipsis marks a gap in a windowed page-number sequence.
	pageEllipsis = "..."
)

// Params carries the shared list contract inputs: a 1-based page and a
// page size, both clamped to sane bounds by Clean.
type Params struct {
	Page    int `json:"page" query:"page"`
	PerPage int `json:"per_page" query:"per_page"`
}

func (p *Params) Clean() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

func (p Params) Limit() int  { return p.PerPage }
func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

// Meta is the pagination metadata returned with every list response.
type Meta struct {
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
}

func NewMeta(total int, p Params) Meta {
	last := 1
	if total > 0 {
		last = (total + p.PerPage - 1) / p.PerPage
	}
	return Meta{
		Total:       total,
		CurrentPage: p.Page,
		LastPage:    last,
		PerPage:     p.PerPage,
	}
}

// PageNumbers returns the windowed page sequence for a pager: first and
// last pages are always present, a 1-page window surrounds the current
// page, and gaps collapse to "...".
// e.g. (5, 10) -> [1 ... 4 5 6 ... 10]; (1, 3) -> [1 2 3].
func PageNumbers(current, last int) []string {
	if last < 1 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > last {
		current = last
	}

	if last <= 7 {
		pages := make([]string, 0, last)
		for i := 1; i <= last; i++ {
			pages = append(pages, strconv.Itoa(i))
		}
		return pages
	}

	start := current - 1
	if start < 2 {
		start = 2
	}
	end := current + 1
	if end > last-1 {
		end = last - 1
	}

	pages := []string{"1"}
	if start > 2 {
		pages = append(pages, pageEllipsis)
	}
	for i := start; i <= end; i++ {
		pages = append(pages, strconv.Itoa(i))
	}
	if end < last-1 {
		pages = append(pages, pageEllipsis)
	}
	return append(pages, strconv.Itoa(last))
}
