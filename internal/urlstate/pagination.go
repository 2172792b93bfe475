package urlstate

// Pagination is a 1-based page window
type Pagination struct {
	Page     int
	PageSize int
}

// Offset returns the number of rows before the page
func (p Pagination) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Limit returns the page size
func (p Pagination) Limit() int {
	if p.PageSize < 1 {
		return 0
	}
	return p.PageSize
}

// TotalPages returns how many pages hold total rows. An empty result still
// has one (empty) page.
func (p Pagination) TotalPages(total int64) int {
	if p.PageSize < 1 || total <= 0 {
		return 1
	}
	return int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Pagination returns the page window of the state
func (s QueryState) Pagination() Pagination {
	return Pagination{Page: s.Page, PageSize: s.PageSize}
}

// WithPage moves to page n (at least 1)
func (s QueryState) WithPage(n int) QueryState {
	if n < 1 {
		n = 1
	}
	s.Page = n
	return s
}

// WithPageSize changes the page size and goes back to the first page
func (s QueryState) WithPageSize(n int) QueryState {
	if n > 0 {
		s.PageSize = n
	}
	s.Page = 1
	return s
}
