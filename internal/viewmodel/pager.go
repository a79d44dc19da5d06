package viewmodel

// DefaultPageSize is the number of sessions shown per project page
const DefaultPageSize = 15

// Pager is a page window over a server-counted list
type Pager struct {
	Total    int
	PageSize int
	Page     int // 0-indexed
}

// NewPager creates a pager at page 0. Non-positive sizes fall back to
// DefaultPageSize.
func NewPager(total, pageSize int) Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}
	return Pager{Total: total, PageSize: pageSize}
}

// PageCount is ceil(Total/PageSize)
func (p Pager) PageCount() int {
	if p.Total <= 0 || p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Offset is the index of the first item of the current page
func (p Pager) Offset() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Page * p.PageSize) % p.Total
}

// Limit is the page size sent to the server
func (p Pager) Limit() int {
	return p.PageSize
}

// Goto moves to page k. Pages outside [0, PageCount-1] leave the pager
// unchanged and report false.
func (p Pager) Goto(k int) (Pager, bool) {
	if k < 0 || k >= p.PageCount() || k == p.Page {
		return p, false
	}
	p.Page = k
	return p, true
}

// Next moves one page forward
func (p Pager) Next() (Pager, bool) {
	return p.Goto(p.Page + 1)
}

// Prev moves one page back
func (p Pager) Prev() (Pager, bool) {
	return p.Goto(p.Page - 1)
}

// WithTotal applies a fresh server count and pulls the page back into range
func (p Pager) WithTotal(total int) Pager {
	if total < 0 {
		total = 0
	}
	p.Total = total
	if last := p.PageCount() - 1; p.Page > last {
		p.Page = last
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

// HasNext reports whether a later page exists
func (p Pager) HasNext() bool {
	return p.Page < p.PageCount()-1
}

// HasPrev reports whether an earlier page exists
func (p Pager) HasPrev() bool {
	return p.Page > 0
}
