package query

// Page is the visible window over a refined result.
type Page[T any] struct {
	Items    []T  `json:"data"`
	Total    int  `json:"total"`
	Visible  int  `json:"visible"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// Paginate reveals the first pages*pageSize items of all, clamped to its length.
// pageSize <= 0 falls back to DefaultPageSize and pages < 1 to one page.
func Paginate[T any](all []T, pageSize, pages int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pages < 1 {
		pages = 1
	}
	n := min(pageSize*pages, len(all))
	items := all[:n]
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Total:    len(all),
		Visible:  n,
		PageSize: pageSize,
		HasMore:  n < len(all),
	}
}

// Pager is the stateful form of Paginate: every LoadMore widens the window by one page.
// It is not safe for concurrent use.
type Pager[T any] struct {
	all      []T
	pageSize int
	pages    int
}

// NewPager starts at the first page of all.
func NewPager[T any](all []T, pageSize int) *Pager[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager[T]{all: all, pageSize: pageSize, pages: 1}
}

// Page returns the current window.
func (p *Pager[T]) Page() Page[T] {
	return Paginate(p.all, p.pageSize, p.pages)
}

// LoadMore reveals one more page and reports whether anything was added.
func (p *Pager[T]) LoadMore() bool {
	if !p.Page().HasMore {
		return false
	}
	p.pages++
	return true
}

// Reset goes back to the first page, e.g. after the filters changed.
func (p *Pager[T]) Reset(all []T) {
	p.all = all
	p.pages = 1
}
