package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page selects a window of a listing. Page is 1-based.
type Page struct {
	Page     int
	PageSize int
}

// Normalize clamps p into valid bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }

// PageResult is one page of a listing plus the total number of matches.
type PageResult[T any] struct {
	List     []T
	Total    int
	Page     int
	PageSize int
}

// NewPageResult builds a PageResult for a normalized page.
func NewPageResult[T any](list []T, total int, p Page) PageResult[T] {
	if list == nil {
		list = []T{}
	}
	return PageResult[T]{List: list, Total: total, Page: p.Page, PageSize: p.PageSize}
}
