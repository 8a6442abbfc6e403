// Package pagination implements page-number pagination over arbitrary item sources.
package pagination

import (
	"github.com/pkg/errors"
)

// Paginator splits a set of items into numbered pages, starting at 1.
type Paginator interface {
	SetItemCountPerPage(n int)
	SetCurrentPageNumber(n int)

	ItemCountPerPage() int
	CurrentPageNumber() int

	// PageCount returns the number of pages. It is 0 if there are no items.
	PageCount() (int, error)

	TotalItemCount() (int, error)

	// CurrentItems returns the items on the current page. If the current page is out of range, the
	// nearest page is used.
	CurrentItems() ([]any, error)
}

// Adapter provides access to the underlying items.
type Adapter interface {
	Count() (int, error)
	Items(offset, limit int) ([]any, error)
}

// Slice adapts a slice.
type Slice[T any] []T

func (s Slice[T]) Count() (int, error) {
	return len(s), nil
}

func (s Slice[T]) Items(offset, limit int) ([]any, error) {
	if offset < 0 || offset > len(s) {
		return nil, errors.Errorf("offset %v out of range", offset)
	}
	end := offset + limit
	if limit < 0 || end > len(s) {
		end = len(s)
	}
	ret := make([]any, 0, end-offset)
	for _, item := range s[offset:end] {
		ret = append(ret, item)
	}
	return ret, nil
}

// Func adapts a pair of functions, e.g. database queries.
type Func struct {
	CountFunc func() (int, error)
	ItemsFunc func(offset, limit int) ([]any, error)
}

func (f Func) Count() (int, error) {
	return f.CountFunc()
}

func (f Func) Items(offset, limit int) ([]any, error) {
	return f.ItemsFunc(offset, limit)
}

const DefaultItemCountPerPage = 10

// Pages is a Paginator backed by an Adapter. An item count per page less than 1 puts every item on
// a single page.
type Pages struct {
	adapter Adapter
	perPage int
	page    int

	total *int
}

var _ Paginator = (*Pages)(nil)

func New(adapter Adapter) *Pages {
	return &Pages{
		adapter: adapter,
		perPage: DefaultItemCountPerPage,
		page:    1,
	}
}

// FromSlice is a convenience for New(Slice[T](items)).
func FromSlice[T any](items []T) *Pages {
	return New(Slice[T](items))
}

func (p *Pages) SetItemCountPerPage(n int) {
	p.perPage = n
}

func (p *Pages) SetCurrentPageNumber(n int) {
	p.page = n
}

func (p *Pages) ItemCountPerPage() int {
	return p.perPage
}

func (p *Pages) CurrentPageNumber() int {
	return p.page
}

// TotalItemCount returns the number of items. The adapter is only asked once.
func (p *Pages) TotalItemCount() (int, error) {
	if p.total == nil {
		n, err := p.adapter.Count()
		if err != nil {
			return 0, errors.Wrap(err, "error counting items")
		}
		p.total = &n
	}
	return *p.total, nil
}

func (p *Pages) PageCount() (int, error) {
	total, err := p.TotalItemCount()
	if err != nil {
		return 0, err
	}
	return PageCount(total, p.perPage), nil
}

func (p *Pages) CurrentItems() ([]any, error) {
	total, err := p.TotalItemCount()
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []any{}, nil
	}
	offset, limit := Window(total, p.page, p.perPage)
	items, err := p.adapter.Items(offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching items")
	}
	return items, nil
}

// PageCount returns the number of pages needed for total items.
func PageCount(total, perPage int) int {
	if total <= 0 {
		return 0
	}
	if perPage < 1 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// Window returns the offset and limit of the given page, clamping the page into range.
func Window(total, page, perPage int) (offset, limit int) {
	if perPage < 1 {
		return 0, total
	}
	count := PageCount(total, perPage)
	if page > count {
		page = count
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage, perPage
}
