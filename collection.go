package halfu

import (
	"iter"
	"reflect"

	"github.com/pkg/errors"

	"github.com/ccbrown/hal-fu/link"
	"github.com/ccbrown/hal-fu/metadata"
	"github.com/ccbrown/hal-fu/pagination"
)

const (
	DefaultPageSize = 30

	// PageSizeAll disables paging. Every item is rendered on a single page.
	PageSizeAll = -1
)

// Collection is a set of resources along with the routing information needed to link to it and to
// its items.
type Collection struct {
	// The route used for the collection's self and pagination links.
	Route        string
	RouteParams  map[string]any
	RouteOptions map[string]any

	// The route used for the items' self links. If empty, Route is used.
	EntityRoute        string
	EntityRouteParams  map[string]any
	EntityRouteOptions map[string]any

	RouteIdentifierName  string
	EntityIdentifierName string

	Page     int
	PageSize int

	// The key the items are embedded under.
	CollectionName string

	// Additional top-level fields for the rendered collection.
	Attributes map[string]any

	// If given, these links are added to every item.
	EntityLinks *link.Collection

	value any
	links *link.Collection
}

// NewCollection wraps a slice, an array, an iter.Seq[any] or a pagination.Paginator.
func NewCollection(items any) (*Collection, error) {
	if f, ok := items.(func(func(any) bool)); ok {
		items = iter.Seq[any](f)
	}
	if !isCollectionValue(items) {
		return nil, errors.Wrapf(ErrInvalidCollection, "cannot wrap %T", items)
	}
	return &Collection{
		RouteIdentifierName:  metadata.DefaultIdentifierName,
		EntityIdentifierName: metadata.DefaultIdentifierName,
		Page:                 1,
		PageSize:             DefaultPageSize,
		CollectionName:       metadata.DefaultCollectionName,
		value:                items,
	}, nil
}

func isCollectionValue(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case pagination.Paginator, iter.Seq[any]:
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Array {
		return true
	}
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

// Value returns the wrapped items.
func (c *Collection) Value() any {
	return c.value
}

// Paginator returns the wrapped paginator, if the collection wraps one.
func (c *Collection) Paginator() (pagination.Paginator, bool) {
	p, ok := c.value.(pagination.Paginator)
	return p, ok
}

// Len returns the number of items if the collection wraps a slice or array.
func (c *Collection) Len() (int, bool) {
	switch c.value.(type) {
	case nil, pagination.Paginator, iter.Seq[any]:
		return 0, false
	}
	rv := reflect.Indirect(reflect.ValueOf(c.value))
	return rv.Len(), true
}

// Items iterates over the items. Paginated collections yield the current page. It is an error to
// call Items on a collection that wasn't created with NewCollection.
func (c *Collection) Items() (iter.Seq[any], error) {
	switch v := c.value.(type) {
	case nil:
		return nil, errors.Wrap(ErrInvalidCollection, "collection has no items")
	case pagination.Paginator:
		v.SetItemCountPerPage(c.PageSize)
		v.SetCurrentPageNumber(c.Page)
		items, err := v.CurrentItems()
		if err != nil {
			return nil, err
		}
		return func(yield func(any) bool) {
			for _, item := range items {
				if !yield(item) {
					return
				}
			}
		}, nil
	case iter.Seq[any]:
		return v, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(c.value))
	return func(yield func(any) bool) {
		for i := 0; i < rv.Len(); i++ {
			if !yield(rv.Index(i).Interface()) {
				return
			}
		}
	}, nil
}

// EntityRouteOrDefault returns the route for the items' self links.
func (c *Collection) EntityRouteOrDefault() string {
	if c.EntityRoute != "" {
		return c.EntityRoute
	}
	return c.Route
}

// Links returns the collection's links, creating the collection if needed.
func (c *Collection) Links() *link.Collection {
	if c.links == nil {
		c.links = link.NewCollection()
	}
	return c.links
}

func (c *Collection) SetLinks(links *link.Collection) {
	c.links = links
}

// Resource is implemented by Entity and Collection.
type Resource interface {
	Links() *link.Collection
}

var (
	_ Resource = (*Entity)(nil)
	_ Resource = (*Collection)(nil)
)
