package halfu

import (
	"maps"
	"net/http"

	"github.com/pkg/errors"

	"github.com/ccbrown/hal-fu/link"
)

// SelfLinkInjector adds self links to resources.
type SelfLinkInjector struct{}

// InjectSelfLink adds a self link for the route unless the resource already has one. Collections
// link with their route params and options. Entities link with their identifier as the
// routeIdentifier param. If route is empty, the collection's own route is used, and if there is
// still no route there's nothing to link to.
func (SelfLinkInjector) InjectSelfLink(resource Resource, route, routeIdentifier string) {
	links := resource.Links()
	if links.Has("self") {
		return
	}

	var params, options map[string]any
	switch r := resource.(type) {
	case *Collection:
		if route == "" {
			route = r.Route
		}
		params = maps.Clone(r.RouteParams)
		options = maps.Clone(r.RouteOptions)
	case *Entity:
		if r.ID() != nil {
			if routeIdentifier == "" {
				routeIdentifier = "id"
			}
			params = map[string]any{
				routeIdentifier: r.ID(),
			}
		}
	}
	if route == "" {
		return
	}

	links.Set(link.NewRoute("self", route, params, options))
}

// PaginationInjector adds self, first, last, prev and next links to paginated collections.
type PaginationInjector struct{}

// InjectPaginationLinks configures the collection's paginator and adds its pagination links. Links
// are set rather than added so that repeated injection doesn't duplicate them. If the collection is
// empty, no links are added. If the current page is out of range, a 409 *Problem is returned and the
// links are left as they are.
func (PaginationInjector) InjectPaginationLinks(c *Collection) error {
	p, ok := c.Paginator()
	if !ok {
		return nil
	}

	p.SetItemCountPerPage(c.PageSize)
	p.SetCurrentPageNumber(c.Page)

	pageCount, err := p.PageCount()
	if err != nil {
		return errors.Wrap(err, "error counting pages")
	}
	if pageCount == 0 {
		return nil
	}

	page := c.Page
	if page < 1 || page > pageCount {
		return NewProblem(http.StatusConflict, "Invalid page provided")
	}

	if c.Route == "" {
		return nil
	}

	links := c.Links()
	add := func(rel string, page int) {
		links.Set(link.NewRoute(rel, c.Route, maps.Clone(c.RouteParams), pageOptions(c.RouteOptions, page)))
	}
	add("self", page)
	add("first", 1)
	add("last", pageCount)
	if page > 1 {
		add("prev", page-1)
	} else {
		links.Remove("prev")
	}
	if page < pageCount {
		add("next", page+1)
	} else {
		links.Remove("next")
	}
	return nil
}

func pageOptions(options map[string]any, page int) map[string]any {
	ret := maps.Clone(options)
	if ret == nil {
		ret = map[string]any{}
	}
	query := map[string]any{}
	switch q := ret["query"].(type) {
	case map[string]any:
		maps.Copy(query, q)
	case map[string]string:
		for k, v := range q {
			query[k] = v
		}
	}
	query["page"] = page
	ret["query"] = query
	return ret
}
