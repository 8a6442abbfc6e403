// Package link implements HAL link objects, relation collections and their conversion into the
// `_links` wire shape.
package link

import (
	"net/url"

	"github.com/pkg/errors"
)

// DomainError indicates a malformed, incomplete or conflicting link.
type DomainError struct {
	Message string
}

func (err *DomainError) Error() string {
	return err.Message
}

func domainError(format string, args ...any) error {
	return errors.WithStack(&DomainError{
		Message: errors.Errorf(format, args...).Error(),
	})
}

// Computed is a route parameter whose value is computed from the subject of the link (the domain
// value of the resource being rendered) when the link's URL is built.
type Computed func(subject any) any

// Link is a single hypermedia relation. It points at either an absolute URL or a named route, never
// both.
type Link struct {
	relations    []string
	url          string
	route        string
	routeParams  map[string]any
	routeOptions map[string]any
	props        map[string]any
}

// New creates a link for the given relation. Additional relations may be given if the same link
// serves several roles.
func New(relation string, more ...string) *Link {
	return &Link{
		relations: append([]string{relation}, more...),
	}
}

// NewURL is a convenience for creating a URL-based link.
func NewURL(relation, href string) (*Link, error) {
	l := New(relation)
	if err := l.SetURL(href); err != nil {
		return nil, err
	}
	return l, nil
}

// NewRoute is a convenience for creating a route-based link.
func NewRoute(relation, route string, params, options map[string]any) *Link {
	l := New(relation)
	l.route = route
	l.routeParams = params
	l.routeOptions = options
	return l
}

// Relation returns the primary relation of the link, or "" for a link that wasn't created with New.
func (l *Link) Relation() string {
	if len(l.relations) == 0 {
		return ""
	}
	return l.relations[0]
}

// Relations returns all relations the link represents.
func (l *Link) Relations() []string {
	return l.relations
}

// SetURL sets an absolute URL. It is an error to do so if the link already has a route.
func (l *Link) SetURL(href string) error {
	if l.route != "" {
		return domainError("route already set for %q link; cannot set url", l.Relation())
	}
	if _, err := url.Parse(href); err != nil || href == "" {
		return domainError("received invalid url %q for %q link", href, l.Relation())
	}
	l.url = href
	return nil
}

// SetRoute sets the route name along with its parameters and options. It is an error to do so if
// the link already has a URL.
func (l *Link) SetRoute(route string, params, options map[string]any) error {
	if l.url != "" {
		return domainError("url already set for %q link; cannot set route", l.Relation())
	}
	l.route = route
	if params != nil {
		l.routeParams = params
	}
	if options != nil {
		l.routeOptions = options
	}
	return nil
}

// SetRouteParams replaces the route parameters. Values may be literals or Computed functions.
func (l *Link) SetRouteParams(params map[string]any) error {
	if l.url != "" {
		return domainError("url already set for %q link; cannot set route params", l.Relation())
	}
	l.routeParams = params
	return nil
}

// SetRouteOptions replaces the route options.
func (l *Link) SetRouteOptions(options map[string]any) error {
	if l.url != "" {
		return domainError("url already set for %q link; cannot set route options", l.Relation())
	}
	l.routeOptions = options
	return nil
}

// SetProps sets arbitrary attributes that are rendered alongside the href.
func (l *Link) SetProps(props map[string]any) {
	l.props = props
}

func (l *Link) URL() string {
	return l.url
}

func (l *Link) Route() string {
	return l.route
}

func (l *Link) RouteParams() map[string]any {
	return l.routeParams
}

func (l *Link) RouteOptions() map[string]any {
	return l.routeOptions
}

func (l *Link) Props() map[string]any {
	return l.props
}

func (l *Link) HasURL() bool {
	return l.url != ""
}

func (l *Link) HasRoute() bool {
	return l.route != ""
}

// IsComplete reports whether the link has enough information to be rendered.
func (l *Link) IsComplete() bool {
	return l.HasURL() || l.HasRoute()
}

// Clone returns a shallow copy of the link. Maps are copied so that mutating the clone's params,
// options or props doesn't affect the original.
func (l *Link) Clone() *Link {
	return &Link{
		relations:    append([]string(nil), l.relations...),
		url:          l.url,
		route:        l.route,
		routeParams:  copyMap(l.routeParams),
		routeOptions: copyMap(l.routeOptions),
		props:        copyMap(l.props),
	}
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	ret := make(map[string]any, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
