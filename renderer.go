package halfu

import (
	"maps"
	"reflect"
	"slices"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ccbrown/hal-fu/document"
	"github.com/ccbrown/hal-fu/hydrator"
	"github.com/ccbrown/hal-fu/link"
	"github.com/ccbrown/hal-fu/metadata"
)

// Renderer renders entities and collections as HAL documents. It is safe for concurrent use.
type Renderer struct {
	config      Config
	logger      logrus.FieldLogger
	metadataMap *metadata.Map
	hydrators   *hydrator.Manager
	links       *link.Extractor
	factory     *ResourceFactory
	selfLinks   SelfLinkInjector
	pagination  PaginationInjector
}

// NewRenderer validates the configuration and creates a renderer.
func NewRenderer(cfg *Config) (*Renderer, error) {
	metadataMap := cfg.MetadataMap
	if metadataMap == nil {
		metadataMap, _ = metadata.NewMap(nil)
	}

	hydrators, err := hydrator.NewManager(cfg.Hydrators, metadataMap, cfg.DefaultHydrator, cfg.ClassHydrators)
	if err != nil {
		return nil, errors.Wrap(err, "error building hydrator manager")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := &Renderer{
		config:      *cfg,
		logger:      logger,
		metadataMap: metadataMap,
		hydrators:   hydrators,
		links: &link.Extractor{
			URLBuilder: &link.URLBuilder{
				Router:    cfg.Router,
				ServerURL: cfg.ServerURL,
			},
		},
	}
	r.factory = &ResourceFactory{
		ResolveIdentifier: r.hookIdentifier,
	}
	return r, nil
}

// WithURLBuilder returns a copy of the renderer that builds route links with the given builder.
// This is typically used to build links relative to an incoming request.
func (r *Renderer) WithURLBuilder(b *link.URLBuilder) *Renderer {
	ret := *r
	ret.links = &link.Extractor{
		URLBuilder: b,
	}
	return &ret
}

// MetadataMap returns the metadata used by the renderer.
func (r *Renderer) MetadataMap() *metadata.Map {
	return r.metadataMap
}

// state is scoped to one top-level render.
type state struct {
	extractor *hydrator.EntityExtractor
	visited   map[any]struct{}
	path      []string
}

func (r *Renderer) newState() *state {
	return &state{
		extractor: hydrator.NewEntityExtractor(r.hydrators),
		visited:   map[any]struct{}{},
	}
}

// enter records the value as being rendered. If it's already being rendered further up the tree,
// a *CircularReferenceError is returned. Otherwise the returned function must be called once the
// value's subtree is done.
func (s *state) enter(value any) (func(), error) {
	key, ok := hydrator.Identity(value)
	if !ok {
		return func() {}, nil
	}
	class := metadata.ClassOf(value)
	if _, ok := s.visited[key]; ok {
		return nil, errors.WithStack(&CircularReferenceError{
			Class: class,
			Path:  append(slices.Clone(s.path), class),
		})
	}
	s.visited[key] = struct{}{}
	s.path = append(s.path, class)
	return func() {
		delete(s.visited, key)
		s.path = s.path[:len(s.path)-1]
	}, nil
}

// CreateEntity wraps a domain value in an entity. If the value's class has metadata, the entity's
// identifier and links come from it. Otherwise the value's "id" field is used as the identifier and
// a self link to the route is added.
func (r *Renderer) CreateEntity(v any, route, routeIdentifierName string) (*Entity, error) {
	if e, ok := v.(*Entity); ok {
		r.selfLinks.InjectSelfLink(e, route, routeIdentifierName)
		return e, nil
	}

	if !isEntityValue(v) {
		return nil, errors.Wrapf(ErrInvalidEntity, "cannot wrap %T", v)
	}

	md, err := r.metadataMap.Get(v)
	if err != nil {
		return nil, err
	}

	extractor := hydrator.NewEntityExtractor(r.hydrators)
	var e *Entity
	if md != nil {
		if e, err = r.factory.EntityFromMetadata(v, md, extractor); err != nil {
			return nil, err
		}
	} else {
		data, err := extractor.Extract(v)
		if err != nil {
			return nil, err
		}
		id, _ := r.resolveIdentifier(v, data, metadata.DefaultIdentifierName)
		if e, err = NewEntity(v, id); err != nil {
			return nil, err
		}
	}

	if md == nil || md.ForceSelfLink {
		r.selfLinks.InjectSelfLink(e, route, routeIdentifierName)
	}
	return e, nil
}

// CreateCollection wraps items in a collection. If the items' class has metadata, the collection
// is configured from it. If route is given, it's used for the collection's self link and, if the
// collection has no route yet, its pagination links.
func (r *Renderer) CreateCollection(v any, route string) (*Collection, error) {
	c, ok := v.(*Collection)
	if !ok {
		md, err := r.metadataMap.Get(v)
		if err != nil {
			return nil, err
		}
		if md != nil {
			c, err = r.factory.CollectionFromMetadata(v, md)
		} else {
			c, err = NewCollection(v)
		}
		if err != nil {
			return nil, err
		}
	}
	if c.Route == "" {
		c.Route = route
	}
	r.selfLinks.InjectSelfLink(c, route, "")
	return c, nil
}

// Render renders an *Entity, a *Collection or a domain value. Domain values are converted using
// their metadata if they have any.
func (r *Renderer) Render(v any) (*document.Document, error) {
	switch v := v.(type) {
	case *Entity:
		return r.RenderEntity(v)
	case *Collection:
		return r.RenderCollection(v)
	}

	s := r.newState()
	resource, err := r.promote(s, v)
	if err != nil {
		return nil, err
	}
	switch resource := resource.(type) {
	case *Entity:
		return r.renderEntity(s, resource, true, 0, nil, nil)
	case *Collection:
		return r.renderCollection(s, resource, 0, nil)
	}

	if isCollectionValue(v) && !isEntityValue(v) {
		c, err := r.CreateCollection(v, "")
		if err != nil {
			return nil, err
		}
		return r.renderCollection(s, c, 0, nil)
	}
	e, err := r.CreateEntity(v, "", "")
	if err != nil {
		return nil, err
	}
	return r.renderEntity(s, e, true, 0, nil, nil)
}

// RenderEntity renders the entity and everything embedded in it.
//
// If an object is encountered again while rendering its own fields, a *CircularReferenceError is
// returned. If the metadata of the entity (or the nearest ancestor resource that has metadata
// declaring one) has a max depth, resources nested deeper than it are rendered as links only and
// no error occurs.
func (r *Renderer) RenderEntity(e *Entity) (*document.Document, error) {
	if e == nil {
		return nil, errors.Wrap(ErrInvalidEntity, "cannot render a nil entity")
	}
	return r.renderEntity(r.newState(), e, true, 0, nil, nil)
}

// RenderCollection renders the collection. If the collection is paginated and the page is out of
// range, a *Problem is returned.
func (r *Renderer) RenderCollection(c *Collection) (*document.Document, error) {
	if c == nil {
		return nil, errors.Wrap(ErrInvalidCollection, "cannot render a nil collection")
	}
	return r.renderCollection(r.newState(), c, 0, nil)
}

func (r *Renderer) renderEntity(s *state, e *Entity, full bool, depth int, maxDepth *int, extraLinks *link.Collection) (*document.Document, error) {
	for _, h := range r.config.Hooks {
		if h.PreRenderEntity != nil {
			if err := h.PreRenderEntity(e); err != nil {
				return nil, err
			}
		}
	}

	value := e.Value()

	if maxDepth == nil {
		md, err := r.metadataMap.Get(value)
		if err != nil {
			return nil, err
		}
		if md != nil {
			maxDepth = md.MaxDepth
		}
	}

	if maxDepth == nil {
		leave, err := s.enter(value)
		if err != nil {
			return nil, err
		}
		defer leave()
	}

	// the entity's links are cloned so that rendering never modifies them
	links := e.Links().Clone()

	var fields map[string]any
	embedded := document.New()
	if full && (maxDepth == nil || depth <= *maxDepth) {
		data, err := s.extractor.Extract(value)
		if err != nil {
			return nil, err
		}
		fields = data

		for _, key := range sortedKeys(fields) {
			resource, err := r.promote(s, fields[key])
			if err != nil {
				return nil, errors.Wrapf(err, "error rendering %v field", key)
			}
			switch resource := resource.(type) {
			case *Entity:
				d, err := r.renderEntity(s, resource, !r.config.LinkOnlyEmbeddedEntities, depth+1, maxDepth, nil)
				if err != nil {
					return nil, err
				}
				embedded.Set(key, d)
				delete(fields, key)
			case *Collection:
				items, err := r.renderCollectionItems(s, resource, depth+1, maxDepth)
				if err != nil {
					return nil, err
				}
				embedded.Set(key, items)
				delete(fields, key)
			case *link.Link:
				addMissingRelations(links, link.NewCollection(resource))
				delete(fields, key)
			case *link.Collection:
				addMissingRelations(links, resource)
				delete(fields, key)
			}
		}
	}

	addMissingRelations(links, extraLinks)

	d, err := r.assemble(fields, links, embedded, value)
	if err != nil {
		return nil, err
	}

	for _, h := range r.config.Hooks {
		if h.PostRenderEntity != nil {
			if err := h.PostRenderEntity(e, d); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// renderCollection renders the collection at the given depth. Beyond the max depth, only the
// collection's links are rendered.
func (r *Renderer) renderCollection(s *state, c *Collection, depth int, maxDepth *int) (*document.Document, error) {
	for _, h := range r.config.Hooks {
		if h.PreRenderCollection != nil {
			if err := h.PreRenderCollection(c); err != nil {
				return nil, err
			}
		}
	}

	if err := r.pagination.InjectPaginationLinks(c); err != nil {
		return nil, err
	}

	if maxDepth == nil {
		if md, err := r.metadataMap.Get(c.Value()); err != nil {
			return nil, err
		} else if md != nil {
			maxDepth = md.MaxDepth
		}
	}

	links, err := r.links.ExtractCollection(c.Links(), c.Value())
	if err != nil {
		return nil, err
	}

	if maxDepth != nil && depth > *maxDepth {
		d := document.New()
		if links.Len() > 0 {
			d.Set("_links", links)
		}
		return d, nil
	}

	d := document.New()
	for _, k := range sortedKeys(c.Attributes) {
		d.Set(k, c.Attributes[k])
	}
	if links.Len() > 0 {
		d.Set("_links", links)
	}

	items, err := r.renderCollectionItems(s, c, depth, maxDepth)
	if err != nil {
		return nil, err
	}
	embedded := document.New()
	embedded.Set(c.CollectionName, items)
	d.Set("_embedded", embedded)

	if p, ok := c.Paginator(); ok {
		pageCount, err := p.PageCount()
		if err != nil {
			return nil, err
		}
		total, err := p.TotalItemCount()
		if err != nil {
			return nil, err
		}
		pageSize := c.PageSize
		if pageSize < 1 {
			pageSize = total
		}
		d.SetDefault("page_count", pageCount)
		d.SetDefault("page_size", pageSize)
		d.SetDefault("total_items", total)
		page := 0
		if pageCount > 0 {
			page = c.Page
		}
		d.Set("page", page)
	} else if n, ok := c.Len(); ok {
		d.SetDefault("total_items", n)
	}

	for _, h := range r.config.Hooks {
		if h.PostRenderCollection != nil {
			if err := h.PostRenderCollection(c, d); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// renderCollectionItems renders the collection's items. Items are rendered at the collection's
// depth.
func (r *Renderer) renderCollectionItems(s *state, c *Collection, depth int, maxDepth *int) ([]any, error) {
	if maxDepth == nil {
		leave, err := s.enter(c.Value())
		if err != nil {
			return nil, err
		}
		defer leave()
	}

	seq, err := c.Items()
	if err != nil {
		return nil, err
	}

	ret := []any{}
	for item := range seq {
		event := &CollectionEntityEvent{
			Collection:   c,
			Entity:       item,
			Route:        c.EntityRouteOrDefault(),
			RouteParams:  maps.Clone(c.EntityRouteParams),
			RouteOptions: maps.Clone(c.EntityRouteOptions),
		}
		for _, h := range r.config.Hooks {
			if h.CollectionEntity != nil {
				if err := h.CollectionEntity(event); err != nil {
					return nil, err
				}
			}
		}

		resource, err := r.promote(s, event.Entity)
		if err != nil {
			return nil, err
		}
		switch resource := resource.(type) {
		case *Entity:
			d, err := r.renderEntity(s, resource, !r.config.LinkOnlyCollectionEntities, depth, maxDepth, c.EntityLinks)
			if err != nil {
				return nil, err
			}
			ret = append(ret, d)
			continue
		case *Collection:
			d, err := r.renderCollection(s, resource, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			ret = append(ret, d)
			continue
		}

		if !isEntityValue(event.Entity) {
			ret = append(ret, event.Entity)
			continue
		}

		d, err := r.renderCollectionItem(s, c, event, depth, maxDepth)
		if err != nil {
			return nil, err
		}
		ret = append(ret, d)
	}
	return ret, nil
}

// renderCollectionItem renders an item that has no metadata. If an identifier can be found, the
// item gets a self link to the collection's entity route.
func (r *Renderer) renderCollectionItem(s *state, c *Collection, event *CollectionEntityEvent, depth int, maxDepth *int) (*document.Document, error) {
	fields, err := s.extractor.Extract(event.Entity)
	if err != nil {
		return nil, err
	}

	embedded := document.New()
	for _, key := range sortedKeys(fields) {
		resource, err := r.promote(s, fields[key])
		if err != nil {
			return nil, errors.Wrapf(err, "error rendering %v field", key)
		}
		switch resource := resource.(type) {
		case *Entity:
			d, err := r.renderEntity(s, resource, !r.config.LinkOnlyEmbeddedEntities, depth+1, maxDepth, nil)
			if err != nil {
				return nil, err
			}
			embedded.Set(key, d)
			delete(fields, key)
		case *Collection:
			items, err := r.renderCollectionItems(s, resource, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			embedded.Set(key, items)
			delete(fields, key)
		}
	}

	id, ok := r.resolveIdentifier(event.Entity, fields, c.EntityIdentifierName)
	if !ok {
		return r.assemble(fields, nil, embedded, event.Entity)
	}

	links := link.NewCollection()
	if lc, ok := fields["links"].(*link.Collection); ok {
		links = lc.Clone()
		delete(fields, "links")
	}
	if !links.Has("self") && event.Route != "" {
		params := maps.Clone(event.RouteParams)
		if params == nil {
			params = map[string]any{}
		}
		params[c.RouteIdentifierName] = id
		links.Set(link.NewRoute("self", event.Route, params, maps.Clone(event.RouteOptions)))
	}
	addMissingRelations(links, c.EntityLinks)

	return r.assemble(fields, links, embedded, event.Entity)
}

// assemble builds the document: fields in key order, then _links and _embedded if they aren't
// empty.
func (r *Renderer) assemble(fields map[string]any, links *link.Collection, embedded *document.Document, subject any) (*document.Document, error) {
	d := document.NewWithCapacity(len(fields) + 2)
	for _, k := range sortedKeys(fields) {
		d.Set(k, fields[k])
	}
	if links != nil && links.Len() > 0 {
		extracted, err := r.links.ExtractCollection(links, subject)
		if err != nil {
			return nil, err
		}
		d.Set("_links", extracted)
	}
	if embedded != nil && embedded.Len() > 0 {
		d.Set("_embedded", embedded)
	}
	return d, nil
}

// promote converts values whose class has metadata into entities or collections. Nil pointers,
// maps and slices yield nil. Other values are returned as-is.
func (r *Renderer) promote(s *state, v any) (any, error) {
	// typed nils, including nil resources, are never promoted
	if isNilValue(v) {
		return nil, nil
	}
	switch v.(type) {
	case nil, *Entity, *Collection, *link.Link, *link.Collection:
		return v, nil
	}
	md, err := r.metadataMap.Get(v)
	if err != nil || md == nil {
		return v, err
	}
	return r.factory.FromMetadata(v, md, s.extractor)
}

func (r *Renderer) hookIdentifier(v any, data map[string]any) (any, bool) {
	for _, h := range r.config.Hooks {
		if h.ResolveIdentifier != nil {
			if id, ok := h.ResolveIdentifier(v, data); ok && id != nil {
				return id, true
			}
		}
	}
	return nil, false
}

func (r *Renderer) resolveIdentifier(v any, data map[string]any, field string) (any, bool) {
	if id, ok := r.hookIdentifier(v, data); ok {
		return id, true
	}
	if field == "" {
		return nil, false
	}
	if id, ok := data[field]; ok && id != nil {
		return id, true
	}
	return nil, false
}

// addMissingRelations adds the links of every relation that dest doesn't already have.
func addMissingRelations(dest, src *link.Collection) {
	if src == nil {
		return
	}
	for rel, links := range src.All() {
		if dest.Has(rel) {
			continue
		}
		for _, l := range links {
			if len(l.Relations()) > 1 {
				l = withRelation(l, rel)
			}
			dest.Add(l)
		}
	}
}

// withRelation copies a link that has several relations so that it only has one.
func withRelation(l *link.Link, rel string) *link.Link {
	var ret *link.Link
	if l.HasURL() {
		ret, _ = link.NewURL(rel, l.URL())
	} else {
		ret = link.NewRoute(rel, l.Route(), l.RouteParams(), l.RouteOptions())
	}
	ret.SetProps(l.Props())
	return ret
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
