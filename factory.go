package halfu

import (
	"maps"

	"github.com/pkg/errors"

	"github.com/ccbrown/hal-fu/hydrator"
	"github.com/ccbrown/hal-fu/link"
	"github.com/ccbrown/hal-fu/metadata"
)

// ResourceFactory creates entities and collections from domain values using their metadata.
type ResourceFactory struct {
	// If given, this is consulted before the identifier field of the extracted data.
	ResolveIdentifier func(v any, data map[string]any) (any, bool)
}

// FromMetadata creates a *Collection if the metadata describes a collection and an *Entity
// otherwise.
func (f *ResourceFactory) FromMetadata(v any, md *metadata.Metadata, extractor *hydrator.EntityExtractor) (Resource, error) {
	if md.IsCollection {
		return f.CollectionFromMetadata(v, md)
	}
	return f.EntityFromMetadata(v, md, extractor)
}

// EntityFromMetadata creates an entity with the metadata's static links and, unless disabled, a
// self link. ErrNoIdentifier is returned if the metadata names an identifier field that can't be
// found.
func (f *ResourceFactory) EntityFromMetadata(v any, md *metadata.Metadata, extractor *hydrator.EntityExtractor) (*Entity, error) {
	if !isEntityValue(v) {
		return nil, errors.Wrapf(ErrInvalidEntity, "cannot wrap %T", v)
	}

	data, err := extractor.Extract(v)
	if err != nil {
		return nil, err
	}

	id, ok := f.identifier(v, data, md.EntityIdentifierName)
	if !ok && md.EntityIdentifierName != "" {
		return nil, errors.Wrapf(ErrNoIdentifier, "no %q field for %v", md.EntityIdentifierName, md.Class)
	}

	e, err := NewEntity(v, id)
	if err != nil {
		return nil, err
	}

	if err := addMetadataLinks(e.Links(), md); err != nil {
		return nil, err
	}

	if md.ForceSelfLink && !e.Links().Has("self") && md.HasRoute() {
		self, err := selfLinkFromMetadata(md, id, md.RouteIdentifierName)
		if err != nil {
			return nil, err
		}
		e.Links().Add(self)
	}

	return e, nil
}

// CollectionFromMetadata creates a collection configured with the metadata's routes, names and
// links.
func (f *ResourceFactory) CollectionFromMetadata(v any, md *metadata.Metadata) (*Collection, error) {
	c, err := NewCollection(v)
	if err != nil {
		return nil, err
	}
	c.CollectionName = md.CollectionName
	c.Route = md.Route
	c.RouteParams = maps.Clone(md.RouteParams)
	c.RouteOptions = maps.Clone(md.RouteOptions)
	c.EntityRoute = md.EntityRoute
	c.EntityRouteParams = maps.Clone(md.EntityRouteParams)
	c.EntityRouteOptions = maps.Clone(md.EntityRouteOptions)
	c.RouteIdentifierName = md.RouteIdentifierName
	c.EntityIdentifierName = md.EntityIdentifierName

	if err := addMetadataLinks(c.Links(), md); err != nil {
		return nil, err
	}

	if md.ForceSelfLink && !c.Links().Has("self") && md.HasRoute() {
		self, err := selfLinkFromMetadata(md, nil, "")
		if err != nil {
			return nil, err
		}
		c.Links().Add(self)
	}

	return c, nil
}

func (f *ResourceFactory) identifier(v any, data map[string]any, field string) (any, bool) {
	if f.ResolveIdentifier != nil {
		if id, ok := f.ResolveIdentifier(v, data); ok && id != nil {
			return id, true
		}
	}
	if field == "" {
		return nil, false
	}
	if id, ok := data[field]; ok && id != nil {
		return id, true
	}
	return nil, false
}

func addMetadataLinks(links *link.Collection, md *metadata.Metadata) error {
	static, err := md.BuildLinks()
	if err != nil {
		return err
	}
	for _, l := range static {
		links.Add(l)
	}
	return nil
}

func selfLinkFromMetadata(md *metadata.Metadata, id any, routeIdentifier string) (*link.Link, error) {
	if md.URL != "" {
		return link.NewURL("self", md.URL)
	}
	params := maps.Clone(md.RouteParams)
	if id != nil {
		if params == nil {
			params = map[string]any{}
		}
		params[routeIdentifier] = id
	}
	return link.NewRoute("self", md.Route, params, maps.Clone(md.RouteOptions)), nil
}
