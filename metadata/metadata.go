// Package metadata describes how domain classes map to HAL resources.
package metadata

import (
	"math"

	"github.com/pkg/errors"
	"github.com/stretchr/objx"

	"github.com/ccbrown/hal-fu/link"
)

const (
	DefaultIdentifierName = "id"
	DefaultCollectionName = "items"
)

// Metadata describes how values of one class are rendered.
type Metadata struct {
	Class        string
	IsCollection bool

	// The name of the hydrator used to extract fields from values of the class.
	Hydrator string

	// The route (or URL) used for the resource's self link.
	Route        string
	RouteParams  map[string]any
	RouteOptions map[string]any
	URL          string

	// RouteIdentifierName is the route parameter the identifier is passed as.
	RouteIdentifierName string

	// EntityIdentifierName is the field holding the identifier.
	EntityIdentifierName string

	// For collections, the route used for the items' self links.
	EntityRoute        string
	EntityRouteParams  map[string]any
	EntityRouteOptions map[string]any
	CollectionName     string

	// Static link definitions. See link.FromDefinition for the format.
	Links []map[string]any

	// If non-nil, nested resources deeper than this are rendered as links only.
	MaxDepth *int

	ForceSelfLink bool
}

// New returns metadata for the class with everything else defaulted.
func New(class string) *Metadata {
	return &Metadata{
		Class:                class,
		RouteIdentifierName:  DefaultIdentifierName,
		EntityIdentifierName: DefaultIdentifierName,
		CollectionName:       DefaultCollectionName,
		ForceSelfLink:        true,
	}
}

// HasRoute reports whether the metadata can produce a self link.
func (md *Metadata) HasRoute() bool {
	return md.Route != "" || md.URL != ""
}

// BuildLinks creates fresh links from the static link definitions.
func (md *Metadata) BuildLinks() ([]*link.Link, error) {
	ret := make([]*link.Link, 0, len(md.Links))
	for _, def := range md.Links {
		l, err := link.FromDefinition(def)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid link for %v", md.Class)
		}
		ret = append(ret, l)
	}
	return ret, nil
}

// FromConfig materializes metadata from a raw configuration entry.
func FromConfig(class string, raw map[string]any) (*Metadata, error) {
	md := New(class)
	m := objx.New(raw)

	var err error
	str := func(key string, dest *string) {
		v := m.Get(key)
		if err != nil || v.IsNil() {
			return
		}
		if !v.IsStr() {
			err = errors.Errorf("%v must be a string", key)
			return
		}
		*dest = v.Str()
	}
	msi := func(key string, dest *map[string]any) {
		v := m.Get(key)
		if err != nil || v.IsNil() {
			return
		}
		switch {
		case v.IsObjxMap():
			*dest = v.ObjxMap()
		case v.IsMSI():
			*dest = v.MSI()
		default:
			err = errors.Errorf("%v must be a map", key)
		}
	}
	boolean := func(key string, dest *bool) {
		v := m.Get(key)
		if err != nil || v.IsNil() {
			return
		}
		if !v.IsBool() {
			err = errors.Errorf("%v must be a boolean", key)
			return
		}
		*dest = v.Bool()
	}

	boolean("is_collection", &md.IsCollection)
	str("hydrator", &md.Hydrator)
	str("route_name", &md.Route)
	msi("route_params", &md.RouteParams)
	msi("route_options", &md.RouteOptions)
	str("url", &md.URL)
	str("route_identifier_name", &md.RouteIdentifierName)
	str("entity_identifier_name", &md.EntityIdentifierName)
	str("entity_route_name", &md.EntityRoute)
	msi("entity_route_params", &md.EntityRouteParams)
	msi("entity_route_options", &md.EntityRouteOptions)
	str("collection_name", &md.CollectionName)
	boolean("force_self_link", &md.ForceSelfLink)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid metadata for %v", class)
	}

	if v := m.Get("max_depth"); !v.IsNil() {
		n, ok := toInt(v.Data())
		if !ok || n < 0 {
			return nil, errors.Errorf("invalid metadata for %v: max_depth must be a non-negative integer", class)
		}
		md.MaxDepth = &n
	}

	if v := m.Get("links"); !v.IsNil() {
		links, err := linkDefinitions(v.Data())
		if err != nil {
			return nil, errors.Wrapf(err, "invalid metadata for %v", class)
		}
		md.Links = links
		if _, err := md.BuildLinks(); err != nil {
			return nil, err
		}
	}

	if md.Route != "" && md.URL != "" {
		return nil, errors.Errorf("invalid metadata for %v: route_name and url are mutually exclusive", class)
	}

	return md, nil
}

func linkDefinitions(v any) ([]map[string]any, error) {
	switch v := v.(type) {
	case []map[string]any:
		return v, nil
	case []any:
		ret := make([]map[string]any, 0, len(v))
		for _, item := range v {
			switch item := item.(type) {
			case map[string]any:
				ret = append(ret, item)
			case objx.Map:
				ret = append(ret, item)
			default:
				return nil, errors.New("links must be a list of maps")
			}
		}
		return ret, nil
	}
	return nil, errors.New("links must be a list of maps")
}

func toInt(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		return toInt(float64(v))
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}
