package halfu

import (
	"github.com/ccbrown/hal-fu/document"
)

// Hooks are invoked while resources are rendered. Any of the functions may be nil. Returning an
// error aborts the render.
type Hooks struct {
	// Invoked before an entity is rendered. The entity's links may be modified.
	PreRenderEntity func(e *Entity) error

	// Invoked with the rendered entity. The document may be modified.
	PostRenderEntity func(e *Entity, d *document.Document) error

	PreRenderCollection  func(c *Collection) error
	PostRenderCollection func(c *Collection, d *document.Document) error

	// Invoked for each item of a collection before it's rendered. The event's entity, route, route
	// params and route options may be replaced.
	CollectionEntity func(event *CollectionEntityEvent) error

	// Computes the identifier of a domain value. The first hook to return true wins. If none do,
	// the identifier field of the extracted data is used.
	ResolveIdentifier func(v any, data map[string]any) (any, bool)
}

// CollectionEntityEvent describes an item about to be rendered as part of a collection.
type CollectionEntityEvent struct {
	Collection *Collection

	// The item. This may be a domain value, a map or an *Entity.
	Entity any

	// The route, params and options used for the item's self link if it doesn't have one.
	Route        string
	RouteParams  map[string]any
	RouteOptions map[string]any
}
