package halfu

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/ccbrown/hal-fu/link"
)

// Entity is a single resource: a domain value, its identifier and its links.
type Entity struct {
	value any
	id    any
	links *link.Collection
}

// NewEntity wraps a struct, a pointer to one or a map. The identifier may be nil.
func NewEntity(value any, id any) (*Entity, error) {
	if !isEntityValue(value) {
		return nil, errors.Wrapf(ErrInvalidEntity, "cannot wrap %T", value)
	}
	return &Entity{
		value: value,
		id:    id,
	}, nil
}

func isEntityValue(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return true
	case reflect.Map:
		return !rv.IsNil() && rv.Type().Key().Kind() == reflect.String
	}
	return false
}

// Value returns the wrapped domain value.
func (e *Entity) Value() any {
	return e.value
}

// ID returns the identifier, which may be nil.
func (e *Entity) ID() any {
	return e.id
}

// Links returns the entity's links, creating the collection if needed.
func (e *Entity) Links() *link.Collection {
	if e.links == nil {
		e.links = link.NewCollection()
	}
	return e.links
}

func (e *Entity) SetLinks(links *link.Collection) {
	e.links = links
}
