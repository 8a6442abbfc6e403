// Package hydrator extracts the fields of domain values for rendering.
package hydrator

import (
	"reflect"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Hydrator converts between domain values and field maps.
type Hydrator interface {
	// Extract returns the fields of v. Implementations must return a map the caller owns.
	Extract(v any) (map[string]any, error)

	// Hydrate populates v from data and returns it.
	Hydrate(data map[string]any, v any) (any, error)
}

// Serializer can be implemented by domain values that know how to represent themselves. It's used
// when no hydrator is configured for the value's class.
type Serializer interface {
	Serialize() map[string]any
}

// Reflection extracts exported struct fields, honoring json tags and flattening embedded structs.
// Maps with string keys are copied.
type Reflection struct{}

var _ Hydrator = Reflection{}

func (Reflection) Extract(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, errors.New("cannot extract fields from nil")
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		ret := map[string]any{}
		extractStruct(rv, ret)
		return ret, nil
	case reflect.Map:
		return copyMapValue(rv)
	}
	return nil, errors.Errorf("cannot extract fields from %v", rv.Type())
}

func (Reflection) Hydrate(data map[string]any, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("cannot hydrate %T; a non-nil struct pointer is required", v)
	}
	fields := map[string]reflect.Value{}
	structFields(rv.Elem(), fields)
	for k, value := range data {
		f, ok := fields[k]
		if !ok || !f.CanSet() {
			continue
		}
		if value == nil {
			f.Set(reflect.Zero(f.Type()))
			continue
		}
		dv := reflect.ValueOf(value)
		switch {
		case dv.Type().AssignableTo(f.Type()):
			f.Set(dv)
		case dv.Type().ConvertibleTo(f.Type()) && dv.Kind() != reflect.String && f.Kind() != reflect.String:
			f.Set(dv.Convert(f.Type()))
		default:
			return nil, errors.Errorf("cannot assign %T to %v field", value, k)
		}
	}
	return v, nil
}

func fieldName(f reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag, ok := f.Tag.Lookup("json")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	if ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				omitEmpty = true
			}
		}
	}
	return name, omitEmpty, false
}

func isFlattened(f reflect.StructField) bool {
	if !f.Anonymous {
		return false
	}
	if tag := f.Tag.Get("json"); tag != "" && strings.Split(tag, ",")[0] != "" {
		return false
	}
	t := f.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func extractStruct(rv reflect.Value, dest map[string]any) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := rv.Field(i)
		if isFlattened(f) {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			// outer fields win over promoted ones
			inner := map[string]any{}
			extractStruct(fv, inner)
			for k, v := range inner {
				if _, ok := dest[k]; !ok {
					dest[k] = v
				}
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		name, omitEmpty, skip := fieldName(f)
		if skip || (omitEmpty && fv.IsZero()) {
			continue
		}
		dest[name] = fv.Interface()
	}
}

func structFields(rv reflect.Value, dest map[string]reflect.Value) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := rv.Field(i)
		if isFlattened(f) {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			structFields(fv, dest)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name, _, skip := fieldName(f); !skip {
			dest[name] = fv
		}
	}
}

func copyMapValue(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, errors.Errorf("cannot extract fields from %v; keys must be strings", rv.Type())
	}
	ret := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		ret[iter.Key().String()] = iter.Value().Interface()
	}
	return ret, nil
}

// JSON round trips values through their JSON encoding. Use it for types with custom JSON
// marshalers.
type JSON struct {
	API jsoniter.API
}

var _ Hydrator = JSON{}

func (h JSON) api() jsoniter.API {
	if h.API != nil {
		return h.API
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary
}

func (h JSON) Extract(v any) (map[string]any, error) {
	buf, err := h.api().Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "error marshaling %T", v)
	}
	var ret map[string]any
	if err := h.api().Unmarshal(buf, &ret); err != nil {
		return nil, errors.Wrapf(err, "%T does not marshal to a JSON object", v)
	}
	return ret, nil
}

func (h JSON) Hydrate(data map[string]any, v any) (any, error) {
	buf, err := h.api().Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling data")
	}
	if err := h.api().Unmarshal(buf, v); err != nil {
		return nil, errors.Wrapf(err, "error unmarshaling into %T", v)
	}
	return v, nil
}

// Map works with maps that have string keys.
type Map struct{}

var _ Hydrator = Map{}

func (Map) Extract(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map {
		return nil, errors.Errorf("cannot extract fields from %T; a map is required", v)
	}
	return copyMapValue(rv)
}

func (Map) Hydrate(data map[string]any, v any) (any, error) {
	switch m := v.(type) {
	case *map[string]any:
		if *m == nil {
			*m = make(map[string]any, len(data))
		}
		for k, value := range data {
			(*m)[k] = value
		}
		return v, nil
	case map[string]any:
		for k, value := range data {
			m[k] = value
		}
		return v, nil
	}
	return nil, errors.Errorf("cannot hydrate %T; a string keyed map is required", v)
}

// Registry holds hydrators by name. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	hydrators map[string]Hydrator
}

// NewRegistry returns a registry containing the built-in hydrators: "reflection", "json" and
// "map".
func NewRegistry() *Registry {
	return &Registry{
		hydrators: map[string]Hydrator{
			"reflection": Reflection{},
			"json":       JSON{},
			"map":        Map{},
		},
	}
}

func (r *Registry) Register(name string, h Hydrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hydrators == nil {
		r.hydrators = map[string]Hydrator{}
	}
	r.hydrators[name] = h
}

func (r *Registry) Get(name string) (Hydrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hydrators[name]
	return h, ok
}
