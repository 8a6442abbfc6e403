package hydrator

import (
	"maps"
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/ccbrown/hal-fu/metadata"
)

// Manager resolves the hydrator for a value's class. In order of precedence, it uses:
//
//   - hydrators registered explicitly for the class
//   - the hydrator named by the class's metadata
//   - the default hydrator
//
// Class names are matched case-insensitively. Manager is safe for concurrent use.
type Manager struct {
	registry        *Registry
	metadataMap     *metadata.Map
	defaultHydrator Hydrator

	mu             sync.Mutex
	classHydrators sync.Map
}

// NewManager creates a new manager. The default hydrator and the class hydrators are given by
// registry name. Unknown names are an error. Any of the arguments may be empty.
func NewManager(registry *Registry, metadataMap *metadata.Map, defaultName string, classHydrators map[string]string) (*Manager, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	m := &Manager{
		registry:    registry,
		metadataMap: metadataMap,
	}
	if defaultName != "" {
		h, ok := registry.Get(defaultName)
		if !ok {
			return nil, errors.Errorf("unknown default hydrator %q", defaultName)
		}
		m.defaultHydrator = h
	}
	for class, name := range classHydrators {
		h, ok := registry.Get(name)
		if !ok {
			return nil, errors.Errorf("unknown hydrator %q for %v", name, class)
		}
		m.AddHydrator(class, h)
	}
	return m, nil
}

// AddHydrator registers a hydrator for the class, taking precedence over metadata.
func (m *Manager) AddHydrator(class string, h Hydrator) {
	m.classHydrators.Store(strings.ToLower(class), h)
}

// HydratorFor returns the hydrator for the value's class, or nil if there is none.
func (m *Manager) HydratorFor(v any) (Hydrator, error) {
	class := strings.ToLower(metadata.ClassOf(v))
	if class != "" {
		if h, ok := m.classHydrators.Load(class); ok {
			return h.(Hydrator), nil
		}
	}

	if m.metadataMap != nil && class != "" {
		md, err := m.metadataMap.Get(v)
		if err != nil {
			return nil, err
		}
		if md != nil && md.Hydrator != "" {
			m.mu.Lock()
			defer m.mu.Unlock()
			if h, ok := m.classHydrators.Load(class); ok {
				return h.(Hydrator), nil
			}
			h, ok := m.registry.Get(md.Hydrator)
			if !ok {
				return nil, errors.Errorf("unknown hydrator %q for %v", md.Hydrator, md.Class)
			}
			m.classHydrators.Store(class, h)
			return h, nil
		}
	}

	return m.defaultHydrator, nil
}

// Extract returns the fields of v. If no hydrator is configured, Serializer implementations and
// maps are used as-is and structs are extracted by reflection.
func (m *Manager) Extract(v any) (map[string]any, error) {
	h, err := m.HydratorFor(v)
	if err != nil {
		return nil, err
	}
	if h != nil {
		return h.Extract(v)
	}
	if s, ok := v.(Serializer); ok {
		return maps.Clone(s.Serialize()), nil
	}
	return Reflection{}.Extract(v)
}

// Identity returns a key identifying the object v refers to. Only pointers, maps and non-empty
// slices have an identity. Slices are identified by their backing array and length.
func Identity(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return nil, false
		}
		return identity{
			typ: rv.Type(),
			ptr: rv.Pointer(),
		}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return nil, false
		}
		return identity{
			typ: rv.Type(),
			ptr: rv.Pointer(),
			len: rv.Len(),
		}, true
	}
	return nil, false
}

type identity struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// EntityExtractor memoizes extraction for the objects it has seen. It is meant to live for one
// render and is safe for concurrent use.
type EntityExtractor struct {
	manager *Manager

	mu   sync.Mutex
	memo map[any]map[string]any
}

func NewEntityExtractor(m *Manager) *EntityExtractor {
	return &EntityExtractor{
		manager: m,
		memo:    map[any]map[string]any{},
	}
}

// Extract returns a copy of the fields of v.
func (e *EntityExtractor) Extract(v any) (map[string]any, error) {
	key, ok := Identity(v)
	if ok {
		e.mu.Lock()
		data, found := e.memo[key]
		e.mu.Unlock()
		if found {
			return maps.Clone(data), nil
		}
	}

	data, err := e.manager.Extract(v)
	if err != nil {
		return nil, errors.Wrapf(err, "error extracting %T", v)
	}

	if ok {
		e.mu.Lock()
		e.memo[key] = data
		e.mu.Unlock()
	}
	return maps.Clone(data), nil
}
