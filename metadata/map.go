package metadata

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/stretchr/objx"
)

// Classifier can be implemented by values whose class isn't their Go type. This is mostly useful
// for maps decoded from JSON or YAML.
type Classifier interface {
	HALClass() string
}

// ClassName returns the class name of a type: its package name and its name, e.g. "store.Product".
// Pointers are dereferenced. Unnamed types have no class name.
func ClassName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return ""
	}
	return t.String()
}

// ClassOf returns the class name of a value.
func ClassOf(v any) string {
	if c, ok := v.(Classifier); ok {
		return c.HALClass()
	}
	return ClassName(reflect.TypeOf(v))
}

// Ancestors returns the class names that values of the type fall back to, nearest first. A struct's
// ancestor is its first embedded struct field.
func Ancestors(t reflect.Type) []string {
	var ret []string
	for {
		t = embeddedParent(t)
		if t == nil {
			return ret
		}
		if name := ClassName(t); name != "" {
			ret = append(ret, name)
		}
	}
}

func embeddedParent(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			return ft
		}
	}
	return nil
}

// Map maps class names to metadata. Entries may be given as raw configuration, in which case
// they're materialized when first looked up. Map is safe for concurrent use.
type Map struct {
	// class name -> *Metadata
	cache sync.Map

	// reflect.Type -> *Metadata (nil if no class in the chain has metadata)
	byType sync.Map

	mu  sync.Mutex
	raw map[string]map[string]any
}

// NewMap creates a map from raw configuration entries keyed by class name. Every entry must be a
// map. Entries are otherwise validated when they're first used.
func NewMap(raw map[string]any) (*Map, error) {
	m := &Map{
		raw: make(map[string]map[string]any, len(raw)),
	}
	for class, entry := range raw {
		switch entry := entry.(type) {
		case map[string]any:
			m.raw[class] = entry
		case objx.Map:
			m.raw[class] = entry
		case *Metadata:
			m.cache.Store(class, entry)
		default:
			return nil, errors.Errorf("metadata for %v must be a map, got %T", class, entry)
		}
	}
	return m, nil
}

// Register adds or replaces metadata for its class.
func (m *Map) Register(md *Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.raw, md.Class)
	m.cache.Store(md.Class, md)
	m.byType.Clear()
}

// HasClass reports whether metadata exists for the class itself, without ancestor fallback.
func (m *Map) HasClass(class string) bool {
	if _, ok := m.cache.Load(class); ok {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.raw[class]
	return ok
}

// Has reports whether metadata exists for the value's class or any of its ancestors. It does not
// materialize raw entries.
func (m *Map) Has(v any) bool {
	if c, ok := v.(Classifier); ok {
		return m.HasClass(c.HALClass())
	}
	t := reflect.TypeOf(v)
	if name := ClassName(t); name != "" && m.HasClass(name) {
		return true
	}
	for _, name := range Ancestors(t) {
		if m.HasClass(name) {
			return true
		}
	}
	return false
}

// Get returns the metadata for the value's class, falling back through its ancestors. If no class
// in the chain has metadata, nil is returned. Errors materializing raw entries surface here.
func (m *Map) Get(v any) (*Metadata, error) {
	if c, ok := v.(Classifier); ok {
		return m.GetByName(c.HALClass())
	}

	t := reflect.TypeOf(v)
	if t == nil {
		return nil, nil
	}
	if md, ok := m.byType.Load(t); ok {
		return md.(*Metadata), nil
	}

	names := Ancestors(t)
	if name := ClassName(t); name != "" {
		names = append([]string{name}, names...)
	}
	var md *Metadata
	for _, name := range names {
		var err error
		if md, err = m.GetByName(name); err != nil {
			return nil, err
		} else if md != nil {
			break
		}
	}
	m.byType.Store(t, md)
	return md, nil
}

// GetByName returns the metadata for the class, materializing it if necessary. It returns nil if
// the class has no metadata.
func (m *Map) GetByName(class string) (*Metadata, error) {
	if md, ok := m.cache.Load(class); ok {
		return md.(*Metadata), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another goroutine may have materialized it while we waited
	if md, ok := m.cache.Load(class); ok {
		return md.(*Metadata), nil
	}

	raw, ok := m.raw[class]
	if !ok {
		return nil, nil
	}
	md, err := FromConfig(class, raw)
	if err != nil {
		return nil, err
	}
	m.cache.Store(class, md)
	delete(m.raw, class)
	return md, nil
}
