package metadata

import (
	"reflect"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Base struct {
	ID string
}

type Derived struct {
	Base
	Name string
}

type DoublyDerived struct {
	*Derived
}

type Unrelated struct {
	Name string
}

type classified map[string]any

func (c classified) HALClass() string {
	return c["class"].(string)
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "metadata.Base", ClassName(reflect.TypeOf(Base{})))
	assert.Equal(t, "metadata.Base", ClassName(reflect.TypeOf(&Base{})))
	assert.Equal(t, "string", ClassName(reflect.TypeOf("")))
	assert.Equal(t, "", ClassName(reflect.TypeOf(map[string]any{})))
	assert.Equal(t, "", ClassName(nil))

	assert.Equal(t, "metadata.Derived", ClassOf(&Derived{}))
	assert.Equal(t, "Product", ClassOf(classified{"class": "Product"}))
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"metadata.Derived", "metadata.Base"}, Ancestors(reflect.TypeOf(&DoublyDerived{})))
	assert.Empty(t, Ancestors(reflect.TypeOf(Unrelated{})))
}

func TestMap_LazyMaterialization(t *testing.T) {
	m, err := NewMap(map[string]any{
		"metadata.Base": map[string]any{
			"route_name":             "base",
			"entity_identifier_name": "ID",
			"max_depth":              float64(2),
			"links": []any{
				map[string]any{"rel": "describedby", "url": "http://example.com/docs"},
			},
		},
		"metadata.Unrelated": map[string]any{
			"route_name": 5,
		},
	})
	require.NoError(t, err)

	assert.True(t, m.Has(&Derived{}))
	assert.True(t, m.Has(Unrelated{}))
	assert.False(t, m.Has(map[string]any{}))

	md, err := m.Get(&Derived{})
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "metadata.Base", md.Class)
	assert.Equal(t, "base", md.Route)
	assert.Equal(t, "ID", md.EntityIdentifierName)
	assert.Equal(t, DefaultIdentifierName, md.RouteIdentifierName)
	assert.Equal(t, DefaultCollectionName, md.CollectionName)
	assert.True(t, md.ForceSelfLink)
	require.NotNil(t, md.MaxDepth)
	assert.Equal(t, 2, *md.MaxDepth)

	links, err := md.BuildLinks()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "describedby", links[0].Relation())

	md2, err := m.Get(&DoublyDerived{})
	require.NoError(t, err)
	assert.Same(t, md, md2)

	// malformed entries are reported when they're used
	_, err = m.Get(Unrelated{})
	assert.Error(t, err)

	md, err = m.Get("foo")
	assert.NoError(t, err)
	assert.Nil(t, md)
}

func TestMap_Register(t *testing.T) {
	m, err := NewMap(nil)
	require.NoError(t, err)

	md, err := m.Get(&Derived{})
	require.NoError(t, err)
	assert.Nil(t, md)

	m.Register(&Metadata{Class: "metadata.Derived", Route: "derived"})
	md, err = m.Get(&Derived{})
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "derived", md.Route)

	m.Register(&Metadata{Class: "Product", Route: "products"})
	md, err = m.Get(classified{"class": "Product"})
	require.NoError(t, err)
	assert.Equal(t, "products", md.Route)
}

func TestNewMap_InvalidEntry(t *testing.T) {
	_, err := NewMap(map[string]any{"foo": "bar"})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	md, err := FromConfig("Users", map[string]any{
		"is_collection":        true,
		"route_name":           "users",
		"route_params":         map[string]any{"version": 2},
		"entity_route_name":    "users/user",
		"entity_route_options": map[string]any{"reuse_matched_params": false},
		"collection_name":      "users",
		"force_self_link":      false,
		"hydrator":             "reflection",
	})
	require.NoError(t, err)
	assert.True(t, md.IsCollection)
	assert.Equal(t, "users", md.Route)
	assert.Equal(t, map[string]any{"version": 2}, md.RouteParams)
	assert.Equal(t, "users/user", md.EntityRoute)
	assert.Equal(t, map[string]any{"reuse_matched_params": false}, md.EntityRouteOptions)
	assert.Equal(t, "users", md.CollectionName)
	assert.False(t, md.ForceSelfLink)
	assert.Equal(t, "reflection", md.Hydrator)
	assert.Nil(t, md.MaxDepth)

	for name, raw := range map[string]map[string]any{
		"RouteAndURL":   {"route_name": "a", "url": "http://example.com"},
		"BadMaxDepth":   {"max_depth": 1.5},
		"NegativeDepth": {"max_depth": -1},
		"BadLinks":      {"links": "foo"},
		"BadLink":       {"links": []any{map[string]any{"rel": "self"}}},
		"BadBool":       {"is_collection": "yes"},
		"BadParams":     {"route_params": []any{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromConfig("Foo", raw)
			assert.Error(t, err)
		})
	}
}

func TestMap_Concurrency(t *testing.T) {
	raw := map[string]any{}
	for _, class := range []string{"metadata.Base", "metadata.Unrelated"} {
		raw[class] = map[string]any{"route_name": class}
	}
	m, err := NewMap(raw)
	require.NoError(t, err)

	values := []any{&Base{}, &Derived{}, &DoublyDerived{}, Unrelated{}}
	results := make([][]*Metadata, runtime.GOMAXPROCS(0)*4)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for _, v := range values {
				md, err := m.Get(v)
				if err == nil {
					results[i] = append(results[i], md)
				}
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Len(t, r, len(values))
		assert.Same(t, results[0][0], r[0])
		assert.Same(t, results[0][0], r[1])
		assert.Same(t, results[0][0], r[2])
		assert.Same(t, results[0][3], r[3])
	}
}
