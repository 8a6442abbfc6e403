package link

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_URLAndRouteAreExclusive(t *testing.T) {
	l := New("self")
	require.NoError(t, l.SetURL("http://example.com/foo"))
	assert.True(t, l.IsComplete())

	var domainErr *DomainError
	assert.True(t, errors.As(l.SetRoute("foo", nil, nil), &domainErr))
	assert.True(t, errors.As(l.SetRouteParams(map[string]any{"id": 1}), &domainErr))
	assert.True(t, errors.As(l.SetRouteOptions(map[string]any{"query": "x"}), &domainErr))

	l = New("self")
	require.NoError(t, l.SetRoute("foo", map[string]any{"id": 1}, nil))
	assert.True(t, l.IsComplete())
	assert.True(t, errors.As(l.SetURL("http://example.com"), &domainErr))
	assert.Equal(t, map[string]any{"id": 1}, l.RouteParams())
}

func TestLink_InvalidURL(t *testing.T) {
	_, err := NewURL("self", "http://[::1")
	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))

	_, err = NewURL("self", "")
	assert.True(t, errors.As(err, &domainErr))
}

func TestLink_Incomplete(t *testing.T) {
	assert.False(t, New("self").IsComplete())
}

func TestLink_ZeroValue(t *testing.T) {
	l := &Link{}
	assert.Equal(t, "", l.Relation())
	assert.Empty(t, l.Relations())
	assert.False(t, l.IsComplete())

	c := NewCollection(l)
	assert.Equal(t, 0, c.Len())
}

func TestCollection_NilLinks(t *testing.T) {
	self := New("self")
	c := NewCollection(nil, self, nil)
	assert.Equal(t, []string{"self"}, c.Relations())

	c.Add(nil)
	c.Set(nil)
	assert.Equal(t, 1, c.Len())
	assert.Same(t, self, c.Get("self"))
}

func TestLink_Clone(t *testing.T) {
	l := NewRoute("self", "foo", map[string]any{"id": 1}, map[string]any{"query": map[string]any{"page": 1}})
	c := l.Clone()
	c.RouteParams()["id"] = 2
	assert.Equal(t, 1, l.RouteParams()["id"])
	assert.Equal(t, "foo", c.Route())
}

func TestCollection_Aggregation(t *testing.T) {
	c := NewCollection()
	a, _ := NewURL("item", "http://example.com/a")
	b, _ := NewURL("item", "http://example.com/b")
	c.Add(a)
	c.Add(b)
	assert.Equal(t, 1, c.Len())
	assert.Len(t, c.GetAll("item"), 2)
	assert.Same(t, a, c.Get("item"))

	self, _ := NewURL("self", "http://example.com/self")
	c.Add(self)
	assert.Equal(t, []string{"item", "self"}, c.Relations())

	c.Set(b)
	assert.Equal(t, []*Link{b}, c.GetAll("item"))
	assert.Equal(t, []string{"item", "self"}, c.Relations())
}

func TestCollection_MultipleRelations(t *testing.T) {
	l, _ := NewURL("self", "http://example.com")
	l2 := New("self", "canonical")
	require.NoError(t, l2.SetURL("http://example.com/canonical"))

	c := NewCollection(l2)
	assert.True(t, c.Has("self"))
	assert.True(t, c.Has("canonical"))
	assert.Same(t, l2, c.Get("canonical"))

	c.Set(l)
	assert.Same(t, l, c.Get("self"))
	assert.Same(t, l2, c.Get("canonical"))
}

func TestCollection_Remove(t *testing.T) {
	a, _ := NewURL("a", "http://example.com/a")
	b, _ := NewURL("b", "http://example.com/b")
	c := NewCollection(a, b)
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.False(t, c.Has("a"))
	assert.Nil(t, c.Get("a"))
	assert.Equal(t, []string{"b"}, c.Relations())
}

func TestCollection_CloneAndMerge(t *testing.T) {
	a, _ := NewURL("a", "http://example.com/a")
	c := NewCollection(a)
	clone := c.Clone()
	b, _ := NewURL("b", "http://example.com/b")
	clone.Add(b)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, clone.Len())

	c.Merge(clone)
	assert.Equal(t, []string{"a", "b"}, c.Relations())
	assert.Len(t, c.GetAll("a"), 2)

	var rels []string
	for rel := range c.All() {
		rels = append(rels, rel)
		break
	}
	assert.Equal(t, []string{"a"}, rels)
}

func TestFromDefinition(t *testing.T) {
	l, err := FromDefinition(map[string]any{
		"rel": "author",
		"route": map[string]any{
			"name":    "users/user",
			"params":  map[string]any{"id": 1},
			"options": map[string]any{"reuse_matched_params": false},
		},
		"props": map[string]any{"title": "Author"},
	})
	require.NoError(t, err)
	assert.Equal(t, "author", l.Relation())
	assert.Equal(t, "users/user", l.Route())
	assert.Equal(t, map[string]any{"id": 1}, l.RouteParams())
	assert.Equal(t, map[string]any{"reuse_matched_params": false}, l.RouteOptions())
	assert.Equal(t, map[string]any{"title": "Author"}, l.Props())

	l, err = FromDefinition(map[string]any{
		"rel": []any{"describedby", "help"},
		"url": "http://example.com/docs",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"describedby", "help"}, l.Relations())
	assert.Equal(t, "http://example.com/docs", l.URL())

	l, err = FromDefinition(map[string]any{"rel": "up", "route": "users"})
	require.NoError(t, err)
	assert.Equal(t, "users", l.Route())

	for name, def := range map[string]map[string]any{
		"MissingRel":       {"url": "http://example.com"},
		"MissingTarget":    {"rel": "self"},
		"URLAndRoute":      {"rel": "self", "url": "http://example.com", "route": "foo"},
		"RouteNoName":      {"rel": "self", "route": map[string]any{"params": map[string]any{}}},
		"BadRouteType":     {"rel": "self", "route": 5},
		"BadPropsType":     {"rel": "self", "url": "http://example.com", "props": "x"},
		"NonStringRelItem": {"rel": []any{"a", 1}, "url": "http://example.com"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromDefinition(def)
			var domainErr *DomainError
			assert.True(t, errors.As(err, &domainErr))
		})
	}
}
