package document

import (
	"bytes"
	"encoding/json"
	"strconv"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack"
)

func TestDocumentEncoding(t *testing.T) {
	d := New()
	d.Set("foo", "bar")
	d.Set("_links", New())
	d.Set("foo2", "bar2")
	buf, err := json.Marshal(d)
	assert.NoError(t, err)
	assert.Equal(t, `{"foo":"bar","_links":{},"foo2":"bar2"}`, string(buf))
}

func TestDocumentNested(t *testing.T) {
	self := New()
	self.Set("href", "http://host/resource/foo")
	links := New()
	links.Set("self", self)

	d := New()
	d.Set("id", "foo")
	d.Set("name", "Foo")
	d.Set("_links", links)
	d.Set("list", []any{New(), 1})

	buf, err := jsoniter.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"foo","name":"Foo","_links":{"self":{"href":"http://host/resource/foo"}},"list":[{},1]}`, string(buf))
}

func TestDocumentSetReplacesInPlace(t *testing.T) {
	d := New()
	d.Set("a", 1)
	d.Set("b", 2)
	d.Set("a", 3)
	assert.Equal(t, []string{"a", "b"}, d.Keys())
	v, ok := d.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	d.SetDefault("a", 4)
	d.SetDefault("c", 5)
	assert.Equal(t, []string{"a", "b", "c"}, d.Keys())
	v, _ = d.Get("a")
	assert.Equal(t, 3, v)
}

func TestDocumentDelete(t *testing.T) {
	d := New()
	d.Set("a", 1)
	d.Set("b", 2)
	d.Set("c", 3)
	d.Delete("b")
	d.Delete("missing")
	assert.Equal(t, []string{"a", "c"}, d.Keys())
	assert.False(t, d.Has("b"))

	v, ok := d.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	d.Set("b", 4)
	assert.Equal(t, []string{"a", "c", "b"}, d.Keys())
}

func TestDocumentMap(t *testing.T) {
	inner := New()
	inner.Set("href", "/x")
	d := New()
	d.Set("items", []any{inner})
	assert.Equal(t, map[string]any{
		"items": []any{map[string]any{"href": "/x"}},
	}, d.Map())
}

func TestDocumentMsgpackPreservesOrder(t *testing.T) {
	d := New()
	d.Set("z", "last-alphabetically")
	d.Set("a", "first-alphabetically")

	buf, err := msgpack.Marshal(d)
	require.NoError(t, err)

	dec := msgpack.NewDecoder(bytes.NewReader(buf))
	n, err := dec.DecodeMapLen()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	var keys []string
	for i := 0; i < n; i++ {
		k, err := dec.DecodeString()
		require.NoError(t, err)
		_, err = dec.DecodeString()
		require.NoError(t, err)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a"}, keys)
}

var sink []byte

func BenchmarkDocumentEncoding(b *testing.B) {
	d := New()
	for i := 0; i < 2000; i++ {
		d.Set("foo"+strconv.Itoa(i), "bar")
		d2 := New()
		for j := 0; j < 10; j++ {
			d2.Set("foo"+strconv.Itoa(j), "bar")
		}
		d.Set("d"+strconv.Itoa(i), d2)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sink, _ = jsoniter.ConfigFastest.Marshal(d)
	}
}
