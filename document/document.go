// Package document provides the ordered map type used for every rendered HAL document.
package document

import (
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack"
)

// Item is a key-value pair for an item in a Document.
type Item struct {
	Key   string
	Value any
}

// Document represents a map that maintains the order of its key-value pairs. It serializes to a
// JSON object (or MessagePack map) with the keys in the order they were first set.
type Document struct {
	items []Item
	index map[string]int
}

// New creates a new, empty document.
func New() *Document {
	return &Document{}
}

// NewWithCapacity creates a new document with room for n items.
func NewWithCapacity(n int) *Document {
	return &Document{
		items: make([]Item, 0, n),
		index: make(map[string]int, n),
	}
}

// Set writes a key-value pair to the document. If the key already exists its value is replaced
// in place, otherwise the pair is appended.
func (d *Document) Set(key string, value any) {
	if i, ok := d.index[key]; ok {
		d.items[i].Value = value
		return
	}
	if d.index == nil {
		d.index = map[string]int{}
	}
	d.index[key] = len(d.items)
	d.items = append(d.items, Item{
		Key:   key,
		Value: value,
	})
}

// SetDefault sets the key only if it isn't already present.
func (d *Document) SetDefault(key string, value any) {
	if !d.Has(key) {
		d.Set(key, value)
	}
}

// Get returns the value for the given key.
func (d *Document) Get(key string) (any, bool) {
	if i, ok := d.index[key]; ok {
		return d.items[i].Value, true
	}
	return nil, false
}

// Has reports whether the key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.index[key]
	return ok
}

// Delete removes the key, preserving the order of the remaining items.
func (d *Document) Delete(key string) {
	i, ok := d.index[key]
	if !ok {
		return
	}
	d.items = append(d.items[:i], d.items[i+1:]...)
	delete(d.index, key)
	for j := i; j < len(d.items); j++ {
		d.index[d.items[j].Key] = j
	}
}

// Len returns the length of the document.
func (d *Document) Len() int {
	return len(d.items)
}

// Keys returns the keys in order.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.items))
	for i, item := range d.items {
		keys[i] = item.Key
	}
	return keys
}

// Items provides the items in the document, in the order they were added.
func (d *Document) Items() []Item {
	return d.items
}

// Map converts the document and any nested documents into plain maps and slices. This is
// mostly useful for comparisons.
func (d *Document) Map() map[string]any {
	ret := make(map[string]any, len(d.items))
	for _, item := range d.items {
		ret[item.Key] = plain(item.Value)
	}
	return ret
}

func plain(v any) any {
	switch v := v.(type) {
	case *Document:
		return v.Map()
	case []any:
		ret := make([]any, len(v))
		for i, item := range v {
			ret[i] = plain(item)
		}
		return ret
	}
	return v
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(d)
}

var _ msgpack.CustomEncoder = (*Document)(nil)

// EncodeMsgpack writes the document as a MessagePack map, preserving key order.
func (d *Document) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(d.items)); err != nil {
		return err
	}
	for _, item := range d.items {
		if err := enc.EncodeString(item.Key); err != nil {
			return err
		}
		if err := enc.Encode(item.Value); err != nil {
			return err
		}
	}
	return nil
}

type documentEncoder struct{}

func (e *documentEncoder) IsEmpty(ptr unsafe.Pointer) bool {
	d := *((*Document)(ptr))
	return d.Len() == 0
}

func (e *documentEncoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	d := *((*Document)(ptr))
	stream.WriteObjectStart()
	for i, kv := range d.items {
		if i != 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(kv.Key)
		stream.WriteVal(kv.Value)
	}
	stream.WriteObjectEnd()
}

func init() {
	jsoniter.RegisterTypeEncoder("document.Document", &documentEncoder{})
}
