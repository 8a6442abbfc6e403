package link

import (
	"iter"
)

// Collection is an insertion-ordered mapping of relation names to links. A relation holds a single
// link unless links are added to it repeatedly without overwriting, in which case it holds a list.
type Collection struct {
	order []string
	links map[string][]*Link
}

// NewCollection creates a collection containing the given links. Nil links are ignored.
func NewCollection(links ...*Link) *Collection {
	c := &Collection{}
	for _, l := range links {
		c.Add(l)
	}
	return c
}

// Add adds the link under each of its relations. If a relation is already present, the link is
// appended to it and the relation will be rendered as a list. A nil link is ignored.
func (c *Collection) Add(l *Link) {
	c.add(l, false)
}

// Set adds the link under each of its relations, replacing anything already present.
func (c *Collection) Set(l *Link) {
	c.add(l, true)
}

func (c *Collection) add(l *Link, overwrite bool) {
	if l == nil {
		return
	}
	if c.links == nil {
		c.links = map[string][]*Link{}
	}
	for _, rel := range l.Relations() {
		existing, ok := c.links[rel]
		if !ok {
			c.order = append(c.order, rel)
		}
		if !ok || overwrite {
			c.links[rel] = []*Link{l}
		} else {
			c.links[rel] = append(existing, l)
		}
	}
}

// Has reports whether the relation is present.
func (c *Collection) Has(rel string) bool {
	_, ok := c.links[rel]
	return ok
}

// Get returns the first link for the relation, or nil.
func (c *Collection) Get(rel string) *Link {
	if links := c.links[rel]; len(links) > 0 {
		return links[0]
	}
	return nil
}

// GetAll returns every link for the relation, in the order they were added.
func (c *Collection) GetAll(rel string) []*Link {
	return c.links[rel]
}

// Remove removes the relation and reports whether it was present.
func (c *Collection) Remove(rel string) bool {
	if _, ok := c.links[rel]; !ok {
		return false
	}
	delete(c.links, rel)
	for i, r := range c.order {
		if r == rel {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of relations.
func (c *Collection) Len() int {
	return len(c.order)
}

// Relations returns the relation names in insertion order.
func (c *Collection) Relations() []string {
	return append([]string(nil), c.order...)
}

// All iterates over relations and their links in insertion order.
func (c *Collection) All() iter.Seq2[string, []*Link] {
	return func(yield func(string, []*Link) bool) {
		for _, rel := range c.order {
			if !yield(rel, c.links[rel]) {
				return
			}
		}
	}
}

// Clone returns a copy of the collection. The links themselves are shared.
func (c *Collection) Clone() *Collection {
	ret := &Collection{
		order: append([]string(nil), c.order...),
		links: make(map[string][]*Link, len(c.links)),
	}
	for rel, links := range c.links {
		ret.links[rel] = append([]*Link(nil), links...)
	}
	return ret
}

// Merge adds every link from other into the collection.
func (c *Collection) Merge(other *Collection) {
	if other == nil {
		return
	}
	for _, rel := range other.order {
		for _, l := range other.links[rel] {
			// multi-relation links are visited once per relation, so only add for this one
			single := *l
			single.relations = []string{rel}
			c.Add(&single)
		}
	}
}
