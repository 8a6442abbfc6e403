package link

import (
	"sort"

	"github.com/ccbrown/hal-fu/document"
)

// ReuseMatchedParamsOption is the route option that controls whether parameters matched for the
// current request are reused when building a route link. It defaults to true and is never passed
// on to the router.
const ReuseMatchedParamsOption = "reuse_matched_params"

// Extractor converts links and link collections into their wire representation.
type Extractor struct {
	URLBuilder *URLBuilder
}

// ExtractLink converts a single link into a document with "href" followed by the link's props in
// key order. Computed route parameters are resolved against subject.
func (e *Extractor) ExtractLink(l *Link, subject any) (*document.Document, error) {
	if !l.IsComplete() {
		return nil, domainError("%q link is incomplete; it must have either a url or a route", l.Relation())
	}

	var href string
	if l.HasURL() {
		href = l.URL()
	} else {
		params := make(map[string]any, len(l.RouteParams()))
		for k, v := range l.RouteParams() {
			params[k] = resolveParam(v, subject)
		}

		options := copyMap(l.RouteOptions())
		reuse := true
		if v, ok := options[ReuseMatchedParamsOption]; ok {
			if b, ok := v.(bool); ok {
				reuse = b
			}
			delete(options, ReuseMatchedParamsOption)
		}

		if e.URLBuilder == nil {
			return nil, domainError("cannot build %q link without a url builder", l.Relation())
		}
		u, err := e.URLBuilder.BuildLinkURL(l.Route(), params, options, reuse)
		if err != nil {
			return nil, err
		}
		href = u
	}

	props := l.Props()
	keys := make([]string, 0, len(props))
	for k := range props {
		if k != "href" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	ret := document.NewWithCapacity(len(keys) + 1)
	ret.Set("href", href)
	for _, k := range keys {
		ret.Set(k, props[k])
	}
	return ret, nil
}

// ExtractCollection converts a link collection into the `_links` document. Relations holding a
// single link become objects and aggregated relations become lists.
func (e *Extractor) ExtractCollection(c *Collection, subject any) (*document.Document, error) {
	ret := document.NewWithCapacity(c.Len())
	for rel, links := range c.All() {
		if len(links) == 1 {
			if links[0] == nil {
				return nil, domainError("invalid link for %q relation", rel)
			}
			d, err := e.ExtractLink(links[0], subject)
			if err != nil {
				return nil, err
			}
			ret.Set(rel, d)
			continue
		}
		list := make([]any, 0, len(links))
		for _, l := range links {
			if l == nil {
				return nil, domainError("invalid link for %q relation", rel)
			}
			d, err := e.ExtractLink(l, subject)
			if err != nil {
				return nil, err
			}
			list = append(list, d)
		}
		ret.Set(rel, list)
	}
	return ret, nil
}

func resolveParam(v, subject any) any {
	switch f := v.(type) {
	case Computed:
		return f(subject)
	case func(any) any:
		return f(subject)
	}
	return v
}
