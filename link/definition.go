package link

import (
	"github.com/stretchr/objx"
)

// FromDefinition creates a link from a configuration entry such as:
//
//	rel: author
//	route:
//	  name: users/user
//	  params: {id: 1}
//	  options: {reuse_matched_params: false}
//	props: {title: Author}
//
// "rel" may be a string or a list of strings. "route" may be a route name or an object, and "url"
// may be given instead of "route".
func FromDefinition(def map[string]any) (*Link, error) {
	m := objx.New(def)

	var rels []string
	switch rel := m.Get("rel"); {
	case rel.IsStr() && rel.Str() != "":
		rels = []string{rel.Str()}
	case rel.IsStrSlice():
		rels = rel.StrSlice()
	case rel.IsInterSlice():
		for _, v := range rel.InterSlice() {
			s, ok := v.(string)
			if !ok || s == "" {
				return nil, domainError("link relations must be non-empty strings")
			}
			rels = append(rels, s)
		}
	}
	if len(rels) == 0 {
		return nil, domainError("link definition is missing a relation")
	}

	l := New(rels[0], rels[1:]...)

	if props := m.Get("props"); !props.IsNil() {
		if !props.IsObjxMap() && !props.IsMSI() {
			return nil, domainError("props for %q link must be a map", l.Relation())
		}
		l.SetProps(toMSI(props))
	}

	if u := m.Get("url"); !u.IsNil() {
		if !u.IsStr() {
			return nil, domainError("url for %q link must be a string", l.Relation())
		}
		if err := l.SetURL(u.Str()); err != nil {
			return nil, err
		}
	}

	route := m.Get("route")
	switch {
	case route.IsNil():
	case route.IsStr():
		if err := l.SetRoute(route.Str(), nil, nil); err != nil {
			return nil, err
		}
	case route.IsObjxMap() || route.IsMSI():
		r := objx.New(toMSI(route))
		name := r.Get("name")
		if !name.IsStr() || name.Str() == "" {
			return nil, domainError("route for %q link is missing a name", l.Relation())
		}
		var params, options map[string]any
		if p := r.Get("params"); !p.IsNil() {
			if !p.IsObjxMap() && !p.IsMSI() {
				return nil, domainError("route params for %q link must be a map", l.Relation())
			}
			params = toMSI(p)
		}
		if o := r.Get("options"); !o.IsNil() {
			if !o.IsObjxMap() && !o.IsMSI() {
				return nil, domainError("route options for %q link must be a map", l.Relation())
			}
			options = toMSI(o)
		}
		if err := l.SetRoute(name.Str(), params, options); err != nil {
			return nil, err
		}
	default:
		return nil, domainError("route for %q link must be a string or a map", l.Relation())
	}

	if !l.IsComplete() {
		return nil, domainError("%q link must have either a url or a route", l.Relation())
	}
	return l, nil
}

func toMSI(v *objx.Value) map[string]any {
	if v.IsObjxMap() {
		return v.ObjxMap()
	}
	return v.MSI()
}
