// Package router provides gorilla/mux backed route assembly and server URL providers for link
// building.
package router

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/ccbrown/hal-fu/link"
)

// Mux assembles URLs for the named routes of a gorilla/mux router.
type Mux struct {
	Router *mux.Router

	// Matched holds the variables matched for the current request. They're used to fill in
	// missing parameters when links ask to reuse matched parameters.
	Matched map[string]string
}

var _ link.Router = (*Mux)(nil)

// ForRequest returns a copy of the router that reuses the variables gorilla/mux matched for the
// request.
func (m *Mux) ForRequest(r *http.Request) *Mux {
	return &Mux{
		Router:  m.Router,
		Matched: mux.Vars(r),
	}
}

// Assemble builds the URL for the named route. Parameters are formatted with fmt.Sprint. If
// options contains "query", it's encoded as the query string and "fragment" is used as the URL
// fragment.
func (m *Mux) Assemble(name string, params, options map[string]any, reuseMatchedParams bool) (string, error) {
	route := m.Router.Get(name)
	if route == nil {
		return "", errors.Errorf("route %q not found", name)
	}

	vars := map[string]string{}
	if reuseMatchedParams {
		for k, v := range m.Matched {
			vars[k] = v
		}
	}
	for k, v := range params {
		vars[k] = fmt.Sprint(v)
	}

	names, err := route.GetVarNames()
	if err != nil {
		return "", errors.Wrapf(err, "error inspecting %q route", name)
	}
	pairs := make([]string, 0, len(names)*2)
	for _, n := range names {
		if v, ok := vars[n]; ok {
			pairs = append(pairs, n, v)
		}
	}

	u, err := route.URL(pairs...)
	if err != nil {
		return "", errors.Wrapf(err, "error building %q route", name)
	}

	if q, ok := options["query"]; ok {
		values, err := queryValues(q)
		if err != nil {
			return "", errors.Wrapf(err, "invalid query for %q route", name)
		}
		if u.RawQuery != "" {
			u.RawQuery += "&" + values.Encode()
		} else {
			u.RawQuery = values.Encode()
		}
	}
	if f, ok := options["fragment"].(string); ok {
		u.Fragment = f
	}

	return u.String(), nil
}

func queryValues(q any) (url.Values, error) {
	values := url.Values{}
	switch q := q.(type) {
	case string:
		return url.ParseQuery(strings.TrimPrefix(q, "?"))
	case url.Values:
		return q, nil
	case map[string]string:
		for k, v := range q {
			values.Set(k, v)
		}
	case map[string]any:
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch v := q[k].(type) {
			case []string:
				values[k] = v
			case []any:
				for _, item := range v {
					values.Add(k, fmt.Sprint(item))
				}
			default:
				values.Set(k, fmt.Sprint(v))
			}
		}
	default:
		return nil, errors.Errorf("unsupported query type %T", q)
	}
	return values, nil
}
