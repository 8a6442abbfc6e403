package link

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Router assembles a URL for a named route.
type Router interface {
	// Assemble builds the path (or full URL) for the named route. If reuseMatchedParams is true,
	// parameters matched for the current request are used for any that aren't given.
	Assemble(route string, params, options map[string]any, reuseMatchedParams bool) (string, error)
}

// ServerURL provides the base URL of the server, e.g. "https://api.example.com".
type ServerURL interface {
	ServerURL() string
}

// URLBuilder builds absolute URLs for named routes.
type URLBuilder struct {
	Router    Router
	ServerURL ServerURL
}

// BuildLinkURL assembles the route. If the router produces a relative URL, it's prefixed with the
// server URL.
func (b *URLBuilder) BuildLinkURL(route string, params, options map[string]any, reuseMatchedParams bool) (string, error) {
	if b.Router == nil {
		return "", errors.Errorf("no router configured to build %q route", route)
	}
	path, err := b.Router.Assemble(route, params, options, reuseMatchedParams)
	if err != nil {
		return "", errors.Wrapf(err, "error building %q route", route)
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path, nil
	}
	if b.ServerURL == nil {
		return path, nil
	}
	base := strings.TrimSuffix(b.ServerURL.ServerURL(), "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path, nil
}
