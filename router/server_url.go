package router

import (
	"net/http"
	"strings"

	"github.com/ccbrown/hal-fu/link"
)

// StaticServerURL is a fixed base URL such as "https://api.example.com".
type StaticServerURL string

var _ link.ServerURL = StaticServerURL("")

func (s StaticServerURL) ServerURL() string {
	return strings.TrimSuffix(string(s), "/")
}

// RequestServerURL derives the base URL from an incoming request. If TrustProxy is true, the
// X-Forwarded-Proto and X-Forwarded-Host headers take precedence.
type RequestServerURL struct {
	Request    *http.Request
	TrustProxy bool
}

var _ link.ServerURL = (*RequestServerURL)(nil)

func (s *RequestServerURL) ServerURL() string {
	r := s.Request
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if s.TrustProxy {
		if proto := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
			scheme = proto
		}
		if h := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); h != "" {
			host = h
		}
	}

	return scheme + "://" + host
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
