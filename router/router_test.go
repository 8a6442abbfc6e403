package router

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccbrown/hal-fu/link"
)

func newTestRouter() *mux.Router {
	r := mux.NewRouter()
	r.Path("/users/{id}").Name("users/user")
	r.Path("/users/{user_id}/posts/{id}").Name("users/posts/post")
	r.Path("/users").Name("users")
	return r
}

func TestMux_Assemble(t *testing.T) {
	m := &Mux{Router: newTestRouter()}

	u, err := m.Assemble("users/user", map[string]any{"id": 5}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "/users/5", u)

	u, err = m.Assemble("users", nil, map[string]any{
		"query": map[string]any{"page": 2, "sort": "name"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "/users?page=2&sort=name", u)

	u, err = m.Assemble("users", nil, map[string]any{"query": "a=1", "fragment": "top"}, true)
	require.NoError(t, err)
	assert.Equal(t, "/users?a=1#top", u)

	_, err = m.Assemble("missing", nil, nil, true)
	assert.Error(t, err)

	_, err = m.Assemble("users/user", nil, nil, true)
	assert.Error(t, err)

	_, err = m.Assemble("users", nil, map[string]any{"query": 5}, true)
	assert.Error(t, err)
}

func TestMux_ReuseMatchedParams(t *testing.T) {
	router := newTestRouter()

	var m *Mux
	router.Path("/capture/{user_id}").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m = (&Mux{Router: router}).ForRequest(r)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/capture/7", nil))
	require.NotNil(t, m)

	u, err := m.Assemble("users/posts/post", map[string]any{"id": 3}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "/users/7/posts/3", u)

	_, err = m.Assemble("users/posts/post", map[string]any{"id": 3}, nil, false)
	assert.Error(t, err)

	u, err = m.Assemble("users/posts/post", map[string]any{"id": 3, "user_id": 8}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "/users/8/posts/3", u)
}

func TestMux_WithURLBuilder(t *testing.T) {
	b := &link.URLBuilder{
		Router:    &Mux{Router: newTestRouter()},
		ServerURL: StaticServerURL("http://host/"),
	}
	u, err := b.BuildLinkURL("users/user", map[string]any{"id": "foo"}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "http://host/users/foo", u)
}

func TestRequestServerURL(t *testing.T) {
	r := httptest.NewRequest("GET", "http://api.example.com/foo", nil)
	r.Header.Set("X-Forwarded-Proto", "https, http")
	r.Header.Set("X-Forwarded-Host", "public.example.com")

	assert.Equal(t, "http://api.example.com", (&RequestServerURL{Request: r}).ServerURL())
	assert.Equal(t, "https://public.example.com", (&RequestServerURL{Request: r, TrustProxy: true}).ServerURL())

	r = httptest.NewRequest("GET", "http://api.example.com/foo", nil)
	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://api.example.com", (&RequestServerURL{Request: r, TrustProxy: true}).ServerURL())
}
