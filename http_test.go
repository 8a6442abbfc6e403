package halfu

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack"

	"github.com/ccbrown/hal-fu/pagination"
	"github.com/ccbrown/hal-fu/router"
)

func newTestServer(t *testing.T, cfg *Config) (*httptest.Server, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	cfg.Logger = logger

	r, err := NewRenderer(cfg)
	require.NoError(t, err)

	m := cfg.Router.(*router.Mux).Router
	m.Path("/resource/{id}").Name("hostname/resource").Handler(r.Handler(func(req *http.Request) (any, error) {
		id := mux.Vars(req)["id"]
		if id == "broken" {
			return nil, errors.New("database unavailable")
		}
		return &testResource{ID: id, Name: "Foo"}, nil
	}))
	m.Path("/resources").Name("resources").Handler(r.Handler(func(req *http.Request) (any, error) {
		c, err := r.CreateCollection(pagination.FromSlice([]map[string]any{{"id": "a"}, {"id": "b"}}), "resources")
		if err != nil {
			return nil, err
		}
		c.EntityRoute = "hostname/resource"
		c.PageSize = 1
		c.Page = 3
		return c, nil
	}))

	return httptest.NewServer(m), hook
}

func newHTTPTestConfig(t *testing.T) *Config {
	cfg := newTestConfig(t, testResourceMetadata)
	cfg.Router = &router.Mux{Router: mux.NewRouter()}
	cfg.ServerURL = nil
	return cfg
}

func get(t *testing.T, url string, header http.Header) (*http.Response, []byte) {
	req, err := http.NewRequest("GET", url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHandler(t *testing.T) {
	s, hook := newTestServer(t, newHTTPTestConfig(t))
	defer s.Close()

	t.Run("JSON", func(t *testing.T) {
		resp, body := get(t, s.URL+"/resource/foo", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, ContentTypeHALJSON, resp.Header.Get("Content-Type"))
		assert.Equal(t, `{"id":"foo","name":"Foo","_links":{"self":{"href":"`+s.URL+`/resource/foo"}}}`, string(body))
	})

	t.Run("Msgpack", func(t *testing.T) {
		resp, body := get(t, s.URL+"/resource/foo", http.Header{
			"Accept": []string{"application/json;q=0.5, application/hal+msgpack"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, ContentTypeHALMsgpack, resp.Header.Get("Content-Type"))

		var decoded map[string]any
		require.NoError(t, msgpack.Unmarshal(body, &decoded))
		assert.Equal(t, "foo", decoded["id"])
		assert.Equal(t, "Foo", decoded["name"])
		assert.Contains(t, decoded, "_links")
	})

	t.Run("Problem", func(t *testing.T) {
		hook.Reset()
		resp, body := get(t, s.URL+"/resources", nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, ContentTypeProblem, resp.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"type":"about:blank","title":"Conflict","status":409,"detail":"Invalid page provided"}`, string(body))
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	})

	t.Run("Error", func(t *testing.T) {
		hook.Reset()
		resp, body := get(t, s.URL+"/resource/broken", nil)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.JSONEq(t, `{"type":"about:blank","title":"Internal Server Error","status":500}`, string(body))
		require.Len(t, hook.AllEntries(), 1)
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		assert.Contains(t, hook.LastEntry().Data[logrus.ErrorKey].(error).Error(), "database unavailable")
	})
}

func TestHandler_TrustProxy(t *testing.T) {
	cfg := newHTTPTestConfig(t)
	cfg.TrustProxy = true
	s, _ := newTestServer(t, cfg)
	defer s.Close()

	_, body := get(t, s.URL+"/resource/foo", http.Header{
		"X-Forwarded-Proto": []string{"https"},
		"X-Forwarded-Host":  []string{"api.example.com"},
	})
	assert.Equal(t, `{"id":"foo","name":"Foo","_links":{"self":{"href":"https://api.example.com/resource/foo"}}}`, string(body))
}

func TestRenderer_ForRequest(t *testing.T) {
	m := mux.NewRouter()
	m.Path("/owners/{owner}/resources/{id}").Name("owners/resource")

	cfg := newTestConfig(t, nil)
	cfg.Router = &router.Mux{Router: m}
	cfg.ServerURL = router.StaticServerURL("http://api.example.com/")
	r, err := NewRenderer(cfg)
	require.NoError(t, err)

	var rendered string
	m.Path("/owners/{owner}").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		e, err := r.CreateEntity(map[string]any{"id": "foo"}, "owners/resource", "id")
		require.NoError(t, err)
		d, err := r.ForRequest(req).RenderEntity(e)
		require.NoError(t, err)
		rendered = marshal(t, d)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/owners/bob", nil)
	m.ServeHTTP(w, req)
	assert.Equal(t, `{"id":"foo","_links":{"self":{"href":"http://api.example.com/owners/bob/resources/foo"}}}`, rendered)
}

func TestWriteResponse_EncodingErrors(t *testing.T) {
	r, err := NewRenderer(newTestConfig(t, nil))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.WriteResponse(w, httptest.NewRequest("GET", "/", nil), http.StatusOK, map[string]any{
		"id":  "foo",
		"bad": make(chan int),
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ContentTypeProblem, w.Header().Get("Content-Type"))
}
