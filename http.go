package halfu

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/ccbrown/hal-fu/link"
	"github.com/ccbrown/hal-fu/router"
)

const (
	ContentTypeHALJSON    = "application/hal+json"
	ContentTypeHALMsgpack = "application/hal+msgpack"
	ContentTypeProblem    = "application/problem+json"
)

// ForRequest returns a copy of the renderer whose links are built relative to the request. If the
// router is a *router.Mux, the variables matched for the request can be reused by links. If no
// server URL is configured, it's taken from the request.
func (r *Renderer) ForRequest(req *http.Request) *Renderer {
	b := &link.URLBuilder{
		Router:    r.config.Router,
		ServerURL: r.config.ServerURL,
	}
	if m, ok := b.Router.(*router.Mux); ok {
		b.Router = m.ForRequest(req)
	}
	if b.ServerURL == nil {
		b.ServerURL = &router.RequestServerURL{
			Request:    req,
			TrustProxy: r.config.TrustProxy,
		}
	}
	return r.WithURLBuilder(b)
}

// Handler returns a handler that renders whatever resolve returns. If resolve returns a *Problem,
// it's written as the response.
func (r *Renderer) Handler(resolve func(req *http.Request) (any, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		v, err := resolve(req)
		if err != nil {
			r.WriteError(w, err)
			return
		}
		r.ForRequest(req).WriteResponse(w, req, http.StatusOK, v)
	})
}

// WriteResponse renders v and writes it with the given status. The response is MessagePack if the
// request accepts application/hal+msgpack and JSON otherwise. Rendering errors are written with
// WriteError.
func (r *Renderer) WriteResponse(w http.ResponseWriter, req *http.Request, status int, v any) {
	d, err := r.Render(v)
	if err != nil {
		r.WriteError(w, err)
		return
	}

	contentType := ContentTypeHALJSON
	var body []byte
	if acceptsMsgpack(req) {
		contentType = ContentTypeHALMsgpack
		var buf bytes.Buffer
		if err := msgpack.NewEncoder(&buf).Encode(d); err != nil {
			r.WriteError(w, errors.Wrap(err, "error encoding msgpack response"))
			return
		}
		body = buf.Bytes()
	} else if body, err = jsoniter.Marshal(d); err != nil {
		r.WriteError(w, errors.Wrap(err, "error encoding json response"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}

// WriteError writes problems with their own status and anything else as a 500.
func (r *Renderer) WriteError(w http.ResponseWriter, err error) {
	p, ok := AsProblem(err)
	if ok {
		r.logger.WithError(err).Debug("problem rendering response")
	} else {
		r.logger.WithError(err).Error("error rendering response")
		p = NewProblem(http.StatusInternalServerError, "")
	}

	body, err := jsoniter.Marshal(p)
	if err != nil {
		r.logger.WithError(err).Error("error encoding problem")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentTypeProblem)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(p.Status)
	w.Write(body)
}

func acceptsMsgpack(req *http.Request) bool {
	if req == nil {
		return false
	}
	for _, accept := range req.Header.Values("Accept") {
		for _, part := range strings.Split(accept, ",") {
			mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
			if err == nil && mediaType == ContentTypeHALMsgpack {
				return true
			}
		}
	}
	return false
}
