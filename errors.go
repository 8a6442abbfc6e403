package halfu

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidEntity is returned when an entity would wrap something other than an object or
	// map.
	ErrInvalidEntity = errors.New("entities must wrap a struct, pointer or map")

	// ErrInvalidCollection is returned when a collection would wrap something that can't be
	// iterated.
	ErrInvalidCollection = errors.New("collections must wrap a slice, array, iter.Seq[any] or pagination.Paginator")

	// ErrNoIdentifier is returned when metadata requires an identifier that can't be found.
	ErrNoIdentifier = errors.New("unable to determine entity identifier")
)

// CircularReferenceError is returned when an object is encountered again while rendering its own
// subtree and no max depth has been configured.
type CircularReferenceError struct {
	// The class of the object that was encountered twice.
	Class string

	// The classes of the objects from the root to the repeated object.
	Path []string
}

func (err *CircularReferenceError) Error() string {
	return "circular reference detected in " + err.Class + ": " + strings.Join(err.Path, " -> ")
}

const DefaultProblemType = "about:blank"

// Problem is an RFC 7807 problem detail. It's returned as an error for conditions the client can
// correct, such as requesting a page that doesn't exist.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// NewProblem creates a problem with the given status. The title is the status text.
func NewProblem(status int, detail string) *Problem {
	return &Problem{
		Type:   DefaultProblemType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Title + ": " + p.Detail
	}
	return p.Title
}

// AsProblem returns the problem in err's chain, if any.
func AsProblem(err error) (*Problem, bool) {
	var p *Problem
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}
