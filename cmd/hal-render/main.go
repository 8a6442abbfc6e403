package main

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/vmihailenco/msgpack"

	halfu "github.com/ccbrown/hal-fu"
	"github.com/ccbrown/hal-fu/metadata"
	"github.com/ccbrown/hal-fu/pagination"
	"github.com/ccbrown/hal-fu/router"
)

// ClassKey is the fixture key that names an object's class. It isn't rendered.
const ClassKey = "_class"

// object is a fixture object with a class. Objects without one are left as plain maps.
type object struct {
	class  string
	fields map[string]any
}

var (
	_ metadata.Classifier   = (*object)(nil)
	_ msgpack.CustomEncoder = (*object)(nil)
)

func (o *object) HALClass() string {
	return o.class
}

func (o *object) Serialize() map[string]any {
	return o.fields
}

func (o *object) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(o.fields)
}

func (o *object) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(o.fields)
}

// convert turns decoded JSON into renderable values: objects with a class become *object.
func convert(v any) any {
	switch v := v.(type) {
	case map[string]any:
		fields := make(map[string]any, len(v))
		for k, item := range v {
			if k != ClassKey {
				fields[k] = convert(item)
			}
		}
		if class, ok := v[ClassKey].(string); ok && class != "" {
			return &object{class: class, fields: fields}
		}
		return fields
	case []any:
		ret := make([]any, len(v))
		for i, item := range v {
			ret[i] = convert(item)
		}
		return ret
	}
	return v
}

func newRouter(routes []string) (*mux.Router, error) {
	r := mux.NewRouter()
	for _, route := range routes {
		name, template, ok := strings.Cut(route, "=")
		if !ok || name == "" || template == "" {
			return nil, errors.Errorf("invalid route %q: routes must be of the form name=/path/{param}", route)
		}
		if err := r.Path(template).Name(name).GetError(); err != nil {
			return nil, errors.Wrapf(err, "invalid route %q", route)
		}
	}
	return r, nil
}

// Run renders the JSON fixture named by the arguments, or read from stdin, and writes the result to
// stdout.
func Run(stdin io.Reader, stdout io.Writer, args ...string) error {
	flags := pflag.NewFlagSet("hal-render", pflag.ContinueOnError)
	configPath := flags.String("config", "", "the path to a yaml configuration file")
	routes := flags.StringArrayP("route", "r", nil, "a route of the form name=/path/{param}")
	baseURL := flags.String("base-url", "http://localhost", "the base url of generated links")
	class := flags.String("class", "", "the class of the root object, if the fixture doesn't give one")
	routeName := flags.String("route-name", "", "the route of the root resource's self link")
	routeIdentifier := flags.String("route-identifier", metadata.DefaultIdentifierName, "the route parameter of the root entity's identifier")
	isCollection := flags.Bool("collection", false, "render the root array as a collection")
	entityRoute := flags.String("entity-route", "", "the route of the collection items' self links")
	collectionName := flags.String("collection-name", metadata.DefaultCollectionName, "the key collection items are embedded under")
	page := flags.Int("page", 1, "the page of the collection to render")
	pageSize := flags.Int("page-size", 0, "the number of items per page, or 0 to disable pagination")
	useMsgpack := flags.Bool("msgpack", false, "write messagepack instead of json")
	logLevel := flags.String("log-level", "warning", "the log level")
	if err := flags.Parse(args); err != nil {
		return err
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	logger := logrus.New()
	logger.SetLevel(level)

	cfg := &halfu.Config{}
	if *configPath != "" {
		buf, err := os.ReadFile(*configPath)
		if err != nil {
			return errors.Wrap(err, "error reading configuration")
		}
		if cfg, err = halfu.LoadConfigYAML(buf); err != nil {
			return err
		}
	}
	cfg.Logger = logger

	muxRouter, err := newRouter(*routes)
	if err != nil {
		return err
	}
	cfg.Router = &router.Mux{Router: muxRouter}
	cfg.ServerURL = router.StaticServerURL(*baseURL)

	renderer, err := halfu.NewRenderer(cfg)
	if err != nil {
		return err
	}

	input := stdin
	if flags.NArg() > 1 {
		return errors.New("at most one fixture may be given")
	} else if flags.NArg() == 1 {
		f, err := os.Open(flags.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	var fixture any
	if err := jsoniter.NewDecoder(input).Decode(&fixture); err != nil {
		return errors.Wrap(err, "error decoding fixture")
	}
	logger.WithField("route", *routeName).Debug("rendering fixture")

	var resource any
	switch v := convert(fixture).(type) {
	case []any:
		if !*isCollection {
			return errors.New("the fixture is an array, but --collection wasn't given")
		}
		var items any = v
		if *pageSize != 0 {
			items = pagination.FromSlice(v)
		}
		c, err := renderer.CreateCollection(items, *routeName)
		if err != nil {
			return err
		}
		c.EntityRoute = *entityRoute
		c.CollectionName = *collectionName
		c.Page = *page
		if *pageSize != 0 {
			c.PageSize = *pageSize
		}
		resource = c
	case map[string]any, *object:
		if *isCollection {
			return errors.New("--collection requires the fixture to be an array")
		}
		if m, ok := v.(map[string]any); ok && *class != "" {
			v = &object{class: *class, fields: m}
		}
		e, err := renderer.CreateEntity(v, *routeName, *routeIdentifier)
		if err != nil {
			return err
		}
		resource = e
	default:
		return errors.Errorf("the fixture must be an object or array, got %T", v)
	}

	d, err := renderer.Render(resource)
	if err != nil {
		return err
	}

	var out []byte
	if *useMsgpack {
		var buf bytes.Buffer
		if err := msgpack.NewEncoder(&buf).Encode(d); err != nil {
			return errors.Wrap(err, "error encoding messagepack")
		}
		out = buf.Bytes()
	} else {
		if out, err = jsoniter.MarshalIndent(d, "", "  "); err != nil {
			return errors.Wrap(err, "error encoding json")
		}
		out = append(out, '\n')
	}
	_, err = stdout.Write(out)
	return err
}

func main() {
	if err := Run(os.Stdin, os.Stdout, os.Args[1:]...); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(2)
		}
		logrus.WithError(err).Fatal("unable to render fixture")
	}
}
