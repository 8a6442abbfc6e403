package halfu

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/objx"
	"gopkg.in/yaml.v3"

	"github.com/ccbrown/hal-fu/hydrator"
	"github.com/ccbrown/hal-fu/link"
	"github.com/ccbrown/hal-fu/metadata"
)

// Config defines the metadata and other parameters for a renderer.
type Config struct {
	Logger logrus.FieldLogger

	// Rendering rules for domain classes.
	MetadataMap *metadata.Map

	// Hydrators available by name. If nil, only the built-in hydrators are available.
	Hydrators *hydrator.Registry

	// The name of the hydrator used for classes that don't specify one. If empty, values are
	// extracted by reflection.
	DefaultHydrator string

	// Hydrator names by class name. These take precedence over metadata.
	ClassHydrators map[string]string

	// If true, entities embedded in other entities are rendered as links only.
	LinkOnlyEmbeddedEntities bool

	// If true, entities in collections are rendered as links only.
	LinkOnlyCollectionEntities bool

	// Used to build the URLs of route links.
	Router    link.Router
	ServerURL link.ServerURL

	// If ServerURL is nil, HTTP responses use the request's URL. If TrustProxy is true, the
	// X-Forwarded-Proto and X-Forwarded-Host headers are honored.
	TrustProxy bool

	Hooks []Hooks
}

// LoadConfig reads configuration of the form:
//
//	metadata_map:
//	  store.Product:
//	    route_name: products/product
//	renderer:
//	  default_hydrator: reflection
//	  hydrators:
//	    store.Order: json
//	  render_embedded_entities: true
//	  render_embedded_collections: true
//
// Unknown hydrator names and malformed metadata entries are reported by NewRenderer and on first
// use respectively.
func LoadConfig(raw map[string]any) (*Config, error) {
	m := objx.New(raw)
	cfg := &Config{}

	metadataMap := map[string]any{}
	if v := m.Get("metadata_map"); !v.IsNil() {
		entries, ok := msi(v)
		if !ok {
			return nil, errors.New("metadata_map must be a map")
		}
		metadataMap = entries
	}
	mdMap, err := metadata.NewMap(metadataMap)
	if err != nil {
		return nil, errors.Wrap(err, "error loading metadata_map")
	}
	cfg.MetadataMap = mdMap

	renderer := objx.Map{}
	if v := m.Get("renderer"); !v.IsNil() {
		r, ok := msi(v)
		if !ok {
			return nil, errors.New("renderer must be a map")
		}
		renderer = objx.New(r)
	}

	if v := renderer.Get("default_hydrator"); !v.IsNil() {
		if !v.IsStr() {
			return nil, errors.New("renderer.default_hydrator must be a string")
		}
		cfg.DefaultHydrator = v.Str()
	}

	if v := renderer.Get("hydrators"); !v.IsNil() {
		hydrators, ok := msi(v)
		if !ok {
			return nil, errors.New("renderer.hydrators must be a map")
		}
		cfg.ClassHydrators = make(map[string]string, len(hydrators))
		for class, name := range hydrators {
			s, ok := name.(string)
			if !ok {
				return nil, errors.Errorf("renderer.hydrators: hydrator for %v must be a string", class)
			}
			cfg.ClassHydrators[class] = s
		}
	}

	for key, dest := range map[string]*bool{
		"render_embedded_entities":    &cfg.LinkOnlyEmbeddedEntities,
		"render_embedded_collections": &cfg.LinkOnlyCollectionEntities,
	} {
		v := renderer.Get(key)
		if v.IsNil() {
			continue
		}
		if !v.IsBool() {
			return nil, errors.Errorf("renderer.%v must be a boolean", key)
		}
		*dest = !v.Bool()
	}

	return cfg, nil
}

// LoadConfigYAML is like LoadConfig, but decodes YAML first.
func LoadConfigYAML(buf []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, errors.Wrap(err, "error decoding yaml configuration")
	}
	return LoadConfig(raw)
}

func msi(v *objx.Value) (map[string]any, bool) {
	switch {
	case v.IsObjxMap():
		return v.ObjxMap(), true
	case v.IsMSI():
		return v.MSI(), true
	}
	return nil, false
}
