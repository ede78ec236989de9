// Package mapconfig locates the Leaflet map layer embedded in a park page's
// Drupal settings and returns its raw feature records.
package mapconfig

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/iancoleman/orderedmap"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parkmap/internal/fetcher"
)

// Fallback controls what happens when the expected layer is absent.
type Fallback string

const (
	FallbackFirst Fallback = "first"
	FallbackNone  Fallback = "none"
)

// ParseFallback validates a configured fallback policy.
func ParseFallback(s string) (Fallback, error) {
	switch Fallback(strings.ToLower(strings.TrimSpace(s))) {
	case FallbackFirst, "":
		return FallbackFirst, nil
	case FallbackNone:
		return FallbackNone, nil
	default:
		return "", eris.Errorf("mapconfig: unknown layer fallback %q", s)
	}
}

// LayerPath records how a layer was chosen.
type LayerPath string

const (
	PathExpected LayerPath = "expected"
	PathFallback LayerPath = "fallback"
	PathNone     LayerPath = ""
)

// Options configures an Extractor.
type Options struct {
	ScriptSelector string
	ExpectedLayer  string
	Fallback       Fallback
}

// Result is the outcome of one extraction. A page without usable map
// configuration yields an empty Result and no error.
type Result struct {
	Features  []json.RawMessage
	Layer     string
	Path      LayerPath
	FromCache bool
}

// Found reports whether a layer was selected.
func (r Result) Found() bool { return r.Path != PathNone }

// Extractor reads the settings JSON of a park page, persisting it beside the
// cached HTML as <key>.json and reusing that artifact on later runs.
type Extractor struct {
	cache *fetcher.Cache
	opts  Options
	log   *zap.Logger
}

// NewExtractor creates an Extractor writing artifacts into cache.
func NewExtractor(cache *fetcher.Cache, opts Options) *Extractor {
	if opts.Fallback == "" {
		opts.Fallback = FallbackFirst
	}
	return &Extractor{
		cache: cache,
		opts:  opts,
		log:   zap.L().With(zap.String("component", "mapconfig")),
	}
}

// Extract returns the feature records of the park layer for the page parsed
// into doc. Only artifact I/O failures are returned as errors.
func (e *Extractor) Extract(doc *goquery.Document, key string) (Result, error) {
	log := e.log.With(zap.String("key", key))

	var (
		settings  []byte
		fromCache bool
	)
	if e.cache.Has(key, ".json") {
		data, err := e.cache.Read(key, ".json")
		if err != nil {
			return Result{}, err
		}
		settings, fromCache = data, true
	} else {
		script := doc.Find(e.opts.ScriptSelector).First()
		if script.Length() == 0 {
			log.Warn("settings script not found")
			return Result{}, nil
		}
		raw := []byte(strings.TrimSpace(script.Text()))
		if !json.Valid(raw) {
			log.Warn("settings script is not valid json")
			return Result{}, nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			return Result{}, eris.Wrap(err, "mapconfig: indent settings")
		}
		if err := e.cache.Write(key, ".json", pretty.Bytes()); err != nil {
			return Result{}, err
		}
		settings = pretty.Bytes()
	}

	res := e.selectLayer(settings, log)
	res.FromCache = fromCache
	return res, nil
}

func (e *Extractor) selectLayer(settings []byte, log *zap.Logger) Result {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(settings, &top); err != nil {
		log.Warn("settings are not a json object", zap.Error(err))
		return Result{}
	}

	leaflet := bytes.TrimSpace(top["leaflet"])
	if isEmptyJSON(leaflet) {
		log.Warn("settings carry no leaflet maps")
		return Result{}
	}
	if leaflet[0] != '{' {
		log.Warn("leaflet settings are not an object")
		return Result{}
	}

	var layers map[string]json.RawMessage
	if err := json.Unmarshal(leaflet, &layers); err != nil {
		log.Warn("decode leaflet layers", zap.Error(err))
		return Result{}
	}

	name, path := e.opts.ExpectedLayer, PathExpected
	if _, ok := layers[name]; !ok {
		if e.opts.Fallback != FallbackFirst {
			log.Warn("expected layer missing and fallback disabled",
				zap.String("expected", e.opts.ExpectedLayer))
			return Result{}
		}
		first, err := firstKey(leaflet)
		if err != nil {
			log.Warn("read leaflet layer order", zap.Error(err))
			return Result{}
		}
		name, path = first, PathFallback
	}

	if path == PathFallback {
		log.Warn("expected layer missing, using first layer",
			zap.String("expected", e.opts.ExpectedLayer),
			zap.String("layer", name),
			zap.String("path", string(path)))
	} else {
		log.Info("selected map layer", zap.String("layer", name), zap.String("path", string(path)))
	}

	var layer struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(layers[name], &layer); err != nil {
		log.Warn("layer is not an object", zap.String("layer", name), zap.Error(err))
		return Result{Layer: name, Path: path}
	}
	return Result{Features: layer.Features, Layer: name, Path: path}
}

// firstKey returns the first key of a JSON object in source order.
func firstKey(obj []byte) (string, error) {
	om := orderedmap.New()
	if err := json.Unmarshal(obj, om); err != nil {
		return "", eris.Wrap(err, "mapconfig: ordered decode")
	}
	keys := om.Keys()
	if len(keys) == 0 {
		return "", eris.New("mapconfig: no layers")
	}
	return keys[0], nil
}

func isEmptyJSON(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return false
	}
	switch compact.String() {
	case "null", "[]", "{}":
		return true
	}
	return false
}
