package mapconfig

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/parkmap/internal/fetcher"
)

const (
	scriptSel = `script[data-drupal-selector="drupal-settings-json"]`
	parkLayer = "leaflet-map-view-places-places-parks-sites-campgrounds-map"
)

func page(t *testing.T, settings string) *goquery.Document {
	t.Helper()
	html := `<html><body><h1>Park</h1>`
	if settings != "" {
		html += `<script type="application/json" data-drupal-selector="drupal-settings-json">` + settings + `</script>`
	}
	html += `</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newExtractor(t *testing.T, fallback Fallback) (*Extractor, *fetcher.Cache) {
	t.Helper()
	cache := fetcher.NewCache(t.TempDir())
	return NewExtractor(cache, Options{
		ScriptSelector: scriptSel,
		ExpectedLayer:  parkLayer,
		Fallback:       fallback,
	}), cache
}

func TestExtract_ExpectedLayer(t *testing.T) {
	t.Parallel()

	settings := `{"path":{"x":1},"leaflet":{
		"other-map":{"features":[{"type":"point","lat":1,"lon":2}]},
		"` + parkLayer + `":{"features":[{"type":"point","lat":3,"lon":4},{"type":"point","lat":5,"lon":6}]}
	}}`
	e, cache := newExtractor(t, FallbackFirst)

	res, err := e.Extract(page(t, settings), "kings-park")
	require.NoError(t, err)

	assert.True(t, res.Found())
	assert.Equal(t, PathExpected, res.Path)
	assert.Equal(t, parkLayer, res.Layer)
	assert.Len(t, res.Features, 2)
	assert.False(t, res.FromCache)
	assert.True(t, cache.Has("kings-park", ".json"))
}

func TestExtract_FallbackFirstInSourceOrder(t *testing.T) {
	t.Parallel()

	// "zeta" sorts last but appears first in the document.
	settings := `{"leaflet":{
		"zeta-map":{"features":[{"lat":1,"lon":2}]},
		"alpha-map":{"features":[]}
	}}`
	e, _ := newExtractor(t, FallbackFirst)

	res, err := e.Extract(page(t, settings), "k")
	require.NoError(t, err)
	assert.Equal(t, PathFallback, res.Path)
	assert.Equal(t, "zeta-map", res.Layer)
	assert.Len(t, res.Features, 1)
}

func TestExtract_LayerSelectionLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings string
		level    zapcore.Level
		path     LayerPath
	}{
		{
			name:     "expected layer",
			settings: `{"leaflet":{"` + parkLayer + `":{"features":[]}}}`,
			level:    zapcore.InfoLevel,
			path:     PathExpected,
		},
		{
			name:     "fallback layer",
			settings: `{"leaflet":{"other-map":{"features":[]}}}`,
			level:    zapcore.WarnLevel,
			path:     PathFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			e, _ := newExtractor(t, FallbackFirst)
			e.log = zap.New(core)

			res, err := e.Extract(page(t, tt.settings), "k")
			require.NoError(t, err)
			require.Equal(t, tt.path, res.Path)

			var selected []observer.LoggedEntry
			for _, entry := range logs.All() {
				if _, ok := entry.ContextMap()["path"]; ok {
					selected = append(selected, entry)
				}
			}
			require.Len(t, selected, 1)
			assert.Equal(t, tt.level, selected[0].Level)
			assert.Equal(t, string(tt.path), selected[0].ContextMap()["path"])
		})
	}
}

func TestExtract_FallbackNone(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(t, FallbackNone)
	res, err := e.Extract(page(t, `{"leaflet":{"zeta-map":{"features":[{}]}}}`), "k")
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Empty(t, res.Features)
}

func TestExtract_MissingScript(t *testing.T) {
	t.Parallel()

	e, cache := newExtractor(t, FallbackFirst)
	res, err := e.Extract(page(t, ""), "k")
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.False(t, cache.Has("k", ".json"), "nothing is persisted without a script")
}

func TestExtract_InvalidJSON(t *testing.T) {
	t.Parallel()

	e, cache := newExtractor(t, FallbackFirst)
	res, err := e.Extract(page(t, `{"leaflet":`), "k")
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.False(t, cache.Has("k", ".json"))
}

func TestExtract_EmptyLeaflet(t *testing.T) {
	t.Parallel()

	for _, leaflet := range []string{`[]`, `null`, `{}`, `[ ]`} {
		t.Run(leaflet, func(t *testing.T) {
			t.Parallel()
			e, cache := newExtractor(t, FallbackFirst)
			res, err := e.Extract(page(t, `{"leaflet":`+leaflet+`}`), "k")
			require.NoError(t, err)
			assert.False(t, res.Found())
			// The settings artifact is still written.
			assert.True(t, cache.Has("k", ".json"))
		})
	}

	e, _ := newExtractor(t, FallbackFirst)
	res, err := e.Extract(page(t, `{"path":{}}`), "missing")
	require.NoError(t, err)
	assert.False(t, res.Found())
}

func TestExtract_LayerWithoutFeatures(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(t, FallbackFirst)
	res, err := e.Extract(page(t, `{"leaflet":{"`+parkLayer+`":{"settings":{}}}}`), "k")
	require.NoError(t, err)
	assert.True(t, res.Found())
	assert.Empty(t, res.Features)
}

func TestExtract_ReusesArtifact(t *testing.T) {
	t.Parallel()

	e, cache := newExtractor(t, FallbackFirst)
	settings := `{"leaflet":{"` + parkLayer + `":{"features":[{"lat":1,"lon":2}]}}}`

	_, err := e.Extract(page(t, settings), "k")
	require.NoError(t, err)
	first, err := cache.Read("k", ".json")
	require.NoError(t, err)
	assert.Contains(t, string(first), "\n  \"leaflet\"", "artifact is pretty-printed")

	// Second run has no script in the page; the artifact wins.
	res, err := e.Extract(page(t, ""), "k")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Len(t, res.Features, 1)

	second, err := cache.Read("k", ".json")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseFallback(t *testing.T) {
	t.Parallel()

	f, err := ParseFallback("")
	require.NoError(t, err)
	assert.Equal(t, FallbackFirst, f)

	f, err = ParseFallback("NONE")
	require.NoError(t, err)
	assert.Equal(t, FallbackNone, f)

	_, err = ParseFallback("last")
	assert.Error(t, err)
}
