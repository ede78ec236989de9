package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureID_Deterministic(t *testing.T) {
	t.Parallel()

	a := FeatureID("https://example.org/park/a", 0)
	assert.Equal(t, a, FeatureID("https://example.org/park/a", 0))
	assert.NotEqual(t, a, FeatureID("https://example.org/park/a", 1))
	assert.NotEqual(t, a, FeatureID("https://example.org/park/b", 0))
}

func TestNewParkFeature(t *testing.T) {
	t.Parallel()

	title := "Kings & Queens <Park>"
	geom := Geometry{Type: "point", Coordinates: json.RawMessage(`[115.8,-31.9]`)}
	f, err := NewParkFeature("id-1", geom, ParkProperties{
		Title:       &title,
		URL:         "https://example.org/park/a",
		Description: "Example park.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "id-1", f.ID)
	assert.Contains(t, string(f.Properties), `"title":"Kings & Queens <Park>"`)
	assert.Contains(t, string(f.Properties), `"images":[]`)

	name, ok := f.StringProperty("title")
	assert.True(t, ok)
	assert.Equal(t, title, name)
}

func TestNewParkFeature_OmitsMissingTitle(t *testing.T) {
	t.Parallel()

	f, err := NewParkFeature("id", Geometry{Type: "point"}, ParkProperties{URL: "u"})
	require.NoError(t, err)

	props, err := f.PropertyMap()
	require.NoError(t, err)
	_, has := props["title"]
	assert.False(t, has)

	_, ok := f.StringProperty("title")
	assert.False(t, ok)
}

func TestFeature_PropertyMapEmpty(t *testing.T) {
	t.Parallel()

	props, err := Feature{}.PropertyMap()
	require.NoError(t, err)
	assert.Empty(t, props)

	_, err = Feature{Properties: json.RawMessage(`[1]`)}.PropertyMap()
	assert.Error(t, err)
}

func TestMarshalNoEscape(t *testing.T) {
	t.Parallel()

	b, err := MarshalNoEscape(map[string]string{"a": "<b>&"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<b>&"}`, string(b))
}
