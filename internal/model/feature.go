package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Geometry is the wire form of a feature geometry. Coordinates are kept raw so
// the nesting depth of the source kind survives a load/save round trip.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Image is one entry of a park's photo gallery.
type Image struct {
	Src   string `json:"src"`
	Title string `json:"title"`
}

// ParkProperties are the properties attached to every harvested feature.
type ParkProperties struct {
	Title       *string `json:"title,omitempty"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Images      []Image `json:"images"`
}

// Feature is a single GeoJSON-style feature.
type Feature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	Geometry   Geometry        `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// Style is the display hint carried by a collection.
type Style struct {
	LayerName string `json:"layerName"`
	Icon      string `json:"icon"`
	Color     string `json:"color"`
}

// CollectionProperties wraps the collection style.
type CollectionProperties struct {
	Style Style `json:"style"`
}

// FeatureCollection is the harvest output document.
type FeatureCollection struct {
	Type       string               `json:"type"`
	Properties CollectionProperties `json:"properties"`
	Features   []Feature            `json:"features"`
}

// FeatureID returns a deterministic id for the index-th feature of a page.
func FeatureID(pageURL string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(pageURL+"#"+strconv.Itoa(index))).String()
}

// NewParkFeature builds a feature from a geometry and park properties.
func NewParkFeature(id string, geom Geometry, props ParkProperties) (Feature, error) {
	if props.Images == nil {
		props.Images = []Image{}
	}
	raw, err := MarshalNoEscape(props)
	if err != nil {
		return Feature{}, eris.Wrap(err, "model: marshal properties")
	}
	return Feature{Type: "Feature", ID: id, Geometry: geom, Properties: raw}, nil
}

// PropertyMap decodes the feature properties into a generic map.
func (f Feature) PropertyMap() (map[string]any, error) {
	props := map[string]any{}
	if len(f.Properties) == 0 || string(f.Properties) == "null" {
		return props, nil
	}
	if err := json.Unmarshal(f.Properties, &props); err != nil {
		return nil, eris.Wrap(err, "model: decode properties")
	}
	return props, nil
}

// StringProperty returns the named property when it is a non-empty string.
func (f Feature) StringProperty(key string) (string, bool) {
	props, err := f.PropertyMap()
	if err != nil {
		return "", false
	}
	s, ok := props[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// MarshalNoEscape encodes v as compact JSON without escaping <, > and &.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
