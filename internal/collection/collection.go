// Package collection assembles, persists and rewrites park FeatureCollections.
package collection

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/iancoleman/orderedmap"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parkmap/internal/fetcher"
	"github.com/sells-group/parkmap/internal/model"
)

// DefaultStyle is the display style of the harvested parks layer.
var DefaultStyle = model.Style{
	LayerName: "National Parks",
	Icon:      "md/MdOutlinePark",
	Color:     "green",
}

// New wraps features in a FeatureCollection with the given style. A nil
// feature list is written as an empty array.
func New(style model.Style, features []model.Feature) *model.FeatureCollection {
	if features == nil {
		features = []model.Feature{}
	}
	return &model.FeatureCollection{
		Type:       "FeatureCollection",
		Properties: model.CollectionProperties{Style: style},
		Features:   features,
	}
}

// Marshal encodes fc as two-space indented JSON without HTML escaping.
func Marshal(fc *model.FeatureCollection) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return nil, eris.Wrap(err, "collection: encode")
	}
	return buf.Bytes(), nil
}

// Save writes fc to path atomically, creating parent directories.
func Save(path string, fc *model.FeatureCollection) error {
	data, err := Marshal(fc)
	if err != nil {
		return err
	}
	if err := fetcher.WriteFileAtomic(path, data); err != nil {
		return eris.Wrapf(err, "collection: save %s", path)
	}
	return nil
}

// Load reads a FeatureCollection from path.
func Load(path string) (*model.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "collection: read %s", path)
	}
	var fc model.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "collection: decode %s", path)
	}
	if fc.Type != "FeatureCollection" {
		return nil, eris.Errorf("collection: %s is not a FeatureCollection (type %q)", path, fc.Type)
	}
	if fc.Features == nil {
		fc.Features = []model.Feature{}
	}
	return &fc, nil
}

// PromoteName copies the property from into property to on every feature
// that has from but lacks a non-empty to. Property order is preserved and the
// new key is appended. It returns the number of features changed.
func PromoteName(fc *model.FeatureCollection, from, to string) (int, error) {
	changed := 0
	for i := range fc.Features {
		f := &fc.Features[i]

		props := orderedmap.New()
		props.SetEscapeHTML(false)
		if len(f.Properties) > 0 && string(f.Properties) != "null" {
			if err := json.Unmarshal(f.Properties, props); err != nil {
				return changed, eris.Wrapf(err, "collection: decode properties of feature %d", i)
			}
		}

		if existing, ok := props.Get(to); ok {
			if s, isStr := existing.(string); !isStr || s != "" {
				continue
			}
		}
		value, ok := props.Get(from)
		if !ok || value == nil {
			continue
		}
		props.Set(to, value)

		raw, err := model.MarshalNoEscape(props)
		if err != nil {
			return changed, eris.Wrapf(err, "collection: encode properties of feature %d", i)
		}
		f.Properties = raw
		changed++
	}
	return changed, nil
}
