package collection

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parkmap/internal/geometry"
	"github.com/sells-group/parkmap/internal/model"
)

// DefaultNameKeys are the properties tried, in order, to name a feature.
var DefaultNameKeys = []string{"name", "title"}

// SimplifyReport counts the outcome of a Simplify pass.
type SimplifyReport struct {
	Total          int `json:"total"`
	Simplified     int `json:"simplified"`
	Failed         int `json:"failed"`
	VerticesBefore int `json:"vertices_before"`
	VerticesAfter  int `json:"vertices_after"`
}

// FeatureName returns the first non-empty string property among keys.
func FeatureName(f model.Feature, keys []string) (string, bool) {
	for _, k := range keys {
		if name, ok := f.StringProperty(k); ok {
			return name, true
		}
	}
	return "", false
}

// Simplify returns a copy of fc with every areal geometry simplified. A
// feature without a name or with a malformed geometry is logged and kept
// unchanged. Simplified geometries use canonical GeoJSON type names.
func Simplify(fc *model.FeatureCollection, s *geometry.Simplifier, nameKeys []string) (*model.FeatureCollection, SimplifyReport) {
	log := zap.L().With(zap.String("component", "simplify"))
	if len(nameKeys) == 0 {
		nameKeys = DefaultNameKeys
	}

	out := New(fc.Properties.Style, make([]model.Feature, 0, len(fc.Features)))
	var report SimplifyReport

	for i, f := range fc.Features {
		report.Total++

		name, ok := FeatureName(f, nameKeys)
		if !ok {
			log.Warn("feature has no name, leaving geometry untouched",
				zap.Int("index", i), zap.Strings("name_keys", nameKeys))
			report.Failed++
			out.Features = append(out.Features, f)
			continue
		}

		simplified, before, after, err := simplifyFeature(f, s)
		if err != nil {
			log.Warn("failed to simplify feature",
				zap.Int("index", i), zap.String("name", name), zap.Error(err))
			report.Failed++
			out.Features = append(out.Features, f)
			continue
		}

		report.Simplified++
		report.VerticesBefore += before
		report.VerticesAfter += after
		log.Debug("simplified feature",
			zap.String("name", name), zap.Int("before", before), zap.Int("after", after))
		out.Features = append(out.Features, simplified)
	}

	return out, report
}

func simplifyFeature(f model.Feature, s *geometry.Simplifier) (model.Feature, int, int, error) {
	g, err := geometry.Decode(f.Geometry)
	if err != nil {
		return f, 0, 0, err
	}
	sg, err := s.Simplify(g)
	if err != nil {
		return f, 0, 0, err
	}
	wire, err := geometry.EncodeGeoJSON(sg)
	if err != nil {
		return f, 0, 0, eris.Wrap(err, "collection: encode simplified geometry")
	}
	f.Geometry = wire
	return f, geometry.VertexCount(g), geometry.VertexCount(sg), nil
}
