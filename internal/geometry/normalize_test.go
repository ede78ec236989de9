package geometry

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parkmap/internal/model"
)

func rc(lat, lon float64) model.RawCoordinate {
	return model.RawCoordinate{Lat: lat, Lon: lon}
}

func TestNormalize_PointSwapsAxes(t *testing.T) {
	t.Parallel()

	g, err := Normalize(model.PointRecord{Coord: rc(-31.95, 115.86)})
	require.NoError(t, err)
	assert.Equal(t, orb.Point{115.86, -31.95}, g)
}

func TestNormalize_PolygonKeepsCounts(t *testing.T) {
	t.Parallel()

	rec := model.PolygonRecord{Rings: [][]model.RawCoordinate{
		{rc(0, 0), rc(0, 1), rc(1, 1), rc(1, 0), rc(0, 0)},
		{rc(0.2, 0.2), rc(0.2, 0.4), rc(0.4, 0.4), rc(0.2, 0.2)},
	}}
	g, err := Normalize(rec)
	require.NoError(t, err)

	poly, ok := g.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, poly, 2)
	assert.Len(t, poly[0], 5)
	assert.Len(t, poly[1], 4)
	assert.Equal(t, orb.Point{1, 0}, poly[0][3])
}

func TestNormalize_MultiPolygon(t *testing.T) {
	t.Parallel()

	rec := model.MultiPolygonRecord{Polygons: [][][]model.RawCoordinate{
		{{rc(0, 0), rc(0, 1), rc(1, 1), rc(0, 0)}},
		{{rc(10, 20), rc(10, 21), rc(11, 21), rc(10, 20)}},
	}}
	g, err := Normalize(rec)
	require.NoError(t, err)

	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok)
	require.Len(t, mp, 2)
	assert.Equal(t, orb.Point{20, 10}, mp[1][0][0])
}

func TestNormalize_Nil(t *testing.T) {
	t.Parallel()

	_, err := Normalize(nil)
	assert.Error(t, err)
}

func nestingDepth(t *testing.T, raw json.RawMessage) int {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal(raw, &v))
	depth := 0
	for {
		arr, ok := v.([]any)
		if !ok || len(arr) == 0 {
			return depth
		}
		if _, isNum := arr[0].(float64); isNum {
			return depth
		}
		depth++
		v = arr[0]
	}
}

func TestEncode_NestingDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		kind  model.ShapeKind
		g     orb.Geometry
		depth int
	}{
		{"point", model.KindPoint, orb.Point{1, 2}, 0},
		{"polygon", model.KindPolygon, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, 2},
		{"multipolygon", model.KindMultiPolygon, orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wire, err := EncodeKind(tt.kind, tt.g)
			require.NoError(t, err)
			assert.Equal(t, string(tt.kind), wire.Type)
			assert.Equal(t, tt.depth, nestingDepth(t, wire.Coordinates))
		})
	}
}

func TestEncode_PointLonLat(t *testing.T) {
	t.Parallel()

	g, err := Normalize(model.PointRecord{Coord: rc(-31.5, 115.5)})
	require.NoError(t, err)
	wire, err := EncodeKind(model.KindPoint, g)
	require.NoError(t, err)
	assert.JSONEq(t, `[115.5,-31.5]`, string(wire.Coordinates))
}

func TestEncodeGeoJSON_CanonicalNames(t *testing.T) {
	t.Parallel()

	wire, err := EncodeGeoJSON(orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}})
	require.NoError(t, err)
	assert.Equal(t, "MultiPolygon", wire.Type)

	_, err = EncodeGeoJSON(nil)
	assert.Error(t, err)

	_, err = Encode("linestring", orb.LineString{{0, 0}, {1, 1}})
	assert.Error(t, err)
}

func TestDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	orig := orb.MultiPolygon{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}, {{5.1, 5.1}, {5.2, 5.1}, {5.2, 5.2}, {5.1, 5.1}}},
	}
	wire, err := EncodeKind(model.KindMultiPolygon, orig)
	require.NoError(t, err)

	got, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, orig, got)

	wire.Type = "MultiPolygon"
	got, err = Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := Decode(model.Geometry{Type: "circle", Coordinates: json.RawMessage(`[]`)})
	assert.Error(t, err)

	_, err = Decode(model.Geometry{Type: "Polygon"})
	assert.Error(t, err)

	_, err = Decode(model.Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[1,2]`)})
	assert.Error(t, err)

	_, err = Decode(model.Geometry{Type: "Point", Coordinates: json.RawMessage(`"x"`)})
	assert.Error(t, err)
}

func TestVertexCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, VertexCount(orb.Point{0, 0}))
	assert.Equal(t, 8, VertexCount(orb.MultiPolygon{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}},
	}))
	assert.Equal(t, 0, VertexCount(orb.LineString{{0, 0}}))
}

func TestIsAreal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAreal("polygon"))
	assert.True(t, IsAreal("MultiPolygon"))
	assert.False(t, IsAreal("Point"))
}
