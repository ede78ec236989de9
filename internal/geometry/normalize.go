// Package geometry converts source map records into orb geometries and
// simplifies polygon boundaries.
package geometry

import (
	"encoding/json"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parkmap/internal/model"
)

// Normalize converts a raw geometry record into an orb geometry. Every source
// (lat, lon) becomes an orb.Point{lon, lat}; ring and point counts are kept.
func Normalize(rec model.GeometryRecord) (orb.Geometry, error) {
	switch r := rec.(type) {
	case model.PointRecord:
		return toPoint(r.Coord), nil
	case model.PolygonRecord:
		return toPolygon(r.Rings), nil
	case model.MultiPolygonRecord:
		mp := make(orb.MultiPolygon, 0, len(r.Polygons))
		for _, rings := range r.Polygons {
			mp = append(mp, toPolygon(rings))
		}
		return mp, nil
	case nil:
		return nil, eris.New("geometry: nil record")
	default:
		return nil, eris.Errorf("geometry: unsupported record %T", rec)
	}
}

func toPoint(c model.RawCoordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func toPolygon(rings [][]model.RawCoordinate) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for _, c := range ring {
			r = append(r, toPoint(c))
		}
		poly = append(poly, r)
	}
	return poly
}

// Encode writes g as a wire geometry tagged with the given type token.
func Encode(typ string, g orb.Geometry) (model.Geometry, error) {
	var coords any
	switch v := g.(type) {
	case orb.Point:
		coords = [2]float64(v)
	case orb.Polygon:
		coords = polygonCoords(v)
	case orb.MultiPolygon:
		mp := make([][][][2]float64, 0, len(v))
		for _, p := range v {
			mp = append(mp, polygonCoords(p))
		}
		coords = mp
	default:
		return model.Geometry{}, eris.Errorf("geometry: cannot encode %T", g)
	}

	raw, err := json.Marshal(coords)
	if err != nil {
		return model.Geometry{}, eris.Wrap(err, "geometry: encode coordinates")
	}
	return model.Geometry{Type: typ, Coordinates: raw}, nil
}

// EncodeKind writes g using the source token of kind ("point", "polygon", ...).
func EncodeKind(kind model.ShapeKind, g orb.Geometry) (model.Geometry, error) {
	return Encode(string(kind), g)
}

// EncodeGeoJSON writes g using its canonical GeoJSON type name.
func EncodeGeoJSON(g orb.Geometry) (model.Geometry, error) {
	if g == nil {
		return model.Geometry{}, eris.New("geometry: nil geometry")
	}
	return Encode(g.GeoJSONType(), g)
}

func polygonCoords(p orb.Polygon) [][][2]float64 {
	out := make([][][2]float64, 0, len(p))
	for _, r := range p {
		ring := make([][2]float64, 0, len(r))
		for _, pt := range r {
			ring = append(ring, [2]float64(pt))
		}
		out = append(out, ring)
	}
	return out
}

// Decode parses a wire geometry into an orb geometry. The type name is
// matched case-insensitively so harvested and simplified files both load.
func Decode(g model.Geometry) (orb.Geometry, error) {
	kind, err := model.ParseShapeKind(g.Type)
	if err != nil {
		return nil, err
	}
	if len(g.Coordinates) == 0 {
		return nil, eris.New("geometry: missing coordinates")
	}

	switch kind {
	case model.KindPoint:
		var pt [2]float64
		if err := json.Unmarshal(g.Coordinates, &pt); err != nil {
			return nil, eris.Wrap(err, "geometry: decode point")
		}
		return orb.Point(pt), nil
	case model.KindPolygon:
		var rings [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, eris.Wrap(err, "geometry: decode polygon")
		}
		return fromRings(rings), nil
	default:
		var polys [][][][2]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, eris.Wrap(err, "geometry: decode multipolygon")
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			mp = append(mp, fromRings(rings))
		}
		return mp, nil
	}
}

func fromRings(rings [][][2]float64) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		ring := make(orb.Ring, 0, len(r))
		for _, pt := range r {
			ring = append(ring, orb.Point(pt))
		}
		poly = append(poly, ring)
	}
	return poly
}

// VertexCount returns the number of coordinate pairs in g.
func VertexCount(g orb.Geometry) int {
	switch v := g.(type) {
	case orb.Point:
		return 1
	case orb.Ring:
		return len(v)
	case orb.Polygon:
		n := 0
		for _, r := range v {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range v {
			n += VertexCount(p)
		}
		return n
	default:
		return 0
	}
}

// IsAreal reports whether a wire type names a polygon or multipolygon.
func IsAreal(typ string) bool {
	t := strings.ToLower(typ)
	return t == "polygon" || t == "multipolygon"
}
