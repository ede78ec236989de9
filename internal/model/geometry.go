package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ShapeKind identifies the shape of a map-layer feature.
type ShapeKind string

const (
	KindPoint        ShapeKind = "point"
	KindPolygon      ShapeKind = "polygon"
	KindMultiPolygon ShapeKind = "multipolygon"
)

// ParseShapeKind converts a source type token into a ShapeKind. Matching is
// case-insensitive so both Leaflet ("polygon") and GeoJSON ("Polygon") tokens work.
func ParseShapeKind(s string) (ShapeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point":
		return KindPoint, nil
	case "polygon":
		return KindPolygon, nil
	case "multipolygon":
		return KindMultiPolygon, nil
	default:
		return "", eris.Errorf("model: unsupported shape kind %q", s)
	}
}

// RawCoordinate is a source coordinate, ordered (lat, lon).
type RawCoordinate struct {
	Lat float64
	Lon float64
}

// GeometryRecord is the kind-specific payload of a RawFeature.
type GeometryRecord interface {
	Kind() ShapeKind
}

// PointRecord holds a single coordinate.
type PointRecord struct {
	Coord RawCoordinate
}

// PolygonRecord holds rings; the first ring is the outer boundary.
type PolygonRecord struct {
	Rings [][]RawCoordinate
}

// MultiPolygonRecord holds polygons, each a list of rings.
type MultiPolygonRecord struct {
	Polygons [][][]RawCoordinate
}

func (PointRecord) Kind() ShapeKind        { return KindPoint }
func (PolygonRecord) Kind() ShapeKind      { return KindPolygon }
func (MultiPolygonRecord) Kind() ShapeKind { return KindMultiPolygon }

// RawFeature is one entry of a Leaflet map layer.
type RawFeature struct {
	Kind     ShapeKind
	Title    string // HTML fragment
	HasTitle bool
	Geometry GeometryRecord
}

var (
	// ErrMissingLatLon is returned for point records without lat/lon.
	ErrMissingLatLon = eris.New("model: missing lat/lon")
	// ErrEmptyGeometry is returned for polygon records without coordinates.
	ErrEmptyGeometry = eris.New("model: empty geometry")
)

// coordValue accepts both JSON numbers and numeric strings; Drupal emits either.
type coordValue float64

func (c *coordValue) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "model: invalid coordinate %s", string(b))
	}
	*c = coordValue(f)
	return nil
}

type rawCoordDoc struct {
	Lat *coordValue `json:"lat"`
	Lon *coordValue `json:"lon"`
}

func (d rawCoordDoc) coordinate() (RawCoordinate, error) {
	if d.Lat == nil || d.Lon == nil {
		return RawCoordinate{}, ErrMissingLatLon
	}
	return RawCoordinate{Lat: float64(*d.Lat), Lon: float64(*d.Lon)}, nil
}

type rawFeatureDoc struct {
	Type   string          `json:"type"`
	Title  json.RawMessage `json:"title"`
	Points json.RawMessage `json:"points"`
	rawCoordDoc
}

// DecodeRawFeature parses a Leaflet feature record into a RawFeature.
// A record without a type is a point when it carries lat/lon and no points.
func DecodeRawFeature(data []byte) (RawFeature, error) {
	var doc rawFeatureDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return RawFeature{}, eris.Wrap(err, "model: decode feature")
	}

	hasPoints := len(doc.Points) > 0 && string(doc.Points) != "null"

	var kind ShapeKind
	switch {
	case doc.Type != "":
		k, err := ParseShapeKind(doc.Type)
		if err != nil {
			return RawFeature{}, err
		}
		kind = k
	case !hasPoints:
		kind = KindPoint
	default:
		return RawFeature{}, eris.New("model: feature has points but no type")
	}

	f := RawFeature{Kind: kind}
	var title string
	if len(doc.Title) > 0 && json.Unmarshal(doc.Title, &title) == nil {
		f.Title = title
		f.HasTitle = true
	}

	switch kind {
	case KindPoint:
		c, err := doc.rawCoordDoc.coordinate()
		if err != nil {
			return RawFeature{}, err
		}
		f.Geometry = PointRecord{Coord: c}

	case KindPolygon:
		if !hasPoints {
			return RawFeature{}, ErrEmptyGeometry
		}
		rings, err := decodePolygon(doc.Points)
		if err != nil {
			return RawFeature{}, err
		}
		if len(rings) == 0 {
			return RawFeature{}, ErrEmptyGeometry
		}
		f.Geometry = PolygonRecord{Rings: rings}

	case KindMultiPolygon:
		if !hasPoints {
			return RawFeature{}, ErrEmptyGeometry
		}
		var parts []json.RawMessage
		if err := json.Unmarshal(doc.Points, &parts); err != nil {
			return RawFeature{}, eris.Wrap(err, "model: decode multipolygon")
		}
		polygons := make([][][]RawCoordinate, 0, len(parts))
		for _, part := range parts {
			rings, err := decodePolygon(part)
			if err != nil {
				return RawFeature{}, err
			}
			if len(rings) == 0 {
				return RawFeature{}, ErrEmptyGeometry
			}
			polygons = append(polygons, rings)
		}
		if len(polygons) == 0 {
			return RawFeature{}, ErrEmptyGeometry
		}
		f.Geometry = MultiPolygonRecord{Polygons: polygons}
	}

	return f, nil
}

// decodePolygon reads a list of rings. A flat list of coordinates (older
// Leaflet module output) is read as a single ring.
func decodePolygon(data json.RawMessage) ([][]RawCoordinate, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, eris.Wrap(err, "model: decode polygon")
	}
	if len(elems) == 0 {
		return nil, nil
	}

	if isObject(elems[0]) {
		ring, err := decodeRing(data)
		if err != nil {
			return nil, err
		}
		return [][]RawCoordinate{ring}, nil
	}

	rings := make([][]RawCoordinate, 0, len(elems))
	for _, elem := range elems {
		ring, err := decodeRing(elem)
		if err != nil {
			return nil, err
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

func decodeRing(data json.RawMessage) ([]RawCoordinate, error) {
	var docs []rawCoordDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, eris.Wrap(err, "model: decode ring")
	}
	if len(docs) == 0 {
		return nil, ErrEmptyGeometry
	}
	ring := make([]RawCoordinate, 0, len(docs))
	for _, d := range docs {
		c, err := d.coordinate()
		if err != nil {
			return nil, err
		}
		ring = append(ring, c)
	}
	return ring, nil
}

func isObject(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
