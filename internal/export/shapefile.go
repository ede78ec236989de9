package export

import (
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DBF character fields hold at most 254 bytes.
const maxFieldLen = 254

var shapeFields = []shp.Field{
	shp.StringField("NAME", maxFieldLen),
	shp.StringField("URL", maxFieldLen),
	shp.NumberField("IMAGES", 10),
}

// WriteShapefiles writes areal records to <base>_polygons.shp and point
// records to <base>_points.shp. A layer with no records is not written.
// Areal records whose rings are all empty are skipped.
func WriteShapefiles(base string, recs []Record) ([]string, error) {
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return nil, eris.Wrap(err, "shapefile: create output dir")
	}

	var polys, points []Record
	for _, r := range recs {
		switch r.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			if _, null := toShape(r.Geometry).(*shp.Null); null {
				zap.L().With(zap.String("component", "export")).
					Warn("skipping polygon without points", zap.String("name", r.Name))
				continue
			}
			polys = append(polys, r)
		case orb.Point:
			points = append(points, r)
		}
	}

	var files []string
	if len(polys) > 0 {
		path := base + "_polygons.shp"
		if err := writeLayer(path, shp.POLYGON, polys); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if len(points) > 0 {
		path := base + "_points.shp"
		if err := writeLayer(path, shp.POINT, points); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func writeLayer(path string, typ shp.ShapeType, recs []Record) error {
	w, err := shp.Create(path, typ)
	if err != nil {
		return eris.Wrapf(err, "shapefile: create %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrapf(err, "shapefile: set fields on %s", path)
	}

	for _, r := range recs {
		row := int(w.Write(toShape(r.Geometry)))
		attrs := []any{truncate(r.Name), truncate(r.URL), r.Images}
		for field, v := range attrs {
			if err := w.WriteAttribute(row, field, v); err != nil {
				return eris.Wrapf(err, "shapefile: write attribute %d of row %d", field, row)
			}
		}
	}
	return nil
}

func toShape(g orb.Geometry) shp.Shape {
	switch g := g.(type) {
	case orb.Point:
		return &shp.Point{X: g.X(), Y: g.Y()}
	case orb.Polygon:
		if s := polygonShape([]orb.Polygon{g}); s != nil {
			return s
		}
	case orb.MultiPolygon:
		if s := polygonShape(g); s != nil {
			return s
		}
	}
	return &shp.Null{}
}

// polygonShape flattens polygons into one shape whose parts are every ring.
// Shapefile outer rings run clockwise and holes counter-clockwise. Empty
// rings are dropped; it returns nil when no ring has points.
func polygonShape(polys []orb.Polygon) *shp.Polygon {
	var parts [][]shp.Point
	for _, p := range polys {
		for i, ring := range p {
			if len(ring) == 0 {
				continue
			}
			want := orb.CW
			if i > 0 {
				want = orb.CCW
			}
			if ring.Orientation() != want {
				ring = ring.Clone()
				ring.Reverse()
			}
			part := make([]shp.Point, len(ring))
			for j, pt := range ring {
				part[j] = shp.Point{X: pt.X(), Y: pt.Y()}
			}
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return (*shp.Polygon)(shp.NewPolyLine(parts))
}

func truncate(s string) string {
	if len(s) <= maxFieldLen {
		return s
	}
	s = s[:maxFieldLen]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
