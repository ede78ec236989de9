// Package export writes a park collection to GIS and spreadsheet formats.
package export

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parkmap/internal/collection"
	"github.com/sells-group/parkmap/internal/geometry"
	"github.com/sells-group/parkmap/internal/model"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatShapefile Format = "shp"
	FormatXLSX      Format = "xlsx"
)

// ParseFormats validates a list of format names. Duplicates are collapsed.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatShapefile, FormatXLSX:
		case "":
			continue
		default:
			return nil, eris.Errorf("export: unknown format %q", n)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, eris.New("export: no formats requested")
	}
	return out, nil
}

// Record is one exportable feature.
type Record struct {
	Name        string
	Type        string
	Geometry    orb.Geometry
	Vertices    int
	URL         string
	Images      int
	Description string
}

// Records flattens a collection into export records. Features whose geometry
// cannot be decoded are logged and left out.
func Records(fc *model.FeatureCollection) []Record {
	log := zap.L().With(zap.String("component", "export"))
	recs := make([]Record, 0, len(fc.Features))
	for i, f := range fc.Features {
		g, err := geometry.Decode(f.Geometry)
		if err != nil {
			log.Warn("skipping feature with bad geometry", zap.Int("index", i), zap.Error(err))
			continue
		}
		name, _ := collection.FeatureName(f, collection.DefaultNameKeys)
		url, _ := f.StringProperty("url")
		desc, _ := f.StringProperty("description")

		var images int
		if props, err := f.PropertyMap(); err == nil {
			if list, ok := props["images"].([]any); ok {
				images = len(list)
			}
		}

		recs = append(recs, Record{
			Name:        name,
			Type:        g.GeoJSONType(),
			Geometry:    g,
			Vertices:    geometry.VertexCount(g),
			URL:         url,
			Images:      images,
			Description: desc,
		})
	}
	return recs
}

// Write exports fc under base in every requested format concurrently and
// returns the files written, sorted.
func Write(ctx context.Context, fc *model.FeatureCollection, base string, formats []Format) ([]string, error) {
	recs := Records(fc)

	var (
		mu    sync.Mutex
		files []string
	)
	add := func(paths ...string) {
		mu.Lock()
		files = append(files, paths...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range formats {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "export: cancelled")
			}
			switch f {
			case FormatShapefile:
				paths, err := WriteShapefiles(base, recs)
				if err != nil {
					return err
				}
				add(paths...)
			case FormatXLSX:
				path := base + ".xlsx"
				if err := WriteXLSX(path, recs); err != nil {
					return err
				}
				add(path)
			default:
				return eris.Errorf("export: unknown format %q", f)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(files)
	zap.L().Info("export complete",
		zap.String("base", base),
		zap.Int("records", len(recs)),
		zap.Strings("files", files),
	)
	return files, nil
}
