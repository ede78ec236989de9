package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet holding the park index.
const SheetName = "parks"

var indexHeader = []string{"name", "geometry_type", "vertices", "url", "images", "description"}

// WriteXLSX writes one row per record to a single-sheet workbook at path.
func WriteXLSX(path string, recs []Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range indexHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range recs {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Type)
		row.AddCell().SetInt(r.Vertices)
		row.AddCell().SetString(r.URL)
		row.AddCell().SetInt(r.Images)
		row.AddCell().SetString(r.Description)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "xlsx: create output dir")
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}
