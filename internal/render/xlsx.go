package render

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/amrsdek/MedMate-App/internal/model"
)

// ErrNoTables is returned by RenderTables when the text holds no table.
var ErrNoTables = eris.New("render: document has no tables")

// Tables returns the table blocks of text in order.
func Tables(text string) []Block {
	var out []Block
	for _, b := range Parse(text) {
		if b.Kind == BlockTable {
			out = append(out, b)
		}
	}
	return out
}

// RenderTables exports every table in the document as one sheet of an
// .xlsx workbook.
func RenderTables(doc *model.AccumulatedDocument) ([]byte, error) {
	tables := Tables(doc.Text())
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	f := xlsx.NewFile()
	for i, t := range tables {
		sheet, err := f.AddSheet(fmt.Sprintf("Table %d", i+1))
		if err != nil {
			return nil, eris.Wrapf(err, "render: add sheet %d", i+1)
		}
		for _, row := range t.Rows {
			r := sheet.AddRow()
			for _, cell := range row {
				r.AddCell().SetString(plain(cell))
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "render: write xlsx")
	}
	return buf.Bytes(), nil
}

func plain(s string) string {
	return Block{Spans: ParseInline(s)}.Text()
}
