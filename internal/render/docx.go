package render

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/rotisserie/eris"

	"github.com/amrsdek/MedMate-App/internal/model"
)

// Half-point font sizes.
const (
	titleSize  = 40
	bodySize   = 24
	bulletMark = "• "
)

var headingSizes = map[int]int{1: 32, 2: 28, 3: 26}

func headingSize(level int) int {
	if s, ok := headingSizes[level]; ok {
		return s
	}
	return bodySize
}

func justification(rtl bool) string {
	if rtl {
		return "right"
	}
	return "left"
}

// Render builds a .docx from the document's accumulated text. The title, if
// any, becomes the first paragraph.
func Render(doc *model.AccumulatedDocument) ([]byte, error) {
	return RenderText(doc.Title, doc.Text())
}

// RenderText builds a .docx from a title and dialect text.
func RenderText(title, text string) ([]byte, error) {
	w := docx.New().WithDefaultTheme()

	if title != "" {
		p := w.AddParagraph().Style("Title").Justification("center")
		p.AddText(title).Bold().Size(strconv.Itoa(titleSize))
	}

	for _, b := range Parse(text) {
		switch b.Kind {
		case BlockHeading:
			p := w.AddParagraph().
				Style("Heading" + strconv.Itoa(b.Level)).
				Justification(justification(b.RTL))
			p.AddText(b.Text()).Bold().Size(strconv.Itoa(headingSize(b.Level)))
		case BlockBullet:
			p := w.AddParagraph().Justification(justification(b.RTL))
			p.AddText(bulletIndent(b.Level) + bulletMark)
			addSpans(p, b.Spans)
		case BlockTable:
			addTable(w, b)
		default:
			p := w.AddParagraph().Justification(justification(b.RTL))
			addSpans(p, b.Spans)
		}
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, eris.Wrap(err, "render: write docx")
	}
	return buf.Bytes(), nil
}

func addSpans(p *docx.Paragraph, spans []Span) {
	for _, s := range spans {
		r := p.AddText(s.Text)
		if s.Bold {
			r.Bold()
		}
	}
}

// addTable renders rows as-is; short rows leave trailing cells empty and
// nothing is padded or truncated beyond the widest row.
func addTable(w *docx.Docx, b Block) {
	tbl := w.AddTable(len(b.Rows), b.Columns(), 0, nil)
	for i, row := range b.Rows {
		for j, cell := range row {
			p := tbl.TableRows[i].TableCells[j].AddParagraph().Justification(justification(IsRTL(cell)))
			spans := ParseInline(cell)
			if i == 0 {
				for k := range spans {
					spans[k].Bold = true
				}
			}
			addSpans(p, spans)
		}
	}
}

func bulletIndent(level int) string {
	return strings.Repeat("    ", level)
}
