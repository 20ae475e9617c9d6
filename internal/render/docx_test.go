package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrsdek/MedMate-App/internal/model"
)

// outlineItem is a structural summary of one body element of a .docx.
type outlineItem struct {
	Kind  string // "p" or "table"
	Style string
	Align string
	Text  string
	Rows  [][]string
}

func outline(t *testing.T, data []byte) []outlineItem {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var out []outlineItem
	for _, it := range doc.Document.Body.Items {
		switch v := it.(type) {
		case *docx.Paragraph:
			item := outlineItem{Kind: "p", Text: v.String()}
			if v.Properties != nil {
				if v.Properties.Style != nil {
					item.Style = v.Properties.Style.Val
				}
				if v.Properties.Justification != nil {
					item.Align = v.Properties.Justification.Val
				}
			}
			out = append(out, item)
		case *docx.Table:
			item := outlineItem{Kind: "table"}
			for _, row := range v.TableRows {
				var cells []string
				for _, cell := range row.TableCells {
					var sb strings.Builder
					for _, p := range cell.Paragraphs {
						sb.WriteString(p.String())
					}
					cells = append(cells, sb.String())
				}
				item.Rows = append(item.Rows, cells)
			}
			out = append(out, item)
		}
	}
	return out
}

func TestRenderText_HeadingAndBullets(t *testing.T) {
	data, err := RenderText("", "# Title\n* item one\n* item two")
	require.NoError(t, err)

	items := outline(t, data)
	require.Len(t, items, 3)
	assert.Equal(t, "Heading1", items[0].Style)
	assert.Equal(t, "Title", items[0].Text)
	assert.Equal(t, bulletMark+"item one", items[1].Text)
	assert.Equal(t, bulletMark+"item two", items[2].Text)
	for _, it := range items {
		assert.Equal(t, "p", it.Kind, "no table expected")
	}
}

func TestRenderText_UnmatchedBold(t *testing.T) {
	data, err := RenderText("", "Remember **this")
	require.NoError(t, err)

	items := outline(t, data)
	require.Len(t, items, 1)
	assert.Equal(t, "Remember this", items[0].Text)
	assert.NotContains(t, items[0].Text, "**")
}

func TestRender_HeadingsAndParagraphsRoundTrip(t *testing.T) {
	text := "# Renal physiology\nThe nephron filters blood.\n## Glomerulus\nFiltration happens here.\nSecond paragraph."
	doc := model.NewDocument("Week 3")
	doc.Append(model.TranscriptionResult{Label: "scan.pdf", Source: model.SourceRemote, Text: text})

	data, err := Render(doc)
	require.NoError(t, err)

	items := outline(t, data)
	var texts []string
	for _, it := range items {
		texts = append(texts, it.Text)
	}
	assert.Equal(t, []string{
		"Week 3",
		"Renal physiology",
		"The nephron filters blood.",
		"Glomerulus",
		"Filtration happens here.",
		"Second paragraph.",
	}, texts)
	assert.Equal(t, "Title", items[0].Style)
	assert.Equal(t, "center", items[0].Align)
	assert.Equal(t, "Heading2", items[3].Style)
}

func TestRenderText_Table(t *testing.T) {
	text := "| Nerve | Function |\n|---|---|\n| Vagus | Parasympathetic |\n| Phrenic | Diaphragm |"
	data, err := RenderText("", text)
	require.NoError(t, err)

	items := outline(t, data)
	require.Len(t, items, 1)
	require.Equal(t, "table", items[0].Kind)
	require.Len(t, items[0].Rows, 3)
	for _, row := range items[0].Rows {
		assert.Len(t, row, 2)
	}
	assert.Equal(t, []string{"Vagus", "Parasympathetic"}, items[0].Rows[1])
}

func TestRenderText_RaggedTableDoesNotFail(t *testing.T) {
	data, err := RenderText("", "| a | b | c |\n| 1 |\n| 1 | 2 | 3 | 4 |")
	require.NoError(t, err)

	items := outline(t, data)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"1", "", "", ""}, items[0].Rows[1])
}

func TestRenderText_Alignment(t *testing.T) {
	data, err := RenderText("", "القلب\nheart")
	require.NoError(t, err)

	items := outline(t, data)
	require.Len(t, items, 2)
	assert.Equal(t, "right", items[0].Align)
	assert.Equal(t, "left", items[1].Align)
}

func TestRender_Deterministic(t *testing.T) {
	doc := model.NewDocument("Exam review")
	doc.Append(model.TranscriptionResult{Text: "# Q1\n**A.** option\n| x | y |\n|---|---|\n| 1 | 2 |\n- note"})

	first, err := Render(doc)
	require.NoError(t, err)
	second, err := Render(doc)
	require.NoError(t, err)

	assert.Equal(t, outline(t, first), outline(t, second))
}

func TestRenderText_Empty(t *testing.T) {
	data, err := RenderText("", "")
	require.NoError(t, err)
	assert.Empty(t, outline(t, data))
}
