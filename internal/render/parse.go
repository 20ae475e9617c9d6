// Package render turns transcription text (a constrained Markdown dialect)
// into structured blocks and from there into .docx, .xlsx and HTML.
package render

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

// BlockKind is the structural role of a block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockBullet
	BlockTable
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockBullet:
		return "bullet"
	case BlockTable:
		return "table"
	default:
		return "paragraph"
	}
}

// Span is a run of text with uniform weight.
type Span struct {
	Text string
	Bold bool
}

// Block is one rendered element. Rows is set for tables only; Spans for
// everything else.
type Block struct {
	Kind  BlockKind
	Level int
	Spans []Span
	Rows  [][]string
	RTL   bool
}

// Text returns the plain text of a non-table block.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Columns returns the widest row length of a table block.
func (b Block) Columns() int {
	n := 0
	for _, r := range b.Rows {
		n = max(n, len(r))
	}
	return n
}

const maxHeadingLevel = 6

// Parse splits text into blocks, one pass over its lines.
func Parse(text string) []Block {
	var (
		blocks []Block
		table  [][]string
	)
	flush := func() {
		if len(table) > 0 {
			blocks = append(blocks, Block{Kind: BlockTable, Rows: table})
		}
		table = nil
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)

		if isTableLine(line) {
			if !isSeparatorRow(line) {
				table = append(table, splitCells(line))
			}
			continue
		}
		flush()

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			level := len(line) - len(strings.TrimLeft(line, "#"))
			body := strings.TrimSpace(strings.ReplaceAll(line[level:], "**", ""))
			if body == "" {
				continue
			}
			blocks = append(blocks, Block{
				Kind:  BlockHeading,
				Level: min(level, maxHeadingLevel),
				Spans: []Span{{Text: body}},
				RTL:   IsRTL(body),
			})
		case strings.HasPrefix(line, "* "), strings.HasPrefix(line, "- "):
			body := strings.TrimSpace(line[2:])
			blocks = append(blocks, Block{
				Kind:  BlockBullet,
				Level: indentLevel(raw),
				Spans: ParseInline(body),
				RTL:   IsRTL(body),
			})
		default:
			blocks = append(blocks, Block{
				Kind:  BlockParagraph,
				Spans: ParseInline(line),
				RTL:   IsRTL(line),
			})
		}
	}
	flush()
	return blocks
}

// ParseInline splits s on "**" markers into alternating plain and bold
// spans. An unmatched trailing marker is dropped and the text after it stays
// plain. Empty spans are omitted.
func ParseInline(s string) []Span {
	parts := strings.Split(s, "**")
	unmatched := len(parts)%2 == 0

	spans := make([]Span, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		bold := i%2 == 1
		if unmatched && i == len(parts)-1 {
			bold = false
		}
		if n := len(spans); n > 0 && spans[n-1].Bold == bold {
			spans[n-1].Text += p
			continue
		}
		spans = append(spans, Span{Text: p, Bold: bold})
	}
	return spans
}

// IsRTL reports whether s contains any right-to-left script character.
func IsRTL(s string) bool {
	for _, r := range s {
		if r < 0x0590 || unicode.IsSpace(r) {
			continue
		}
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.R, bidi.AL:
			return true
		}
	}
	return false
}

func isTableLine(line string) bool {
	return strings.HasPrefix(line, "|") || (strings.HasSuffix(line, "|") && strings.Count(line, "|") > 1)
}

// isSeparatorRow matches rows such as "|---|:---:|".
func isSeparatorRow(line string) bool {
	if !strings.Contains(line, "-") {
		return false
	}
	return strings.Trim(line, "-|: \t") == ""
}

func splitCells(line string) []string {
	line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func indentLevel(raw string) int {
	indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
	return indent / 2
}
