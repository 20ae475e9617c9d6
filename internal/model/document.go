package model

import "strings"

// ResultSource records which path produced a TranscriptionResult.
type ResultSource string

const (
	SourceRemote ResultSource = "remote"
	SourceLocal  ResultSource = "local"
)

// TranscriptionResult is the text produced for one NormalizedUnit.
type TranscriptionResult struct {
	Label    string       `json:"label"`
	Position int          `json:"position"`
	Source   ResultSource `json:"source"`
	Text     string       `json:"text"`
}

// AccumulatedDocument is the ordered concatenation of every result of a
// run plus the user supplied title. The text may be edited by hand before
// rendering, after which it no longer tracks Results.
type AccumulatedDocument struct {
	Title   string                `json:"title"`
	Results []TranscriptionResult `json:"results"`
	Edited  bool                  `json:"edited"`

	text string
}

// NewDocument returns an empty document with the given title.
func NewDocument(title string) *AccumulatedDocument {
	return &AccumulatedDocument{Title: title}
}

// Append adds a result at the end of the document.
func (d *AccumulatedDocument) Append(r TranscriptionResult) {
	d.Results = append(d.Results, r)
}

// Text returns the current document body.
func (d *AccumulatedDocument) Text() string {
	if d.Edited {
		return d.text
	}
	return joinResults(d.Results)
}

// SetText replaces the body with a manual edit.
func (d *AccumulatedDocument) SetText(text string) {
	d.text = text
	d.Edited = true
}

// Empty reports whether the document has no body text.
func (d *AccumulatedDocument) Empty() bool {
	return strings.TrimSpace(d.Text()) == ""
}

func joinResults(results []TranscriptionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if t := strings.TrimSpace(r.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
