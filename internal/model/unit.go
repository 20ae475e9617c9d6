package model

import "strings"

// NormalizedUnit is one PDF ready for transcription. It is either a
// pass-through of an uploaded PDF or the document synthesized from every
// raster image of the batch.
type NormalizedUnit struct {
	// Position is the upload index of the first contributing item.
	Position    int
	Sources     []string
	Synthesized bool
	Pages       int
	Data        []byte
}

// Label names the unit for source headers and logs.
func (u NormalizedUnit) Label() string {
	if len(u.Sources) == 0 {
		return "unit"
	}
	if !u.Synthesized || len(u.Sources) == 1 {
		return u.Sources[0]
	}
	return strings.Join(u.Sources, ", ")
}

// MIMEType is always application/pdf for a normalized unit.
func (u NormalizedUnit) MIMEType() string { return "application/pdf" }
