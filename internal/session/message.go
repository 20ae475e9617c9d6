package session

import (
	"fmt"

	"github.com/amrsdek/MedMate-App/internal/model"
)

var transcribingMessages = []string{
	"Reading the pages",
	"Deciphering handwriting",
	"Keeping medical terms in English",
	"Structuring headings and bullets",
	"Checking tables",
}

// Message is the human-readable form of a status. tick rotates through the
// messages shown during a long transcription.
func Message(st model.Status, tick int) string {
	switch st.Phase {
	case model.PhaseNormalizing:
		return "Preparing your files"
	case model.PhaseTranscribing:
		if tick < 0 {
			tick = -tick
		}
		msg := transcribingMessages[tick%len(transcribingMessages)]
		if st.Units > 1 {
			return fmt.Sprintf("%s (file %d of %d)", msg, st.Unit, st.Units)
		}
		return msg
	case model.PhaseRecognizing:
		return fmt.Sprintf("Recognising text locally (file %d of %d)", st.Unit, st.Units)
	case model.PhaseDone:
		return "Done"
	case model.PhaseFailed:
		return "Conversion failed"
	default:
		return "Ready"
	}
}
