// Package ocr is the local recognition fallback: it turns the pages of
// normalized units into plain text without any network access.
package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/amrsdek/MedMate-App/internal/config"
)

// ErrRecognitionUnavailable is returned when the local recognizer cannot run
// in this environment. It is terminal for the run; there is no retry.
var ErrRecognitionUnavailable = eris.New("ocr: local recognition unavailable")

// DefaultLanguages is used when no languages are configured.
const DefaultLanguages = "eng+ara"

// Recognizer extracts text from one page image.
type Recognizer interface {
	Name() string
	// Available reports whether the recognizer can run here.
	Available() error
	RecognizeImage(ctx context.Context, img []byte) (string, error)
}

// NewRecognizer creates a Recognizer based on config.
func NewRecognizer(cfg config.OCRConfig) (Recognizer, error) {
	langs := cfg.Languages
	if langs == "" {
		langs = DefaultLanguages
	}
	switch cfg.Provider {
	case "tesseract", "":
		return NewTesseractCLI(cfg.TesseractPath, langs), nil
	case "gosseract":
		return NewGosseract(langs), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// splitLanguages turns "eng+ara" into ["eng", "ara"].
func splitLanguages(langs string) []string {
	var out []string
	for _, l := range strings.Split(langs, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
