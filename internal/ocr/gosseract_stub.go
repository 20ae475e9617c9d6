//go:build !gosseract

package ocr

import (
	"context"

	"github.com/rotisserie/eris"
)

// Gosseract is unavailable in builds without the gosseract tag.
type Gosseract struct {
	languages []string
}

// NewGosseract creates a recognizer that always reports itself unavailable.
func NewGosseract(languages string) *Gosseract {
	return &Gosseract{languages: splitLanguages(languages)}
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Available() error {
	return eris.Wrap(ErrRecognitionUnavailable, "binary built without the gosseract tag")
}

func (g *Gosseract) RecognizeImage(context.Context, []byte) (string, error) {
	return "", g.Available()
}
