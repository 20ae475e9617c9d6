//go:build gosseract

package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

// Gosseract recognizes images through the libtesseract cgo binding.
type Gosseract struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewGosseract creates a Gosseract recognizer.
func NewGosseract(languages string) *Gosseract {
	return &Gosseract{languages: splitLanguages(languages), clientFactory: gosseract.NewClient}
}

func (g *Gosseract) Name() string { return "gosseract" }

// Available checks that libtesseract can be loaded.
func (g *Gosseract) Available() error {
	if gosseract.Version() == "" {
		return eris.Wrap(ErrRecognitionUnavailable, "libtesseract version unknown")
	}
	return nil
}

func (g *Gosseract) RecognizeImage(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := g.clientFactory()
	defer c.Close() //nolint:errcheck

	if len(g.languages) > 0 {
		if err := c.SetLanguage(g.languages...); err != nil {
			return "", eris.Wrap(err, "ocr: set languages")
		}
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return "", eris.Wrap(err, "ocr: set image")
	}
	text, err := c.Text()
	if err != nil {
		return "", eris.Wrap(err, "ocr: recognize text")
	}
	return text, nil
}
