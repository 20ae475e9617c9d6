package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// TesseractCLI recognizes images by running the tesseract binary.
type TesseractCLI struct {
	binPath   string
	languages string
}

// NewTesseractCLI creates a TesseractCLI. If binPath is empty, "tesseract" is used.
func NewTesseractCLI(binPath, languages string) *TesseractCLI {
	if binPath == "" {
		binPath = "tesseract"
	}
	if languages == "" {
		languages = DefaultLanguages
	}
	return &TesseractCLI{binPath: binPath, languages: languages}
}

func (t *TesseractCLI) Name() string { return "tesseract" }

// Available checks that the binary can be found.
func (t *TesseractCLI) Available() error {
	if _, err := exec.LookPath(t.binPath); err != nil {
		return eris.Wrapf(ErrRecognitionUnavailable, "%s not found: %v", t.binPath, err)
	}
	return nil
}

// RecognizeImage pipes img through `tesseract stdin stdout -l <langs>`.
func (t *TesseractCLI) RecognizeImage(ctx context.Context, img []byte) (string, error) {
	cmd := exec.CommandContext(ctx, t.binPath, "stdin", "stdout", "-l", t.languages)
	cmd.Stdin = bytes.NewReader(img)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: tesseract failed: %s", strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
