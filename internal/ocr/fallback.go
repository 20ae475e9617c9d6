package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/model"
)

// Fallback runs a Recognizer over every page of a set of units.
type Fallback struct {
	rec    Recognizer
	split  Splitter
	onPage func()
}

// FallbackOption configures a Fallback.
type FallbackOption func(*Fallback)

// WithSplitter replaces the page image splitter.
func WithSplitter(s Splitter) FallbackOption {
	return func(f *Fallback) { f.split = s }
}

// WithPageObserver registers a callback invoked after each recognised page.
func WithPageObserver(fn func()) FallbackOption {
	return func(f *Fallback) { f.onPage = fn }
}

// NewFallback creates a Fallback over rec.
func NewFallback(rec Recognizer, opts ...FallbackOption) *Fallback {
	f := &Fallback{rec: rec, split: ExtractPageImages}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Header is the source-label line that precedes each unit's text.
func Header(label string) string {
	return fmt.Sprintf("--- %s ---", label)
}

// Available reports whether the underlying recognizer can run. Any failure
// matches ErrRecognitionUnavailable.
func (f *Fallback) Available() error {
	err := f.rec.Available()
	if err == nil || errors.Is(err, ErrRecognitionUnavailable) {
		return err
	}
	return eris.Wrapf(ErrRecognitionUnavailable, "%s: %v", f.rec.Name(), err)
}

// recognizeUnit returns the plain text of one unit, prefixed by its header.
func (f *Fallback) recognizeUnit(ctx context.Context, unit model.NormalizedUnit) (string, error) {
	label := unit.Label()
	pages, err := f.split(ctx, unit.Data)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: split %s", label)
	}

	parts := []string{Header(label)}
	for i, page := range pages {
		text, err := f.rec.RecognizeImage(ctx, page)
		if err != nil {
			return "", eris.Wrapf(err, "ocr: %s page %d", label, i+1)
		}
		if f.onPage != nil {
			f.onPage()
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	zap.L().Debug("ocr: unit recognised",
		zap.String("recognizer", f.rec.Name()),
		zap.String("unit", label),
		zap.Int("pages", len(pages)),
	)
	return strings.Join(parts, "\n"), nil
}

// RecognizeOption observes the progress of Recognize.
type RecognizeOption func(*recognizeHooks)

type recognizeHooks struct {
	start func(i int, unit model.NormalizedUnit)
	done  func(i int, unit model.NormalizedUnit, text string)
}

// OnUnitStart is called before unit i is recognised.
func OnUnitStart(fn func(i int, unit model.NormalizedUnit)) RecognizeOption {
	return func(h *recognizeHooks) { h.start = fn }
}

// OnUnitDone is called with the text of unit i once it is recognised. Units
// reported here stay valid when a later unit fails.
func OnUnitDone(fn func(i int, unit model.NormalizedUnit, text string)) RecognizeOption {
	return func(h *recognizeHooks) { h.done = fn }
}

// Recognize returns the plain text of all units joined in input order. It
// fails with ErrRecognitionUnavailable before touching any unit when the
// recognizer cannot run.
func (f *Fallback) Recognize(ctx context.Context, units []model.NormalizedUnit, opts ...RecognizeOption) (string, error) {
	var h recognizeHooks
	for _, o := range opts {
		o(&h)
	}
	if err := f.Available(); err != nil {
		return "", err
	}

	texts := make([]string, 0, len(units))
	for i, u := range units {
		if h.start != nil {
			h.start(i, u)
		}
		text, err := f.recognizeUnit(ctx, u)
		if err != nil {
			return strings.Join(texts, "\n\n"), err
		}
		texts = append(texts, text)
		if h.done != nil {
			h.done(i, u, text)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}
