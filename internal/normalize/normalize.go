// Package normalize turns an upload batch into PDF units: every raster image
// is merged, in upload order, into one synthesized PDF, and uploaded PDFs
// pass through untouched.
package normalize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // register decoder
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/amrsdek/MedMate-App/internal/model"
)

const (
	// maxEdge bounds the longest side of an imported page image in pixels.
	maxEdge     = 3000
	jpegQuality = 90
)

// DecodeError reports a raster item that could not be decoded. It aborts
// normalization before any remote call is made.
type DecodeError struct {
	Index int
	Name  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("normalize: item %d (%s) is not a decodable image: %v", e.Index, e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// MergeFunc combines JPEG page images into one PDF, one page per image.
type MergeFunc func(pages [][]byte) ([]byte, error)

// PageCounter reports the number of pages in a PDF.
type PageCounter func(pdf []byte) (int, error)

// Normalizer converts batches into units.
type Normalizer struct {
	merge MergeFunc
	count PageCounter
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMerge replaces the PDF merge step.
func WithMerge(fn MergeFunc) Option {
	return func(n *Normalizer) { n.merge = fn }
}

// WithPageCounter replaces the page counter.
func WithPageCounter(fn PageCounter) Option {
	return func(n *Normalizer) { n.count = fn }
}

// New creates a Normalizer backed by pdfcpu.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{merge: MergeImages, count: PageCount}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the units of batch ordered by upload position. The
// synthesized unit takes the position of the first raster item.
func (n *Normalizer) Normalize(ctx context.Context, batch model.Batch) ([]model.NormalizedUnit, error) {
	if batch.Len() == 0 {
		return nil, nil
	}

	var (
		units   []model.NormalizedUnit
		pages   [][]byte
		sources []string
		first   = -1
	)

	for i, item := range batch.Items {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "normalize: cancelled")
		}

		switch item.Kind {
		case model.MediaKindDocument:
			units = append(units, model.NormalizedUnit{
				Position: i,
				Sources:  []string{item.Name},
				Pages:    n.pages(item.Data, item.Name),
				Data:     item.Data,
			})
		case model.MediaKindRaster:
			page, err := toJPEG(item.Data)
			if err != nil {
				return nil, &DecodeError{Index: i, Name: item.Name, Err: err}
			}
			if first < 0 {
				first = i
			}
			pages = append(pages, page)
			sources = append(sources, item.Name)
		default:
			return nil, eris.Wrapf(model.ErrUnsupportedMedia, "normalize: item %d (%s)", i, item.Name)
		}
	}

	if len(pages) > 0 {
		pdf, err := n.merge(pages)
		if err != nil {
			return nil, eris.Wrap(err, "normalize: merge images")
		}
		units = append(units, model.NormalizedUnit{
			Position:    first,
			Sources:     sources,
			Synthesized: true,
			Pages:       len(pages),
			Data:        pdf,
		})
	}

	sort.SliceStable(units, func(a, b int) bool { return units[a].Position < units[b].Position })

	zap.L().Debug("normalize: batch normalized",
		zap.Int("items", batch.Len()),
		zap.Int("units", len(units)),
		zap.Int("images", len(pages)),
	)
	return units, nil
}

func (n *Normalizer) pages(pdf []byte, name string) int {
	count, err := n.count(pdf)
	if err != nil {
		// Pages stays 0; the document still passes through.
		zap.L().Debug("normalize: page count unavailable", zap.String("item", name), zap.Error(err))
		return 0
	}
	return count
}

// toJPEG decodes a raster image, flattens it onto white in an opaque RGB
// model, bounds its size and re-encodes it as JPEG.
func toJPEG(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, eris.New("empty image")
	}
	if longest := max(w, h); longest > maxEdge {
		w = w * maxEdge / longest
		h = h * maxEdge / longest
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, eris.Wrap(err, "encode jpeg")
	}
	return buf.Bytes(), nil
}

// MergeImages imports each image as one page of a new PDF using pdfcpu.
func MergeImages(pages [][]byte) ([]byte, error) {
	readers := make([]io.Reader, len(pages))
	for i, p := range pages {
		readers[i] = bytes.NewReader(p)
	}

	var out bytes.Buffer
	conf := pdfmodel.NewDefaultConfiguration()
	if err := api.ImportImages(nil, &out, readers, pdfcpu.DefaultImportConfig(), conf); err != nil {
		return nil, eris.Wrap(err, "pdfcpu import images")
	}
	return out.Bytes(), nil
}

// PageCount reports the number of pages of a PDF using pdfcpu.
func PageCount(pdf []byte) (int, error) {
	conf := pdfmodel.NewDefaultConfiguration()
	n, err := api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, eris.Wrap(err, "pdfcpu page count")
	}
	return n, nil
}
