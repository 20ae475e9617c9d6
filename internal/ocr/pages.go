package ocr

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
)

// Splitter returns the page images of a PDF in page order.
type Splitter func(ctx context.Context, pdf []byte) ([][]byte, error)

// ExtractPageImages pulls the embedded raster images out of every page
// using pdfcpu. Scanned documents and synthesized units carry one image per
// page; pages without images contribute nothing.
func ExtractPageImages(ctx context.Context, pdf []byte) ([][]byte, error) {
	conf := pdfmodel.NewDefaultConfiguration()
	perPage, err := api.ExtractImagesRaw(bytes.NewReader(pdf), nil, conf)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: extract page images")
	}

	var out [][]byte
	for _, images := range perPage {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		objNrs := make([]int, 0, len(images))
		for nr := range images {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		for _, nr := range objNrs {
			data, err := io.ReadAll(images[nr])
			if err != nil {
				return nil, eris.Wrapf(err, "ocr: read image object %d", nr)
			}
			out = append(out, data)
		}
	}
	return out, nil
}
