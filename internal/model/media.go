package model

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// MediaKind classifies an uploaded item. It is decided once at ingestion.
type MediaKind string

const (
	MediaKindRaster   MediaKind = "raster_image"
	MediaKindDocument MediaKind = "page_document"
)

// ErrUnsupportedMedia is returned for uploads that are neither a raster
// image nor a PDF.
var ErrUnsupportedMedia = eris.New("model: unsupported media type")

// KindFromMIME maps a declared MIME type to a MediaKind.
func KindFromMIME(mime string) (MediaKind, error) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "image/png", "image/jpeg", "image/jpg", "image/bmp", "image/tiff", "image/webp":
		return MediaKindRaster, nil
	case "application/pdf":
		return MediaKindDocument, nil
	default:
		return "", eris.Wrapf(ErrUnsupportedMedia, "mime %q", mime)
	}
}

// KindFromName maps a file extension to a MediaKind. Used when the client
// does not declare a usable MIME type.
func KindFromName(name string) (MediaKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return MediaKindRaster, nil
	case ".pdf":
		return MediaKindDocument, nil
	default:
		return "", eris.Wrapf(ErrUnsupportedMedia, "file %q", name)
	}
}

// DetectKind prefers the declared MIME type and falls back to the file name.
func DetectKind(name, mime string) (MediaKind, error) {
	if kind, err := KindFromMIME(mime); err == nil {
		return kind, nil
	}
	return KindFromName(name)
}
