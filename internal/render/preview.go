package render

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	policy = bluemonday.UGCPolicy()
)

// Preview renders dialect text as sanitized HTML for on-screen review.
func Preview(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", eris.Wrap(err, "render: convert markdown")
	}
	return string(policy.SanitizeBytes(buf.Bytes())), nil
}
