package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	t.Parallel()

	html, err := Preview("# Title\n* **bold** item\n\n| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)

	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "Title</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>2</td>")
}

func TestPreview_Sanitizes(t *testing.T) {
	t.Parallel()

	html, err := Preview("hello <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "javascript:")
}
