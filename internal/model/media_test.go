package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindFromMIME(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime string
		want MediaKind
	}{
		{"image/png", MediaKindRaster},
		{"image/jpeg", MediaKindRaster},
		{"IMAGE/JPEG", MediaKindRaster},
		{"application/pdf", MediaKindDocument},
		{"application/pdf; charset=binary", MediaKindDocument},
	}
	for _, tt := range tests {
		got, err := KindFromMIME(tt.mime)
		require.NoError(t, err, tt.mime)
		assert.Equal(t, tt.want, got, tt.mime)
	}
}

func TestKindFromMIME_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := KindFromMIME("text/plain")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))
}

func TestDetectKind_FallsBackToName(t *testing.T) {
	t.Parallel()

	kind, err := DetectKind("scan.PDF", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, MediaKindDocument, kind)

	kind, err = DetectKind("board.jpeg", "")
	require.NoError(t, err)
	assert.Equal(t, MediaKindRaster, kind)

	_, err = DetectKind("notes.txt", "")
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestBatch_Count(t *testing.T) {
	t.Parallel()

	b := Batch{Items: []UploadedItem{
		{Name: "a.png", Kind: MediaKindRaster},
		{Name: "b.pdf", Kind: MediaKindDocument},
		{Name: "c.jpg", Kind: MediaKindRaster},
	}}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, MediaKindDocument, b.Items[1].Kind)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, ok := ParseMode("")
	assert.True(t, ok)
	assert.Equal(t, ModeAI, m)

	m, ok = ParseMode("local")
	assert.True(t, ok)
	assert.Equal(t, ModeLocalFallback, m)

	_, ok = ParseMode("cloud")
	assert.False(t, ok)
}
