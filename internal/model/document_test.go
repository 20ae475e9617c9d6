package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulatedDocument_Text(t *testing.T) {
	t.Parallel()

	doc := NewDocument("Cardiology")
	assert.True(t, doc.Empty())

	doc.Append(TranscriptionResult{Label: "a.png", Text: "# First\n"})
	doc.Append(TranscriptionResult{Label: "b.pdf", Text: "  "})
	doc.Append(TranscriptionResult{Label: "c.pdf", Text: "second"})

	assert.Equal(t, "# First\n\nsecond", doc.Text())
	assert.Len(t, doc.Results, 3)
	assert.False(t, doc.Empty())
}

func TestAccumulatedDocument_SetText(t *testing.T) {
	t.Parallel()

	doc := NewDocument("t")
	doc.Append(TranscriptionResult{Text: "original"})
	doc.SetText("edited by hand")

	assert.True(t, doc.Edited)
	assert.Equal(t, "edited by hand", doc.Text())

	doc.Append(TranscriptionResult{Text: "later"})
	assert.Equal(t, "edited by hand", doc.Text())
}

func TestNormalizedUnit_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unit", NormalizedUnit{}.Label())
	assert.Equal(t, "a.pdf", NormalizedUnit{Sources: []string{"a.pdf"}}.Label())
	assert.Equal(t, "a.png, b.png", NormalizedUnit{Sources: []string{"a.png", "b.png"}, Synthesized: true}.Label())
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, Status{Phase: PhaseTranscribing}.Terminal())
	assert.True(t, Status{Phase: PhaseDone}.Terminal())
	assert.True(t, Status{Phase: PhaseFailed}.Terminal())
}
