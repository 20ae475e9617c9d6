//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amrsdek/MedMate-App/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(2 * time.Minute)
	runs := []model.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			SessionID:  "sess0001-0000-0000-0000-000000000000",
			Mode:       model.ModeAI,
			Status:     model.RunStatusComplete,
			Units:      3,
			Completed:  3,
			CreatedAt:  now,
			FinishedAt: &done,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Mode:      model.ModeLocalFallback,
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "SESSION")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "sess0001")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "3/3")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "cli")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestComputeRunStats(t *testing.T) {
	now := time.Now()
	done := now.Add(10 * time.Second)
	runs := []model.Run{
		{Status: model.RunStatusComplete, Mode: model.ModeAI, Units: 2, Completed: 2, CreatedAt: now, FinishedAt: &done},
		{Status: model.RunStatusRecoverable, Mode: model.ModeAI, Units: 4, Completed: 1, CreatedAt: now, FinishedAt: &done},
		{Status: model.RunStatusFailed, Mode: model.ModeLocalFallback, Units: 1, CreatedAt: now},
		{Status: model.RunStatusRunning, Mode: model.ModeAI, CreatedAt: now},
		{Status: model.RunStatusComplete, Mode: model.ModeAI, CreatedAt: now.Add(-72 * time.Hour)},
	}

	s := computeRunStats(runs, now.Add(-24*time.Hour))
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Recoverable)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 1, s.Local)
	assert.Equal(t, 7, s.Units)
	assert.Equal(t, 3, s.Completed)
	assert.InDelta(t, 10.0, s.AvgDurSecs, 0.01)

	all := computeRunStats(runs, time.Time{})
	assert.Equal(t, 5, all.Total)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 3, Complete: 2, Failed: 1, Units: 5, Completed: 4, AvgDurSecs: 12.5})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "4/5")
	assert.Contains(t, output, "12.5s")
}

func TestFormatRunStats_NoDuration(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{})
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

func TestFormatFeedback(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	long := ""
	for i := 0; i < 20; i++ {
		long += "word "
	}
	var buf bytes.Buffer
	formatFeedback(&buf, []model.Comment{
		{Text: "great\ntool", Rating: 5, CreatedAt: now},
		{Text: long, CreatedAt: now},
	})

	output := buf.String()
	assert.Contains(t, output, "great tool")
	assert.Contains(t, output, "5/5")
	assert.Contains(t, output, "...")
	assert.Contains(t, output, "2025-06-15 10:30")
}
