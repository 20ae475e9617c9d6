package session

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/pipeline"
)

func testBatch() *model.Batch {
	return &model.Batch{Items: []model.UploadedItem{{Name: "a.png", Kind: model.MediaKindRaster, Data: []byte{1}}}}
}

func TestManager_CreateGet(t *testing.T) {
	m := NewManager()
	s := m.Create()
	assert.NotEmpty(t, s.ID)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSession_BeginBusy(t *testing.T) {
	s := NewManager().Create()
	instr := model.Instructions{Category: model.CategoryExam}
	title := "MCQ"

	_, _, _, err := s.Begin(testBatch(), &instr, &title)
	require.NoError(t, err)

	_, _, _, err = s.Begin(testBatch(), nil, nil)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.SetText("x"), ErrBusy)
	assert.True(t, s.Snapshot().Running)
}

func TestSession_RerunReusesBatch(t *testing.T) {
	s := NewManager().Create()

	_, _, _, err := s.Begin(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoBatch)

	instr := model.Instructions{Category: model.CategoryNotes, Text: "t"}
	title := "Week 2"
	_, _, _, err = s.Begin(testBatch(), &instr, &title)
	require.NoError(t, err)
	s.Finish(model.NewDocument(title), &pipeline.Failure{Kind: pipeline.FailureQuotaExceeded, Recoverable: true, Err: errors.New("429")})

	batch, gotInstr, gotTitle, err := s.Begin(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Len())
	assert.Equal(t, instr, gotInstr)
	assert.Equal(t, "Week 2", gotTitle)
	assert.Nil(t, s.Snapshot().Failure, "a new run clears the previous failure")
}

func TestSession_FinishWithRecoverableFailure(t *testing.T) {
	s := NewManager().Create()
	_, _, _, err := s.Begin(testBatch(), nil, nil)
	require.NoError(t, err)

	doc := model.NewDocument("T")
	doc.Append(model.TranscriptionResult{Label: "one.pdf", Text: "partial"})
	s.Finish(doc, &pipeline.Failure{Kind: pipeline.FailureQuotaExceeded, Recoverable: true, Completed: 1, Units: 2, Err: errors.New("429")})

	snap := s.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, "partial", snap.Text)
	assert.Equal(t, model.PhaseFailed, snap.Status.Phase)
	require.NotNil(t, snap.Failure)
	assert.True(t, snap.Failure.Recoverable)
	assert.True(t, snap.Failure.FallbackAvailable)
	assert.Equal(t, "quota_exceeded", snap.Failure.Kind)
	assert.Equal(t, 1, snap.Failure.Completed)
}

func TestSession_FinishWithPlainError(t *testing.T) {
	s := NewManager().Create()
	_, _, _, err := s.Begin(testBatch(), nil, nil)
	require.NoError(t, err)
	s.Finish(model.NewDocument(""), errors.New("panic recovered"))

	snap := s.Snapshot()
	require.NotNil(t, snap.Failure)
	assert.Equal(t, "internal", snap.Failure.Kind)
	assert.False(t, snap.Failure.FallbackAvailable)
}

func TestSession_SetTextAndDocument(t *testing.T) {
	s := NewManager().Create()

	_, err := s.Document()
	assert.ErrorIs(t, err, ErrNoDocument)

	require.NoError(t, s.SetText("# Edited\n* point"))
	s.SetTitle("Renal")

	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, "# Edited\n* point", doc.Text())
	assert.Equal(t, "Renal", doc.Title)
	assert.True(t, s.Snapshot().Edited)
}

func TestSession_FallbackHiddenWhenLocalUnavailable(t *testing.T) {
	m := NewManager(WithLocalCheck(func() error { return errors.New("tesseract not found") }))
	s := m.Create()
	_, _, _, err := s.Begin(testBatch(), nil, nil)
	require.NoError(t, err)
	s.Finish(model.NewDocument(""), &pipeline.Failure{Kind: pipeline.FailureQuotaExceeded, Recoverable: true, Err: errors.New("429")})

	snap := s.Snapshot()
	require.NotNil(t, snap.Failure)
	assert.True(t, snap.Failure.Recoverable)
	assert.False(t, snap.Failure.FallbackAvailable)
}

func TestSession_BeginAfterFinishKeepsNewStatus(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := NewManager().Create()
		_, _, _, err := s.Begin(testBatch(), nil, nil)
		require.NoError(t, err)
		ch, cancel := s.Subscribe()

		finished := make(chan struct{})
		go func() {
			s.Finish(model.NewDocument(""), nil)
			close(finished)
		}()
		for {
			if _, _, _, err := s.Begin(nil, nil, nil); err == nil {
				break
			}
			runtime.Gosched()
		}
		<-finished

		select {
		case st := <-ch:
			assert.Equal(t, model.PhaseDone, st.Phase)
		default:
			t.Fatal("terminal status not delivered before the next run began")
		}
		require.Equal(t, model.PhaseNormalizing, s.Snapshot().Status.Phase)
		assert.True(t, s.Snapshot().Running)
		cancel()
	}
}

func TestSession_Subscribe(t *testing.T) {
	s := NewManager().Create()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Publish(model.Status{Phase: model.PhaseTranscribing, Unit: 1, Units: 2})

	select {
	case st := <-ch:
		assert.Equal(t, model.PhaseTranscribing, st.Phase)
		assert.Equal(t, 2, st.Units)
	case <-time.After(time.Second):
		t.Fatal("no status received")
	}

	cancel()
	cancel()
	s.Publish(model.Status{Phase: model.PhaseDone})
	assert.Empty(t, ch)
}

func TestManager_Reap(t *testing.T) {
	m := NewManager()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle := m.Create()
	busy := m.Create()
	_, _, _, err := busy.Begin(testBatch(), nil, nil)
	require.NoError(t, err)

	now = now.Add(3 * time.Hour)
	fresh := m.Create()

	assert.Equal(t, 1, m.Reap(2*time.Hour))
	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestManager_RunReaperStops(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.RunReaper(ctx, time.Hour, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Preparing your files", Message(model.Status{Phase: model.PhaseNormalizing}, 0))
	assert.Equal(t, "Ready", Message(model.Status{Phase: model.PhaseIdle}, 3))

	first := Message(model.Status{Phase: model.PhaseTranscribing, Unit: 1, Units: 1}, 0)
	second := Message(model.Status{Phase: model.PhaseTranscribing, Unit: 1, Units: 1}, 1)
	assert.NotEqual(t, first, second)

	assert.Contains(t, Message(model.Status{Phase: model.PhaseTranscribing, Unit: 2, Units: 3}, 7), "(file 2 of 3)")
	assert.Equal(t, "Recognising text locally (file 1 of 2)", Message(model.Status{Phase: model.PhaseRecognizing, Unit: 1, Units: 2}, 0))
}
