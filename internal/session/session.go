// Package session holds per-user conversion state between HTTP requests.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/pipeline"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = eris.New("session: not found")
	// ErrBusy is returned when a run is already in progress.
	ErrBusy = eris.New("session: a conversion is already running")
	// ErrNoBatch is returned when a re-run is requested before any upload.
	ErrNoBatch = eris.New("session: no batch uploaded")
	// ErrNoDocument is returned when editing before any run produced text.
	ErrNoDocument = eris.New("session: no document yet")
)

// Session is the explicit state of one user: the last batch, its
// instructions, the accumulated document and the run status.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	running  bool
	title    string
	batch    model.Batch
	instr    model.Instructions
	doc      *model.AccumulatedDocument
	status   model.Status
	failure  *pipeline.Failure
	runs     int
	subs     map[chan model.Status]struct{}

	// localCheck reports whether a local fallback run can work.
	localCheck func() error
}

// Snapshot is a consistent copy of a session's visible state.
type Snapshot struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Status      model.Status       `json:"status"`
	Message     string             `json:"message"`
	Running     bool               `json:"running"`
	Text        string             `json:"text"`
	Edited      bool               `json:"edited"`
	Results     int                `json:"results"`
	HasBatch    bool               `json:"has_batch"`
	Instruction model.Instructions `json:"instructions"`
	Failure     *FailureView       `json:"failure,omitempty"`
}

// FailureView is the presentation form of a pipeline failure.
type FailureView struct {
	Kind              string `json:"kind"`
	Message           string `json:"message"`
	Recoverable       bool   `json:"recoverable"`
	FallbackAvailable bool   `json:"fallback_available"`
	Completed         int    `json:"completed"`
	Units             int    `json:"units"`
}

func newSession(now time.Time, localCheck func() error) *Session {
	return &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		lastSeen:   now,
		status:     model.Status{Phase: model.PhaseIdle},
		subs:       make(map[chan model.Status]struct{}),
		localCheck: localCheck,
	}
}

// Begin marks the session as running with the given batch. A nil batch
// reuses the previous one, which is how a fallback re-run is started.
func (s *Session) Begin(batch *model.Batch, instr *model.Instructions, title *string) (model.Batch, model.Instructions, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return model.Batch{}, model.Instructions{}, "", ErrBusy
	}
	if batch != nil {
		s.batch = *batch
	} else if s.batch.Len() == 0 {
		return model.Batch{}, model.Instructions{}, "", ErrNoBatch
	}
	if instr != nil {
		s.instr = *instr
	}
	if title != nil {
		s.title = *title
	}
	s.running = true
	s.failure = nil
	s.runs++
	s.status = model.Status{Phase: model.PhaseNormalizing}
	return s.batch, s.instr, s.title, nil
}

// Finish stores the outcome of the current run.
func (s *Session) Finish(doc *model.AccumulatedDocument, err error) {
	s.mu.Lock()
	s.running = false
	s.doc = doc
	s.failure = nil
	if f, ok := pipeline.AsFailure(err); ok {
		s.failure = f
	} else if err != nil {
		s.failure = &pipeline.Failure{Kind: pipeline.FailureInternal, Err: err}
	}
	final := model.Status{Phase: model.PhaseDone}
	if s.failure != nil {
		final = model.Status{Phase: model.PhaseFailed, Unit: s.failure.Completed, Units: s.failure.Units}
	}
	// Must happen under the lock that clears running: a Begin may follow.
	s.publishLocked(final)
	s.mu.Unlock()
}

// Publish updates the status and notifies subscribers. It is safe to use as
// a pipeline.StatusFunc.
func (s *Session) Publish(st model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(st)
}

func (s *Session) publishLocked(st model.Status) {
	s.status = st
	for ch := range s.subs {
		select {
		case ch <- st:
		default:
			// Slow subscriber; it will catch up from the next update.
		}
	}
}

// Subscribe returns a channel of status updates and a cancel func.
func (s *Session) Subscribe() (<-chan model.Status, func()) {
	ch := make(chan model.Status, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
}

// SetText replaces the document body with a manual edit.
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrBusy
	}
	if s.doc == nil {
		s.doc = model.NewDocument(s.title)
	}
	s.doc.SetText(text)
	return nil
}

// SetTitle changes the title used for rendering.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
	if s.doc != nil {
		s.doc.Title = title
	}
}

// Document returns a copy of the current document.
func (s *Session) Document() (*model.AccumulatedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || s.doc.Empty() {
		return nil, ErrNoDocument
	}
	cp := *s.doc
	cp.Results = append([]model.TranscriptionResult(nil), s.doc.Results...)
	if cp.Title == "" {
		cp.Title = s.title
	}
	return &cp, nil
}

// Snapshot returns the visible state.
func (s *Session) Snapshot() Snapshot {
	localOK := s.localCheck == nil || s.localCheck() == nil

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.ID,
		Title:       s.title,
		Status:      s.status,
		Message:     Message(s.status, s.runs+int(time.Since(s.CreatedAt)/(3*time.Second))),
		Running:     s.running,
		HasBatch:    s.batch.Len() > 0,
		Instruction: s.instr,
	}
	if s.doc != nil {
		snap.Text = s.doc.Text()
		snap.Edited = s.doc.Edited
		snap.Results = len(s.doc.Results)
	}
	if f := s.failure; f != nil {
		snap.Failure = &FailureView{
			Kind:              string(f.Kind),
			Message:           f.Message(),
			Recoverable:       f.Recoverable,
			FallbackAvailable: f.Recoverable && localOK,
			Completed:         f.Completed,
			Units:             f.Units,
		}
	}
	return snap
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.running && now.Sub(s.lastSeen) > ttl
}
