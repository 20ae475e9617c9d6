package model

import "time"

// Mode selects the transcription path for a run.
type Mode string

const (
	ModeAI            Mode = "ai"
	ModeLocalFallback Mode = "local"
)

// ParseMode maps user input to a Mode. Empty input means ModeAI.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeAI, "":
		return ModeAI, true
	case ModeLocalFallback:
		return ModeLocalFallback, true
	default:
		return "", false
	}
}

// RunStatus represents the outcome state of a conversion run.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusComplete    RunStatus = "complete"
	RunStatusRecoverable RunStatus = "recoverable"
	RunStatusFailed      RunStatus = "failed"
)

// Run is the ledger entry of one conversion. It never holds document text.
type Run struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Mode       Mode       `json:"mode"`
	Items      int        `json:"items"`
	Units      int        `json:"units"`
	Completed  int        `json:"completed"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunOutcome is what a finished run reports to the ledger.
type RunOutcome struct {
	Units     int
	Completed int
	Status    RunStatus
	Error     string
}

// Phase is the coarse progress state of a run, published for display.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseNormalizing  Phase = "normalizing"
	PhaseTranscribing Phase = "transcribing"
	PhaseRecognizing  Phase = "recognizing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// Status is a snapshot of run progress.
type Status struct {
	Phase Phase  `json:"phase"`
	Unit  int    `json:"unit,omitempty"`
	Units int    `json:"units,omitempty"`
	Label string `json:"label,omitempty"`
}

// Terminal reports whether the phase ends a run.
func (s Status) Terminal() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseFailed
}

// Comment is one feedback submission.
type Comment struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
