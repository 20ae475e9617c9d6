package pipeline

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/amrsdek/MedMate-App/internal/normalize"
	"github.com/amrsdek/MedMate-App/internal/ocr"
	"github.com/amrsdek/MedMate-App/internal/transcribe"
)

// FailureKind names why a run stopped.
type FailureKind string

const (
	FailureDecode                 FailureKind = "decode"
	FailureQuotaExceeded          FailureKind = "quota_exceeded"
	FailureTimeout                FailureKind = "timeout"
	FailureRemote                 FailureKind = "remote"
	FailureRemoteDisabled         FailureKind = "remote_disabled"
	FailureRecognitionUnavailable FailureKind = "recognition_unavailable"
	FailureRecognition            FailureKind = "recognition"
	FailureInternal               FailureKind = "internal"
)

// Failure is returned alongside the (possibly partial) document when a run
// does not complete. Recoverable failures can be redone in local fallback
// mode over the same batch.
type Failure struct {
	Kind        FailureKind
	Recoverable bool
	// Completed is the number of units transcribed before the failure.
	Completed int
	Units     int
	Err       error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("pipeline: %s after %d/%d units: %v", f.Kind, f.Completed, f.Units, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Message is a short human-readable description for the presentation layer.
func (f *Failure) Message() string {
	switch f.Kind {
	case FailureDecode:
		var de *normalize.DecodeError
		if errors.As(f.Err, &de) {
			return fmt.Sprintf("Could not read image %q. Remove it and try again.", de.Name)
		}
		return "One of the uploaded images could not be read."
	case FailureQuotaExceeded:
		return "The AI service quota is exhausted. You can redo this batch with local text recognition."
	case FailureRemoteDisabled:
		return "AI transcription is not configured. You can use local text recognition instead."
	case FailureTimeout:
		return "The AI service did not finish processing the file in time."
	case FailureRemote:
		return "The AI service failed to transcribe the file."
	case FailureRecognitionUnavailable:
		return "Local text recognition is not installed on this server."
	case FailureRecognition:
		return "Local text recognition failed."
	default:
		return "The conversion failed."
	}
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func remoteFailure(err error, completed, units int) *Failure {
	f := &Failure{Kind: FailureRemote, Completed: completed, Units: units, Err: err}
	switch {
	case transcribe.IsQuotaExceeded(err):
		f.Kind = FailureQuotaExceeded
		f.Recoverable = true
	case transcribe.IsTimeout(err):
		f.Kind = FailureTimeout
	}
	return f
}

func localFailure(err error, completed, units int) *Failure {
	kind := FailureRecognition
	if errors.Is(err, ocr.ErrRecognitionUnavailable) {
		kind = FailureRecognitionUnavailable
	}
	return &Failure{Kind: kind, Completed: completed, Units: units, Err: err}
}

var (
	errRemoteDisabled    = eris.New("remote transcription is not configured")
	errRecognizerMissing = eris.Wrap(ocr.ErrRecognitionUnavailable, "no recognizer configured")
)
