package transcribe

import (
	"errors"
	"fmt"

	"github.com/amrsdek/MedMate-App/internal/resilience"
)

// Kind classifies a transcription failure.
type Kind string

const (
	// KindQuotaExceeded means the remote service refused work because a
	// usage limit was reached. The caller may fall back to local recognition.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindTimeout means the uploaded unit never became ready.
	KindTimeout Kind = "timeout"
	// KindRemote covers every other remote failure.
	KindRemote Kind = "remote"
)

// Error is a classified transcription failure for one unit.
type Error struct {
	Kind Kind
	Unit string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcribe: %s: %s: %v", e.Unit, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsQuotaExceeded reports whether err is a quota failure.
func IsQuotaExceeded(err error) bool {
	return kindOf(err) == KindQuotaExceeded
}

// IsTimeout reports whether err is a readiness timeout.
func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}

func kindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// classify wraps an engine error for the given unit. Only the HTTP status
// decides the kind.
func classify(unit string, err error) *Error {
	kind := KindRemote
	if resilience.IsRateLimited(err) {
		kind = KindQuotaExceeded
	}
	return &Error{Kind: kind, Unit: unit, Err: err}
}
