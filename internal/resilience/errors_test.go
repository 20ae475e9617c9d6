package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
)

func TestHTTPError_Message(t *testing.T) {
	err := NewHTTPError("gemini", 429, []byte(`{"error":"quota"}`))
	if got := err.Error(); got != `gemini: http 429: {"error":"quota"}` {
		t.Errorf("unexpected message %q", got)
	}

	bare := NewHTTPError("webhook", 500, nil)
	if got := bare.Error(); got != "webhook: http 500" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestHTTPError_TruncatesBody(t *testing.T) {
	err := NewHTTPError("gemini", 500, []byte(strings.Repeat("x", 2000)))
	if len(err.Body) != 512 {
		t.Errorf("expected body truncated to 512, got %d", len(err.Body))
	}
}

func TestStatusCode_FromChain(t *testing.T) {
	inner := NewHTTPError("gemini", 429, nil)
	wrapped := eris.Wrap(fmt.Errorf("upload: %w", inner), "transcribe: upload")
	if got := StatusCode(wrapped); got != 429 {
		t.Errorf("expected 429, got %d", got)
	}
	if !IsRateLimited(wrapped) {
		t.Error("expected wrapped 429 to be rate limited")
	}
}

func TestStatusCode_None(t *testing.T) {
	if got := StatusCode(errors.New("quota exceeded")); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	// Message text never decides classification.
	if IsRateLimited(errors.New("429 Too Many Requests: quota exceeded")) {
		t.Error("plain error text must not be classified as rate limited")
	}
}

func TestStatusCode_TransientError(t *testing.T) {
	err := NewTransientError(errors.New("busy"), 503)
	if got := StatusCode(err); got != 503 {
		t.Errorf("expected 503, got %d", got)
	}
}

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_HTTPError(t *testing.T) {
	if !IsTransient(NewHTTPError("webhook", 502, nil)) {
		t.Error("expected 502 to be transient")
	}
	if IsTransient(NewHTTPError("webhook", 400, nil)) {
		t.Error("expected 400 to be permanent")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	if IsTransient(errors.New("invalid input: missing field")) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_Syscalls(t *testing.T) {
	for _, errno := range []error{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		err := fmt.Errorf("dial tcp: %w", errno)
		if !IsTransient(err) {
			t.Errorf("%v should be transient", errno)
		}
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 409, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to NOT be transient", code)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)

	if !errors.Is(te, inner) {
		t.Error("TransientError.Unwrap should return the inner error")
	}
	if te.Error() != "root cause" {
		t.Errorf("unexpected message %q", te.Error())
	}
}
