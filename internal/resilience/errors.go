package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// HTTPError is a non-2xx response from a remote HTTP API.
type HTTPError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.StatusCode, e.Body)
}

// HTTPStatus reports the response status code.
func (e *HTTPError) HTTPStatus() int {
	return e.StatusCode
}

// NewHTTPError builds an HTTPError, truncating long bodies.
func NewHTTPError(service string, statusCode int, body []byte) *HTTPError {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &HTTPError{Service: service, StatusCode: statusCode, Body: string(body)}
}

// TransientError wraps an error that is safe to retry.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// HTTPStatus reports the status code the error was classified from, if any.
func (e *TransientError) HTTPStatus() int {
	return e.StatusCode
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

type statusCoder interface {
	HTTPStatus() int
}

// StatusCode returns the first HTTP status code found in err's chain, or 0.
func StatusCode(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// IsRateLimited reports whether err carries a 429 Too Many Requests status.
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsTransient returns true if the error chain holds a TransientError, an
// HTTPError with a transient status, a network timeout or a dropped connection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var he *HTTPError
	if errors.As(err, &he) {
		return IsTransientHTTPStatus(he.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED)
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
