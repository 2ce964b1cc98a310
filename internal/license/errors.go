package license

import (
	"errors"
	"fmt"
	"net/http"
)

// RegistrationError is returned when a license or trial cannot be assigned.
// Result carries the reason so callers can branch without string matching;
// ResultError means the server could not be reached or answered nonsense,
// in which case Err holds the cause.
type RegistrationError struct {
	Result  Result
	Message string
	Err     error
}

func (e *RegistrationError) Error() string {
	msg := fmt.Sprintf("license registration failed (%s)", e.Result)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// TransportError is a failure to exchange a request with a license server.
// It never implies anything about the license itself.
type TransportError struct {
	Domain string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to license server %s failed: %v", e.Domain, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a response from a license server that carries no verdict.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("license server error (status %d): %s", e.StatusCode, e.Message)
}

// IsRetriable reports whether a failed remote call may succeed when repeated.
// Transport failures, throttling and 5xx responses are retriable.
func IsRetriable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests ||
			(se.StatusCode >= http.StatusInternalServerError && se.StatusCode <= http.StatusGatewayTimeout)
	}
	return false
}

// IsSyncFailure reports whether err is a transport or server failure rather
// than a verdict.
func IsSyncFailure(err error) bool {
	var te *TransportError
	var se *ServerError
	return errors.As(err, &te) || errors.As(err, &se)
}
