// Package apierror classifies Google API and network errors for retry and
// translates them into the domain's NetworkError/APIError kinds, adapted
// from the teacher's drive/errors.go.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/googleapi"
)

// APIError wraps a non-retryable Google API failure with the operation that
// triggered it.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *APIError) Unwrap() error { return e.Err }

// NetworkError wraps a non-retryable transport failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// statusCoder is implemented by the HTTP fetcher's httpStatusError, letting
// ShouldRetry and Translate classify it by status code without importing the
// fetch package. *googleapi.Error is matched separately by its Code field.
type statusCoder interface {
	StatusCode() int
}

// ShouldRetry decides whether err, returned from a Drive API or plain HTTP
// call, deserves a retry. It mirrors the teacher's shouldRetry: 5xx and
// rate-limit responses retry; quota-exhaustion and auth failures do not.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code >= 500 && gerr.Code < 600 {
			return true
		}
		if gerr.Code == 403 {
			msg := strings.ToLower(gerr.Message)
			if strings.Contains(msg, "rate limit") || strings.Contains(msg, "ratelimitexceeded") {
				return true
			}
			// Quota/storage exhaustion will not resolve itself by retrying.
			return false
		}
		if gerr.Code == 429 {
			return true
		}
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code == 429 || (code >= 500 && code < 600)
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := err.Error()
	for _, transient := range []string{
		"connection reset by peer",
		"TLS handshake timeout",
		"timeout awaiting response headers",
		"broken connection",
		"EOF",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}

	return false
}

// Translate wraps err as an APIError (for googleapi.Error or a status-coded
// HTTP error) or NetworkError (for everything else), for use once retries
// are exhausted.
func Translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{Op: op, Err: err}
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return &APIError{Op: op, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}
