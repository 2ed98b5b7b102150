package services

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

var (
	// ErrNotFound covers both upstream 404s and missing documents.
	ErrNotFound = store.ErrNotFound
	// ErrTimeout is returned when a request deadline is exceeded.
	ErrTimeout = errors.New("request timeout - the API is taking too long to respond")
	// ErrSetNotFound is returned when the first page of a set's cards is a 404.
	ErrSetNotFound = fmt.Errorf("set not found or has no cards: %w", ErrNotFound)
	// ErrSeedInProgress is returned when a seed job is already running.
	ErrSeedInProgress = errors.New("a seed job is already running")
	// ErrForbidden is returned when a user acts on another user's record.
	ErrForbidden = errors.New("record belongs to another user")
	// ErrAssignmentNotActive is returned when collecting against an
	// assignment that is not accepted or active.
	ErrAssignmentNotActive = errors.New("assignment is not accepted")

	errNoMorePages = errors.New("no more pages")
)

// APIError is a non-2xx, non-404 upstream response.
type APIError struct {
	Service    string
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Service, e.Status)
}

// ValidationError reports malformed local input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// requestErr converts transport failures into ErrTimeout where the deadline
// was hit, leaving other errors wrapped as they are.
func requestErr(service string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w", service, ErrTimeout)
	}
	return fmt.Errorf("%s request failed: %w", service, err)
}

// isTransient reports whether a failed call is worth retrying.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, errNoMorePages) {
		return false
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
