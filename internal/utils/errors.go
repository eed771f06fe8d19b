package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

// Error is the caller-facing message; Field is kept separately.
func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a missing region, boundary or record.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// RateLimitedError is returned when the cooldown gate rejects a submission.
type RateLimitedError struct {
	DaysRemaining int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("You can take the assessment again in %s.", Days(e.DaysRemaining))
}

// Days renders a day count as "1 day" or "N days".
func Days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// StoreError wraps a persistence failure. Its detail is logged, never returned
// to clients.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

func NotFound(resource, key string) error { return &NotFoundError{Resource: resource, Key: key} }

func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		rl *RateLimitedError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &rl):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
