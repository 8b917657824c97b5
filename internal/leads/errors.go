package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/origo/signalcheck/internal/quiz"
)

var ErrNotFound = errors.New("not found")

// Failure kinds carried by StoreError.
var (
	ErrValidation    = errors.New("lead rejected")
	ErrTransient     = errors.New("lead store unavailable")
	ErrConfiguration = errors.New("lead store misconfigured")
)

// StoreError is returned by write paths of the lead store. errors.Is matches
// both its kind and the underlying cause.
type StoreError struct {
	Op   string
	kind error
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.kind, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{e.kind, e.Err} }

// Kind is one of ErrValidation, ErrTransient or ErrConfiguration.
func (e *StoreError) Kind() error { return e.kind }

func (e *StoreError) Retryable() bool { return e.kind == ErrTransient }

func (e *StoreError) FailureKind() quiz.FailureKind {
	switch e.kind {
	case ErrValidation:
		return quiz.FailureValidation
	case ErrConfiguration:
		return quiz.FailureConfiguration
	}
	return quiz.FailureTransient
}

func validationError(op, msg string) *StoreError {
	return &StoreError{Op: op, kind: ErrValidation, Err: errors.New(msg)}
}

// classify maps a database error onto a failure kind. libSQL reports most
// conditions only through the message text.
func classify(op string, err error) *StoreError {
	if err == nil {
		return nil
	}
	var serr *StoreError
	if errors.As(err, &serr) {
		return serr
	}

	kind := ErrTransient
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "no such table"),
			strings.Contains(msg, "no such column"),
			strings.Contains(msg, "readonly"),
			strings.Contains(msg, "permission denied"),
			strings.Contains(msg, "not authorized"),
			strings.Contains(msg, "unable to open database"):
			kind = ErrConfiguration
		case strings.Contains(msg, "constraint failed"),
			strings.Contains(msg, "malformed json"),
			strings.Contains(msg, "datatype mismatch"):
			kind = ErrValidation
		}
	}
	return &StoreError{Op: op, kind: kind, Err: err}
}
