package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSubmitInFlight   = errors.New("submission already in progress")
	ErrAlreadySubmitted = errors.New("assessment already submitted")
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrNoResult         = errors.New("no result available")

	// ErrLabelRequired rejects a numeric answer to an unscored multiple
	// choice question, whose option values do not identify an option.
	ErrLabelRequired = errors.New("answer must be an option label")
)

// IncompleteReason distinguishes why a quiz cannot be submitted yet.
type IncompleteReason string

const (
	MissingContact      IncompleteReason = "missing_contact"
	UnansweredQuestions IncompleteReason = "unanswered_questions"
)

// IncompleteError lists the questions that block submission.
type IncompleteError struct {
	Reason      IncompleteReason
	QuestionIDs []string
}

func (e *IncompleteError) Error() string {
	switch e.Reason {
	case MissingContact:
		return "contact details are incomplete: " + strings.Join(e.QuestionIDs, ", ")
	default:
		return "questions still unanswered: " + strings.Join(e.QuestionIDs, ", ")
	}
}

// FailureKind classifies a failed persistence call.
type FailureKind string

const (
	// FailureValidation means the record was rejected as is; resubmitting
	// unchanged data will fail again.
	FailureValidation FailureKind = "validation"
	// FailureTransient covers connection problems and timeouts.
	FailureTransient FailureKind = "transient"
	// FailureConfiguration means an operator must fix the store.
	FailureConfiguration FailureKind = "configuration"
	FailureUnknown       FailureKind = "unknown"
)

// Retryable reports whether resubmitting without changes may succeed.
func (k FailureKind) Retryable() bool {
	return k == FailureTransient || k == FailureUnknown
}

// Classifier is implemented by errors that know their failure kind.
type Classifier interface {
	FailureKind() FailureKind
}

// SubmissionError wraps an error returned by the Submitter.
type SubmissionError struct {
	Kind FailureKind
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submitting assessment (%s): %v", e.Kind, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func classify(err error) FailureKind {
	var c Classifier
	if errors.As(err, &c) {
		return c.FailureKind()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTransient
	}
	return FailureUnknown
}
