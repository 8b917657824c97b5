// Package quiz drives one visitor through the assessment: answer collection,
// clamped navigation, the completion check and a one-shot submission whose
// result survives in a snapshot.
package quiz

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/snapshot"
)

const (
	defaultSubmitTimeout = 10 * time.Second
	snapshotSaveTimeout  = 2 * time.Second
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{StateIdle, StateSubmitting, StateSubmitted, StateFailed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

type ContactInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Industry string `json:"industry"`
}

// Options carries the collaborators a session needs besides its catalog and
// submitter. Zero values fall back to no snapshots, a 10s timeout and a
// discarding logger.
type Options struct {
	Snapshots     snapshot.Store
	SubmitTimeout time.Duration
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Snapshots == nil {
		o.Snapshots = snapshot.Nop{}
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = defaultSubmitTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Session is a single visitor's pass through the catalog. It is safe for
// concurrent use; the persistence call runs without holding the lock.
type Session struct {
	id        string
	catalog   *assessment.Catalog
	submitter Submitter
	opts      Options

	mu           sync.Mutex
	step         int
	answers      []assessment.Answer
	state        State
	lastErr      error
	submissionID string
	result       assessment.Result
}

func NewSession(id string, catalog *assessment.Catalog, submitter Submitter, opts Options) *Session {
	return &Session{
		id:        id,
		catalog:   catalog,
		submitter: submitter,
		opts:      opts.withDefaults(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Catalog() *assessment.Catalog { return s.catalog }

func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) CurrentQuestion() *assessment.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.At(s.step)
}

// Answer returns the stored value for a question.
func (s *Session) Answer(questionID string) (assessment.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answerLocked(questionID)
}

func (s *Session) answerLocked(questionID string) (assessment.Value, bool) {
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			return a.Value, true
		}
	}
	return assessment.Value{}, false
}

// Answers returns a copy of the answers in the order they were first given.
func (s *Session) Answers() []assessment.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]assessment.Answer(nil), s.answers...)
}

// SetAnswer records or replaces the answer to a question. Answers are frozen
// while a submission is in flight and after it succeeds.
func (s *Session) SetAnswer(questionID string, v assessment.Value) error {
	q := s.catalog.Question(questionID)
	if q == nil {
		return ErrUnknownQuestion
	}
	if _, isChoice := v.ChoiceValue(); isChoice && !q.Scored() && len(q.Options) > 0 {
		return ErrLabelRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateSubmitted:
		return ErrAlreadySubmitted
	}

	for i := range s.answers {
		if s.answers[i].QuestionID == questionID {
			s.answers[i].Value = v
			return nil
		}
	}
	s.answers = append(s.answers, assessment.Answer{QuestionID: questionID, Value: v})
	return nil
}

func (s *Session) Next() int { return s.move(func(step int) int { return step + 1 }) }

func (s *Session) Previous() int { return s.move(func(step int) int { return step - 1 }) }

// GoTo jumps to step n, clamped to the catalog bounds.
func (s *Session) GoTo(n int) int { return s.move(func(int) int { return n }) }

func (s *Session) move(f func(int) int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = max(0, min(f(s.step), s.catalog.Len()-1))
	return s.step
}

// ContactInfo derives contact details from the identity answers. ok is false
// unless all four are present and non-blank.
func (s *Session) ContactInfo() (ContactInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, missing := s.contactLocked()
	return c, len(missing) == 0
}

func (s *Session) contactLocked() (ContactInfo, []string) {
	var (
		c       ContactInfo
		missing []string
	)
	read := func(f assessment.ContactField, dst *string) {
		id := s.catalog.ContactQuestion(f)
		v, ok := s.answerLocked(id)
		if !ok || v.Empty() {
			missing = append(missing, id)
			return
		}
		*dst = strings.TrimSpace(v.String())
	}
	read(assessment.ContactName, &c.Name)
	read(assessment.ContactEmail, &c.Email)
	read(assessment.ContactRole, &c.Role)
	read(assessment.ContactIndustry, &c.Industry)
	return c, missing
}

func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incompleteLocked() == nil
}

// Incomplete explains why the session cannot be submitted, or returns nil.
func (s *Session) Incomplete() *IncompleteError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incompleteLocked()
}

func (s *Session) incompleteLocked() *IncompleteError {
	if _, missing := s.contactLocked(); len(missing) > 0 {
		return &IncompleteError{Reason: MissingContact, QuestionIDs: missing}
	}
	var unanswered []string
	for _, id := range s.catalog.Scored() {
		if v, ok := s.answerLocked(id); !ok || v.Empty() {
			unanswered = append(unanswered, id)
		}
	}
	if len(unanswered) > 0 {
		return &IncompleteError{Reason: UnansweredQuestions, QuestionIDs: unanswered}
	}
	return nil
}

// State returns the submission state and, when Failed, the error that caused
// it.
func (s *Session) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.lastErr
}

func (s *Session) SubmissionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submissionID
}

// Result is available only once the session is Submitted.
func (s *Session) Result() (assessment.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitted {
		return assessment.Result{}, false
	}
	return s.result, true
}

// Reset starts the assessment over. The stored snapshot is left alone so a
// finished result stays viewable.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrSubmitInFlight
	}
	s.step = 0
	s.answers = nil
	s.state = StateIdle
	s.lastErr = nil
	s.submissionID = ""
	s.result = assessment.Result{}
	return nil
}
