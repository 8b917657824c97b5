package quiz

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/origo/signalcheck/internal/assessment"
)

const unknownQuestionText = "Unknown question"

// FormattedAnswer is an answer annotated with what it resolved to.
type FormattedAnswer struct {
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText"`
	AnswerLabel  string `json:"answerLabel"`
	AnswerScore  int    `json:"answerScore"`
}

// Submission is handed to the Submitter exactly once per completed session.
type Submission struct {
	SessionID  string
	Contact    ContactInfo
	Answers    []FormattedAnswer
	ScoreTotal int
	Tier       assessment.Tier
}

// Submitter persists a completed assessment and returns the record id.
// Errors implementing Classifier tell the session how to report the failure.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (string, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub Submission) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, sub Submission) (string, error) {
	return f(ctx, sub)
}

// FormatAnswers resolves every answer against the catalog, in catalog order.
// Answers to questions the catalog does not know are appended last.
func FormatAnswers(c *assessment.Catalog, answers []assessment.Answer) []FormattedAnswer {
	byID := make(map[string]assessment.Value, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a.Value
	}

	out := make([]FormattedAnswer, 0, len(answers))
	for i := range c.Len() {
		q := c.At(i)
		v, ok := byID[q.ID]
		if !ok {
			continue
		}
		delete(byID, q.ID)
		r := assessment.Resolve(q, v)
		out = append(out, FormattedAnswer{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			AnswerLabel:  r.Label,
			AnswerScore:  r.Score,
		})
	}
	for _, a := range answers {
		v, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		delete(byID, a.QuestionID)
		out = append(out, FormattedAnswer{
			QuestionID:   a.QuestionID,
			QuestionText: unknownQuestionText,
			AnswerLabel:  v.String(),
		})
	}
	return out
}

// Receipt describes a successful submission.
type Receipt struct {
	ID     string
	Result assessment.Result
}

// Submit scores the session and persists it through the Submitter. Only one
// call can be in flight, and once it succeeds every later call returns
// ErrAlreadySubmitted without touching the Submitter. A failure leaves the
// session in StateFailed with the error kept, ready to be submitted again.
func (s *Session) Submit(ctx context.Context) (Receipt, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return Receipt{}, ErrSubmitInFlight
	case StateSubmitted:
		s.mu.Unlock()
		return Receipt{}, ErrAlreadySubmitted
	}
	if inc := s.incompleteLocked(); inc != nil {
		s.mu.Unlock()
		return Receipt{}, inc
	}

	s.state = StateSubmitting
	s.lastErr = nil
	contact, _ := s.contactLocked()
	res := assessment.Evaluate(s.catalog, s.answers)
	sub := Submission{
		SessionID:  s.id,
		Contact:    contact,
		Answers:    FormatAnswers(s.catalog, s.answers),
		ScoreTotal: res.Raw,
		Tier:       res.Tier,
	}
	s.mu.Unlock()

	logger := s.opts.Logger.With("session_id", s.id)

	// Once issued, the call runs to completion or timeout even if the caller
	// goes away.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SubmitTimeout)
	id, err := s.submitter.Submit(callCtx, sub)
	cancel()

	s.mu.Lock()
	if err != nil {
		serr := &SubmissionError{Kind: classify(err), Err: err}
		s.state = StateFailed
		s.lastErr = serr
		s.mu.Unlock()
		logger.Warn("assessment submission failed", "kind", serr.Kind, "error", err)
		return Receipt{}, serr
	}
	s.state = StateSubmitted
	s.submissionID = id
	s.result = res
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logger.Info("assessment submitted",
		"submission_id", id,
		"score", res.Raw,
		"percentage", res.Percentage,
		"tier", res.Tier.Slug(),
	)

	s.saveSnapshot(ctx, snap, logger)
	return Receipt{ID: id, Result: res}, nil
}

// saveSnapshot logs failures and never fails the submission.
func (s *Session) saveSnapshot(ctx context.Context, snap Snapshot, logger *slog.Logger) {
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Warn("encoding result snapshot", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotSaveTimeout)
	defer cancel()
	if err := s.opts.Snapshots.Put(ctx, SnapshotKey(s.id), data); err != nil {
		logger.Warn("saving result snapshot", "error", err)
	}
}
