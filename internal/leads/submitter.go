package leads

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/origo/signalcheck/internal/quiz"
)

// LogAttrs returns the slog attributes describing a record. Contact details
// are included only when withContact is set, which is the development
// setting; production logs carry ids, score and tier.
func LogAttrs(r Record, withContact bool) []any {
	attrs := []any{
		"lead_id", r.ID,
		"score", r.ScoreTotal,
		"tier", r.TierResult,
	}
	if r.SessionID != "" {
		attrs = append(attrs, "session_id", r.SessionID)
	}
	if withContact {
		attrs = append(attrs,
			"contact_name", r.ContactName,
			"contact_email", r.ContactEmail,
		)
	}
	return attrs
}

// Submitter persists quiz submissions as lead records.
type Submitter struct {
	store       *Store
	logger      *slog.Logger
	withContact bool
	onCreate    []func(Record)
}

func NewSubmitter(store *Store, logger *slog.Logger, withContact bool) *Submitter {
	return &Submitter{store: store, logger: logger, withContact: withContact}
}

// OnCreate registers fn to run after every stored record.
func (s *Submitter) OnCreate(fn func(Record)) {
	s.onCreate = append(s.onCreate, fn)
}

func (s *Submitter) Submit(ctx context.Context, sub quiz.Submission) (string, error) {
	if err := validateSubmission(sub); err != nil {
		s.logger.Warn("lead rejected", "session_id", sub.SessionID, "error", err)
		return "", err
	}

	rec, err := s.store.Insert(ctx, Record{
		ContactName:     sub.Contact.Name,
		ContactEmail:    sub.Contact.Email,
		ContactRole:     sub.Contact.Role,
		ContactIndustry: sub.Contact.Industry,
		Answers:         sub.Answers,
		ScoreTotal:      sub.ScoreTotal,
		TierResult:      sub.Tier.String(),
		Status:          StatusNew,
		SessionID:       sub.SessionID,
	})
	if err != nil {
		s.logger.Error("storing lead", "session_id", sub.SessionID, "error", err)
		return "", err
	}

	s.logger.Info("lead stored", LogAttrs(rec, s.withContact)...)
	for _, fn := range s.onCreate {
		fn(rec)
	}
	return rec.ID, nil
}

func validateSubmission(sub quiz.Submission) error {
	const op = "validate lead"
	c := sub.Contact
	switch {
	case strings.TrimSpace(c.Name) == "":
		return validationError(op, "contact name is required")
	case strings.TrimSpace(c.Email) == "":
		return validationError(op, "contact email is required")
	case strings.TrimSpace(c.Role) == "":
		return validationError(op, "contact role is required")
	case strings.TrimSpace(c.Industry) == "":
		return validationError(op, "company industry is required")
	case len(sub.Answers) == 0:
		return validationError(op, "answers are required")
	case sub.ScoreTotal < 0:
		return validationError(op, "score must not be negative")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return validationError(op, "contact email is not a valid address")
	}
	return nil
}

var _ quiz.Submitter = (*Submitter)(nil)
